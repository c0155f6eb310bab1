// Package provision prepares a job's execution context before its script
// runs: it merges environment overrides, creates working directories,
// installs system packages, fetches external source dependencies and runs
// the job's setup commands.
//
// The steps are strictly sequential because later steps may depend on files
// or packages the earlier ones install. A failed setup command aborts the
// job before its main script and is reported as a SetupError, distinct from
// a ScriptError raised later. Package installation and dependency fetching
// are idempotent and safe to retry.
package provision
