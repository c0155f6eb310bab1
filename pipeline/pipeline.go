package pipeline

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// SavePolicy controls when a job's cache paths are persisted back to the
// cache store after the job reaches a terminal state.
type SavePolicy string

const (
	// SaveOnSuccess persists cache contents only when the job succeeded.
	// This is the default policy.
	SaveOnSuccess SavePolicy = "on_success"

	// SaveAlways persists cache contents regardless of the job outcome.
	SaveAlways SavePolicy = "always"

	// SaveNever disables persisting cache contents for the job.
	SaveNever SavePolicy = "never"
)

// ShouldSave reports whether cache contents should be saved given the job
// outcome. An empty policy behaves as SaveOnSuccess.
func (p SavePolicy) ShouldSave(succeeded bool) bool {
	switch p {
	case SaveAlways:
		return true
	case SaveNever:
		return false
	default:
		return succeeded
	}
}

// CacheKeySpec describes the variability inputs of a cache key: the files
// whose combined content hash forms the key, plus an optional namespace
// prefix that keeps logically distinct caches sharing the same input files
// from colliding.
type CacheKeySpec struct {
	// Files is the ordered list of paths hashed into the key. Order is
	// significant; the resolver must not reorder or deduplicate it.
	Files []string `yaml:"files"`

	// Prefix, when nonempty, is prepended to the content hash as
	// "prefix:hash".
	Prefix string `yaml:"prefix"`
}

// CacheSpec describes a job's cache scope: the key inputs and the storage
// paths restored and saved under the resolved key.
type CacheSpec struct {
	Key   CacheKeySpec `yaml:"key"`
	Paths []string     `yaml:"paths"`
	When  SavePolicy   `yaml:"when"`
}

// SourceDep is an external source dependency fetched into a sibling
// location before the job's setup commands run.
type SourceDep struct {
	// Repo is the git URL of the dependency.
	Repo string `yaml:"repo"`

	// Path is the destination directory, relative to the dependency root.
	// Defaults to the last path element of Repo.
	Path string `yaml:"path"`

	// Ref is the branch or tag to check out. Empty means the remote default.
	Ref string `yaml:"ref"`
}

// Job is a fully materialized unit of work. Template references are resolved
// at load time; a Job never changes after Load returns.
type Job struct {
	Name         string
	Stage        string
	Variables    map[string]string
	BeforeScript []string
	Script       []string
	Cache        *CacheSpec
	Only         []string
	Packages     []string
	Deps         []SourceDep
	AllowFailure bool
}

// HasTrigger reports whether the job carries an event gate. A job without
// one is unconditionally eligible.
func (j *Job) HasTrigger() bool {
	return j.Only != nil
}

// Definition is a loaded pipeline: the ordered stage sequence and the jobs
// assigned to those stages, in declaration order.
type Definition struct {
	// Stages is the execution order. Jobs in a later stage do not start
	// until every job in the prior stage reached a terminal state.
	Stages []string

	// Requires is an optional semver constraint on the engine version.
	Requires string

	// Variables are pipeline-level defaults, merged under job-level ones.
	Variables map[string]string

	// Jobs holds all runnable jobs in declaration order.
	Jobs []Job
}

// StageIndex returns the position of the named stage, or -1 if the stage is
// not declared.
func (d *Definition) StageIndex(name string) int {
	for i, s := range d.Stages {
		if s == name {
			return i
		}
	}
	return -1
}

// JobsInOrder returns the jobs ordered by stage position, then by
// declaration order within a stage. This ordering is the contract consumed
// by the trigger evaluator and the execution engine.
func (d *Definition) JobsInOrder() []*Job {
	ordered := make([]*Job, 0, len(d.Jobs))
	for i := range d.Jobs {
		ordered = append(ordered, &d.Jobs[i])
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		return d.StageIndex(ordered[a].Stage) < d.StageIndex(ordered[b].Stage)
	})
	return ordered
}

// CheckRequires validates the engine version against the definition's
// `requires` constraint. A definition without a constraint accepts any
// version.
func (d *Definition) CheckRequires(engineVersion string) error {
	if d.Requires == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(d.Requires)
	if err != nil {
		return WrapErrorf(ErrParse, "invalid requires constraint %q", d.Requires)
	}
	version, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine version %q: %w", engineVersion, err)
	}
	if !constraint.Check(version) {
		return WrapErrorf(ErrVersionMismatch, "engine %s does not satisfy %q", engineVersion, d.Requires)
	}
	return nil
}
