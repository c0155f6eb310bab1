package engine

import (
	"time"

	"github.com/Yoga07/stagehand/cache"
	"github.com/Yoga07/stagehand/trigger"
)

// JobStatus represents the terminal state of a job evaluation.
type JobStatus string

const (
	// StatusSuccess indicates every command of the job succeeded.
	StatusSuccess JobStatus = "SUCCESS"

	// StatusFailed indicates the job reached a failure: provisioning, a
	// setup command, a script command or cache key resolution.
	StatusFailed JobStatus = "FAILED"

	// StatusSkipped indicates the job never ran: its trigger rule rejected
	// the event, or an earlier stage failed. A skipped job is not an error.
	StatusSkipped JobStatus = "SKIPPED"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// FailureClass distinguishes what part of a failed job broke. It drives the
// process exit code and lets operators tell a broken environment from a
// broken build.
type FailureClass string

const (
	// FailureNone is set on jobs that did not fail.
	FailureNone FailureClass = ""

	// FailureCache indicates cache key resolution failed, typically a
	// missing key input file.
	FailureCache FailureClass = "CACHE"

	// FailureProvisioning indicates an unrecoverable environment setup
	// issue before any job command ran.
	FailureProvisioning FailureClass = "PROVISIONING"

	// FailureSetup indicates a before_script command exited non-zero.
	FailureSetup FailureClass = "SETUP"

	// FailureScript indicates a main script command exited non-zero.
	FailureScript FailureClass = "SCRIPT"
)

// JobResult is the individually observable outcome of one job evaluation.
type JobResult struct {
	Job      string
	Stage    string
	Status   JobStatus
	Failure  FailureClass
	CacheKey cache.Key
	CacheHit bool
	Err      error
	Duration time.Duration

	// SkipReason explains a StatusSkipped result: "event" when the trigger
	// rule rejected the event, "stage-blocked" when an earlier stage failed.
	SkipReason string

	// AllowedFailure is set when the job failed but was declared
	// allow_failure: the result stays StatusFailed, yet it neither blocks
	// later stages nor fails the pipeline.
	AllowedFailure bool
}

// Failed reports whether the job reached a failure state that counts
// against the pipeline.
func (r *JobResult) Failed() bool {
	return r.Status == StatusFailed && !r.AllowedFailure
}

// Report is the outcome of one pipeline run: every job's terminal state in
// execution order.
type Report struct {
	Event   trigger.Event
	Results []JobResult
}

// Succeeded reports whether the run finished without a counting failure.
func (r *Report) Succeeded() bool {
	return r.WorstFailure() == FailureNone
}

// WorstFailure returns the failure class that should drive the process exit
// code: script failures rank below setup/provisioning/cache failures so the
// more actionable class wins when both occurred.
func (r *Report) WorstFailure() FailureClass {
	worst := FailureNone
	for i := range r.Results {
		res := &r.Results[i]
		if !res.Failed() {
			continue
		}
		switch res.Failure {
		case FailureSetup, FailureProvisioning, FailureCache:
			return res.Failure
		case FailureScript:
			worst = FailureScript
		}
	}
	return worst
}
