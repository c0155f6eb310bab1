// Package trigger decides whether a job runs for a given repository event.
//
// Evaluation is a pure function of the job and the event: no filesystem, no
// environment, no side effects. A job without an event gate is eligible for
// every event; a gated job is eligible only when the event's kind is a member
// of the job's allowed set.
package trigger

import "github.com/Yoga07/stagehand/pipeline"

// Kind identifies the type of repository event that started a pipeline run.
type Kind string

const (
	// KindMergeRequest is an event for a merge request being opened or updated.
	KindMergeRequest Kind = "merge_request"

	// KindPush is a branch push event.
	KindPush Kind = "push"

	// KindTag is a tag creation event.
	KindTag Kind = "tag"

	// KindSchedule is a timer-driven event.
	KindSchedule Kind = "schedule"

	// KindManual is an operator-initiated event.
	KindManual Kind = "manual"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// Event is the repository event that reached the engine. Ref and Metadata
// are carried through to job environments and logs; only Kind participates
// in eligibility.
type Event struct {
	Kind     Kind
	Ref      string
	Metadata map[string]string
}

// Eligible reports whether the job should run for the event. Jobs without a
// trigger rule are unconditionally eligible.
func Eligible(job *pipeline.Job, event Event) bool {
	if !job.HasTrigger() {
		return true
	}
	for _, allowed := range job.Only {
		if Kind(allowed) == event.Kind {
			return true
		}
	}
	return false
}
