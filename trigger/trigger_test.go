package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Yoga07/stagehand/pipeline"
)

func TestEligible_NoRuleMatchesEveryEvent(t *testing.T) {
	job := &pipeline.Job{Name: "rustfmt", Stage: "lint"}

	for _, kind := range []Kind{KindMergeRequest, KindPush, KindTag, KindSchedule, KindManual} {
		assert.True(t, Eligible(job, Event{Kind: kind}), "kind %s", kind)
	}
}

func TestEligible_SetMembership(t *testing.T) {
	job := &pipeline.Job{
		Name:  "cargo_test",
		Stage: "test",
		Only:  []string{"merge_request"},
	}

	assert.True(t, Eligible(job, Event{Kind: KindMergeRequest}))
	for _, kind := range []Kind{KindPush, KindTag, KindSchedule, KindManual} {
		assert.False(t, Eligible(job, Event{Kind: kind}), "kind %s", kind)
	}
}

func TestEligible_MultipleAllowedKinds(t *testing.T) {
	job := &pipeline.Job{
		Name: "release",
		Only: []string{"tag", "manual"},
	}

	assert.True(t, Eligible(job, Event{Kind: KindTag}))
	assert.True(t, Eligible(job, Event{Kind: KindManual}))
	assert.False(t, Eligible(job, Event{Kind: KindPush}))
}

func TestEligible_EmptyRuleRejectsEverything(t *testing.T) {
	// An explicitly empty allowed set is a rule, not the absence of one.
	job := &pipeline.Job{Name: "never", Only: []string{}}

	assert.False(t, Eligible(job, Event{Kind: KindPush}))
	assert.False(t, Eligible(job, Event{Kind: KindMergeRequest}))
}

func TestEligible_IgnoresRefAndMetadata(t *testing.T) {
	job := &pipeline.Job{Name: "gated", Only: []string{"push"}}

	a := Eligible(job, Event{Kind: KindPush, Ref: "main"})
	b := Eligible(job, Event{Kind: KindPush, Ref: "other", Metadata: map[string]string{"x": "y"}})
	assert.True(t, a)
	assert.True(t, b)
}
