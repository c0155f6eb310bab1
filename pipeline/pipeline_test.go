package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavePolicy_ShouldSave(t *testing.T) {
	cases := []struct {
		policy    SavePolicy
		succeeded bool
		want      bool
	}{
		{SaveOnSuccess, true, true},
		{SaveOnSuccess, false, false},
		{SaveAlways, true, true},
		{SaveAlways, false, true},
		{SaveNever, true, false},
		{SaveNever, false, false},
		{SavePolicy(""), true, true},
		{SavePolicy(""), false, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.policy.ShouldSave(tc.succeeded),
			"policy %q, succeeded=%v", tc.policy, tc.succeeded)
	}
}

func TestStageIndex(t *testing.T) {
	def := &Definition{Stages: []string{"test", "lint"}}
	assert.Equal(t, 0, def.StageIndex("test"))
	assert.Equal(t, 1, def.StageIndex("lint"))
	assert.Equal(t, -1, def.StageIndex("deploy"))
}

func TestCheckRequires(t *testing.T) {
	t.Run("no constraint accepts anything", func(t *testing.T) {
		def := &Definition{}
		require.NoError(t, def.CheckRequires("0.0.1"))
	})

	t.Run("satisfied constraint", func(t *testing.T) {
		def := &Definition{Requires: ">= 0.2.0"}
		require.NoError(t, def.CheckRequires("0.3.0"))
	})

	t.Run("unsatisfied constraint", func(t *testing.T) {
		def := &Definition{Requires: ">= 1.0.0"}
		err := def.CheckRequires("0.3.0")
		require.ErrorIs(t, err, ErrVersionMismatch)
	})

	t.Run("invalid constraint", func(t *testing.T) {
		def := &Definition{Requires: "not-a-constraint"}
		err := def.CheckRequires("0.3.0")
		require.ErrorIs(t, err, ErrParse)
	})
}
