package flowline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStepsBuilderAssignsSequence(t *testing.T) {
	steps := NewSteps().
		Trigger("t1", "on-comment", map[string]any{"platform": "twitter"}).
		Condition("c1", "is-question", nil, "t1").
		Branch("a1", "auto-reply", "c1", BranchIfTrue, nil).
		Branch("a2", "flag-for-review", "c1", BranchIfFalse, nil).
		Steps()

	require.Len(t, steps, 4)
	for i, s := range steps {
		require.NotNil(t, s.Sequence)
		require.Equal(t, i, *s.Sequence)
	}

	require.Equal(t, StepTrigger, steps[0].Type)
	require.Equal(t, StepCondition, steps[1].Type)
	require.Equal(t, []string{"t1"}, steps[1].Dependencies)

	require.Equal(t, StepAction, steps[2].Type)
	require.Equal(t, "c1", steps[2].ParentStepID)
	require.Equal(t, BranchIfTrue, steps[2].BranchType)
	require.Equal(t, BranchIfFalse, steps[3].BranchType)
}

func TestStepsBuilderValidates(t *testing.T) {
	b := NewSteps().
		Trigger("t1", "on-comment", nil).
		Action("a1", "send-reply", nil, "t1")

	res := b.Validate()
	require.True(t, res.Valid)

	res = b.ValidateForPublish()
	require.True(t, res.Valid)
}

func TestStepsBuilderFlagsProblems(t *testing.T) {
	res := NewSteps().
		Action("a1", "send-reply", nil, "missing-step").
		Validate()

	require.False(t, res.Valid)
	require.NotEmpty(t, res.Errors)
	require.NotEmpty(t, res.Warnings) // no trigger
}

func TestStepsBuilderCopiesOutput(t *testing.T) {
	b := NewSteps().Trigger("t1", "on-comment", nil)

	first := b.Steps()
	first[0].Name = "mutated"

	second := b.Steps()
	require.Equal(t, "on-comment", second[0].Name)
}

func TestStepsBuilderCopiesDependencies(t *testing.T) {
	deps := []string{"t1"}
	b := NewSteps().
		Trigger("t1", "on-comment", nil).
		Action("a1", "send-reply", nil, deps...)

	deps[0] = "mutated"
	steps := b.Steps()
	require.Equal(t, []string{"t1"}, steps[1].Dependencies)
}

func TestStepsBuilderPanicsOnBadInput(t *testing.T) {
	require.Panics(t, func() { NewSteps().Trigger("", "name", nil) })
	require.Panics(t, func() { NewSteps().Action("a1", "", nil) })
	require.Panics(t, func() { NewSteps().Branch("a1", "name", "", BranchIfTrue, nil) })
}
