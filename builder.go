package flowline

import (
	"fmt"

	"github.com/juhoh/flowline/pkg/api"
	"github.com/juhoh/flowline/pkg/validate"
)

// StepsBuilder provides a fluent API for assembling a workflow's step list:
//
//	steps := flowline.NewSteps().
//	    Trigger("t1", "on-comment", map[string]any{"platform": "twitter"}).
//	    Condition("c1", "is-question", nil, "t1").
//	    Branch("a1", "auto-reply", "c1", flowline.BranchIfTrue, nil).
//	    Branch("a2", "flag-for-review", "c1", flowline.BranchIfFalse, nil).
//	    Steps()
//
// The builder assigns display sequence numbers in call order. It performs no
// validation of its own; run the result through ValidateWorkflow /
// ValidateForPublish or use the Validate helpers.
type StepsBuilder struct {
	steps []api.WorkflowStep
	seq   int
}

// NewSteps creates an empty StepsBuilder.
func NewSteps() *StepsBuilder {
	return &StepsBuilder{}
}

// Trigger appends a TRIGGER step.
func (b *StepsBuilder) Trigger(id, name string, config map[string]any) *StepsBuilder {
	return b.append(id, name, api.StepTrigger, config, nil, "", "")
}

// Action appends an ACTION step depending on the given step ids.
func (b *StepsBuilder) Action(id, name string, config map[string]any, dependsOn ...string) *StepsBuilder {
	return b.append(id, name, api.StepAction, config, dependsOn, "", "")
}

// Condition appends a CONDITION step depending on the given step ids.
func (b *StepsBuilder) Condition(id, name string, config map[string]any, dependsOn ...string) *StepsBuilder {
	return b.append(id, name, api.StepCondition, config, dependsOn, "", "")
}

// Branch appends an ACTION step attached to a CONDITION step's branch path.
func (b *StepsBuilder) Branch(id, name, parentID string, branch api.BranchType, config map[string]any) *StepsBuilder {
	if parentID == "" {
		panic(fmt.Sprintf("flowline: branch step %q has no parent id", id))
	}
	return b.append(id, name, api.StepAction, config, nil, parentID, branch)
}

func (b *StepsBuilder) append(id, name string, typ api.StepType, config map[string]any, deps []string, parentID string, branch api.BranchType) *StepsBuilder {
	if id == "" {
		panic("flowline: step id must not be empty")
	}
	if name == "" {
		panic(fmt.Sprintf("flowline: step %q has no name", id))
	}

	seq := b.seq
	b.seq++

	// Copy the dependency list so callers can reuse their slice.
	var dependencies []string
	if len(deps) > 0 {
		dependencies = append(dependencies, deps...)
	}

	b.steps = append(b.steps, api.WorkflowStep{
		ID:           id,
		Name:         name,
		Type:         typ,
		Sequence:     &seq,
		Config:       config,
		Dependencies: dependencies,
		ParentStepID: parentID,
		BranchType:   branch,
	})
	return b
}

// Steps returns the assembled step list.
func (b *StepsBuilder) Steps() []api.WorkflowStep {
	out := make([]api.WorkflowStep, len(b.steps))
	copy(out, b.steps)
	return out
}

// Validate runs the draft validation pass over the assembled steps.
func (b *StepsBuilder) Validate() validate.Result {
	return validate.Workflow(b.steps)
}

// ValidateForPublish runs the stricter publish pass over the assembled steps.
func (b *StepsBuilder) ValidateForPublish() validate.Result {
	return validate.ForPublish(b.steps)
}
