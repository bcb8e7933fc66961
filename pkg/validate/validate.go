// Package validate checks the structural integrity of a workflow's step
// graph. Validation problems are data, not errors: every check appends to a
// result so a caller can render all problems at once.
package validate

import (
	"fmt"

	"github.com/juhoh/flowline/pkg/api"
)

// Code identifies one kind of validation issue.
type Code string

const (
	CodeMissingName         Code = "MISSING_NAME"
	CodeInvalidType         Code = "INVALID_TYPE"
	CodeInvalidSequence     Code = "INVALID_SEQUENCE"
	CodeMissingDependency   Code = "MISSING_DEPENDENCY"
	CodeMissingParent       Code = "MISSING_PARENT"
	CodeBranchWithoutParent Code = "BRANCH_WITHOUT_PARENT"
	CodeCycleDetected       Code = "CYCLE_DETECTED"
	CodeNoTrigger           Code = "NO_TRIGGER"
	CodeConditionNoBranches Code = "CONDITION_NO_BRANCHES"

	CodeEmptyWorkflow      Code = "EMPTY_WORKFLOW"
	CodeNoTriggerOnPublish Code = "NO_TRIGGER_FOR_PUBLISH"
	CodeNoActionOnPublish  Code = "NO_ACTION_FOR_PUBLISH"
)

// Issue is one validation finding, tied to a step where applicable.
type Issue struct {
	Code    Code
	Message string
	StepID  string
}

// Result is the outcome of a validation pass. Valid is false iff Errors is
// non-empty; warnings never affect Valid.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

// Workflow validates a draft step list. Nested ChildSteps are flattened into
// one sibling set before any check runs, so dependency, parent, and cycle
// checks see the whole graph regardless of how the caller nested it.
func Workflow(steps []api.WorkflowStep) Result {
	flat := Flatten(steps)

	var errs, warns []Issue

	byID := make(map[string]*api.WorkflowStep, len(flat))
	for i := range flat {
		byID[flat[i].ID] = &flat[i]
	}

	hasTrigger := false
	childrenOf := make(map[string]int)

	for i := range flat {
		step := &flat[i]

		if step.Name == "" {
			errs = append(errs, Issue{
				Code:    CodeMissingName,
				Message: "step has no name",
				StepID:  step.ID,
			})
		}

		switch step.Type {
		case api.StepTrigger:
			hasTrigger = true
		case api.StepAction, api.StepCondition:
		default:
			errs = append(errs, Issue{
				Code:    CodeInvalidType,
				Message: fmt.Sprintf("unknown step type %q", step.Type),
				StepID:  step.ID,
			})
		}

		if step.Sequence != nil && *step.Sequence < 0 {
			errs = append(errs, Issue{
				Code:    CodeInvalidSequence,
				Message: fmt.Sprintf("sequence must not be negative, got %d", *step.Sequence),
				StepID:  step.ID,
			})
		}

		for _, dep := range step.Dependencies {
			if _, ok := byID[dep]; !ok {
				errs = append(errs, Issue{
					Code:    CodeMissingDependency,
					Message: fmt.Sprintf("dependency %q does not exist", dep),
					StepID:  step.ID,
				})
			}
		}

		if step.ParentStepID != "" {
			if _, ok := byID[step.ParentStepID]; !ok {
				errs = append(errs, Issue{
					Code:    CodeMissingParent,
					Message: fmt.Sprintf("parent step %q does not exist", step.ParentStepID),
					StepID:  step.ID,
				})
			} else {
				childrenOf[step.ParentStepID]++
			}
		}

		// A dangling branch step can never execute, so this is a hard
		// error rather than a warning.
		if step.BranchType != "" && step.ParentStepID == "" {
			errs = append(errs, Issue{
				Code:    CodeBranchWithoutParent,
				Message: fmt.Sprintf("branch type %q set without a parent step", step.BranchType),
				StepID:  step.ID,
			})
		}
	}

	if id, cyclic := findCycle(flat, byID); cyclic {
		errs = append(errs, Issue{
			Code:    CodeCycleDetected,
			Message: "dependency graph contains a cycle",
			StepID:  id,
		})
	}

	if !hasTrigger {
		warns = append(warns, Issue{
			Code:    CodeNoTrigger,
			Message: "workflow has no trigger step",
		})
	}

	for i := range flat {
		step := &flat[i]
		if step.Type == api.StepCondition && childrenOf[step.ID] == 0 {
			warns = append(warns, Issue{
				Code:    CodeConditionNoBranches,
				Message: "condition step has no branch steps",
				StepID:  step.ID,
			})
		}
	}

	return Result{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
}

// ForPublish validates a publish candidate. It applies every draft check and
// three additional hard gates; the result carries errors only.
func ForPublish(steps []api.WorkflowStep) Result {
	flat := Flatten(steps)

	draft := Workflow(steps)
	errs := draft.Errors

	if len(flat) == 0 {
		errs = append(errs, Issue{
			Code:    CodeEmptyWorkflow,
			Message: "workflow has no steps",
		})
	}

	hasTrigger, hasAction := false, false
	for i := range flat {
		switch flat[i].Type {
		case api.StepTrigger:
			hasTrigger = true
		case api.StepAction:
			hasAction = true
		}
	}

	if !hasTrigger {
		errs = append(errs, Issue{
			Code:    CodeNoTriggerOnPublish,
			Message: "workflow must have a trigger step to be published",
		})
	}
	if !hasAction {
		errs = append(errs, Issue{
			Code:    CodeNoActionOnPublish,
			Message: "workflow must have an action step to be published",
		})
	}

	return Result{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}

// Flatten expands nested ChildSteps into a single sibling list. Children are
// appended after their parent; ChildSteps is cleared on the copies so the
// result is a plain list.
func Flatten(steps []api.WorkflowStep) []api.WorkflowStep {
	var out []api.WorkflowStep
	var walk func(list []api.WorkflowStep)
	walk = func(list []api.WorkflowStep) {
		for _, step := range list {
			children := step.ChildSteps
			step.ChildSteps = nil
			out = append(out, step)
			if len(children) > 0 {
				walk(children)
			}
		}
	}
	walk(steps)
	return out
}

// color is the visit state of a step during cycle detection.
type color uint8

const (
	white color = iota // unvisited
	gray               // on the current DFS path
	black              // fully explored
)

// findCycle runs a three-color DFS over the dependency edges
// (step -> each id in Dependencies). It returns the id of the step at which
// a back edge was found. Edges to unknown ids are ignored here; they are
// reported separately as MISSING_DEPENDENCY.
func findCycle(steps []api.WorkflowStep, byID map[string]*api.WorkflowStep) (string, bool) {
	colors := make(map[string]color, len(steps))

	var visit func(id string) (string, bool)
	visit = func(id string) (string, bool) {
		colors[id] = gray
		for _, dep := range byID[id].Dependencies {
			if _, ok := byID[dep]; !ok {
				continue
			}
			switch colors[dep] {
			case gray:
				return id, true
			case white:
				if at, found := visit(dep); found {
					return at, true
				}
			}
		}
		colors[id] = black
		return "", false
	}

	for i := range steps {
		id := steps[i].ID
		if colors[id] == white {
			if at, found := visit(id); found {
				return at, true
			}
		}
	}
	return "", false
}
