package api

import "time"

// WorkflowStatus is the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowDraft    WorkflowStatus = "DRAFT"
	WorkflowActive   WorkflowStatus = "ACTIVE"
	WorkflowArchived WorkflowStatus = "ARCHIVED"
)

// StepType classifies a workflow step.
type StepType string

const (
	StepTrigger   StepType = "TRIGGER"
	StepAction    StepType = "ACTION"
	StepCondition StepType = "CONDITION"
)

// BranchType identifies which path of a CONDITION step a branch belongs to.
type BranchType string

const (
	BranchIfTrue  BranchType = "IF_TRUE"
	BranchIfFalse BranchType = "IF_FALSE"
	BranchElse    BranchType = "ELSE"
)

// Workflow is an automation owned by a workspace. A workflow has one or more
// versions; only the published version of an ACTIVE workflow is eligible to
// receive events.
type Workflow struct {
	ID          string
	Name        string
	Description string
	Status      WorkflowStatus
	WorkspaceID string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkflowVersion is one immutable revision of a workflow's step graph.
// Version numbers increase monotonically and are unique per workflow.
// At most one version per workflow is published at any time; publishing a
// new version unpublishes the previous one in the same store operation.
type WorkflowVersion struct {
	ID          string
	WorkflowID  string
	Number      int
	Description string
	IsPublished bool
	PublishedAt *time.Time
	Steps       []WorkflowStep
}

// WorkflowStep is one node in a workflow's directed graph.
//
// Dependencies lists the ids of sibling steps this step depends on; those
// edges form the graph checked for cycles by the validator. Sequence is a
// display-ordering hint only and never affects execution order. A step
// attached to a CONDITION step carries ParentStepID plus a BranchType.
//
// ChildSteps allows callers to hand the validator a nested layout; the
// validator flattens children into the sibling set before checking.
type WorkflowStep struct {
	ID           string
	Name         string
	Type         StepType
	Sequence     *int
	Config       map[string]any
	Dependencies []string

	ParentStepID    string
	BranchType      BranchType
	BranchCondition map[string]any

	ChildSteps []WorkflowStep
}
