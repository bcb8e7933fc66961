package api

import (
	"context"
	"time"
)

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
	RunCancelled RunStatus = "CANCELLED"
)

// IsTerminal reports whether the status ends a run.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// StepStatus is the lifecycle state of one step within a run.
// Steps move PENDING -> RUNNING -> one of COMPLETED/FAILED/SKIPPED.
// The tracker does not police transitions; callers issue forward moves only.
type StepStatus string

const (
	StepPending    StepStatus = "PENDING"
	StepRunning    StepStatus = "RUNNING"
	StepCompleted  StepStatus = "COMPLETED"
	StepFailedExec StepStatus = "FAILED"
	StepSkipped    StepStatus = "SKIPPED"
)

// StepExecutionState is the recorded progress of one step in a run.
type StepExecutionState struct {
	StepID string
	Status StepStatus
	Output map[string]any
	Error  string
}

// StepExecutionUpdate is a partial update merged into a step's execution
// state. Nil fields are left unchanged.
type StepExecutionUpdate struct {
	Status *StepStatus
	Output map[string]any
	Error  *string
}

// WorkflowRun is one concrete execution of a published workflow version.
// StepExecutions maps step id to that step's recorded state. The ordered
// execution log lives in the run-log store, keyed by run id.
type WorkflowRun struct {
	ID          string
	WorkflowID  string
	WorkspaceID string
	Status      RunStatus
	StartedAt   time.Time
	EndedAt     *time.Time

	TriggerType    EventType
	TriggerPayload map[string]any

	StepExecutions map[string]StepExecutionState
}

// CreateRunParams are the caller-supplied fields for a new run.
type CreateRunParams struct {
	WorkflowID     string
	WorkspaceID    string
	TriggerType    EventType
	TriggerPayload map[string]any

	// Steps is the plan of the version being executed; one PENDING
	// execution-state entry is created per step.
	Steps []WorkflowStep
}

// RunTracker maintains per-run step execution state for the external
// executor.
//
// UpdateStepExecution is a read-modify-write of the whole per-run state map;
// concurrent updates to different steps of the same run race and may lose
// one writer's change. Executors that complete steps concurrently must
// serialize their updates per run.
type RunTracker interface {
	// CreateRun persists a new PENDING run with one PENDING execution
	// state per step.
	CreateRun(ctx context.Context, p CreateRunParams) (*WorkflowRun, error)

	// UpdateStepExecution merges the partial update into the state entry
	// for stepID, creating the entry if absent, and returns the merged
	// state.
	UpdateStepExecution(ctx context.Context, runID, stepID string, upd StepExecutionUpdate) (StepExecutionState, error)

	// GetStepExecutions returns the run's full step-state map.
	GetStepExecutions(ctx context.Context, runID string) (map[string]StepExecutionState, error)

	// SetRunStatus records a run-level status decided by the executor,
	// stamping EndedAt when the status is terminal.
	SetRunStatus(ctx context.Context, runID string, status RunStatus) (*WorkflowRun, error)

	// GetRun returns the run by id.
	GetRun(ctx context.Context, runID string) (*WorkflowRun, error)

	// Log returns the run's append-only execution log, oldest first.
	Log(ctx context.Context, runID string) ([]RunLogEntry, error)
}
