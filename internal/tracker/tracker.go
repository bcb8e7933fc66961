// Package tracker implements the execution state tracker: per-run step
// execution state created at run start and advanced by the external executor
// until the run reaches a terminal status.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/juhoh/flowline/internal/persistence"
	"github.com/juhoh/flowline/pkg/api"
	"github.com/juhoh/flowline/pkg/validate"
)

// InitializeStepExecutions produces one PENDING state entry per step. It is
// pure; the caller persists the result as part of creating a new run.
func InitializeStepExecutions(steps []api.WorkflowStep) map[string]api.StepExecutionState {
	out := make(map[string]api.StepExecutionState, len(steps))
	for i := range steps {
		out[steps[i].ID] = api.StepExecutionState{
			StepID: steps[i].ID,
			Status: api.StepPending,
		}
	}
	return out
}

// Tracker implements api.RunTracker on top of an injected run store and
// run-log store.
type Tracker struct {
	runs     persistence.RunStore
	log      persistence.RunLogStore
	observer api.Observer
}

var _ api.RunTracker = (*Tracker)(nil)

// New creates a Tracker. A nil log store defaults to NoopRunLogStore; a nil
// observer defaults to api.NoopObserver.
func New(runs persistence.RunStore, log persistence.RunLogStore, observer api.Observer) *Tracker {
	if log == nil {
		log = persistence.NoopRunLogStore{}
	}
	if observer == nil {
		observer = api.NoopObserver{}
	}
	return &Tracker{
		runs:     runs,
		log:      log,
		observer: observer,
	}
}

func (t *Tracker) CreateRun(ctx context.Context, p api.CreateRunParams) (*api.WorkflowRun, error) {
	run := &api.WorkflowRun{
		ID:             "run-" + uuid.NewString(),
		WorkflowID:     p.WorkflowID,
		WorkspaceID:    p.WorkspaceID,
		Status:         api.RunPending,
		StartedAt:      time.Now(),
		TriggerType:    p.TriggerType,
		TriggerPayload: p.TriggerPayload,
		StepExecutions: InitializeStepExecutions(validate.Flatten(p.Steps)),
	}

	if err := t.runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run for workflow %s: %w", p.WorkflowID, err)
	}

	t.appendLog(ctx, api.RunLogEntry{
		RunID: run.ID,
		Type:  api.LogRunCreated,
	})
	t.observer.OnRunStarted(ctx, run)

	return run, nil
}

func (t *Tracker) UpdateStepExecution(ctx context.Context, runID, stepID string, upd api.StepExecutionUpdate) (api.StepExecutionState, error) {
	// Whole-map read-modify-write: two concurrent updates to different
	// steps of the same run can lose one writer's change. See
	// api.RunTracker.
	run, err := t.runs.GetRun(ctx, runID)
	if err != nil {
		return api.StepExecutionState{}, fmt.Errorf("update step %s of run %s: %w", stepID, runID, err)
	}

	if run.StepExecutions == nil {
		run.StepExecutions = make(map[string]api.StepExecutionState)
	}
	state, ok := run.StepExecutions[stepID]
	if !ok {
		state = api.StepExecutionState{StepID: stepID, Status: api.StepPending}
	}

	if upd.Status != nil {
		state.Status = *upd.Status
	}
	if upd.Output != nil {
		state.Output = upd.Output
	}
	if upd.Error != nil {
		state.Error = *upd.Error
	}
	run.StepExecutions[stepID] = state

	if err := t.runs.UpdateRun(ctx, run); err != nil {
		return api.StepExecutionState{}, fmt.Errorf("update step %s of run %s: %w", stepID, runID, err)
	}

	if upd.Status != nil {
		if logType, ok := stepLogType(state.Status); ok {
			t.appendLog(ctx, api.RunLogEntry{
				RunID:  runID,
				Type:   logType,
				StepID: stepID,
				Detail: state.Error,
			})
		}
	}
	t.observer.OnStepUpdated(ctx, run, stepID, state)

	return state, nil
}

func (t *Tracker) GetStepExecutions(ctx context.Context, runID string) (map[string]api.StepExecutionState, error) {
	run, err := t.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get step executions of run %s: %w", runID, err)
	}
	if run.StepExecutions == nil {
		return map[string]api.StepExecutionState{}, nil
	}
	return run.StepExecutions, nil
}

func (t *Tracker) SetRunStatus(ctx context.Context, runID string, status api.RunStatus) (*api.WorkflowRun, error) {
	run, err := t.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("set status of run %s: %w", runID, err)
	}

	run.Status = status
	if status.IsTerminal() && run.EndedAt == nil {
		now := time.Now()
		run.EndedAt = &now
	}

	if err := t.runs.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("set status of run %s: %w", runID, err)
	}

	if logType, ok := runLogType(status); ok {
		t.appendLog(ctx, api.RunLogEntry{
			RunID: runID,
			Type:  logType,
		})
	}
	if status.IsTerminal() {
		t.observer.OnRunFinished(ctx, run)
	}

	return run, nil
}

func (t *Tracker) GetRun(ctx context.Context, runID string) (*api.WorkflowRun, error) {
	run, err := t.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

func (t *Tracker) Log(ctx context.Context, runID string) ([]api.RunLogEntry, error) {
	if _, err := t.runs.GetRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("get log of run %s: %w", runID, err)
	}
	return t.log.ListEntries(ctx, runID)
}

// appendLog records a history entry; log failures never fail the operation
// that produced them.
func (t *Tracker) appendLog(ctx context.Context, e api.RunLogEntry) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_ = t.log.AppendEntry(ctx, e)
}

func stepLogType(status api.StepStatus) (api.RunLogType, bool) {
	switch status {
	case api.StepRunning:
		return api.LogStepRunning, true
	case api.StepCompleted:
		return api.LogStepCompleted, true
	case api.StepFailedExec:
		return api.LogStepFailed, true
	case api.StepSkipped:
		return api.LogStepSkipped, true
	default:
		return "", false
	}
}

func runLogType(status api.RunStatus) (api.RunLogType, bool) {
	switch status {
	case api.RunRunning:
		return api.LogRunRunning, true
	case api.RunCompleted:
		return api.LogRunCompleted, true
	case api.RunFailed:
		return api.LogRunFailed, true
	case api.RunCancelled:
		return api.LogRunCancelled, true
	default:
		return "", false
	}
}
