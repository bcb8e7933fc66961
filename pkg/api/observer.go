package api

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Observer receives callbacks from the registry and tracker for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay event dispatch or state updates.
type Observer interface {
	// OnEventMatched is called when a delivered event passes a bound
	// subscription's filter, just before the executor is invoked.
	OnEventMatched(ctx context.Context, ev Event, m SubscriptionMatch)

	// OnRunStarted is called once when a run is first persisted.
	OnRunStarted(ctx context.Context, run *WorkflowRun)

	// OnRunFinished is called when a run reaches a terminal status.
	OnRunFinished(ctx context.Context, run *WorkflowRun)

	// OnStepUpdated is called after a step's execution state is merged
	// and written back.
	OnStepUpdated(ctx context.Context, run *WorkflowRun, stepID string, state StepExecutionState)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnEventMatched(ctx context.Context, ev Event, m SubscriptionMatch) {}
func (NoopObserver) OnRunStarted(ctx context.Context, run *WorkflowRun)               {}
func (NoopObserver) OnRunFinished(ctx context.Context, run *WorkflowRun)              {}
func (NoopObserver) OnStepUpdated(ctx context.Context, run *WorkflowRun, stepID string, state StepExecutionState) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnEventMatched(ctx context.Context, ev Event, m SubscriptionMatch) {
	for _, o := range c.observers {
		o.OnEventMatched(ctx, ev, m)
	}
}

func (c *CompositeObserver) OnRunStarted(ctx context.Context, run *WorkflowRun) {
	for _, o := range c.observers {
		o.OnRunStarted(ctx, run)
	}
}

func (c *CompositeObserver) OnRunFinished(ctx context.Context, run *WorkflowRun) {
	for _, o := range c.observers {
		o.OnRunFinished(ctx, run)
	}
}

func (c *CompositeObserver) OnStepUpdated(ctx context.Context, run *WorkflowRun, stepID string, state StepExecutionState) {
	for _, o := range c.observers {
		o.OnStepUpdated(ctx, run, stepID, state)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs subscription / run / step
// lifecycle events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnEventMatched(ctx context.Context, ev Event, m SubscriptionMatch) {
	o.Logger.InfoContext(ctx, "event_matched",
		slog.String("event_type", string(ev.Type)),
		slog.String("workspace_id", m.WorkspaceID),
		slog.String("workflow_id", m.WorkflowID),
		slog.String("subscription_id", m.SubscriptionID),
	)
}

func (o *LoggingObserver) OnRunStarted(ctx context.Context, run *WorkflowRun) {
	o.Logger.InfoContext(ctx, "run_started",
		slog.String("run_id", run.ID),
		slog.String("workflow_id", run.WorkflowID),
		slog.String("trigger_type", string(run.TriggerType)),
	)
}

func (o *LoggingObserver) OnRunFinished(ctx context.Context, run *WorkflowRun) {
	level := slog.LevelInfo
	if run.Status == RunFailed {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "run_finished",
		slog.String("run_id", run.ID),
		slog.String("workflow_id", run.WorkflowID),
		slog.String("status", string(run.Status)),
	)
}

func (o *LoggingObserver) OnStepUpdated(ctx context.Context, run *WorkflowRun, stepID string, state StepExecutionState) {
	level := slog.LevelDebug
	if state.Status == StepFailedExec {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "step_updated",
		slog.String("run_id", run.ID),
		slog.String("workflow_id", run.WorkflowID),
		slog.String("step_id", stepID),
		slog.String("status", string(state.Status)),
		slog.String("error", state.Error),
	)
}

// BasicMetrics collects simple counters for matched events, runs, and steps.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	eventsMatched atomic.Int64
	runsStarted   atomic.Int64
	runsCompleted atomic.Int64
	runsFailed    atomic.Int64
	runsCancelled atomic.Int64
	stepsUpdated  atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	EventsMatched int64
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	RunsCancelled int64
	PendingRuns   int64
	StepsUpdated  int64
}

func (m *BasicMetrics) OnEventMatched(ctx context.Context, ev Event, match SubscriptionMatch) {
	m.eventsMatched.Add(1)
}

func (m *BasicMetrics) OnRunStarted(ctx context.Context, run *WorkflowRun) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunFinished(ctx context.Context, run *WorkflowRun) {
	switch run.Status {
	case RunCompleted:
		m.runsCompleted.Add(1)
	case RunFailed:
		m.runsFailed.Add(1)
	case RunCancelled:
		m.runsCancelled.Add(1)
	}
}

func (m *BasicMetrics) OnStepUpdated(ctx context.Context, run *WorkflowRun, stepID string, state StepExecutionState) {
	m.stepsUpdated.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	failed := m.runsFailed.Load()
	cancelled := m.runsCancelled.Load()

	return BasicMetricsSnapshot{
		EventsMatched: m.eventsMatched.Load(),
		RunsStarted:   started,
		RunsCompleted: completed,
		RunsFailed:    failed,
		RunsCancelled: cancelled,
		PendingRuns:   started - completed - failed - cancelled,
		StepsUpdated:  m.stepsUpdated.Load(),
	}
}
