package flowline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/juhoh/flowline/pkg/api"
	"github.com/juhoh/flowline/pkg/bus"
)

// LocalRunner bundles an in-memory Backend and an in-process event bus to
// provide a simple single-process setup for development and tests.
//
// Typical usage:
//
//	runner := flowline.NewLocalRunner()
//	wf := runner.SeedWorkflow(ctx, "ws-1", "auto-reply", flowline.WorkflowActive)
//
//	_, _ = runner.Backend.Subscriptions.Create(ctx, wf.ID, wf.WorkspaceID,
//	    flowline.CreateSubscriptionParams{EventType: flowline.EventCommentReceived})
//	_ = runner.Backend.Subscriptions.Register(ctx, wf.ID, wf.WorkspaceID, executor)
//
//	runner.Publish(ctx, flowline.EventCommentReceived, wf.WorkspaceID,
//	    map[string]any{"platform": "twitter"})
//
// Events are delivered synchronously on the caller's goroutine; when Publish
// returns, every matching executor invocation has finished.
type LocalRunner struct {
	// Backend is the in-memory backend used by this runner.
	Backend *Backend

	// Bus is the in-process event bus the backend's registry binds to.
	Bus *bus.InMemoryBus
}

// NewLocalRunner constructs a LocalRunner backed by an in-memory store and
// an in-process bus.
func NewLocalRunner() *LocalRunner {
	return NewLocalRunnerWithObserver(nil)
}

// NewLocalRunnerWithObserver is NewLocalRunner with an Observer.
func NewLocalRunnerWithObserver(observer Observer) *LocalRunner {
	b := bus.NewInMemoryBus()
	return &LocalRunner{
		Backend: NewInMemoryBackendWithObserver(b, observer),
		Bus:     b,
	}
}

// SeedWorkflow stores a workflow record with a generated id, for tests and
// local development. The real authoring flow lives outside this core.
func (r *LocalRunner) SeedWorkflow(ctx context.Context, workspaceID, name string, status WorkflowStatus) *Workflow {
	now := time.Now()
	wf := &api.Workflow{
		ID:          "wf-" + uuid.NewString(),
		Name:        name,
		Status:      status,
		WorkspaceID: workspaceID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// The in-memory store never fails a save.
	_ = r.Backend.Workflows.SaveWorkflow(ctx, wf)
	return wf
}

// Publish delivers an event to every bound subscription of the workspace.
func (r *LocalRunner) Publish(ctx context.Context, eventType EventType, workspaceID string, data map[string]any) {
	r.Bus.Publish(ctx, api.Event{
		Type:        eventType,
		WorkspaceID: workspaceID,
		Timestamp:   time.Now(),
		Data:        data,
	})
}

// Shutdown unbinds every registered workflow from the bus.
func (r *LocalRunner) Shutdown() error {
	return r.Backend.Subscriptions.Reset()
}
