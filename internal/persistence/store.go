package persistence

import (
	"context"
	"errors"

	"github.com/juhoh/flowline/pkg/api"
)

var (
	// ErrWorkflowNotFound is returned when a workflow does not exist or
	// does not belong to the given workspace.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrVersionNotFound is returned when a workflow version is not found.
	ErrVersionNotFound = errors.New("workflow version not found")

	// ErrSubscriptionNotFound is returned when an event subscription is
	// not found under the given workflow.
	ErrSubscriptionNotFound = errors.New("event subscription not found")

	// ErrSubscriptionExists is returned when a subscription for the same
	// (workflow, event type) pair already exists.
	ErrSubscriptionExists = errors.New("event subscription already exists")

	// ErrRunNotFound is returned when a workflow run is not found.
	ErrRunNotFound = errors.New("run not found")
)

// WorkflowStore handles storage of workflows and their versions. The
// authoring flow writes here; the registry reads workflows to gate
// subscription mutations and event matching.
type WorkflowStore interface {
	SaveWorkflow(ctx context.Context, w *api.Workflow) error

	// GetWorkflow returns the workflow only if it belongs to the given
	// workspace.
	GetWorkflow(ctx context.Context, workflowID, workspaceID string) (*api.Workflow, error)

	// GetWorkflowByID returns the workflow regardless of workspace.
	GetWorkflowByID(ctx context.Context, workflowID string) (*api.Workflow, error)

	SaveVersion(ctx context.Context, v *api.WorkflowVersion) error

	// GetPublishedVersion returns the single published version, if any.
	GetPublishedVersion(ctx context.Context, workflowID string) (*api.WorkflowVersion, error)

	// PublishVersion marks the given version number as published and
	// unpublishes every other version of the workflow in the same
	// operation.
	PublishVersion(ctx context.Context, workflowID string, number int) error
}

// SubscriptionStore handles storage of event subscriptions. Uniqueness of
// (workflow id, event type) is the store's responsibility.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub *api.EventSubscription) error
	UpdateSubscription(ctx context.Context, sub *api.EventSubscription) error
	GetSubscription(ctx context.Context, subscriptionID, workflowID string) (*api.EventSubscription, error)
	DeleteSubscription(ctx context.Context, subscriptionID, workflowID string) error

	// ListSubscriptions returns the workflow's subscriptions ordered by
	// creation time ascending.
	ListSubscriptions(ctx context.Context, workflowID string) ([]*api.EventSubscription, error)

	// ListActiveByEventType returns every active subscription for the
	// event type, across workflows.
	ListActiveByEventType(ctx context.Context, eventType api.EventType) ([]*api.EventSubscription, error)

	// ListActive returns every active subscription.
	ListActive(ctx context.Context) ([]*api.EventSubscription, error)
}

// RunFilter is used to select runs from the store.
// Empty string / zero status mean "no filter" for that field.
type RunFilter struct {
	WorkflowID string
	Status     api.RunStatus
}

// RunStore handles storage of workflow runs. UpdateRun writes the whole run
// document, step-execution map included; it carries the read-modify-write
// semantics described on api.RunTracker.
type RunStore interface {
	SaveRun(ctx context.Context, run *api.WorkflowRun) error
	UpdateRun(ctx context.Context, run *api.WorkflowRun) error
	GetRun(ctx context.Context, id string) (*api.WorkflowRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*api.WorkflowRun, error)
}

// RunLogStore is an append-only history store for run execution events.
type RunLogStore interface {
	AppendEntry(ctx context.Context, e api.RunLogEntry) error
	ListEntries(ctx context.Context, runID string) ([]api.RunLogEntry, error)
}

// NoopRunLogStore discards all entries.
type NoopRunLogStore struct{}

func (NoopRunLogStore) AppendEntry(ctx context.Context, e api.RunLogEntry) error { return nil }
func (NoopRunLogStore) ListEntries(ctx context.Context, runID string) ([]api.RunLogEntry, error) {
	return nil, nil
}
