package api

import (
	"context"
	"time"
)

// EventType identifies a known domain event that can trigger workflows.
type EventType string

const (
	EventPostPublished   EventType = "post.published"
	EventPostFailed      EventType = "post.failed"
	EventCommentReceived EventType = "comment.received"
	EventMentionReceived EventType = "mention.received"
	EventMessageReceived EventType = "message.received"
	EventFollowerGained  EventType = "follower.gained"
	EventMetricThreshold EventType = "metric.threshold"
	EventScheduleTick    EventType = "schedule.tick"
)

// Event is a single domain event as delivered by the event bus. Data carries
// the event-specific fields that filter expressions are evaluated against.
type Event struct {
	Type        EventType
	WorkspaceID string
	Timestamp   time.Time
	Data        map[string]any
}

// EventSubscription binds a workflow to one event type, optionally narrowed
// by a filter expression. A workflow has at most one subscription per event
// type.
type EventSubscription struct {
	ID         string
	WorkflowID string
	EventType  EventType

	// Filter is a field-to-condition mapping evaluated against Event.Data.
	// A nil or empty filter matches every event of the subscribed type.
	Filter map[string]any

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubscriptionMatch identifies a subscription whose workflow should be
// triggered for a delivered event.
type SubscriptionMatch struct {
	SubscriptionID string
	WorkflowID     string
	WorkspaceID    string
}

// Executor is the callback invoked when a delivered event passes a bound
// subscription's filter. The executor owns everything that happens next:
// creating a run, walking the plan, and recording progress via RunTracker.
type Executor func(ctx context.Context, workflowID string, ev Event, subscriptionID string) error

// CreateSubscriptionParams are the caller-supplied fields for a new
// subscription.
type CreateSubscriptionParams struct {
	EventType EventType
	Filter    map[string]any
}

// UpdateSubscriptionParams are the mutable fields of a subscription.
// Nil fields are left unchanged.
type UpdateSubscriptionParams struct {
	Filter   map[string]any
	IsActive *bool
}

// SubscriptionService manages event subscriptions and their bindings to the
// event bus.
//
// The CRUD operations verify that the workflow belongs to the given
// workspace before any mutation. Register/Unregister maintain process-wide
// bus-handle state; callers must serialize those two calls for a given
// workflow id.
type SubscriptionService interface {
	// Create adds a subscription for (workflowID, EventType). It fails if
	// the workflow does not belong to the workspace, or if a subscription
	// for that pair already exists.
	Create(ctx context.Context, workflowID, workspaceID string, p CreateSubscriptionParams) (*EventSubscription, error)

	// Update changes the filter and/or active flag of a subscription.
	Update(ctx context.Context, subscriptionID, workflowID, workspaceID string, p UpdateSubscriptionParams) (*EventSubscription, error)

	// Delete removes a subscription.
	Delete(ctx context.Context, subscriptionID, workflowID, workspaceID string) error

	// List returns the workflow's subscriptions ordered by creation time
	// ascending.
	List(ctx context.Context, workflowID, workspaceID string) ([]*EventSubscription, error)

	// FindMatching returns every active subscription whose event type,
	// workspace, and filter all match the event, provided its workflow is
	// ACTIVE.
	FindMatching(ctx context.Context, ev Event) ([]SubscriptionMatch, error)

	// Register binds the workflow's active subscriptions to the event bus,
	// replacing any bindings from a previous Register call for the same
	// workflow. A bus subscribe failure aborts the whole registration and
	// unwinds any handles it already created.
	Register(ctx context.Context, workflowID, workspaceID string, exec Executor) error

	// Unregister removes every bus binding previously created for the
	// workflow. It is a no-op when nothing is registered.
	Unregister(workflowID string) error

	// Bootstrap registers every ACTIVE workflow that has at least one
	// active subscription. Intended to run once at process start.
	Bootstrap(ctx context.Context, exec Executor) error

	// Reset unregisters every workflow currently bound. Intended for
	// graceful shutdown and test isolation.
	Reset() error
}
