// Package registry implements the event subscription registry: CRUD over
// subscriptions gated by workflow ownership, event-to-subscription matching,
// and the binding of active subscriptions to the event bus.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/juhoh/flowline/internal/persistence"
	"github.com/juhoh/flowline/pkg/api"
	"github.com/juhoh/flowline/pkg/bus"
	"github.com/juhoh/flowline/pkg/filter"
)

// SubscriptionRegistry implements api.SubscriptionService with
// dependency-injected storage and bus.
//
// It owns one piece of process-wide mutable state: the map from workflow id
// to the bus handles created for it. The map exists only so re-registration
// and shutdown can find and remove handles created earlier; it is not a
// reflection of the persisted subscription records. The mutex protects map
// integrity only — concurrent Register/Unregister calls for the same
// workflow id are not serialized and callers must not issue them.
type SubscriptionRegistry struct {
	store    persistence.Persistence
	bus      bus.EventBus
	observer api.Observer

	mu      sync.Mutex
	handles map[string][]bus.Handle
}

var _ api.SubscriptionService = (*SubscriptionRegistry)(nil)

// New creates a SubscriptionRegistry. A nil observer defaults to
// api.NoopObserver.
func New(store persistence.Persistence, eventBus bus.EventBus, observer api.Observer) *SubscriptionRegistry {
	if observer == nil {
		observer = api.NoopObserver{}
	}
	return &SubscriptionRegistry{
		store:    store,
		bus:      eventBus,
		observer: observer,
		handles:  make(map[string][]bus.Handle),
	}
}

func (r *SubscriptionRegistry) Create(ctx context.Context, workflowID, workspaceID string, p api.CreateSubscriptionParams) (*api.EventSubscription, error) {
	if _, err := r.store.Workflows.GetWorkflow(ctx, workflowID, workspaceID); err != nil {
		return nil, fmt.Errorf("create subscription for workflow %s: %w", workflowID, err)
	}

	now := time.Now()
	sub := &api.EventSubscription{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		EventType:  p.EventType,
		Filter:     p.Filter,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := r.store.Subscriptions.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription for workflow %s, event %s: %w", workflowID, p.EventType, err)
	}
	return sub, nil
}

func (r *SubscriptionRegistry) Update(ctx context.Context, subscriptionID, workflowID, workspaceID string, p api.UpdateSubscriptionParams) (*api.EventSubscription, error) {
	if _, err := r.store.Workflows.GetWorkflow(ctx, workflowID, workspaceID); err != nil {
		return nil, fmt.Errorf("update subscription %s: %w", subscriptionID, err)
	}

	sub, err := r.store.Subscriptions.GetSubscription(ctx, subscriptionID, workflowID)
	if err != nil {
		return nil, fmt.Errorf("update subscription %s: %w", subscriptionID, err)
	}

	if p.Filter != nil {
		sub.Filter = p.Filter
	}
	if p.IsActive != nil {
		sub.IsActive = *p.IsActive
	}
	sub.UpdatedAt = time.Now()

	if err := r.store.Subscriptions.UpdateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("update subscription %s: %w", subscriptionID, err)
	}
	return sub, nil
}

func (r *SubscriptionRegistry) Delete(ctx context.Context, subscriptionID, workflowID, workspaceID string) error {
	if _, err := r.store.Workflows.GetWorkflow(ctx, workflowID, workspaceID); err != nil {
		return fmt.Errorf("delete subscription %s: %w", subscriptionID, err)
	}
	if err := r.store.Subscriptions.DeleteSubscription(ctx, subscriptionID, workflowID); err != nil {
		return fmt.Errorf("delete subscription %s: %w", subscriptionID, err)
	}
	return nil
}

func (r *SubscriptionRegistry) List(ctx context.Context, workflowID, workspaceID string) ([]*api.EventSubscription, error) {
	if _, err := r.store.Workflows.GetWorkflow(ctx, workflowID, workspaceID); err != nil {
		return nil, fmt.Errorf("list subscriptions for workflow %s: %w", workflowID, err)
	}
	return r.store.Subscriptions.ListSubscriptions(ctx, workflowID)
}

func (r *SubscriptionRegistry) FindMatching(ctx context.Context, ev api.Event) ([]api.SubscriptionMatch, error) {
	subs, err := r.store.Subscriptions.ListActiveByEventType(ctx, ev.Type)
	if err != nil {
		return nil, err
	}

	var matches []api.SubscriptionMatch
	for _, sub := range subs {
		wf, err := r.store.Workflows.GetWorkflowByID(ctx, sub.WorkflowID)
		if err != nil {
			if errors.Is(err, persistence.ErrWorkflowNotFound) {
				continue
			}
			return nil, err
		}
		if wf.Status != api.WorkflowActive || wf.WorkspaceID != ev.WorkspaceID {
			continue
		}
		if !filter.Matches(ev.Data, sub.Filter) {
			continue
		}
		matches = append(matches, api.SubscriptionMatch{
			SubscriptionID: sub.ID,
			WorkflowID:     sub.WorkflowID,
			WorkspaceID:    wf.WorkspaceID,
		})
	}
	return matches, nil
}

func (r *SubscriptionRegistry) Register(ctx context.Context, workflowID, workspaceID string, exec api.Executor) error {
	// Unregister-before-register keeps re-registration idempotent: a
	// second Register never leaves two handlers firing for one event.
	if err := r.Unregister(workflowID); err != nil {
		return fmt.Errorf("register workflow %s: unbind previous handles: %w", workflowID, err)
	}

	subs, err := r.store.Subscriptions.ListSubscriptions(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("register workflow %s: %w", workflowID, err)
	}

	var handles []bus.Handle
	for _, sub := range subs {
		if !sub.IsActive {
			continue
		}

		sub := sub
		handler := func(hctx context.Context, ev api.Event) {
			// The bus scopes by event type and workspace only; the
			// filter is always re-checked here.
			if !filter.Matches(ev.Data, sub.Filter) {
				return
			}
			match := api.SubscriptionMatch{
				SubscriptionID: sub.ID,
				WorkflowID:     workflowID,
				WorkspaceID:    workspaceID,
			}
			r.observer.OnEventMatched(hctx, ev, match)

			// Executor failures are the executor's to record; a bus
			// handler has nowhere to return them.
			_ = exec(hctx, workflowID, ev, sub.ID)
		}

		handle, err := r.bus.Subscribe(sub.EventType, workspaceID, handler)
		if err != nil {
			// A failed subscribe aborts the whole registration;
			// unwind anything bound so far.
			for _, h := range handles {
				_ = r.bus.Unsubscribe(h)
			}
			return fmt.Errorf("register workflow %s: subscribe %s: %w", workflowID, sub.EventType, err)
		}
		handles = append(handles, handle)
	}

	if len(handles) > 0 {
		r.mu.Lock()
		r.handles[workflowID] = handles
		r.mu.Unlock()
	}
	return nil
}

func (r *SubscriptionRegistry) Unregister(workflowID string) error {
	r.mu.Lock()
	handles := r.handles[workflowID]
	delete(r.handles, workflowID)
	r.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := r.bus.Unsubscribe(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *SubscriptionRegistry) Bootstrap(ctx context.Context, exec api.Executor) error {
	subs, err := r.store.Subscriptions.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap subscriptions: %w", err)
	}

	seen := make(map[string]bool)
	var errs []error
	for _, sub := range subs {
		if seen[sub.WorkflowID] {
			continue
		}
		seen[sub.WorkflowID] = true

		wf, err := r.store.Workflows.GetWorkflowByID(ctx, sub.WorkflowID)
		if err != nil {
			if errors.Is(err, persistence.ErrWorkflowNotFound) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		if wf.Status != api.WorkflowActive {
			continue
		}

		if err := r.Register(ctx, wf.ID, wf.WorkspaceID, exec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *SubscriptionRegistry) Reset() error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := r.Unregister(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
