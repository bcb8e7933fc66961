// Package bus defines the event-bus boundary consumed by the subscription
// registry, plus an in-process implementation for tests and local runs.
//
// A bus scopes delivery by event type and workspace only; it never applies
// filter expressions. Fine-grained filtering is always re-applied by the
// consumer.
package bus

import (
	"context"

	"github.com/juhoh/flowline/pkg/api"
)

// Handler is invoked for each delivered event.
type Handler func(ctx context.Context, ev api.Event)

// Handle identifies one live bus subscription so it can be removed later.
type Handle string

// EventBus is the external bus consumed by the registry. Implementations
// deliver every event of the subscribed type within the workspace scope;
// delivery guarantees (ordering, at-least-once) are the bus's concern.
type EventBus interface {
	// Subscribe registers a handler for events of the given type scoped to
	// the workspace. It returns a handle for Unsubscribe.
	Subscribe(eventType api.EventType, workspaceID string, h Handler) (Handle, error)

	// Unsubscribe removes a prior subscription. Unknown handles are a
	// no-op.
	Unsubscribe(handle Handle) error
}
