package bus

import (
	"context"
	"strconv"
	"sync"

	"github.com/juhoh/flowline/pkg/api"
)

// InMemoryBus is a goroutine-safe, in-process EventBus. Publish delivers
// events synchronously to every matching handler, in subscription order.
//
// It is intended for tests and single-process deployments; it makes no
// durability or redelivery guarantees.
type InMemoryBus struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[Handle]*memorySubscription
}

type memorySubscription struct {
	eventType   api.EventType
	workspaceID string
	handler     Handler
	seq         int64
}

// NewInMemoryBus creates an empty InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		subs: make(map[Handle]*memorySubscription),
	}
}

var _ EventBus = (*InMemoryBus)(nil)

func (b *InMemoryBus) Subscribe(eventType api.EventType, workspaceID string, h Handler) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	handle := Handle("bus-" + strconv.FormatInt(b.nextID, 10))
	b.subs[handle] = &memorySubscription{
		eventType:   eventType,
		workspaceID: workspaceID,
		handler:     h,
		seq:         b.nextID,
	}
	return handle, nil
}

func (b *InMemoryBus) Unsubscribe(handle Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs, handle)
	return nil
}

// Publish delivers the event to every subscription matching its type and
// workspace. Handlers run on the caller's goroutine.
func (b *InMemoryBus) Publish(ctx context.Context, ev api.Event) {
	b.mu.RLock()
	matched := make([]*memorySubscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.eventType == ev.Type && sub.workspaceID == ev.WorkspaceID {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	// Stable delivery order keeps tests deterministic.
	for i := 1; i < len(matched); i++ {
		for j := i; j > 0 && matched[j].seq < matched[j-1].seq; j-- {
			matched[j], matched[j-1] = matched[j-1], matched[j]
		}
	}

	for _, sub := range matched {
		sub.handler(ctx, ev)
	}
}

// SubscriptionCount returns the number of live subscriptions. Primarily
// useful in tests asserting register/unregister bookkeeping.
func (b *InMemoryBus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
