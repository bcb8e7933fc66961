package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/juhoh/flowline/pkg/api"
)

// InMemoryStore is a goroutine-safe implementation of every store interface,
// backed by maps. It is the default backend for tests and the local runner,
// and holds workflow/version records even when subscriptions and runs live
// in a durable backend.
type InMemoryStore struct {
	mu sync.RWMutex

	workflows map[string]api.Workflow
	versions  map[string][]api.WorkflowVersion // workflow id -> versions
	subs      map[string]api.EventSubscription // subscription id -> record
	subSeq    map[string]int64                 // subscription id -> insertion order
	nextSeq   int64
	runs      map[string]api.WorkflowRun
	log       map[string][]api.RunLogEntry // run id -> entries
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		workflows: make(map[string]api.Workflow),
		versions:  make(map[string][]api.WorkflowVersion),
		subs:      make(map[string]api.EventSubscription),
		subSeq:    make(map[string]int64),
		runs:      make(map[string]api.WorkflowRun),
		log:       make(map[string][]api.RunLogEntry),
	}
}

var (
	_ WorkflowStore     = (*InMemoryStore)(nil)
	_ SubscriptionStore = (*InMemoryStore)(nil)
	_ RunStore          = (*InMemoryStore)(nil)
	_ RunLogStore       = (*InMemoryStore)(nil)
)

func (s *InMemoryStore) SaveWorkflow(ctx context.Context, w *api.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflows[w.ID] = *w
	return nil
}

func (s *InMemoryStore) GetWorkflow(ctx context.Context, workflowID, workspaceID string) (*api.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workflows[workflowID]
	if !ok || w.WorkspaceID != workspaceID {
		return nil, ErrWorkflowNotFound
	}
	out := w
	return &out, nil
}

func (s *InMemoryStore) GetWorkflowByID(ctx context.Context, workflowID string) (*api.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workflows[workflowID]
	if !ok {
		return nil, ErrWorkflowNotFound
	}
	out := w
	return &out, nil
}

func (s *InMemoryStore) SaveVersion(ctx context.Context, v *api.WorkflowVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.versions[v.WorkflowID]
	for i := range list {
		if list[i].Number == v.Number {
			list[i] = *v
			return nil
		}
	}
	s.versions[v.WorkflowID] = append(list, *v)
	return nil
}

func (s *InMemoryStore) GetPublishedVersion(ctx context.Context, workflowID string) (*api.WorkflowVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions[workflowID] {
		if v.IsPublished {
			out := v
			return &out, nil
		}
	}
	return nil, ErrVersionNotFound
}

func (s *InMemoryStore) PublishVersion(ctx context.Context, workflowID string, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.versions[workflowID]
	target := -1
	for i := range list {
		if list[i].Number == number {
			target = i
			break
		}
	}
	if target < 0 {
		return ErrVersionNotFound
	}

	// Single published version per workflow: flipping the target also
	// unpublishes every sibling under the same lock.
	for i := range list {
		list[i].IsPublished = i == target
	}
	return nil
}

func (s *InMemoryStore) CreateSubscription(ctx context.Context, sub *api.EventSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.subs {
		if existing.WorkflowID == sub.WorkflowID && existing.EventType == sub.EventType {
			return ErrSubscriptionExists
		}
	}

	s.nextSeq++
	s.subs[sub.ID] = cloneSubscription(sub)
	s.subSeq[sub.ID] = s.nextSeq
	return nil
}

func (s *InMemoryStore) UpdateSubscription(ctx context.Context, sub *api.EventSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.subs[sub.ID]
	if !ok || existing.WorkflowID != sub.WorkflowID {
		return ErrSubscriptionNotFound
	}

	s.subs[sub.ID] = cloneSubscription(sub)
	return nil
}

func (s *InMemoryStore) GetSubscription(ctx context.Context, subscriptionID, workflowID string) (*api.EventSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[subscriptionID]
	if !ok || sub.WorkflowID != workflowID {
		return nil, ErrSubscriptionNotFound
	}
	out := cloneSubscription(&sub)
	return &out, nil
}

func (s *InMemoryStore) DeleteSubscription(ctx context.Context, subscriptionID, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[subscriptionID]
	if !ok || sub.WorkflowID != workflowID {
		return ErrSubscriptionNotFound
	}

	delete(s.subs, subscriptionID)
	delete(s.subSeq, subscriptionID)
	return nil
}

func (s *InMemoryStore) ListSubscriptions(ctx context.Context, workflowID string) ([]*api.EventSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectSubs(func(sub *api.EventSubscription) bool {
		return sub.WorkflowID == workflowID
	}), nil
}

func (s *InMemoryStore) ListActiveByEventType(ctx context.Context, eventType api.EventType) ([]*api.EventSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectSubs(func(sub *api.EventSubscription) bool {
		return sub.IsActive && sub.EventType == eventType
	}), nil
}

func (s *InMemoryStore) ListActive(ctx context.Context) ([]*api.EventSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectSubs(func(sub *api.EventSubscription) bool {
		return sub.IsActive
	}), nil
}

// collectSubs returns matching subscriptions in insertion order, which
// tracks creation time. Callers must hold at least a read lock.
func (s *InMemoryStore) collectSubs(match func(*api.EventSubscription) bool) []*api.EventSubscription {
	var out []*api.EventSubscription
	for id := range s.subs {
		sub := s.subs[id]
		if match(&sub) {
			copied := cloneSubscription(&sub)
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.subSeq[out[i].ID] < s.subSeq[out[j].ID]
	})
	return out
}

func (s *InMemoryStore) SaveRun(ctx context.Context, run *api.WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *InMemoryStore) UpdateRun(ctx context.Context, run *api.WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return ErrRunNotFound
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *InMemoryStore) GetRun(ctx context.Context, id string) (*api.WorkflowRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	out := cloneRun(&run)
	return &out, nil
}

func (s *InMemoryStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.WorkflowRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*api.WorkflowRun
	for id := range s.runs {
		run := s.runs[id]
		if filter.WorkflowID != "" && run.WorkflowID != filter.WorkflowID {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		copied := cloneRun(&run)
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemoryStore) AppendEntry(ctx context.Context, e api.RunLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log[e.RunID] = append(s.log[e.RunID], e)
	return nil
}

func (s *InMemoryStore) ListEntries(ctx context.Context, runID string) ([]api.RunLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.log[runID]
	out := make([]api.RunLogEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// cloneSubscription and cloneRun detach stored records from caller-held
// references so later mutations by either side are invisible to the other.

func cloneSubscription(sub *api.EventSubscription) api.EventSubscription {
	out := *sub
	if sub.Filter != nil {
		out.Filter = make(map[string]any, len(sub.Filter))
		for k, v := range sub.Filter {
			out.Filter[k] = v
		}
	}
	return out
}

func cloneRun(run *api.WorkflowRun) api.WorkflowRun {
	out := *run
	if run.StepExecutions != nil {
		out.StepExecutions = make(map[string]api.StepExecutionState, len(run.StepExecutions))
		for k, v := range run.StepExecutions {
			out.StepExecutions[k] = v
		}
	}
	if run.TriggerPayload != nil {
		out.TriggerPayload = make(map[string]any, len(run.TriggerPayload))
		for k, v := range run.TriggerPayload {
			out.TriggerPayload[k] = v
		}
	}
	if run.EndedAt != nil {
		ended := *run.EndedAt
		out.EndedAt = &ended
	}
	return out
}
