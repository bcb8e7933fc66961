package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/juhoh/flowline/internal/testutil"
	"github.com/juhoh/flowline/pkg/api"
)

func newTestRedisStore(t *testing.T) *RedisRunStore {
	t.Helper()

	addr := testutil.GetRedisAddress(t)
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping redis at %s: %v", addr, err)
	}

	prefix := "flowline-test:" + t.Name() + ":"
	t.Cleanup(func() {
		ctx := context.Background()
		iter := client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			_ = client.Del(ctx, iter.Val()).Err()
		}
	})

	return NewRedisRunStore(client, prefix)
}

func TestRedisRunRoundTrip(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	run := newRun("run-1", "wf-1")
	run.TriggerPayload = map[string]any{"platform": "twitter", "likes": float64(42)}

	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != api.RunPending || got.WorkspaceID != "ws-1" {
		t.Fatalf("fields mangled: %+v", got)
	}
	if got.EndedAt != nil {
		t.Fatalf("EndedAt should be nil for a pending run")
	}
	if got.TriggerPayload["likes"] != float64(42) {
		t.Fatalf("payload mangled: %v", got.TriggerPayload)
	}
	if got.StepExecutions["s1"].Status != api.StepPending {
		t.Fatalf("step states mangled: %v", got.StepExecutions)
	}
}

func TestRedisRunUpdate(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	run := newRun("run-1", "wf-1")
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("save: %v", err)
	}

	ended := time.Now()
	run.Status = api.RunCompleted
	run.EndedAt = &ended
	run.StepExecutions["s1"] = api.StepExecutionState{StepID: "s1", Status: api.StepCompleted}
	if err := s.UpdateRun(ctx, run); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != api.RunCompleted || got.EndedAt == nil {
		t.Fatalf("update not persisted: %+v", got)
	}

	ghost := newRun("run-ghost", "wf-1")
	if err := s.UpdateRun(ctx, ghost); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRedisGetUnknownRun(t *testing.T) {
	s := newTestRedisStore(t)
	if _, err := s.GetRun(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRedisListRunsFiltersStaleIndexes(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	r1 := newRun("run-1", "wf-1")
	r2 := newRun("run-2", "wf-2")
	for _, r := range []*api.WorkflowRun{r1, r2} {
		if err := s.SaveRun(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.ID, err)
		}
	}

	// Moving run-1 to COMPLETED leaves it in the PENDING index set; the
	// payload re-check must keep it out of PENDING results.
	r1.Status = api.RunCompleted
	if err := s.UpdateRun(ctx, r1); err != nil {
		t.Fatalf("update: %v", err)
	}

	pending, err := s.ListRuns(ctx, RunFilter{Status: api.RunPending})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "run-2" {
		t.Fatalf("expected only run-2 pending, got %v", pending)
	}

	completed, err := s.ListRuns(ctx, RunFilter{WorkflowID: "wf-1", Status: api.RunCompleted})
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != "run-1" {
		t.Fatalf("expected only run-1 completed, got %v", completed)
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(all))
	}
}
