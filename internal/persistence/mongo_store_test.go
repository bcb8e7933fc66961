package persistence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/juhoh/flowline/internal/testutil"
	"github.com/juhoh/flowline/pkg/api"
)

func newTestMongoStore(t *testing.T) *MongoRunStore {
	t.Helper()

	uri := testutil.GetMongoURI(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect mongo at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("ping mongo: %v", err)
	}

	collName := "runs_" + strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Database("flowline_test").Collection(collName).Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return NewMongoRunStore(client, "flowline_test", collName)
}

func TestMongoRunRoundTrip(t *testing.T) {
	s := newTestMongoStore(t)
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
	if got.TriggerPayload["likes"] != float64(42) {
		t.Fatalf("payload mangled: %v", got.TriggerPayload)
	}
	if got.StepExecutions["s1"].Status != api.StepPending {
		t.Fatalf("step states mangled: %v", got.StepExecutions)
	}
}

func TestMongoRunUpdate(t *testing.T) {
	s := newTestMongoStore(t)
	ctx := context.Background()

	run := newRun("run-1", "wf-1")
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("save: %v", err)
	}

	ended := time.Now()
	run.Status = api.RunFailed
	run.EndedAt = &ended
	if err := s.UpdateRun(ctx, run); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != api.RunFailed || got.EndedAt == nil {
		t.Fatalf("update not persisted: %+v", got)
	}

	ghost := newRun("run-ghost", "wf-1")
	if err := s.UpdateRun(ctx, ghost); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestMongoGetUnknownRun(t *testing.T) {
	s := newTestMongoStore(t)
	if _, err := s.GetRun(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestMongoListRuns(t *testing.T) {
	s := newTestMongoStore(t)
	ctx := context.Background()

	r1 := newRun("run-1", "wf-1")
	r2 := newRun("run-2", "wf-1")
	r2.Status = api.RunCompleted
	r3 := newRun("run-3", "wf-2")
	for _, r := range []*api.WorkflowRun{r1, r2, r3} {
		if err := s.SaveRun(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.ID, err)
		}
	}

	byWF, err := s.ListRuns(ctx, RunFilter{WorkflowID: "wf-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byWF) != 2 {
		t.Fatalf("expected 2 runs for wf-1, got %d", len(byWF))
	}

	byStatus, err := s.ListRuns(ctx, RunFilter{WorkflowID: "wf-1", Status: api.RunCompleted})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].ID != "run-2" {
		t.Fatalf("expected only run-2, got %v", byStatus)
	}
}
