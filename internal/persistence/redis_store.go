package persistence

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/juhoh/flowline/pkg/api"
)

// RedisRunStore is a RunStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>run:<id>              => gob-encoded redisRunPayload
//	<prefix>idx:all               => SET of all run IDs
//	<prefix>idx:wf:<workflow>     => SET of run IDs for a given workflow
//	<prefix>idx:status:<status>   => SET of run IDs for a given status
//
// The indexes are best-effort; they are always updated on Save/Update, and
// ListRuns filters on the decoded payload so stale index entries are
// harmless.
type RedisRunStore struct {
	client *redis.Client
	prefix string
}

var _ RunStore = (*RedisRunStore)(nil)

type redisRunPayload struct {
	ID             string
	WorkflowID     string
	WorkspaceID    string
	Status         string
	StartedAt      int64
	EndedAt        int64 // zero when the run has not ended
	TriggerType    string
	TriggerPayload []byte
	StepExecutions []byte
}

// NewRedisRunStore creates a RedisRunStore.
// prefix is optional but recommended (e.g. "flowline:").
func NewRedisRunStore(client *redis.Client, prefix string) *RedisRunStore {
	if prefix == "" {
		prefix = "flowline:"
	}
	return &RedisRunStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisRunStore) keyRun(id string) string {
	return s.prefix + "run:" + id
}

func (s *RedisRunStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisRunStore) keyWorkflow(id string) string {
	return s.prefix + "idx:wf:" + id
}

func (s *RedisRunStore) keyStatus(status api.RunStatus) string {
	return s.prefix + "idx:status:" + string(status)
}

func encodeRedisRun(run *api.WorkflowRun) ([]byte, error) {
	payloadBytes, err := EncodeValue(run.TriggerPayload)
	if err != nil {
		return nil, err
	}
	statesBytes, err := encodeStepStates(run.StepExecutions)
	if err != nil {
		return nil, err
	}

	payload := redisRunPayload{
		ID:             run.ID,
		WorkflowID:     run.WorkflowID,
		WorkspaceID:    run.WorkspaceID,
		Status:         string(run.Status),
		StartedAt:      run.StartedAt.UnixNano(),
		TriggerType:    string(run.TriggerType),
		TriggerPayload: payloadBytes,
		StepExecutions: statesBytes,
	}
	if run.EndedAt != nil {
		payload.EndedAt = run.EndedAt.UnixNano()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRedisRun(data []byte) (*api.WorkflowRun, error) {
	if len(data) == 0 {
		return nil, ErrRunNotFound
	}
	var payload redisRunPayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, err
	}

	triggerPayload, err := DecodeValue[map[string]any](payload.TriggerPayload)
	if err != nil {
		return nil, err
	}
	states, err := decodeStepStates(payload.StepExecutions)
	if err != nil {
		return nil, err
	}

	run := &api.WorkflowRun{
		ID:             payload.ID,
		WorkflowID:     payload.WorkflowID,
		WorkspaceID:    payload.WorkspaceID,
		Status:         api.RunStatus(payload.Status),
		StartedAt:      time.Unix(0, payload.StartedAt),
		TriggerType:    api.EventType(payload.TriggerType),
		TriggerPayload: triggerPayload,
		StepExecutions: states,
	}
	if payload.EndedAt != 0 {
		t := time.Unix(0, payload.EndedAt)
		run.EndedAt = &t
	}
	return run, nil
}

func (s *RedisRunStore) SaveRun(ctx context.Context, run *api.WorkflowRun) error {
	data, err := encodeRedisRun(run)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.keyRun(run.ID), data, 0).Err(); err != nil {
		return err
	}

	// Update indexes (best-effort; index failures are not fatal).
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.keyAll(), run.ID)
	pipe.SAdd(ctx, s.keyWorkflow(run.WorkflowID), run.ID)
	pipe.SAdd(ctx, s.keyStatus(run.Status), run.ID)
	_, _ = pipe.Exec(ctx)

	return nil
}

func (s *RedisRunStore) UpdateRun(ctx context.Context, run *api.WorkflowRun) error {
	exists, err := s.client.Exists(ctx, s.keyRun(run.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrRunNotFound
	}

	data, err := encodeRedisRun(run)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.keyRun(run.ID), data, 0).Err(); err != nil {
		return err
	}

	// Re-add to indexes; stale status entries may remain if the status
	// changed, but ListRuns filters by payload.
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.keyAll(), run.ID)
	pipe.SAdd(ctx, s.keyWorkflow(run.WorkflowID), run.ID)
	pipe.SAdd(ctx, s.keyStatus(run.Status), run.ID)
	_, _ = pipe.Exec(ctx)

	return nil
}

func (s *RedisRunStore) GetRun(ctx context.Context, id string) (*api.WorkflowRun, error) {
	data, err := s.client.Get(ctx, s.keyRun(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return decodeRedisRun(data)
}

func (s *RedisRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.WorkflowRun, error) {
	var ids []string
	var err error

	switch {
	case filter.WorkflowID != "" && filter.Status != "":
		ids, err = s.client.SInter(ctx,
			s.keyWorkflow(filter.WorkflowID),
			s.keyStatus(filter.Status),
		).Result()
	case filter.WorkflowID != "":
		ids, err = s.client.SMembers(ctx, s.keyWorkflow(filter.WorkflowID)).Result()
	case filter.Status != "":
		ids, err = s.client.SMembers(ctx, s.keyStatus(filter.Status)).Result()
	default:
		ids, err = s.client.SMembers(ctx, s.keyAll()).Result()
	}

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*api.WorkflowRun{}, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return []*api.WorkflowRun{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyRun(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var runs []*api.WorkflowRun
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		run, err := decodeRedisRun(data)
		if err != nil {
			return nil, err
		}
		// Stale index entries: re-check against the payload.
		if filter.WorkflowID != "" && run.WorkflowID != filter.WorkflowID {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		runs = append(runs, run)
	}

	return runs, nil
}
