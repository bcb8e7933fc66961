package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/juhoh/flowline/pkg/api"
)

// SQLiteRunStore is a RunStore backed by SQLite. The step-execution map and
// trigger payload are persisted as gob BLOBs; see codec.go.
type SQLiteRunStore struct {
	db *sql.DB
}

var _ RunStore = (*SQLiteRunStore)(nil)

// NewSQLiteRunStore initializes the required schema in the given database
// and returns a new SQLiteRunStore.
func NewSQLiteRunStore(db *sql.DB) (*SQLiteRunStore, error) {
	s := &SQLiteRunStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRunStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_runs (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			workspace_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			trigger_type TEXT NOT NULL,
			trigger_payload BLOB,
			step_executions BLOB
		);
		CREATE INDEX IF NOT EXISTS idx_workflow_runs_workflow
			ON workflow_runs(workflow_id, status);`,
	)
	return err
}

func (s *SQLiteRunStore) SaveRun(ctx context.Context, run *api.WorkflowRun) error {
	payload, states, err := encodeRunBlobs(run)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_runs (id, workflow_id, workspace_id, status, started_at, ended_at, trigger_type, trigger_payload, step_executions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.WorkflowID,
		run.WorkspaceID,
		string(run.Status),
		run.StartedAt.UnixNano(),
		endedAtNanos(run),
		string(run.TriggerType),
		payload,
		states,
	)
	return err
}

func (s *SQLiteRunStore) UpdateRun(ctx context.Context, run *api.WorkflowRun) error {
	payload, states, err := encodeRunBlobs(run)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE workflow_runs
		SET status = ?, ended_at = ?, trigger_payload = ?, step_executions = ?
		WHERE id = ?`,
		string(run.Status),
		endedAtNanos(run),
		payload,
		states,
		run.ID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*api.WorkflowRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, workspace_id, status, started_at, ended_at, trigger_type, trigger_payload, step_executions
		FROM workflow_runs
		WHERE id = ?`,
		id,
	)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (s *SQLiteRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.WorkflowRun, error) {
	query := `
		SELECT id, workflow_id, workspace_id, status, started_at, ended_at, trigger_type, trigger_payload, step_executions
		FROM workflow_runs`
	var args []any
	var clauses []string

	if filter.WorkflowID != "" {
		clauses = append(clauses, "workflow_id = ?")
		args = append(args, filter.WorkflowID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*api.WorkflowRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func encodeRunBlobs(run *api.WorkflowRun) (payload, states []byte, err error) {
	payload, err = EncodeValue(run.TriggerPayload)
	if err != nil {
		return nil, nil, err
	}
	states, err = encodeStepStates(run.StepExecutions)
	if err != nil {
		return nil, nil, err
	}
	return payload, states, nil
}

func endedAtNanos(run *api.WorkflowRun) any {
	if run.EndedAt == nil {
		return nil
	}
	return run.EndedAt.UnixNano()
}

func scanRun(row rowScanner) (*api.WorkflowRun, error) {
	var (
		run         api.WorkflowRun
		status      string
		startedAt   int64
		endedAt     sql.NullInt64
		triggerType string
		payload     []byte
		states      []byte
	)
	if err := row.Scan(&run.ID, &run.WorkflowID, &run.WorkspaceID, &status, &startedAt, &endedAt, &triggerType, &payload, &states); err != nil {
		return nil, err
	}

	run.Status = api.RunStatus(status)
	run.StartedAt = time.Unix(0, startedAt)
	if endedAt.Valid {
		t := time.Unix(0, endedAt.Int64)
		run.EndedAt = &t
	}
	run.TriggerType = api.EventType(triggerType)

	triggerPayload, err := DecodeValue[map[string]any](payload)
	if err != nil {
		return nil, err
	}
	run.TriggerPayload = triggerPayload

	stepStates, err := decodeStepStates(states)
	if err != nil {
		return nil, err
	}
	run.StepExecutions = stepStates

	return &run, nil
}
