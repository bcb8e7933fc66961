package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/juhoh/flowline/pkg/api"
)

// SQLiteRunLogStore stores run execution-log entries in SQLite.
type SQLiteRunLogStore struct {
	db *sql.DB
}

var _ RunLogStore = (*SQLiteRunLogStore)(nil)

func NewSQLiteRunLogStore(db *sql.DB) (*SQLiteRunLogStore, error) {
	s := &SQLiteRunLogStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRunLogStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			step_id TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_run_log_run_id ON run_log(run_id, id);
	`)
	return err
}

func (s *SQLiteRunLogStore) AppendEntry(ctx context.Context, e api.RunLogEntry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_log (run_id, at, type, step_id, detail)
		VALUES (?, ?, ?, ?, ?)`,
		e.RunID,
		at.UnixNano(),
		string(e.Type),
		e.StepID,
		e.Detail,
	)
	return err
}

func (s *SQLiteRunLogStore) ListEntries(ctx context.Context, runID string) ([]api.RunLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, at, type, step_id, detail
		FROM run_log
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.RunLogEntry
	for rows.Next() {
		var (
			id     string
			atN    int64
			typ    string
			stepID string
			detail string
		)
		if err := rows.Scan(&id, &atN, &typ, &stepID, &detail); err != nil {
			return nil, err
		}
		out = append(out, api.RunLogEntry{
			RunID:  id,
			At:     time.Unix(0, atN),
			Type:   api.RunLogType(typ),
			StepID: stepID,
			Detail: detail,
		})
	}
	return out, rows.Err()
}
