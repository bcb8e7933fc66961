package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/juhoh/flowline/pkg/api"
)

// SQLiteSubscriptionStore is a SubscriptionStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteSubscriptionStore struct {
	db *sql.DB
}

var _ SubscriptionStore = (*SQLiteSubscriptionStore)(nil)

// NewSQLiteSubscriptionStore initializes the required schema in the given
// database and returns a new SQLiteSubscriptionStore.
func NewSQLiteSubscriptionStore(db *sql.DB) (*SQLiteSubscriptionStore, error) {
	s := &SQLiteSubscriptionStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSubscriptionStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS event_subscriptions (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			filter BLOB,
			is_active INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE (workflow_id, event_type)
		);
		CREATE INDEX IF NOT EXISTS idx_event_subscriptions_workflow
			ON event_subscriptions(workflow_id, created_at);`,
	)
	return err
}

func (s *SQLiteSubscriptionStore) CreateSubscription(ctx context.Context, sub *api.EventSubscription) error {
	filterBytes, err := EncodeValue(sub.Filter)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_subscriptions (id, workflow_id, event_type, filter, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID,
		sub.WorkflowID,
		string(sub.EventType),
		filterBytes,
		boolToInt(sub.IsActive),
		sub.CreatedAt.UnixNano(),
		sub.UpdatedAt.UnixNano(),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrSubscriptionExists
	}
	return err
}

func (s *SQLiteSubscriptionStore) UpdateSubscription(ctx context.Context, sub *api.EventSubscription) error {
	filterBytes, err := EncodeValue(sub.Filter)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE event_subscriptions
		SET filter = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND workflow_id = ?`,
		filterBytes,
		boolToInt(sub.IsActive),
		sub.UpdatedAt.UnixNano(),
		sub.ID,
		sub.WorkflowID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (s *SQLiteSubscriptionStore) GetSubscription(ctx context.Context, subscriptionID, workflowID string) (*api.EventSubscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, event_type, filter, is_active, created_at, updated_at
		FROM event_subscriptions
		WHERE id = ? AND workflow_id = ?`,
		subscriptionID, workflowID,
	)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *SQLiteSubscriptionStore) DeleteSubscription(ctx context.Context, subscriptionID, workflowID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM event_subscriptions WHERE id = ? AND workflow_id = ?`,
		subscriptionID, workflowID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (s *SQLiteSubscriptionStore) ListSubscriptions(ctx context.Context, workflowID string) ([]*api.EventSubscription, error) {
	return s.querySubscriptions(ctx, `
		SELECT id, workflow_id, event_type, filter, is_active, created_at, updated_at
		FROM event_subscriptions
		WHERE workflow_id = ?
		ORDER BY created_at ASC, id ASC`,
		workflowID,
	)
}

func (s *SQLiteSubscriptionStore) ListActiveByEventType(ctx context.Context, eventType api.EventType) ([]*api.EventSubscription, error) {
	return s.querySubscriptions(ctx, `
		SELECT id, workflow_id, event_type, filter, is_active, created_at, updated_at
		FROM event_subscriptions
		WHERE is_active = 1 AND event_type = ?
		ORDER BY created_at ASC, id ASC`,
		string(eventType),
	)
}

func (s *SQLiteSubscriptionStore) ListActive(ctx context.Context) ([]*api.EventSubscription, error) {
	return s.querySubscriptions(ctx, `
		SELECT id, workflow_id, event_type, filter, is_active, created_at, updated_at
		FROM event_subscriptions
		WHERE is_active = 1
		ORDER BY created_at ASC, id ASC`,
	)
}

func (s *SQLiteSubscriptionStore) querySubscriptions(ctx context.Context, query string, args ...any) ([]*api.EventSubscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*api.EventSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*api.EventSubscription, error) {
	var (
		sub         api.EventSubscription
		eventType   string
		filterBytes []byte
		isActive    int
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(&sub.ID, &sub.WorkflowID, &eventType, &filterBytes, &isActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	filter, err := DecodeValue[map[string]any](filterBytes)
	if err != nil {
		return nil, err
	}

	sub.EventType = api.EventType(eventType)
	sub.Filter = filter
	sub.IsActive = isActive != 0
	sub.CreatedAt = time.Unix(0, createdAt)
	sub.UpdatedAt = time.Unix(0, updatedAt)
	return &sub, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
