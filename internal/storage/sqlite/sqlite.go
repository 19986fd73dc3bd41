package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/0x5457/pagesearch/internal/models"
	"github.com/0x5457/pagesearch/internal/storage"
	_ "modernc.org/sqlite"
)

type SessionStore struct {
	db *sql.DB
}

func New(path string) (*SessionStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SessionStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		filters TEXT NOT NULL,
		open_groups TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);`)
	return err
}

func (s *SessionStore) SaveSession(ctx context.Context, sess storage.Session) error {
	filters, err := json.Marshal(sess.Filters.Clone())
	if err != nil {
		return fmt.Errorf("encode filters: %w", err)
	}
	groups, err := json.Marshal(sess.OpenGroups)
	if err != nil {
		return fmt.Errorf("encode open groups: %w", err)
	}
	updated := sess.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions(id,query,filters,open_groups,updated_at)
		VALUES(?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET
        query=excluded.query,
        filters=excluded.filters,
        open_groups=excluded.open_groups,
        updated_at=excluded.updated_at`,
		sess.ID,
		sess.Query,
		string(filters),
		string(groups),
		updated.UnixMilli(),
	)
	return err
}

func (s *SessionStore) LoadSession(ctx context.Context, id string) (*storage.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,query,filters,open_groups,updated_at FROM sessions WHERE id = ?`,
		id,
	)
	var (
		sess    storage.Session
		filters string
		groups  string
		updated int64
	)
	if err := row.Scan(&sess.ID, &sess.Query, &filters, &groups, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, err
	}
	sess.Filters = models.Filters{}
	if err := json.Unmarshal([]byte(filters), &sess.Filters); err != nil {
		return nil, fmt.Errorf("decode filters: %w", err)
	}
	if err := json.Unmarshal([]byte(groups), &sess.OpenGroups); err != nil {
		return nil, fmt.Errorf("decode open groups: %w", err)
	}
	sess.UpdatedAt = time.UnixMilli(updated)
	return &sess, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// PruneSessions removes sessions not updated since before.
func (s *SessionStore) PruneSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}
