// Package sqlite implements the session store on a local sqlite file
// for standalone mode. Schema is created on open, no migration tool
// involved.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ngocminh-dev/wareply/internal/providers"
	"github.com/ngocminh-dev/wareply/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	app         TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	session_key TEXT NOT NULL,
	messages    TEXT NOT NULL DEFAULT '[]',
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL,
	UNIQUE (app, user_id, session_key)
);
`

// SessionStore implements store.SessionStore on a sqlite file.
type SessionStore struct {
	db *sql.DB
}

// Open creates the database file (and parent directory) if needed.
func Open(path string) (*SessionStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SessionStore{db: db}, nil
}

func (s *SessionStore) Create(ctx context.Context, app, user, key string) (*store.Session, error) {
	now := time.Now().UTC()
	sess := &store.Session{
		ID:      uuid.Must(uuid.NewV7()),
		App:     app,
		User:    user,
		Key:     key,
		Created: now,
		Updated: now,
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, app, user_id, session_key, messages, created_at, updated_at)
		 VALUES (?, ?, ?, ?, '[]', ?, ?)
		 ON CONFLICT (app, user_id, session_key) DO NOTHING`,
		sess.ID.String(), app, user, key, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, store.ErrSessionExists
	}
	return sess, nil
}

func (s *SessionStore) Get(ctx context.Context, app, user, key string) (*store.Session, error) {
	var id string
	sess := &store.Session{App: app, User: user, Key: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM sessions
		 WHERE app = ? AND user_id = ? AND session_key = ?`,
		app, user, key,
	).Scan(&id, &sess.Created, &sess.Updated)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) AppendMessages(ctx context.Context, app, user, key string, msgs ...providers.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT messages FROM sessions
		 WHERE app = ? AND user_id = ? AND session_key = ?`,
		app, user, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	var history []providers.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	history = append(history, msgs...)

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET messages = ?, updated_at = ?
		 WHERE app = ? AND user_id = ? AND session_key = ?`,
		string(data), time.Now().UTC(), app, user, key,
	)
	if err != nil {
		return fmt.Errorf("append messages: %w", err)
	}
	return tx.Commit()
}

func (s *SessionStore) History(ctx context.Context, app, user, key string) ([]providers.Message, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT messages FROM sessions
		 WHERE app = ? AND user_id = ? AND session_key = ?`,
		app, user, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	var msgs []providers.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return msgs, nil
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}
