// Package pg implements the session store on Postgres for managed
// mode. Message history lives in a jsonb column on the session row,
// appended atomically with the || operator.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ngocminh-dev/wareply/internal/config"
	"github.com/ngocminh-dev/wareply/internal/providers"
	"github.com/ngocminh-dev/wareply/internal/store"
)

// OpenDB opens a Postgres pool with the configured limits.
func OpenDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.PoolSize + cfg.MaxOverflow)
	db.SetMaxIdleConns(cfg.PoolSize)
	if cfg.PoolRecycleSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.PoolRecycleSeconds) * time.Second)
	}

	if cfg.PoolPrePing {
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.PoolTimeoutSeconds)*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
	}
	return db, nil
}

// SessionStore implements store.SessionStore backed by Postgres.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
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
		 VALUES ($1, $2, $3, $4, '[]'::jsonb, $5, $5)
		 ON CONFLICT (app, user_id, session_key) DO NOTHING`,
		sess.ID, app, user, key, now,
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
	sess := &store.Session{App: app, User: user, Key: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM sessions
		 WHERE app = $1 AND user_id = $2 AND session_key = $3`,
		app, user, key,
	).Scan(&sess.ID, &sess.Created, &sess.Updated)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) AppendMessages(ctx context.Context, app, user, key string, msgs ...providers.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET messages = messages || $1::jsonb, updated_at = $2
		 WHERE app = $3 AND user_id = $4 AND session_key = $5`,
		data, time.Now().UTC(), app, user, key,
	)
	if err != nil {
		return fmt.Errorf("append messages: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SessionStore) History(ctx context.Context, app, user, key string) ([]providers.Message, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT messages FROM sessions
		 WHERE app = $1 AND user_id = $2 AND session_key = $3`,
		app, user, key,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	var msgs []providers.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return msgs, nil
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}
