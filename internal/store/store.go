// Package store defines the session persistence contract and its two
// backends: sqlite for standalone mode and Postgres for managed mode.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ngocminh-dev/wareply/internal/providers"
)

var (
	// ErrNotFound is returned when no session exists for a key.
	ErrNotFound = errors.New("session not found")
	// ErrSessionExists is returned by Create when the key is already
	// taken. Callers racing to create the same per-contact session
	// treat this as success.
	ErrSessionExists = errors.New("session already exists")
)

// Session is one per-contact conversation.
type Session struct {
	ID      uuid.UUID `json:"id"`
	App     string    `json:"app"`
	User    string    `json:"user"`
	Key     string    `json:"key"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// SessionStore persists sessions and their message history.
type SessionStore interface {
	// Create makes a new empty session. Returns ErrSessionExists if
	// the (app, user, key) triple is already present.
	Create(ctx context.Context, app, user, key string) (*Session, error)

	// Get returns the session for a key, or ErrNotFound.
	Get(ctx context.Context, app, user, key string) (*Session, error)

	// AppendMessages adds messages to the session's history.
	AppendMessages(ctx context.Context, app, user, key string, msgs ...providers.Message) error

	// History returns the full message history, oldest first.
	History(ctx context.Context, app, user, key string) ([]providers.Message, error)

	Close() error
}
