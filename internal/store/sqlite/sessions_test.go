package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ngocminh-dev/wareply/internal/providers"
	"github.com/ngocminh-dev/wareply/internal/store"
)

func openTestStore(t *testing.T) *SessionStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess, err := s.Create(ctx, "wareply", "me", "auto_reply:111")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.Key != "auto_reply:111" {
		t.Errorf("key = %q", sess.Key)
	}

	got, err := s.Get(ctx, "wareply", "me", "auto_reply:111")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("id mismatch: %s vs %s", got.ID, sess.ID)
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "wareply", "me", "auto_reply:111"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := s.Create(ctx, "wareply", "me", "auto_reply:111")
	if !errors.Is(err, store.ErrSessionExists) {
		t.Fatalf("second Create err = %v, want ErrSessionExists", err)
	}

	// same key under a different user is a distinct session
	if _, err := s.Create(ctx, "wareply", "other", "auto_reply:111"); err != nil {
		t.Fatalf("Create for other user: %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "wareply", "me", "auto_reply:nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAppendAndHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "wareply", "me", "auto_reply:111"); err != nil {
		t.Fatal(err)
	}

	err := s.AppendMessages(ctx, "wareply", "me", "auto_reply:111",
		providers.Message{Role: "user", Content: "hi"},
		providers.Message{Role: "assistant", Content: "hello"},
	)
	if err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}
	if err := s.AppendMessages(ctx, "wareply", "me", "auto_reply:111",
		providers.Message{Role: "user", Content: "again"},
	); err != nil {
		t.Fatalf("second append: %v", err)
	}

	msgs, err := s.History(ctx, "wareply", "me", "auto_reply:111")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(msgs))
	}
	if msgs[0].Content != "hi" || msgs[2].Content != "again" {
		t.Errorf("history out of order: %+v", msgs)
	}
}

func TestAppendToMissingSession(t *testing.T) {
	s := openTestStore(t)
	err := s.AppendMessages(context.Background(), "wareply", "me", "auto_reply:nope",
		providers.Message{Role: "user", Content: "hi"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
