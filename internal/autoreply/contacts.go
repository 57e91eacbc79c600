package autoreply

import (
	"sync"
	"time"

	"github.com/ngocminh-dev/wareply/internal/bus"
)

// contactState is the per-sender bookkeeping. The embedded mutex
// serializes appends, drains and reply-time updates for one contact;
// different contacts never block each other.
type contactState struct {
	mu          sync.Mutex
	pending     []bus.InboundMessage
	lastReplyAt time.Time
}

// ContactStore holds per-contact state, created lazily on first
// message and kept for the process lifetime.
type ContactStore struct {
	mu       sync.RWMutex
	contacts map[string]*contactState
}

func NewContactStore() *ContactStore {
	return &ContactStore{contacts: make(map[string]*contactState)}
}

func (s *ContactStore) get(sender string) *contactState {
	s.mu.RLock()
	st, ok := s.contacts[sender]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.contacts[sender]; ok {
		return st
	}
	st = &contactState{}
	s.contacts[sender] = st
	return st
}

// Append queues an inbound message for a sender.
func (s *ContactStore) Append(sender string, msg bus.InboundMessage) {
	st := s.get(sender)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.pending = append(st.pending, msg)
}

// Drain returns the queued messages in arrival order and clears the
// queue.
func (s *ContactStore) Drain(sender string) []bus.InboundMessage {
	st := s.get(sender)
	st.mu.Lock()
	defer st.mu.Unlock()
	msgs := st.pending
	st.pending = nil
	return msgs
}

// PendingCount reports the queue length for a sender.
func (s *ContactStore) PendingCount(sender string) int {
	st := s.get(sender)
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.pending)
}

// LastReplyAt returns the time of the most recent successful reply,
// zero if none.
func (s *ContactStore) LastReplyAt(sender string) time.Time {
	st := s.get(sender)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastReplyAt
}

// MarkReplied records a completed reply. The timestamp never moves
// backwards.
func (s *ContactStore) MarkReplied(sender string, at time.Time) {
	st := s.get(sender)
	st.mu.Lock()
	defer st.mu.Unlock()
	if at.After(st.lastReplyAt) {
		st.lastReplyAt = at
	}
}
