package auth

import (
	"context"
	"sync"
)

// MemorySessionStore is a thread-safe in-memory SessionStore. Sessions
// are lost on restart. This is the default single-process backend.
type MemorySessionStore struct {
	mu   sync.RWMutex
	data map[string]Session
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{data: make(map[string]Session)}
}

func (s *MemorySessionStore) Put(_ context.Context, sess Session) error {
	s.mu.Lock()
	s.data[sess.Token] = sess
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, token string) (Session, bool, error) {
	s.mu.RLock()
	sess, ok := s.data[token]
	s.mu.RUnlock()
	return sess, ok, nil
}

func (s *MemorySessionStore) ByUser(_ context.Context, userID string) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Session
	for _, sess := range s.data {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.data, token)
	s.mu.Unlock()
	return nil
}
