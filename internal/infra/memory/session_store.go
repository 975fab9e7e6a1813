package memory

import (
	"context"
	"sync"
)

// SessionStore is an in-memory implementation of app.SessionStore. It never
// expires tokens; the Redis implementation carries the TTL in deployments.
type SessionStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{tokens: make(map[string]string)}
}

func (s *SessionStore) Put(_ context.Context, token, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
	return nil
}

func (s *SessionStore) Get(_ context.Context, token string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.tokens[token]
	return userID, ok, nil
}

func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}
