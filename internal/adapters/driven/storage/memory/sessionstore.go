package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore keeps bounded conversation history per session in memory.
// Sessions do not survive a restart.
type SessionStore struct {
	mu       sync.Mutex
	capacity int
	sessions map[string]*domain.History
}

// NewSessionStore creates a session store retaining at most capacity
// exchanges per session.
func NewSessionStore(capacity int) *SessionStore {
	return &SessionStore{
		capacity: capacity,
		sessions: make(map[string]*domain.History),
	}
}

// Create starts a new empty session.
func (s *SessionStore) Create(_ context.Context) (string, error) {
	id := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = domain.NewHistory(s.capacity)
	return id, nil
}

// History returns the retained exchanges of a session, oldest first.
func (s *SessionStore) History(_ context.Context, sessionID string) ([]domain.Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.sessions[sessionID]
	if !ok {
		return []domain.Exchange{}, nil
	}
	return h.Exchanges(), nil
}

// Append records an exchange, creating the session if needed.
func (s *SessionStore) Append(_ context.Context, sessionID string, exchange domain.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.sessions[sessionID]
	if !ok {
		h = domain.NewHistory(s.capacity)
		s.sessions[sessionID] = h
	}
	h.Append(exchange)
	return nil
}

// Delete drops a session.
func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
