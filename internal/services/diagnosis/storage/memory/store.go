// Package memory provides a process-local session store.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/wizard"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/storage"
)

// Store keeps sessions in a map guarded by a mutex.
type Store struct {
	mu       sync.Mutex
	sessions map[string]storage.Session
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{sessions: make(map[string]storage.Session)}
}

func (s *Store) GetSession(_ context.Context, id string) (storage.Session, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Session{}, false, fmt.Errorf("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return storage.Session{}, false, nil
	}
	session.Wizard = cloneState(session.Wizard)
	return session, true, nil
}

func (s *Store) PutSession(_ context.Context, session storage.Session) error {
	session.ID = strings.TrimSpace(session.ID)
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if session.ExpiresAt.IsZero() {
		return fmt.Errorf("session expiry is required")
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.sessions[session.ID]; ok && !prev.CreatedAt.IsZero() {
		session.CreatedAt = prev.CreatedAt
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}
	session.Wizard = cloneState(session.Wizard)
	s.sessions[session.ID] = session
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) Close() error { return nil }

// cloneState copies the answers map so callers never share it with the store.
func cloneState(state wizard.State) wizard.State {
	if state.Answers == nil {
		return state
	}
	answers := make(map[int]wizard.Answer, len(state.Answers))
	for k, v := range state.Answers {
		answers[k] = v
	}
	state.Answers = answers
	return state
}
