package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure TurnStore implements the interface.
var _ driven.TurnStore = (*TurnStore)(nil)

// TurnStore is an in-memory implementation of driven.TurnStore.
type TurnStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	info  domain.Session
	turns []domain.Turn
}

// NewTurnStore creates a new in-memory turn store.
func NewTurnStore() *TurnStore {
	return &TurnStore{
		sessions: make(map[string]*session),
	}
}

// Append stores turns for a session, creating it on first use.
func (s *TurnStore) Append(_ context.Context, sessionID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{info: domain.Session{ID: sessionID, CreatedAt: turns[0].Timestamp}}
		s.sessions[sessionID] = sess
	}
	sess.turns = append(sess.turns, turns...)
	sess.info.UpdatedAt = turns[len(turns)-1].Timestamp
	sess.info.Turns = len(sess.turns)
	return nil
}

// Recent returns the last limit turns of a session, oldest first.
func (s *TurnStore) Recent(_ context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok || limit <= 0 {
		return []domain.Turn{}, nil
	}
	start := len(sess.turns) - limit
	if start < 0 {
		start = 0
	}
	return copyTurns(sess.turns[start:]), nil
}

// History returns every turn of a session, oldest first.
func (s *TurnStore) History(_ context.Context, sessionID string) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return []domain.Turn{}, nil
	}
	return copyTurns(sess.turns), nil
}

// Sessions lists sessions, most recently updated first.
func (s *TurnStore) Sessions(_ context.Context) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteSession removes a session and its turns.
func (s *TurnStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

func copyTurns(turns []domain.Turn) []domain.Turn {
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}
