package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/core/ports/driving"
)

// Ensure ConversationMemory implements the interface.
var _ driving.ConversationService = (*ConversationMemory)(nil)

// ConversationMemory exposes a bounded window of each session to reasoning
// while the turn store keeps the full history. The window is rebuilt from
// the store on every call.
type ConversationMemory struct {
	store  driven.TurnStore
	window int

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serialises writes to one session. Entries live in the map only
// while some caller holds or waits for them.
type sessionLock struct {
	sync.Mutex
	refs int
}

// NewConversationMemory creates a memory exposing the last window exchanges.
func NewConversationMemory(store driven.TurnStore, window int) *ConversationMemory {
	if window <= 0 {
		window = domain.DefaultMemoryWindow
	}
	return &ConversationMemory{
		store:  store,
		window: window,
		locks:  make(map[string]*sessionLock),
	}
}

// Window returns the last 2N turns of the session in chronological order.
func (m *ConversationMemory) Window(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	turns, err := m.store.Recent(ctx, sessionID, 2*m.window)
	if err != nil {
		return nil, fmt.Errorf("load window: %w", err)
	}
	return turns, nil
}

// Save appends one turn to the session.
func (m *ConversationMemory) Save(ctx context.Context, sessionID string, turn domain.Turn) error {
	return m.append(ctx, sessionID, turn)
}

// SaveExchange appends a user turn and its answer in one store transaction.
func (m *ConversationMemory) SaveExchange(ctx context.Context, sessionID string, user, assistant domain.Turn) error {
	return m.append(ctx, sessionID, user, assistant)
}

// History returns every turn of the session.
func (m *ConversationMemory) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	turns, err := m.store.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return turns, nil
}

// Sessions lists known sessions, most recently updated first.
func (m *ConversationMemory) Sessions(ctx context.Context) ([]domain.Session, error) {
	sessions, err := m.store.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes a session and its turns.
func (m *ConversationMemory) Delete(ctx context.Context, sessionID string) error {
	defer m.lock(sessionID)()

	if err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (m *ConversationMemory) append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	if sessionID == "" {
		return fmt.Errorf("%w: empty session id", domain.ErrInvalidInput)
	}

	defer m.lock(sessionID)()

	if err := m.store.Append(ctx, sessionID, turns...); err != nil {
		return fmt.Errorf("append turns: %w", err)
	}
	return nil
}

// lock takes the session's write lock and returns its release func.
func (m *ConversationMemory) lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}
