package driving

import (
	"context"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// AgentService answers user questions for a conversation session.
type AgentService interface {
	// HandleQuery runs one conversation turn and persists it.
	// An empty sessionID starts a new session.
	HandleQuery(ctx context.Context, query, sessionID string) (*domain.AgentResponse, error)
}

// ConversationService exposes durable conversation history.
type ConversationService interface {
	// History returns every turn of a session in order.
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)

	// Sessions lists known sessions, most recent first.
	Sessions(ctx context.Context) ([]domain.Session, error)

	// Delete removes a session and its turns.
	Delete(ctx context.Context, sessionID string) error
}
