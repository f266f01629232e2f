package driven

import (
	"context"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// TurnStore is the durable, authoritative record of conversations.
type TurnStore interface {
	// Append stores turns for a session in a single transaction, creating
	// the session if needed. Either every turn is stored or none is.
	Append(ctx context.Context, sessionID string, turns ...domain.Turn) error

	// Recent returns up to limit of the newest turns in chronological order.
	Recent(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)

	// History returns every turn of a session in chronological order.
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)

	// Sessions lists known sessions, most recently updated first.
	Sessions(ctx context.Context) ([]domain.Session, error)

	// DeleteSession removes a session and its turns.
	DeleteSession(ctx context.Context, sessionID string) error
}
