package driven

import (
	"context"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// Tool is a capability the agent can act with during reasoning.
// The agent binds each Tool to a domain.ToolKind at composition time.
type Tool interface {
	// Invoke runs the tool and returns its answer with supporting citations.
	Invoke(ctx context.Context, input string, history []domain.Turn) (domain.ToolResult, error)
}
