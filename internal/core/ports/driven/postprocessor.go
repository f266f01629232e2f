package driven

import (
	"context"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// PostProcessor turns normalised segments into indexable chunks.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process converts segments into chunks, preserving provenance.
	Process(ctx context.Context, segments []domain.Segment) ([]domain.Chunk, error)
}
