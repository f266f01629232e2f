package driven

import (
	"context"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// Normaliser extracts provenance-tagged segments from one file.
// Each normaliser handles a fixed set of file extensions.
type Normaliser interface {
	// Extensions returns the lower-case extensions handled, with the dot.
	Extensions() []string

	// Load parses the file at path into segments.
	// A file with no extractable text yields no segments and no error.
	Load(ctx context.Context, path string) ([]domain.Segment, error)
}
