package driven

import (
	"context"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// NormaliserRegistry dispatches files to normalisers by extension.
type NormaliserRegistry interface {
	// Load parses a file with the normaliser registered for its extension.
	// Unknown extensions fail with domain.ErrUnsupportedType; parse failures
	// are reported as *domain.ParseError.
	Load(ctx context.Context, path string) ([]domain.Segment, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// Supports reports whether a path's extension has a normaliser.
	Supports(path string) bool

	// SupportedExtensions returns all extensions that can be normalised.
	SupportedExtensions() []string
}
