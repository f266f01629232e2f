package driven

import (
	"context"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// VectorRecord is a chunk together with its embedding.
type VectorRecord struct {
	Chunk  domain.Chunk
	Vector []float32
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Chunk is the matched chunk with its provenance.
	Chunk domain.Chunk

	// Similarity is the cosine similarity score.
	Similarity float64
}

// VectorIndex is one immutable generation of the vector index.
// Readers may share a generation freely; writers derive a new one.
type VectorIndex interface {
	// Search finds the k nearest chunks to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Append returns a new generation holding the receiver's records plus
	// the given ones. The receiver is left untouched. Records whose
	// dimension differs from the index fail with domain.ErrEmbeddingMismatch.
	Append(records []VectorRecord) (VectorIndex, error)

	// Contains reports whether a chunk ID is already indexed.
	Contains(chunkID string) bool

	// Len returns the number of records.
	Len() int

	// EmbeddingModel returns the model every vector was produced by.
	EmbeddingModel() string

	// Dimensions returns the vector size.
	Dimensions() int
}

// FilteredVectorIndex is implemented by indexes that can restrict a
// similarity search to chunks matching a predicate.
type FilteredVectorIndex interface {
	VectorIndex

	// SearchFiltered finds the k nearest chunks for which match returns true.
	SearchFiltered(ctx context.Context, query []float32, k int, match func(domain.Chunk) bool) ([]VectorHit, error)
}

// VectorStore persists index generations as a single unit.
type VectorStore interface {
	// Exists reports whether a persisted index is present.
	Exists() bool

	// Load reads the persisted index. A missing index yields
	// domain.ErrIndexUnavailable.
	Load(ctx context.Context) (VectorIndex, error)

	// Empty creates a new, unsaved index bound to an embedding model.
	Empty(model string, dims int) VectorIndex

	// Save persists a generation, replacing any previous one.
	Save(ctx context.Context, idx VectorIndex) error

	// Reset deletes the persisted index.
	Reset(ctx context.Context) error

	// Lock takes the exclusive writer lock shared by every process using
	// the index, blocking until it is free or ctx is done. The returned
	// func releases it.
	Lock(ctx context.Context) (unlock func() error, err error)

	// Path returns the index directory.
	Path() string
}
