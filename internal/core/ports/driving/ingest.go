package driving

import (
	"context"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// Files is the number of files that were normalised successfully.
	Files int

	// Skipped lists files with unsupported extensions.
	Skipped []string

	// Failed lists files that could not be parsed.
	Failed []string

	// Segments is the number of segments extracted.
	Segments int

	// Chunks is the number of chunks produced by the chunker.
	Chunks int

	// Added is the number of chunks newly embedded into the index.
	// Chunks already present in the index are not re-embedded.
	Added int

	// Total is the index size after the run.
	Total int
}

// IngestService loads documents into the vector index.
type IngestService interface {
	// Ingest normalises, chunks, embeds and indexes the given files or
	// directories. Calls are serialised; only one ingestion writes at a time.
	Ingest(ctx context.Context, paths ...string) (*IngestReport, error)

	// Reset deletes the persisted index. Later queries see an empty index.
	Reset(ctx context.Context) error
}

// RetrievalService finds chunks relevant to a question.
type RetrievalService interface {
	// Query returns schema chunks first, then content chunks, at most k+1.
	Query(ctx context.Context, text string, k int) ([]domain.Chunk, error)

	// Reload swaps in the latest persisted index generation.
	Reload(ctx context.Context) error
}
