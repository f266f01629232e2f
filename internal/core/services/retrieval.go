package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/core/ports/driving"
	"github.com/custodia-labs/ray/internal/logger"
)

// Ensure RetrievalEngine implements the interface.
var _ driving.RetrievalService = (*RetrievalEngine)(nil)

// Retrieval tuning.
const (
	// DefaultSchemaK is the number of schema chunks placed ahead of content.
	DefaultSchemaK = 2

	// schemaFallbackPool is how many unfiltered hits are scanned for schema
	// chunks when the index cannot filter by kind.
	schemaFallbackPool = 10
)

// indexHandle wraps a generation so it can live in an atomic.Pointer.
type indexHandle struct {
	index driven.VectorIndex
}

// RetrievalEngine answers similarity queries against the current index
// generation, placing table schemas ahead of content.
//
// The generation is held in an atomic pointer. Each query loads it once, so
// a concurrent Swap never mixes two generations within one query.
type RetrievalEngine struct {
	manager *IndexManager
	current atomic.Pointer[indexHandle]
	k       int
}

// NewRetrievalEngine creates a retrieval engine over the manager's index.
// The index is not loaded until Reload or Swap is called.
func NewRetrievalEngine(manager *IndexManager, k int) *RetrievalEngine {
	if k <= 0 {
		k = domain.DefaultRetrievalK
	}
	return &RetrievalEngine{manager: manager, k: k}
}

// Swap installs a new index generation.
func (e *RetrievalEngine) Swap(idx driven.VectorIndex) {
	e.current.Store(&indexHandle{index: idx})
}

// Snapshot returns the current generation, or nil before the first load.
func (e *RetrievalEngine) Snapshot() driven.VectorIndex {
	h := e.current.Load()
	if h == nil {
		return nil
	}
	return h.index
}

// Reload re-reads the persisted index and swaps it in.
func (e *RetrievalEngine) Reload(ctx context.Context) error {
	idx := e.manager.Open(ctx)
	e.Swap(idx)
	logger.Debug("Retrieval index reloaded: %d chunks", idx.Len())
	return nil
}

// Query returns up to k+1 chunks: at most two schema chunks first, then the
// top k chunks overall, with exact-content duplicates removed.
func (e *RetrievalEngine) Query(ctx context.Context, text string, k int) ([]domain.Chunk, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q", text)

	if k <= 0 {
		k = e.k
	}
	text = strings.TrimSpace(text)
	idx := e.Snapshot()
	if text == "" || idx == nil || idx.Len() == 0 {
		logger.Debug("Nothing to search (empty query or index)")
		return []domain.Chunk{}, nil
	}

	vec, err := e.manager.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	schema, err := e.schemaHits(ctx, idx, vec)
	if err != nil {
		return nil, fmt.Errorf("schema search: %w", err)
	}
	content, err := idx.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("content search: %w", err)
	}
	logger.Debug("Hits: %d schema, %d content", len(schema), len(content))

	limit := k + 1
	seen := make(map[string]bool, limit)
	results := make([]domain.Chunk, 0, limit)
	for _, hit := range append(schema, content...) {
		if len(results) == limit {
			break
		}
		if seen[hit.Chunk.Content] {
			continue
		}
		seen[hit.Chunk.Content] = true
		results = append(results, hit.Chunk)
	}

	logger.Info("Retrieved %d chunks", len(results))
	return results, nil
}

// schemaHits finds the best schema chunks, filtering inside the index when
// it supports attribute filters and post-filtering a wider pool otherwise.
func (e *RetrievalEngine) schemaHits(
	ctx context.Context,
	idx driven.VectorIndex,
	vec []float32,
) ([]driven.VectorHit, error) {
	if fi, ok := idx.(driven.FilteredVectorIndex); ok {
		return fi.SearchFiltered(ctx, vec, DefaultSchemaK, domain.Chunk.IsSchema)
	}

	pool, err := idx.Search(ctx, vec, schemaFallbackPool)
	if err != nil {
		return nil, err
	}
	hits := make([]driven.VectorHit, 0, DefaultSchemaK)
	for _, h := range pool {
		if h.Chunk.IsSchema() {
			hits = append(hits, h)
			if len(hits) == DefaultSchemaK {
				break
			}
		}
	}
	return hits, nil
}
