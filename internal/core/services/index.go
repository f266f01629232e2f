package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/logger"
)

// DefaultEmbedBatchSize is the number of chunks embedded per request.
const DefaultEmbedBatchSize = 32

// IndexManager owns the lifecycle of the persisted vector index: loading,
// incremental embedding, saving and resetting. The embedding model is fixed
// for the lifetime of an index.
type IndexManager struct {
	store     driven.VectorStore
	embedder  driven.EmbeddingService
	batchSize int
}

// NewIndexManager creates an index manager.
func NewIndexManager(store driven.VectorStore, embedder driven.EmbeddingService) *IndexManager {
	return &IndexManager{
		store:     store,
		embedder:  embedder,
		batchSize: DefaultEmbedBatchSize,
	}
}

// Open returns the persisted index, or a fresh empty one when nothing usable
// is on disk. A corrupt index or one built by a different embedding model is
// logged and replaced by an empty index rather than failing.
func (m *IndexManager) Open(ctx context.Context) driven.VectorIndex {
	if !m.store.Exists() {
		logger.Debug("No index at %s, starting empty", m.store.Path())
		return m.empty()
	}

	idx, err := m.store.Load(ctx)
	if err != nil {
		logger.Warn("Loading index failed, starting empty: %v", err)
		return m.empty()
	}

	if err := m.compatible(idx); err != nil {
		logger.Warn("Ignoring existing index: %v", err)
		return m.empty()
	}

	logger.Debug("Loaded index: %d chunks, model=%s, dims=%d", idx.Len(), idx.EmbeddingModel(), idx.Dimensions())
	return idx
}

// Update embeds the chunks not yet present in idx and returns the new
// generation together with the number of chunks added.
func (m *IndexManager) Update(
	ctx context.Context,
	idx driven.VectorIndex,
	chunks []domain.Chunk,
) (driven.VectorIndex, int, error) {
	if err := m.compatible(idx); err != nil {
		return nil, 0, err
	}

	fresh := make([]domain.Chunk, 0, len(chunks))
	seen := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		if idx.Contains(c.ID) || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		fresh = append(fresh, c)
	}
	logger.Debug("Index update: %d chunks offered, %d new", len(chunks), len(fresh))
	if len(fresh) == 0 {
		return idx, 0, nil
	}

	records := make([]driven.VectorRecord, 0, len(fresh))
	for start := 0; start < len(fresh); start += m.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		end := min(start+m.batchSize, len(fresh))
		batch := fresh[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := m.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, 0, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, 0, fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end, len(vectors))
		}
		for i, c := range batch {
			records = append(records, driven.VectorRecord{Chunk: c, Vector: vectors[i]})
		}
		logger.Debug("Embedded %d/%d chunks", end, len(fresh))
	}

	// An empty index adopts the dimension the model actually produces.
	if idx.Len() == 0 && len(records[0].Vector) != idx.Dimensions() {
		idx = m.store.Empty(m.embedder.ModelName(), len(records[0].Vector))
	}

	next, err := idx.Append(records)
	if err != nil {
		return nil, 0, fmt.Errorf("append to index: %w", err)
	}
	return next, next.Len() - idx.Len(), nil
}

// Save persists an index generation.
func (m *IndexManager) Save(ctx context.Context, idx driven.VectorIndex) error {
	if err := m.store.Save(ctx, idx); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	logger.Debug("Saved index to %s", m.store.Path())
	return nil
}

// Lock takes the inter-process writer lock on the index. Writers must hold
// it from Open through Save.
func (m *IndexManager) Lock(ctx context.Context) (func(), error) {
	unlock, err := m.store.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock index: %w", err)
	}
	return func() {
		if err := unlock(); err != nil {
			logger.Warn("Releasing index lock: %v", err)
		}
	}, nil
}

// Reset deletes the persisted index and returns a fresh empty one.
func (m *IndexManager) Reset(ctx context.Context) (driven.VectorIndex, error) {
	if err := m.store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset index: %w", err)
	}
	logger.Info("Index reset at %s", m.store.Path())
	return m.empty(), nil
}

// Embed returns the query embedding using the index's model.
func (m *IndexManager) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return m.embedder.Embed(ctx, text)
}

// Path returns the index directory.
func (m *IndexManager) Path() string {
	return m.store.Path()
}

func (m *IndexManager) empty() driven.VectorIndex {
	return m.store.Empty(m.embedder.ModelName(), m.embedder.Dimensions())
}

// compatible enforces that idx was built by the configured embedding model.
func (m *IndexManager) compatible(idx driven.VectorIndex) error {
	if idx == nil {
		return errors.New("nil index")
	}
	if idx.EmbeddingModel() != m.embedder.ModelName() {
		return fmt.Errorf("%w: index built with %q, configured model is %q",
			domain.ErrEmbeddingMismatch, idx.EmbeddingModel(), m.embedder.ModelName())
	}
	if idx.Len() > 0 && m.embedder.Dimensions() > 0 && idx.Dimensions() != m.embedder.Dimensions() {
		return fmt.Errorf("%w: index has %d dimensions, model produces %d",
			domain.ErrEmbeddingMismatch, idx.Dimensions(), m.embedder.Dimensions())
	}
	return nil
}
