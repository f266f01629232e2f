package flat

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure Index implements the interfaces.
var (
	_ driven.VectorIndex         = (*Index)(nil)
	_ driven.FilteredVectorIndex = (*Index)(nil)
)

// Index is one immutable generation of the flat index.
type Index struct {
	model   string
	dims    int
	chunks  []domain.Chunk
	vectors [][]float32 // L2-normalised
	ids     map[string]int
}

// New creates an empty index bound to an embedding model.
func New(model string, dims int) *Index {
	return &Index{
		model: model,
		dims:  dims,
		ids:   make(map[string]int),
	}
}

// EmbeddingModel returns the model every vector was produced by.
func (x *Index) EmbeddingModel() string {
	return x.model
}

// Dimensions returns the vector size.
func (x *Index) Dimensions() int {
	return x.dims
}

// Len returns the number of records.
func (x *Index) Len() int {
	return len(x.chunks)
}

// Contains reports whether a chunk ID is already indexed.
func (x *Index) Contains(chunkID string) bool {
	_, ok := x.ids[chunkID]
	return ok
}

// Append returns a new generation with the given records added.
// Records already present by chunk ID are ignored.
func (x *Index) Append(records []driven.VectorRecord) (driven.VectorIndex, error) {
	next := &Index{
		model:   x.model,
		dims:    x.dims,
		chunks:  make([]domain.Chunk, len(x.chunks), len(x.chunks)+len(records)),
		vectors: make([][]float32, len(x.vectors), len(x.vectors)+len(records)),
		ids:     make(map[string]int, len(x.ids)+len(records)),
	}
	copy(next.chunks, x.chunks)
	copy(next.vectors, x.vectors)
	for id, pos := range x.ids {
		next.ids[id] = pos
	}

	for _, rec := range records {
		if len(rec.Vector) != x.dims {
			return nil, fmt.Errorf("%w: chunk %s has %d dimensions, index has %d",
				domain.ErrEmbeddingMismatch, rec.Chunk.ID, len(rec.Vector), x.dims)
		}
		if _, dup := next.ids[rec.Chunk.ID]; dup {
			continue
		}
		next.ids[rec.Chunk.ID] = len(next.chunks)
		next.chunks = append(next.chunks, rec.Chunk)
		next.vectors = append(next.vectors, normalise(rec.Vector))
	}
	return next, nil
}

// Search finds the k nearest chunks to the query vector.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	return x.SearchFiltered(ctx, query, k, nil)
}

// SearchFiltered finds the k nearest chunks accepted by match.
// A nil match accepts every chunk.
func (x *Index) SearchFiltered(
	ctx context.Context,
	query []float32,
	k int,
	match func(domain.Chunk) bool,
) ([]driven.VectorHit, error) {
	if k <= 0 || len(x.chunks) == 0 {
		return nil, nil
	}
	if len(query) != x.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrEmbeddingMismatch, len(query), x.dims)
	}
	q := normalise(query)

	type scored struct {
		pos int
		sim float64
	}
	candidates := make([]scored, 0, len(x.chunks))
	for i, c := range x.chunks {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if match != nil && !match(c) {
			continue
		}
		candidates = append(candidates, scored{pos: i, sim: dot(q, x.vectors[i])})
	}

	// Stable so that equal scores keep insertion order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})
	if k > len(candidates) {
		k = len(candidates)
	}

	hits := make([]driven.VectorHit, k)
	for i := 0; i < k; i++ {
		hits[i] = driven.VectorHit{
			Chunk:      x.chunks[candidates[i].pos],
			Similarity: candidates[i].sim,
		}
	}
	return hits, nil
}

func normalise(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
