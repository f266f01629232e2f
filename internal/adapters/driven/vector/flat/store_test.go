package flat

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

func TestStore_LoadMissing(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "index"))

	assert.False(t, s.Exists())
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(filepath.Join(t.TempDir(), "index"))

	offset := 42
	row := record("row-1", domain.KindRow, 3, 4)
	row.Chunk.Provenance.Format = domain.FormatCSV
	row.Chunk.Provenance.Location = domain.RowLocation(0, "Staff")
	text := record("text-1", domain.KindText, 0, 1)
	text.Chunk.StartOffset = &offset
	text.Chunk.Provenance.Location = domain.Location{Page: 2}

	idx, err := s.Empty("nomic-embed-text", 2).Append([]driven.VectorRecord{row, text})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, idx))
	assert.True(t, s.Exists())

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, "nomic-embed-text", loaded.EmbeddingModel())
	assert.Equal(t, 2, loaded.Dimensions())
	assert.True(t, loaded.Contains("row-1"))

	hits, err := loaded.Search(ctx, []float32{3, 4}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	got := hits[0].Chunk
	assert.Equal(t, "row-1", got.ID)
	assert.Equal(t, domain.KindRow, got.Provenance.Kind)
	assert.Equal(t, domain.FormatCSV, got.Provenance.Format)
	assert.Equal(t, "Row 0 (Sheet: Staff)", got.Provenance.Location.String())
	assert.Nil(t, got.StartOffset)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)

	hits, err = loaded.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.NotNil(t, hits[0].Chunk.StartOffset)
	assert.Equal(t, 42, *hits[0].Chunk.StartOffset)
	assert.Equal(t, "Page 2", hits[0].Chunk.Provenance.Location.String())
}

func TestStore_SaveReplacesPreviousGeneration(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())

	first, err := s.Empty("m", 2).Append([]driven.VectorRecord{record("a", domain.KindText, 1, 0)})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, first))

	second, err := first.Append([]driven.VectorRecord{record("b", domain.KindText, 0, 1)})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, second))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	entries, err := os.ReadDir(s.Path())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".tmp", filepath.Ext(e.Name()), "temporary file left behind: %s", e.Name())
	}

	// The current and previous generations' docstores are kept.
	assert.Len(t, docstores(t, s), 2)
	third, err := second.Append([]driven.VectorRecord{record("c", domain.KindText, 1, 1)})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, third))
	assert.Len(t, docstores(t, s), 2)
}

func docstores(t *testing.T, s *Store) []string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(s.Path(), DocstorePrefix+"*"+docstoreExt))
	require.NoError(t, err)
	return paths
}

func TestStore_LoadDuringSaveSeesOneGeneration(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())

	small, err := s.Empty("m", 2).Append([]driven.VectorRecord{record("a", domain.KindText, 1, 0)})
	require.NoError(t, err)
	large, err := small.Append([]driven.VectorRecord{
		record("b", domain.KindText, 0, 1),
		record("c", domain.KindText, 1, 1),
	})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, small))

	done := make(chan struct{})
	saveErr := make(chan error, 1)
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			gen := small
			if i%2 == 0 {
				gen = large
			}
			if err := s.Save(ctx, gen); err != nil {
				saveErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			select {
			case err := <-saveErr:
				require.NoError(t, err)
			default:
			}
			return
		default:
		}
		loaded, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Contains(t, []int{1, 3}, loaded.Len())
	}
}

func TestStore_LockExcludesOtherHolders(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	first := NewStore(dir)
	second := NewStore(dir)

	unlock, err := first.Lock(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, first.LockPath())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = second.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock())
	unlock, err = second.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestStore_ResetWhileLocked(t *testing.T) {
	ctx := context.Background()
	s := NewStore(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, s.Save(ctx, New("m", 2)))

	unlock, err := s.Lock(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx))
	assert.False(t, s.Exists())
	assert.FileExists(t, s.LockPath())
	require.NoError(t, unlock())
}

func TestStore_LoadRejectsForeignDocstoreName(t *testing.T) {
	s := NewStore(t.TempDir())
	f, err := os.Create(filepath.Join(s.Path(), VectorsFile))
	require.NoError(t, err)
	header := vectorHeader{model: "m", dims: 2, docstore: "../outside.db"}
	require.NoError(t, writeVectors(f, header, nil))
	require.NoError(t, f.Close())

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestStore_LoadCorruptVectors(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())

	idx, err := s.Empty("m", 2).Append([]driven.VectorRecord{record("a", domain.KindText, 1, 0)})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, idx))

	require.NoError(t, os.WriteFile(filepath.Join(s.Path(), VectorsFile), []byte("garbage"), 0o644))

	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestStore_LoadMissingDocstore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())

	idx, err := s.Empty("m", 2).Append([]driven.VectorRecord{record("a", domain.KindText, 1, 0)})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, idx))
	for _, path := range docstores(t, s) {
		require.NoError(t, os.Remove(path))
	}

	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := NewStore(filepath.Join(t.TempDir(), "index"))

	require.NoError(t, s.Save(ctx, New("m", 2)))
	assert.True(t, s.Exists())

	require.NoError(t, s.Reset(ctx))
	assert.False(t, s.Exists())
	require.NoError(t, s.Reset(ctx))
}

func TestStore_SaveEmptyIndex(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())

	require.NoError(t, s.Save(ctx, New("m", 4)))
	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
	assert.Equal(t, 4, loaded.Dimensions())
}
