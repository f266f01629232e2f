package flat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/logger"
)

// File names inside the index directory. Each generation writes its own
// docstore, named in the vectors.bin header; renaming vectors.bin into place
// commits the generation.
const (
	VectorsFile    = "vectors.bin"
	DocstorePrefix = "docstore-"
	docstoreExt    = ".db"
)

// lockRetry is how often a blocked Lock polls the lock file.
const lockRetry = 50 * time.Millisecond

// loadAttempts bounds retries when a concurrent Save prunes the docstore a
// Load was about to open.
const loadAttempts = 5

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store persists flat index generations to a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the index directory.
func (s *Store) Path() string {
	return s.dir
}

// LockPath returns the lock file guarding writers. It sits beside the index
// directory so Reset can remove the directory while holding it.
func (s *Store) LockPath() string {
	return filepath.Clean(s.dir) + ".lock"
}

// Exists reports whether a persisted index is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(filepath.Join(s.dir, VectorsFile))
	return err == nil
}

// Empty returns a new empty index for the given embedding model.
func (s *Store) Empty(model string, dims int) driven.VectorIndex {
	return New(model, dims)
}

// Lock takes the exclusive inter-process writer lock, waiting until it is
// free or ctx is done. The returned func releases it.
func (s *Store) Lock(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(s.LockPath()), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	fl := flock.New(s.LockPath())
	locked, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("locking index: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("locking index: %s is held by another process", s.LockPath())
	}
	return fl.Unlock, nil
}

// Load reads the persisted index. A missing or corrupt index yields an
// error wrapping domain.ErrIndexUnavailable.
func (s *Store) Load(ctx context.Context) (driven.VectorIndex, error) {
	var err error
	for range loadAttempts {
		var idx *Index
		idx, err = s.load(ctx)
		if err == nil {
			return idx, nil
		}
		// A concurrent Save replaced vectors.bin and pruned our docstore.
		if !errors.Is(err, errDocstoreGone) {
			break
		}
	}
	return nil, err
}

var errDocstoreGone = fmt.Errorf("%w: docstore pruned by a newer generation", domain.ErrIndexUnavailable)

func (s *Store) load(ctx context.Context) (*Index, error) {
	f, err := os.Open(filepath.Join(s.dir, VectorsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no index at %s", domain.ErrIndexUnavailable, s.dir)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	header, vectors, err := readVectors(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIndexUnavailable, VectorsFile, err)
	}
	if !validDocstoreName(header.docstore) {
		return nil, fmt.Errorf("%w: %s: bad docstore name %q", domain.ErrIndexUnavailable, VectorsFile, header.docstore)
	}

	chunks, err := readDocstore(ctx, filepath.Join(s.dir, header.docstore))
	if err == nil && len(chunks) != header.count {
		err = fmt.Errorf("%d vectors but %d chunks", header.count, len(chunks))
	}
	if err != nil {
		if s.committed() != header.docstore {
			return nil, errDocstoreGone
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIndexUnavailable, header.docstore, err)
	}

	idx := New(header.model, header.dims)
	idx.chunks = chunks
	idx.vectors = vectors
	for i, c := range chunks {
		idx.ids[c.ID] = i
	}
	return idx, nil
}

// committed returns the docstore named by the current vectors.bin, or "".
func (s *Store) committed() string {
	f, err := os.Open(filepath.Join(s.dir, VectorsFile))
	if err != nil {
		return ""
	}
	defer f.Close()
	h, err := readHeader(bufio.NewReader(f))
	if err != nil {
		return ""
	}
	return h.docstore
}

func validDocstoreName(name string) bool {
	return strings.HasPrefix(name, DocstorePrefix) &&
		strings.HasSuffix(name, docstoreExt) &&
		filepath.Base(name) == name
}

// Save writes a new generation: a fresh docstore, then vectors.bin naming
// it, renamed into place. Docstores older than the previous generation are
// pruned afterwards; the previous one is kept for readers still opening it.
func (s *Store) Save(ctx context.Context, vi driven.VectorIndex) error {
	idx, ok := vi.(*Index)
	if !ok {
		return fmt.Errorf("%w: cannot persist %T", domain.ErrInvalidInput, vi)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	previous := s.committed()
	docName := DocstorePrefix + uuid.NewString() + docstoreExt
	docPath := filepath.Join(s.dir, docName)
	vecTmp := filepath.Join(s.dir, VectorsFile+".tmp")
	committed := false
	defer func() {
		if !committed {
			os.Remove(docPath)
		}
	}()
	defer os.Remove(vecTmp)

	if err := writeDocstore(ctx, docPath, idx.chunks); err != nil {
		return err
	}

	f, err := os.Create(vecTmp)
	if err != nil {
		return fmt.Errorf("creating vectors file: %w", err)
	}
	header := vectorHeader{model: idx.model, dims: idx.dims, count: len(idx.vectors), docstore: docName}
	if err := writeVectors(f, header, idx.vectors); err != nil {
		f.Close()
		return fmt.Errorf("writing vectors: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing vectors: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing vectors file: %w", err)
	}

	if err := os.Rename(vecTmp, filepath.Join(s.dir, VectorsFile)); err != nil {
		return fmt.Errorf("installing vectors: %w", err)
	}
	committed = true

	s.prune(docName, previous)
	return nil
}

// prune removes docstores other than keep.
func (s *Store) prune(keep ...string) {
	stale, err := filepath.Glob(filepath.Join(s.dir, DocstorePrefix+"*"+docstoreExt))
	if err != nil {
		return
	}
	for _, path := range stale {
		if slices.Contains(keep, filepath.Base(path)) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Debug("Removing stale docstore %s: %v", path, err)
		}
	}
}

// Reset deletes the persisted index.
func (s *Store) Reset(_ context.Context) error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing index: %w", err)
	}
	return nil
}
