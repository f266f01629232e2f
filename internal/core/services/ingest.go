package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/core/ports/driving"
	"github.com/custodia-labs/ray/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs the ingestion pipeline: normalise, chunk, embed, index,
// persist, and swap the new generation into retrieval. Writes to the index
// hold its inter-process lock, so one ingestion or reset runs at a time
// across every process sharing the index.
type IngestService struct {
	mu        sync.Mutex
	registry  driven.NormaliserRegistry
	chunker   driven.PostProcessor
	manager   *IndexManager
	retrieval *RetrievalEngine
}

// NewIngestService creates an ingestion service.
func NewIngestService(
	registry driven.NormaliserRegistry,
	chunker driven.PostProcessor,
	manager *IndexManager,
	retrieval *RetrievalEngine,
) *IngestService {
	return &IngestService{
		registry:  registry,
		chunker:   chunker,
		manager:   manager,
		retrieval: retrieval,
	}
}

// Ingest loads every file under paths into the index. Unsupported files are
// skipped and unparseable files are reported; neither aborts the run.
func (s *IngestService) Ingest(ctx context.Context, paths ...string) (*driving.IngestReport, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no paths given", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Section("Ingestion")

	files, err := expandPaths(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Found %d files", len(files))

	report := &driving.IngestReport{}
	var segments []domain.Segment
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.registry.Supports(path) {
			logger.Info("Skipping unsupported file %s", path)
			report.Skipped = append(report.Skipped, path)
			continue
		}

		segs, err := s.registry.Load(ctx, path)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			logger.Warn("Failed to parse %s: %v", path, err)
			report.Failed = append(report.Failed, path)
			continue
		}
		logger.Debug("%s: %d segments", path, len(segs))
		report.Files++
		segments = append(segments, segs...)
	}
	report.Segments = len(segments)

	chunks, err := s.chunker.Process(ctx, segments)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.chunker.Name(), err)
	}
	report.Chunks = len(chunks)

	unlock, err := s.manager.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Another process may have saved since this one loaded, so merge into
	// what is on disk now.
	current := s.manager.Open(ctx)

	next, added, err := s.manager.Update(ctx, current, chunks)
	if err != nil {
		return nil, err
	}
	report.Added = added
	report.Total = next.Len()

	if added > 0 {
		if err := s.manager.Save(ctx, next); err != nil {
			return nil, err
		}
	}
	s.retrieval.Swap(next)

	logger.Info("Ingested %d files: %d chunks, %d new, %d total",
		report.Files, report.Chunks, report.Added, report.Total)
	return report, nil
}

// Reset deletes the persisted index and installs an empty one.
func (s *IngestService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.manager.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	empty, err := s.manager.Reset(ctx)
	if err != nil {
		return err
	}
	s.retrieval.Swap(empty)
	return nil
}

// expandPaths resolves files and directories to a sorted list of regular
// files. Hidden files and directories are ignored when walking.
func expandPaths(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			hidden := p != root && strings.HasPrefix(d.Name(), ".")
			if d.IsDir() {
				if hidden {
					return filepath.SkipDir
				}
				return nil
			}
			if !hidden && d.Type().IsRegular() {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}
