package normalisers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/normalisers/docx"
	"github.com/custodia-labs/ray/internal/normalisers/html"
	"github.com/custodia-labs/ray/internal/normalisers/markdown"
	"github.com/custodia-labs/ray/internal/normalisers/pdf"
	"github.com/custodia-labs/ray/internal/normalisers/plaintext"
	"github.com/custodia-labs/ray/internal/normalisers/tabular"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches files to normalisers by extension.
type Registry struct {
	mu    sync.RWMutex
	byExt map[string]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]driven.Normaliser)}
}

// NewDefaultRegistry creates a registry with every built-in normaliser.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(markdown.New())
	r.Register(plaintext.New())
	r.Register(html.New())
	r.Register(tabular.New())
	return r
}

// Register adds a normaliser, replacing any earlier one for the same extension.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range n.Extensions() {
		r.byExt[strings.ToLower(ext)] = n
	}
}

// Supports reports whether a path's extension has a normaliser.
func (r *Registry) Supports(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// SupportedExtensions returns all registered extensions, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load parses a file with the normaliser registered for its extension.
func (r *Registry) Load(ctx context.Context, path string) ([]domain.Segment, error) {
	n, ok := r.lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Ext(path))
	}

	segments, err := n.Load(ctx, path)
	if err != nil {
		var pe *domain.ParseError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &domain.ParseError{Path: path, Err: err}
	}
	return segments, nil
}

func (r *Registry) lookup(path string) (driven.Normaliser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return n, ok
}
