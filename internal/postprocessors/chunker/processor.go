// Package chunker turns normalised segments into indexable chunks,
// splitting long prose at natural boundaries.
package chunker

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultCeiling is the size above which a segment is split.
const DefaultCeiling = 1200

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// chunkNamespace scopes deterministic chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ray:chunk"))

// Processor splits segments into chunks. Tabular segments pass through whole.
type Processor struct {
	ceiling   int
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithCeiling sets the size at or under which segments are kept whole.
func WithCeiling(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.ceiling = size
		}
	}
}

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		ceiling:   DefaultCeiling,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}
	if p.ceiling < p.chunkSize {
		p.ceiling = p.chunkSize
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process converts segments into chunks.
// Empty segments produce no chunks.
func (p *Processor) Process(ctx context.Context, segments []domain.Segment) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0, len(segments))

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seg.IsEmpty() {
			continue
		}

		if seg.Provenance.Kind.IsTabular() || utf8.RuneCountInString(seg.Content) <= p.ceiling {
			chunks = append(chunks, newChunk(seg.Content, seg.Provenance, nil))
			continue
		}

		for _, pc := range p.split(seg.Content) {
			offset := pc.offset
			chunks = append(chunks, newChunk(pc.text, seg.Provenance, &offset))
		}
	}

	return chunks, nil
}

// newChunk builds a chunk with an ID derived from provenance and content,
// so re-ingesting unchanged files yields the same IDs.
func newChunk(content string, prov domain.Provenance, offset *int) domain.Chunk {
	key := fmt.Sprintf("%s\x00%s\x00%s\x00%s", prov.SourceFile, prov.Kind, prov.Location.String(), content)
	if offset != nil {
		key += fmt.Sprintf("\x00%d", *offset)
	}
	return domain.Chunk{
		ID:          uuid.NewSHA1(chunkNamespace, []byte(key)).String(),
		Content:     content,
		Provenance:  prov,
		StartOffset: offset,
	}
}
