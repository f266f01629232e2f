// Package plaintext provides a normaliser that splits plain text files into
// blank-line delimited paragraphs.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// DefaultMinParagraph is the size under which a paragraph is merged into
// its neighbour rather than emitted on its own.
const DefaultMinParagraph = 50

var blankLine = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

// Normaliser handles plain text documents.
type Normaliser struct {
	minParagraph int
}

// Option configures the plain text normaliser.
type Option func(*Normaliser)

// WithMinParagraph sets the fragment size below which paragraphs are merged.
func WithMinParagraph(n int) Option {
	return func(p *Normaliser) {
		if n >= 0 {
			p.minParagraph = n
		}
	}
}

// New creates a new plain text normaliser.
func New(opts ...Option) *Normaliser {
	n := &Normaliser{minParagraph: DefaultMinParagraph}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".txt", ".text"}
}

// Load reads a text file and emits one segment per merged paragraph.
func (n *Normaliser) Load(_ context.Context, path string) ([]domain.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	if !utf8.Valid(data) {
		data = []byte(strings.ToValidUTF8(string(data), ""))
	}

	paragraphs := n.mergeParagraphs(blankLine.Split(string(data), -1))

	segments := make([]domain.Segment, 0, len(paragraphs))
	for i, p := range paragraphs {
		segments = append(segments, domain.Segment{
			Content: p,
			Provenance: domain.Provenance{
				SourceFile: path,
				Format:     domain.FormatText,
				Kind:       domain.KindText,
				Location:   domain.Location{Paragraph: i + 1},
			},
		})
	}
	return segments, nil
}

// mergeParagraphs carries short fragments forward into the next full
// paragraph. A trailing carry is appended to the last paragraph, or emitted
// alone when the file has nothing else.
func (n *Normaliser) mergeParagraphs(raw []string) []string {
	var (
		merged []string
		carry  []string
	)
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) < n.minParagraph {
			carry = append(carry, p)
			continue
		}
		merged = append(merged, strings.Join(append(carry, p), "\n"))
		carry = nil
	}
	if len(carry) > 0 {
		tail := strings.Join(carry, "\n")
		if len(merged) == 0 {
			return []string{tail}
		}
		merged[len(merged)-1] += "\n" + tail
	}
	return merged
}
