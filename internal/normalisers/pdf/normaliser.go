// Package pdf provides a normaliser that extracts one segment per PDF page.
package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Document is the page-level view of a PDF the normaliser needs.
type Document interface {
	// NumPage returns the number of pages.
	NumPage() int

	// PageText returns the plain text of a 1-based page.
	PageText(page int) (string, error)

	// Close releases the underlying file.
	Close() error
}

// Opener opens a PDF file for reading.
type Opener func(path string) (Document, error)

// Normaliser handles PDF documents.
type Normaliser struct {
	open Opener
}

// New creates a new PDF normaliser backed by github.com/ledongthuc/pdf.
func New() *Normaliser {
	return &Normaliser{open: openFile}
}

// NewWithOpener creates a PDF normaliser with a custom opener (for testing).
func NewWithOpener(open Opener) *Normaliser {
	return &Normaliser{open: open}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".pdf"}
}

// Load extracts one segment per page with text. Blank pages are skipped.
func (n *Normaliser) Load(ctx context.Context, path string) ([]domain.Segment, error) {
	doc, err := n.open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	var segments []domain.Segment
	for page := 1; page <= doc.NumPage(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.PageText(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			Content: text,
			Provenance: domain.Provenance{
				SourceFile: path,
				Format:     domain.FormatPDF,
				Kind:       domain.KindText,
				Location:   domain.Location{Page: page},
			},
		})
	}
	return segments, nil
}

// fileDocument adapts ledongthuc/pdf to Document.
type fileDocument struct {
	closer interface{ Close() error }
	reader *pdf.Reader
}

func openFile(path string) (Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	return &fileDocument{closer: f, reader: r}, nil
}

func (d *fileDocument) NumPage() int {
	return d.reader.NumPage()
}

func (d *fileDocument) PageText(page int) (text string, err error) {
	// The parser panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page content: %v", r)
		}
	}()
	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func (d *fileDocument) Close() error {
	return d.closer.Close()
}
