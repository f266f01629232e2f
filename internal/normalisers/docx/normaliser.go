// Package docx provides a normaliser that splits Word documents into
// heading-delimited sections.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// InitialLabel names the content before the first heading.
const InitialLabel = "Initial Information"

// ErrNoDocumentPart indicates the archive has no word/document.xml.
var ErrNoDocumentPart = errors.New("docx: missing word/document.xml")

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".docx"}
}

// Load reads a DOCX file and emits one segment per heading section.
func (n *Normaliser) Load(_ context.Context, path string) ([]domain.Segment, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer reader.Close()

	paras, err := readParagraphs(&reader.Reader)
	if err != nil {
		return nil, err
	}

	return sections(path, paras), nil
}

// paragraph is one w:p element with its style and text.
type paragraph struct {
	style string
	text  string
}

func (p paragraph) isHeading() bool {
	s := strings.ToLower(p.style)
	return strings.HasPrefix(s, "heading") || s == "title"
}

// sections groups paragraphs under the nearest preceding heading.
func sections(path string, paras []paragraph) []domain.Segment {
	var (
		segments []domain.Segment
		heading  = InitialLabel
		body     []string
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text != "" {
			segments = append(segments, domain.Segment{
				Content: text,
				Provenance: domain.Provenance{
					SourceFile: path,
					Format:     domain.FormatDOCX,
					Kind:       domain.KindText,
					Location:   domain.Location{Heading: heading},
				},
			})
		}
		body = nil
	}

	for _, p := range paras {
		if p.isHeading() && strings.TrimSpace(p.text) != "" {
			flush()
			heading = strings.TrimSpace(p.text)
			continue
		}
		body = append(body, p.text)
	}
	flush()

	return segments
}

// readParagraphs extracts paragraphs from word/document.xml in document
// order, including those nested in tables.
func readParagraphs(reader *zip.Reader) ([]paragraph, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open document part: %w", err)
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}
	return nil, ErrNoDocumentPart
}

// parseDocumentXML streams the WordprocessingML body.
// Element names are matched on their local part, ignoring the w: namespace.
func parseDocumentXML(r io.Reader) ([]paragraph, error) {
	dec := xml.NewDecoder(r)
	var (
		paras  []paragraph
		cur    *paragraph
		sb     strings.Builder
		inText bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return paras, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode document part: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				cur = &paragraph{}
				sb.Reset()
			case "pStyle":
				if cur != nil {
					cur.style = attr(t, "val")
				}
			case "t":
				inText = true
			case "tab":
				if cur != nil {
					sb.WriteByte('\t')
				}
			case "br", "cr":
				if cur != nil {
					sb.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if cur != nil {
					cur.text = sb.String()
					paras = append(paras, *cur)
					cur = nil
				}
			}
		case xml.CharData:
			if inText && cur != nil {
				sb.Write(t)
			}
		}
	}
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
