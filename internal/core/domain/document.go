package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies the source file format a segment was extracted from.
type Format string

// Supported source formats.
const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatHTML     Format = "html"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
)

// IsTabular returns true for spreadsheet-like formats.
func (f Format) IsTabular() bool {
	return f == FormatCSV || f == FormatXLSX
}

// SegmentKind distinguishes free text from the synthetic tabular segments.
type SegmentKind string

// Segment kinds.
const (
	// KindText is prose extracted from a document.
	KindText SegmentKind = "text"

	// KindSchema describes the columns and inferred types of a table.
	KindSchema SegmentKind = "schema"

	// KindRow is one table row serialised as "column: value" lines.
	KindRow SegmentKind = "row"
)

// IsTabular returns true for schema and row segments.
// Tabular segments are never split by the chunker.
func (k SegmentKind) IsTabular() bool {
	return k == KindSchema || k == KindRow
}

// Location pinpoints where inside a source file a segment came from.
// Only the fields relevant to the format are set.
type Location struct {
	// Page is the 1-based PDF page number.
	Page int

	// Heading is the section heading (DOCX, Markdown).
	Heading string

	// Paragraph is the 1-based paragraph ordinal (plain text).
	Paragraph int

	// Row is the 0-based data row index of a table.
	// Nil for non-row segments.
	Row *int

	// Sheet is the workbook sheet name (XLSX).
	Sheet string

	// Label is a fixed descriptor such as "Body" or "Schema".
	Label string
}

// RowLocation builds the location of a table row.
func RowLocation(row int, sheet string) Location {
	return Location{Row: &row, Sheet: sheet}
}

// String renders the human-readable location descriptor used in citations.
func (l Location) String() string {
	switch {
	case l.Row != nil && l.Sheet != "":
		return fmt.Sprintf("Row %d (Sheet: %s)", *l.Row, l.Sheet)
	case l.Row != nil:
		return fmt.Sprintf("Row %d", *l.Row)
	case l.Page > 0:
		return fmt.Sprintf("Page %d", l.Page)
	case l.Heading != "":
		return l.Heading
	case l.Paragraph > 0:
		return fmt.Sprintf("Paragraph %d", l.Paragraph)
	case l.Label != "" && l.Sheet != "":
		return fmt.Sprintf("%s (Sheet: %s)", l.Label, l.Sheet)
	case l.Label != "":
		return l.Label
	default:
		return "Unknown"
	}
}

// Provenance records where a piece of text came from.
type Provenance struct {
	// SourceFile is the path of the file the text was loaded from.
	SourceFile string

	// Format is the source file format.
	Format Format

	// Kind is text, schema or row.
	Kind SegmentKind

	// Location is the position within the source file.
	Location Location
}

// FileName returns the base name of the source file.
func (p Provenance) FileName() string {
	return filepath.Base(p.SourceFile)
}

// Segment is an extracted text unit with provenance.
// Segments are created by normalisers and never modified afterwards.
type Segment struct {
	// Content is the extracted text.
	Content string

	// Provenance describes where the text came from.
	Provenance Provenance
}

// IsEmpty returns true if the segment has no visible content.
func (s Segment) IsEmpty() bool {
	return strings.TrimSpace(s.Content) == ""
}

// Chunk is the final indexable unit, one-to-one with a vector record.
type Chunk struct {
	// ID is a deterministic identifier derived from provenance and content.
	ID string

	// Content is the text that is embedded and returned to the reasoner.
	Content string

	// Provenance is inherited from the originating segment.
	Provenance Provenance

	// StartOffset is the byte offset into the segment when the chunk was
	// produced by splitting. Nil when the segment was kept whole.
	StartOffset *int
}

// IsSchema returns true if the chunk describes a table schema.
func (c Chunk) IsSchema() bool {
	return c.Provenance.Kind == KindSchema
}
