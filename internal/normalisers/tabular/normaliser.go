// Package tabular provides a normaliser for CSV and Excel workbooks that
// emits one schema segment per sheet and one segment per non-empty row.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// SchemaLabel is the location label of schema segments.
const SchemaLabel = "Schema"

// Normaliser handles CSV and Excel documents.
type Normaliser struct{}

// New creates a new tabular normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
// Legacy .xls is routed here but only Office Open XML workbooks parse.
func (n *Normaliser) Extensions() []string {
	return []string{".csv", ".xlsx", ".xls"}
}

// Load reads the table(s) in a file.
func (n *Normaliser) Load(ctx context.Context, path string) ([]domain.Segment, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		rows, err := readCSV(path)
		if err != nil {
			return nil, err
		}
		return tableSegments(path, domain.FormatCSV, "", rows), nil
	}
	return n.loadWorkbook(ctx, path)
}

func (n *Normaliser) loadWorkbook(ctx context.Context, path string) ([]domain.Segment, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var segments []domain.Segment
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		segments = append(segments, tableSegments(path, domain.FormatXLSX, sheet, rows)...)
	}
	return segments, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
}

// tableSegments converts a header row plus data rows into segments.
// A sheet with no header yields nothing.
func tableSegments(path string, format domain.Format, sheet string, rows [][]string) []domain.Segment {
	if len(rows) == 0 {
		return nil
	}
	columns := headerNames(rows[0])
	data := rows[1:]

	segments := make([]domain.Segment, 0, len(data)+1)
	segments = append(segments, domain.Segment{
		Content: schemaText(filepath.Base(path), sheet, columns, data),
		Provenance: domain.Provenance{
			SourceFile: path,
			Format:     format,
			Kind:       domain.KindSchema,
			Location:   domain.Location{Label: SchemaLabel, Sheet: sheet},
		},
	})

	for idx, row := range data {
		text := rowText(columns, row)
		if text == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			Content: text,
			Provenance: domain.Provenance{
				SourceFile: path,
				Format:     format,
				Kind:       domain.KindRow,
				Location:   domain.RowLocation(idx, sheet),
			},
		})
	}
	return segments
}

// headerNames trims header cells and names blank ones positionally.
func headerNames(header []string) []string {
	cols := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		cols[i] = h
	}
	return cols
}

func schemaText(file, sheet string, columns []string, data [][]string) string {
	var sb strings.Builder
	sb.WriteString("Schema for ")
	sb.WriteString(file)
	if sheet != "" {
		fmt.Fprintf(&sb, " (Sheet: %s)", sheet)
	}
	sb.WriteString(":\nColumns:")
	for i, col := range columns {
		fmt.Fprintf(&sb, "\n- %s (%s)", col, inferType(column(data, i)))
	}
	return sb.String()
}

// rowText serialises non-null cells as "column: value" lines.
// Cells beyond the header width are ignored.
func rowText(columns, row []string) string {
	var lines []string
	for i, col := range columns {
		if i >= len(row) || isNull(row[i]) {
			continue
		}
		lines = append(lines, col+": "+strings.TrimSpace(row[i]))
	}
	return strings.Join(lines, "\n")
}

func column(data [][]string, i int) []string {
	vals := make([]string, 0, len(data))
	for _, row := range data {
		if i < len(row) {
			vals = append(vals, row[i])
		} else {
			vals = append(vals, "")
		}
	}
	return vals
}
