package chunker

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/ray/internal/core/domain"
)

func textSegment(content string) domain.Segment {
	return domain.Segment{
		Content: content,
		Provenance: domain.Provenance{
			SourceFile: "/docs/handbook.md",
			Format:     domain.FormatMarkdown,
			Kind:       domain.KindText,
			Location:   domain.Location{Heading: "Leave"},
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
		if p.ceiling != DefaultCeiling {
			t.Errorf("expected ceiling %d, got %d", DefaultCeiling, p.ceiling)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap >= p.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("ceiling below chunk size is raised", func(t *testing.T) {
		p := New(WithChunkSize(500), WithCeiling(100))
		if p.ceiling != 500 {
			t.Errorf("expected ceiling 500, got %d", p.ceiling)
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1), WithCeiling(0))
		if p.chunkSize != DefaultChunkSize || p.overlap != DefaultChunkOverlap || p.ceiling != DefaultCeiling {
			t.Errorf("expected defaults, got %+v", p)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", New().Name())
	}
}

func TestProcess_ShortSegmentKeptWhole(t *testing.T) {
	seg := textSegment(strings.Repeat("a", DefaultCeiling))

	chunks, err := New().Process(context.Background(), []domain.Segment{seg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != seg.Content {
		t.Error("content should be unchanged")
	}
	if chunks[0].StartOffset != nil {
		t.Error("unsplit chunk should have no start offset")
	}
	if chunks[0].Provenance != seg.Provenance {
		t.Error("provenance should be inherited")
	}
}

func TestProcess_TabularNeverSplit(t *testing.T) {
	row := domain.Segment{
		Content: strings.Repeat("notes: long cell value\n", 200),
		Provenance: domain.Provenance{
			SourceFile: "/docs/staff.csv",
			Format:     domain.FormatCSV,
			Kind:       domain.KindRow,
			Location:   domain.RowLocation(0, ""),
		},
	}
	schema := row
	schema.Provenance.Kind = domain.KindSchema

	chunks, err := New().Process(context.Background(), []domain.Segment{schema, row})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.StartOffset != nil {
			t.Error("tabular chunk should not carry an offset")
		}
	}
}

func TestProcess_LongSegmentSplitAtBoundaries(t *testing.T) {
	var paras []string
	for i := 0; i < 12; i++ {
		paras = append(paras, strings.Repeat("Employees accrue leave monthly. ", 9))
	}
	seg := textSegment(strings.Join(paras, "\n\n"))

	chunks, err := New().Process(context.Background(), []domain.Segment{seg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	prev := -1
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c.Content); n > DefaultChunkSize {
			t.Errorf("chunk %d has %d chars, over the limit", i, n)
		}
		if c.StartOffset == nil {
			t.Fatalf("chunk %d missing start offset", i)
		}
		off := *c.StartOffset
		if !strings.HasPrefix(seg.Content[off:], c.Content) {
			t.Errorf("chunk %d offset %d does not point at its content", i, off)
		}
		if off <= prev {
			t.Errorf("chunk %d offset %d not after previous %d", i, off, prev)
		}
		prev = off
		if strings.HasPrefix(c.Content, " ") || strings.HasSuffix(c.Content, "\n") {
			t.Errorf("chunk %d not trimmed", i)
		}
	}
}

func TestProcess_NoTextLost(t *testing.T) {
	words := make([]string, 600)
	for i := range words {
		words[i] = "w" + strings.Repeat("x", i%7)
	}
	seg := textSegment(strings.Join(words, " "))

	chunks, err := New().Process(context.Background(), []domain.Segment{seg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	covered := make([]bool, len(seg.Content))
	for _, c := range chunks {
		for i := *c.StartOffset; i < *c.StartOffset+len(c.Content); i++ {
			covered[i] = true
		}
	}
	for i, ok := range covered {
		if !ok && seg.Content[i] != ' ' {
			t.Fatalf("byte %d (%q) not covered by any chunk", i, seg.Content[i])
		}
	}
}

func TestProcess_HardSplitWithoutSeparators(t *testing.T) {
	seg := textSegment(strings.Repeat("é", 2500))

	chunks, err := New().Process(context.Background(), []domain.Segment{seg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if !utf8.ValidString(c.Content) {
			t.Error("chunk split inside a rune")
		}
	}
}

func TestProcess_DeterministicIDs(t *testing.T) {
	segs := []domain.Segment{textSegment(strings.Repeat("Policy text. ", 200)), textSegment("short")}

	first, _ := New().Process(context.Background(), segs)
	second, _ := New().Process(context.Background(), segs)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	seen := map[string]bool{}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d ID changed between runs", i)
		}
		if seen[first[i].ID] {
			t.Errorf("duplicate ID %s", first[i].ID)
		}
		seen[first[i].ID] = true
	}
}

func TestProcess_EmptySegmentsSkipped(t *testing.T) {
	chunks, err := New().Process(context.Background(), []domain.Segment{textSegment("  \n ")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().Process(ctx, []domain.Segment{textSegment("x")}); err == nil {
		t.Error("expected context error")
	}
}
