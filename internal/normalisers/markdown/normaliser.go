// Package markdown provides a normaliser that splits Markdown files into
// heading-delimited sections.
package markdown

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// IntroLabel names the content before the first heading.
const IntroLabel = "Intro"

var (
	fenceLine    = regexp.MustCompile("^\\s*(```|~~~)")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*)([^*_]+)(\*\*|__|\*)`)
	blockquote   = regexp.MustCompile(`(?m)^>\s?`)
	rule         = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarker   = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
	closingHash  = regexp.MustCompile(`(^|[ \t]+)#+$`)
)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Load reads a Markdown file and emits one segment per heading section.
// Lines starting with '#' outside fenced code blocks begin a new section.
func (n *Normaliser) Load(_ context.Context, path string) ([]domain.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open markdown: %w", err)
	}
	defer f.Close()

	var (
		segments []domain.Segment
		heading  = IntroLabel
		body     []string
		inFence  bool
	)

	flush := func() {
		text := stripMarkdown(strings.Join(body, "\n"))
		// A section with no body still carries its heading text.
		if text == "" && heading != IntroLabel {
			text = heading
		}
		if text != "" {
			segments = append(segments, domain.Segment{
				Content: text,
				Provenance: domain.Provenance{
					SourceFile: path,
					Format:     domain.FormatMarkdown,
					Kind:       domain.KindText,
					Location:   domain.Location{Heading: heading},
				},
			})
		}
		body = body[:0]
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if fenceLine.MatchString(line) {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(line, "#") {
			flush()
			heading = headingText(line)
			if heading == "" {
				heading = IntroLabel
			}
			continue
		}
		body = append(body, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}
	flush()

	return segments, nil
}

// headingText strips the opening '#' run and an optional closing sequence,
// leaving hashes that belong to the title such as "C#".
func headingText(line string) string {
	text := strings.TrimSpace(strings.TrimLeft(line, "#"))
	return strings.TrimSpace(closingHash.ReplaceAllString(text, ""))
}

// stripMarkdown removes inline Markdown syntax while keeping the readable text.
func stripMarkdown(content string) string {
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = emphasis.ReplaceAllString(content, "$2")
	content = blockquote.ReplaceAllString(content, "")
	content = rule.ReplaceAllString(content, "")
	content = listMarker.ReplaceAllString(content, "$1")
	content = multiNewline.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
