package html

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	xhtml "golang.org/x/net/html"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// BodyLabel is the location descriptor of the extracted text.
const BodyLabel = "Body"

var (
	spaceRun   = regexp.MustCompile(`[ \t\f\r]+`)
	blankLines = regexp.MustCompile(`\n\s*\n+`)
)

// hiddenTags never contribute text.
var hiddenTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
}

// blockTags end the current line of text.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"title": true, "section": true, "article": true, "header": true,
	"footer": true, "table": true, "ul": true, "ol": true, "blockquote": true,
	"pre": true, "hr": true, "td": true, "th": true, "dt": true, "dd": true,
}

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".html", ".htm"}
}

// Load reads an HTML file and returns its visible text as one body segment.
func (n *Normaliser) Load(_ context.Context, path string) ([]domain.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open html: %w", err)
	}
	defer f.Close()

	text, err := extractText(f)
	if err != nil {
		return nil, fmt.Errorf("tokenise html: %w", err)
	}
	if text == "" {
		return nil, nil
	}

	return []domain.Segment{{
		Content: text,
		Provenance: domain.Provenance{
			SourceFile: path,
			Format:     domain.FormatHTML,
			Kind:       domain.KindText,
			Location:   domain.Location{Label: BodyLabel},
		},
	}}, nil
}

// extractText walks the token stream and keeps visible text.
// Entities are decoded by the tokenizer.
func extractText(r io.Reader) (string, error) {
	z := xhtml.NewTokenizer(r)
	var (
		sb     strings.Builder
		hidden int
	)

	for {
		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return normaliseWhitespace(sb.String()), nil
			}
			return "", z.Err()

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if hiddenTags[tag] && tt == xhtml.StartTagToken {
				hidden++
			}
			if blockTags[tag] {
				sb.WriteByte('\n')
			}

		case xhtml.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if hiddenTags[tag] && hidden > 0 {
				hidden--
			}
			if blockTags[tag] {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}

		case xhtml.TextToken:
			if hidden == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func normaliseWhitespace(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
