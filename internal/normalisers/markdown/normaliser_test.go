package markdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ray/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestExtensions(t *testing.T) {
	assert.ElementsMatch(t, []string{".md", ".markdown"}, New().Extensions())
}

func TestLoad_SplitsAtHeadings(t *testing.T) {
	path := writeFile(t, "handbook.md", `Welcome to the handbook.

# Annual Leave
Employees get **25 days** of leave.

## Sick Leave
See [the policy](https://intranet/sick) for details.
- Notify your manager
- Submit a form
`)

	segments, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.Equal(t, "Intro", segments[0].Provenance.Location.String())
	assert.Equal(t, "Welcome to the handbook.", segments[0].Content)

	assert.Equal(t, "Annual Leave", segments[1].Provenance.Location.Heading)
	assert.Equal(t, "Employees get 25 days of leave.", segments[1].Content)

	assert.Equal(t, "Sick Leave", segments[2].Provenance.Location.String())
	assert.Contains(t, segments[2].Content, "See the policy for details.")
	assert.Contains(t, segments[2].Content, "Notify your manager")
	assert.NotContains(t, segments[2].Content, "https://intranet")

	for _, s := range segments {
		assert.Equal(t, domain.FormatMarkdown, s.Provenance.Format)
		assert.Equal(t, domain.KindText, s.Provenance.Kind)
		assert.Equal(t, path, s.Provenance.SourceFile)
	}
}

func TestLoad_HashInsideCodeFenceIsNotHeading(t *testing.T) {
	path := writeFile(t, "setup.md", "# Setup\nRun this:\n```\n# install deps\nmake deps\n```\n")

	segments, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "Setup", segments[0].Provenance.Location.Heading)
	assert.Contains(t, segments[0].Content, "# install deps")
	assert.Contains(t, segments[0].Content, "make deps")
}

func TestLoad_HeadingWithoutBodyKeepsItsText(t *testing.T) {
	path := writeFile(t, "empty.md", "\n\n# One\n\n# Two\nbody\n")

	segments, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "One", segments[0].Provenance.Location.Heading)
	assert.Equal(t, "One", segments[0].Content)
	assert.Equal(t, "Two", segments[1].Provenance.Location.Heading)
	assert.Equal(t, "body", segments[1].Content)
}

func TestHeadingText(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"# C#", "C#"},
		{"## F# and C#", "F# and C#"},
		{"### Closed heading ###", "Closed heading"},
		{"#  Spaced\t", "Spaced"},
		{"#", ""},
		{"## ##", ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, headingText(tt.line))
		})
	}
}

func TestLoad_HeadingEndingInHash(t *testing.T) {
	path := writeFile(t, "lang.md", "# C#\nWe write services in C#.\n")

	segments, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "C#", segments[0].Provenance.Location.Heading)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "nope.md"))
	assert.Error(t, err)
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"inline code", "use `go test`", "use go test"},
		{"image keeps alt", "![diagram](a.png)", "diagram"},
		{"bold", "**bold** text", "bold text"},
		{"quote", "> quoted", "quoted"},
		{"rule", "a\n---\nb", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripMarkdown(tt.input))
		})
	}
}
