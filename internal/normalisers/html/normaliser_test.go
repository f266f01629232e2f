package html

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ray/internal/core/domain"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExtensions(t *testing.T) {
	assert.ElementsMatch(t, []string{".html", ".htm"}, New().Extensions())
}

func TestLoad_ExtractsVisibleText(t *testing.T) {
	path := writeFile(t, `<!DOCTYPE html>
<html>
<head>
  <title>Expense Policy</title>
  <style>body { color: red; }</style>
  <script>var secret = "do not index";</script>
</head>
<body>
  <h1>Expenses</h1>
  <p>Claims over &pound;50 need <b>manager</b> approval.</p>
  <ul><li>Travel</li><li>Meals</li></ul>
  <noscript>Enable JavaScript</noscript>
</body>
</html>`)

	segments, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, segments, 1)

	seg := segments[0]
	assert.Equal(t, "Body", seg.Provenance.Location.String())
	assert.Equal(t, domain.FormatHTML, seg.Provenance.Format)
	assert.Contains(t, seg.Content, "Expense Policy")
	assert.Contains(t, seg.Content, "Expenses")
	assert.Contains(t, seg.Content, "Claims over £50 need manager approval.")
	assert.Contains(t, seg.Content, "Travel\nMeals")
	assert.NotContains(t, seg.Content, "secret")
	assert.NotContains(t, seg.Content, "color: red")
	assert.NotContains(t, seg.Content, "Enable JavaScript")
	assert.NotContains(t, seg.Content, "<")
}

func TestLoad_NoVisibleText(t *testing.T) {
	path := writeFile(t, `<html><head><script>x()</script></head><body></body></html>`)

	segments, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestExtractText_CollapsesWhitespace(t *testing.T) {
	text, err := extractText(strings.NewReader("<p>a    b</p>\n\n\n<p>  c </p>"))
	require.NoError(t, err)
	assert.Equal(t, "a b\nc", text)
}
