package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".ray", "prompts"), store.Dir())
}

func TestDefaultPrompts_AreValidTemplates(t *testing.T) {
	for _, name := range PromptNames() {
		t.Run(name, func(t *testing.T) {
			text, ok := DefaultPrompt(name)
			require.True(t, ok)
			_, err := template.New(name).Parse(text)
			assert.NoError(t, err)
		})
	}
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptIntent)
	require.NoError(t, err)

	for _, f := range []string{"intent.txt", "agent.txt", "document_qa.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_ReturnsDefaultContent(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAgent)

	require.NoError(t, err)
	assert.Contains(t, prompt, "Final Answer:")
	assert.Contains(t, prompt, "{{.Scratchpad}}")
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Classify {{.Query}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intent.txt"), []byte(custom), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptIntent)

	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_EmptyFileFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intent.txt"), []byte("  \n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptIntent)
	require.NoError(t, err)
	assert.Contains(t, prompt, "POLICY_LOOKUP")
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptDocumentQA) // Trigger init
	require.NoError(t, os.Remove(filepath.Join(dir, "document_qa.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptDocumentQA)

	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.Context}}")
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent_prompt")
}

func TestPromptStore_Reload_ClearsCache(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptIntent)
	require.NoError(t, err)

	modified := "modified {{.Query}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intent.txt"), []byte(modified), 0600))

	cached, err := store.Load(driven.PromptIntent)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()

	prompt, err := store.Load(driven.PromptIntent)
	require.NoError(t, err)
	assert.Equal(t, modified, prompt)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)

	results := make(chan string, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptAgent)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results <- prompt
		}()
	}
	wg.Wait()
	close(results)

	var first string
	for prompt := range results {
		if first == "" {
			first = prompt
		}
		assert.Equal(t, first, prompt)
	}
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	custom := "pre-existing custom prompt"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agent.txt"), []byte(custom), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, _ = store.Load(driven.PromptIntent)

	data, err := os.ReadFile(filepath.Join(dir, "agent.txt"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}
