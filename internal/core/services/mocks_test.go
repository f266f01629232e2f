package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockChatModel implements driven.LLMService with a scripted reply function.
type mockChatModel struct {
	name  string
	reply func(prompt string, opts driven.ChatOptions) (string, error)

	mu    sync.Mutex
	calls []string
	opts  []driven.ChatOptions
}

func (m *mockChatModel) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var prompt strings.Builder
	for _, msg := range messages {
		prompt.WriteString(msg.Content)
	}
	m.mu.Lock()
	m.calls = append(m.calls, prompt.String())
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.reply(prompt.String(), opts)
}

func (m *mockChatModel) ProviderName() string         { return m.name }
func (m *mockChatModel) ModelName() string            { return m.name + "-model" }
func (m *mockChatModel) Ping(_ context.Context) error { return nil }
func (m *mockChatModel) Close() error                 { return nil }

func (m *mockChatModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// fixedModel always answers with out.
func fixedModel(name, out string) *mockChatModel {
	return &mockChatModel{name: name, reply: func(string, driven.ChatOptions) (string, error) {
		return out, nil
	}}
}

// failingModel always fails with err.
func failingModel(name string, err error) *mockChatModel {
	return &mockChatModel{name: name, reply: func(string, driven.ChatOptions) (string, error) {
		return "", err
	}}
}

// scriptedModel replies with outputs in order, repeating the last one.
func scriptedModel(name string, outputs ...string) *mockChatModel {
	var mu sync.Mutex
	i := 0
	return &mockChatModel{name: name, reply: func(string, driven.ChatOptions) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		out := outputs[min(i, len(outputs)-1)]
		i++
		return out, nil
	}}
}

// mockEmbedder is a bag-of-words embedder: every distinct word gets its own
// dimension, so texts sharing words have positive similarity.
type mockEmbedder struct {
	model string
	dims  int
	err   error

	mu    sync.Mutex
	vocab map[string]int
	calls int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{model: "bow-test", dims: 512, vocab: make(map[string]int)}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	vec := make([]float32, m.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		i, ok := m.vocab[w]
		if !ok {
			i = len(m.vocab) % m.dims
			m.vocab[w] = i
		}
		vec[i]++
	}
	return vec, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return m.dims }
func (m *mockEmbedder) ModelName() string            { return m.model }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockPromptStore implements driven.PromptStore over a map.
type mockPromptStore struct {
	prompts map[string]string
}

func newMockPromptStore() *mockPromptStore {
	return &mockPromptStore{prompts: map[string]string{
		driven.PromptIntent:     "INTENT\n{{.History}}\nQuery: {{.Query}}",
		driven.PromptAgent:      "AGENT\nTools:\n{{.Tools}}\nHistory:\n{{.History}}\nQuestion: [Intent: {{.Intent}}] {{.Query}}\nThought:{{.Scratchpad}}",
		driven.PromptDocumentQA: "DOCQA\n{{.Context}}\nQuestion: {{.Query}}",
	}}
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("unknown prompt " + name)
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockTool implements driven.Tool.
type mockTool struct {
	result domain.ToolResult
	err    error

	mu     sync.Mutex
	inputs []string
}

func (m *mockTool) Invoke(_ context.Context, input string, _ []domain.Turn) (domain.ToolResult, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()
	return m.result, m.err
}

func (m *mockTool) invoked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// mockTurnStore wraps a driven.TurnStore and can fail on demand.
type mockTurnStore struct {
	driven.TurnStore
	appendErr error
	recentErr error
}

func (m *mockTurnStore) Append(ctx context.Context, id string, turns ...domain.Turn) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	return m.TurnStore.Append(ctx, id, turns...)
}

func (m *mockTurnStore) Recent(ctx context.Context, id string, limit int) ([]domain.Turn, error) {
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	return m.TurnStore.Recent(ctx, id, limit)
}

// mockVectorStore implements driven.VectorStore in memory around a factory.
type mockVectorStore struct {
	empty   func(model string, dims int) driven.VectorIndex
	saved   driven.VectorIndex
	loadErr error
	saves   int
	resets  int
	locks   int
}

func (m *mockVectorStore) Exists() bool { return m.saved != nil || m.loadErr != nil }

func (m *mockVectorStore) Load(_ context.Context) (driven.VectorIndex, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.saved == nil {
		return nil, domain.ErrIndexUnavailable
	}
	return m.saved, nil
}

func (m *mockVectorStore) Empty(model string, dims int) driven.VectorIndex {
	return m.empty(model, dims)
}

func (m *mockVectorStore) Save(_ context.Context, idx driven.VectorIndex) error {
	m.saves++
	m.saved = idx
	return nil
}

func (m *mockVectorStore) Reset(_ context.Context) error {
	m.resets++
	m.saved = nil
	m.loadErr = nil
	return nil
}

func (m *mockVectorStore) Lock(_ context.Context) (func() error, error) {
	m.locks++
	return func() error { return nil }, nil
}

func (m *mockVectorStore) Path() string { return "mem://index" }
