package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ray/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ray/internal/core/domain"
)

func newTestSettings(values map[string]any, env map[string]string) *SettingsService {
	s := NewSettingsService(memory.NewConfigStore(values), "/data/ray")
	s.getenv = func(k string) string { return env[k] }
	return s
}

func TestSettingsService_Defaults(t *testing.T) {
	settings, err := newTestSettings(nil, nil).Get()
	require.NoError(t, err)

	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults.LLM.Provider, settings.LLM.Provider)
	assert.Equal(t, defaults.LLM.Model, settings.LLM.Model)
	assert.Equal(t, defaults.Embedding, settings.Embedding)
	assert.Equal(t, domain.DefaultLLMTimeout, settings.LLMTimeout)
	assert.Equal(t, filepath.Join("/data/ray", DefaultIndexDir), settings.IndexPath)
	assert.Equal(t, filepath.Join("/data/ray", DefaultStoreFile), settings.StorePath)
	assert.Equal(t, domain.DefaultRetrievalK, settings.RetrievalK)
	assert.Equal(t, domain.DefaultMemoryWindow, settings.MemoryWindow)
	assert.Equal(t, domain.DefaultMaxIterations, settings.MaxIterations)
}

func TestSettingsService_StoredValues(t *testing.T) {
	settings, err := newTestSettings(map[string]any{
		"llm.provider":         "gemini",
		"llm.timeout_seconds":  int64(20),
		"embedding.provider":   "openai",
		"index.path":           "/var/lib/ray/index",
		"store.path":           "conversations.db",
		"retrieval.k":          int64(8),
		"memory.window":        int64(3),
		"agent.max_iterations": int64(6),
	}, map[string]string{
		"GEMINI_API_KEY": "gem-key",
		"OPENAI_API_KEY": "oa-key",
	}).Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderGemini, settings.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", settings.LLM.Model)
	assert.Equal(t, "gem-key", settings.LLM.APIKey)
	assert.Equal(t, 20*time.Second, settings.LLMTimeout)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, "oa-key", settings.Embedding.APIKey)
	assert.Equal(t, "/var/lib/ray/index", settings.IndexPath)
	assert.Equal(t, filepath.Join("/data/ray", "conversations.db"), settings.StorePath)
	assert.Equal(t, 8, settings.RetrievalK)
	assert.Equal(t, 3, settings.MemoryWindow)
	assert.Equal(t, 6, settings.MaxIterations)
}

func TestSettingsService_InvalidProviders(t *testing.T) {
	_, err := newTestSettings(map[string]any{"llm.provider": "mistral"}, nil).Get()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = newTestSettings(map[string]any{"embedding.provider": "groq"}, nil).Get()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_ProviderOverrides(t *testing.T) {
	settings, err := newTestSettings(map[string]any{
		"llm.provider":              "ollama",
		"providers.ollama.model":    "qwen2.5",
		"providers.ollama.base_url": "http://gpu-box:11434",
		"providers.groq.model":      "llama-3.1-8b-instant",
	}, nil).Get()
	require.NoError(t, err)

	assert.Equal(t, "qwen2.5", settings.LLM.Model)
	assert.Equal(t, "http://gpu-box:11434", settings.LLM.BaseURL)
	assert.Equal(t, "llama-3.1-8b-instant", settings.Providers[domain.AIProviderGroq].Model)

	chain := settings.LLMChain()
	require.Len(t, chain, 1)
}

func TestSettingsService_ExplicitModelBeatsProviderOverride(t *testing.T) {
	settings, err := newTestSettings(map[string]any{
		"llm.provider":           "ollama",
		"llm.model":              "llama3.2",
		"providers.ollama.model": "qwen2.5",
	}, nil).Get()
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", settings.LLM.Model)
}

func TestSettingsService_OllamaEnv(t *testing.T) {
	settings, err := newTestSettings(nil, map[string]string{
		"OLLAMA_BASE_URL": "http://ollama:11434",
		"GROQ_API_KEY":    "groq-key",
	}).Get()
	require.NoError(t, err)

	assert.Equal(t, "groq-key", settings.LLM.APIKey)
	assert.Equal(t, "http://ollama:11434", settings.Embedding.BaseURL)

	chain := settings.LLMChain()
	require.Len(t, chain, 2)
	assert.Equal(t, domain.AIProviderOllama, chain[1].Provider)
	assert.Equal(t, "http://ollama:11434", chain[1].BaseURL)
	assert.Equal(t, "llama3.1", chain[1].Model)
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	store := memory.NewConfigStore(nil)
	s := NewSettingsService(store, "/data")

	require.NoError(t, s.SetLLMProvider(domain.AIProviderAnthropic, ""))
	assert.Equal(t, "anthropic", store.GetString("llm.provider"))
	assert.Equal(t, "claude-3-5-sonnet-latest", store.GetString("llm.model"))

	assert.ErrorIs(t, s.SetLLMProvider("bogus", "x"), domain.ErrInvalidInput)
}

func TestSettingsService_SetEmbedding(t *testing.T) {
	store := memory.NewConfigStore(nil)
	s := NewSettingsService(store, "/data")

	require.NoError(t, s.SetEmbedding(domain.AIProviderOllama, "mxbai-embed-large", "http://localhost:11434"))
	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, "mxbai-embed-large", store.GetString("embedding.model"))
	assert.Equal(t, "http://localhost:11434", store.GetString("embedding.base_url"))

	assert.ErrorIs(t, s.SetEmbedding(domain.AIProviderGroq, "", ""), domain.ErrInvalidInput)
}
