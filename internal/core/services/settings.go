package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/core/ports/driving"
)

// Config keys for settings storage.
const (
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMTimeout       = "llm.timeout_seconds"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyIndexPath        = "index.path"
	keyStorePath        = "store.path"
	keyRetrievalK       = "retrieval.k"
	keyMemoryWindow     = "memory.window"
	keyAgentMaxIter     = "agent.max_iterations"
	keyProviderTemplate = "providers.%s.%s"
)

// Default file names inside the data directory.
const (
	DefaultIndexDir  = "index"
	DefaultStoreFile = "ray.db"
)

// ollamaBaseURLEnv overrides the Ollama endpoint when no base_url is configured.
const ollamaBaseURLEnv = "OLLAMA_BASE_URL"

// Verify interface compliance.
var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService resolves application settings from the config store and
// the environment. API keys are only ever read from the environment.
type SettingsService struct {
	configStore driven.ConfigStore
	dataDir     string
	getenv      func(string) string
}

// NewSettingsService creates a settings service. Relative paths in the
// configuration are resolved against dataDir.
func NewSettingsService(configStore driven.ConfigStore, dataDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		dataDir:     dataDir,
		getenv:      os.Getenv,
	}
}

// Get builds the effective settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := domain.DefaultSettings()

	if p := s.configStore.GetString(keyLLMProvider); p != "" {
		provider := domain.AIProvider(p)
		if !provider.IsValid() {
			return nil, fmt.Errorf("%w: unknown llm.provider %q", domain.ErrInvalidInput, p)
		}
		settings.LLM = domain.LLMSettings{Provider: provider}
	}
	settings.LLM.Model = s.getString(keyLLMModel, settings.LLM.Model)
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}
	settings.LLM.BaseURL = s.configStore.GetString(keyLLMBaseURL)

	// Per-provider overrides apply to the primary and to fallbacks.
	for _, p := range domain.AllLLMProviders() {
		ps := domain.LLMSettings{
			Provider: p,
			Model:    s.configStore.GetString(fmt.Sprintf(keyProviderTemplate, p, "model")),
			BaseURL:  s.configStore.GetString(fmt.Sprintf(keyProviderTemplate, p, "base_url")),
		}
		if ps.Model == "" && ps.BaseURL == "" {
			continue
		}
		settings.Providers[p] = ps
	}
	if ps, ok := settings.Providers[settings.LLM.Provider]; ok {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = ps.BaseURL
		}
		if s.configStore.GetString(keyLLMModel) == "" && ps.Model != "" {
			settings.LLM.Model = ps.Model
		}
	}

	if secs := s.configStore.GetInt(keyLLMTimeout); secs > 0 {
		settings.LLMTimeout = time.Duration(secs) * time.Second
	}

	if p := s.configStore.GetString(keyEmbedProvider); p != "" {
		provider := domain.AIProvider(p)
		if _, ok := domain.DefaultEmbeddingModels()[provider]; !ok {
			return nil, fmt.Errorf("%w: %q cannot produce embeddings", domain.ErrInvalidInput, p)
		}
		settings.Embedding = domain.EmbeddingSettings{
			Provider: provider,
			Model:    domain.DefaultEmbeddingModels()[provider],
		}
	}
	settings.Embedding.Model = s.getString(keyEmbedModel, settings.Embedding.Model)
	settings.Embedding.BaseURL = s.configStore.GetString(keyEmbedBaseURL)

	settings.IndexPath = s.path(keyIndexPath, DefaultIndexDir)
	settings.StorePath = s.path(keyStorePath, DefaultStoreFile)
	settings.RetrievalK = s.getInt(keyRetrievalK, settings.RetrievalK)
	settings.MemoryWindow = s.getInt(keyMemoryWindow, settings.MemoryWindow)
	settings.MaxIterations = s.getInt(keyAgentMaxIter, settings.MaxIterations)

	s.applyEnv(&settings)
	return &settings, nil
}

// SetLLMProvider stores the primary language model.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown LLM provider %q", domain.ErrInvalidInput, provider)
	}
	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}
	if err := s.configStore.Set(keyLLMProvider, provider.String()); err != nil {
		return fmt.Errorf("save llm provider: %w", err)
	}
	if err := s.configStore.Set(keyLLMModel, model); err != nil {
		return fmt.Errorf("save llm model: %w", err)
	}
	return nil
}

// SetEmbedding stores the embedding model. Changing it invalidates the
// existing index, which is then rebuilt on the next ingest.
func (s *SettingsService) SetEmbedding(provider domain.AIProvider, model, baseURL string) error {
	def, ok := domain.DefaultEmbeddingModels()[provider]
	if !ok {
		return fmt.Errorf("%w: %q cannot produce embeddings", domain.ErrInvalidInput, provider)
	}
	if model == "" {
		model = def
	}
	if err := s.configStore.Set(keyEmbedProvider, provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if baseURL != "" {
		if err := s.configStore.Set(keyEmbedBaseURL, baseURL); err != nil {
			return fmt.Errorf("save embedding base_url: %w", err)
		}
	}
	return nil
}

// applyEnv fills API keys and the Ollama endpoint from the environment.
func (s *SettingsService) applyEnv(settings *domain.Settings) {
	settings.LLM.APIKey = s.getenv(settings.LLM.Provider.APIKeyEnv())
	for p, ps := range settings.Providers {
		ps.APIKey = s.getenv(p.APIKeyEnv())
		settings.Providers[p] = ps
	}
	settings.Embedding.APIKey = s.getenv(settings.Embedding.Provider.APIKeyEnv())

	ollama := s.getenv(ollamaBaseURLEnv)
	if ollama == "" {
		return
	}
	if settings.LLM.Provider == domain.AIProviderOllama && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = ollama
	}
	if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = ollama
	}
	fb := settings.Providers[domain.AIProviderOllama]
	if fb.BaseURL == "" {
		fb.Provider = domain.AIProviderOllama
		fb.BaseURL = ollama
		settings.Providers[domain.AIProviderOllama] = fb
	}
}

func (s *SettingsService) getString(key, def string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return def
}

func (s *SettingsService) getInt(key string, def int) int {
	if v := s.configStore.GetInt(key); v > 0 {
		return v
	}
	return def
}

func (s *SettingsService) path(key, def string) string {
	p := s.getString(key, def)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.dataDir, p)
}
