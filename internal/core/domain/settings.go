package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGroq is the Groq cloud API (OpenAI-compatible).
	AIProviderGroq AIProvider = "groq"

	// AIProviderGemini is the Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// FallbackLLMProvider is appended to every router unless already primary.
const FallbackLLMProvider = AIProviderOllama

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGroq, AIProviderGemini, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p.IsValid() && !p.IsLocal()
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// APIKeyEnv returns the environment variable holding the provider's key.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderGroq:
		return "GROQ_API_KEY"
	case AIProviderGemini:
		return "GEMINI_API_KEY"
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGroq:
		return "Groq (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider != AIProviderOllama && e.Provider != AIProviderOpenAI {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds the configuration of one LLM provider.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// Settings holds all application settings.
type Settings struct {
	// LLM is the requested primary language model.
	LLM LLMSettings

	// Providers holds per-provider settings used to build fallbacks.
	Providers map[AIProvider]LLMSettings

	// LLMTimeout bounds each individual provider call.
	LLMTimeout time.Duration

	// Embedding is the embedding model used for the index's lifetime.
	Embedding EmbeddingSettings

	// IndexPath is the directory holding the persisted vector index.
	IndexPath string

	// StorePath is the sqlite database holding conversations.
	StorePath string

	// RetrievalK is the number of content chunks retrieved per query.
	RetrievalK int

	// MemoryWindow is the number of exchanges exposed to reasoning.
	MemoryWindow int

	// MaxIterations caps the reasoning loop.
	MaxIterations int
}

// Default tuning values.
const (
	DefaultRetrievalK    = 5
	DefaultMemoryWindow  = 5
	DefaultMaxIterations = 15
	DefaultLLMTimeout    = 60 * time.Second
)

// DefaultSettings returns settings with sensible defaults.
// Paths are left empty; the caller fills them relative to the data directory.
func DefaultSettings() Settings {
	return Settings{
		LLM: LLMSettings{
			Provider: AIProviderGroq,
			Model:    DefaultLLMModels()[AIProviderGroq],
		},
		Providers:  map[AIProvider]LLMSettings{},
		LLMTimeout: DefaultLLMTimeout,
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		RetrievalK:    DefaultRetrievalK,
		MemoryWindow:  DefaultMemoryWindow,
		MaxIterations: DefaultMaxIterations,
	}
}

// LLMChain returns the ordered provider list for the router: the requested
// provider first, then the local fallback unless it is already primary.
func (s Settings) LLMChain() []LLMSettings {
	chain := []LLMSettings{s.LLM}
	if s.LLM.Provider == FallbackLLMProvider {
		return chain
	}
	fallback, ok := s.Providers[FallbackLLMProvider]
	if !ok {
		fallback = LLMSettings{Provider: FallbackLLMProvider}
	}
	if fallback.Model == "" {
		fallback.Model = DefaultLLMModels()[FallbackLLMProvider]
	}
	return append(chain, fallback)
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderGroq,
		AIProviderGemini,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGroq:      "llama-3.3-70b-versatile",
		AIProviderGemini:    "gemini-2.0-flash",
		AIProviderOllama:    "llama3.1",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
