// Package groq provides an LLM service adapter for Groq, whose API is
// OpenAI-compatible.
package groq

import (
	"time"

	"github.com/custodia-labs/ray/internal/adapters/driven/llm/openai"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

// Config holds configuration for the Groq LLM service.
type Config struct {
	// APIKey is the Groq API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.groq.com/openai/v1).
	BaseURL string

	// Model is the LLM model to use (default: llama-3.3-70b-versatile).
	Model string

	// Timeout is the request timeout.
	Timeout time.Duration
}

// NewLLMService creates a Groq-backed LLM service.
func NewLLMService(cfg Config) (*openai.LLMService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return openai.NewLLMService(openai.LLMConfig{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Provider: "groq",
		Timeout:  cfg.Timeout,
	})
}
