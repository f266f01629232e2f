// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/ray/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ray/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/ray/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/ray/internal/adapters/driven/llm/gemini"
	groqllm "github.com/custodia-labs/ray/internal/adapters/driven/llm/groq"
	ollamallm "github.com/custodia-labs/ray/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ray/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the AI adapters built from settings.
type Services struct {
	// Embedding generates vectors for ingestion and retrieval.
	Embedding driven.EmbeddingService

	// Models is the ordered router chain, primary first.
	Models []driven.LLMService

	// Warnings lists providers that were skipped.
	Warnings []string
}

// Close releases all resources held by Services.
func (s *Services) Close() {
	if s.Embedding != nil {
		s.Embedding.Close()
	}
	for _, m := range s.Models {
		m.Close()
	}
}

// Build creates the embedding service and the LLM chain described by settings.
// Providers that are not configured or cannot be created are skipped with a
// warning; the embedding service is required.
func Build(settings *domain.Settings) (*Services, error) {
	embedding, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if embedding == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}

	result := &Services{Embedding: embedding}
	for _, cfg := range settings.LLMChain() {
		if !cfg.IsConfigured() {
			msg := fmt.Sprintf("skipping %s: not configured", cfg.Provider)
			if env := cfg.Provider.APIKeyEnv(); env != "" {
				msg += fmt.Sprintf(" (set %s)", env)
			}
			logger.Warn("%s", msg)
			result.Warnings = append(result.Warnings, msg)
			continue
		}
		svc, err := CreateLLMService(&cfg, settings.LLMTimeout)
		if err != nil {
			msg := fmt.Sprintf("skipping %s: %v", cfg.Provider, err)
			logger.Warn("%s", msg)
			result.Warnings = append(result.Warnings, msg)
			continue
		}
		logger.Debug("router: %s/%s", svc.ProviderName(), svc.ModelName())
		result.Models = append(result.Models, svc)
	}

	return result, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		if !settings.IsConfigured() {
			return nil, nil
		}
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGroq, domain.AIProviderGemini, domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%s does not support embeddings, use ollama or openai", settings.Provider)

	default:
		return nil, nil
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings, timeout time.Duration) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGroq:
		return groqllm.NewLLMService(groqllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		})

	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// ping runs a bounded connectivity check.
func ping(parent context.Context, p interface{ Ping(context.Context) error }) error {
	ctx, cancel := context.WithTimeout(parent, pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}
