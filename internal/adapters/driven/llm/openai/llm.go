// Package openai provides an LLM service adapter for the OpenAI chat
// completions API and compatible endpoints such as Groq.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ray/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL  = "https://api.openai.com/v1"
	DefaultLLMModel = "gpt-4o-mini"
)

// maxStopWords is the most stop sequences the API accepts.
const maxStopWords = 4

// LLMConfig holds configuration for an OpenAI-compatible LLM service.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string

	// Provider names the endpoint in errors and routing (default: openai).
	Provider string

	Timeout time.Duration
}

// LLMService talks to a /chat/completions endpoint.
type LLMService struct {
	client *httpapi.Client
	model  string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// NewLLMService creates an OpenAI-compatible LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	return &LLMService{
		client: httpapi.New(cfg.Provider, cfg.BaseURL, cfg.Timeout, httpapi.WithBearer(cfg.APIKey)),
		model:  cfg.Model,
	}, nil
}

// Chat requests one completion. Stop words beyond the API limit are dropped;
// the reasoning stop token is always first.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := completionRequest{
		Model:       s.model,
		Messages:    make([]message, len(messages)),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.StopWords,
	}
	for i, msg := range messages {
		req.Messages[i] = message{Role: msg.Role, Content: msg.Content}
	}
	if len(req.Stop) > maxStopWords {
		req.Stop = req.Stop[:maxStopWords]
	}

	var resp completionResponse
	if err := s.client.Post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no response choices returned", s.client.Provider())
	}
	return resp.Choices[0].Message.Content, nil
}

// ProviderName returns the configured provider name.
func (s *LLMService) ProviderName() string {
	return s.client.Provider()
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, "/models")
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
