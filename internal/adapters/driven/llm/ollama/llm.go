// Package ollama provides an LLM service adapter for a local Ollama server.
package ollama

import (
	"context"
	"time"

	"github.com/custodia-labs/ray/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL  = "http://localhost:11434"
	DefaultLLMModel = "llama3.1"
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService is the local fallback model at the end of the router chain.
type LLMService struct {
	client *httpapi.Client
	model  string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generateOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// chatRequest is the /api/chat body. Streaming is always off.
type chatRequest struct {
	Model    string           `json:"model"`
	Messages []chatMessage    `json:"messages"`
	Stream   bool             `json:"stream"`
	Options  *generateOptions `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// NewLLMService creates an Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	return &LLMService{
		client: httpapi.New("ollama", cfg.BaseURL, cfg.Timeout),
		model:  cfg.Model,
	}
}

// Chat sends the conversation to /api/chat. Generation options are sent only
// when one is set, leaving the model's own defaults otherwise.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := chatRequest{Model: s.model, Messages: make([]chatMessage, len(messages))}
	for i, msg := range messages {
		req.Messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}
	if opts.MaxTokens > 0 || opts.Temperature > 0 || len(opts.StopWords) > 0 {
		req.Options = &generateOptions{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
			Stop:        opts.StopWords,
		}
	}

	var resp chatResponse
	if err := s.client.Post(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// ProviderName returns "ollama".
func (s *LLMService) ProviderName() string {
	return s.client.Provider()
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists local models, which succeeds whenever the server is up.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, "/api/tags")
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
