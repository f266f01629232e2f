// Package gemini provides an LLM service adapter for the Google Gemini
// generateContent REST API.
package gemini

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/ray/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
)

// maxStopSequences is the most stop sequences the API accepts.
const maxStopSequences = 5

// Config holds configuration for the Gemini LLM service.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService talks to models/{model}:generateContent. The API key travels
// as the key query parameter.
type LLMService struct {
	client *httpapi.Client
	model  string
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     float64  `json:"temperature,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// NewLLMService creates a Gemini LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &LLMService{
		client: httpapi.New("gemini", cfg.BaseURL, cfg.Timeout, httpapi.WithQuery("key", cfg.APIKey)),
		model:  cfg.Model,
	}, nil
}

// Chat sends the conversation with assistant turns in the "model" role and
// system messages as the system instruction.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var req generateRequest
	var system []string
	for _, msg := range messages {
		switch msg.Role {
		case driven.RoleSystem:
			system = append(system, msg.Content)
		case driven.RoleAssistant:
			req.Contents = append(req.Contents, content{Role: "model", Parts: []part{{Text: msg.Content}}})
		default:
			req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &content{Parts: []part{{Text: strings.Join(system, "\n\n")}}}
	}
	if opts.MaxTokens > 0 || opts.Temperature > 0 || len(opts.StopWords) > 0 {
		stops := opts.StopWords
		if len(stops) > maxStopSequences {
			stops = stops[:maxStopSequences]
		}
		req.GenerationConfig = &generationConfig{
			MaxOutputTokens: opts.MaxTokens,
			Temperature:     opts.Temperature,
			StopSequences:   stops,
		}
	}

	var resp generateResponse
	if err := s.client.Post(ctx, s.modelPath()+":generateContent", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates returned")
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}

func (s *LLMService) modelPath() string {
	return "/models/" + url.PathEscape(s.model)
}

// ProviderName returns "gemini".
func (s *LLMService) ProviderName() string {
	return s.client.Provider()
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping fetches the configured model's metadata, which checks the key and
// that the model exists.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, s.modelPath())
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
