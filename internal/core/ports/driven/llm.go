// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// ChatModel is the single capability the core reasons with: turn a list of
// messages into text. Provider adapters and the failover router implement it.
type ChatModel interface {
	// Chat conducts a multi-turn conversation and returns the reply text.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)
}

// LLMService is one concrete language model provider.
//
// Implementations may include:
//   - Groq (OpenAI-compatible cloud inference)
//   - Google Gemini
//   - OpenAI
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	ChatModel

	// ProviderName identifies the provider in logs and aggregate errors.
	ProviderName() string

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// Merge overlays bound options with per-call options.
// Per-call values win for scalars; stop words are unioned.
func (o ChatOptions) Merge(call ChatOptions) ChatOptions {
	out := o
	if call.MaxTokens > 0 {
		out.MaxTokens = call.MaxTokens
	}
	if call.Temperature > 0 {
		out.Temperature = call.Temperature
	}
	seen := make(map[string]bool, len(o.StopWords)+len(call.StopWords))
	out.StopWords = nil
	for _, w := range append(append([]string{}, o.StopWords...), call.StopWords...) {
		if !seen[w] {
			seen[w] = true
			out.StopWords = append(out.StopWords, w)
		}
	}
	return out
}
