package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/logger"
)

// Ensure LLMRouter can stand in for a single model.
var _ driven.ChatModel = (*LLMRouter)(nil)

// namedModel is implemented by models that can report their provider.
type namedModel interface {
	ProviderName() string
}

// LLMRouter tries an ordered list of chat models until one answers.
// Failover is strictly sequential and every attempt has its own timeout.
type LLMRouter struct {
	models  []driven.ChatModel
	timeout time.Duration
	bound   driven.ChatOptions
}

// NewLLMRouter creates a router over models in priority order.
// A non-positive timeout uses domain.DefaultLLMTimeout.
func NewLLMRouter(timeout time.Duration, models ...driven.ChatModel) *LLMRouter {
	if timeout <= 0 {
		timeout = domain.DefaultLLMTimeout
	}
	return &LLMRouter{models: models, timeout: timeout}
}

// Bind returns a router that merges opts into every call to every provider.
// The receiver is unchanged.
func (r *LLMRouter) Bind(opts driven.ChatOptions) *LLMRouter {
	return &LLMRouter{
		models:  r.models,
		timeout: r.timeout,
		bound:   r.bound.Merge(opts),
	}
}

// Providers returns the provider names in the order they are tried.
func (r *LLMRouter) Providers() []string {
	names := make([]string, len(r.models))
	for i, m := range r.models {
		names[i] = providerName(i, m)
	}
	return names
}

// Len returns the number of providers.
func (r *LLMRouter) Len() int {
	return len(r.models)
}

// Chat implements driven.ChatModel by delegating to Invoke.
func (r *LLMRouter) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return r.Invoke(ctx, messages, opts)
}

// Invoke sends messages to each provider in order and returns the first
// answer. When all fail it returns a *domain.ExhaustedError listing every
// failure.
func (r *LLMRouter) Invoke(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if len(r.models) == 0 {
		return "", domain.ErrLLMUnavailable
	}
	opts = r.bound.Merge(opts)

	failures := make([]*domain.ProviderError, 0, len(r.models))
	for i, m := range r.models {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		name := providerName(i, m)
		out, err := r.attempt(ctx, m, messages, opts)
		if err == nil {
			if i > 0 {
				logger.Info("LLM answered by fallback %s", name)
			}
			return out, nil
		}

		logger.Warn("LLM %s failed: %v", name, err)
		failures = append(failures, &domain.ProviderError{Provider: name, Err: err})
	}

	return "", &domain.ExhaustedError{Failures: failures}
}

func (r *LLMRouter) attempt(
	ctx context.Context,
	m driven.ChatModel,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := m.Chat(callCtx, messages, opts)
	if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return "", fmt.Errorf("timed out after %s: %w", r.timeout, err)
	}
	return out, err
}

func providerName(i int, m driven.ChatModel) string {
	if n, ok := m.(namedModel); ok {
		return n.ProviderName()
	}
	return fmt.Sprintf("provider %d", i+1)
}
