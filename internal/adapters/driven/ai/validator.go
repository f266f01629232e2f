package ai

import (
	"context"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// Check is the outcome of probing one configured provider.
type Check struct {
	// Component is "embedding" or "llm".
	Component string

	// Provider and Model identify what was checked.
	Provider domain.AIProvider
	Model    string

	// Err is nil when the provider answered.
	Err error
}

// OK reports whether the provider is reachable.
func (c Check) OK() bool {
	return c.Err == nil
}

// Validate pings every service in s. Checks run in order: embedding first,
// then each model of the router chain.
func Validate(ctx context.Context, s *Services, settings *domain.Settings) []Check {
	var checks []Check
	if s.Embedding != nil {
		checks = append(checks, Check{
			Component: "embedding",
			Provider:  settings.Embedding.Provider,
			Model:     s.Embedding.ModelName(),
			Err:       ping(ctx, s.Embedding),
		})
	}
	for _, m := range s.Models {
		checks = append(checks, Check{
			Component: "llm",
			Provider:  domain.AIProvider(m.ProviderName()),
			Model:     m.ModelName(),
			Err:       ping(ctx, m),
		})
	}
	return checks
}
