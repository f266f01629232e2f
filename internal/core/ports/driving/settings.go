package driving

import "github.com/custodia-labs/ray/internal/core/domain"

// SettingsService reads and updates application settings.
type SettingsService interface {
	// Get builds the effective settings from configuration and environment.
	Get() (*domain.Settings, error)

	// SetLLMProvider stores the primary language model.
	SetLLMProvider(provider domain.AIProvider, model string) error

	// SetEmbedding stores the embedding model used for new indexes.
	SetEmbedding(provider domain.AIProvider, model, baseURL string) error
}
