package driving

import "github.com/verbatim-labs/verbatim-cli/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings with defaults applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider. An empty
	// model selects the provider's default.
	SetEmbeddingProvider(provider domain.Provider, model, apiKey string) error

	// SetGeneratorProvider configures the answer generator provider. An
	// empty model selects the provider's default.
	SetGeneratorProvider(provider domain.Provider, model, apiKey string) error

	// SetTranscriptionKey stores the speech-to-text API key.
	SetTranscriptionKey(apiKey string) error

	// Validate checks that the current settings are internally consistent.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
