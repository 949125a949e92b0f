package services

import (
	"fmt"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyGenProvider       = "generator.provider"
	keyGenModel          = "generator.model"
	keyGenBaseURL        = "generator.base_url"
	keyGenAPIKey         = "generator.api_key"
	keyTranscribeAPIKey  = "transcription.api_key"
	keyChunkMaxChars     = "chunking.max_chars"
	keyChunkMaxUtts      = "chunking.max_utterances"
	keyChunkContext      = "chunking.context_window"
	keyRetrievalTopK     = "retrieval.top_k"
	keyRetrievalMinScore = "retrieval.min_score"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		Generator: domain.GeneratorSettings{
			Provider: s.getProvider(keyGenProvider, defaults.Generator.Provider),
			Model:    s.getString(keyGenModel, defaults.Generator.Model),
			BaseURL:  s.configStore.GetString(keyGenBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyGenAPIKey),
		},
		Transcription: domain.TranscriptionSettings{
			APIKey: s.configStore.GetString(keyTranscribeAPIKey),
		},
		Chunking: domain.ChunkingSettings{
			MaxChars:      s.getInt(keyChunkMaxChars, defaults.Chunking.MaxChars),
			MaxUtterances: s.getInt(keyChunkMaxUtts, defaults.Chunking.MaxUtterances),
			ContextWindow: s.configStore.GetInt(keyChunkContext), // Zero default means no carried context
		},
		Retrieval: domain.RetrievalSettings{
			TopK:     s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			MinScore: s.configStore.GetFloat(keyRetrievalMinScore),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	// Save embedding settings
	if err := s.configStore.Set(keyEmbedProvider, settings.Embedding.Provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, settings.Embedding.Model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if err := s.configStore.Set(keyEmbedBaseURL, settings.Embedding.BaseURL); err != nil {
		return fmt.Errorf("save embedding base_url: %w", err)
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	// Save generator settings
	if err := s.configStore.Set(keyGenProvider, settings.Generator.Provider.String()); err != nil {
		return fmt.Errorf("save generator provider: %w", err)
	}
	if err := s.configStore.Set(keyGenModel, settings.Generator.Model); err != nil {
		return fmt.Errorf("save generator model: %w", err)
	}
	if err := s.configStore.Set(keyGenBaseURL, settings.Generator.BaseURL); err != nil {
		return fmt.Errorf("save generator base_url: %w", err)
	}
	if settings.Generator.APIKey != "" {
		if err := s.configStore.Set(keyGenAPIKey, settings.Generator.APIKey); err != nil {
			return fmt.Errorf("save generator api_key: %w", err)
		}
	}

	// Save transcription settings
	if settings.Transcription.APIKey != "" {
		if err := s.configStore.Set(keyTranscribeAPIKey, settings.Transcription.APIKey); err != nil {
			return fmt.Errorf("save transcription api_key: %w", err)
		}
	}

	// Save chunking settings
	if err := s.configStore.Set(keyChunkMaxChars, settings.Chunking.MaxChars); err != nil {
		return fmt.Errorf("save chunking max_chars: %w", err)
	}
	if err := s.configStore.Set(keyChunkMaxUtts, settings.Chunking.MaxUtterances); err != nil {
		return fmt.Errorf("save chunking max_utterances: %w", err)
	}
	if err := s.configStore.Set(keyChunkContext, settings.Chunking.ContextWindow); err != nil {
		return fmt.Errorf("save chunking context_window: %w", err)
	}

	// Save retrieval settings
	if err := s.configStore.Set(keyRetrievalTopK, settings.Retrieval.TopK); err != nil {
		return fmt.Errorf("save retrieval top_k: %w", err)
	}
	if err := s.configStore.Set(keyRetrievalMinScore, settings.Retrieval.MinScore); err != nil {
		return fmt.Errorf("save retrieval min_score: %w", err)
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.Provider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
			settings.Embedding.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetGeneratorProvider configures the answer generator provider.
func (s *SettingsService) SetGeneratorProvider(provider domain.Provider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid generator provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Generator.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Generator.Model = model
	} else {
		if defaultModel, ok := domain.DefaultGeneratorModels()[provider]; ok {
			settings.Generator.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.Generator.BaseURL == "" {
			settings.Generator.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Generator.BaseURL = ""
	}

	settings.Generator.APIKey = apiKey

	return s.Save(settings)
}

// SetTranscriptionKey stores the speech-to-text API key.
func (s *SettingsService) SetTranscriptionKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("transcription API key must not be empty")
	}
	return s.configStore.Set(keyTranscribeAPIKey, apiKey)
}

// Validate checks if current settings are internally consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not fully configured", settings.Embedding.Provider)
	}
	if !settings.Generator.Provider.IsValid() {
		return fmt.Errorf("invalid generator provider: %s", settings.Generator.Provider)
	}
	if settings.Chunking.MaxChars <= 0 {
		return fmt.Errorf("chunking max_chars must be positive, got %d", settings.Chunking.MaxChars)
	}
	if settings.Chunking.MaxUtterances <= 0 {
		return fmt.Errorf("chunking max_utterances must be positive, got %d", settings.Chunking.MaxUtterances)
	}
	if settings.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval top_k must be >= 1, got %d", settings.Retrieval.TopK)
	}
	if settings.Retrieval.MinScore < -1 || settings.Retrieval.MinScore > 1 {
		return fmt.Errorf("retrieval min_score must be in [-1, 1], got %g", settings.Retrieval.MinScore)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// EmbeddingDimension returns the vector size for the configured embedding
// model, or zero when the model is unknown.
func (s *SettingsService) EmbeddingDimension() int {
	settings, err := s.Get()
	if err != nil {
		return 0
	}
	return domain.EmbeddingDimensions()[settings.Embedding.Model]
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.Provider) domain.Provider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.Provider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
