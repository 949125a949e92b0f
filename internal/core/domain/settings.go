package domain

// Provider identifies an AI service backend.
type Provider string

// Supported providers.
const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

// IsValid returns true for a known provider.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderOllama, ProviderOpenAI:
		return true
	}
	return false
}

// IsLocal returns true for providers that run on the user's machine.
func (p Provider) IsLocal() bool {
	return p == ProviderOllama
}

// RequiresAPIKey returns true for providers that authenticate with a key.
func (p Provider) RequiresAPIKey() bool {
	return p == ProviderOpenAI
}

// String returns the provider name.
func (p Provider) String() string {
	return string(p)
}

// Description returns a human-readable provider description.
func (p Provider) Description() string {
	switch p {
	case ProviderOllama:
		return "Ollama (local, no API key required)"
	case ProviderOpenAI:
		return "OpenAI (cloud, requires API key)"
	default:
		return string(p)
	}
}

// AllProviders returns the supported providers in display order.
func AllProviders() []Provider {
	return []Provider{ProviderOllama, ProviderOpenAI}
}

// EmbeddingSettings configures the embedding service.
type EmbeddingSettings struct {
	Provider Provider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured returns true when the settings can build a working service.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// GeneratorSettings configures the answer generator.
type GeneratorSettings struct {
	Provider Provider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured returns true when the settings can build a working service.
func (g GeneratorSettings) IsConfigured() bool {
	if !g.Provider.IsValid() {
		return false
	}
	if g.Provider.RequiresAPIKey() && g.APIKey == "" {
		return false
	}
	return true
}

// TranscriptionSettings configures the speech-to-text service.
type TranscriptionSettings struct {
	APIKey string
}

// IsConfigured returns true when audio files can be transcribed.
func (t TranscriptionSettings) IsConfigured() bool {
	return t.APIKey != ""
}

// ChunkingSettings configures the context chunker.
type ChunkingSettings struct {
	MaxChars      int
	MaxUtterances int
	ContextWindow int
}

// RetrievalSettings configures the query path.
type RetrievalSettings struct {
	TopK     int
	MinScore float64
}

// AppSettings holds the full application configuration.
type AppSettings struct {
	Embedding     EmbeddingSettings
	Generator     GeneratorSettings
	Transcription TranscriptionSettings
	Chunking      ChunkingSettings
	Retrieval     RetrievalSettings
}

// DefaultAppSettings returns the out-of-the-box configuration: local Ollama
// for both embedding and generation, no transcription key.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: ProviderOllama,
			Model:    "nomic-embed-text",
		},
		Generator: GeneratorSettings{
			Provider: ProviderOllama,
			Model:    "llama3.2",
		},
		Chunking: ChunkingSettings{
			MaxChars:      2000,
			MaxUtterances: 12,
			ContextWindow: 0,
		},
		Retrieval: RetrievalSettings{
			TopK:     DefaultTopK,
			MinScore: 0,
		},
	}
}

// DefaultEmbeddingModels maps each provider to its default embedding model.
func DefaultEmbeddingModels() map[Provider]string {
	return map[Provider]string{
		ProviderOllama: "nomic-embed-text",
		ProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultGeneratorModels maps each provider to its default generation model.
func DefaultGeneratorModels() map[Provider]string {
	return map[Provider]string{
		ProviderOllama: "llama3.2",
		ProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions maps embedding models to their vector sizes.
// An index built with one dimension refuses vectors of another.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"all-minilm":             384,
		"mxbai-embed-large":      1024,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
