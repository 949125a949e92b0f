// Package cli implements the command-line driving adapter.
// Commands are thin: they parse flags, call driving-port services and
// render output. All wiring of driven adapters happens here in root.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/config/file"
	ollamaembed "github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/embedding/openai"
	ollamagen "github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/generator/ollama"
	openaigen "github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/generator/openai"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/transcription/assemblyai"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/vectorstore/sqlite"
	"github.com/verbatim-labs/verbatim-cli/internal/chunker"
	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driving"
	"github.com/verbatim-labs/verbatim-cli/internal/core/services"
	"github.com/verbatim-labs/verbatim-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Package-level services, wired by initServices and swapped by tests.
var (
	configStore     driven.ConfigStore
	promptStore     driven.PromptStore
	vectorStore     driven.VectorStore
	embedder        driven.EmbeddingService
	generator       driven.AnswerGenerator
	transcriber     driven.Transcriber
	settingsService driving.SettingsService
	ingestService   driving.IngestService
	retrievalSvc    driving.RetrievalService
	answerService   driving.AnswerService
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "verbatim",
	Short: "Ask questions about your recorded conversations",
	Long: `Verbatim turns diarized audio transcripts into a searchable,
question-answerable memory. Transcripts are normalised, chunked by
speaker turn, embedded and stored locally; questions are answered from
retrieved context by a language model.

All data lives under ~/.verbatim/ and never leaves your machine unless
you configure a cloud provider.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		logger.SetOutput(cmd.ErrOrStderr())
		return initServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initServices wires driven adapters into the core services. Tests replace
// the package-level services instead of calling this.
func initServices() error {
	if settingsService != nil {
		return nil // already wired (or stubbed by tests)
	}

	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("init config store: %w", err)
	}
	configStore = cfg

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("init prompt store: %w", err)
	}
	promptStore = prompts

	settingsService = services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store, err := sqlite.NewStore(defaultDataDir())
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	vectorStore = store

	embedder = buildEmbedder(settings)
	generator = buildGenerator(settings)
	transcriber = buildTranscriber(settings)

	ck := chunker.New(
		chunker.WithMaxChars(settings.Chunking.MaxChars),
		chunker.WithMaxUtterances(settings.Chunking.MaxUtterances),
		chunker.WithContextWindow(settings.Chunking.ContextWindow),
	)

	ingestService = services.NewIngestService(embedder, vectorStore, ck)
	retrievalSvc = services.NewRetrievalService(embedder, vectorStore)
	answerService = services.NewAnswerService(retrievalSvc, generator, promptStore, nil)

	return nil
}

// buildEmbedder constructs the embedding adapter for the configured
// provider, or nil when the provider is not usable.
func buildEmbedder(settings *domain.AppSettings) driven.EmbeddingService {
	switch settings.Embedding.Provider {
	case domain.ProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.Embedding.APIKey,
			BaseURL: settings.Embedding.BaseURL,
			Model:   settings.Embedding.Model,
		})
		if err != nil {
			logger.Warn("Embedding disabled: %v", err)
			return nil
		}
		return svc
	case domain.ProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.Embedding.BaseURL,
			Model:      settings.Embedding.Model,
			Dimensions: domain.EmbeddingDimensions()[settings.Embedding.Model],
		})
	default:
		return nil
	}
}

// buildGenerator constructs the answer generator for the configured
// provider, or nil when generation is not configured.
func buildGenerator(settings *domain.AppSettings) driven.AnswerGenerator {
	switch settings.Generator.Provider {
	case domain.ProviderOpenAI:
		gen, err := openaigen.NewGenerator(openaigen.Config{
			APIKey:  settings.Generator.APIKey,
			BaseURL: settings.Generator.BaseURL,
			Model:   settings.Generator.Model,
		})
		if err != nil {
			logger.Warn("Answer generation disabled: %v", err)
			return nil
		}
		return gen
	case domain.ProviderOllama:
		return ollamagen.NewGenerator(ollamagen.Config{
			BaseURL: settings.Generator.BaseURL,
			Model:   settings.Generator.Model,
		})
	default:
		return nil
	}
}

// buildTranscriber constructs the transcription adapter when an API key is
// configured, or nil so audio ingestion reports a clear error.
func buildTranscriber(settings *domain.AppSettings) driven.Transcriber {
	if settings.Transcription.APIKey == "" {
		return nil
	}
	tr, err := assemblyai.NewTranscriber(assemblyai.Config{
		APIKey: settings.Transcription.APIKey,
	})
	if err != nil {
		logger.Warn("Transcription disabled: %v", err)
		return nil
	}
	return tr
}

// defaultDataDir returns the on-disk location of the vector store.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".verbatim/data"
	}
	return filepath.Join(home, ".verbatim", "data")
}
