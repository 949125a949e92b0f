package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure embedding, generation and transcription providers.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all providers step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	Long: `Configure the embedding provider used to vectorise transcript chunks
and queries. Changing the model changes the vector dimension, which
requires re-ingesting all transcripts.`,
	RunE: runSettingsEmbedding,
}

var settingsGeneratorCmd = &cobra.Command{
	Use:   "generator",
	Short: "Configure the answer generator",
	Long:  `Configure the language model that answers questions from retrieved context.`,
	RunE:  runSettingsGenerator,
}

var settingsTranscriptionCmd = &cobra.Command{
	Use:   "transcription",
	Short: "Set the transcription service API key",
	Long:  `Store the API key for the speech-to-text service used by 'verbatim ingest --audio'.`,
	RunE:  runSettingsTranscription,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsGeneratorCmd)
	settingsCmd.AddCommand(settingsTranscriptionCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	printAPIKeyLine(cmd, settings.Embedding.Provider, settings.Embedding.APIKey)
	printStatusLine(cmd, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[Generator]")
	cmd.Printf("  Provider: %s\n", settings.Generator.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Generator.Model)
	if settings.Generator.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Generator.BaseURL)
	}
	printAPIKeyLine(cmd, settings.Generator.Provider, settings.Generator.APIKey)
	printStatusLine(cmd, settings.Generator.IsConfigured())
	cmd.Println()

	cmd.Println("[Transcription]")
	if settings.Transcription.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Transcription.APIKey))
	} else {
		cmd.Println("  API Key: (not set, audio ingestion disabled)")
	}
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Max chars: %d\n", settings.Chunking.MaxChars)
	cmd.Printf("  Max utterances: %d\n", settings.Chunking.MaxUtterances)
	cmd.Printf("  Context window: %d\n", settings.Chunking.ContextWindow)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top-k: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Min score: %g\n", settings.Retrieval.MinScore)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printAPIKeyLine(cmd *cobra.Command, provider domain.Provider, key string) {
	if !provider.RequiresAPIKey() {
		return
	}
	if key != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(key))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
}

func printStatusLine(cmd *cobra.Command, configured bool) {
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("Verbatim Settings Wizard")
	cmd.Println("========================")
	cmd.Println()

	reader := bufio.NewReader(os.Stdin)

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 2: Answer Generator")
	cmd.Println("------------------------")
	if err := configureGeneratorProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 3: Transcription (optional)")
	cmd.Println("--------------------------------")
	cmd.Print("Enter transcription API key (leave empty to skip): ")
	if apiKey := readPassword(); apiKey != "" {
		cmd.Println()
		if err := settingsService.SetTranscriptionKey(apiKey); err != nil {
			return fmt.Errorf("failed to set transcription key: %w", err)
		}
		cmd.Println("Transcription key saved.")
	} else {
		cmd.Println()
		cmd.Println("Skipped. Audio ingestion stays disabled.")
	}
	cmd.Println()

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(os.Stdin))
}

func runSettingsGenerator(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureGeneratorProvider(cmd, bufio.NewReader(os.Stdin))
}

func runSettingsTranscription(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Print("Enter API key: ")
	apiKey := readPassword()
	cmd.Println()
	if apiKey == "" {
		return errors.New("API key must not be empty")
	}

	if err := settingsService.SetTranscriptionKey(apiKey); err != nil {
		return fmt.Errorf("failed to set transcription key: %w", err)
	}
	cmd.Println("Transcription key saved.")
	return nil
}

//nolint:dupl // Similar to configureGeneratorProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for generation - intentional for CLI flow clarity
func configureGeneratorProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Generator Provider")
	providers := domain.AllProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaults := domain.DefaultGeneratorModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetGeneratorProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure generator provider: %w", err)
	}

	cmd.Printf("Generator provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read the key without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
