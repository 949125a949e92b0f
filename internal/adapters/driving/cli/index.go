package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

var indexDimension int

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the local vector index",
}

var indexEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the vector index if it does not exist",
	Long: `Creates the vector index with the given dimension. Safe to repeat:
calling ensure on an existing index with the same dimension is a no-op.

If an index already exists with a different dimension the command fails;
changing dimension means changing the embedding model and requires a
deliberate re-embed of all transcripts.

Without --dimension the dimension of the configured embedding model is
used.`,
	RunE: runIndexEnsure,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index metadata and chunk count",
	RunE:  runIndexStatus,
}

func init() {
	indexEnsureCmd.Flags().IntVarP(&indexDimension, "dimension", "d", 0, "vector dimension (default: configured model's)")
	indexCmd.AddCommand(indexEnsureCmd)
	indexCmd.AddCommand(indexStatusCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexEnsure(cmd *cobra.Command, _ []string) error {
	if vectorStore == nil {
		return errors.New("vector store not configured")
	}

	dimension := indexDimension
	if dimension == 0 {
		if embedder == nil {
			return errors.New("no --dimension given and no embedding provider configured")
		}
		dimension = embedder.Dimensions()
	}
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dimension)
	}

	if err := vectorStore.EnsureIndex(cmd.Context(), dimension, domain.MetricCosine); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	cmd.Printf("Index ready (dimension %d, metric %s)\n", dimension, domain.MetricCosine)
	return nil
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	if vectorStore == nil {
		return errors.New("vector store not configured")
	}

	meta, err := vectorStore.Metadata(cmd.Context())
	if errors.Is(err, domain.ErrNotFound) {
		cmd.Println("No index exists yet. Run 'verbatim index ensure' or ingest a transcript.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index metadata: %w", err)
	}

	count, err := vectorStore.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}

	cmd.Printf("Index:     %s\n", meta.Name)
	cmd.Printf("Dimension: %d\n", meta.Dimension)
	cmd.Printf("Metric:    %s\n", meta.Metric)
	cmd.Printf("Status:    %s\n", meta.Status)
	cmd.Printf("Chunks:    %d\n", count)
	return nil
}
