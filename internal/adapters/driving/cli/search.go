package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

var (
	searchTopK     int
	searchMinScore float64
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored transcript chunks",
	Long: `Performs semantic search over stored transcript chunks and prints the
ranked matches with speaker and timestamp annotations. No answer is
generated; use 'verbatim ask' for that.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of chunks to retrieve (default 5)")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "minimum similarity score in [-1, 1]")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalSvc == nil {
		return errors.New("retrieval service not configured")
	}

	opts := domain.RetrieveOptions{
		TopK:     searchTopK,
		MinScore: searchMinScore,
	}

	results, err := retrievalSvc.Retrieve(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchText(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.RetrievalResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, results []domain.RetrievalResult) error {
	if len(results) == 0 {
		cmd.Println("No matching chunks found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for _, res := range results {
		cmd.Printf("  [%d] %s | %s - %s (%.2f)\n",
			res.Rank,
			res.Chunk.SpeakerLabel(),
			domain.FormatTimestamp(res.Chunk.StartMS),
			domain.FormatTimestamp(res.Chunk.EndMS),
			res.Score)
		cmd.Printf("      %s\n", snippet(res.Chunk.Text, 160))
		cmd.Println()
	}
	return nil
}

// snippet returns the first line of text, shortened to max characters.
func snippet(text string, max int) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > max {
		text = text[:max] + "..."
	}
	return text
}
