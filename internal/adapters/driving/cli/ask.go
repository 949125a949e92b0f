package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

var (
	askTopK     int
	askMinScore float64
	askSources  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your transcripts",
	Long: `Retrieves the most relevant transcript chunks and streams an answer
grounded on them from the configured language model.

When nothing relevant is stored, the model is told no context was found
and will say so rather than invent an answer.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default 5)")
	askCmd.Flags().Float64Var(&askMinScore, "min-score", 0, "minimum similarity score in [-1, 1]")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "print the retrieved sources after the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	opts := domain.RetrieveOptions{
		TopK:     askTopK,
		MinScore: askMinScore,
	}

	stream, results, err := answerService.Ask(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	defer stream.Close() //nolint:errcheck // Best-effort cleanup

	for {
		token, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			cmd.Println()
			return fmt.Errorf("answer interrupted: %w", err)
		}
		cmd.Print(token)
	}
	cmd.Println()

	if askSources {
		printSources(cmd, results)
	}
	return nil
}

func printSources(cmd *cobra.Command, results []domain.RetrievalResult) {
	if len(results) == 0 {
		cmd.Println("\nNo sources were used.")
		return
	}

	cmd.Println("\nSources:")
	for _, res := range results {
		cmd.Printf("  [%d] %s | %s - %s (%.2f)\n",
			res.Rank,
			res.Chunk.SpeakerLabel(),
			domain.FormatTimestamp(res.Chunk.StartMS),
			domain.FormatTimestamp(res.Chunk.EndMS),
			res.Score)
	}
}
