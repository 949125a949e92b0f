package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/verbatim-labs/verbatim-cli/internal/logger"
	"github.com/verbatim-labs/verbatim-cli/internal/watcher"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and ingest transcripts as they appear",
	Long: `Watches a directory and ingests every *.json transcript file that is
created or modified in it. Files already present are ingested on start.

Ingestion is idempotent, so repeated writes of the same file update the
stored chunks rather than duplicating them. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "settle time before ingesting a written file")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := cmd.Context()
	onFile := func(path string) {
		report, err := ingestService.IngestFile(ctx, path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			return
		}
		cmd.Printf("%s: stored %d chunks\n", path, report.ChunksStored)
		if len(report.FailedChunkIDs) > 0 {
			cmd.Printf("  %d chunks failed to embed; rewrite the file to retry\n", len(report.FailedChunkIDs))
		}
	}

	w := watcher.New(args[0], onFile, watcher.WithDebounce(watchDebounce))

	err := w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Watch stopped")
		return nil
	}
	return err
}
