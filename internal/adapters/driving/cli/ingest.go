package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driving"
)

var ingestAudio bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest diarized transcripts into the local store",
	Long: `Normalises, chunks, embeds and stores one or more transcript files.

Input files are JSON transcripts with diarized segments:
  {
    "audio_uri": "https://example.com/meeting.wav",
    "segments": [
      {"speaker": "Speaker A", "start_ms": 0, "end_ms": 4000, "text": "..."}
    ]
  }

With --audio the arguments are audio files or URLs instead; they are sent
to the configured transcription service first (requires an API key, see
'verbatim settings transcription').

Re-ingesting the same file replaces its chunks instead of duplicating
them, so failed runs can simply be repeated.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestAudio, "audio", false, "transcribe audio inputs before ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if ingestAudio && transcriber == nil {
		return errors.New("transcription not configured: set an API key with 'verbatim settings transcription'")
	}

	failures := 0
	for _, path := range args {
		report, err := ingestOne(cmd, path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failures++
			continue
		}

		cmd.Printf("%s: stored %d chunks (%d utterances, %d dropped)\n",
			path, report.ChunksStored, report.Utterances, report.Dropped)
		if len(report.FailedChunkIDs) > 0 {
			cmd.Printf("  %d chunks failed to embed; re-run to retry them\n", len(report.FailedChunkIDs))
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d inputs did not fully ingest", failures, len(args))
	}
	return nil
}

func ingestOne(cmd *cobra.Command, path string) (*driving.IngestReport, error) {
	ctx := cmd.Context()

	if !ingestAudio {
		return ingestService.IngestFile(ctx, path)
	}

	cmd.Printf("%s: transcribing...\n", path)
	raw, err := transcriber.Transcribe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	return ingestService.Ingest(ctx, raw)
}
