package mcp

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query    string  `json:"query" jsonschema:"the question or phrase to find relevant transcript chunks for"`
	TopK     int     `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum cosine similarity score in [-1, 1]"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

// ChunkOutput represents a single retrieved transcript chunk.
type ChunkOutput struct {
	ChunkID      string   `json:"chunk_id"`
	TranscriptID string   `json:"transcript_id"`
	Speakers     []string `json:"speakers"`
	StartMS      int64    `json:"start_ms"`
	EndMS        int64    `json:"end_ms"`
	Score        float64  `json:"score"`
	Rank         int      `json:"rank"`
	Text         string   `json:"text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string  `json:"question" jsonschema:"the question to answer from stored transcripts"`
	TopK     int     `json:"top_k,omitempty" jsonschema:"number of chunks to ground the answer on (default 5)"`
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum cosine similarity score in [-1, 1]"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string        `json:"answer"`
	Sources []ChunkOutput `json:"sources"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Path string `json:"path" jsonschema:"path to a diarized transcript JSON file"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	TranscriptID   string   `json:"transcript_id"`
	ChunksStored   int      `json:"chunks_stored"`
	FailedChunkIDs []string `json:"failed_chunk_ids,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find transcript chunks relevant to a query",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from stored transcripts, with sources",
	}, s.handleAsk)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Ingest a diarized transcript JSON file into the store",
		}, s.handleIngest)
	}
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	opts := domain.RetrieveOptions{
		TopK:     input.TopK,
		MinScore: input.MinScore,
	}

	results, err := s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	return nil, RetrieveOutput{
		Results: toChunkOutputs(results),
		Count:   len(results),
	}, nil
}

// handleAsk handles the ask tool invocation. The answer stream is drained
// here because MCP tool results are delivered whole.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Answer == nil {
		return nil, AskOutput{}, errors.New("answer generation is not configured")
	}

	opts := domain.RetrieveOptions{
		TopK:     input.TopK,
		MinScore: input.MinScore,
	}

	stream, results, err := s.ports.Answer.Ask(ctx, input.Question, opts)
	if err != nil {
		return nil, AskOutput{}, err
	}
	defer stream.Close() //nolint:errcheck // Best-effort cleanup

	var answer strings.Builder
	for {
		token, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, AskOutput{}, err
		}
		answer.WriteString(token)
	}

	return nil, AskOutput{
		Answer:  answer.String(),
		Sources: toChunkOutputs(results),
	}, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	report, err := s.ports.Ingest.IngestFile(ctx, input.Path)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		TranscriptID:   report.TranscriptID,
		ChunksStored:   report.ChunksStored,
		FailedChunkIDs: report.FailedChunkIDs,
	}, nil
}

func toChunkOutputs(results []domain.RetrievalResult) []ChunkOutput {
	out := make([]ChunkOutput, len(results))
	for i := range results {
		out[i] = ChunkOutput{
			ChunkID:      results[i].Chunk.ID,
			TranscriptID: results[i].Chunk.TranscriptID,
			Speakers:     results[i].Chunk.SpeakerIDs,
			StartMS:      results[i].Chunk.StartMS,
			EndMS:        results[i].Chunk.EndMS,
			Score:        results[i].Score,
			Rank:         results[i].Rank,
			Text:         results[i].Chunk.Text,
		}
	}
	return out
}
