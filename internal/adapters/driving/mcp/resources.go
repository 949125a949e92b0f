package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Verbatim resources.
	uriScheme = "verbatim://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource describing the vector index.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "index",
		Name:        "index",
		Description: "Vector index metadata and stored chunk count",
		MIMEType:    "application/json",
	}, s.handleIndexResource)

	// Template for individual chunk content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "chunks/{chunkId}",
		Name:        "chunk-content",
		Description: "Text of a stored transcript chunk with speaker and time span",
		MIMEType:    "text/plain",
	}, s.handleChunkResource)
}

// handleIndexResource returns the index metadata and chunk count.
func (s *Server) handleIndexResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Store == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	type indexInfo struct {
		Name      string `json:"name"`
		Dimension int    `json:"dimension"`
		Metric    string `json:"metric"`
		Status    string `json:"status"`
		Chunks    int    `json:"chunks"`
	}

	meta, err := s.ports.Store.Metadata(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		// No index yet: report an empty store rather than an error.
		data, _ := json.MarshalIndent(indexInfo{}, "", "  ") //nolint:errcheck // Static struct cannot fail
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading index metadata: %w", err)
	}

	count, err := s.ports.Store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}

	data, err := json.MarshalIndent(indexInfo{
		Name:      meta.Name,
		Dimension: meta.Dimension,
		Metric:    string(meta.Metric),
		Status:    string(meta.Status),
		Chunks:    count,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling index info: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleChunkResource returns the content of a specific chunk.
func (s *Server) handleChunkResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Store == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract chunkId from URI: verbatim://chunks/{chunkId}
	chunkID := extractChunkID(req.Params.URI)
	if chunkID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	chunk, err := s.ports.Store.GetChunk(ctx, chunkID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting chunk: %w", err)
	}

	text := fmt.Sprintf("[%s | %s - %s]\n%s",
		chunk.SpeakerLabel(),
		domain.FormatTimestamp(chunk.StartMS),
		domain.FormatTimestamp(chunk.EndMS),
		chunk.Text)

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		}},
	}, nil
}

// extractChunkID extracts the chunk ID from a URI like verbatim://chunks/{chunkId}.
func extractChunkID(uri string) string {
	const prefix = uriScheme + "chunks/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
