// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Verbatim. It lets AI assistants search the local transcript memory and ask
// questions answered from retrieved context.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
