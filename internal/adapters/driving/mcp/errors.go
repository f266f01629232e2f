// Package mcp provides an MCP (Model Context Protocol) server adapter for Ray.
// It lets AI assistants ask grounded questions, retrieve cited document
// chunks and read conversation history.
package mcp

import "errors"

// ErrMissingAgentService is returned when the agent service is not provided.
var ErrMissingAgentService = errors.New("mcp: agent service is required")

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
