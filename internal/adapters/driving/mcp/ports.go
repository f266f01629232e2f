package mcp

import (
	"github.com/custodia-labs/ray/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Agent answers questions within a session.
	Agent driving.AgentService

	// Retrieval finds document chunks for a query.
	Retrieval driving.RetrievalService

	// Conversations exposes session history. Optional.
	Conversations driving.ConversationService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Agent == nil {
		return ErrMissingAgentService
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
