package mcp

import (
	"github.com/custodia-labs/openpdpa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers questions through the moderation, retrieval and generation stages.
	Query driving.QueryService

	// Retriever searches the open index directly.
	Retriever driving.Retriever

	// Index reports on the persisted index. Optional.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
