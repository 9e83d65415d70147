// Package driving declares what the CLI and the MCP server may ask of the
// core: prepare or restore the index (IndexService), look up passages
// (Retriever) and answer a question end to end (QueryService).
//
// internal/core/services provides the implementations.
package driving
