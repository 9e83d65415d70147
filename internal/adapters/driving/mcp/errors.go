// Package mcp provides an MCP (Model Context Protocol) server adapter for OpenPDPA.
// It lets AI assistants ask PDPA questions and retrieve passages from the local index.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// ErrMissingRetriever is returned when the retriever is not provided.
var ErrMissingRetriever = errors.New("mcp: retriever is required")

// ErrEmptyQuery is returned by the tools when the query is blank.
var ErrEmptyQuery = errors.New("mcp: query must not be empty")
