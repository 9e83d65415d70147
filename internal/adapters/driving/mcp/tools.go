package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// defaultRetrieveLimit is the number of passages returned when the caller gives none.
const defaultRetrieveLimit = domain.DefaultTopK

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query string `json:"query" jsonschema:"the question about Singapore's Personal Data Protection Act"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of passages to ground the answer on (default from configuration)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string `json:"answer"`
	Blocked   bool   `json:"blocked"`
	Retrieved int    `json:"retrieved"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the text to find similar PDPA passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// PassageOutput represents a single retrieved passage.
type PassageOutput struct {
	Source  string  `json:"source"`
	Title   string  `json:"title,omitempty"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question about Singapore's PDPA using the indexed Act",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the PDPA passages most similar to a query, without generating an answer",
	}, s.handleRetrieve)
}

// handleAsk runs one query through the pipeline.
// A blocked query is a successful call carrying the refusal sentinel.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, AskOutput{}, ErrEmptyQuery
	}

	result, err := s.ports.Query.Ask(ctx, query, input.TopK)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:    result.Answer(),
		Blocked:   result.Blocked(),
		Retrieved: result.State.RetrievedCount,
	}, nil
}

// handleRetrieve searches the index directly. Moderation does not apply.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, RetrieveOutput{}, ErrEmptyQuery
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultRetrieveLimit
	}

	hits, err := s.ports.Retriever.Search(ctx, query, limit)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Passages: make([]PassageOutput, len(hits)),
		Count:    len(hits),
	}
	for i := range hits {
		output.Passages[i] = PassageOutput{
			Source:  hits[i].Source,
			Title:   hits[i].Title,
			Score:   hits[i].Score,
			Content: hits[i].Content,
		}
	}

	return nil, output, nil
}
