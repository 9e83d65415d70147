package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for OpenPDPA resources.
	uriScheme = "openpdpa://"

	statusURI = uriScheme + "index/status"
)

// statusInfo is the JSON shape of the index status resource.
type statusInfo struct {
	Dir         string `json:"dir"`
	Exists      bool   `json:"exists"`
	Count       int    `json:"count"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         statusURI,
		Name:        "index-status",
		Description: "State of the persisted PDPA vector index",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "passages/{query}",
		Name:        "passages",
		Description: "PDPA passages most similar to a URL-path-encoded query",
		MIMEType:    "text/plain",
	}, s.handlePassagesResource)
}

// handleStatusResource reports the persisted index without touching the corpus.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Index == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Index.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading index status: %w", err)
	}

	data, err := json.MarshalIndent(statusInfo{
		Dir:         status.Dir,
		Exists:      status.Exists,
		Count:       status.Count,
		Fingerprint: status.Fingerprint,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handlePassagesResource returns the top passages for a query as plain text,
// formatted the same way they are given to the answer generator.
func (s *Server) handlePassagesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	query := extractQuery(req.Params.URI)
	if query == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	hits, err := s.ports.Retriever.Search(ctx, query, defaultRetrieveLimit)
	if err != nil {
		return nil, fmt.Errorf("retrieving passages: %w", err)
	}

	var b strings.Builder
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s]\n%s", hit.Source, hit.Content)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     b.String(),
		}},
	}, nil
}

// extractQuery extracts the query from a URI like openpdpa://passages/{query}.
// The query is path-unescaped; malformed escapes yield "".
func extractQuery(uri string) string {
	const prefix = uriScheme + "passages/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	query, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(query)
}
