// Package resources implements MCP resource handlers for notebook data.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (notebook://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/analysis"
)

const (
	uriScheme = "notebook://"
	uriSuffix = "/analysis"
)

// Handler manages notebook resource endpoints.
type Handler struct {
	svc *analysis.Service
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(svc *analysis.Service) *Handler {
	return &Handler{svc: svc}
}

// AnalysisTemplate returns the MCP resource template for notebook analysis.
func (h *Handler) AnalysisTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		"notebook://{path}/analysis",
		"Notebook Analysis",
		mcp.WithTemplateDescription("Dependency-graph analysis of a notebook: cells, their defined and used names, and the edges between them"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// HandleAnalysis analyzes the notebook named by the URI and returns the
// analysis as JSON.
func (h *Handler) HandleAnalysis(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	path, err := notebookPath(req.Params.URI)
	if err != nil {
		return nil, err
	}

	a, err := h.svc.Analyze(ctx, path, analysis.Options{IncludeMarkdown: true, StripOutputs: true})
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling analysis: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// notebookPath extracts the notebook path from a notebook://{path}/analysis URI.
func notebookPath(uri string) (string, error) {
	if !strings.HasPrefix(uri, uriScheme) || !strings.HasSuffix(uri, uriSuffix) {
		return "", fmt.Errorf("unsupported resource uri %q", uri)
	}
	path := strings.TrimSuffix(strings.TrimPrefix(uri, uriScheme), uriSuffix)
	if path == "" {
		return "", fmt.Errorf("resource uri %q names no notebook", uri)
	}
	return path, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
