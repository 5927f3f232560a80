package resources

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nbmcp/nbmcp/internal/analysis"
)

const sampleNotebook = `{
 "cells": [
  {"cell_type": "code", "id": "a", "execution_count": 1, "metadata": {}, "outputs": [], "source": ["x = 1\n"]},
  {"cell_type": "code", "id": "b", "execution_count": 2, "metadata": {}, "outputs": [], "source": ["y = x + 1\n"]}
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}`

func readAnalysis(t *testing.T, uri string) ([]mcp.ResourceContents, error) {
	t.Helper()
	h := NewHandler(analysis.NewService())
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return h.HandleAnalysis(context.Background(), req)
}

func TestHandleAnalysis_ReturnsAnalysisJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nb.ipynb")
	if err := os.WriteFile(path, []byte(sampleNotebook), 0644); err != nil {
		t.Fatalf("write notebook: %v", err)
	}

	uri := "notebook://" + path + "/analysis"
	contents, err := readAnalysis(t, uri)
	if err != nil {
		t.Fatalf("HandleAnalysis returned error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] is %T, want TextResourceContents", contents[0])
	}
	if tc.URI != uri {
		t.Errorf("URI = %q, want %q", tc.URI, uri)
	}
	if tc.MIMEType != "application/json" {
		t.Errorf("MIMEType = %q, want application/json", tc.MIMEType)
	}
	if !strings.Contains(tc.Text, `"cell_id": "a"`) {
		t.Errorf("analysis = %s, want cell a", tc.Text)
	}
	if !strings.Contains(tc.Text, `"from": "a"`) || !strings.Contains(tc.Text, `"to": "b"`) {
		t.Errorf("analysis = %s, want the a->b edge", tc.Text)
	}
}

func TestHandleAnalysis_MissingNotebookBecomesErrorResource(t *testing.T) {
	uri := "notebook://" + filepath.Join(t.TempDir(), "ghost.ipynb") + "/analysis"
	contents, err := readAnalysis(t, uri)
	if err != nil {
		t.Fatalf("HandleAnalysis returned error: %v", err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] is %T, want TextResourceContents", contents[0])
	}
	if !strings.HasPrefix(tc.Text, "Error: ") || !strings.Contains(tc.Text, "notebook not found") {
		t.Errorf("text = %q, want an error resource", tc.Text)
	}
}

func TestHandleAnalysis_RejectsForeignURI(t *testing.T) {
	if _, err := readAnalysis(t, "kernel://abc/state"); err == nil {
		t.Error("expected an error for a non-notebook uri")
	}
	if _, err := readAnalysis(t, "notebook:///analysis"); err == nil {
		t.Error("expected an error for an empty notebook path")
	}
}
