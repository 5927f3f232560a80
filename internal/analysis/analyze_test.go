package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nbmcp/nbmcp/internal/notebook"
)

// --- Helpers ---

func writeNotebook(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nb.ipynb")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write notebook: %v", err)
	}
	return path
}

const twoCellNotebook = `{
  "nbformat": 4,
  "nbformat_minor": 5,
  "cells": [
    {"id": "a", "cell_type": "code", "source": "x = 1", "execution_count": 1, "outputs": []},
    {"id": "b", "cell_type": "code", "source": ["y = x + 1\n", "print(y)"], "execution_count": 2, "outputs": []}
  ]
}`

// --- Analyze ---

func TestAnalyze_SymbolsAndEdges(t *testing.T) {
	path := writeNotebook(t, twoCellNotebook)
	svc := NewService()

	a, err := svc.Analyze(context.Background(), path, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(a.Cells) != 2 {
		t.Fatalf("got %d cells, want 2", len(a.Cells))
	}
	if got := a.Cells[0].Defines; len(got) != 1 || got[0] != "x" {
		t.Errorf("cell a defines = %v, want [x]", got)
	}
	if got := a.Cells[1].Uses; len(got) != 2 || got[0] != "print" || got[1] != "x" {
		t.Errorf("cell b uses = %v, want [print x]", got)
	}
	if len(a.DependencyEdges) != 1 || a.DependencyEdges[0] != (Edge{From: "a", To: "b"}) {
		t.Errorf("edges = %v, want [{a b}]", a.DependencyEdges)
	}
}

func TestAnalyze_CellIDFallbackIsPositional(t *testing.T) {
	path := writeNotebook(t, `{
  "cells": [
    {"cell_type": "code", "source": "x = 1"},
    {"cell_type": "raw", "source": "ignored"},
    {"cell_type": "code", "source": "y = 2"}
  ]
}`)
	svc := NewService()

	a, err := svc.Analyze(context.Background(), path, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(a.Cells) != 2 {
		t.Fatalf("got %d cells, want 2 (raw skipped)", len(a.Cells))
	}
	if a.Cells[0].CellID != "cell_0" || a.Cells[0].Index != 0 {
		t.Errorf("first cell = %s/%d, want cell_0/0", a.Cells[0].CellID, a.Cells[0].Index)
	}
	if a.Cells[1].CellID != "cell_2" || a.Cells[1].Index != 2 {
		t.Errorf("second cell = %s/%d, want cell_2/2 (index counts skipped cells)", a.Cells[1].CellID, a.Cells[1].Index)
	}
}

func TestAnalyze_MarkdownKeptWithEmptySymbols(t *testing.T) {
	path := writeNotebook(t, `{
  "cells": [
    {"id": "md", "cell_type": "markdown", "source": "# Title"},
    {"id": "c", "cell_type": "code", "source": "x = 1"}
  ]
}`)
	svc := NewService()

	a, err := svc.Analyze(context.Background(), path, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(a.Cells) != 2 {
		t.Fatalf("got %d cells, want 2", len(a.Cells))
	}
	md := a.Cells[0]
	if md.CellType != CellTypeMarkdown {
		t.Fatalf("first cell type = %s, want markdown", md.CellType)
	}
	if md.Defines == nil || md.Uses == nil || md.Imports == nil {
		t.Error("markdown symbol slices should be empty, not nil")
	}
	if len(md.Defines)+len(md.Uses)+len(md.Imports) != 0 {
		t.Errorf("markdown cell should carry no symbols, got %v/%v/%v", md.Defines, md.Uses, md.Imports)
	}
}

func TestAnalyze_MarkdownExcludedByOption(t *testing.T) {
	path := writeNotebook(t, `{
  "cells": [
    {"id": "md", "cell_type": "markdown", "source": "# Title"},
    {"id": "c", "cell_type": "code", "source": "x = 1"}
  ]
}`)
	svc := NewService()

	opts := DefaultOptions()
	opts.IncludeMarkdown = false
	a, err := svc.Analyze(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(a.Cells) != 1 || a.Cells[0].CellID != "c" {
		t.Errorf("cells = %v, want only the code cell", cellIDs(a.Cells))
	}
}

func TestAnalyze_ExecutionCountPreserved(t *testing.T) {
	path := writeNotebook(t, twoCellNotebook)
	svc := NewService()

	a, err := svc.Analyze(context.Background(), path, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if a.Cells[0].ExecutionCount == nil || *a.Cells[0].ExecutionCount != 1 {
		t.Errorf("cell a execution count = %v, want 1", a.Cells[0].ExecutionCount)
	}
}

func TestAnalyze_SourceHashTracksContent(t *testing.T) {
	path := writeNotebook(t, `{
  "cells": [
    {"id": "a", "cell_type": "code", "source": "x = 1"},
    {"id": "b", "cell_type": "code", "source": "x = 1"},
    {"id": "c", "cell_type": "code", "source": "x = 2"}
  ]
}`)
	svc := NewService()

	a, err := svc.Analyze(context.Background(), path, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(a.Cells[0].SourceHash) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a.Cells[0].SourceHash))
	}
	if a.Cells[0].SourceHash != a.Cells[1].SourceHash {
		t.Error("identical sources should hash identically")
	}
	if a.Cells[0].SourceHash == a.Cells[2].SourceHash {
		t.Error("different sources should hash differently")
	}
}

func TestAnalyze_MissingFileIsNotFound(t *testing.T) {
	svc := NewService()

	_, err := svc.Analyze(context.Background(), filepath.Join(t.TempDir(), "absent.ipynb"), DefaultOptions())
	if !errors.Is(err, notebook.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAnalyze_CacheHitReturnsSameSnapshot(t *testing.T) {
	path := writeNotebook(t, twoCellNotebook)
	svc := NewService()
	ctx := context.Background()

	first, err := svc.Analyze(ctx, path, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	second, err := svc.Analyze(ctx, path, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if first != second {
		t.Error("unchanged file should return the cached snapshot")
	}
}

func TestAnalyze_MtimeChangeReanalyzes(t *testing.T) {
	path := writeNotebook(t, twoCellNotebook)
	svc := NewService()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, base, base); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	first, err := svc.Analyze(ctx, path, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	rewritten := `{"cells": [{"id": "a", "cell_type": "code", "source": "x = 99"}]}`
	if err := os.WriteFile(path, []byte(rewritten), 0o644); err != nil {
		t.Fatalf("rewrite notebook: %v", err)
	}
	if err := os.Chtimes(path, base.Add(time.Second), base.Add(time.Second)); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	second, err := svc.Analyze(ctx, path, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if first == second {
		t.Fatal("touched file should reanalyze, not hit the cache")
	}
	if len(second.Cells) != 1 || second.Cells[0].Source != "x = 99" {
		t.Errorf("reanalysis should see the new content, got %+v", second.Cells)
	}
}

func TestAnalyze_BrokenCellDegradesToEmptySymbols(t *testing.T) {
	path := writeNotebook(t, `{
  "cells": [
    {"id": "bad", "cell_type": "code", "source": "def broken(:"},
    {"id": "ok", "cell_type": "code", "source": "x = 1"}
  ]
}`)
	svc := NewService()

	a, err := svc.Analyze(context.Background(), path, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(a.Cells) != 2 {
		t.Fatalf("got %d cells, want 2 (broken cell must not block analysis)", len(a.Cells))
	}
	bad := a.Cells[0]
	if len(bad.Defines)+len(bad.Uses)+len(bad.Imports) != 0 {
		t.Errorf("unparseable cell should carry empty symbols, got %v/%v/%v", bad.Defines, bad.Uses, bad.Imports)
	}
}
