package analysis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// FocusedContext slices the notebook down to the cells a focus cell
// transitively depends on, capped at maxCells, and renders them as a
// single readable text block. Selected cells are re-sorted
// topologically so definitions read before uses.
func (s *Service) FocusedContext(ctx context.Context, path, focusCellID string, maxCells int, includeMarkdown bool) (*FocusedContext, error) {
	opts := DefaultOptions()
	opts.IncludeMarkdown = includeMarkdown

	analysis, err := s.Analyze(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Cell, len(analysis.Cells))
	for _, c := range analysis.Cells {
		byID[c.CellID] = c
	}
	if _, ok := byID[focusCellID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrCellNotFound, focusCellID)
	}

	selectedIDs := UpstreamSlice(focusCellID, analysis.DependencyEdges, maxCells)
	inSlice := make(map[string]struct{}, len(selectedIDs))
	for _, cid := range selectedIDs {
		inSlice[cid] = struct{}{}
	}

	selected := make([]Cell, 0, len(selectedIDs))
	for _, cid := range selectedIDs {
		if c, ok := byID[cid]; ok {
			selected = append(selected, c)
		}
	}

	induced := make([]Edge, 0)
	for _, e := range analysis.DependencyEdges {
		if _, ok := inSlice[e.From]; !ok {
			continue
		}
		if _, ok := inSlice[e.To]; !ok {
			continue
		}
		induced = append(induced, e)
	}
	selected = TopoSortCells(selected, induced)

	ids := make([]string, 0, len(selected))
	for _, c := range selected {
		ids = append(ids, c.CellID)
	}

	return &FocusedContext{
		Path:            analysis.Path,
		FocusCellID:     focusCellID,
		SelectedCellIDs: ids,
		ContextText:     FormatCellsAsContext(selected),
	}, nil
}

// FormatCellsAsContext renders cells as annotated blocks: a comment
// header per cell, markdown verbatim, code fenced for the reader.
func FormatCellsAsContext(cells []Cell) string {
	parts := make([]string, 0, len(cells)*3)
	for _, c := range cells {
		exec := "None"
		if c.ExecutionCount != nil {
			exec = strconv.Itoa(*c.ExecutionCount)
		}
		parts = append(parts, fmt.Sprintf("# --- cell: %s (index=%d, type=%s, exec=%s) ---", c.CellID, c.Index, c.CellType, exec))
		if c.CellType == CellTypeMarkdown {
			parts = append(parts, c.Source)
		} else {
			parts = append(parts, fmt.Sprintf("```python\n%s\n```", c.Source))
		}
		parts = append(parts, "")
	}
	return strings.TrimSpace(strings.Join(parts, "\n")) + "\n"
}

// ExportScript flattens the notebook into one runnable Python script,
// cells in topological order with positional headers. Markdown is
// dropped unless includeMarkdownAsComments keeps it as triple-quoted
// blocks between the code.
func (s *Service) ExportScript(ctx context.Context, path string, includeMarkdownAsComments bool) (string, error) {
	analysis, err := s.Analyze(ctx, path, DefaultOptions())
	if err != nil {
		return "", err
	}

	cells := make([]Cell, 0, len(analysis.Cells))
	for _, c := range analysis.Cells {
		switch {
		case c.CellType == CellTypeCode:
			cells = append(cells, c)
		case c.CellType == CellTypeMarkdown && includeMarkdownAsComments:
			c.CellType = CellTypeCode
			c.Source = fmt.Sprintf("\n\"\"\"\n%s\n\"\"\"\n", c.Source)
			cells = append(cells, c)
		}
	}
	ordered := TopoSortCells(cells, analysis.DependencyEdges)

	parts := make([]string, 0, len(ordered)*3+1)
	parts = append(parts, fmt.Sprintf("# Generated from notebook: %s\n", analysis.Path))
	for _, c := range ordered {
		parts = append(parts, fmt.Sprintf("# --- cell: %s (index=%d) ---", c.CellID, c.Index))
		parts = append(parts, strings.TrimRightFunc(c.Source, unicode.IsSpace))
		parts = append(parts, "")
	}
	return strings.TrimSpace(strings.Join(parts, "\n")) + "\n", nil
}
