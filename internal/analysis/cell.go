// Package analysis turns notebooks into symbol-annotated cell snapshots
// and the dependency graph between them: which cell last wrote each name
// a later cell reads. The graph drives context slicing, script export,
// staleness detection and rerun planning.
package analysis

// Cell kinds as stored in the notebook format.
const (
	CellTypeCode     = "code"
	CellTypeMarkdown = "markdown"
	CellTypeRaw      = "raw"
)

// Cell is one analyzed notebook cell. Immutable once produced; a cell
// belongs to exactly one analysis snapshot.
type Cell struct {
	CellID         string   `json:"cell_id"`
	Index          int      `json:"index"`
	CellType       string   `json:"cell_type"`
	Source         string   `json:"source"`
	ExecutionCount *int     `json:"execution_count"`
	SourceHash     string   `json:"source_hash"`
	Defines        []string `json:"defines"`
	Uses           []string `json:"uses"`
	Imports        []string `json:"imports"`
}

// Edge is one directed dependency: From defined a symbol that To reads,
// and no cell between them redefined it.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Analysis is the full snapshot of one notebook: ordered cells plus the
// derived dependency edges. Duplicated cell ids can bend edges backwards
// and form cycles; consumers must not assume acyclicity.
type Analysis struct {
	Path            string `json:"path"`
	NBFormat        int    `json:"nbformat"`
	NBFormatMinor   int    `json:"nbformat_minor"`
	Cells           []Cell `json:"cells"`
	DependencyEdges []Edge `json:"dependency_edges"`
}

// FocusedContext is the rendered dependency-aware slice for one cell.
type FocusedContext struct {
	Path            string   `json:"path"`
	FocusCellID     string   `json:"focus_cell_id"`
	SelectedCellIDs []string `json:"selected_cell_ids"`
	ContextText     string   `json:"context_text"`
}
