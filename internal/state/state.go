// Package state derives per-cell execution status from an analysis
// snapshot and plans which cells must rerun before a focus cell can be
// trusted. Everything here is offline inference over stored execution
// counters; no kernel is contacted.
package state

import (
	"fmt"
	"sort"

	"github.com/nbmcp/nbmcp/internal/analysis"
)

// Cell execution statuses.
const (
	StatusUnexecuted = "unexecuted"
	StatusExecuted   = "executed"
	StatusStale      = "stale"
	// StatusUnknown is a defensive catch-all; the counter-based policy
	// below always resolves to one of the other three.
	StatusUnknown = "unknown"
)

// CellState is the derived status of one cell plus the evidence for it.
type CellState struct {
	CellID          string   `json:"cell_id"`
	Status          string   `json:"status"`
	ExecutionCount  *int     `json:"execution_count"`
	StaleReasons    []string `json:"stale_reasons"`
	UpstreamCellIDs []string `json:"upstream_cell_ids"`
}

// NotebookState is the per-cell status of a whole notebook.
type NotebookState struct {
	Path  string      `json:"path"`
	Cells []CellState `json:"cells"`
}

// RerunPlan lists the cells to re-execute, in order, so the focus cell's
// result becomes trustworthy. The focus cell is always last.
type RerunPlan struct {
	Path            string              `json:"path"`
	FocusCellID     string              `json:"focus_cell_id"`
	CellsToRerun    []string            `json:"cells_to_rerun"`
	ReasonsByCellID map[string][]string `json:"reasons_by_cell_id"`
}

// ComputeNotebookState classifies every cell. A cell with no execution
// counter is unexecuted. A counted cell is stale when any direct
// predecessor is unexecuted or carries a strictly larger counter (it ran
// after this cell, so this cell's output no longer reflects its input);
// otherwise it is executed.
func ComputeNotebookState(a *analysis.Analysis) *NotebookState {
	byID := make(map[string]analysis.Cell, len(a.Cells))
	for _, c := range a.Cells {
		byID[c.CellID] = c
	}
	preds := buildPreds(a.DependencyEdges)

	states := make([]CellState, 0, len(a.Cells))
	for _, c := range a.Cells {
		cs := CellState{
			CellID:          c.CellID,
			ExecutionCount:  c.ExecutionCount,
			StaleReasons:    []string{},
			UpstreamCellIDs: sortedSet(preds[c.CellID]),
		}

		if c.ExecutionCount == nil {
			cs.Status = StatusUnexecuted
			states = append(states, cs)
			continue
		}

		for _, p := range cs.UpstreamCellIDs {
			pc, ok := byID[p]
			if !ok {
				continue
			}
			switch {
			case pc.ExecutionCount == nil:
				cs.StaleReasons = append(cs.StaleReasons, fmt.Sprintf("depends_on_unexecuted:%s", p))
			case *pc.ExecutionCount > *c.ExecutionCount:
				cs.StaleReasons = append(cs.StaleReasons, fmt.Sprintf("depends_on_newer_execution:%s", p))
			}
		}

		cs.Status = StatusExecuted
		if len(cs.StaleReasons) > 0 {
			cs.Status = StatusStale
		}
		states = append(states, cs)
	}

	return &NotebookState{Path: a.Path, Cells: states}
}

// BuildRerunPlan walks the focus cell's upstream closure and keeps every
// unexecuted or stale cell in closure order, then appends the focus cell
// itself (reason "focus") when it is not already due. Callers validate
// focus membership; an unknown focus yields a plan of just that id.
func BuildRerunPlan(a *analysis.Analysis, focusCellID string) *RerunPlan {
	state := ComputeNotebookState(a)
	stateByID := make(map[string]CellState, len(state.Cells))
	for _, s := range state.Cells {
		stateByID[s.CellID] = s
	}

	preds := buildPreds(a.DependencyEdges)
	closure := upstreamClosure(focusCellID, preds)

	rerun := make([]string, 0, len(closure))
	reasons := make(map[string][]string)

	for _, cid := range closure {
		s, ok := stateByID[cid]
		if !ok {
			continue
		}
		switch s.Status {
		case StatusUnexecuted:
			rerun = append(rerun, cid)
			reasons[cid] = []string{"unexecuted"}
		case StatusStale:
			rerun = append(rerun, cid)
			reasons[cid] = append([]string(nil), s.StaleReasons...)
		}
	}

	focusPlanned := false
	for _, cid := range rerun {
		if cid == focusCellID {
			focusPlanned = true
			break
		}
	}
	if !focusPlanned {
		rerun = append(rerun, focusCellID)
		reasons[focusCellID] = append(reasons[focusCellID], "focus")
	}

	seen := make(map[string]struct{}, len(rerun))
	deduped := make([]string, 0, len(rerun))
	for _, cid := range rerun {
		if _, ok := seen[cid]; ok {
			continue
		}
		seen[cid] = struct{}{}
		deduped = append(deduped, cid)
	}

	return &RerunPlan{
		Path:            a.Path,
		FocusCellID:     focusCellID,
		CellsToRerun:    deduped,
		ReasonsByCellID: reasons,
	}
}

// upstreamClosure collects every transitive predecessor of the focus cell
// breadth-first, predecessors expanded in sorted order, focus moved last.
// Unlike the context slice this closure is unbounded: a rerun plan must
// name everything stale, not a budgeted excerpt.
func upstreamClosure(focusCellID string, preds map[string]map[string]struct{}) []string {
	seen := make(map[string]struct{})
	queue := []string{focusCellID}
	ordered := make([]string, 0)

	for len(queue) > 0 {
		cid := queue[0]
		queue = queue[1:]
		if _, ok := seen[cid]; ok {
			continue
		}
		seen[cid] = struct{}{}
		ordered = append(ordered, cid)

		for _, p := range sortedSet(preds[cid]) {
			if _, ok := seen[p]; !ok {
				queue = append(queue, p)
			}
		}
	}

	for i, cid := range ordered {
		if cid == focusCellID {
			ordered = append(append(ordered[:i], ordered[i+1:]...), focusCellID)
			break
		}
	}
	return ordered
}

func buildPreds(edges []analysis.Edge) map[string]map[string]struct{} {
	preds := make(map[string]map[string]struct{})
	for _, e := range edges {
		if preds[e.To] == nil {
			preds[e.To] = make(map[string]struct{})
		}
		preds[e.To][e.From] = struct{}{}
	}
	return preds
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
