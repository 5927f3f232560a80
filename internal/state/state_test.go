package state

import (
	"reflect"
	"testing"

	"github.com/nbmcp/nbmcp/internal/analysis"
)

// --- Helpers ---

func count(n int) *int { return &n }

func cell(id string, index int, exec *int, defines, uses []string) analysis.Cell {
	return analysis.Cell{
		CellID:         id,
		Index:          index,
		CellType:       analysis.CellTypeCode,
		ExecutionCount: exec,
		Defines:        defines,
		Uses:           uses,
		Imports:        []string{},
	}
}

func testAnalysis(cells ...analysis.Cell) *analysis.Analysis {
	return &analysis.Analysis{
		Path:            "nb.ipynb",
		Cells:           cells,
		DependencyEdges: analysis.BuildDependencyEdges(cells),
	}
}

func stateByID(t *testing.T, ns *NotebookState) map[string]CellState {
	t.Helper()
	m := make(map[string]CellState, len(ns.Cells))
	for _, s := range ns.Cells {
		m[s.CellID] = s
	}
	return m
}

// --- ComputeNotebookState ---

func TestComputeNotebookState_UnexecutedCell(t *testing.T) {
	ns := ComputeNotebookState(testAnalysis(
		cell("a", 0, nil, []string{"x"}, nil),
	))

	s := stateByID(t, ns)["a"]
	if s.Status != StatusUnexecuted {
		t.Errorf("status = %s, want unexecuted", s.Status)
	}
	if len(s.StaleReasons) != 0 {
		t.Errorf("stale reasons = %v, want none", s.StaleReasons)
	}
}

func TestComputeNotebookState_ExecutedInOrder(t *testing.T) {
	ns := ComputeNotebookState(testAnalysis(
		cell("a", 0, count(1), []string{"x"}, nil),
		cell("b", 1, count(2), []string{"y"}, []string{"x"}),
	))

	by := stateByID(t, ns)
	if by["a"].Status != StatusExecuted || by["b"].Status != StatusExecuted {
		t.Errorf("statuses = %s/%s, want executed/executed", by["a"].Status, by["b"].Status)
	}
}

func TestComputeNotebookState_StaleWhenDependencyExecutedLater(t *testing.T) {
	// x was rerun (count 2) after y = x + 1 ran (count 1), so the
	// consumer's stored output is no longer trustworthy.
	ns := ComputeNotebookState(testAnalysis(
		cell("a", 0, count(2), []string{"x"}, nil),
		cell("b", 1, count(1), []string{"y"}, []string{"x"}),
	))

	s := stateByID(t, ns)["b"]
	if s.Status != StatusStale {
		t.Fatalf("status = %s, want stale", s.Status)
	}
	want := []string{"depends_on_newer_execution:a"}
	if !reflect.DeepEqual(s.StaleReasons, want) {
		t.Errorf("stale reasons = %v, want %v", s.StaleReasons, want)
	}
}

func TestComputeNotebookState_StaleWhenDependencyUnexecuted(t *testing.T) {
	ns := ComputeNotebookState(testAnalysis(
		cell("a", 0, nil, []string{"x"}, nil),
		cell("b", 1, count(1), []string{"y"}, []string{"x"}),
	))

	s := stateByID(t, ns)["b"]
	if s.Status != StatusStale {
		t.Fatalf("status = %s, want stale", s.Status)
	}
	want := []string{"depends_on_unexecuted:a"}
	if !reflect.DeepEqual(s.StaleReasons, want) {
		t.Errorf("stale reasons = %v, want %v", s.StaleReasons, want)
	}
}

func TestComputeNotebookState_EqualCountersAreFresh(t *testing.T) {
	// Staleness needs a strictly larger upstream counter.
	ns := ComputeNotebookState(testAnalysis(
		cell("a", 0, count(2), []string{"x"}, nil),
		cell("b", 1, count(2), nil, []string{"x"}),
	))

	if s := stateByID(t, ns)["b"]; s.Status != StatusExecuted {
		t.Errorf("status = %s, want executed", s.Status)
	}
}

func TestComputeNotebookState_ReasonsFollowSortedPredecessors(t *testing.T) {
	ns := ComputeNotebookState(testAnalysis(
		cell("a", 0, nil, []string{"x"}, nil),
		cell("c", 1, count(5), []string{"y"}, nil),
		cell("b", 2, count(1), nil, []string{"x", "y"}),
	))

	s := stateByID(t, ns)["b"]
	wantUpstream := []string{"a", "c"}
	if !reflect.DeepEqual(s.UpstreamCellIDs, wantUpstream) {
		t.Errorf("upstream = %v, want %v", s.UpstreamCellIDs, wantUpstream)
	}
	wantReasons := []string{"depends_on_unexecuted:a", "depends_on_newer_execution:c"}
	if !reflect.DeepEqual(s.StaleReasons, wantReasons) {
		t.Errorf("stale reasons = %v, want %v", s.StaleReasons, wantReasons)
	}
}

// --- BuildRerunPlan ---

func TestBuildRerunPlan_IncludesUnexecutedUpstreamAndFocus(t *testing.T) {
	plan := BuildRerunPlan(testAnalysis(
		cell("a", 0, nil, []string{"x"}, nil),
		cell("b", 1, count(1), []string{"y"}, []string{"x"}),
	), "b")

	want := []string{"a", "b"}
	if !reflect.DeepEqual(plan.CellsToRerun, want) {
		t.Errorf("cells to rerun = %v, want %v", plan.CellsToRerun, want)
	}
	if !reflect.DeepEqual(plan.ReasonsByCellID["a"], []string{"unexecuted"}) {
		t.Errorf("reasons[a] = %v, want [unexecuted]", plan.ReasonsByCellID["a"])
	}
	if !reflect.DeepEqual(plan.ReasonsByCellID["b"], []string{"depends_on_unexecuted:a"}) {
		t.Errorf("reasons[b] = %v, want the staleness evidence", plan.ReasonsByCellID["b"])
	}
}

func TestBuildRerunPlan_FreshFocusStillAppended(t *testing.T) {
	plan := BuildRerunPlan(testAnalysis(
		cell("a", 0, count(1), []string{"x"}, nil),
		cell("b", 1, count(2), []string{"y"}, []string{"x"}),
	), "b")

	if !reflect.DeepEqual(plan.CellsToRerun, []string{"b"}) {
		t.Errorf("cells to rerun = %v, want [b]", plan.CellsToRerun)
	}
	if !reflect.DeepEqual(plan.ReasonsByCellID["b"], []string{"focus"}) {
		t.Errorf("reasons[b] = %v, want [focus]", plan.ReasonsByCellID["b"])
	}
}

func TestBuildRerunPlan_SkipsFreshUpstream(t *testing.T) {
	plan := BuildRerunPlan(testAnalysis(
		cell("a", 0, count(1), []string{"x"}, nil),
		cell("b", 1, nil, []string{"y"}, []string{"x"}),
		cell("c", 2, count(2), []string{"z"}, []string{"y"}),
	), "c")

	want := []string{"b", "c"}
	if !reflect.DeepEqual(plan.CellsToRerun, want) {
		t.Errorf("cells to rerun = %v, want %v (fresh a skipped)", plan.CellsToRerun, want)
	}
}

func TestBuildRerunPlan_ClosureOrderIsUpstreamFirstFocusLast(t *testing.T) {
	// Diamond with everything unexecuted: the whole closure reruns,
	// producers before the focus.
	plan := BuildRerunPlan(testAnalysis(
		cell("a", 0, nil, []string{"x"}, nil),
		cell("b", 1, nil, []string{"y"}, []string{"x"}),
		cell("c", 2, nil, []string{"z"}, []string{"x"}),
		cell("d", 3, nil, nil, []string{"y", "z"}),
	), "d")

	want := []string{"b", "c", "a", "d"}
	if !reflect.DeepEqual(plan.CellsToRerun, want) {
		t.Errorf("cells to rerun = %v, want %v", plan.CellsToRerun, want)
	}
	if plan.FocusCellID != "d" {
		t.Errorf("focus = %s, want d", plan.FocusCellID)
	}
}

func TestBuildRerunPlan_UnknownFocusYieldsFocusOnly(t *testing.T) {
	// Membership is the caller's job; the planner degrades to a
	// focus-only plan rather than failing.
	plan := BuildRerunPlan(testAnalysis(
		cell("a", 0, count(1), []string{"x"}, nil),
	), "ghost")

	if !reflect.DeepEqual(plan.CellsToRerun, []string{"ghost"}) {
		t.Errorf("cells to rerun = %v, want [ghost]", plan.CellsToRerun)
	}
	if !reflect.DeepEqual(plan.ReasonsByCellID["ghost"], []string{"focus"}) {
		t.Errorf("reasons[ghost] = %v, want [focus]", plan.ReasonsByCellID["ghost"])
	}
}
