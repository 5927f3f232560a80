package analysis

import (
	"container/heap"
	"sort"
)

// BuildDependencyEdges computes producer→consumer edges in one
// left-to-right scan. A map tracks each symbol's most recent definer;
// every use links back to it, then the cell's own defines take the map
// over for everything after. Self-edges are skipped, duplicates
// collapse, and the result is sorted for determinism.
func BuildDependencyEdges(cells []Cell) []Edge {
	lastDef := make(map[string]string)
	seen := make(map[Edge]struct{})
	edges := make([]Edge, 0)

	for _, cell := range cells {
		for _, sym := range cell.Uses {
			src, ok := lastDef[sym]
			if !ok || src == cell.CellID {
				continue
			}
			e := Edge{From: src, To: cell.CellID}
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			edges = append(edges, e)
		}
		for _, sym := range cell.Defines {
			lastDef[sym] = cell.CellID
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// TopoSortCells orders cells so every producer precedes its consumers,
// ties broken by original position so output stays close to reading
// order. Cyclic graphs fall back to the input order unchanged; cycles
// are routine in edit-heavy notebooks and must never break consumers.
// Edges touching unknown cell ids are ignored.
func TopoSortCells(cells []Cell, edges []Edge) []Cell {
	index := make(map[string]int, len(cells))
	byID := make(map[string]Cell, len(cells))
	for i, c := range cells {
		index[c.CellID] = i
		byID[c.CellID] = c
	}

	indegree := make(map[string]int, len(cells))
	succs := make(map[string][]string)
	for _, e := range edges {
		if _, ok := index[e.From]; !ok {
			continue
		}
		if _, ok := index[e.To]; !ok {
			continue
		}
		succs[e.From] = append(succs[e.From], e.To)
		indegree[e.To]++
	}

	ready := &indexHeap{index: index}
	for _, c := range cells {
		if indegree[c.CellID] == 0 {
			heap.Push(ready, c.CellID)
		}
	}

	order := make([]Cell, 0, len(cells))
	for ready.Len() > 0 {
		cid := heap.Pop(ready).(string)
		order = append(order, byID[cid])
		for _, next := range succs[cid] {
			indegree[next]--
			if indegree[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}

	if len(order) != len(cells) {
		// cycle
		return cells
	}
	return order
}

// indexHeap pops the ready cell with the smallest original index.
type indexHeap struct {
	ids   []string
	index map[string]int
}

func (h *indexHeap) Len() int           { return len(h.ids) }
func (h *indexHeap) Less(i, j int) bool { return h.index[h.ids[i]] < h.index[h.ids[j]] }
func (h *indexHeap) Swap(i, j int)      { h.ids[i], h.ids[j] = h.ids[j], h.ids[i] }

func (h *indexHeap) Push(x any) {
	h.ids = append(h.ids, x.(string))
}

func (h *indexHeap) Pop() any {
	old := h.ids
	n := len(old)
	x := old[n-1]
	h.ids = old[:n-1]
	return x
}

// UpstreamSlice collects a focus cell's transitive producers by walking
// reverse edges depth-first, predecessors pushed in sorted order so the
// walk is deterministic, up to maxCells collected ids. The focus cell is
// moved to the end so the slice reads as context first. Membership is
// not validated here; callers check the focus id against the analysis
// before slicing.
func UpstreamSlice(focusCellID string, edges []Edge, maxCells int) []string {
	preds := make(map[string]map[string]struct{})
	for _, e := range edges {
		if preds[e.To] == nil {
			preds[e.To] = make(map[string]struct{})
		}
		preds[e.To][e.From] = struct{}{}
	}

	selected := make([]string, 0)
	seen := make(map[string]struct{})
	stack := []string{focusCellID}

	for len(stack) > 0 && len(selected) < maxCells {
		cid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[cid]; ok {
			continue
		}
		seen[cid] = struct{}{}
		selected = append(selected, cid)

		for _, p := range sortedIDs(preds[cid]) {
			if _, ok := seen[p]; !ok {
				stack = append(stack, p)
			}
		}
	}

	for i, cid := range selected {
		if cid == focusCellID {
			selected = append(append(selected[:i], selected[i+1:]...), focusCellID)
			break
		}
	}
	return selected
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
