package plan

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate checks the structural invariants of a finished plan:
//   - vertex ids are unique and listed in increasing order
//   - every edge names vertices of the plan
//   - every vertex has exactly as many in-edges as its operator's arity
//   - the output vertex exists
//   - the edge graph is acyclic
//   - loop bodies satisfy the same rules, with the repeat vertex standing in
//     as the body's source
//
// All violations are reported, joined into one error.
func (lp *LogicalPlan) Validate() error {
	return errors.Join(lp.validate(nil)...)
}

func (lp *LogicalPlan) validate(loop *Vertex) []error {
	var errs []error
	ids := make(map[int32]*Vertex, len(lp.Vertices))
	for i, v := range lp.Vertices {
		if _, dup := ids[v.ID]; dup {
			errs = append(errs, fmt.Errorf("vertex %d listed twice", v.ID))
		}
		if i > 0 && v.ID <= lp.Vertices[i-1].ID {
			errs = append(errs, fmt.Errorf("vertex %d out of id order", v.ID))
		}
		ids[v.ID] = v
	}

	known := func(id int32) bool {
		_, ok := ids[id]
		return ok || (loop != nil && id == loop.ID)
	}
	inDegree := make(map[int32]int)
	for _, e := range lp.Edges {
		if !known(e.From) {
			errs = append(errs, fmt.Errorf("edge %d->%d: unknown source vertex", e.From, e.To))
		}
		if _, ok := ids[e.To]; !ok {
			errs = append(errs, fmt.Errorf("edge %d->%d: unknown target vertex", e.From, e.To))
		}
		inDegree[e.To]++
	}

	for _, v := range lp.Vertices {
		if want, got := v.Op.Arity(), inDegree[v.ID]; want != got {
			errs = append(errs, fmt.Errorf("vertex %d (%s): %d inputs, want %d", v.ID, v.Op, got, want))
		}
	}

	if loop == nil && !known(lp.OutputID) {
		errs = append(errs, fmt.Errorf("output vertex %d not in plan", lp.OutputID))
	}

	for _, cycle := range findCycles(lp.Edges) {
		errs = append(errs, fmt.Errorf("cycle: %s", formatCycle(cycle)))
	}

	for _, v := range lp.Vertices {
		if v.Op != OpRepeat {
			continue
		}
		if v.Loop == nil || v.Loop.Body == nil {
			errs = append(errs, fmt.Errorf("repeat vertex %d has no loop body", v.ID))
			continue
		}
		body := v.Loop.Body
		if _, ok := body.Vertex(v.Loop.LeaveID); !ok && v.Loop.LeaveID != 0 {
			errs = append(errs, fmt.Errorf("repeat vertex %d: leave vertex %d not in body", v.ID, v.Loop.LeaveID))
		}
		if _, ok := body.Vertex(v.Loop.FeedbackID); !ok && v.Loop.FeedbackID != v.ID {
			errs = append(errs, fmt.Errorf("repeat vertex %d: feedback vertex %d not in body", v.ID, v.Loop.FeedbackID))
		}
		if v.Loop.MaxLoops <= 0 {
			errs = append(errs, fmt.Errorf("repeat vertex %d: max loops %d", v.ID, v.Loop.MaxLoops))
		}
		for _, err := range body.validate(v) {
			errs = append(errs, fmt.Errorf("repeat %d body: %w", v.ID, err))
		}
	}
	return errs
}

type edgeGraph map[int32][]int32

// findCycles returns the strongly connected components of the edge graph
// that form cycles: components of more than one vertex and self-loops.
func findCycles(edges []Edge) [][]int32 {
	graph := make(edgeGraph)
	var order []int32
	for _, e := range edges {
		if _, ok := graph[e.From]; !ok {
			order = append(order, e.From)
		}
		graph[e.From] = append(graph[e.From], e.To)
		if _, ok := graph[e.To]; !ok {
			graph[e.To] = nil
			order = append(order, e.To)
		}
	}

	var cycles [][]int32
	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) > 1 || slices.Contains(graph[scc[0]], scc[0]) {
			slices.Sort(scc)
			cycles = append(cycles, scc)
		}
	}
	return cycles
}

// tarjanSCC finds strongly connected components. Nodes are visited in the
// given order so results are deterministic.
func tarjanSCC(graph edgeGraph, order []int32) [][]int32 {
	var (
		index   = 0
		stack   []int32
		indices = make(map[int32]int)
		lowlink = make(map[int32]int)
		onStack = make(map[int32]bool)
		sccs    [][]int32
	)

	var strongConnect func(int32)
	strongConnect = func(v int32) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []int32
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func formatCycle(ids []int32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = itoa(id)
	}
	return strings.Join(parts, " -> ")
}
