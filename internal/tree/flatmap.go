package tree

import (
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/valuetype"
)

// VertexNode expands a vertex to its neighbours (out/in/both) or to its
// incident edges (outE/inE/bothE), restricted to EdgeLabels when set.
type VertexNode struct {
	NodeBase
	Direction  traversal.Direction
	Edges      bool
	EdgeLabels []int32
}

// Expand adds a vertex expansion after in.
func (t *Tree) Expand(in NodeID, dir traversal.Direction, edges bool, edgeLabels []int32) NodeID {
	return t.add(&VertexNode{Direction: dir, Edges: edges, EdgeLabels: edgeLabels}, KindVertex, in)
}

func (n *VertexNode) OutputType(*Tree) valuetype.Type {
	if n.Edges {
		return valuetype.Edge
	}
	return valuetype.Vertex
}

// PropLocal holds for edges, which are stored with the vertex they were
// reached from; neighbours generally live elsewhere.
func (n *VertexNode) PropLocal(*Tree) bool { return n.Edges }

func (n *VertexNode) op() plan.OperatorKind {
	ops := [2][3]plan.OperatorKind{
		{plan.OpOut, plan.OpIn, plan.OpBoth},
		{plan.OpOutE, plan.OpInE, plan.OpBothE},
	}
	e := 0
	if n.Edges {
		e = 1
	}
	return ops[e][n.Direction]
}

func (n *VertexNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	var arg *plan.Argument
	if len(n.EdgeLabels) > 0 {
		arg = &plan.Argument{Ints: ints64(n.EdgeLabels)}
	}
	return l.unary(n, in, n.op(), arg, l.headShuffle(n)), nil
}

// EdgeVertexNode moves from an edge to its endpoints: outV/inV/bothV, or
// otherV with Other set.
type EdgeVertexNode struct {
	NodeBase
	Direction traversal.Direction
	Other     bool
}

// EdgeVertex adds an edge-to-vertex step after in.
func (t *Tree) EdgeVertex(in NodeID, dir traversal.Direction, other bool) NodeID {
	return t.add(&EdgeVertexNode{Direction: dir, Other: other}, KindEdgeVertex, in)
}

func (n *EdgeVertexNode) OutputType(*Tree) valuetype.Type { return valuetype.Vertex }

func (n *EdgeVertexNode) PropLocal(*Tree) bool { return false }

func (n *EdgeVertexNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	op := [3]plan.OperatorKind{plan.OpOutV, plan.OpInV, plan.OpBothV}[n.Direction]
	if n.Other {
		op = plan.OpOtherV
	}
	// Endpoint ids are carried by the edge itself.
	return l.unary(n, in, op, nil, plan.Forward()), nil
}
