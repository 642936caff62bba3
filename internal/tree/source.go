package tree

import (
	"fmt"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/valuetype"
)

// SourceNode scans vertices or edges, optionally restricted to ids and to
// comparisons pushed down from following has() steps.
type SourceNode struct {
	NodeBase
	Edges       bool
	IDs         []ir.IRValue
	Comparisons []plan.Comparison
}

// Source adds a source node.
func (t *Tree) Source(edges bool, ids []ir.IRValue, cs []plan.Comparison) NodeID {
	return t.add(&SourceNode{Edges: edges, IDs: ids, Comparisons: cs}, KindSource)
}

func (n *SourceNode) OutputType(*Tree) valuetype.Type {
	if n.Edges {
		return valuetype.Edge
	}
	return valuetype.Vertex
}

// PropLocal is true: a scan emits elements on the worker that stores them.
func (n *SourceNode) PropLocal(*Tree) bool { return true }

func (n *SourceNode) lower(l *lowerer, _ *plan.SubPlan) (*plan.SubPlan, error) {
	op := plan.OpSourceVertex
	if n.Edges {
		op = plan.OpSourceEdge
	}
	var arg *plan.Argument
	if len(n.IDs) > 0 || len(n.Comparisons) > 0 {
		arg = &plan.Argument{Comparisons: n.Comparisons}
		if len(n.IDs) > 0 {
			arg.Value = ir.IRArray(n.IDs)
		}
	}
	v := l.pb.NewVertex(op, arg)
	return l.finish(n, plan.Single(v), v), nil
}

// DelegateNode starts a nested chain. It lowers to a delegate of the vertex
// its enclosing node binds it to and consumes no vertex id.
type DelegateNode struct {
	NodeBase
	// Of is the node whose output the delegate stands for.
	Of    NodeID
	Local bool
}

// Delegate adds the start of a nested chain reading of's output. local is
// the residency of the rows it will be bound to.
func (t *Tree) Delegate(of NodeID, local bool) NodeID {
	return t.add(&DelegateNode{Of: of, Local: local}, KindDelegate)
}

// SetResident overrides the residency of the rows c's delegate is bound
// to.
func (t *Tree) SetResident(c Chain, local bool) {
	if d, ok := t.Node(c.Start).(*DelegateNode); ok {
		d.Local = local
	}
}

// Empty returns the empty chain over a new delegate.
func (t *Tree) Empty(of NodeID, local bool) Chain {
	d := t.Delegate(of, local)
	return Chain{Start: d, End: d}
}

func (n *DelegateNode) OutputType(t *Tree) valuetype.Type { return t.TypeOf(n.Of) }

func (n *DelegateNode) PropLocal(*Tree) bool { return n.Local }

func (n *DelegateNode) lower(l *lowerer, _ *plan.SubPlan) (*plan.SubPlan, error) {
	v, ok := l.bound[n.ID]
	if !ok {
		return nil, fmt.Errorf("tree: delegate %d lowered before its source was bound", n.ID)
	}
	p := plan.NewSubPlan()
	p.SetOutput(l.pb.Delegate(v))
	return p, nil
}
