package tree

import (
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/valuetype"
)

// MapNode replaces the head with something derived from it: id, label,
// constant, property values, property objects and maps, property key or
// value, unfold. Out is resolved when the node is built.
type MapNode struct {
	NodeBase
	Op  plan.OperatorKind
	Arg *plan.Argument
	Out valuetype.Type
	// Props marks operators that read element properties and so need the
	// head resident.
	Props bool
	// OneToOne marks operators that emit exactly one row per input row.
	OneToOne bool
}

// Map adds a map node after in.
func (t *Tree) Map(in NodeID, op plan.OperatorKind, arg *plan.Argument, out valuetype.Type, props, oneToOne bool) NodeID {
	return t.add(&MapNode{Op: op, Arg: arg, Out: out, Props: props, OneToOne: oneToOne}, KindMap, in)
}

func (n *MapNode) OutputType(*Tree) valuetype.Type { return n.Out }

// PropLocal is false only for operators that emit elements, such as
// unfolding a list of vertices.
func (n *MapNode) PropLocal(*Tree) bool { return !valuetype.IsElement(n.Out) }

func (n *MapNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	s := plan.Forward()
	if n.Props {
		s = l.headShuffle(n)
	}
	return l.unary(n, in, n.Op, n.Arg, s), nil
}

// ProjectNode maps each row to a map with one entry per key. Keys read by
// value rings arrive as label specs.
type ProjectNode struct {
	NodeBase
	Keys []string
	By   []KeySpec
}

// Project adds a projection after in. by has one spec per key.
func (t *Tree) Project(in NodeID, keys []string, by []KeySpec) NodeID {
	return t.add(&ProjectNode{Keys: keys, By: by}, KindProject, in)
}

func (n *ProjectNode) OutputType(*Tree) valuetype.Type {
	types := make([]valuetype.Type, len(n.By))
	for i, k := range n.By {
		types[i] = k.Type
	}
	return valuetype.Map(valuetype.Scalar(valuetype.String), valuetype.Merge(types...))
}

func (n *ProjectNode) PropLocal(*Tree) bool { return true }

func (n *ProjectNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	payload, err := keyPayload(n.By, false)
	if err != nil {
		return nil, err
	}
	s := plan.Forward()
	if len(propsOf(n.By...)) > 0 {
		s = l.headShuffle(n)
	}
	arg := &plan.Argument{Strings: n.Keys, Payload: payload}
	return l.unary(n, in, plan.OpProject, arg, s), nil
}
