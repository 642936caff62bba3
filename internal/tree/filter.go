package tree

import (
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/valuetype"
)

// HasNode filters by a conjunction of structured comparisons (has, is, and
// inlined comparison chains).
type HasNode struct {
	NodeBase
	Comparisons []plan.Comparison
}

// Has adds a comparison filter after in.
func (t *Tree) Has(in NodeID, cs []plan.Comparison) NodeID {
	return t.add(&HasNode{Comparisons: cs}, KindHas, in)
}

func (n *HasNode) OutputType(t *Tree) valuetype.Type { return t.TypeOf(n.Input()) }

// PropLocal holds after a property test: the test itself moved the row to
// the element's owner if it was not already there.
func (n *HasNode) PropLocal(t *Tree) bool {
	return readsProps(n.Comparisons) || n.NodeBase.PropLocal(t)
}

func (n *HasNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	s := plan.Forward()
	if readsProps(n.Comparisons) {
		s = l.headShuffle(n)
	}
	return l.unary(n, in, plan.OpHas, &plan.Argument{Comparisons: n.Comparisons}, s), nil
}

// HasOrNode filters by a disjunction of comparison conjunctions, the
// flattened form of or() over comparison chains.
type HasOrNode struct {
	NodeBase
	Disjunction [][]plan.Comparison
}

// HasOr adds a disjunctive comparison filter after in.
func (t *Tree) HasOr(in NodeID, terms [][]plan.Comparison) NodeID {
	return t.add(&HasOrNode{Disjunction: terms}, KindHasOr, in)
}

func (n *HasOrNode) OutputType(t *Tree) valuetype.Type { return t.TypeOf(n.Input()) }

func (n *HasOrNode) PropLocal(t *Tree) bool {
	for _, conj := range n.Disjunction {
		if readsProps(conj) {
			return true
		}
	}
	return n.NodeBase.PropLocal(t)
}

func (n *HasOrNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	s := plan.Forward()
	for _, conj := range n.Disjunction {
		if readsProps(conj) {
			s = l.headShuffle(n)
			break
		}
	}
	return l.unary(n, in, plan.OpHasOr, &plan.Argument{Disjunction: n.Disjunction}, s), nil
}

func readsProps(cs []plan.Comparison) bool {
	for _, c := range cs {
		if c.Target == plan.TargetProp {
			return true
		}
	}
	return false
}

// FilterNode is a filter lowered to a single vertex with a fixed operator:
// coin, sample, tail, simplePath, cyclicPath and label comparisons. Barrier
// filters see the whole stream (or the whole ring partition).
type FilterNode struct {
	NodeBase
	Op      plan.OperatorKind
	Arg     *plan.Argument
	Barrier bool
}

// Filter adds a fixed-operator filter after in.
func (t *Tree) Filter(in NodeID, op plan.OperatorKind, arg *plan.Argument, barrier bool) NodeID {
	return t.add(&FilterNode{Op: op, Arg: arg, Barrier: barrier}, KindFilter, in)
}

func (n *FilterNode) OutputType(t *Tree) valuetype.Type { return t.TypeOf(n.Input()) }

func (n *FilterNode) PropLocal(t *Tree) bool {
	if n.Barrier {
		return false
	}
	return n.NodeBase.PropLocal(t)
}

func (n *FilterNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	s := plan.Forward()
	if n.Barrier {
		s = l.barrier()
	}
	return l.unary(n, in, n.Op, n.Arg, s), nil
}
