package tree

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/valuetype"
)

// BranchMode is how a branch node routes rows to its options.
type BranchMode uint8

const (
	// BranchPredicate routes on whether the Selector sub-chain yields
	// anything: options pick true or false.
	BranchPredicate BranchMode = iota
	// BranchDirect compares a field of the row itself (id, label, a
	// property) with each pick, without a join.
	BranchDirect
	// BranchValue materializes the Selector's value under a system label
	// and compares picks against it.
	BranchValue
	// BranchCompare is a predicate whose selector is a comparison chain:
	// options filter the row by Terms or by their complement Negated,
	// without a ring.
	BranchCompare
)

// BranchOption is one option of a branch.
type BranchOption struct {
	Token traversal.PickToken
	Pick  ir.IRValue
	Body  Chain
}

// BranchNode is choose/branch/optional.
type BranchNode struct {
	NodeBase
	Mode BranchMode
	// Selector is the predicate (BranchPredicate) or value (BranchValue)
	// sub-chain.
	Selector Chain
	// Target and TargetKey name the field BranchDirect compares.
	Target    plan.CompareTarget
	TargetKey int32
	// Key and Value are the system labels of a BranchValue join.
	Key   string
	Value string
	// Terms and Negated are the disjunctions a BranchCompare tests.
	Terms   [][]plan.Comparison
	Negated [][]plan.Comparison
	Options []BranchOption
}

// Branch adds a branch after in and adopts its chains.
func (t *Tree) Branch(in NodeID, n *BranchNode) NodeID {
	id := t.add(n, KindBranch, in)
	if n.Mode == BranchPredicate || n.Mode == BranchValue {
		t.Adopt(n.Selector, id)
	}
	for _, o := range n.Options {
		t.Adopt(o.Body, id)
	}
	return id
}

func (n *BranchNode) OutputType(t *Tree) valuetype.Type {
	types := make([]valuetype.Type, len(n.Options))
	for i, o := range n.Options {
		types[i] = t.TypeOf(o.Body.End)
	}
	return valuetype.Merge(types...)
}

// PropLocal holds only when every option ends resident.
func (n *BranchNode) PropLocal(t *Tree) bool {
	if n.Mode == BranchValue {
		return false
	}
	for _, o := range n.Options {
		if !t.PropLocal(o.Body.End) {
			return false
		}
	}
	return true
}

// picks returns the literal picks of all options.
func (n *BranchNode) picks() []ir.IRValue {
	var out []ir.IRValue
	for _, o := range n.Options {
		if o.Token == traversal.PickValue {
			out = append(out, o.Pick)
		}
	}
	return out
}

func (n *BranchNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	x := in.Output()
	var (
		pass, fail *plan.Vertex
		val        int32
	)
	switch n.Mode {
	case BranchPredicate:
		c := &Cond{Sub: n.Selector, Key: n.Key}
		var err error
		if pass, fail, err = l.cond(in, x, c, true); err != nil {
			return nil, err
		}
	case BranchValue:
		key := l.t.Labels.Index(n.Key)
		val = l.t.Labels.Index(n.Value)
		ek := l.enterKey(in, x, key)
		sub, err := l.keyed(n.Selector, ek, key)
		if err != nil {
			return nil, err
		}
		in.Merge(sub)
		x = l.join(in, plan.OpJoinLabel, ek, sub.Output(), key, int64(val))
	case BranchCompare:
		for _, o := range n.Options {
			switch {
			case o.Token == traversal.PickAny:
			case passes(o) && pass == nil:
				pass = n.compare(l, in, x, n.Terms)
			case !passes(o) && fail == nil:
				fail = n.compare(l, in, x, n.Negated)
			}
		}
	}

	picks := n.picks()
	outs := make([]*plan.Vertex, 0, len(n.Options))
	for _, o := range n.Options {
		src := n.route(l, in, x, o, picks, pass, fail, val)
		sub, err := l.from(o.Body, src)
		if err != nil {
			return nil, err
		}
		in.Merge(sub)
		outs = append(outs, sub.Output())
	}
	out := l.union(in, outs)
	in.SetOutput(out)
	if n.Mode == BranchValue {
		out.AddAfter(plan.Requirement{Kind: plan.KeyDel, Labels: []int32{val}})
	}
	return l.finish(n, in, out), nil
}

// route returns the vertex whose rows option o receives.
func (n *BranchNode) route(l *lowerer, p *plan.SubPlan, x *plan.Vertex, o BranchOption, picks []ir.IRValue, pass, fail *plan.Vertex, val int32) *plan.Vertex {
	if n.Mode == BranchPredicate || n.Mode == BranchCompare {
		if o.Token == traversal.PickAny {
			return x
		}
		if passes(o) {
			return pass
		}
		return fail
	}

	target, key := n.Target, n.TargetKey
	if n.Mode == BranchValue {
		target, key = plan.TargetLabelValue, val
	}
	var c plan.Comparison
	switch o.Token {
	case traversal.PickAny:
		return x
	case traversal.PickNone:
		if len(picks) == 0 {
			return x
		}
		c = plan.Comparison{Target: target, Key: key, Op: ir.OpWithout, Value: ir.IRArray(picks)}
	default:
		c = plan.Comparison{Target: target, Key: key, Op: ir.OpEq, Value: o.Pick}
	}
	f := l.pb.NewVertex(plan.OpHas, &plan.Argument{Comparisons: []plan.Comparison{c}})
	s := plan.Forward()
	if target == plan.TargetProp {
		s = l.residentShuffle(l.t.PropLocal(n.Input()))
	}
	p.Connect(x, f, s)
	return f
}

// passes reports whether a predicate option takes the rows that satisfy
// the selector: true picks do, false and none take the rest.
func passes(o BranchOption) bool {
	if o.Token == traversal.PickNone {
		return false
	}
	b, ok := o.Pick.(ir.IRBool)
	return !ok || bool(b)
}

// compare filters the rows of x by terms with one HAS or HAS_OR vertex.
func (n *BranchNode) compare(l *lowerer, p *plan.SubPlan, x *plan.Vertex, terms [][]plan.Comparison) *plan.Vertex {
	op, arg := plan.OpHas, &plan.Argument{Comparisons: terms[0]}
	if len(terms) > 1 {
		op, arg = plan.OpHasOr, &plan.Argument{Disjunction: terms}
	}
	s := plan.Forward()
	for _, conj := range terms {
		if readsProps(conj) {
			s = l.residentShuffle(l.t.PropLocal(n.Input()))
			break
		}
	}
	f := l.pb.NewVertex(op, arg)
	p.Connect(x, f, s)
	return f
}
