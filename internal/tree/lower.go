package tree

import (
	"fmt"
	"slices"

	"github.com/roach88/gplan/internal/label"
	"github.com/roach88/gplan/internal/plan"
)

// lowerer holds the state of one Lower call.
type lowerer struct {
	t  *Tree
	pb *plan.Builder

	// bound maps a delegate node to the vertex it currently stands for.
	bound map[NodeID]*plan.Vertex
	// keys are the join keys of the enclosing rings, innermost last.
	keys []int32
	// main is the last vertex lowered for each node.
	main map[NodeID]*plan.Vertex
}

// Lower lowers the chain ending at out onto pb.
func Lower(t *Tree, pb *plan.Builder, out NodeID) (*plan.SubPlan, error) {
	l := &lowerer{
		t:     t,
		pb:    pb,
		bound: make(map[NodeID]*plan.Vertex),
		main:  make(map[NodeID]*plan.Vertex),
	}
	p, err := l.chain(out)
	if err != nil {
		return nil, err
	}
	l.releaseLabels()
	return p, nil
}

func (l *lowerer) chain(end NodeID) (*plan.SubPlan, error) {
	var p *plan.SubPlan
	for _, id := range l.t.ChainTo(end) {
		n := l.t.Node(id)
		next, err := n.lower(l, p)
		if err != nil {
			return nil, err
		}
		p = next
	}
	if p == nil {
		return nil, fmt.Errorf("tree: empty chain at node %d", end)
	}
	return p, nil
}

// from lowers c into a new sub-plan with its delegate bound to v.
func (l *lowerer) from(c Chain, v *plan.Vertex) (*plan.SubPlan, error) {
	l.bound[c.Start] = v
	return l.chain(c.End)
}

// keyed lowers c like from, with barriers inside it partitioned by key.
func (l *lowerer) keyed(c Chain, v *plan.Vertex, key int32) (*plan.SubPlan, error) {
	l.keys = append(l.keys, key)
	defer func() { l.keys = l.keys[:len(l.keys)-1] }()
	return l.from(c, v)
}

// unary appends one vertex fed by the current output of in.
func (l *lowerer) unary(n Node, in *plan.SubPlan, op plan.OperatorKind, arg *plan.Argument, s plan.Shuffle) *plan.SubPlan {
	v := l.pb.NewVertex(op, arg)
	in.Connect(in.Output(), v, s)
	in.SetOutput(v)
	return l.finish(n, in, v)
}

// finish applies the node's requirements, range and fill set to v, its
// vertex, and leaves the plan's output at v or at the PROP_FILL after it.
func (l *lowerer) finish(n Node, p *plan.SubPlan, v *plan.Vertex) *plan.SubPlan {
	b := n.Base()
	l.main[b.ID] = v

	if b.PathFlag && len(b.Inputs) > 0 {
		v.AddBefore(plan.Requirement{Kind: plan.PathAdd})
	}
	for _, r := range b.Before {
		v.AddBefore(r)
	}

	var starts []int32
	for _, name := range b.Labels {
		if l.t.Used(name) {
			starts = append(starts, l.t.Labels.Index(name))
		}
	}
	if len(starts) > 0 {
		v.AddAfter(plan.Requirement{Kind: plan.LabelStart, Labels: starts})
	}
	for _, r := range b.After {
		v.AddAfter(r)
	}

	if b.RangeLimit != nil {
		r := *b.RangeLimit
		v.Range = &r
	}
	v.EarlyStop.GlobalStop = v.EarlyStop.GlobalStop || b.EarlyStop.GlobalStop
	v.EarlyStop.GlobalFilter = v.EarlyStop.GlobalFilter || b.EarlyStop.GlobalFilter

	if len(b.FillProps) > 0 {
		fill := l.pb.NewVertex(plan.OpPropFill, &plan.Argument{Ints: ints64(b.FillProps)})
		p.Connect(v, fill, l.residentShuffle(n.PropLocal(l.t)))
		p.SetOutput(fill)
	}
	return p
}

// headShuffle routes rows to the owner of their head unless the input
// node's head is already resident.
func (l *lowerer) headShuffle(n Node) plan.Shuffle {
	return l.residentShuffle(l.t.PropLocal(n.Base().Input()))
}

func (l *lowerer) residentShuffle(local bool) plan.Shuffle {
	if local {
		return plan.Forward()
	}
	return plan.ByKey(label.Head)
}

// barrier is the shuffle into a stream-wide operator: one worker at top
// level, or partitioned by the innermost ring key so each traverser of
// the enclosing step is reduced on its own.
func (l *lowerer) barrier() plan.Shuffle {
	if n := len(l.keys); n > 0 {
		return plan.ByKey(l.keys[n-1])
	}
	return plan.ByConst()
}

// prefill inserts a PROP_FILL for props ahead of a barrier when the head
// is not resident, since the barrier's single worker cannot read them.
func (l *lowerer) prefill(n Node, in *plan.SubPlan, props []int32) {
	if len(props) == 0 || l.t.PropLocal(n.Base().Input()) {
		return
	}
	fill := l.pb.NewVertex(plan.OpPropFill, &plan.Argument{Ints: ints64(props)})
	in.Connect(in.Output(), fill, plan.ByKey(label.Head))
	in.SetOutput(fill)
}

// enterKey tags every row of v with a fresh join key.
func (l *lowerer) enterKey(p *plan.SubPlan, v *plan.Vertex, key int32) *plan.Vertex {
	ek := l.pb.NewVertex(plan.OpEnterKey, &plan.Argument{Ints: []int64{int64(key)}})
	p.Connect(v, ek, plan.Forward())
	return ek
}

// join creates a binary vertex over left and right, both partitioned by
// key, which it drops from the row afterwards.
func (l *lowerer) join(p *plan.SubPlan, op plan.OperatorKind, left, right *plan.Vertex, key int32, ints ...int64) *plan.Vertex {
	j := l.pb.NewVertex(op, &plan.Argument{Ints: append([]int64{int64(key)}, ints...)})
	p.Connect(left, j, plan.ByKey(key))
	p.Connect(right, j, plan.ByKey(key))
	j.AddAfter(plan.Requirement{Kind: plan.KeyDel, Labels: []int32{key}})
	return j
}

// cond evaluates c for each row of v. pass carries the rows for which the
// condition's sub-chain yields a result, fail (when both is set) the
// rest; Negate swaps them. Semi and anti join share one key and one
// lowering of the sub-chain.
func (l *lowerer) cond(p *plan.SubPlan, v *plan.Vertex, c *Cond, both bool) (pass, fail *plan.Vertex, err error) {
	if c.All {
		return v, nil, nil
	}
	key := l.t.Labels.Index(c.Key)
	ek := l.enterKey(p, v, key)
	sub, err := l.keyed(c.Sub, ek, key)
	if err != nil {
		return nil, nil, err
	}
	p.Merge(sub)
	out := sub.Output()

	semiOp, antiOp := plan.OpJoinDirectFilter, plan.OpJoinDirectFilterNegate
	if c.Negate {
		semiOp, antiOp = antiOp, semiOp
	}
	pass = l.join(p, semiOp, ek, out, key)
	if both {
		fail = l.join(p, antiOp, ek, out, key)
	}
	return pass, fail, nil
}

// union combines outs with pairwise binary UNION vertices. Outputs that
// resolve to the accumulated vertex are skipped.
func (l *lowerer) union(p *plan.SubPlan, outs []*plan.Vertex) *plan.Vertex {
	acc := outs[0].Resolve()
	for _, o := range outs[1:] {
		o = o.Resolve()
		if o == acc {
			continue
		}
		u := l.pb.NewVertex(plan.OpUnion, nil)
		p.Connect(acc, u, plan.Forward())
		p.Connect(o, u, plan.Forward())
		acc = u
	}
	return acc
}

// releaseLabels frees user labels whose readers are all top-level nodes
// after the last vertex that reads them.
func (l *lowerer) releaseLabels() {
	for _, name := range l.t.Labels.SortedNames() {
		readers := l.t.readers[name]
		if label.IsSystem(name) || len(readers) == 0 {
			continue
		}
		last := NoNode
		nested := false
		for _, r := range readers {
			if r == NoNode || l.t.Node(r).Base().Parent != NoNode {
				nested = true
				break
			}
			last = max(last, r)
		}
		if nested {
			continue
		}
		producers := l.t.Labels.Producers(name)
		if len(producers) == 0 || NodeID(slices.Max(producers)) > last {
			continue
		}
		if v, ok := l.main[last]; ok {
			v.AddAfter(plan.Requirement{Kind: plan.LabelDel, Labels: []int32{l.t.Labels.Index(name)}})
		}
	}
}

func ints64(ns []int32) []int64 {
	out := make([]int64, len(ns))
	for i, n := range ns {
		out[i] = int64(n)
	}
	return out
}
