package tree

import (
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/valuetype"
)

// UnionNode runs every branch over the same input rows and concatenates
// their outputs.
type UnionNode struct {
	NodeBase
	Branches []Chain
}

// Union adds a union after in and adopts its branches.
func (t *Tree) Union(in NodeID, branches []Chain) NodeID {
	id := t.add(&UnionNode{Branches: branches}, KindUnion, in)
	for _, b := range branches {
		t.Adopt(b, id)
	}
	return id
}

// OutputType is the merge of the branch types: the shared type when all
// branches agree, otherwise their union without duplicates.
func (n *UnionNode) OutputType(t *Tree) valuetype.Type {
	types := make([]valuetype.Type, len(n.Branches))
	for i, b := range n.Branches {
		types[i] = t.TypeOf(b.End)
	}
	return valuetype.Merge(types...)
}

func (n *UnionNode) PropLocal(t *Tree) bool {
	for _, b := range n.Branches {
		if !t.PropLocal(b.End) {
			return false
		}
	}
	return true
}

func (n *UnionNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	x := in.Output()
	outs := make([]*plan.Vertex, 0, len(n.Branches))
	for _, b := range n.Branches {
		sub, err := l.from(b, x)
		if err != nil {
			return nil, err
		}
		in.Merge(sub)
		outs = append(outs, sub.Output())
	}
	out := l.union(in, outs)
	in.SetOutput(out)
	return l.finish(n, in, out), nil
}

// CoalesceNode emits, per input row, the output of the first branch that
// yields anything for it.
type CoalesceNode struct {
	NodeBase
	Branches []Chain
	// Key is the system label rows are tagged with so later branches only
	// see rows earlier ones produced nothing for.
	Key string
}

// Coalesce adds a coalesce after in and adopts its branches.
func (t *Tree) Coalesce(in NodeID, branches []Chain, key string) NodeID {
	id := t.add(&CoalesceNode{Branches: branches, Key: key}, KindCoalesce, in)
	for _, b := range branches {
		t.Adopt(b, id)
	}
	return id
}

func (n *CoalesceNode) OutputType(t *Tree) valuetype.Type {
	types := make([]valuetype.Type, len(n.Branches))
	for i, b := range n.Branches {
		types[i] = t.TypeOf(b.End)
	}
	return valuetype.Merge(types...)
}

func (n *CoalesceNode) PropLocal(*Tree) bool { return false }

func (n *CoalesceNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	key := l.t.Labels.Index(n.Key)
	src := l.enterKey(in, in.Output(), key)
	outs := make([]*plan.Vertex, 0, len(n.Branches))
	for i, b := range n.Branches {
		sub, err := l.keyed(b, src, key)
		if err != nil {
			return nil, err
		}
		in.Merge(sub)
		out := sub.Output()
		outs = append(outs, out)
		if i < len(n.Branches)-1 {
			// Rows the branch produced nothing for move on to the next.
			next := l.pb.NewVertex(plan.OpJoinDirectFilterNegate, &plan.Argument{Ints: []int64{int64(key)}})
			in.Connect(src, next, plan.ByKey(key))
			in.Connect(out, next, plan.ByKey(key))
			src = next
		}
	}
	res := l.union(in, outs)
	in.SetOutput(res)
	res.AddAfter(plan.Requirement{Kind: plan.KeyDel, Labels: []int32{key}})
	return l.finish(n, in, res), nil
}
