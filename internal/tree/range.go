package tree

import (
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/valuetype"
)

// RangeNode keeps rows [Low, High) of the stream, or of each collection
// value when Local is set. High < 0 is unbounded.
type RangeNode struct {
	NodeBase
	Low   int64
	High  int64
	Local bool
}

// Range adds a range after in and returns the node that now ends the
// chain. A global range is folded where it can be:
//   - right after a global order it becomes the order's limit
//   - on a top-level chain whose nearest non-map ancestor is a source or
//     flatmap, that ancestor gets a local pre-range [0, High)
//   - directly after a source with Low == 0, the pre-range and a global
//     stop replace the range entirely
func (t *Tree) Range(in NodeID, low, high int64, local bool) NodeID {
	if !local {
		if o, ok := t.Node(in).(*OrderNode); ok && !o.Local && o.Limit == nil {
			o.Limit = &plan.Range{Low: low, High: high}
			return in
		}
		if anc := t.rangeAnchor(in); anc != NoNode && high >= 0 {
			b := t.Node(anc).Base()
			if b.RangeLimit == nil || b.RangeLimit.High > high {
				b.RangeLimit = &plan.Range{Low: 0, High: high}
			}
			if anc == in && low == 0 && b.Kind() == KindSource {
				b.EarlyStop.GlobalStop = true
				return in
			}
		}
	}
	return t.add(&RangeNode{Low: low, High: high, Local: local}, KindRange, in)
}

// rangeAnchor returns the node a pre-range can be pushed to, or NoNode.
// Only top-level chains qualify: inside a nested chain a worker-wide
// limit would cut across the enclosing traversers.
func (t *Tree) rangeAnchor(id NodeID) NodeID {
	for id != NoNode {
		n := t.Node(id)
		if n.Base().Subquery {
			return NoNode
		}
		switch n := n.(type) {
		case *SourceNode, *VertexNode, *EdgeVertexNode:
			return id
		case *MapNode:
			if !n.OneToOne {
				return id
			}
		default:
			return NoNode
		}
		id = n.Base().Input()
	}
	return NoNode
}

func (n *RangeNode) OutputType(t *Tree) valuetype.Type { return t.TypeOf(n.Input()) }

func (n *RangeNode) PropLocal(t *Tree) bool {
	if n.Local {
		return n.NodeBase.PropLocal(t)
	}
	return false
}

func (n *RangeNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	var (
		arg *plan.Argument
		s   = plan.Forward()
	)
	if n.Local {
		arg = &plan.Argument{Flag: true}
	} else {
		s = l.barrier()
	}
	v := l.pb.NewVertex(plan.OpRange, arg)
	in.Connect(in.Output(), v, s)
	in.SetOutput(v)
	v.Range = &plan.Range{Low: n.Low, High: n.High}
	v.EarlyStop.GlobalStop = !n.Local && n.High >= 0
	return l.finish(n, in, v), nil
}
