package tree

import (
	"github.com/roach88/gplan/internal/label"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/valuetype"
)

// DedupNode removes duplicates of the head, of a tuple of labels, or of a
// by() key. With DedupLocal set (the input is a flatmap) each worker first
// drops the duplicates it produced itself. Keyed marks a dedup lowered
// inside a ring, where rows are partitioned by the ring key instead of the
// head.
type DedupNode struct {
	NodeBase
	Labels []int32
	By     *KeySpec
	Keyed  bool
}

// Dedup adds a dedup after in.
func (t *Tree) Dedup(in NodeID, labels []int32, by *KeySpec, keyed bool) NodeID {
	n := &DedupNode{Labels: labels, By: by, Keyed: keyed}
	id := t.add(n, KindDedup, in)
	if len(labels) == 0 && !keyed {
		n.DedupLocal = t.Node(in).Kind() == KindVertex || t.Node(in).Kind() == KindEdgeVertex
	}
	return id
}

func (n *DedupNode) OutputType(t *Tree) valuetype.Type { return t.TypeOf(n.Input()) }

func (n *DedupNode) byHead() bool { return len(n.Labels) == 0 }

// PropLocal holds after a top-level head dedup, which gathers each element
// on its owner.
func (n *DedupNode) PropLocal(*Tree) bool { return n.byHead() && !n.Keyed }

func (n *DedupNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	arg := &plan.Argument{}
	if len(n.Labels) > 0 {
		arg.Ints = ints64(n.Labels)
	}
	if n.By != nil {
		payload, err := keyPayload([]KeySpec{*n.By}, false)
		if err != nil {
			return nil, err
		}
		arg.Payload = payload
	}
	if len(arg.Ints) == 0 && len(arg.Payload) == 0 {
		arg = nil
	}

	if n.DedupLocal {
		local := l.pb.NewVertex(plan.OpDedupLocal, arg)
		in.Connect(in.Output(), local, plan.Forward())
		in.SetOutput(local)
	}

	// Head dedup partitions by the head so equal elements meet on one
	// worker; inside a ring they must also share the ring key.
	s := l.barrier()
	if n.byHead() && len(l.keys) == 0 {
		s = plan.ByKey(label.Head)
	}
	return l.unary(n, in, plan.OpDedup, arg, s), nil
}
