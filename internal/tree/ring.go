package tree

import (
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/valuetype"
)

// RingMode is what a ring does with the rows its sub-chain produces.
type RingMode uint8

const (
	// RingSemi keeps input rows for which the sub-chain yields anything.
	RingSemi RingMode = iota
	// RingAnti keeps input rows for which it yields nothing.
	RingAnti
	// RingValue stores the sub-chain's result in label Value of each input
	// row and keeps the row.
	RingValue
)

var ringModeNames = [...]string{RingSemi: "semi", RingAnti: "anti", RingValue: "value"}

func (m RingMode) String() string { return ringModeNames[m] }

// RingNode evaluates a sub-chain per input row. Rows are tagged with a
// fresh system key before the sub-chain runs and joined back on it.
type RingNode struct {
	NodeBase
	Mode RingMode
	Sub  Chain
	// Key is the system label the join is keyed on.
	Key string
	// Value is the system label a value ring stores into.
	Value string
}

// Ring adds a ring after in over sub, whose delegate must read in. The
// caller adopts sub.
func (t *Tree) Ring(in NodeID, mode RingMode, sub Chain, key, value string) NodeID {
	id := t.add(&RingNode{Mode: mode, Sub: sub, Key: key, Value: value}, KindRing, in)
	t.Adopt(sub, id)
	return id
}

// ValueType is the type stored under Value.
func (n *RingNode) ValueType(t *Tree) valuetype.Type { return t.TypeOf(n.Sub.End) }

func (n *RingNode) OutputType(t *Tree) valuetype.Type { return t.TypeOf(n.Input()) }

// PropLocal is false: the join partitions rows by the ring key.
func (n *RingNode) PropLocal(*Tree) bool { return false }

func (n *RingNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	key := l.t.Labels.Index(n.Key)
	ek := l.enterKey(in, in.Output(), key)
	sub, err := l.keyed(n.Sub, ek, key)
	if err != nil {
		return nil, err
	}
	in.Merge(sub)

	var j *plan.Vertex
	switch n.Mode {
	case RingSemi:
		j = l.join(in, plan.OpJoinDirectFilter, ek, sub.Output(), key)
	case RingAnti:
		j = l.join(in, plan.OpJoinDirectFilterNegate, ek, sub.Output(), key)
	default:
		j = l.join(in, plan.OpJoinLabel, ek, sub.Output(), key, int64(l.t.Labels.Index(n.Value)))
	}
	in.SetOutput(j)
	return l.finish(n, in, j), nil
}
