package tree

import (
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/valuetype"
)

// ReduceNode is count, sum, max, min, mean or fold: over the whole stream,
// or with Local set over each collection value.
type ReduceNode struct {
	NodeBase
	Op    plan.OperatorKind
	Local bool
}

// Reduce adds a reduction after in.
func (t *Tree) Reduce(in NodeID, op plan.OperatorKind, local bool) NodeID {
	return t.add(&ReduceNode{Op: op, Local: local}, KindReduce, in)
}

func (n *ReduceNode) OutputType(t *Tree) valuetype.Type {
	elem := t.TypeOf(n.Input())
	if n.Op == plan.OpFold {
		return valuetype.List(elem)
	}
	if n.Local {
		elem = valuetype.Unfold(elem)
	}
	switch n.Op {
	case plan.OpCount:
		return valuetype.Scalar(valuetype.Long)
	case plan.OpSum:
		return valuetype.NumericResult(elem)
	case plan.OpMean:
		return valuetype.Scalar(valuetype.Double)
	default:
		return elem
	}
}

// PropLocal is true for scalar results, which have no properties to read.
func (n *ReduceNode) PropLocal(t *Tree) bool {
	return !valuetype.IsElement(n.OutputType(t))
}

func (n *ReduceNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	if n.Local {
		return l.unary(n, in, n.Op, &plan.Argument{Flag: true}, plan.Forward()), nil
	}
	return l.unary(n, in, n.Op, nil, l.barrier()), nil
}

// OrderNode sorts the stream, or each collection with Local set. A global
// range right after it is fused into Limit.
type OrderNode struct {
	NodeBase
	Local bool
	By    []KeySpec
	Limit *plan.Range
}

// Order adds a sort after in. An empty by sorts by the value ascending.
func (t *Tree) Order(in NodeID, local bool, by []KeySpec) NodeID {
	if len(by) == 0 {
		by = []KeySpec{HeadKey(t.TypeOf(in))}
	}
	return t.add(&OrderNode{Local: local, By: by}, KindOrder, in)
}

func (n *OrderNode) OutputType(t *Tree) valuetype.Type { return t.TypeOf(n.Input()) }

func (n *OrderNode) PropLocal(t *Tree) bool {
	if n.Local {
		return n.NodeBase.PropLocal(t)
	}
	return false
}

func (n *OrderNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	payload, err := keyPayload(n.By, true)
	if err != nil {
		return nil, err
	}
	arg := &plan.Argument{Payload: payload, Flag: n.Local}
	s := plan.Forward()
	if !n.Local {
		l.prefill(n, in, propsOf(n.By...))
		s = l.barrier()
	}
	v := l.pb.NewVertex(plan.OpOrder, arg)
	in.Connect(in.Output(), v, s)
	in.SetOutput(v)
	if n.Limit != nil {
		r := *n.Limit
		v.Range = &r
	}
	return l.finish(n, in, v), nil
}

// GroupNode groups the stream into a map from Key to the collected (or
// reduced) Value.
type GroupNode struct {
	NodeBase
	Key   KeySpec
	Value KeySpec
}

// Group adds a group after in.
func (t *Tree) Group(in NodeID, key, value KeySpec) NodeID {
	return t.add(&GroupNode{Key: key, Value: value}, KindGroup, in)
}

func (n *GroupNode) OutputType(*Tree) valuetype.Type {
	value := n.Value.Type
	if n.Value.Kind != KeyReduce {
		value = valuetype.List(value)
	}
	return valuetype.Map(n.Key.Type, value)
}

func (n *GroupNode) PropLocal(*Tree) bool { return true }

func (n *GroupNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	payload, err := objectPayload(map[string]KeySpec{"key": n.Key, "value": n.Value})
	if err != nil {
		return nil, err
	}
	l.prefill(n, in, propsOf(n.Key, n.Value))
	return l.unary(n, in, plan.OpGroup, &plan.Argument{Payload: payload}, l.barrier()), nil
}

// GroupCountNode counts the stream by Key.
type GroupCountNode struct {
	NodeBase
	Key KeySpec
}

// GroupCount adds a groupCount after in.
func (t *Tree) GroupCount(in NodeID, key KeySpec) NodeID {
	return t.add(&GroupCountNode{Key: key}, KindGroupCount, in)
}

func (n *GroupCountNode) OutputType(*Tree) valuetype.Type {
	return valuetype.Map(n.Key.Type, valuetype.Scalar(valuetype.Long))
}

func (n *GroupCountNode) PropLocal(*Tree) bool { return true }

func (n *GroupCountNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	payload, err := objectPayload(map[string]KeySpec{"key": n.Key})
	if err != nil {
		return nil, err
	}
	l.prefill(n, in, propsOf(n.Key))
	return l.unary(n, in, plan.OpGroupCount, &plan.Argument{Payload: payload}, l.barrier()), nil
}
