package tree

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/valuetype"
)

// SelectOneNode replaces the head with the value bound to one label. When
// the label has a single producer on the node's own ancestor chain and
// holds an element, the row is shuffled to that element's owner, so the
// select is a keyed pass-through and the new head is resident.
type SelectOneNode struct {
	NodeBase
	Name  string
	Index int32
	Pop   traversal.Pop
	Keyed bool
	Out   valuetype.Type
}

// SelectOne adds a single-label select after in. The label must be bound;
// its type is resolved from the label's producers.
func (t *Tree) SelectOne(in NodeID, name string, pop traversal.Pop) (NodeID, error) {
	out, err := t.Labels.ValueType(name, pop, func(p int32) valuetype.Type { return t.TypeOf(NodeID(p)) })
	if err != nil {
		return NoNode, err
	}
	producers := t.Labels.Producers(name)
	keyed := len(producers) == 1 &&
		t.OnChain(in, NodeID(producers[0])) &&
		valuetype.IsElement(out)
	n := &SelectOneNode{Name: name, Index: t.Labels.Index(name), Pop: pop, Keyed: keyed, Out: out}
	id := t.add(n, KindSelectOne, in)
	t.MarkUsed(name, id)
	return id, nil
}

func (n *SelectOneNode) OutputType(*Tree) valuetype.Type { return n.Out }

func (n *SelectOneNode) PropLocal(*Tree) bool { return n.Keyed || !valuetype.IsElement(n.Out) }

func (n *SelectOneNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	arg := &plan.Argument{Ints: []int64{int64(n.Index)}}
	if n.Pop != traversal.PopNone {
		arg.Value = ir.IRString(n.Pop.String())
	}
	s := plan.Forward()
	if n.Keyed {
		s = plan.ByKey(n.Index)
	}
	return l.unary(n, in, plan.OpSelectOne, arg, s), nil
}

// SelectNode maps the row to a map of several label values.
type SelectNode struct {
	NodeBase
	Names   []string
	Indices []int32
	Pop     traversal.Pop
	By      []KeySpec
	Out     valuetype.Type
}

// Select adds a multi-label select after in. by, when set, has one spec
// per name.
func (t *Tree) Select(in NodeID, names []string, pop traversal.Pop, by []KeySpec) (NodeID, error) {
	types := make([]valuetype.Type, len(names))
	indices := make([]int32, len(names))
	for i, name := range names {
		typ, err := t.Labels.ValueType(name, pop, func(p int32) valuetype.Type { return t.TypeOf(NodeID(p)) })
		if err != nil {
			return NoNode, err
		}
		if len(by) > 0 && by[i].Kind != KeyHead {
			typ = by[i].Type
		}
		types[i] = typ
		indices[i] = t.Labels.Index(name)
	}
	n := &SelectNode{
		Names:   names,
		Indices: indices,
		Pop:     pop,
		By:      by,
		Out:     valuetype.Map(valuetype.Scalar(valuetype.String), valuetype.Merge(types...)),
	}
	id := t.add(n, KindSelect, in)
	for _, name := range names {
		t.MarkUsed(name, id)
	}
	return id, nil
}

func (n *SelectNode) OutputType(*Tree) valuetype.Type { return n.Out }

func (n *SelectNode) PropLocal(*Tree) bool { return true }

func (n *SelectNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	arg := &plan.Argument{Ints: ints64(n.Indices), Strings: n.Names}
	if len(n.By) > 0 {
		payload, err := keyPayload(n.By, false)
		if err != nil {
			return nil, err
		}
		arg.Payload = payload
	}
	if n.Pop != traversal.PopNone {
		arg.Value = ir.IRString(n.Pop.String())
	}
	return l.unary(n, in, plan.OpSelect, arg, plan.Forward()), nil
}

// PathNode maps the row to its path. By specs apply to path elements
// round-robin; property reads are served by the PROP_FILL vertices that
// PropagateFill placed after each path element.
type PathNode struct {
	NodeBase
	By  []KeySpec
	Out valuetype.Type
}

// Path adds a path step after in. elems are the types of the path's
// elements.
func (t *Tree) Path(in NodeID, by []KeySpec, elems []valuetype.Type) NodeID {
	elem := valuetype.Merge(elems...)
	if len(by) > 0 {
		types := make([]valuetype.Type, len(by))
		for i, k := range by {
			types[i] = k.Type
		}
		elem = valuetype.Merge(types...)
	}
	id := t.add(&PathNode{By: by, Out: valuetype.List(elem)}, KindPath, in)
	t.PropagateFill(id, propsOf(by...))
	return id
}

// PathElements returns the types a path read after in can hold: those of
// the path-tracked nodes upstream of in, and in's own.
func (t *Tree) PathElements(in NodeID) []valuetype.Type {
	types := []valuetype.Type{t.TypeOf(in)}
	for id := in; id != NoNode; id = t.Node(id).Base().Input() {
		n := t.Node(id)
		for _, c := range nestedPaths(n) {
			types = append(types, t.PathElements(c.End)...)
		}
		if n.Base().PathFlag {
			types = append(types, t.TypeOf(id))
		}
	}
	return types
}

func (n *PathNode) OutputType(*Tree) valuetype.Type { return n.Out }

func (n *PathNode) PropLocal(*Tree) bool { return true }

func (n *PathNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	var arg *plan.Argument
	if len(n.By) > 0 {
		payload, err := keyPayload(n.By, false)
		if err != nil {
			return nil, err
		}
		arg = &plan.Argument{Payload: payload}
	}
	return l.unary(n, in, plan.OpPath, arg, plan.Forward()), nil
}
