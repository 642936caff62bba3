// Package tree is the intermediate representation between a traversal and
// its logical plan. Nodes live in an arena (Tree) and are addressed by
// NodeID; each wraps one traversal step or a synthetic helper, reports its
// output type, and lowers itself onto a plan.Builder.
//
// Nodes form chains: every node has at most one chain input, and nested
// sub-traversals (ring predicates, loop bodies, branch options) are chains
// of their own that start at a DelegateNode. A delegate stands for whatever
// vertex the enclosing node binds it to when the sub-chain is lowered.
//
// The builder creates and annotates nodes. Once Lower starts the tree is
// read-only.
package tree

import (
	"fmt"
	"slices"

	"github.com/roach88/gplan/internal/label"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/valuetype"
)

// NodeID addresses a node in its Tree.
type NodeID int32

// NoNode is the absent node.
const NoNode NodeID = -1

// Node is one IR node. The interface is sealed by its lowering method.
type Node interface {
	Base() *NodeBase
	Kind() Kind
	// OutputType is a pure function of the input types and the node's own
	// parameters.
	OutputType(t *Tree) valuetype.Type
	// PropLocal reports whether the output head is resident on the worker
	// that holds it, so its properties and adjacency can be read without a
	// shuffle.
	PropLocal(t *Tree) bool

	lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error)
}

// NodeBase carries what every node has regardless of kind.
type NodeBase struct {
	ID     NodeID
	Inputs []NodeID
	// Parent is the enclosing node for nodes of a nested chain.
	Parent NodeID
	// Step is the originating step name, for diagnostics.
	Step string
	// Labels are the user labels bound to the node's output.
	Labels []string

	Before []plan.Requirement
	After  []plan.Requirement

	// UsedLabels are the labels this node reads.
	UsedLabels []string

	PathFlag   bool
	DedupLocal bool
	Subquery   bool

	// FillProps are the property ids a PROP_FILL after the node fetches
	// for readers of the path.
	FillProps []int32

	RangeLimit *plan.Range
	EarlyStop  plan.EarlyStop

	kind Kind
}

// Base returns the shared node fields.
func (b *NodeBase) Base() *NodeBase { return b }

// Kind returns the node kind.
func (b *NodeBase) Kind() Kind { return b.kind }

// Input returns the chain input, or NoNode.
func (b *NodeBase) Input() NodeID {
	if len(b.Inputs) == 0 {
		return NoNode
	}
	return b.Inputs[0]
}

// PropLocal defaults to the input's residency: most nodes do not move rows.
func (b *NodeBase) PropLocal(t *Tree) bool {
	in := b.Input()
	if in == NoNode {
		return false
	}
	return t.Node(in).PropLocal(t)
}

// AddBefore merges a before-requirement by kind.
func (b *NodeBase) AddBefore(r plan.Requirement) { b.Before = plan.AddRequirement(b.Before, r) }

// AddAfter merges an after-requirement by kind.
func (b *NodeBase) AddAfter(r plan.Requirement) { b.After = plan.AddRequirement(b.After, r) }

// Chain is a nested sub-chain: Start is its DelegateNode, End its last
// node. Start == End is the empty chain, which passes rows through.
type Chain struct {
	Start NodeID
	End   NodeID
}

// Empty reports whether the chain has no nodes past its delegate.
func (c Chain) Empty() bool { return c.Start == c.End }

// Tree is the node arena of one compilation.
type Tree struct {
	Labels *label.Manager

	nodes   []Node
	readers map[string][]NodeID
	types   map[NodeID]valuetype.Type
}

// New returns an empty tree sharing the compilation's label manager.
func New(labels *label.Manager) *Tree {
	return &Tree{
		Labels:  labels,
		readers: make(map[string][]NodeID),
		types:   make(map[NodeID]valuetype.Type),
	}
}

func (t *Tree) add(n Node, kind Kind, inputs ...NodeID) NodeID {
	b := n.Base()
	b.ID = NodeID(len(t.nodes))
	b.kind = kind
	b.Parent = NoNode
	for _, in := range inputs {
		if in != NoNode {
			b.Inputs = append(b.Inputs, in)
		}
	}
	t.nodes = append(t.nodes, n)
	return b.ID
}

// Node returns the node with the given id. It panics on an unknown id.
func (t *Tree) Node(id NodeID) Node {
	if id < 0 || int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("tree: unknown node %d", id))
	}
	return t.nodes[id]
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// TypeOf returns the output type of id, memoized.
func (t *Tree) TypeOf(id NodeID) valuetype.Type {
	if id == NoNode {
		return valuetype.Scalar(valuetype.Unknown)
	}
	if typ, ok := t.types[id]; ok {
		return typ
	}
	typ := t.Node(id).OutputType(t)
	t.types[id] = typ
	return typ
}

// PropLocal reports the residency of id's output head.
func (t *Tree) PropLocal(id NodeID) bool {
	if id == NoNode {
		return false
	}
	return t.Node(id).PropLocal(t)
}

// MarkUsed records that reader reads label name.
func (t *Tree) MarkUsed(name string, reader NodeID) {
	t.readers[name] = append(t.readers[name], reader)
	if reader != NoNode {
		b := t.Node(reader).Base()
		if !slices.Contains(b.UsedLabels, name) {
			b.UsedLabels = append(b.UsedLabels, name)
		}
	}
}

// Used reports whether any node reads label name.
func (t *Tree) Used(name string) bool { return len(t.readers[name]) > 0 }

// ChainTo returns the chain ending at end, from its first node to end.
func (t *Tree) ChainTo(end NodeID) []NodeID {
	var ids []NodeID
	for id := end; id != NoNode; id = t.Node(id).Base().Input() {
		ids = append(ids, id)
	}
	slices.Reverse(ids)
	return ids
}

// Adopt makes parent the enclosing node of every node of c.
func (t *Tree) Adopt(c Chain, parent NodeID) {
	for _, id := range t.ChainTo(c.End) {
		t.Node(id).Base().Parent = parent
	}
}

// OnChain reports whether anc is end or one of its chain ancestors.
func (t *Tree) OnChain(end, anc NodeID) bool {
	for id := end; id != NoNode; id = t.Node(id).Base().Input() {
		if id == anc {
			return true
		}
	}
	return false
}

// PropagateFill adds props to the fill set of every path-tracked element
// producer upstream of from, descending into loop bodies and branch
// options, so a single PROP_FILL per element answers every path reader.
func (t *Tree) PropagateFill(from NodeID, props []int32) {
	if len(props) == 0 {
		return
	}
	t.fill(t.Node(from).Base().Input(), props)
}

func (t *Tree) fill(id NodeID, props []int32) {
	for id != NoNode {
		n := t.Node(id)
		for _, c := range nestedPaths(n) {
			t.fill(c.End, props)
		}
		b := n.Base()
		if b.PathFlag && valuetype.IsElement(t.TypeOf(id)) {
			for _, p := range props {
				if !slices.Contains(b.FillProps, p) {
					b.FillProps = append(b.FillProps, p)
				}
			}
			slices.Sort(b.FillProps)
		}
		id = b.Input()
	}
}

// nestedPaths returns the sub-chains whose rows continue the traverser's
// path: loop bodies and branch options, but not predicate rings.
func nestedPaths(n Node) []Chain {
	switch n := n.(type) {
	case *RepeatNode:
		return []Chain{n.Body}
	case *UnionNode:
		return n.Branches
	case *CoalesceNode:
		return n.Branches
	case *BranchNode:
		out := make([]Chain, len(n.Options))
		for i, o := range n.Options {
			out[i] = o.Body
		}
		return out
	}
	return nil
}
