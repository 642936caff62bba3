package plan

import (
	"strconv"

	"github.com/tidwall/btree"
)

// Builder mints vertices for one compilation. NewVertex is the only place
// vertex ids are allocated, so ids give a total order over creation.
type Builder struct {
	next int32
}

// NewBuilder returns a Builder whose first vertex gets id 1.
func NewBuilder() *Builder {
	return &Builder{next: 1}
}

// NewVertex allocates the next id.
func (b *Builder) NewVertex(op OperatorKind, arg *Argument) *Vertex {
	v := &Vertex{ID: b.next, Op: op, Arg: arg}
	b.next++
	return v
}

// Delegate returns an alias of v for use as the source of a nested plan.
// It consumes no id.
func (b *Builder) Delegate(v *Vertex) *Vertex {
	t := v.Resolve()
	return &Vertex{ID: t.ID, Op: t.Op, target: t}
}

// Minted returns how many vertices have been allocated.
func (b *Builder) Minted() int { return int(b.next - 1) }

type edgeKey struct {
	from, to int32
	shuffle  Shuffle
}

// SubPlan is a partial plan: an id-ordered vertex set, an insertion-ordered
// edge list and the vertex whose rows are the plan's output.
//
// Merging unions vertex and edge sets without copying vertices, so a
// *Vertex held by a label binding stays valid after any number of merges.
type SubPlan struct {
	vertices *btree.BTreeG[*Vertex]
	edges    []Edge
	seen     map[edgeKey]struct{}
	output   *Vertex
}

func vertexLess(a, b *Vertex) bool { return a.ID < b.ID }

// NewSubPlan returns an empty plan.
func NewSubPlan() *SubPlan {
	return &SubPlan{
		vertices: btree.NewBTreeG(vertexLess),
		seen:     make(map[edgeKey]struct{}),
	}
}

// Single returns a plan holding v as its output.
func Single(v *Vertex) *SubPlan {
	p := NewSubPlan()
	p.Add(v)
	p.output = v
	return p
}

// Add inserts v. Delegates are never inserted.
func (p *SubPlan) Add(v *Vertex) {
	if v == nil || v.IsDelegate() {
		return
	}
	p.vertices.Set(v)
}

// Connect adds an edge from -> to, inserting both ends. Delegates are
// resolved so edges always name real vertices.
func (p *SubPlan) Connect(from, to *Vertex, s Shuffle) {
	p.Add(from)
	p.Add(to)
	key := edgeKey{from: from.Resolve().ID, to: to.Resolve().ID, shuffle: s}
	if _, dup := p.seen[key]; dup {
		return
	}
	p.seen[key] = struct{}{}
	p.edges = append(p.edges, Edge{From: key.from, To: key.to, Shuffle: s})
}

// Merge unions o into p. p's output is unchanged.
func (p *SubPlan) Merge(o *SubPlan) {
	if o == nil || o == p {
		return
	}
	o.vertices.Scan(func(v *Vertex) bool {
		p.vertices.Set(v)
		return true
	})
	for _, e := range o.edges {
		key := edgeKey{from: e.From, to: e.To, shuffle: e.Shuffle}
		if _, dup := p.seen[key]; dup {
			continue
		}
		p.seen[key] = struct{}{}
		p.edges = append(p.edges, e)
	}
}

// Output returns the vertex whose rows the plan produces.
func (p *SubPlan) Output() *Vertex { return p.output }

// SetOutput moves the output pointer.
func (p *SubPlan) SetOutput(v *Vertex) { p.output = v }

// Vertex looks up a vertex by id.
func (p *SubPlan) Vertex(id int32) (*Vertex, bool) {
	return p.vertices.Get(&Vertex{ID: id})
}

// Contains reports whether id is in the plan.
func (p *SubPlan) Contains(id int32) bool {
	_, ok := p.Vertex(id)
	return ok
}

// Vertices returns the vertices in id order.
func (p *SubPlan) Vertices() []*Vertex {
	out := make([]*Vertex, 0, p.vertices.Len())
	p.vertices.Scan(func(v *Vertex) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Edges returns the edges in insertion order.
func (p *SubPlan) Edges() []Edge {
	out := make([]Edge, len(p.edges))
	copy(out, p.edges)
	return out
}

// Len returns the number of vertices.
func (p *SubPlan) Len() int { return p.vertices.Len() }

// Inputs returns the ids with an edge into id, in edge order.
func (p *SubPlan) Inputs(id int32) []int32 {
	var in []int32
	for _, e := range p.edges {
		if e.To == id {
			in = append(in, e.From)
		}
	}
	return in
}

func itoa(n int32) string { return strconv.FormatInt(int64(n), 10) }
