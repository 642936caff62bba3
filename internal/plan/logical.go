package plan

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/gplan/internal/ir"
)

// LogicalPlan is the finished output of a compilation: vertices in id
// order, edges in creation order, the output vertex, the query
// configuration collected from with(...) steps, and the label name to
// index table used by requirements and shuffles.
type LogicalPlan struct {
	Vertices []*Vertex             `json:"vertices"`
	Edges    []Edge                `json:"edges"`
	OutputID int32                 `json:"output_id"`
	Config   map[string]ir.IRValue `json:"config,omitempty"`
	Labels   map[string]int32      `json:"labels,omitempty"`
}

// Assemble freezes a sub-plan into a LogicalPlan.
func Assemble(p *SubPlan, labels map[string]int32, config map[string]ir.IRValue) *LogicalPlan {
	lp := &LogicalPlan{
		Vertices: p.Vertices(),
		Edges:    p.Edges(),
		Labels:   labels,
		Config:   config,
	}
	if out := p.Output(); out != nil {
		lp.OutputID = out.Resolve().ID
	}
	return lp
}

// Vertex returns the vertex with the given id.
func (lp *LogicalPlan) Vertex(id int32) (*Vertex, bool) {
	i, ok := slices.BinarySearchFunc(lp.Vertices, id, func(v *Vertex, id int32) int {
		return int(v.ID - id)
	})
	if !ok {
		return nil, false
	}
	return lp.Vertices[i], true
}

// Inputs returns the ids with an edge into id, in edge order.
func (lp *LogicalPlan) Inputs(id int32) []int32 {
	var in []int32
	for _, e := range lp.Edges {
		if e.To == id {
			in = append(in, e.From)
		}
	}
	return in
}

// Walk visits every vertex, descending into loop bodies after their
// repeat vertex.
func (lp *LogicalPlan) Walk(fn func(depth int, v *Vertex)) {
	lp.walk(0, fn)
}

func (lp *LogicalPlan) walk(depth int, fn func(int, *Vertex)) {
	for _, v := range lp.Vertices {
		fn(depth, v)
		if v.Loop != nil && v.Loop.Body != nil {
			v.Loop.Body.walk(depth+1, fn)
		}
	}
}

// CountVertices returns the number of vertices including loop bodies.
func (lp *LogicalPlan) CountVertices() int {
	n := 0
	lp.Walk(func(int, *Vertex) { n++ })
	return n
}

// Operators returns the operator kinds in Walk order.
func (lp *LogicalPlan) Operators() []OperatorKind {
	var ops []OperatorKind
	lp.Walk(func(_ int, v *Vertex) { ops = append(ops, v.Op) })
	return ops
}

// MarshalIndent renders the plan as indented JSON.
func (lp *LogicalPlan) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(lp, "", "  ")
}

// Fingerprint is a content hash of the plan: sha256 over its canonical
// JSON form under ir.DomainPlan. Isomorphic compilations of the same
// traversal have equal fingerprints.
func (lp *LogicalPlan) Fingerprint() (string, error) {
	return ir.Fingerprint(ir.DomainPlan, lp.canonical())
}

func (lp *LogicalPlan) canonical() map[string]any {
	vertices := make([]any, len(lp.Vertices))
	for i, v := range lp.Vertices {
		vertices[i] = canonicalVertex(v)
	}
	edges := make([]any, len(lp.Edges))
	for i, e := range lp.Edges {
		edges[i] = []any{int64(e.From), int64(e.To), e.Shuffle.String()}
	}
	out := map[string]any{
		"vertices": vertices,
		"edges":    edges,
		"output":   int64(lp.OutputID),
	}
	if len(lp.Config) > 0 {
		cfg := make(map[string]any, len(lp.Config))
		for k, v := range lp.Config {
			cfg[k] = v.String()
		}
		out["config"] = cfg
	}
	if len(lp.Labels) > 0 {
		labels := make(map[string]any, len(lp.Labels))
		for k, v := range lp.Labels {
			labels[k] = int64(v)
		}
		out["labels"] = labels
	}
	return out
}

func canonicalVertex(v *Vertex) map[string]any {
	out := map[string]any{
		"id": int64(v.ID),
		"op": v.Op.String(),
	}
	if v.Arg != nil {
		out["arg"] = canonicalArgument(v.Arg)
	}
	if len(v.Before) > 0 {
		out["before"] = canonicalRequirements(v.Before)
	}
	if len(v.After) > 0 {
		out["after"] = canonicalRequirements(v.After)
	}
	if v.Range != nil {
		out["range"] = []any{v.Range.Low, v.Range.High}
	}
	if v.EarlyStop.GlobalStop || v.EarlyStop.GlobalFilter {
		out["early_stop"] = []any{v.EarlyStop.GlobalStop, v.EarlyStop.GlobalFilter}
	}
	if v.Loop != nil {
		loop := map[string]any{
			"max_loops": v.Loop.MaxLoops,
			"leave":     int64(v.Loop.LeaveID),
			"feedback":  int64(v.Loop.FeedbackID),
		}
		if v.Loop.Body != nil {
			loop["body"] = v.Loop.Body.canonical()
		}
		out["loop"] = loop
	}
	return out
}

func canonicalArgument(a *Argument) map[string]any {
	out := map[string]any{}
	if a.Value != nil {
		out["value"] = a.Value.String()
	}
	if len(a.Ints) > 0 {
		out["ints"] = a.Ints
	}
	if len(a.Strings) > 0 {
		out["strings"] = a.Strings
	}
	if len(a.Comparisons) > 0 {
		out["comparisons"] = canonicalComparisons(a.Comparisons)
	}
	if len(a.Disjunction) > 0 {
		terms := make([]any, len(a.Disjunction))
		for i, conj := range a.Disjunction {
			terms[i] = canonicalComparisons(conj)
		}
		out["disjunction"] = terms
	}
	if len(a.Payload) > 0 {
		out["payload"] = string(a.Payload)
	}
	if a.Flag {
		out["flag"] = true
	}
	return out
}

func canonicalComparisons(cs []Comparison) []any {
	out := make([]any, len(cs))
	for i, c := range cs {
		value := ""
		if c.Value != nil {
			value = c.Value.String()
		}
		out[i] = []any{c.Target.String(), int64(c.Key), c.Op.String(), value}
	}
	return out
}

func canonicalRequirements(rs []Requirement) []any {
	out := make([]any, len(rs))
	for i, r := range rs {
		out[i] = map[string]any{
			"kind":   r.Kind.String(),
			"labels": slices.Clone(r.Labels),
			"props":  slices.Clone(r.Props),
		}
	}
	return out
}

// String is a one-line summary.
func (lp *LogicalPlan) String() string {
	return fmt.Sprintf("LogicalPlan{vertices=%d edges=%d output=%d}", lp.CountVertices(), len(lp.Edges), lp.OutputID)
}
