package builder

import (
	"maps"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/tree"
	"github.com/roach88/gplan/internal/valuetype"
)

// buildSource starts the chain. Has-containers folded into the source
// become pushed-down comparisons; if they contain or() predicates the
// disjunction stays a HAS_OR right after the scan.
func buildSource(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	g := s.(*traversal.GraphStep)
	if in != tree.NoNode {
		return tree.NoNode, ir.NewUnsupported(s.Name(), "mid-traversal %s() is not supported", s.Name())
	}
	terms, err := c.conditions(s.Name(), g.Containers)
	if err != nil {
		return tree.NoNode, err
	}
	maps.Copy(c.config, g.Config)

	var cs []plan.Comparison
	if len(terms) == 1 && len(terms[0]) > 0 {
		cs = terms[0]
	}
	id := c.tree.Source(g.Edges, g.IDs, cs)
	if len(terms) > 1 {
		id = c.tree.HasOr(id, terms)
	}
	return id, nil
}

func buildVertex(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	v := s.(*traversal.VertexStep)
	if typ := c.tree.TypeOf(in); valuetype.Equal(typ, valuetype.Edge) {
		return tree.NoNode, ir.NewMalformed(s.Name(), "%s() needs a vertex but its input is an edge", s.Name())
	}
	if err := c.requireElement(s, in); err != nil {
		return tree.NoNode, err
	}
	var ids []int32
	for _, name := range v.EdgeLabels {
		id, err := c.elementLabel(name)
		if err != nil {
			return tree.NoNode, err
		}
		ids = append(ids, id)
	}
	return c.tree.Expand(in, v.Direction, v.Edges, ids), nil
}

// buildEdgeVertex handles outV/inV/bothV and otherV.
func buildEdgeVertex(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	if typ := c.tree.TypeOf(in); valuetype.Equal(typ, valuetype.Vertex) {
		return tree.NoNode, ir.NewMalformed(s.Name(), "%s() needs an edge but its input is a vertex", s.Name())
	}
	if err := c.requireElement(s, in); err != nil {
		return tree.NoNode, err
	}
	if e, ok := s.(*traversal.EdgeVertexStep); ok {
		return c.tree.EdgeVertex(in, e.Direction, false), nil
	}
	return c.tree.EdgeVertex(in, traversal.Both, true), nil
}
