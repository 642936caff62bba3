package builder

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/tree"
	"github.com/roach88/gplan/internal/valuetype"
)

// buildToken handles id() and label().
func buildToken(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	if err := c.requireElement(s, in); err != nil {
		return tree.NoNode, err
	}
	if s.Kind() == traversal.StepID {
		return c.tokenMap(in, traversal.TokenID), nil
	}
	return c.tokenMap(in, traversal.TokenLabel), nil
}

func buildConstant(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	v := s.(*traversal.ConstantStep).Value
	if v == nil {
		v = ir.IRNull{}
	}
	return c.tree.Map(in, plan.OpConstant, &plan.Argument{Value: v}, literalType(v), false, true), nil
}

// buildProperties handles properties() and values(). Without keys every
// property is read, so the value type is unknown.
func buildProperties(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	p := s.(*traversal.PropertiesStep)
	if err := c.requireElement(s, in); err != nil {
		return tree.NoNode, err
	}
	ids, typ, err := c.properties(p.Keys)
	if err != nil {
		return tree.NoNode, err
	}
	var arg *plan.Argument
	if len(ids) > 0 {
		arg = &plan.Argument{Ints: ids}
	}
	if p.Values {
		return c.tree.Map(in, plan.OpPropValue, arg, typ, true, false), nil
	}
	return c.tree.Map(in, plan.OpProperties, arg, valuetype.Property, true, false), nil
}

// buildPropertyMap handles valueMap() and elementMap(). valueMap values are
// lists since vertex properties may repeat.
func buildPropertyMap(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	p := s.(*traversal.PropertyMapStep)
	if err := c.requireElement(s, in); err != nil {
		return tree.NoNode, err
	}
	ids, typ, err := c.properties(p.Keys)
	if err != nil {
		return tree.NoNode, err
	}
	value := valuetype.List(typ)
	if p.Elements {
		value = valuetype.Merge(typ, tokenType(traversal.TokenID), tokenType(traversal.TokenLabel))
	}
	arg := &plan.Argument{Ints: ids, Flag: p.Elements}
	out := valuetype.Map(valuetype.Scalar(valuetype.String), value)
	return c.tree.Map(in, plan.OpPropMap, arg, out, true, true), nil
}

func buildPropertyKey(c *buildContext, _ traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	return c.tokenMap(in, traversal.TokenKey), nil
}

func buildPropertyValue(c *buildContext, _ traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	return c.tokenMap(in, traversal.TokenValue), nil
}

func buildUnfold(c *buildContext, _ traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	out := valuetype.Unfold(c.tree.TypeOf(in))
	return c.tree.Map(in, plan.OpUnfold, nil, out, false, false), nil
}

func buildSelectOne(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	sel := s.(*traversal.SelectOneStep)
	id, err := c.tree.SelectOne(in, sel.Key, sel.Pop)
	if err != nil {
		return tree.NoNode, err
	}
	if sel.By == nil {
		return id, nil
	}
	return c.mapBy(*sel.By, id)
}

// buildSelect reads several labels into a map. by() modulators apply to the
// labels round-robin and must read the values directly.
func buildSelect(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	sel := s.(*traversal.SelectStep)
	var specs []tree.KeySpec
	if len(sel.By) > 0 {
		specs = make([]tree.KeySpec, len(sel.Keys))
		for i := range sel.Keys {
			b := sel.By[i%len(sel.By)]
			k, ok, err := c.staticKey(b, in)
			if err != nil {
				return tree.NoNode, err
			}
			if !ok {
				return tree.NoNode, ir.NewUnsupported(s.Name(), "select() of several labels by %s is not supported", b)
			}
			specs[i] = k
		}
	}
	return c.tree.Select(in, sel.Keys, sel.Pop, specs)
}

func buildPath(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	p := s.(*traversal.PathStep)
	specs := make([]tree.KeySpec, 0, len(p.By))
	for _, b := range p.By {
		k, ok, err := c.staticKey(b, in)
		if err != nil {
			return tree.NoNode, err
		}
		if !ok {
			return tree.NoNode, ir.NewUnsupported(s.Name(), "path() by %s is not supported", b)
		}
		if k.Kind == tree.KeyHead {
			k.Type = valuetype.Merge(c.tree.PathElements(in)...)
		}
		specs = append(specs, k)
	}
	return c.tree.Path(in, specs, c.tree.PathElements(in)), nil
}

// buildProject evaluates one by() per key. Keys without a by() read the
// value itself.
func buildProject(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	p := s.(*traversal.ProjectStep)
	if len(p.Keys) == 0 {
		return tree.NoNode, ir.NewMalformed(s.Name(), "project() needs at least one key")
	}
	specs := make([]tree.KeySpec, len(p.Keys))
	for i := range p.Keys {
		var b traversal.By
		if i < len(p.By) {
			b = p.By[i]
		}
		var err error
		if in, specs[i], err = c.keySpec(b, in); err != nil {
			return tree.NoNode, err
		}
	}
	id := c.tree.Project(in, p.Keys, specs)
	c.dropKeys(id, specs...)
	return id, nil
}

func buildScope(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	sc := s.(*traversal.ScopeStep)
	if sc.Traversal == nil {
		return tree.NoNode, ir.NewMalformed(s.Name(), "%s() needs a traversal", s.Name())
	}
	return c.scope(sc.Traversal, in)
}
