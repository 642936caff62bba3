package builder

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/tree"
	"github.com/roach88/gplan/internal/valuetype"
)

// property resolves a property name to its id and the merged type of its
// values.
func (c *buildContext) property(name string) (int32, valuetype.Type, error) {
	id, err := c.schema.PropertyID(name)
	if err != nil {
		return 0, nil, schemaError("property", name, err)
	}
	dts, err := c.schema.PropertyDataTypes(name)
	if err != nil {
		return 0, nil, schemaError("property", name, err)
	}
	types := make([]valuetype.Type, len(dts))
	for i, d := range dts {
		types[i] = valuetype.Scalar(d)
	}
	return id, valuetype.Merge(types...), nil
}

func (c *buildContext) properties(names []string) ([]int64, valuetype.Type, error) {
	ids := make([]int64, len(names))
	types := make([]valuetype.Type, len(names))
	for i, name := range names {
		id, typ, err := c.property(name)
		if err != nil {
			return nil, nil, err
		}
		ids[i] = int64(id)
		types[i] = typ
	}
	return ids, valuetype.Merge(types...), nil
}

func (c *buildContext) elementLabel(name string) (int32, error) {
	id, err := c.schema.ElementLabelID(name)
	if err != nil {
		return 0, schemaError("label", name, err)
	}
	return id, nil
}

// labelValue replaces element label names in a comparison operand with
// their schema ids.
func (c *buildContext) labelValue(step string, v ir.IRValue) (ir.IRValue, error) {
	switch val := v.(type) {
	case ir.IRString:
		id, err := c.elementLabel(string(val))
		if err != nil {
			return nil, err
		}
		return ir.IRInt(id), nil
	case ir.IRArray:
		out := make(ir.IRArray, len(val))
		for i, elem := range val {
			r, err := c.labelValue(step, elem)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return nil, ir.NewMalformed(step, "element label %s is not a string", v)
}

func tokenType(tok traversal.Token) valuetype.Type {
	switch tok {
	case traversal.TokenID:
		return valuetype.Scalar(valuetype.Long)
	case traversal.TokenLabel, traversal.TokenKey:
		return valuetype.Scalar(valuetype.String)
	}
	return valuetype.Scalar(valuetype.Unknown)
}

// literalType is the type of a literal operand.
func literalType(v ir.IRValue) valuetype.Type {
	switch val := v.(type) {
	case ir.IRString:
		return valuetype.Scalar(valuetype.String)
	case ir.IRInt:
		return valuetype.Scalar(valuetype.Long)
	case ir.IRDouble:
		return valuetype.Scalar(valuetype.Double)
	case ir.IRBool:
		return valuetype.Scalar(valuetype.Bool)
	case ir.IRArray:
		elems := make([]valuetype.Type, len(val))
		for i, e := range val {
			elems[i] = literalType(e)
		}
		return valuetype.List(valuetype.Merge(elems...))
	case ir.IRObject:
		vals := make([]valuetype.Type, 0, len(val))
		for _, k := range val.SortedKeys() {
			vals = append(vals, literalType(val[k]))
		}
		return valuetype.Map(valuetype.Scalar(valuetype.String), valuetype.Merge(vals...))
	}
	return valuetype.Scalar(valuetype.Unknown)
}

// trivialStep returns the only step of t when t is a single unlabeled
// step with no start labels.
func trivialStep(t *traversal.Traversal) (traversal.Step, bool) {
	if t == nil || len(t.StartLabels) > 0 {
		return nil, false
	}
	t = traversal.Rewrite(t)
	if len(t.Steps) != 1 || traversal.Labeled(t.Steps[0]) {
		return nil, false
	}
	return t.Steps[0], true
}

// staticKey resolves a by() modulator that reads the row directly: the
// identity, a property key, a token, or a traversal that is exactly
// values(k), id() or label(). ok is false for any other traversal.
func (c *buildContext) staticKey(b traversal.By, in tree.NodeID) (k tree.KeySpec, ok bool, err error) {
	switch {
	case b.IsIdentity():
		k = tree.HeadKey(c.tree.TypeOf(in))
	case b.Key != "":
		id, typ, err := c.property(b.Key)
		if err != nil {
			return k, false, err
		}
		k = tree.PropKey(id, typ)
	case b.Token != traversal.TokenNone:
		k = tree.TokenKey(b.Token, tokenType(b.Token))
	default:
		s, single := trivialStep(b.Traversal)
		if !single {
			return k, false, nil
		}
		switch s := s.(type) {
		case *traversal.PropertiesStep:
			if !s.Values || len(s.Keys) != 1 {
				return k, false, nil
			}
			id, typ, err := c.property(s.Keys[0])
			if err != nil {
				return k, false, err
			}
			k = tree.PropKey(id, typ)
		case *traversal.IDStep:
			k = tree.TokenKey(traversal.TokenID, tokenType(traversal.TokenID))
		case *traversal.LabelStep:
			k = tree.TokenKey(traversal.TokenLabel, tokenType(traversal.TokenLabel))
		default:
			return k, false, nil
		}
	}
	k.Order = b.Order
	return k, true, nil
}

// keySpec resolves a by() modulator for an operator reading rows of in.
// Traversals that are not static keys are evaluated by a value ring; the
// returned node ends the chain and the spec reads the ring's label, which
// the consumer releases with dropKeys.
func (c *buildContext) keySpec(b traversal.By, in tree.NodeID) (tree.NodeID, tree.KeySpec, error) {
	k, ok, err := c.staticKey(b, in)
	if err != nil || ok {
		return in, k, err
	}
	out, val, err := c.valueRing(in, b.Traversal)
	if err != nil {
		return tree.NoNode, k, err
	}
	n := c.tree.Node(out).(*tree.RingNode)
	k = tree.LabelKey(c.labels.Index(val), n.ValueType(c.tree))
	k.Order = b.Order
	return out, k, nil
}

// dropKeys releases the ring labels read by specs after node id.
func (c *buildContext) dropKeys(id tree.NodeID, specs ...tree.KeySpec) {
	var idx []int32
	for _, k := range specs {
		if k.Kind == tree.KeyLabel {
			idx = append(idx, k.Label)
		}
	}
	if len(idx) > 0 {
		c.tree.Node(id).Base().AddAfter(plan.Requirement{Kind: plan.KeyDel, Labels: idx})
	}
}

// valueRing evaluates t once per row of in and stores the result under a
// fresh system label.
func (c *buildContext) valueRing(in tree.NodeID, t *traversal.Traversal) (tree.NodeID, string, error) {
	return c.ring(in, func(d tree.NodeID) (tree.NodeID, error) {
		return c.chain(t, d)
	})
}

// ring builds a value ring whose sub-chain build extends from a delegate
// of in.
func (c *buildContext) ring(in tree.NodeID, build func(d tree.NodeID) (tree.NodeID, error)) (tree.NodeID, string, error) {
	key, val := c.fresh("key"), c.fresh("val")
	var sub tree.Chain
	err := c.nested(scopeRing, func() error {
		var err error
		sub, err = c.subWith(in, build)
		return err
	})
	if err != nil {
		return tree.NoNode, "", err
	}
	id := c.tree.Ring(in, tree.RingValue, sub, key, val)
	c.labels.BindSystemLabel(val, int32(sub.End))
	return id, val, nil
}

// mapBy replaces the head of in with what b reads from it.
func (c *buildContext) mapBy(b traversal.By, in tree.NodeID) (tree.NodeID, error) {
	switch {
	case b.IsIdentity():
		return in, nil
	case b.Key != "":
		id, typ, err := c.property(b.Key)
		if err != nil {
			return tree.NoNode, err
		}
		arg := &plan.Argument{Ints: []int64{int64(id)}}
		return c.tree.Map(in, plan.OpPropValue, arg, typ, true, false), nil
	case b.Token != traversal.TokenNone:
		return c.tokenMap(in, b.Token), nil
	}
	return c.scope(b.Traversal, in)
}

func (c *buildContext) tokenMap(in tree.NodeID, tok traversal.Token) tree.NodeID {
	typ := tokenType(tok)
	switch tok {
	case traversal.TokenID:
		return c.tree.Map(in, plan.OpID, nil, typ, false, true)
	case traversal.TokenLabel:
		return c.tree.Map(in, plan.OpLabel, nil, typ, true, true)
	case traversal.TokenKey:
		return c.tree.Map(in, plan.OpPropKey, nil, typ, false, true)
	default:
		arg := &plan.Argument{Strings: []string{tok.String()}}
		return c.tree.Map(in, plan.OpPropValue, arg, typ, false, true)
	}
}

// scope builds a local/map/flatMap body. Bodies without a barrier run
// inline on the rows of in; a barrier needs per-row partitions, so those
// bodies become a value ring whose result is selected back as the head.
func (c *buildContext) scope(t *traversal.Traversal, in tree.NodeID) (tree.NodeID, error) {
	if !hasBarrier(t) {
		var out tree.NodeID
		err := c.nested(scopeRing, func() error {
			var err error
			out, err = c.chain(t, in)
			return err
		})
		return out, err
	}

	out, val, err := c.valueRing(in, t)
	if err != nil {
		return tree.NoNode, err
	}
	sel, err := c.tree.SelectOne(out, val, traversal.PopNone)
	if err != nil {
		return tree.NoNode, err
	}
	c.tree.Node(sel).Base().AddAfter(plan.Requirement{Kind: plan.KeyDel, Labels: []int32{c.labels.Index(val)}})
	return sel, nil
}

// hasBarrier reports whether any step of t, nested ones included, reduces
// over the stream.
func hasBarrier(t *traversal.Traversal) bool {
	found := false
	traversal.Walk(t, func(_ int, s traversal.Step) bool {
		switch s := s.(type) {
		case *traversal.ReduceStep:
			found = !s.Local
		case *traversal.RangeStep:
			found = !s.Local
		case *traversal.OrderStep:
			found = !s.Local
		case *traversal.FoldStep, *traversal.GroupStep, *traversal.GroupCountStep,
			*traversal.DedupStep, *traversal.TailStep, *traversal.SampleStep,
			*traversal.AggregateStep, *traversal.CapStep:
			found = true
		}
		return !found
	})
	return found
}
