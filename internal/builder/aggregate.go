package builder

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/tree"
	"github.com/roach88/gplan/internal/valuetype"
)

// sideEffect is an aggregate/store or side-effect groupCount whose result
// only the immediately following cap() may read.
type sideEffect struct {
	step string
	key  string
	// groupCount is the key spec of a side-effect groupCount, nil for
	// aggregate and store.
	groupCount *tree.KeySpec
}

var reduceOps = map[traversal.StepKind]plan.OperatorKind{
	traversal.StepCount: plan.OpCount,
	traversal.StepSum:   plan.OpSum,
	traversal.StepMax:   plan.OpMax,
	traversal.StepMin:   plan.OpMin,
	traversal.StepMean:  plan.OpMean,
	traversal.StepFold:  plan.OpFold,
}

func buildDedup(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	d := s.(*traversal.DedupStep)
	labels := make([]int32, 0, len(d.Keys))
	for _, name := range d.Keys {
		if !c.labels.Bound(name) {
			return tree.NoNode, ir.NewUnresolvedLabel(s.Name(), name)
		}
		labels = append(labels, c.labels.Index(name))
	}
	var by *tree.KeySpec
	if d.By != nil && !d.By.IsIdentity() {
		out, k, err := c.keySpec(*d.By, in)
		if err != nil {
			return tree.NoNode, err
		}
		in, by = out, &k
	}
	id := c.tree.Dedup(in, labels, by, c.keyed)
	for _, name := range d.Keys {
		c.tree.MarkUsed(name, id)
	}
	if by != nil {
		c.dropKeys(id, *by)
	}
	return id, nil
}

func buildRange(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	r := s.(*traversal.RangeStep)
	if r.Low < 0 {
		return tree.NoNode, ir.NewMalformed(s.Name(), "negative range start %d", r.Low)
	}
	if r.High >= 0 && r.High < r.Low {
		return tree.NoNode, ir.NewMalformed(s.Name(), "range end %d is before its start %d", r.High, r.Low)
	}
	return c.tree.Range(in, r.Low, r.High, r.Local), nil
}

// buildSampling handles tail(), coin() and sample().
func buildSampling(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	switch s := s.(type) {
	case *traversal.TailStep:
		if s.N < 0 {
			return tree.NoNode, ir.NewMalformed(s.Name(), "negative tail size %d", s.N)
		}
		return c.tree.Filter(in, plan.OpTail, &plan.Argument{Ints: []int64{s.N}}, true), nil
	case *traversal.CoinStep:
		if s.Probability < 0 || s.Probability > 1 {
			return tree.NoNode, ir.NewMalformed(s.Name(), "probability %v is outside [0, 1]", s.Probability)
		}
		return c.tree.Filter(in, plan.OpCoin, &plan.Argument{Value: ir.IRDouble(s.Probability)}, false), nil
	case *traversal.SampleStep:
		if s.N < 0 {
			return tree.NoNode, ir.NewMalformed(s.Name(), "negative sample size %d", s.N)
		}
		return c.tree.Filter(in, plan.OpSample, &plan.Argument{Ints: []int64{s.N}}, true), nil
	}
	return tree.NoNode, ir.NewMalformed(s.Name(), "unexpected step %T", s)
}

func buildSimplePath(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	op := plan.OpSimplePath
	if s.(*traversal.SimplePathStep).Cyclic {
		op = plan.OpCyclicPath
	}
	return c.tree.Filter(in, op, nil, false), nil
}

func buildReduce(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	r := s.(*traversal.ReduceStep)
	return c.tree.Reduce(in, reduceOps[r.Op], r.Local), nil
}

func buildFold(c *buildContext, _ traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	return c.tree.Reduce(in, plan.OpFold, false), nil
}

func buildOrder(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	o := s.(*traversal.OrderStep)
	specs := make([]tree.KeySpec, 0, len(o.By))
	for _, b := range o.By {
		if o.Local {
			k, ok, err := c.staticKey(b, in)
			if err != nil {
				return tree.NoNode, err
			}
			if !ok {
				return tree.NoNode, ir.NewUnsupported(s.Name(), "order(local) by %s is not supported", b)
			}
			specs = append(specs, k)
			continue
		}
		out, k, err := c.keySpec(b, in)
		if err != nil {
			return tree.NoNode, err
		}
		in = out
		specs = append(specs, k)
	}
	id := c.tree.Order(in, o.Local, specs)
	c.dropKeys(id, specs...)
	return id, nil
}

// buildGroup groups by the first by() and collects the second. A second
// by() that is a single reducing step reduces each group instead of
// collecting it.
func buildGroup(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	g := s.(*traversal.GroupStep)
	var keyBy, valueBy traversal.By
	if len(g.By) > 0 {
		keyBy = g.By[0]
	}
	if len(g.By) > 1 {
		valueBy = g.By[1]
	}

	in, key, err := c.keySpec(keyBy, in)
	if err != nil {
		return tree.NoNode, err
	}
	value, ok, err := c.groupReduce(s, valueBy, in)
	if err != nil {
		return tree.NoNode, err
	}
	if !ok {
		if in, value, err = c.keySpec(valueBy, in); err != nil {
			return tree.NoNode, err
		}
	}
	id := c.tree.Group(in, key, value)
	c.dropKeys(id, key, value)
	return id, nil
}

// groupReduce recognises a group value by() that is exactly one global
// reducing step.
func (c *buildContext) groupReduce(s traversal.Step, b traversal.By, in tree.NodeID) (tree.KeySpec, bool, error) {
	if b.Traversal == nil {
		return tree.KeySpec{}, false, nil
	}
	steps := traversal.Rewrite(b.Traversal).Steps
	if len(steps) == 0 {
		return tree.KeySpec{}, false, nil
	}
	last := steps[len(steps)-1]
	if _, reduces := reduceOps[last.Kind()]; !reduces {
		return tree.KeySpec{}, false, nil
	}
	if r, ok := last.(*traversal.ReduceStep); ok && r.Local {
		return tree.KeySpec{}, false, nil
	}
	if len(steps) > 1 {
		return tree.KeySpec{}, false, ir.NewUnsupported(s.Name(), "group() value %s maps before reducing", b.Traversal)
	}

	elem := c.tree.TypeOf(in)
	var typ valuetype.Type
	switch last.Kind() {
	case traversal.StepCount:
		typ = valuetype.Scalar(valuetype.Long)
	case traversal.StepSum:
		typ = valuetype.NumericResult(elem)
	case traversal.StepMean:
		typ = valuetype.Scalar(valuetype.Double)
	case traversal.StepFold:
		typ = valuetype.List(elem)
	default:
		typ = elem
	}
	return tree.ReduceKey(last.Name(), typ), true, nil
}

func buildGroupCount(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	g := s.(*traversal.GroupCountStep)
	var b traversal.By
	if g.By != nil {
		b = *g.By
	}
	in, key, err := c.keySpec(b, in)
	if err != nil {
		return tree.NoNode, err
	}
	if g.SideEffectKey != "" {
		if c.pending != nil {
			return tree.NoNode, ir.NewUnsupported(s.Name(), "side effect %q is still pending", c.pending.key)
		}
		c.pending = &sideEffect{step: s.Name(), key: g.SideEffectKey, groupCount: &key}
		return in, nil
	}
	id := c.tree.GroupCount(in, key)
	c.dropKeys(id, key)
	return id, nil
}

// buildAggregate records aggregate(k)/store(k). The only supported reader
// is an immediately following cap(k), which together act as a fold.
func buildAggregate(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	a := s.(*traversal.AggregateStep)
	if a.Key == "" {
		return tree.NoNode, ir.NewMalformed(s.Name(), "%s() needs a side-effect key", s.Name())
	}
	if c.pending != nil {
		return tree.NoNode, ir.NewUnsupported(s.Name(), "side effect %q is still pending", c.pending.key)
	}
	c.pending = &sideEffect{step: s.Name(), key: a.Key}
	return in, nil
}

func buildCap(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	capStep := s.(*traversal.CapStep)
	p := c.pending
	if p == nil || len(capStep.Keys) != 1 || capStep.Keys[0] != p.key {
		return tree.NoNode, ir.NewUnsupported(s.Name(), "cap() must read the side effect of the step right before it")
	}
	c.pending = nil
	if p.groupCount != nil {
		id := c.tree.GroupCount(in, *p.groupCount)
		c.dropKeys(id, *p.groupCount)
		return id, nil
	}
	return c.tree.Reduce(in, plan.OpFold, false), nil
}
