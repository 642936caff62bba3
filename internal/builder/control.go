package builder

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/tree"
)

func buildRepeat(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	r := s.(*traversal.RepeatStep)
	if c.loopDepth > 0 {
		return tree.NoNode, ir.NewUnsupported(s.Name(), "repeat() inside a repeat() body is not supported")
	}
	if r.Body == nil {
		return tree.NoNode, ir.NewMalformed(s.Name(), "repeat() needs a body")
	}
	if r.HasTimes && r.Times <= 0 {
		return tree.NoNode, ir.NewMalformed(s.Name(), "times(%d) is not positive", r.Times)
	}

	n := &tree.RepeatNode{
		UntilFirst: r.UntilFirst,
		EmitFirst:  r.EmitFirst,
		MaxLoops:   c.maxLoops,
	}
	if r.HasTimes {
		n.MaxLoops = r.Times
	}
	until := r.Until
	bound, ok, err := loopBound(until)
	if err != nil {
		return tree.NoNode, err
	}
	if ok {
		if !r.HasTimes || bound < n.MaxLoops {
			n.MaxLoops = bound
		}
		until = nil
	}

	err = c.nested(scopeLoop, func() error {
		var err error
		if n.Body, err = c.sub(scopeBranch, r.Body, in); err != nil {
			return err
		}
		// From the second iteration on the body reads its own output.
		if !c.tree.PropLocal(n.Body.End) {
			c.tree.SetResident(n.Body, false)
		}
		if until != nil {
			if n.Until, err = c.cond(until, n.Body.End); err != nil {
				return err
			}
		}
		switch {
		case r.EmitAll:
			n.Emit = &tree.Cond{All: true}
		case r.Emit != nil:
			if n.Emit, err = c.cond(r.Emit, n.Body.End); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return tree.NoNode, err
	}
	if n.Until == nil {
		n.UntilFirst = false
	}
	if n.Emit == nil {
		n.EmitFirst = false
	}
	// A condition checked before the first iteration also reads the loop
	// input.
	if !c.tree.PropLocal(in) {
		if n.UntilFirst {
			c.tree.SetResident(n.Until.Sub, false)
		}
		if n.EmitFirst && !n.Emit.All {
			c.tree.SetResident(n.Emit.Sub, false)
		}
	}
	return c.tree.Repeat(in, n), nil
}

// loopBound recognises until(loops().is(p)) and returns the inclusive
// iteration bound p implies: gt(N) is N+1, gte(N) and eq(N) are N.
func loopBound(t *traversal.Traversal) (int64, bool, error) {
	s, ok := trivialStep(t)
	if !ok {
		return 0, false, nil
	}
	lb, ok := s.(traversal.LoopBoundStep)
	if !ok || lb.LoopBound() == nil {
		return 0, false, nil
	}
	cmp, ok := lb.LoopBound().(*traversal.Compare)
	if !ok {
		return 0, false, ir.NewUnsupported("loops", "loops() bound %s is not a single comparison", lb.LoopBound())
	}
	n, ok := cmp.Value.(ir.IRInt)
	if !ok {
		return 0, false, ir.NewMalformed("loops", "loops() bound %s is not an integer", cmp.Value)
	}
	var bound int64
	switch cmp.Op {
	case ir.OpGt:
		bound = int64(n) + 1
	case ir.OpGte, ir.OpEq:
		bound = int64(n)
	default:
		return 0, false, ir.NewUnsupported("loops", "loops() bound %s is not supported; use gt, gte or eq", cmp)
	}
	if bound <= 0 {
		return 0, false, ir.NewMalformed("loops", "loop bound %d is not positive", bound)
	}
	return bound, true, nil
}

// cond builds a loop condition evaluated on the rows of of. A condition
// that is exactly not(t) evaluates t and negates the join.
func (c *buildContext) cond(t *traversal.Traversal, of tree.NodeID) (*tree.Cond, error) {
	cd := &tree.Cond{Key: c.fresh("cond")}
	if s, ok := trivialStep(t); ok {
		if n, ok := s.(*traversal.NotStep); ok {
			cd.Negate = true
			t = n.Traversal
		}
	}
	sub, err := c.sub(scopeRing, t, of)
	if err != nil {
		return nil, err
	}
	cd.Sub = sub
	return cd, nil
}

// buildChoose lowers choose() in one of three modes: a predicate selector
// splits rows by whether it yields anything, a selector that reads the row
// directly is compared in place, and any other selector is materialized
// by a value ring.
func buildChoose(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	ch := s.(*traversal.ChooseStep)
	if ch.Selector == nil {
		return tree.NoNode, ir.NewMalformed(s.Name(), "choose() needs a selector")
	}
	if err := checkOptions(s, ch); err != nil {
		return tree.NoNode, err
	}

	n := &tree.BranchNode{}
	switch {
	case ch.Predicate:
		terms, negated, ok, err := c.complement(ch.Selector)
		if err != nil {
			return tree.NoNode, err
		}
		if ok {
			n.Mode, n.Terms, n.Negated = tree.BranchCompare, terms, negated
			break
		}
		n.Mode = tree.BranchPredicate
		n.Key = c.fresh("choose")
		sub, err := c.sub(scopeRing, ch.Selector, in)
		if err != nil {
			return tree.NoNode, err
		}
		n.Selector = sub
	default:
		target, key, direct, err := c.directSelector(ch.Selector)
		if err != nil {
			return tree.NoNode, err
		}
		if direct {
			n.Mode, n.Target, n.TargetKey = tree.BranchDirect, target, key
			break
		}
		n.Mode = tree.BranchValue
		n.Key, n.Value = c.fresh("key"), c.fresh("val")
		sub, err := c.sub(scopeRing, ch.Selector, in)
		if err != nil {
			return tree.NoNode, err
		}
		n.Selector = sub
		c.labels.BindSystemLabel(n.Value, int32(sub.End))
	}

	for _, o := range ch.Options {
		pick := o.Pick
		if o.Token == traversal.PickValue && n.Mode == tree.BranchDirect && n.Target == plan.TargetLabel {
			var err error
			if pick, err = c.labelValue(s.Name(), pick); err != nil {
				return tree.NoNode, err
			}
		}
		body, err := c.sub(scopeBranch, o.Traversal, in)
		if err != nil {
			return tree.NoNode, err
		}
		n.Options = append(n.Options, tree.BranchOption{Token: o.Token, Pick: pick, Body: body})
	}
	return c.tree.Branch(in, n), nil
}

// complement returns the terms a comparison chain selector tests and
// their negation, when both are a single has or or-of-has: one
// conjunction, or alternatives of one comparison each. A row missing a
// compared property fails both.
func (c *buildContext) complement(t *traversal.Traversal) (terms, negated [][]plan.Comparison, ok bool, err error) {
	if !traversal.IsComparisonChain(t) {
		return nil, nil, false, nil
	}
	if terms, err = c.chainTerms(t); err != nil {
		return nil, nil, false, err
	}
	negate := func(cmp plan.Comparison) (plan.Comparison, bool) {
		op, ok := cmp.Op.Negate()
		cmp.Op = op
		return cmp, ok
	}
	switch {
	case len(terms) == 1 && len(terms[0]) > 0:
		for _, cmp := range terms[0] {
			neg, ok := negate(cmp)
			if !ok {
				return nil, nil, false, nil
			}
			negated = append(negated, []plan.Comparison{neg})
		}
	case len(terms) > 1:
		conj := make([]plan.Comparison, 0, len(terms))
		for _, term := range terms {
			if len(term) != 1 {
				return nil, nil, false, nil
			}
			neg, ok := negate(term[0])
			if !ok {
				return nil, nil, false, nil
			}
			conj = append(conj, neg)
		}
		negated = [][]plan.Comparison{conj}
	default:
		return nil, nil, false, nil
	}
	return terms, negated, true, nil
}

// checkOptions rejects repeated none/any options and duplicate picks, and
// predicate options other than true and false.
func checkOptions(s traversal.Step, ch *traversal.ChooseStep) error {
	if len(ch.Options) == 0 {
		return ir.NewMalformed(s.Name(), "choose() has no options")
	}
	var none, anyOpt int
	var picks []ir.IRValue
	for _, o := range ch.Options {
		switch o.Token {
		case traversal.PickNone:
			none++
		case traversal.PickAny:
			anyOpt++
		default:
			if ch.Predicate {
				if _, ok := o.Pick.(ir.IRBool); !ok {
					return ir.NewMalformed(s.Name(), "choose() predicate option %s is not true or false", o)
				}
			}
			for _, p := range picks {
				if ir.Equal(p, o.Pick) {
					return ir.NewMalformed(s.Name(), "choose() has two options for %s", o)
				}
			}
			picks = append(picks, o.Pick)
		}
	}
	if none > 1 {
		return ir.NewMalformed(s.Name(), "choose() has %d none options", none)
	}
	if anyOpt > 1 {
		return ir.NewMalformed(s.Name(), "choose() has %d any options", anyOpt)
	}
	return nil
}

// directSelector recognises selectors that read the row itself:
// values(k), id() and label().
func (c *buildContext) directSelector(t *traversal.Traversal) (plan.CompareTarget, int32, bool, error) {
	s, ok := trivialStep(t)
	if !ok {
		return 0, 0, false, nil
	}
	switch s := s.(type) {
	case *traversal.PropertiesStep:
		if !s.Values || len(s.Keys) != 1 {
			return 0, 0, false, nil
		}
		id, _, err := c.property(s.Keys[0])
		if err != nil {
			return 0, 0, false, err
		}
		return plan.TargetProp, id, true, nil
	case *traversal.IDStep:
		return plan.TargetID, 0, true, nil
	case *traversal.LabelStep:
		return plan.TargetLabel, 0, true, nil
	}
	return 0, 0, false, nil
}

// buildOptional emits the child's results, or the row itself when the
// child yields nothing: a coalesce with the identity.
func buildOptional(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	t := s.(*traversal.OptionalStep).Traversal
	first, err := c.sub(scopeCoalesce, t, in)
	if err != nil {
		return tree.NoNode, err
	}
	second := c.tree.Empty(in, c.tree.PropLocal(in))
	return c.tree.Coalesce(in, []tree.Chain{first, second}, c.fresh("coalesce")), nil
}

func (c *buildContext) branches(s traversal.Step, sc scope, ts []*traversal.Traversal, in tree.NodeID) ([]tree.Chain, error) {
	if len(ts) == 0 {
		return nil, ir.NewMalformed(s.Name(), "%s() needs at least one traversal", s.Name())
	}
	out := make([]tree.Chain, len(ts))
	for i, t := range ts {
		var err error
		if out[i], err = c.sub(sc, t, in); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func buildUnion(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	bs, err := c.branches(s, scopeBranch, s.(*traversal.UnionStep).Traversals, in)
	if err != nil {
		return tree.NoNode, err
	}
	return c.tree.Union(in, bs), nil
}

func buildCoalesce(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	bs, err := c.branches(s, scopeCoalesce, s.(*traversal.CoalesceStep).Traversals, in)
	if err != nil {
		return tree.NoNode, err
	}
	return c.tree.Coalesce(in, bs, c.fresh("coalesce")), nil
}
