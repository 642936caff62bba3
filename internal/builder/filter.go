package builder

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/label"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/tree"
	"github.com/roach88/gplan/internal/valuetype"
)

// maxDisjuncts bounds the terms an or() predicate may expand to.
const maxDisjuncts = 64

// conditions turns has-containers into a disjunction of comparison
// conjunctions. Containers are ANDed; an or() predicate multiplies the
// terms out. Without or() predicates the result has exactly one term.
func (c *buildContext) conditions(step string, hs []traversal.HasContainer) ([][]plan.Comparison, error) {
	terms := [][]plan.Comparison{nil}
	for _, h := range hs {
		target, key, err := c.target(h)
		if err != nil {
			return nil, err
		}
		alts, err := dnf(step, h.Pred)
		if err != nil {
			return nil, err
		}
		next := make([][]plan.Comparison, 0, len(terms)*len(alts))
		for _, term := range terms {
			for _, alt := range alts {
				conj := append([]plan.Comparison(nil), term...)
				for _, cmp := range alt {
					value := cmp.Value
					if target == plan.TargetLabel {
						if value, err = c.labelValue(step, value); err != nil {
							return nil, err
						}
					}
					conj = append(conj, plan.Comparison{Target: target, Key: key, Op: cmp.Op, Value: value})
				}
				next = append(next, conj)
			}
		}
		if len(next) > maxDisjuncts {
			return nil, ir.NewUnsupported(step, "or() predicates expand to more than %d terms", maxDisjuncts)
		}
		terms = next
	}
	return terms, nil
}

func (c *buildContext) target(h traversal.HasContainer) (plan.CompareTarget, int32, error) {
	switch h.Token {
	case traversal.TokenID:
		return plan.TargetID, 0, nil
	case traversal.TokenLabel:
		return plan.TargetLabel, 0, nil
	case traversal.TokenKey:
		return plan.TargetKey, 0, nil
	case traversal.TokenValue:
		return plan.TargetValue, 0, nil
	}
	id, _, err := c.property(h.Key)
	if err != nil {
		return 0, 0, err
	}
	return plan.TargetProp, id, nil
}

// dnf flattens a predicate into alternatives of ANDed comparisons.
func dnf(step string, p traversal.Predicate) ([][]*traversal.Compare, error) {
	switch p := p.(type) {
	case *traversal.Compare:
		return [][]*traversal.Compare{{p}}, nil
	case *traversal.Connective:
		if len(p.Terms) == 0 {
			return nil, ir.NewMalformed(step, "empty %s", p)
		}
		if p.Or {
			var out [][]*traversal.Compare
			for _, t := range p.Terms {
				alts, err := dnf(step, t)
				if err != nil {
					return nil, err
				}
				out = append(out, alts...)
			}
			return out, nil
		}
		out := [][]*traversal.Compare{nil}
		for _, t := range p.Terms {
			alts, err := dnf(step, t)
			if err != nil {
				return nil, err
			}
			var next [][]*traversal.Compare
			for _, prefix := range out {
				for _, alt := range alts {
					next = append(next, append(append([]*traversal.Compare(nil), prefix...), alt...))
				}
			}
			out = next
		}
		return out, nil
	}
	return nil, ir.NewMalformed(step, "predicate %v is not supported", p)
}

// filterTerms adds a has or or-of-has filter for terms after in.
func (c *buildContext) filterTerms(in tree.NodeID, terms [][]plan.Comparison) tree.NodeID {
	switch len(terms) {
	case 0:
		return in
	case 1:
		if len(terms[0]) == 0 {
			return in
		}
		return c.tree.Has(in, terms[0])
	}
	return c.tree.HasOr(in, terms)
}

// readsElement reports whether any container tests an element attribute.
func readsElement(hs []traversal.HasContainer) bool {
	for _, h := range hs {
		if h.Token == traversal.TokenNone || h.Token == traversal.TokenID || h.Token == traversal.TokenLabel {
			return true
		}
	}
	return false
}

// requireElement rejects inputs that can never be a vertex or an edge.
func (c *buildContext) requireElement(s traversal.Step, in tree.NodeID) error {
	typ := c.tree.TypeOf(in)
	switch v := typ.(type) {
	case valuetype.VertexType, valuetype.EdgeType, valuetype.PropertyType, valuetype.VariantType:
		return nil
	case valuetype.ScalarType:
		if v.Kind == valuetype.Unknown {
			return nil
		}
	}
	return ir.NewMalformed(s.Name(), "%s() needs an element but its input is %s", s.Name(), typ)
}

func buildHas(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	cs, ok := traversal.AsComparison(s)
	if !ok {
		return in, nil
	}
	hs := cs.HasContainers()
	if readsElement(hs) {
		if err := c.requireElement(s, in); err != nil {
			return tree.NoNode, err
		}
	}
	terms, err := c.conditions(s.Name(), hs)
	if err != nil {
		return tree.NoNode, err
	}
	return c.filterTerms(in, terms), nil
}

// chainTerms returns the disjunction a comparison chain tests.
func (c *buildContext) chainTerms(t *traversal.Traversal) ([][]plan.Comparison, error) {
	terms := [][]plan.Comparison{nil}
	for _, s := range traversal.Rewrite(t).Steps {
		cs, _ := traversal.AsComparison(s)
		alts, err := c.conditions(s.Name(), cs.HasContainers())
		if err != nil {
			return nil, err
		}
		var next [][]plan.Comparison
		for _, prefix := range terms {
			for _, alt := range alts {
				next = append(next, append(append([]plan.Comparison(nil), prefix...), alt...))
			}
		}
		if len(next) > maxDisjuncts {
			return nil, ir.NewUnsupported(s.Name(), "or() predicates expand to more than %d terms", maxDisjuncts)
		}
		terms = next
	}
	return terms, nil
}

// semi keeps the rows of in for which t yields anything. Comparison
// chains are inlined; anything else is a semi-join ring.
func (c *buildContext) semi(in tree.NodeID, t *traversal.Traversal, prefix string) (tree.NodeID, error) {
	if traversal.IsComparisonChain(t) {
		terms, err := c.chainTerms(t)
		if err != nil {
			return tree.NoNode, err
		}
		return c.filterTerms(in, terms), nil
	}
	sub, err := c.sub(scopeRing, t, in)
	if err != nil {
		return tree.NoNode, err
	}
	return c.tree.Ring(in, tree.RingSemi, sub, c.fresh(prefix), ""), nil
}

func buildAnd(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	a := s.(*traversal.AndStep)
	if len(a.Traversals) == 0 {
		return tree.NoNode, ir.NewMalformed(s.Name(), "and() needs at least one traversal")
	}
	for _, t := range a.Traversals {
		var err error
		if in, err = c.semi(in, t, "and"); err != nil {
			return tree.NoNode, err
		}
	}
	return in, nil
}

// buildOr supports only disjunctions of comparison chains, which flatten
// into one HAS_OR over the same rows.
func buildOr(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	o := s.(*traversal.OrStep)
	if len(o.Traversals) == 0 {
		return tree.NoNode, ir.NewMalformed(s.Name(), "or() needs at least one traversal")
	}
	var terms [][]plan.Comparison
	for _, t := range o.Traversals {
		if !traversal.IsComparisonChain(t) {
			return tree.NoNode, ir.NewUnsupported(s.Name(), "or() over %s: only comparison chains can be combined", t)
		}
		alts, err := c.chainTerms(t)
		if err != nil {
			return tree.NoNode, err
		}
		terms = append(terms, alts...)
	}
	if len(terms) > maxDisjuncts {
		return tree.NoNode, ir.NewUnsupported(s.Name(), "or() expands to more than %d terms", maxDisjuncts)
	}
	return c.filterTerms(in, terms), nil
}

func buildNot(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	n := s.(*traversal.NotStep)
	sub, err := c.sub(scopeRing, n.Traversal, in)
	if err != nil {
		return tree.NoNode, err
	}
	return c.tree.Ring(in, tree.RingAnti, sub, c.fresh("not"), ""), nil
}

func buildTraversalFilter(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	return c.semi(in, s.(*traversal.FilterStep).Traversal, "filter")
}

// buildWhereTraversal filters by a traversal that may start from a bound
// label and compares any label it reuses with the bound value.
func buildWhereTraversal(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	t := s.(*traversal.WhereTraversalStep).Traversal
	if t == nil {
		return tree.NoNode, ir.NewMalformed(s.Name(), "where() needs a traversal")
	}

	var start string
	rest := t
	if len(t.StartLabels) > 0 {
		if len(t.StartLabels) > 1 {
			return tree.NoNode, ir.NewUnsupported(s.Name(), "where() traversals with several start labels are not supported")
		}
		if c.labels.Bound(t.StartLabels[0]) {
			start = t.StartLabels[0]
			rest = traversal.New(t.Steps...)
		}
	}

	match := make(map[string]bool)
	for _, step := range rest.Steps {
		for _, name := range step.Base().Labels {
			if c.labels.Bound(name) {
				match[name] = true
			}
		}
	}
	if start == "" && len(match) == 0 {
		return c.semi(in, rest, "where")
	}

	var sub tree.Chain
	err := c.nested(scopeRing, func() error {
		c.match = match
		var err error
		sub, err = c.subWith(in, func(d tree.NodeID) (tree.NodeID, error) {
			x := d
			if start != "" {
				var err error
				if x, err = c.tree.SelectOne(d, start, traversal.PopNone); err != nil {
					return tree.NoNode, err
				}
			}
			return c.chain(rest, x)
		})
		return err
	})
	if err != nil {
		return tree.NoNode, err
	}
	return c.tree.Ring(in, tree.RingSemi, sub, c.fresh("where"), ""), nil
}

// buildWherePredicate compares the head (or a start label) with labeled
// values. by() modulators are evaluated by value rings, one per distinct
// operand and modulator; repeated operands share a ring.
func buildWherePredicate(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	w := s.(*traversal.WherePredicateStep)
	if len(w.Keys) == 0 {
		return tree.NoNode, ir.NewMalformed(s.Name(), "where() predicate names no labels")
	}
	operands := append([]string{w.StartKey}, w.Keys...)

	by := func(i int) traversal.By {
		if len(w.By) == 0 {
			return traversal.By{}
		}
		return w.By[i%len(w.By)]
	}

	rings := make(map[string]int32)
	var (
		idx   = make([]int32, len(operands))
		drops []int32
		used  []string
	)
	for i, name := range operands {
		b := by(i)
		if name != "" {
			used = append(used, name)
		}
		if b.IsIdentity() {
			idx[i] = c.operandIndex(name)
			continue
		}
		if name != "" && !c.labels.Bound(name) {
			return tree.NoNode, ir.NewUnresolvedLabel(s.Name(), name)
		}
		memo := name + "|" + b.String()
		if v, ok := rings[memo]; ok {
			idx[i] = v
			continue
		}
		var (
			val string
			err error
		)
		in, val, err = c.ring(in, func(d tree.NodeID) (tree.NodeID, error) {
			x := d
			if name != "" {
				var err error
				if x, err = c.tree.SelectOne(d, name, traversal.PopNone); err != nil {
					return tree.NoNode, err
				}
			}
			if b.Traversal != nil {
				return c.chain(b.Traversal, x)
			}
			return c.mapBy(b, x)
		})
		if err != nil {
			return tree.NoNode, err
		}
		v := c.labels.Index(val)
		rings[memo] = v
		idx[i] = v
		drops = append(drops, v)
	}

	cmp := plan.Comparison{Target: plan.TargetLabelValue, Key: idx[1], Op: w.Op}
	if len(idx) > 2 {
		ops := make([]int64, len(idx)-1)
		for i, v := range idx[1:] {
			ops[i] = int64(v)
		}
		cmp.Value = ir.Ints(ops...)
	}
	arg := &plan.Argument{Ints: []int64{int64(idx[0])}, Comparisons: []plan.Comparison{cmp}}
	id := c.tree.Filter(in, plan.OpWhereLabel, arg, false)
	for _, name := range used {
		c.tree.MarkUsed(name, id)
	}
	if len(drops) > 0 {
		c.tree.Node(id).Base().AddAfter(plan.Requirement{Kind: plan.KeyDel, Labels: drops})
	}
	return id, nil
}

// operandIndex is the index a where() comparison reads for name: the head
// for the empty name, otherwise the label's index. A label not bound yet
// resolves to the unresolved sentinel and must be bound by the end of the
// build.
func (c *buildContext) operandIndex(name string) int32 {
	if name == "" {
		return label.Head
	}
	if c.labels.Bound(name) {
		return c.labels.Index(name)
	}
	c.deferred = append(c.deferred, name)
	return c.labels.FilterIndex(name)
}
