package traversal

// Capability interfaces let the builder read step parameters without
// switching on every concrete type. A step opts in by implementing the
// method; the builder asserts the interface once per step.

// ComparisonStep is a filter made only of has-containers: has() and is().
type ComparisonStep interface {
	Step
	HasContainers() []HasContainer
}

// LoopBoundStep exposes a loops() guard. LoopBound is nil when the loops
// step is not followed by an is(...) predicate.
type LoopBoundStep interface {
	Step
	LoopBound() Predicate
}

// NestedStep owns child traversals (branch bodies, predicates, by-traversals).
type NestedStep interface {
	Step
	Children() []*Traversal
}

// Modulated accepts by() modulators.
type Modulated interface {
	Step
	Modulate(By) error
}

var (
	_ ComparisonStep = (*HasStep)(nil)
	_ ComparisonStep = (*IsStep)(nil)
	_ LoopBoundStep  = (*LoopsStep)(nil)
	_ NestedStep     = (*RepeatStep)(nil)
	_ NestedStep     = (*ChooseStep)(nil)
	_ NestedStep     = (*ScopeStep)(nil)
	_ Modulated      = (*OrderStep)(nil)
	_ Modulated      = (*WherePredicateStep)(nil)
)

// AsComparison returns s as a ComparisonStep when every container in it is a
// plain comparison the builder can inline.
func AsComparison(s Step) (ComparisonStep, bool) {
	c, ok := s.(ComparisonStep)
	if !ok {
		return nil, false
	}
	return c, len(c.HasContainers()) > 0
}

// IsComparisonChain reports whether t is a non-empty run of unlabeled
// comparison steps. Such sub-traversals are inlined as filters on the
// current traverser instead of lowered as a joined sub-plan.
func IsComparisonChain(t *Traversal) bool {
	if t == nil || len(t.Steps) == 0 || len(t.StartLabels) > 0 {
		return false
	}
	for _, s := range t.Steps {
		if Labeled(s) {
			return false
		}
		if _, ok := AsComparison(s); !ok {
			return false
		}
	}
	return true
}
