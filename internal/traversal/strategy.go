package traversal

import (
	"slices"

	"github.com/roach88/gplan/internal/ir"
)

// Strategy is a traversal-level rewrite. Apply never mutates its input; it
// returns t itself when nothing changes, otherwise a copy.
type Strategy struct {
	Name  string
	Apply func(t *Traversal) *Traversal
}

// Strategies is the fixed rewrite sequence the builder applies to every
// traversal, nested ones included, right before visiting it.
var Strategies = []Strategy{
	{Name: "strip-hints", Apply: StripHints},
	{Name: "fold-loop-bounds", Apply: FoldLoopBounds},
	{Name: "fold-source-filters", Apply: FoldSourceFilters},
	{Name: "reorder-filters", Apply: ReorderFilters},
}

// Rewrite applies Strategies in order to the top-level steps of t. Nested
// traversals are left alone; the builder rewrites each one when it
// descends into it.
func Rewrite(t *Traversal) *Traversal {
	for _, s := range Strategies {
		t = s.Apply(t)
	}
	return t
}

func withSteps(t *Traversal, steps []Step) *Traversal {
	return &Traversal{StartLabels: t.StartLabels, Steps: steps, err: t.err, pending: t.pending}
}

// StripHints removes barrier() and unlabeled identity() steps. A labeled
// barrier becomes a labeled identity so its labels survive.
func StripHints(t *Traversal) *Traversal {
	changed := false
	steps := make([]Step, 0, len(t.Steps))
	for _, s := range t.Steps {
		switch s.Kind() {
		case StepBarrier:
			changed = true
			if Labeled(s) {
				steps = append(steps, &IdentityStep{StepBase: StepBase{Labels: s.Base().Labels}})
			}
			continue
		case StepIdentity:
			if !Labeled(s) {
				changed = true
				continue
			}
		}
		steps = append(steps, s)
	}
	if !changed {
		return t
	}
	return withSteps(t, steps)
}

// FoldLoopBounds merges loops().is(p) into a single bounded loops step.
func FoldLoopBounds(t *Traversal) *Traversal {
	var steps []Step
	for i := 0; i < len(t.Steps); i++ {
		s := t.Steps[i]
		if loops, ok := s.(*LoopsStep); ok && loops.Bound == nil && !Labeled(loops) && i+1 < len(t.Steps) {
			if is, ok := t.Steps[i+1].(*IsStep); ok {
				if steps == nil {
					steps = slices.Clone(t.Steps[:i])
				}
				bounded := &LoopsStep{Bound: is.Pred}
				bounded.Labels = slices.Clone(is.Labels)
				steps = append(steps, bounded)
				i++
				continue
			}
		}
		if steps != nil {
			steps = append(steps, s)
		}
	}
	if steps == nil {
		return t
	}
	return withSteps(t, steps)
}

// FoldSourceFilters moves unlabeled has() steps directly following the
// source step into the source's containers.
func FoldSourceFilters(t *Traversal) *Traversal {
	if len(t.Steps) < 2 {
		return t
	}
	src, ok := t.Steps[0].(*GraphStep)
	if !ok || Labeled(src) {
		return t
	}
	n := 1
	var folded []HasContainer
	for ; n < len(t.Steps); n++ {
		has, ok := t.Steps[n].(*HasStep)
		if !ok || Labeled(has) {
			break
		}
		folded = append(folded, has.Containers...)
	}
	if n == 1 {
		return t
	}
	merged := *src
	merged.Containers = append(slices.Clone(src.Containers), folded...)
	steps := make([]Step, 0, len(t.Steps)-n+1)
	steps = append(steps, &merged)
	steps = append(steps, t.Steps[n:]...)
	return withSteps(t, steps)
}

// ReorderFilters stably sorts each maximal run of unlabeled has() steps so
// cheaper, more selective tests run first: id and label tests, then
// property equality, then range comparisons, then text predicates. The
// containers of the source step are ordered the same way.
func ReorderFilters(t *Traversal) *Traversal {
	var steps []Step
	ensure := func() {
		if steps == nil {
			steps = slices.Clone(t.Steps)
		}
	}

	if src, ok := first(t).(*GraphStep); ok && len(src.Containers) > 1 {
		sorted := slices.Clone(src.Containers)
		slices.SortStableFunc(sorted, func(a, b HasContainer) int {
			return containerRank(a) - containerRank(b)
		})
		if !slices.EqualFunc(sorted, src.Containers, sameContainer) {
			ensure()
			merged := *src
			merged.Containers = sorted
			steps[0] = &merged
		}
	}

	for i := 0; i < len(t.Steps); {
		j := i
		for j < len(t.Steps) && reorderable(t.Steps[j]) {
			j++
		}
		if j-i > 1 {
			run := slices.Clone(t.Steps[i:j])
			slices.SortStableFunc(run, func(a, b Step) int {
				return stepRank(a) - stepRank(b)
			})
			if !slices.Equal(run, t.Steps[i:j]) {
				ensure()
				copy(steps[i:j], run)
			}
		}
		if j == i {
			j++
		}
		i = j
	}
	if steps == nil {
		return t
	}
	return withSteps(t, steps)
}

func first(t *Traversal) Step {
	if len(t.Steps) == 0 {
		return nil
	}
	return t.Steps[0]
}

func reorderable(s Step) bool {
	has, ok := s.(*HasStep)
	return ok && !Labeled(has)
}

func sameContainer(a, b HasContainer) bool {
	return a.Token == b.Token && a.Key == b.Key && a.Pred == b.Pred
}

func stepRank(s Step) int {
	rank := rankText
	for _, c := range s.(*HasStep).Containers {
		rank = min(rank, containerRank(c))
	}
	return rank
}

const (
	rankElement = iota
	rankEquality
	rankRange
	rankText
)

func containerRank(c HasContainer) int {
	if c.Token == TokenID || c.Token == TokenLabel {
		return rankElement
	}
	cmp, ok := c.Pred.(*Compare)
	if !ok {
		return rankText
	}
	switch {
	case cmp.Op == ir.OpEq || cmp.Op == ir.OpWithin:
		return rankEquality
	case cmp.Op.IsRange():
		return rankRange
	default:
		return rankText
	}
}
