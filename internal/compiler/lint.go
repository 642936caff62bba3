package compiler

import (
	"fmt"
	"sort"

	"github.com/roach88/gplan/internal/builder"
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/traversal"
)

// Lint error codes.
const (
	ErrUnsupportedStep = "E101"
	ErrUnboundLabel    = "E102"
	ErrUnknownProperty = "E103"
	ErrUnknownLabel    = "E104"
	ErrNestedRepeat    = "E105"
	ErrEmptyTraversal  = "E106"
)

// LintError is one problem found by Lint.
type LintError struct {
	Step    string // step name, empty for traversal-level problems
	Message string
	Code    string
}

func (e LintError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Step, e.Message)
}

// Lint checks t against sc without compiling it and reports every problem
// it finds, unlike Compile which stops at the first. A nil schema skips the
// schema lookups. An empty result does not guarantee Compile succeeds.
func Lint(t *traversal.Traversal, sc schema.Schema) []LintError {
	var errs []LintError

	// E106
	if t == nil || len(t.Steps) == 0 {
		return append(errs, LintError{Message: "traversal has no steps", Code: ErrEmptyTraversal})
	}

	bound := make(map[string]bool)
	collectBound(t, bound)

	lintTraversal(t, sc, bound, false, &errs)

	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Code < errs[j].Code })
	return errs
}

func collectBound(t *traversal.Traversal, bound map[string]bool) {
	if t == nil {
		return
	}
	for _, l := range t.StartLabels {
		bound[l] = true
	}
	for _, s := range t.Steps {
		for _, l := range s.Base().Labels {
			bound[l] = true
		}
		if n, ok := s.(traversal.NestedStep); ok {
			for _, c := range n.Children() {
				collectBound(c, bound)
			}
		}
	}
}

func lintTraversal(t *traversal.Traversal, sc schema.Schema, bound map[string]bool, inRepeat bool, errs *[]LintError) {
	if t == nil {
		return
	}
	for _, s := range t.Steps {
		lintStep(s, sc, bound, inRepeat, errs)

		n, ok := s.(traversal.NestedStep)
		if !ok {
			continue
		}
		if r, isRepeat := s.(*traversal.RepeatStep); isRepeat {
			lintTraversal(r.Body, sc, bound, true, errs)
			lintTraversal(r.Until, sc, bound, inRepeat, errs)
			lintTraversal(r.Emit, sc, bound, inRepeat, errs)
			continue
		}
		for _, c := range n.Children() {
			lintTraversal(c, sc, bound, inRepeat, errs)
		}
	}
}

func lintStep(s traversal.Step, sc schema.Schema, bound map[string]bool, inRepeat bool, errs *[]LintError) {
	name := s.Name()

	// E101
	if !builder.Supported(s.Kind()) {
		*errs = append(*errs, LintError{
			Step:    name,
			Message: fmt.Sprintf("step %s is not supported", s.Kind()),
			Code:    ErrUnsupportedStep,
		})
	}

	// E105
	if _, ok := s.(*traversal.RepeatStep); ok && inRepeat {
		*errs = append(*errs, LintError{
			Step:    name,
			Message: "repeat() nested in a repeat() body",
			Code:    ErrNestedRepeat,
		})
	}

	// E102
	for _, key := range referencedLabels(s) {
		if !bound[key] {
			*errs = append(*errs, LintError{
				Step:    name,
				Message: fmt.Sprintf("label %q is never bound with as()", key),
				Code:    ErrUnboundLabel,
			})
		}
	}

	if sc == nil {
		return
	}

	// E103
	for _, key := range propertyKeys(s) {
		if _, err := sc.PropertyID(key); err != nil {
			*errs = append(*errs, LintError{
				Step:    name,
				Message: fmt.Sprintf("unknown property %q", key),
				Code:    ErrUnknownProperty,
			})
		}
	}

	// E104
	for _, l := range elementLabels(s) {
		if _, err := sc.ElementLabelID(l); err != nil {
			*errs = append(*errs, LintError{
				Step:    name,
				Message: fmt.Sprintf("unknown label %q", l),
				Code:    ErrUnknownLabel,
			})
		}
	}
}

func referencedLabels(s traversal.Step) []string {
	switch s := s.(type) {
	case *traversal.SelectOneStep:
		return []string{s.Key}
	case *traversal.SelectStep:
		return s.Keys
	case *traversal.WherePredicateStep:
		var keys []string
		if s.StartKey != "" {
			keys = append(keys, s.StartKey)
		}
		return append(keys, s.Keys...)
	case *traversal.DedupStep:
		return s.Keys
	}
	return nil
}

func containers(s traversal.Step) []traversal.HasContainer {
	switch s := s.(type) {
	case *traversal.HasStep:
		return s.Containers
	case *traversal.GraphStep:
		return s.Containers
	}
	return nil
}

func propertyKeys(s traversal.Step) []string {
	var keys []string
	for _, c := range containers(s) {
		if c.Token == traversal.TokenNone && c.Key != "" {
			keys = append(keys, c.Key)
		}
	}
	switch s := s.(type) {
	case *traversal.PropertiesStep:
		keys = append(keys, s.Keys...)
	case *traversal.PropertyMapStep:
		keys = append(keys, s.Keys...)
	}
	return keys
}

func elementLabels(s traversal.Step) []string {
	var labels []string
	for _, c := range containers(s) {
		if c.Token == traversal.TokenLabel {
			labels = append(labels, predicateStrings(c.Pred)...)
		}
	}
	if v, ok := s.(*traversal.VertexStep); ok {
		labels = append(labels, v.EdgeLabels...)
	}
	return labels
}

// predicateStrings returns the string operands of p.
func predicateStrings(p traversal.Predicate) []string {
	var out []string
	switch p := p.(type) {
	case *traversal.Compare:
		out = appendStrings(out, p.Value)
	case *traversal.Connective:
		for _, term := range p.Terms {
			out = append(out, predicateStrings(term)...)
		}
	}
	return out
}

func appendStrings(out []string, v ir.IRValue) []string {
	switch v := v.(type) {
	case ir.IRString:
		out = append(out, string(v))
	case ir.IRArray:
		for _, e := range v {
			out = appendStrings(out, e)
		}
	}
	return out
}
