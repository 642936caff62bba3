package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/gplan/internal/plan"
)

// AssertionError is a failed expectation on one query.
type AssertionError struct {
	Query    string
	Type     string
	Expected string
	Actual   string
	Explain  string // plan listing for context, empty if the query failed
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s (query %s)\n", e.Type, e.Query)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Explain != "" {
		fmt.Fprintf(&buf, "\nPlan:\n")
		for _, line := range strings.Split(strings.TrimRight(e.Explain, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against lp and returns the
// messages of those that fail.
func EvaluateAssertions(query string, lp *plan.LogicalPlan, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(lp, a); err != nil {
			err.Query = query
			err.Explain = lp.Explain()
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(lp *plan.LogicalPlan, a Assertion) *AssertionError {
	switch a.Type {
	case AssertVertexCount:
		return assertVertexCount(lp, a)
	case AssertOpCount:
		return assertOpCount(lp, a)
	case AssertContainsOp:
		return assertContainsOp(lp, a)
	case AssertOutputOp:
		return assertOutputOp(lp, a)
	case AssertOpOrder:
		return assertOpOrder(lp, a)
	case AssertExplainContains:
		return assertExplainContains(lp, a)
	default:
		return &AssertionError{Type: a.Type, Expected: "known assertion type", Actual: a.Type}
	}
}

func assertVertexCount(lp *plan.LogicalPlan, a Assertion) *AssertionError {
	if n := lp.CountVertices(); n != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d vertices", a.Count),
			Actual:   fmt.Sprintf("%d vertices", n),
		}
	}
	return nil
}

func countOp(lp *plan.LogicalPlan, name string) int {
	n := 0
	for _, op := range lp.Operators() {
		if op.String() == name {
			n++
		}
	}
	return n
}

func assertOpCount(lp *plan.LogicalPlan, a Assertion) *AssertionError {
	if n := countOp(lp, a.Op); n != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s x%d", a.Op, a.Count),
			Actual:   fmt.Sprintf("%s x%d", a.Op, n),
		}
	}
	return nil
}

func assertContainsOp(lp *plan.LogicalPlan, a Assertion) *AssertionError {
	if countOp(lp, a.Op) == 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: a.Op,
			Actual:   "not in plan",
		}
	}
	return nil
}

func assertOutputOp(lp *plan.LogicalPlan, a Assertion) *AssertionError {
	v, ok := lp.Vertex(lp.OutputID)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: a.Op,
			Actual:   fmt.Sprintf("no output vertex %d", lp.OutputID),
		}
	}
	if v.Op.String() != a.Op {
		return &AssertionError{
			Type:     a.Type,
			Expected: a.Op,
			Actual:   v.Op.String(),
		}
	}
	return nil
}

// assertOpOrder matches ops as a subsequence of the walk order.
func assertOpOrder(lp *plan.LogicalPlan, a Assertion) *AssertionError {
	ops := lp.Operators()
	next := 0
	for _, op := range ops {
		if next < len(a.Ops) && op.String() == a.Ops[next] {
			next++
		}
	}
	if next < len(a.Ops) {
		names := make([]string, len(ops))
		for i, op := range ops {
			names[i] = op.String()
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: strings.Join(a.Ops, " -> "),
			Actual:   strings.Join(names, " -> "),
		}
	}
	return nil
}

func assertExplainContains(lp *plan.LogicalPlan, a Assertion) *AssertionError {
	if !strings.Contains(lp.Explain(), a.Text) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("explain containing %q", a.Text),
			Actual:   "not found",
		}
	}
	return nil
}
