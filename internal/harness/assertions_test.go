package harness

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/compiler"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/valuetype"
)

// expandPlan compiles V().out().range(2, 5).
func expandPlan(t *testing.T) *plan.LogicalPlan {
	t.Helper()
	sc := schema.NewStatic().AddLabel("person", 1).AddProperty("name", 1, valuetype.String)
	lp, err := compiler.Compile(context.Background(), traversal.V().Out().Range(2, 5), sc, compiler.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return lp
}

func TestEvaluateAssertionsPass(t *testing.T) {
	lp := expandPlan(t)
	errs := EvaluateAssertions("q", lp, []Assertion{
		{Type: AssertVertexCount, Count: 3},
		{Type: AssertOpCount, Op: "OUT", Count: 1},
		{Type: AssertOpCount, Op: "REPEAT", Count: 0},
		{Type: AssertContainsOp, Op: "RANGE"},
		{Type: AssertOutputOp, Op: "RANGE"},
		{Type: AssertOpOrder, Ops: []string{"SOURCE_VERTEX", "RANGE"}},
		{Type: AssertExplainContains, Text: "range=[2,5)"},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertionsFail(t *testing.T) {
	lp := expandPlan(t)
	tests := []struct {
		assertion Assertion
		want      string
	}{
		{Assertion{Type: AssertVertexCount, Count: 4}, "Actual: 3 vertices"},
		{Assertion{Type: AssertOpCount, Op: "OUT", Count: 2}, "Actual: OUT x1"},
		{Assertion{Type: AssertContainsOp, Op: "COUNT"}, "Actual: not in plan"},
		{Assertion{Type: AssertOutputOp, Op: "OUT"}, "Actual: RANGE"},
		{Assertion{Type: AssertOpOrder, Ops: []string{"RANGE", "OUT"}}, "Actual: SOURCE_VERTEX -> OUT -> RANGE"},
		{Assertion{Type: AssertExplainContains, Text: "global_stop!"}, `Expected: explain containing "global_stop!"`},
	}
	for _, tt := range tests {
		t.Run(tt.assertion.Type, func(t *testing.T) {
			errs := EvaluateAssertions("q", lp, []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
			assert.Contains(t, errs[0], "Assertion failed: "+tt.assertion.Type+" (query q)")
			assert.Contains(t, errs[0], "  3 RANGE range=[2,5) global_stop <- 2 BY_CONST")
		})
	}
}
