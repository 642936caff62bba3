package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/traversal"
)

func lintCodes(errs []LintError) []string {
	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}
	return codes
}

func TestLintValid(t *testing.T) {
	errs := Lint(V().HasLabel("person").As("a").Out("knows").Select("a").Values("name"), testSchema())
	assert.Empty(t, errs)
}

func TestLintEmpty(t *testing.T) {
	errs := Lint(traversal.Anon(), testSchema())
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptyTraversal, errs[0].Code)
	assert.Empty(t, errs[0].Step)

	errs = Lint(nil, testSchema())
	assert.Equal(t, []string{ErrEmptyTraversal}, lintCodes(errs))
}

func TestLintUnsupportedStep(t *testing.T) {
	errs := Lint(V().Out().Math("_ + 1"), testSchema())
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedStep, errs[0].Code)
	assert.Equal(t, "math", errs[0].Step)
}

func TestLintUnboundLabel(t *testing.T) {
	errs := Lint(V().Out().Select("b"), testSchema())
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnboundLabel, errs[0].Code)
	assert.Contains(t, errs[0].Message, `"b"`)

	// A label bound inside a nested traversal counts.
	errs = Lint(V().Where(anon().Out().As("x")).Select("x"), testSchema())
	assert.Empty(t, errs)
}

func TestLintUnknownSchemaNames(t *testing.T) {
	errs := Lint(V().Has("height", 1).Values("salary"), testSchema())
	assert.Equal(t, []string{ErrUnknownProperty, ErrUnknownProperty}, lintCodes(errs))

	errs = Lint(V().HasLabel("robot").Out("likes"), testSchema())
	assert.Equal(t, []string{ErrUnknownLabel, ErrUnknownLabel}, lintCodes(errs))

	// Without a schema only the structural checks run.
	assert.Empty(t, Lint(V().Has("height", 1).Out("likes"), nil))
}

func TestLintNestedRepeat(t *testing.T) {
	errs := Lint(V().Repeat(anon().Repeat(anon().Out()).Times(2)).Times(3), testSchema())
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNestedRepeat, errs[0].Code)
	assert.Equal(t, "repeat", errs[0].Step)
}

func TestLintReportsEverything(t *testing.T) {
	errs := Lint(V().HasLabel("robot").Math("_").Select("z"), testSchema())
	assert.Equal(t, []string{ErrUnsupportedStep, ErrUnboundLabel, ErrUnknownLabel}, lintCodes(errs))
}

func TestLintErrorString(t *testing.T) {
	e := LintError{Step: "select", Message: `label "z" is never bound with as()`, Code: ErrUnboundLabel}
	assert.Equal(t, `[E102] select: label "z" is never bound with as()`, e.Error())
	assert.Equal(t, "[E106] traversal has no steps", LintError{Message: "traversal has no steps", Code: ErrEmptyTraversal}.Error())
}
