package traversal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/ir"
)

func kinds(t *Traversal) []StepKind {
	out := make([]StepKind, len(t.Steps))
	for i, s := range t.Steps {
		out[i] = s.Kind()
	}
	return out
}

func TestStripHints(t *testing.T) {
	orig := Anon().Out().Barrier().Identity().In()
	got := StripHints(orig)
	assert.Equal(t, []StepKind{StepVertex, StepVertex}, kinds(got))
	assert.Len(t, orig.Steps, 4, "input must not be mutated")

	labeled := Anon().Out().Identity().As("x").Barrier().As("y")
	got = StripHints(labeled)
	require.Equal(t, []StepKind{StepVertex, StepIdentity, StepIdentity}, kinds(got))
	assert.Equal(t, []string{"y"}, got.Steps[2].Base().Labels)
}

func TestFoldSourceFilters(t *testing.T) {
	orig := V().Has("age", Gt(30)).HasLabel("person").Out()
	got := FoldSourceFilters(orig)

	require.Equal(t, []StepKind{StepGraph, StepVertex}, kinds(got))
	src := got.Steps[0].(*GraphStep)
	require.Len(t, src.Containers, 2)
	assert.Equal(t, "age", src.Containers[0].Key)
	assert.Equal(t, TokenLabel, src.Containers[1].Token)

	assert.Len(t, orig.Steps, 4)
	assert.Empty(t, orig.Steps[0].(*GraphStep).Containers)
}

func TestFoldSourceFiltersStopsAtLabel(t *testing.T) {
	orig := V().Has("a", 1).As("x").Out()
	assert.Same(t, orig, FoldSourceFilters(orig))

	anon := Anon().Has("a", 1)
	assert.Same(t, anon, FoldSourceFilters(anon))
}

func TestFoldLoopBounds(t *testing.T) {
	orig := Anon().Loops().Is(Gte(4))
	got := FoldLoopBounds(orig)
	require.Len(t, got.Steps, 1)
	loops, ok := got.Steps[0].(LoopBoundStep)
	require.True(t, ok)
	cmp := loops.LoopBound().(*Compare)
	assert.Equal(t, ir.OpGte, cmp.Op)
	assert.Equal(t, ir.IRInt(4), cmp.Value)

	assert.Len(t, orig.Steps, 2)
}

func TestReorderFilters(t *testing.T) {
	orig := Anon().
		Has("name", StartingWith("m")).
		Has("age", Gt(3)).
		Has("city", "x").
		HasLabel("person").
		Out().
		Has("b", Lt(1)).
		Has("a", 1)
	got := ReorderFilters(orig)

	var order []string
	for _, s := range got.Steps {
		if has, ok := s.(*HasStep); ok {
			order = append(order, has.Containers[0].String())
		} else {
			order = append(order, s.Name())
		}
	}
	assert.Equal(t, []string{
		`T.label.eq("person")`,
		`city.eq("x")`,
		`age.gt(3)`,
		`name.startingWith("m")`,
		"out",
		`a.eq(1)`,
		`b.lt(1)`,
	}, order)
	assert.Equal(t, "name", orig.Steps[0].(*HasStep).Containers[0].Key)
}

func TestRewriteOrdersSourceContainers(t *testing.T) {
	got := Rewrite(V().Has("age", Gt(30)).Has("name", "m").HasLabel("person").Barrier())
	require.Len(t, got.Steps, 1)
	src := got.Steps[0].(*GraphStep)
	var order []string
	for _, c := range src.Containers {
		order = append(order, c.String())
	}
	assert.Equal(t, []string{`T.label.eq("person")`, `name.eq("m")`, `age.gt(30)`}, order)
}

func TestRewriteUnchangedIsSame(t *testing.T) {
	orig := V().Out().In()
	assert.Same(t, orig, Rewrite(orig))
}
