package traversal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/ir"
)

func TestStepKindNames(t *testing.T) {
	seen := make(map[string]StepKind)
	for _, k := range AllStepKinds() {
		name := k.String()
		require.NotEmpty(t, name, "kind %d has no name", k)
		if prev, dup := seen[name]; dup {
			t.Fatalf("kinds %d and %d share name %q", prev, k, name)
		}
		seen[name] = k

		parsed, ok := ParseStepKind(name)
		require.True(t, ok)
		assert.Equal(t, k, parsed)
	}
	assert.Equal(t, "StepKind(200)", StepKind(200).String())
}

func TestFluentFormat(t *testing.T) {
	tests := []struct {
		name string
		trav *Traversal
		want string
	}{
		{
			name: "chain with label",
			trav: V().HasLabel("person").Out("knows").As("a"),
			want: `V().has(T.label.eq("person")).out("knows").as("a")`,
		},
		{
			name: "repeat modulators",
			trav: V().Repeat(Anon().Out()).Times(2).Emit(),
			want: `V().repeat(out()).times(2).emit()`,
		},
		{
			name: "until before repeat",
			trav: V().Until(Anon().HasLabel("x")).Repeat(Anon().Out()),
			want: `V().until(has(T.label.eq("x"))).repeat(out())`,
		},
		{
			name: "select with pop and by",
			trav: V().As("a").SelectPop(PopLast, "a").By("name"),
			want: `V().as("a").select(last,"a").by("name")`,
		},
		{
			name: "where predicate",
			trav: V().As("a").Out().WhereKeyP("a", Neq("b")),
			want: `V().as("a").out().where("a",neq("b"))`,
		},
		{
			name: "order by desc",
			trav: V().Order().By("age", Desc).Limit(3),
			want: `V().order().by("age",desc).range(0,3)`,
		},
		{
			name: "anonymous start label",
			trav: Anon().As("a").Out(),
			want: `as("a").out()`,
		},
		{
			name: "empty anonymous",
			trav: Anon(),
			want: `identity()`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.trav.Err())
			assert.Equal(t, tt.want, tt.trav.String())
		})
	}
}

func TestSelectArity(t *testing.T) {
	one := V().As("a").Select("a")
	_, ok := one.Last().(*SelectOneStep)
	assert.True(t, ok)

	many := V().As("a").Out().As("b").Select("a", "b")
	sel, ok := many.Last().(*SelectStep)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, sel.Keys)

	none := V().Select()
	assert.True(t, ir.IsMalformed(none.Err()))
}

func TestByOnUnmodulatedStep(t *testing.T) {
	trav := V().Out().By("name")
	err := trav.Err()
	require.Error(t, err)
	assert.True(t, ir.IsMalformed(err))
	assert.Contains(t, err.Error(), "out does not take by() modulators")
}

func TestTooManyModulators(t *testing.T) {
	trav := V().Group().By(T("label")).By("name").By("age")
	assert.True(t, ir.IsMalformed(trav.Err()))
}

func TestNestedErrorsSurface(t *testing.T) {
	trav := V().Where(Anon().Out().By("name"))
	assert.True(t, ir.IsMalformed(trav.Err()))
}

func TestDanglingUntil(t *testing.T) {
	trav := V().Until(Anon().HasLabel("x")).Out()
	err := trav.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a following repeat()")
}

func TestRepeatModulators(t *testing.T) {
	trav := V().Emit().Repeat(Anon().Out()).Until(Anon().Has("name", "x"))
	require.NoError(t, trav.Err())

	r, ok := trav.Last().(*RepeatStep)
	require.True(t, ok)
	assert.True(t, r.EmitAll)
	assert.True(t, r.EmitFirst)
	assert.False(t, r.UntilFirst)
	require.NotNil(t, r.Until)
	assert.Len(t, r.Children(), 2)

	twice := V().Repeat(Anon().Out()).Until(Anon().Out()).Until(Anon().In())
	assert.True(t, ir.IsMalformed(twice.Err()))

	noRepeat := V().Out().Times(3)
	assert.True(t, ir.IsMalformed(noRepeat.Err()))
}

func TestChooseOptions(t *testing.T) {
	trav := V().ChooseIf(Anon().HasLabel("person"), Anon().Out(), Anon().In())
	c, ok := trav.Last().(*ChooseStep)
	require.True(t, ok)
	assert.True(t, c.Predicate)
	require.Len(t, c.Options, 2)
	assert.Equal(t, ir.IRBool(true), c.Options[0].Pick)
	assert.Equal(t, ir.IRBool(false), c.Options[1].Pick)

	picked := V().Choose(Anon().Values("kind")).
		Option("a", Anon().Out()).
		Option(PickNone, Anon().In())
	c = picked.Last().(*ChooseStep)
	require.Len(t, c.Options, 2)
	assert.Equal(t, ir.IRString("a"), c.Options[0].Pick)
	assert.Equal(t, PickNone, c.Options[1].Token)

	orphan := V().Out().Option("a", Anon().Out())
	assert.True(t, ir.IsMalformed(orphan.Err()))
}

func TestWhereOperands(t *testing.T) {
	trav := V().WhereP(Within("a", "b"))
	w, ok := trav.Last().(*WherePredicateStep)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, w.Keys)
	assert.Equal(t, ir.OpWithin, w.Op)

	bad := V().WhereP(Eq(3))
	assert.True(t, ir.IsMalformed(bad.Err()))

	conn := V().WhereP(AndP(Eq("a"), Neq("b")))
	assert.True(t, ir.IsUnsupported(conn.Err()))
}

func TestCountSteps(t *testing.T) {
	trav := V().Where(Anon().Out().Has("a", 1)).Union(Anon().In(), Anon().Both())
	assert.Equal(t, 7, CountSteps(trav))
}

func TestIsComparisonChain(t *testing.T) {
	assert.True(t, IsComparisonChain(Anon().Has("a", 1).HasLabel("x")))
	assert.True(t, IsComparisonChain(Anon().Is(Gt(3))))
	assert.False(t, IsComparisonChain(Anon().Has("a", 1).Out()))
	assert.False(t, IsComparisonChain(Anon().Has("a", 1).As("x")))
	assert.False(t, IsComparisonChain(Anon()))
}

// T is a test shorthand for by(T.<name>).
func T(name string) Token {
	switch name {
	case "id":
		return TokenID
	case "label":
		return TokenLabel
	}
	return TokenNone
}
