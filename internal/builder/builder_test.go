package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/tree"
	"github.com/roach88/gplan/internal/valuetype"
)

var (
	V    = traversal.V
	anon = traversal.Anon
)

func testSchema() *schema.Static {
	return schema.NewStatic().
		AddLabel("person", 1).
		AddLabel("software", 2).
		AddLabel("knows", 3).
		AddLabel("created", 4).
		AddProperty("name", 1, valuetype.String).
		AddProperty("age", 2, valuetype.Int).
		AddProperty("weight", 3, valuetype.Double)
}

func build(t *testing.T, tr *traversal.Traversal) *Result {
	t.Helper()
	res, err := Build(tr, testSchema(), Options{})
	require.NoError(t, err)
	return res
}

func root[N tree.Node](t *testing.T, res *Result) N {
	t.Helper()
	n, ok := res.Tree.Node(res.Root).(N)
	require.Truef(t, ok, "root is %T", res.Tree.Node(res.Root))
	return n
}

func count[N tree.Node](res *Result) int {
	n := 0
	for id := 0; id < res.Tree.Len(); id++ {
		if _, ok := res.Tree.Node(tree.NodeID(id)).(N); ok {
			n++
		}
	}
	return n
}

func TestStepHandlersComplete(t *testing.T) {
	for _, k := range traversal.AllStepKinds() {
		assert.NotNilf(t, stepHandlers[k], "no handler for %s", k)
	}
}

func TestUnsupportedKindsRejected(t *testing.T) {
	for _, k := range traversal.AllStepKinds() {
		if Supported(k) {
			continue
		}
		t.Run(k.String(), func(t *testing.T) {
			res, err := Build(V().Opaque(k, ""), testSchema(), Options{})
			require.Error(t, err)
			assert.True(t, ir.IsUnsupported(err), "got %v", err)
			assert.Nil(t, res)
		})
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(traversal.StepVertex))
	assert.True(t, Supported(traversal.StepRepeat))
	assert.False(t, Supported(traversal.StepMath))
	assert.False(t, Supported(traversal.NumStepKinds))
}

func TestBuildRejectsMalformedRoots(t *testing.T) {
	_, err := Build(traversal.Anon(), testSchema(), Options{})
	assert.True(t, ir.IsMalformed(err))

	_, err = Build(traversal.Anon().Out(), testSchema(), Options{})
	assert.True(t, ir.IsMalformed(err))

	_, err = Build(V().Out().Append(&traversal.GraphStep{}), testSchema(), Options{})
	assert.True(t, ir.IsUnsupported(err))
}

func TestHasFoldsIntoSource(t *testing.T) {
	res := build(t, V().Has("name", "marko").HasLabel("person"))
	src := root[*tree.SourceNode](t, res)
	require.Len(t, src.Comparisons, 2)
	// Label tests are reordered ahead of property equality.
	assert.Equal(t, plan.Comparison{Target: plan.TargetLabel, Op: ir.OpEq, Value: ir.IRInt(1)}, src.Comparisons[0])
	assert.Equal(t, plan.Comparison{Target: plan.TargetProp, Key: 1, Op: ir.OpEq, Value: ir.IRString("marko")}, src.Comparisons[1])
}

func TestHasOrPredicateExpands(t *testing.T) {
	res := build(t, V().Out().Has("age", traversal.OrP(traversal.Lt(18), traversal.Gt(65))))
	n := root[*tree.HasOrNode](t, res)
	assert.Len(t, n.Disjunction, 2)
}

func TestSchemaLookupFailure(t *testing.T) {
	_, err := Build(V().Has("salary", 10), testSchema(), Options{})
	require.Error(t, err)
	assert.Equal(t, ir.CodeSchemaLookupFailure, ir.CodeOf(err))

	_, err = Build(V().Out("likes"), testSchema(), Options{})
	assert.Equal(t, ir.CodeSchemaLookupFailure, ir.CodeOf(err))
}

func TestOrOverComparisonChainsFlattens(t *testing.T) {
	res := build(t, V().Out().Or(anon().Has("name", "josh"), anon().HasLabel("software")))
	n := root[*tree.HasOrNode](t, res)
	require.Len(t, n.Disjunction, 2)
	assert.Equal(t, plan.TargetProp, n.Disjunction[0][0].Target)
	assert.Equal(t, plan.TargetLabel, n.Disjunction[1][0].Target)
}

func TestOrOverTraversalUnsupported(t *testing.T) {
	_, err := Build(V().Or(anon().Out("knows"), anon().Has("age", 3)), testSchema(), Options{})
	require.Error(t, err)
	assert.True(t, ir.IsUnsupported(err))
	var ce *ir.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "or", ce.Step)
}

func TestAndMixesInlineAndRing(t *testing.T) {
	res := build(t, V().And(anon().Has("age", traversal.Gt(30)), anon().Out("knows")))
	ring := root[*tree.RingNode](t, res)
	assert.Equal(t, tree.RingSemi, ring.Mode)
	_, ok := res.Tree.Node(ring.Input()).(*tree.HasNode)
	assert.True(t, ok, "comparison chains are inlined before the ring")
}

func TestNotIsAntiRing(t *testing.T) {
	res := build(t, V().Not(anon().Out("created")))
	assert.Equal(t, tree.RingAnti, root[*tree.RingNode](t, res).Mode)
}

func TestRepeatBoundNormalization(t *testing.T) {
	gt := build(t, V().Repeat(anon().Out()).Until(anon().Loops().Is(traversal.Gt(3))))
	gte := build(t, V().Repeat(anon().Out()).Until(anon().Loops().Is(traversal.Gte(4))))
	eq := build(t, V().Repeat(anon().Out()).Until(anon().Loops().Is(traversal.Eq(4))))

	for _, res := range []*Result{gt, gte, eq} {
		n := root[*tree.RepeatNode](t, res)
		assert.Equal(t, int64(4), n.MaxLoops)
		assert.Nil(t, n.Until, "the loops() guard is consumed by the bound")
	}
}

func TestRepeatBounds(t *testing.T) {
	tests := []struct {
		name string
		tr   *traversal.Traversal
		opts Options
		want int64
	}{
		{"default", V().Repeat(anon().Out()).Emit(), Options{}, DefaultMaxLoops},
		{"option", V().Repeat(anon().Out()).Emit(), Options{MaxLoops: 10}, 10},
		{"times", V().Repeat(anon().Out()).Times(3), Options{}, 3},
		{"times and guard", V().Repeat(anon().Out()).Times(5).Until(anon().Loops().Is(traversal.Gte(2))), Options{}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Build(tt.tr, testSchema(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, root[*tree.RepeatNode](t, res).MaxLoops)
		})
	}
}

func TestRepeatErrors(t *testing.T) {
	_, err := Build(V().Repeat(anon().Repeat(anon().Out()).Times(2)).Times(2), testSchema(), Options{})
	assert.True(t, ir.IsUnsupported(err), "nested loops: %v", err)

	_, err = Build(V().Repeat(anon().Out()).Until(anon().Loops().Is(traversal.Lt(3))), testSchema(), Options{})
	assert.True(t, ir.IsUnsupported(err), "lt guard: %v", err)

	_, err = Build(V().Repeat(anon().Out()).Until(anon().Loops().Is(traversal.Gte(0))), testSchema(), Options{})
	assert.True(t, ir.IsMalformed(err), "zero bound: %v", err)

	_, err = Build(V().Repeat(anon().Out()).Times(-1), testSchema(), Options{})
	assert.True(t, ir.IsMalformed(err), "negative times: %v", err)

	_, err = Build(V().Repeat(anon().Out()).Times(0), testSchema(), Options{})
	assert.True(t, ir.IsMalformed(err), "zero times: %v", err)

	_, err = Build(V().Out().Loops(), testSchema(), Options{})
	assert.True(t, ir.IsUnsupported(err), "bare loops: %v", err)
}

func TestRepeatConditions(t *testing.T) {
	res := build(t, V().Repeat(anon().Out()).Until(anon().Not(anon().Out("knows"))).Emit(anon().HasLabel("person")))
	n := root[*tree.RepeatNode](t, res)
	require.NotNil(t, n.Until)
	assert.True(t, n.Until.Negate, "until(not(t)) negates the join")
	require.NotNil(t, n.Emit)
	assert.False(t, n.Emit.All)

	res = build(t, V().Emit().Repeat(anon().Out()).Times(2))
	n = root[*tree.RepeatNode](t, res)
	assert.True(t, n.EmitFirst)
	assert.True(t, n.Emit.All)
}

func TestChoosePredicateHasNoValueJoin(t *testing.T) {
	res := build(t, V().ChooseIf(anon().Out("knows"), anon().Out("created"), anon().In()))
	n := root[*tree.BranchNode](t, res)
	assert.Equal(t, tree.BranchPredicate, n.Mode)
	assert.Empty(t, n.Value)
	assert.Len(t, n.Options, 2)
	assert.Zero(t, count[*tree.RingNode](res))
}

func TestChooseComparisonSelector(t *testing.T) {
	res := build(t, V().ChooseIf(anon().Has("age", traversal.Gt(30)), anon().Out(), anon().In()))
	n := root[*tree.BranchNode](t, res)
	assert.Equal(t, tree.BranchCompare, n.Mode)
	assert.Empty(t, n.Key, "no ring key")
	assert.Zero(t, count[*tree.RingNode](res))
	require.Len(t, n.Terms, 1)
	require.Len(t, n.Negated, 1)
	assert.Equal(t, ir.OpGt, n.Terms[0][0].Op)
	assert.Equal(t, ir.OpLte, n.Negated[0][0].Op)
	assert.Equal(t, plan.TargetProp, n.Negated[0][0].Target)

	// either alternative of an or() fails only when both do.
	res = build(t, V().ChooseIf(anon().Has("age", traversal.OrP(traversal.Lt(10), traversal.Gte(60))), anon().Out(), anon().In()))
	n = root[*tree.BranchNode](t, res)
	assert.Equal(t, tree.BranchCompare, n.Mode)
	assert.Len(t, n.Terms, 2)
	require.Len(t, n.Negated, 1)
	assert.Len(t, n.Negated[0], 2)

	// regex has no complement, so the selector stays a ring.
	res = build(t, V().ChooseIf(anon().Has("name", traversal.Regex("^m")), anon().Out(), anon().In()))
	assert.Equal(t, tree.BranchPredicate, root[*tree.BranchNode](t, res).Mode)
}

func TestDedupInRingIsKeyed(t *testing.T) {
	res := build(t, V().Where(anon().Out().Dedup()))
	var dedups []*tree.DedupNode
	for id := 0; id < res.Tree.Len(); id++ {
		if d, ok := res.Tree.Node(tree.NodeID(id)).(*tree.DedupNode); ok {
			dedups = append(dedups, d)
		}
	}
	require.Len(t, dedups, 1)
	assert.True(t, dedups[0].Keyed)
	assert.False(t, dedups[0].DedupLocal)
	assert.False(t, dedups[0].PropLocal(res.Tree))

	res = build(t, V().Out().Dedup())
	d := root[*tree.DedupNode](t, res)
	assert.False(t, d.Keyed)
	assert.True(t, d.DedupLocal)
	assert.True(t, d.PropLocal(res.Tree))
}

func TestChooseDirectSelector(t *testing.T) {
	res := build(t, V().Choose(anon().Label()).
		Option("person", anon().Out("knows")).
		Option(traversal.PickNone, anon().In()))
	n := root[*tree.BranchNode](t, res)
	assert.Equal(t, tree.BranchDirect, n.Mode)
	assert.Equal(t, plan.TargetLabel, n.Target)
	assert.Equal(t, ir.IRInt(1), n.Options[0].Pick, "label picks resolve to schema ids")
}

func TestChooseValueSelector(t *testing.T) {
	res := build(t, V().Choose(anon().Out().Count()).
		Option(int64(0), anon().Constant("leaf")).
		Option(traversal.PickAny, anon().Label()))
	n := root[*tree.BranchNode](t, res)
	assert.Equal(t, tree.BranchValue, n.Mode)
	assert.NotEmpty(t, n.Key)
	assert.NotEmpty(t, n.Value)
}

func TestChooseMalformedOptions(t *testing.T) {
	tests := map[string]*traversal.Traversal{
		"two none": V().Choose(anon().Label()).Option(traversal.PickNone, anon().Out()).Option(traversal.PickNone, anon().In()),
		"dup pick": V().Choose(anon().Label()).Option("person", anon().Out()).Option("person", anon().In()),
		"no opts":  V().Choose(anon().Label()),
	}
	for name, tr := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Build(tr, testSchema(), Options{})
			assert.True(t, ir.IsMalformed(err), "got %v", err)
		})
	}
}

func TestUnionAndCoalesce(t *testing.T) {
	res := build(t, V().Union(anon().Out(), anon().In()))
	u := root[*tree.UnionNode](t, res)
	assert.Len(t, u.Branches, 2)
	assert.Equal(t, valuetype.Vertex, res.Tree.TypeOf(res.Root))

	res = build(t, V().Coalesce(anon().Values("name"), anon().Constant("none")))
	co := root[*tree.CoalesceNode](t, res)
	assert.NotEmpty(t, co.Key)
	assert.Equal(t, valuetype.Scalar(valuetype.String), res.Tree.TypeOf(res.Root))

	res = build(t, V().Optional(anon().Out("knows")))
	assert.Len(t, root[*tree.CoalesceNode](t, res).Branches, 2)
}

func TestAggregateCapIsFold(t *testing.T) {
	res := build(t, V().Aggregate("x").Cap("x"))
	n := root[*tree.ReduceNode](t, res)
	assert.Equal(t, plan.OpFold, n.Op)

	_, err := Build(V().Aggregate("x").Out(), testSchema(), Options{})
	assert.True(t, ir.IsUnsupported(err))

	_, err = Build(V().Aggregate("x"), testSchema(), Options{})
	assert.True(t, ir.IsUnsupported(err))

	_, err = Build(V().Aggregate("x").Cap("y"), testSchema(), Options{})
	assert.True(t, ir.IsUnsupported(err))
}

func TestGroupCountSideEffect(t *testing.T) {
	res := build(t, V().GroupCount("g").By("name").Cap("g"))
	n := root[*tree.GroupCountNode](t, res)
	assert.Equal(t, tree.KeyProp, n.Key.Kind)
}

func TestSelectUnbound(t *testing.T) {
	_, err := Build(V().Out().Select("a"), testSchema(), Options{})
	require.Error(t, err)
	assert.True(t, ir.IsUnresolvedLabel(err))
}

func TestSelectOneKeyedOnAncestor(t *testing.T) {
	res := build(t, V().As("a").Out().Select("a"))
	n := root[*tree.SelectOneNode](t, res)
	assert.True(t, n.Keyed)
	assert.Equal(t, valuetype.Vertex, n.Out)
}

func TestWherePredicateSharesRings(t *testing.T) {
	res := build(t, V().As("a").Out().As("b").WhereKeyP("a", traversal.Neq("b")))
	f := root[*tree.FilterNode](t, res)
	assert.Equal(t, plan.OpWhereLabel, f.Op)
	assert.Zero(t, count[*tree.RingNode](res))

	res = build(t, V().As("a").Out().WhereKeyP("a", traversal.Eq("a")).By("age"))
	assert.Equal(t, 1, count[*tree.RingNode](res), "the same operand and modulator share one ring")
}

func TestWherePredicateLabelBoundLater(t *testing.T) {
	_, err := Build(V().Out().WhereP(traversal.Eq("a")), testSchema(), Options{})
	assert.True(t, ir.IsUnresolvedLabel(err))

	res := build(t, V().Out().WhereP(traversal.Neq("a")).Out().As("a"))
	assert.NotNil(t, res)
}

func TestWhereTraversalMatchesBoundLabel(t *testing.T) {
	res := build(t, V().As("a").Out().Where(anon().Out().As("a")))
	ring := root[*tree.RingNode](t, res)
	end := res.Tree.Node(ring.Sub.End)
	f, ok := end.(*tree.FilterNode)
	require.True(t, ok, "sub-chain ends with %T", end)
	assert.Equal(t, plan.OpWhereLabel, f.Op)
	assert.Len(t, res.Labels.Producers("a"), 1, "a matched label is not rebound")
}

func TestProjectByTraversalUsesValueRing(t *testing.T) {
	res := build(t, V().Project("name", "degree").By("name").By(anon().Out().Count()))
	p := root[*tree.ProjectNode](t, res)
	require.Len(t, p.By, 2)
	assert.Equal(t, tree.KeyProp, p.By[0].Kind)
	assert.Equal(t, tree.KeyLabel, p.By[1].Kind)
	assert.Equal(t, valuetype.Scalar(valuetype.Long), p.By[1].Type)
	require.Len(t, p.After, 1)
	assert.Equal(t, plan.KeyDel, p.After[0].Kind)
}

func TestLocalWithBarrierSelectsRingValue(t *testing.T) {
	res := build(t, V().Local(anon().Out().Count()))
	n := root[*tree.SelectOneNode](t, res)
	assert.Equal(t, valuetype.Scalar(valuetype.Long), n.Out)

	res = build(t, V().Local(anon().Out().Has("age", 1)))
	_, ok := res.Tree.Node(res.Root).(*tree.HasNode)
	assert.True(t, ok, "bodies without a barrier are inlined")
}

func TestGroupByReduce(t *testing.T) {
	res := build(t, V().Group().By(traversal.TokenLabel).By(anon().Count()))
	g := root[*tree.GroupNode](t, res)
	assert.Equal(t, tree.KeyToken, g.Key.Kind)
	assert.Equal(t, tree.KeyReduce, g.Value.Kind)
	assert.Equal(t, valuetype.Map(valuetype.Scalar(valuetype.String), valuetype.Scalar(valuetype.Long)), res.Tree.TypeOf(res.Root))

	_, err := Build(V().Group().By("name").By(anon().Values("age").Sum()), testSchema(), Options{})
	assert.True(t, ir.IsUnsupported(err))
}

func TestRangeValidation(t *testing.T) {
	_, err := Build(V().Range(5, 2), testSchema(), Options{})
	assert.True(t, ir.IsMalformed(err))

	_, err = Build(V().Coin(1.5), testSchema(), Options{})
	assert.True(t, ir.IsMalformed(err))
}

func TestTypeChecks(t *testing.T) {
	_, err := Build(V().Values("name").Out(), testSchema(), Options{})
	assert.True(t, ir.IsMalformed(err))

	_, err = Build(V().OutV(), testSchema(), Options{})
	assert.True(t, ir.IsMalformed(err))

	_, err = Build(traversal.E().Out(), testSchema(), Options{})
	assert.True(t, ir.IsMalformed(err))
}

func TestMaxDepth(t *testing.T) {
	tr := V().Where(anon().Where(anon().Where(anon().Out())))
	_, err := Build(tr, testSchema(), Options{MaxDepth: 2})
	assert.True(t, ir.IsUnsupported(err))

	_, err = Build(tr, testSchema(), Options{})
	assert.NoError(t, err)
}

func TestConfigCollected(t *testing.T) {
	res := build(t, V().With("timeout", int64(30)).Out())
	assert.Equal(t, ir.IRInt(30), res.Config["timeout"])
}

func TestPathFlagsTopLevelOnly(t *testing.T) {
	res := build(t, V().Out().Where(anon().Out("knows")).Path())
	for id := 0; id < res.Tree.Len(); id++ {
		b := res.Tree.Node(tree.NodeID(id)).Base()
		switch {
		case b.Parent != tree.NoNode:
			assert.False(t, b.PathFlag, "nested node %d (%s)", id, b.Step)
			assert.True(t, b.Subquery, "nested node %d (%s)", id, b.Step)
		case b.Kind() == tree.KindSource || b.Kind() == tree.KindVertex:
			assert.True(t, b.PathFlag, "top-level node %d (%s)", id, b.Step)
		}
	}

	res = build(t, V().Out().Out())
	assert.False(t, res.Tree.Node(res.Root).Base().PathFlag, "no path reader, no path tracking")
}

func TestStepNamesAnnotated(t *testing.T) {
	res := build(t, V().Out("knows").Values("name"))
	assert.Equal(t, "values", res.Tree.Node(res.Root).Base().Step)
	assert.Equal(t, "out", res.Tree.Node(res.Tree.Node(res.Root).Base().Input()).Base().Step)
}

func TestUserLabelWithSystemPrefix(t *testing.T) {
	_, err := Build(V().As("~x"), testSchema(), Options{})
	assert.True(t, ir.IsMalformed(err))
}
