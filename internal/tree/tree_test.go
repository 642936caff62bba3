package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/label"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/valuetype"
)

func newTree() *Tree { return New(label.NewManager()) }

func ops(p *plan.SubPlan) []plan.OperatorKind {
	var out []plan.OperatorKind
	for _, v := range p.Vertices() {
		out = append(out, v.Op)
	}
	return out
}

func TestUnionOutputType(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)

	a := tr.Delegate(src, true)
	b := tr.Delegate(src, true)
	same := tr.Union(src, []Chain{
		{Start: a, End: tr.Expand(a, traversal.Out, false, nil)},
		{Start: b, End: tr.Expand(b, traversal.In, false, nil)},
	})
	assert.Equal(t, valuetype.Vertex, tr.TypeOf(same))

	c := tr.Delegate(src, true)
	d := tr.Delegate(src, true)
	mixed := tr.Union(src, []Chain{
		{Start: c, End: c},
		{Start: d, End: tr.Expand(d, traversal.Out, true, nil)},
	})
	assert.Equal(t, valuetype.Merge(valuetype.Vertex, valuetype.Edge), tr.TypeOf(mixed))
	assert.True(t, valuetype.IsElement(tr.TypeOf(mixed)))
}

func TestUnionAdoptsBranches(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)
	d := tr.Delegate(src, true)
	out := tr.Expand(d, traversal.Out, false, nil)
	u := tr.Union(src, []Chain{{Start: d, End: out}})

	assert.Equal(t, u, tr.Node(d).Base().Parent)
	assert.Equal(t, u, tr.Node(out).Base().Parent)
	assert.Equal(t, NoNode, tr.Node(src).Base().Parent)
}

func TestRangeFusesIntoOrder(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)
	o := tr.Order(tr.Expand(src, traversal.Out, false, nil), false, nil)

	got := tr.Range(o, 2, 7, false)
	assert.Equal(t, o, got)
	assert.Equal(t, &plan.Range{Low: 2, High: 7}, tr.Node(o).(*OrderNode).Limit)

	// A second range no longer fuses.
	assert.NotEqual(t, o, tr.Range(o, 0, 1, false))
}

func TestRangeAfterSourceStopsEarly(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)

	got := tr.Range(src, 0, 5, false)
	require.Equal(t, src, got)
	b := tr.Node(src).Base()
	assert.Equal(t, &plan.Range{Low: 0, High: 5}, b.RangeLimit)
	assert.True(t, b.EarlyStop.GlobalStop)
}

func TestRangePushesPreRangeToFlatMap(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)
	exp := tr.Expand(src, traversal.Out, false, nil)
	id := tr.Map(exp, plan.OpID, nil, valuetype.Scalar(valuetype.Long), false, true)

	got := tr.Range(id, 3, 10, false)
	assert.Equal(t, KindRange, tr.Node(got).Kind())
	assert.Equal(t, &plan.Range{Low: 0, High: 10}, tr.Node(exp).Base().RangeLimit)
	assert.Nil(t, tr.Node(src).Base().RangeLimit)

	// A tighter range lowers the pre-range; a looser one leaves it.
	tr.Range(id, 0, 4, false)
	tr.Range(exp, 0, 8, false)
	assert.Equal(t, int64(4), tr.Node(exp).Base().RangeLimit.High)
}

func TestRangeNotPushedInSubquery(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)
	d := tr.Delegate(src, true)
	exp := tr.Expand(d, traversal.Out, false, nil)
	tr.Node(exp).Base().Subquery = true

	tr.Range(exp, 0, 3, false)
	assert.Nil(t, tr.Node(exp).Base().RangeLimit)
}

func TestRangeUnboundedNotPushed(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)
	exp := tr.Expand(src, traversal.Out, false, nil)

	got := tr.Range(exp, 2, -1, false)
	assert.NotEqual(t, exp, got)
	assert.Nil(t, tr.Node(exp).Base().RangeLimit)
}

func TestPropagateFill(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)
	exp := tr.Expand(src, traversal.Out, false, nil)
	name := tr.Map(exp, plan.OpPropValue, &plan.Argument{Ints: []int64{1}}, valuetype.Scalar(valuetype.String), true, true)
	path := tr.Path(name, nil, tr.PathElements(name))
	for _, id := range []NodeID{src, exp, name} {
		tr.Node(id).Base().PathFlag = true
	}

	tr.PropagateFill(path, []int32{3, 1})
	tr.PropagateFill(path, []int32{2, 1})

	assert.Equal(t, []int32{1, 2, 3}, tr.Node(src).Base().FillProps)
	assert.Equal(t, []int32{1, 2, 3}, tr.Node(exp).Base().FillProps)
	assert.Empty(t, tr.Node(name).Base().FillProps, "scalars have no properties to fill")
	assert.Empty(t, tr.Node(path).Base().FillProps)
}

func TestPropagateFillEntersBranches(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)
	d := tr.Delegate(src, true)
	body := tr.Expand(d, traversal.Out, false, nil)
	tr.Node(body).Base().PathFlag = true
	u := tr.Union(src, []Chain{{Start: d, End: body}})
	end := tr.Path(u, nil, tr.PathElements(u))

	tr.PropagateFill(end, []int32{5})
	assert.Equal(t, []int32{5}, tr.Node(body).Base().FillProps)
	assert.Empty(t, tr.Node(src).Base().FillProps, "the source does not track paths")
}

func TestLowerChain(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)
	exp := tr.Expand(src, traversal.Out, false, nil)
	end := tr.Range(exp, 0, 10, false)

	p, err := Lower(tr, plan.NewBuilder(), end)
	require.NoError(t, err)
	assert.Equal(t, []plan.OperatorKind{plan.OpSourceVertex, plan.OpOut, plan.OpRange}, ops(p))

	out := p.Output()
	require.NotNil(t, out)
	assert.Equal(t, plan.OpRange, out.Op)
	assert.True(t, out.EarlyStop.GlobalStop)
	assert.Equal(t, &plan.Range{Low: 0, High: 10}, out.Range)

	vs := p.Vertices()
	assert.Equal(t, &plan.Range{Low: 0, High: 10}, vs[1].Range, "pre-range on the expansion")

	edges := p.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, plan.Forward(), edges[0].Shuffle, "a scan's rows are resident")
	assert.Equal(t, plan.ByConst(), edges[1].Shuffle, "a top-level range is a barrier")
}

func TestLowerFillAddsPropFill(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)
	exp := tr.Expand(src, traversal.Out, false, nil)
	tr.Node(exp).Base().FillProps = []int32{1}

	p, err := Lower(tr, plan.NewBuilder(), exp)
	require.NoError(t, err)
	assert.Equal(t, []plan.OperatorKind{plan.OpSourceVertex, plan.OpOut, plan.OpPropFill}, ops(p))
	assert.Equal(t, plan.OpPropFill, p.Output().Op)
	// Neighbours are not resident, so the fill is routed to their owner.
	assert.Equal(t, plan.ByKey(label.Head), p.Edges()[1].Shuffle)
}

func TestLowerUnion(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)
	a := tr.Delegate(src, true)
	b := tr.Delegate(src, true)
	u := tr.Union(src, []Chain{
		{Start: a, End: tr.Expand(a, traversal.Out, false, nil)},
		{Start: b, End: tr.Expand(b, traversal.In, false, nil)},
	})

	p, err := Lower(tr, plan.NewBuilder(), u)
	require.NoError(t, err)
	assert.ElementsMatch(t, []plan.OperatorKind{plan.OpSourceVertex, plan.OpOut, plan.OpIn, plan.OpUnion}, ops(p))
	assert.Equal(t, plan.OpUnion, p.Output().Op)
	assert.Len(t, p.Inputs(p.Output().ID), 2)
}

func TestLowerEmptyBranchUnionSkipped(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)
	e := tr.Empty(src, true)
	u := tr.Union(src, []Chain{e})

	p, err := Lower(tr, plan.NewBuilder(), u)
	require.NoError(t, err)
	assert.Equal(t, []plan.OperatorKind{plan.OpSourceVertex}, ops(p))
}

func TestSelectOneKeyedOnlyOnChain(t *testing.T) {
	tr := newTree()
	src := tr.Source(false, nil, nil)
	require.NoError(t, tr.Labels.BindUserLabel("a", int32(src)))
	exp := tr.Expand(src, traversal.Out, false, nil)

	sel, err := tr.SelectOne(exp, "a", traversal.PopNone)
	require.NoError(t, err)
	n := tr.Node(sel).(*SelectOneNode)
	assert.True(t, n.Keyed)
	assert.True(t, tr.PropLocal(sel))
	assert.True(t, tr.Used("a"))

	other := tr.Source(false, nil, nil)
	sel, err = tr.SelectOne(other, "a", traversal.PopNone)
	require.NoError(t, err)
	assert.False(t, tr.Node(sel).(*SelectOneNode).Keyed)

	_, err = tr.SelectOne(exp, "missing", traversal.PopNone)
	assert.Error(t, err)
}
