package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/traversal"
)

var (
	V    = traversal.V
	anon = traversal.Anon
)

func decode(t *testing.T, src string) *Document {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("query.cue"))
	doc, err := Decode(v)
	require.NoError(t, err)
	return doc
}

func decodeErr(t *testing.T, src string) *DecodeError {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("query.cue"))
	_, err := Decode(v)
	require.Error(t, err)
	var de *DecodeError
	require.True(t, errors.As(err, &de), "got %T: %v", err, err)
	return de
}

func TestDecodeChain(t *testing.T) {
	doc := decode(t, `
name: "friends"
config: {timeout: 30}
traversal: [
	{step: "V"},
	{step: "hasLabel", args: ["person"]},
	{step: "as", args: ["a"]},
	{step: "out", args: ["knows"]},
	{step: "has", key: "age", pred: {op: "gt", value: 30}},
	{step: "where", traversal: [{step: "out", args: ["created"]}]},
	{step: "select", args: ["a"]},
	{step: "values", args: ["name"]},
	{step: "limit", args: [10]},
]
`)
	want := V().With("timeout", int64(30)).HasLabel("person").As("a").
		Out("knows").Has("age", traversal.Gt(30)).
		Where(anon().Out("created")).Select("a").Values("name").Limit(10)

	assert.Equal(t, "friends", doc.Name)
	assert.Equal(t, want.String(), doc.Traversal.String())
	assert.Equal(t, map[string]ir.IRValue{"timeout": ir.IRInt(30)}, doc.Config)
	require.IsType(t, &traversal.ConfigStep{}, doc.Traversal.Steps[1], "config follows the source")
}

func TestDecodeLoopsAndBranches(t *testing.T) {
	doc := decode(t, `
traversal: [
	{step: "V", args: [1]},
	{step: "repeat", traversal: [{step: "out"}]},
	{step: "times", args: [3]},
	{step: "emit"},
	{step: "choose", traversal: [{step: "label"}]},
	{step: "option", pick: "person", traversal: [{step: "in", args: ["knows"]}]},
	{step: "option", token: "none", traversal: [{step: "identity"}]},
	{step: "order"},
	{step: "by", key: "age", order: "desc"},
	{step: "union", traversals: [[{step: "id"}], [{step: "count", local: true}]]},
]
`)
	want := V(int64(1)).Repeat(anon().Out()).Times(3).Emit().
		Choose(anon().Label()).
		Option("person", anon().In("knows")).
		Option(traversal.PickNone, anon().Identity()).
		Order().By("age", traversal.Desc).
		Union(anon().ID(), anon().CountLocal())

	assert.Equal(t, want.String(), doc.Traversal.String())
	assert.Empty(t, doc.Name)
	assert.Nil(t, doc.Config)
}

func TestDecodeChooseIf(t *testing.T) {
	doc := decode(t, `
traversal: [
	{step: "V"},
	{step: "choose", traversals: [
		[{step: "out", args: ["knows"]}],
		[{step: "out", args: ["created"]}],
		[{step: "in"}],
	]},
]
`)
	want := V().ChooseIf(anon().Out("knows"), anon().Out("created"), anon().In())
	assert.Equal(t, want.String(), doc.Traversal.String())
}

func TestDecodePredicates(t *testing.T) {
	doc := decode(t, `
traversal: [
	{step: "V"},
	{step: "has", key: "name", value: "marko"},
	{step: "has", key: "age", pred: {op: "within", value: [27, 29]}},
	{step: "has", key: "age", pred: {op: "between", value: [20, 40]}},
	{step: "has", key: "age", pred: {or: [{op: "lt", value: 10}, {op: "gte", value: 60}]}},
	{step: "as", args: ["a"]},
	{step: "out"},
	{step: "where", start: "a", pred: {op: "neq", value: "a"}},
	{step: "is", value: null},
]
`)
	want := V().
		Has("name", "marko").
		Has("age", traversal.Within(27, 29)).
		Has("age", traversal.Between(20, 40)).
		Has("age", traversal.OrP(traversal.Lt(10), traversal.Gte(60))).
		As("a").Out().
		WhereKeyP("a", traversal.Neq("a")).
		Is(nil)
	assert.Equal(t, want.String(), doc.Traversal.String())
}

func TestDecodeWithinSingleValue(t *testing.T) {
	doc := decode(t, `traversal: [{step: "V"}, {step: "has", key: "age", pred: {op: "within", value: 29}}]`)
	has := doc.Traversal.Steps[1].(*traversal.HasStep)
	assert.Equal(t, &traversal.Compare{Op: ir.OpWithin, Value: ir.IRArray{ir.IRInt(29)}}, has.Containers[0].Pred)
}

func TestDecodeOpaqueStep(t *testing.T) {
	doc := decode(t, `traversal: [{step: "V"}, {step: "math", detail: "_ + 1"}]`)
	s, ok := doc.Traversal.Steps[1].(*traversal.OpaqueStep)
	require.True(t, ok)
	assert.Equal(t, traversal.StepMath, s.Op)
	assert.Equal(t, "_ + 1", s.Detail)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		line  int
	}{
		{"missing traversal", `name: "x"`, "traversal", 0},
		{"empty traversal", `traversal: []`, "traversal", 1},
		{"not a list", `traversal: {step: "V"}`, "traversal", 1},
		{"unknown step", "traversal: [\n\t{step: \"V\"},\n\t{step: \"teleport\"},\n]", "traversal[1].step", 3},
		{"missing step", `traversal: [{name: "V"}]`, "traversal[0]", 1},
		{"range bounds", `traversal: [{step: "V"}, {step: "range", args: [1]}]`, "traversal[1]", 1},
		{"has without predicate", `traversal: [{step: "V"}, {step: "has", key: "age"}]`, "traversal[1]", 1},
		{"unknown op", `traversal: [{step: "V"}, {step: "is", pred: {op: "near", value: 1}}]`, "traversal[1].pred.op", 1},
		{"between arity", `traversal: [{step: "V"}, {step: "is", pred: {op: "between", value: [1]}}]`, "traversal[1].pred.value", 1},
		{"option without pick", `traversal: [{step: "V"}, {step: "choose", traversal: [{step: "label"}]}, {step: "option", traversal: []}]`, "traversal[2]", 1},
		{"by with two sources", `traversal: [{step: "V"}, {step: "order"}, {step: "by", key: "age", token: "id"}]`, "traversal[2]", 1},
		{"unknown pop", `traversal: [{step: "V"}, {step: "select", args: ["a"], pop: "middle"}]`, "traversal[1]", 1},
		{"zero times", `traversal: [{step: "V"}, {step: "repeat", traversal: [{step: "out"}]}, {step: "times", args: [0]}]`, "traversal[2]", 1},
		{"negative times", `traversal: [{step: "V"}, {step: "repeat", traversal: [{step: "out"}]}, {step: "times", args: [-2]}]`, "traversal[2]", 1},
		{"until without repeat", `traversal: [{step: "V"}, {step: "until", traversal: [{step: "out"}]}]`, "traversal", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := decodeErr(t, tt.src)
			assert.Equal(t, tt.field, de.Field, de.Error())
			if tt.line > 0 {
				require.True(t, de.Pos.IsValid(), de.Error())
				assert.Equal(t, tt.line, de.Pos.Line(), de.Error())
				assert.Contains(t, de.Error(), "query.cue:")
			}
		})
	}
}

func TestDecodeCUEError(t *testing.T) {
	v := cuecontext.New().CompileString("traversal: [{step: \"V\"},", cue.Filename("query.cue"))
	_, err := Decode(v)
	require.Error(t, err)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "cue", de.Field)
	assert.True(t, de.Pos.IsValid())
}

func TestDecodeErrorString(t *testing.T) {
	e := &DecodeError{Field: "traversal", Message: "traversal is required"}
	assert.Equal(t, "traversal: traversal is required", e.Error())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	single := filepath.Join(dir, "friends.cue")
	require.NoError(t, os.WriteFile(single, []byte(`traversal: [{step: "V"}, {step: "out"}]`), 0o644))
	docs, err := LoadFile(single)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "friends", docs[0].Name)
	assert.Equal(t, V().Out().String(), docs[0].Traversal.String())

	multi := filepath.Join(dir, "many.cue")
	require.NoError(t, os.WriteFile(multi, []byte(`
queries: {
	first: traversal: [{step: "V"}, {step: "limit", args: [1]}]
	named: {
		name: "renamed"
		traversal: [{step: "E"}]
	}
}
`), 0o644))
	docs, err = LoadFile(multi)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "first", docs[0].Name)
	assert.Equal(t, "renamed", docs[1].Name)
	assert.Equal(t, traversal.E().String(), docs[1].Traversal.String())

	empty := filepath.Join(dir, "empty.cue")
	require.NoError(t, os.WriteFile(empty, []byte(`other: 1`), 0o644))
	_, err = LoadFile(empty)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)
}
