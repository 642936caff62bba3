package valuetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeCollapsesAgreeingTypes(t *testing.T) {
	got := Merge(Vertex, Vertex, Vertex)
	assert.Equal(t, Vertex, got)
}

func TestMergeDistinctTypes(t *testing.T) {
	got := Merge(Vertex, Scalar(String), Vertex, Edge)
	v, ok := got.(VariantType)
	require.True(t, ok)
	assert.Equal(t, "variant<vertex|string|edge>", v.String())
}

func TestMergeFlattensVariants(t *testing.T) {
	inner := Merge(Vertex, Edge)
	got := Merge(inner, Scalar(Long), Edge)
	assert.Equal(t, "variant<vertex|edge|long>", got.String())
}

func TestMergeEmptyAndNil(t *testing.T) {
	assert.Equal(t, Scalar(Unknown), Merge())
	assert.Equal(t, Scalar(Unknown), Merge(nil))
}

func TestCompositeStrings(t *testing.T) {
	assert.Equal(t, "list<vertex>", List(Vertex).String())
	assert.Equal(t, "map<string,long>", Map(Scalar(String), Scalar(Long)).String())
	assert.Equal(t, "entry<string,long>", Unfold(Map(Scalar(String), Scalar(Long))).String())
	assert.True(t, Equal(List(Edge), ListType{Elem: EdgeType{}}))
	assert.False(t, Equal(List(Edge), List(Vertex)))
}

func TestIsElement(t *testing.T) {
	assert.True(t, IsElement(Vertex))
	assert.True(t, IsElement(Merge(Vertex, Edge)))
	assert.False(t, IsElement(Merge(Vertex, Scalar(Int))))
	assert.False(t, IsElement(List(Vertex)))
}

func TestUnfold(t *testing.T) {
	assert.Equal(t, Vertex, Unfold(List(Vertex)))
	assert.Equal(t, Scalar(Int), Unfold(Scalar(Int)))
	assert.Equal(t, "variant<vertex|long>", Unfold(Merge(List(Vertex), Scalar(Long))).String())
}

func TestDataTypes(t *testing.T) {
	d, ok := ParseDataType(" Long ")
	require.True(t, ok)
	assert.Equal(t, Long, d)
	assert.True(t, d.Numeric())
	assert.False(t, String.Numeric())

	_, ok = ParseDataType("decimal")
	assert.False(t, ok)

	assert.Equal(t, Scalar(Int), NumericResult(Scalar(Int)))
	assert.Equal(t, Scalar(Double), NumericResult(Scalar(String)))
}
