package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/valuetype"
)

func testSchema() *schema.Static {
	return schema.NewStatic().
		AddLabel("person", 1).
		AddLabel("software", 2).
		AddLabel("knows", 3).
		AddProperty("name", 1, valuetype.String).
		AddProperty("age", 2, valuetype.Int, valuetype.Long)
}

func TestImportSchemaLookups(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.ImportSchema(context.Background(), testSchema()))

	id, err := s.ElementLabelID("knows")
	require.NoError(t, err)
	assert.Equal(t, int32(3), id)

	id, err = s.PropertyID("age")
	require.NoError(t, err)
	assert.Equal(t, int32(2), id)

	types, err := s.PropertyDataTypes("age")
	require.NoError(t, err)
	assert.Equal(t, []valuetype.DataType{valuetype.Int, valuetype.Long}, types)
}

func TestCatalogNotFound(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.ImportSchema(context.Background(), testSchema()))

	_, err := s.ElementLabelID("robot")
	assert.True(t, errors.Is(err, schema.ErrNotFound))

	_, err = s.PropertyID("height")
	assert.True(t, errors.Is(err, schema.ErrNotFound))

	_, err = s.PropertyDataTypes("height")
	assert.True(t, errors.Is(err, schema.ErrNotFound))
}

func TestImportSchemaOverwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportSchema(ctx, testSchema()))

	update := schema.NewStatic().AddProperty("age", 2, valuetype.Double)
	require.NoError(t, s.ImportSchema(ctx, update))

	types, err := s.PropertyDataTypes("age")
	require.NoError(t, err)
	assert.Equal(t, []valuetype.DataType{valuetype.Double}, types)

	// Names not in the update are kept.
	_, err = s.ElementLabelID("person")
	assert.NoError(t, err)
}

func TestImportSchemaIDConflictRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportSchema(ctx, testSchema()))

	clash := schema.NewStatic().
		AddLabel("aaa", 9).
		AddLabel("robot", 1)
	require.Error(t, s.ImportSchema(ctx, clash))

	_, err := s.ElementLabelID("aaa")
	assert.True(t, errors.Is(err, schema.ErrNotFound), "the failed import left no rows")
}

func TestStaticRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := testSchema()
	require.NoError(t, s.ImportSchema(ctx, want))

	got, err := s.Static(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Labels(), got.Labels())
	assert.Equal(t, want.Properties(), got.Properties())
	for _, name := range want.Properties() {
		wt, _ := want.PropertyDataTypes(name)
		gt, err := got.PropertyDataTypes(name)
		require.NoError(t, err)
		assert.Equal(t, wt, gt, name)
	}
}

func TestCachedOverStore(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.ImportSchema(context.Background(), testSchema()))

	c := schema.NewCached(s)
	for range 3 {
		id, err := c.PropertyID("name")
		require.NoError(t, err)
		assert.Equal(t, int32(1), id)
	}
	_, err := c.ElementLabelID("robot")
	assert.True(t, errors.Is(err, schema.ErrNotFound))
}
