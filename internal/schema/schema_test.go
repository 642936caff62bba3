package schema

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/valuetype"
)

const sampleYAML = `
labels:
  person: 1
  software: 2
  knows: 3
properties:
  name: {id: 1, types: [string]}
  age: {id: 2, types: [int]}
  weight: {id: 3, types: [double, float]}
`

func TestStaticLookups(t *testing.T) {
	s := NewStatic().
		AddLabel("person", 1).
		AddProperty("age", 2, valuetype.Int)

	id, err := s.ElementLabelID("person")
	require.NoError(t, err)
	assert.Equal(t, int32(1), id)

	id, err = s.PropertyID("age")
	require.NoError(t, err)
	assert.Equal(t, int32(2), id)

	types, err := s.PropertyDataTypes("age")
	require.NoError(t, err)
	assert.Equal(t, []valuetype.DataType{valuetype.Int}, types)
}

func TestStaticMissingNames(t *testing.T) {
	s := NewStatic()

	_, err := s.PropertyID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `property "nope"`)

	_, err = s.ElementLabelID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `label "nope"`)

	_, err = s.PropertyDataTypes("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	s, err := LoadYAML(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"knows", "person", "software"}, s.Labels())
	assert.Equal(t, []string{"age", "name", "weight"}, s.Properties())

	types, err := s.PropertyDataTypes("weight")
	require.NoError(t, err)
	assert.Equal(t, []valuetype.DataType{valuetype.Double, valuetype.Float}, types)
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "lables:\n  person: 1\n",
			want: "field lables not found",
		},
		{
			name: "unknown data type",
			yaml: "properties:\n  name: {id: 1, types: [text]}\n",
			want: `unknown data type "text"`,
		},
		{
			name: "duplicate label id",
			yaml: "labels:\n  a: 1\n  b: 1\n",
			want: "share id 1",
		},
		{
			name: "duplicate property id",
			yaml: "properties:\n  a: {id: 4}\n  b: {id: 4}\n",
			want: "share id 4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadYAMLMissingFile(t *testing.T) {
	_, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read schema file")
}

// countingSchema counts lookups that reach it.
type countingSchema struct {
	Schema
	mu    sync.Mutex
	calls int
}

func (c *countingSchema) PropertyID(name string) (int32, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Schema.PropertyID(name)
}

func TestCachedMemoizesHits(t *testing.T) {
	inner := &countingSchema{Schema: NewStatic().AddProperty("name", 1, valuetype.String)}
	c := NewCached(inner)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := c.PropertyID("name")
			assert.NoError(t, err)
			assert.Equal(t, int32(1), id)
		}()
	}
	wg.Wait()

	before := inner.calls
	_, err := c.PropertyID("name")
	require.NoError(t, err)
	assert.Equal(t, before, inner.calls, "a cached hit must not reach the inner schema")
	assert.LessOrEqual(t, inner.calls, 8)
}

func TestCachedDoesNotCacheMisses(t *testing.T) {
	inner := &countingSchema{Schema: NewStatic()}
	c := NewCached(inner)

	for range 2 {
		_, err := c.PropertyID("missing")
		assert.True(t, errors.Is(err, ErrNotFound))
	}
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, c.Len())
}
