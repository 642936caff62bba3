package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modernFile = filepath.Join("testdata", "scenarios", "modern.yaml")

func loadModern(t *testing.T) *Scenario {
	t.Helper()
	s, err := LoadScenario(modernFile)
	require.NoError(t, err)
	return s
}

func TestRunModern(t *testing.T) {
	result, err := Run(context.Background(), loadModern(t))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Queries, 4)

	friends, ok := result.Query("friends")
	require.True(t, ok)
	assert.Equal(t, 3, friends.Vertices)
	assert.Len(t, friends.Fingerprint, 64)
	assert.Empty(t, friends.Error)

	scripted, ok := result.Query("scripted")
	require.True(t, ok)
	assert.Equal(t, "UNSUPPORTED_FEATURE", scripted.Error)
	assert.Empty(t, scripted.Fingerprint)
	assert.Contains(t, scripted.Message, "math")
}

func TestRunWithGolden(t *testing.T) {
	result, err := RunWithGolden(t, modernFile)
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestRunDeterministic(t *testing.T) {
	s := loadModern(t)
	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, Snapshot(first), Snapshot(second))
	for i := range first.Queries {
		assert.Equal(t, first.Queries[i].Fingerprint, second.Queries[i].Fingerprint)
	}
}

func TestRunReportsFailedExpectations(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)

	s, err := ParseScenario([]byte(`
name: failing
schema: schema.yaml
queries: q.cue
expect:
  - query: all
    assertions:
      - type: vertex_count
        count: 2
      - type: output_op
        op: COUNT
  - query: broken
    assertions:
      - type: vertex_count
        count: 1
  - query: absent
`), dir)
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "Expected: 2 vertices")
	assert.Contains(t, result.Errors[0], "Actual: 1 vertices")
	assert.Contains(t, result.Errors[0], "1 SOURCE_VERTEX")
	assert.Contains(t, result.Errors[1], "Expected: COUNT")
	assert.Contains(t, result.Errors[2], `query "broken": unexpected compile error`)
	assert.Contains(t, result.Errors[3], `query "absent" not found`)
}

func TestRunUnexpectedSuccess(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)

	s, err := ParseScenario([]byte(`
name: wrong_error
schema: schema.yaml
queries: q.cue
expect:
  - query: all
    error: UNRESOLVED_LABEL
  - query: broken
    error: SCHEMA_LOOKUP_FAILURE
`), dir)
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Actual: compiled")
	assert.Contains(t, result.Errors[0], "Plan:")
	assert.Contains(t, result.Errors[1], "UNSUPPORTED_FEATURE")
}

func TestRunMissingQueriesFile(t *testing.T) {
	s := loadModern(t)
	s.Queries = filepath.Join(t.TempDir(), "gone.cue")
	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load queries")
}
