package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixtures creates a schema and a query file in dir.
func writeFixtures(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.yaml"), []byte(`
labels:
  person: 1
  knows: 3
properties:
  name: {id: 1, types: [string]}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "q.cue"), []byte(`
queries: {
	all: traversal: [{step: "V"}, {step: "limit", args: [5]}]
	broken: traversal: [{step: "V"}, {step: "math", detail: "_"}]
}
`), 0o644))
}

func TestLoadScenarioValidFile(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "modern.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "modern", s.Name)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "schema.yaml"), s.Schema)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "modern.cue"), s.Queries)
	require.Len(t, s.Expect, 4)
	assert.Equal(t, "friends", s.Expect[1].Query)
	assert.Len(t, s.Expect[1].Assertions, 6)
	assert.Equal(t, "UNSUPPORTED_FEATURE", s.Expect[2].Error)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenarioOptions(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)

	s, err := ParseScenario([]byte(`
name: opts
schema: schema.yaml
queries: q.cue
options:
  default_max_loops: 4
  max_depth: 8
expect:
  - query: all
`), dir)
	require.NoError(t, err)
	assert.Equal(t, int64(4), s.Options.DefaultMaxLoops)
	assert.Equal(t, 8, s.Options.MaxDepth)
}

func TestParseScenarioInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "schema: schema.yaml\nqueries: q.cue\nexpect: [{query: all}]", "name is required"},
		{"missing schema", "name: x\nqueries: q.cue\nexpect: [{query: all}]", "schema is required"},
		{"missing queries", "name: x\nschema: schema.yaml\nexpect: [{query: all}]", "queries is required"},
		{"absent file", "name: x\nschema: nope.yaml\nqueries: q.cue\nexpect: [{query: all}]", "file not found"},
		{"no expectations", "name: x\nschema: schema.yaml\nqueries: q.cue", "expect list is required"},
		{"unknown field", "name: x\nschema: schema.yaml\nqueries: q.cue\nexpects: []", "failed to parse YAML"},
		{"duplicate query", "name: x\nschema: schema.yaml\nqueries: q.cue\nexpect: [{query: all}, {query: all}]", "duplicate query"},
		{"unknown code", "name: x\nschema: schema.yaml\nqueries: q.cue\nexpect: [{query: all, error: BOOM}]", "unknown error code"},
		{"error with assertions", "name: x\nschema: schema.yaml\nqueries: q.cue\nexpect: [{query: all, error: UNSUPPORTED_FEATURE, assertions: [{type: vertex_count, count: 1}]}]", "takes no assertions"},
		{"unknown assertion", "name: x\nschema: schema.yaml\nqueries: q.cue\nexpect: [{query: all, assertions: [{type: vibes}]}]", "unknown assertion type"},
		{"unknown operator", "name: x\nschema: schema.yaml\nqueries: q.cue\nexpect: [{query: all, assertions: [{type: contains_op, op: TELEPORT}]}]", "unknown operator"},
		{"zero vertex count", "name: x\nschema: schema.yaml\nqueries: q.cue\nexpect: [{query: all, assertions: [{type: vertex_count}]}]", "count must be positive"},
		{"empty op order", "name: x\nschema: schema.yaml\nqueries: q.cue\nexpect: [{query: all, assertions: [{type: op_order}]}]", "ops list is required"},
		{"negative options", "name: x\nschema: schema.yaml\nqueries: q.cue\noptions: {max_depth: -1}\nexpect: [{query: all}]", "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
