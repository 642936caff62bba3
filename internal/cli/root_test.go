package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchemaYAML = `
labels:
  person: 1
  software: 2
  knows: 3
  created: 4
properties:
  name: {id: 1, types: [string]}
  age: {id: 2, types: [int]}
`

const testQueriesCUE = `
queries: {
	limited: traversal: [
		{step: "V"},
		{step: "limit", args: [5]},
	]
	friends: traversal: [
		{step: "V"},
		{step: "hasLabel", args: ["person"]},
		{step: "out", args: ["knows"]},
		{step: "values", args: ["name"]},
	]
}
`

// writeFixture writes name with content into dir and returns its path.
func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "gplan", cmd.Use)
	assert.Contains(t, cmd.Long, "logical dataflow plans")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"compile"}, {"explain"}, {"validate"}, {"steps"},
		{"schema", "import"}, {"schema", "show"},
		{"plans"}, {"plans", "show"}, {"test"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compile, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	for _, name := range []string{"schema", "db", "config", "metrics", "jobs", "output", "record"} {
		assert.NotNil(t, compile.Flags().Lookup(name), name)
	}
	assert.Equal(t, "o", compile.Flags().Lookup("output").Shorthand)

	explain, _, err := cmd.Find([]string{"explain"})
	require.NoError(t, err)
	assert.Nil(t, explain.Flags().Lookup("record"))
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "steps")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}
