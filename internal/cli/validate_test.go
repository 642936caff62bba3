package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unknownNamesCUE = `
queries: {
	robots: traversal: [
		{step: "V"},
		{step: "hasLabel", args: ["robot"]},
		{step: "has", key: "height", value: 3},
	]
}
`

func TestValidate_Valid(t *testing.T) {
	_, schemaPath, queriesPath := compileFixture(t)

	out, _, err := execute(t, "validate", queriesPath)
	require.NoError(t, err)
	assert.Equal(t, "✓ All 2 query(s) valid\n", out)

	out, _, err = execute(t, "validate", "--schema", schemaPath, queriesPath)
	require.NoError(t, err)
	assert.Equal(t, "✓ All 2 query(s) valid\n", out)
}

func TestValidate_UnsupportedStep(t *testing.T) {
	dir, _, _ := compileFixture(t)
	scripted := writeFixture(t, dir, "scripted.cue", scriptedQueryCUE)

	out, _, err := execute(t, "validate", scripted)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "scripted ("+scripted+")")
	assert.Contains(t, out, "[E101] math: step math is not supported")
}

func TestValidate_SchemaNames(t *testing.T) {
	dir, schemaPath, _ := compileFixture(t)
	robots := writeFixture(t, dir, "robots.cue", unknownNamesCUE)

	// Without a schema, names are not checked.
	_, _, err := execute(t, "validate", robots)
	require.NoError(t, err)

	out, _, err := execute(t, "--format", "json", "validate", "--schema", schemaPath, robots)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Queries)

	codes := make([]string, len(resp.Data.Findings))
	for i, f := range resp.Data.Findings {
		codes[i] = f.Code
		assert.Equal(t, "robots", f.Query)
	}
	assert.Equal(t, []string{"E103", "E104"}, codes)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E103", resp.Error.Code)
	assert.Equal(t, `unknown property "height"`, resp.Error.Message)
}

func TestValidate_LoadError(t *testing.T) {
	dir := t.TempDir()
	broken := writeFixture(t, dir, "broken.cue", "queries: {\n")

	out, _, err := execute(t, "validate", broken)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "✗ Loading failed")
}
