package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_ImportAndShow(t *testing.T) {
	dir, schemaPath, _ := compileFixture(t)
	db := filepath.Join(dir, "plans.db")

	out, _, err := execute(t, "schema", "import", "--db", db, schemaPath)
	require.NoError(t, err)
	assert.Equal(t, "✓ Imported 4 label(s), 2 property(s)\n", out)

	out, _, err = execute(t, "schema", "show", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, `Labels:
  created: 4
  knows: 3
  person: 1
  software: 2
Properties:
  age: 2 [int]
  name: 1 [string]
`, out)
}

func TestSchema_ShowJSON(t *testing.T) {
	dir, schemaPath, _ := compileFixture(t)
	db := filepath.Join(dir, "plans.db")

	out, _, err := execute(t, "--format", "json", "schema", "import", "--db", db, schemaPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "ok", "data": {"labels": 4, "properties": 2}}`, out)

	out, _, err = execute(t, "--format", "json", "schema", "show", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data SchemaListing `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Labels, 4)
	assert.Equal(t, SchemaLabel{Name: "knows", ID: 3}, resp.Data.Labels[1])
	assert.Equal(t, []SchemaProperty{
		{Name: "age", ID: 2, Types: []string{"int"}},
		{Name: "name", ID: 1, Types: []string{"string"}},
	}, resp.Data.Properties)
}

func TestSchema_ShowEmptyCatalog(t *testing.T) {
	db := filepath.Join(t.TempDir(), "plans.db")

	out, _, err := execute(t, "schema", "show", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "Labels:\nProperties:\n", out)
}

func TestSchema_Errors(t *testing.T) {
	dir, schemaPath, _ := compileFixture(t)

	out, _, err := execute(t, "schema", "show")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E009]: --db is required")

	db := filepath.Join(dir, "plans.db")
	out, _, err = execute(t, "schema", "import", "--db", db, filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, out, "Error [E008]")

	_, _, err = execute(t, "schema", "import", "--db", db, schemaPath)
	require.NoError(t, err)
}
