package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	r := &Result{Queries: []QueryResult{
		{Name: "a", Explain: "output=1\n1 SOURCE_VERTEX\n"},
		{Name: "b", Error: "UNSUPPORTED_FEATURE"},
	}}
	want := "== a\noutput=1\n1 SOURCE_VERTEX\n\n== b\nerror: UNSUPPORTED_FEATURE\n"
	assert.Equal(t, want, string(Snapshot(r)))
}

func TestGoldenPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "modern.golden"),
		GoldenPath(filepath.Join("scenarios", "modern.yaml")))
}

func TestWriteAndCompareGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden", "x.golden")
	r := &Result{Queries: []QueryResult{{Name: "a", Explain: "output=1\n"}}}

	_, err := CompareGolden(path, r)
	require.Error(t, err)

	require.NoError(t, WriteGolden(path, r))
	match, err := CompareGolden(path, r)
	require.NoError(t, err)
	assert.True(t, match)

	r.Queries[0].Explain = "output=2\n"
	match, err = CompareGolden(path, r)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestCheckedInGoldenMatches(t *testing.T) {
	scenarioFile := filepath.Join("testdata", "scenarios", "modern.yaml")
	result, err := RunWithGolden(t, scenarioFile)
	require.NoError(t, err)

	match, err := CompareGolden(GoldenPath(scenarioFile), result)
	require.NoError(t, err)
	assert.True(t, match)
}
