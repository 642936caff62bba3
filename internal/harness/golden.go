package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the plans of a run as deterministic text: one block per
// query in file order, holding its explain listing or its error code.
// Fingerprints are left out so a snapshot reads as plain plan text.
func Snapshot(r *Result) []byte {
	var buf bytes.Buffer
	for i, q := range r.Queries {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "== %s\n", q.Name)
		if q.Error != "" {
			fmt.Fprintf(&buf, "error: %s\n", q.Error)
			continue
		}
		buf.WriteString(q.Explain)
	}
	return buf.Bytes()
}

// GoldenPath returns the golden file of a scenario file:
// golden/<name>.golden next to it.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// WriteGolden writes the snapshot of r to path, creating its directory.
func WriteGolden(path string, r *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, Snapshot(r), 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the snapshot of r matches the file at path.
func CompareGolden(path string, r *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(want, Snapshot(r)), nil
}

// RunWithGolden loads and runs the scenario in scenarioFile and compares
// its snapshot against the scenario's golden file, the same one the test
// command checks. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenarioFile string) (*Result, error) {
	t.Helper()

	s, err := LoadScenario(scenarioFile)
	if err != nil {
		return nil, err
	}
	result, err := Run(context.Background(), s)
	if err != nil {
		return nil, err
	}

	path := GoldenPath(scenarioFile)
	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Dir(path)),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, strings.TrimSuffix(filepath.Base(path), ".golden"), Snapshot(result))
	return result, nil
}
