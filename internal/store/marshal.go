package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/gplan/internal/plan"
)

// marshalPlan converts a plan to compact JSON TEXT for storage.
// Uses json.Encoder with HTML escaping disabled so string literals in
// comparisons are stored as written.
func marshalPlan(lp *plan.LogicalPlan) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(lp); err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}
