package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gplan/internal/compiler"
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
)

// Scenario is one conformance case: a schema, a query file and the
// expected outcome of compiling each query.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Schema is the YAML schema file.
	Schema string `yaml:"schema"`

	// Queries is the CUE file of traversal documents.
	Queries string `yaml:"queries"`

	// Options override the compiler defaults. Zero fields keep them.
	Options compiler.Options `yaml:"options,omitempty"`

	Expect []Expectation `yaml:"expect"`
}

// Expectation is the expected outcome for one query of the file.
type Expectation struct {
	Query string `yaml:"query"`

	// Error is the expected compile error code. A query expected to fail
	// takes no assertions.
	Error string `yaml:"error,omitempty"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion checks one property of a compiled plan.
type Assertion struct {
	Type  string   `yaml:"type"`
	Op    string   `yaml:"op,omitempty"`
	Ops   []string `yaml:"ops,omitempty"`
	Count int      `yaml:"count,omitempty"`
	Text  string   `yaml:"text,omitempty"`
}

// Assertion types.
const (
	AssertVertexCount     = "vertex_count"
	AssertOpCount         = "op_count"
	AssertContainsOp      = "contains_op"
	AssertOutputOp        = "output_op"
	AssertOpOrder         = "op_order"
	AssertExplainContains = "explain_contains"
)

var errorCodes = map[string]bool{
	string(ir.CodeUnresolvedLabel):     true,
	string(ir.CodeUnsupportedFeature):  true,
	string(ir.CodeMalformedTraversal):  true,
	string(ir.CodeSchemaLookupFailure): true,
}

// LoadScenario reads a scenario file and resolves its paths against the
// directory of the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses a scenario. Relative paths are joined to baseDir.
// Unknown fields are errors.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	s.Schema = resolve(baseDir, s.Schema)
	s.Queries = resolve(baseDir, s.Queries)

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if s.Queries == "" {
		return fmt.Errorf("queries is required")
	}
	for _, path := range []string{s.Schema, s.Queries} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
	}
	if s.Options.DefaultMaxLoops < 0 || s.Options.MaxDepth < 0 {
		return fmt.Errorf("options must not be negative")
	}
	if len(s.Expect) == 0 {
		return fmt.Errorf("expect list is required and must be non-empty")
	}

	seen := make(map[string]bool)
	for i, e := range s.Expect {
		if e.Query == "" {
			return fmt.Errorf("expect[%d]: query is required", i)
		}
		if seen[e.Query] {
			return fmt.Errorf("expect[%d]: duplicate query %q", i, e.Query)
		}
		seen[e.Query] = true

		if e.Error != "" {
			if !errorCodes[e.Error] {
				return fmt.Errorf("expect[%d]: unknown error code %q", i, e.Error)
			}
			if len(e.Assertions) > 0 {
				return fmt.Errorf("expect[%d]: a failing query takes no assertions", i)
			}
			continue
		}
		for j, a := range e.Assertions {
			if err := validateAssertion(a); err != nil {
				return fmt.Errorf("expect[%d].assertions[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertVertexCount:
		if a.Count < 1 {
			return fmt.Errorf("count must be positive for %s", a.Type)
		}
	case AssertOpCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for %s", a.Type)
		}
		return validOp(a.Type, a.Op)
	case AssertContainsOp, AssertOutputOp:
		return validOp(a.Type, a.Op)
	case AssertOpOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("ops list is required for %s", a.Type)
		}
		for _, op := range a.Ops {
			if err := validOp(a.Type, op); err != nil {
				return err
			}
		}
	case AssertExplainContains:
		if a.Text == "" {
			return fmt.Errorf("text is required for %s", a.Type)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func validOp(typ, name string) error {
	if name == "" {
		return fmt.Errorf("op is required for %s", typ)
	}
	if _, ok := plan.ParseOperatorKind(name); !ok {
		return fmt.Errorf("unknown operator %q", name)
	}
	return nil
}
