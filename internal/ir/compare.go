package ir

import "fmt"

// CompareOp is a comparison operator shared by traversal predicates and the
// structured comparisons attached to filter vertices.
type CompareOp uint8

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpWithin
	OpWithout
	// Between is inclusive-low, exclusive-high; operand is a two element array.
	OpBetween
	OpInside
	OpOutside
	OpStartsWith
	OpEndsWith
	OpContaining
	OpNotContaining
	OpRegex
	numCompareOps
)

var compareOpNames = [numCompareOps]string{
	OpEq:            "eq",
	OpNeq:           "neq",
	OpLt:            "lt",
	OpLte:           "lte",
	OpGt:            "gt",
	OpGte:           "gte",
	OpWithin:        "within",
	OpWithout:       "without",
	OpBetween:       "between",
	OpInside:        "inside",
	OpOutside:       "outside",
	OpStartsWith:    "startingWith",
	OpEndsWith:      "endingWith",
	OpContaining:    "containing",
	OpNotContaining: "notContaining",
	OpRegex:         "regex",
}

func (op CompareOp) String() string {
	if op < numCompareOps {
		return compareOpNames[op]
	}
	return fmt.Sprintf("CompareOp(%d)", op)
}

// MarshalText encodes op by name.
func (op CompareOp) MarshalText() ([]byte, error) {
	if op >= numCompareOps {
		return nil, fmt.Errorf("invalid compare op %d", op)
	}
	return []byte(op.String()), nil
}

// UnmarshalText decodes an operator name.
func (op *CompareOp) UnmarshalText(text []byte) error {
	parsed, ok := ParseCompareOp(string(text))
	if !ok {
		return fmt.Errorf("unknown compare op %q", text)
	}
	*op = parsed
	return nil
}

// ParseCompareOp maps an operator name (as written in traversal documents)
// back to its CompareOp.
func ParseCompareOp(name string) (CompareOp, bool) {
	for i, n := range compareOpNames {
		if n == name {
			return CompareOp(i), true
		}
	}
	return 0, false
}

// Negate returns the operator with the opposite truth value, if one exists.
func (op CompareOp) Negate() (CompareOp, bool) {
	switch op {
	case OpEq:
		return OpNeq, true
	case OpNeq:
		return OpEq, true
	case OpLt:
		return OpGte, true
	case OpGte:
		return OpLt, true
	case OpGt:
		return OpLte, true
	case OpLte:
		return OpGt, true
	case OpWithin:
		return OpWithout, true
	case OpWithout:
		return OpWithin, true
	case OpContaining:
		return OpNotContaining, true
	case OpNotContaining:
		return OpContaining, true
	case OpInside:
		return OpOutside, true
	default:
		return 0, false
	}
}

// IsRange reports whether op orders its operand (lt/gt family and intervals).
func (op CompareOp) IsRange() bool {
	switch op {
	case OpLt, OpLte, OpGt, OpGte, OpBetween, OpInside, OpOutside:
		return true
	}
	return false
}

// IsText reports whether op is a string matching operator.
func (op CompareOp) IsText() bool {
	switch op {
	case OpStartsWith, OpEndsWith, OpContaining, OpNotContaining, OpRegex:
		return true
	}
	return false
}
