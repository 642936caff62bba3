package traversal

import (
	"fmt"
	"strings"

	"github.com/roach88/gplan/internal/ir"
)

// Predicate is a sealed interface for step predicates (has, is, where).
// Only *Compare and *Connective implement it.
type Predicate interface {
	predicate()
	String() string
}

// Compare tests a value against a literal operand.
type Compare struct {
	Op    ir.CompareOp
	Value ir.IRValue
}

// Connective combines predicates with and/or.
type Connective struct {
	Or    bool
	Terms []Predicate
}

func (*Compare) predicate()    {}
func (*Connective) predicate() {}

func (c *Compare) String() string {
	return c.Op.String() + "(" + c.Value.String() + ")"
}

func (c *Connective) String() string {
	parts := make([]string, len(c.Terms))
	for i, t := range c.Terms {
		parts[i] = t.String()
	}
	join := "and"
	if c.Or {
		join = "or"
	}
	return join + "(" + strings.Join(parts, ",") + ")"
}

func cmp(op ir.CompareOp, v any) *Compare {
	return &Compare{Op: op, Value: ir.MustOf(v)}
}

// Eq matches values equal to v.
func Eq(v any) Predicate { return cmp(ir.OpEq, v) }

// Neq matches values not equal to v.
func Neq(v any) Predicate { return cmp(ir.OpNeq, v) }

// Lt matches values less than v.
func Lt(v any) Predicate { return cmp(ir.OpLt, v) }

// Lte matches values less than or equal to v.
func Lte(v any) Predicate { return cmp(ir.OpLte, v) }

// Gt matches values greater than v.
func Gt(v any) Predicate { return cmp(ir.OpGt, v) }

// Gte matches values greater than or equal to v.
func Gte(v any) Predicate { return cmp(ir.OpGte, v) }

// Within matches values contained in vs.
func Within(vs ...any) Predicate { return cmp(ir.OpWithin, vs) }

// Without matches values not contained in vs.
func Without(vs ...any) Predicate { return cmp(ir.OpWithout, vs) }

// Between matches lo <= v < hi.
func Between(lo, hi any) Predicate { return cmp(ir.OpBetween, []any{lo, hi}) }

// Inside matches lo < v < hi.
func Inside(lo, hi any) Predicate { return cmp(ir.OpInside, []any{lo, hi}) }

// Outside matches v < lo or v > hi.
func Outside(lo, hi any) Predicate { return cmp(ir.OpOutside, []any{lo, hi}) }

// StartingWith matches strings with the given prefix.
func StartingWith(s string) Predicate { return cmp(ir.OpStartsWith, s) }

// EndingWith matches strings with the given suffix.
func EndingWith(s string) Predicate { return cmp(ir.OpEndsWith, s) }

// Containing matches strings containing s.
func Containing(s string) Predicate { return cmp(ir.OpContaining, s) }

// NotContaining matches strings not containing s.
func NotContaining(s string) Predicate { return cmp(ir.OpNotContaining, s) }

// Regex matches strings against a regular expression.
func Regex(expr string) Predicate { return cmp(ir.OpRegex, expr) }

// AndP matches when all terms match.
func AndP(terms ...Predicate) Predicate { return &Connective{Terms: terms} }

// OrP matches when any term matches.
func OrP(terms ...Predicate) Predicate { return &Connective{Or: true, Terms: terms} }

// asPredicate turns a fluent argument into a predicate: predicates pass
// through, anything else becomes an equality test.
func asPredicate(v any) Predicate {
	if p, ok := v.(Predicate); ok {
		return p
	}
	return Eq(v)
}

// Token names a built-in element attribute usable where a property key is
// accepted (has, by, select tokens).
type Token uint8

const (
	TokenNone Token = iota
	TokenID
	TokenLabel
	TokenKey
	TokenValue
)

func (t Token) String() string {
	switch t {
	case TokenID:
		return "T.id"
	case TokenLabel:
		return "T.label"
	case TokenKey:
		return "T.key"
	case TokenValue:
		return "T.value"
	default:
		return ""
	}
}

// HasContainer is one comparison of a has-like step: either a token or a
// property key, tested with a predicate.
type HasContainer struct {
	Token Token
	Key   string
	Pred  Predicate
}

func (h HasContainer) String() string {
	target := h.Key
	if h.Token != TokenNone {
		target = h.Token.String()
	}
	return target + "." + h.Pred.String()
}

// Pop selects which binding of a multiply-bound label a select reads.
type Pop uint8

const (
	// PopNone means no explicit pop was given.
	PopNone Pop = iota
	PopFirst
	PopLast
	PopAll
	PopMixed
)

func (p Pop) String() string {
	switch p {
	case PopFirst:
		return "first"
	case PopLast:
		return "last"
	case PopAll:
		return "all"
	case PopMixed:
		return "mixed"
	default:
		return "none"
	}
}

// ParsePop maps a pop name to a Pop.
func ParsePop(name string) (Pop, bool) {
	for p := PopNone; p <= PopMixed; p++ {
		if p.String() == name {
			return p, true
		}
	}
	return PopNone, false
}

// Direction is the adjacency direction of vertex and edge-vertex steps.
type Direction uint8

const (
	Out Direction = iota
	In
	Both
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Both:
		return "both"
	default:
		return "out"
	}
}

// Order is the sort direction of an order() modulator.
type Order uint8

const (
	Asc Order = iota
	Desc
	Shuffle
)

func (o Order) String() string {
	switch o {
	case Desc:
		return "desc"
	case Shuffle:
		return "shuffle"
	default:
		return "asc"
	}
}

// By is a by() modulator. At most one of Token, Key and Traversal is set;
// all empty means identity.
type By struct {
	Token     Token
	Key       string
	Traversal *Traversal
	Order     Order
}

// IsIdentity reports whether the modulator reads the current value itself.
func (b By) IsIdentity() bool {
	return b.Token == TokenNone && b.Key == "" && b.Traversal == nil
}

func (b By) String() string {
	var s string
	switch {
	case b.Traversal != nil:
		s = b.Traversal.String()
	case b.Token != TokenNone:
		s = b.Token.String()
	case b.Key != "":
		s = fmt.Sprintf("%q", b.Key)
	}
	if b.Order != Asc {
		if s != "" {
			s += ","
		}
		s += b.Order.String()
	}
	return "by(" + s + ")"
}

// PickToken distinguishes literal option picks from the none/any options.
type PickToken uint8

const (
	PickValue PickToken = iota
	PickNone
	PickAny
)

// Option is one option(pick, traversal) of a choose/branch step.
type Option struct {
	Token     PickToken
	Pick      ir.IRValue
	Traversal *Traversal
}

func (o Option) String() string {
	switch o.Token {
	case PickNone:
		return "none"
	case PickAny:
		return "any"
	default:
		return o.Pick.String()
	}
}
