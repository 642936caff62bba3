package traversal

import (
	"fmt"
	"strings"

	"github.com/roach88/gplan/internal/ir"
)

// Traversal is an ordered chain of steps. A root traversal starts with a
// GraphStep; anonymous (nested) traversals start from the traverser handed
// to them, which StartLabels names when the traversal began with as(...).
//
// The fluent methods append to the receiver and return it. Misuse such as
// by() after a step that takes no modulators is recorded and reported by
// Err, so chains stay readable.
type Traversal struct {
	StartLabels []string
	Steps       []Step

	err     error
	pending *RepeatStep
}

// V starts a root traversal over vertices.
func V(ids ...any) *Traversal {
	return (&Traversal{}).Append(&GraphStep{IDs: literals(ids)})
}

// E starts a root traversal over edges.
func E(ids ...any) *Traversal {
	return (&Traversal{}).Append(&GraphStep{Edges: true, IDs: literals(ids)})
}

// Anon starts an anonymous traversal, for use inside other steps.
func Anon() *Traversal { return &Traversal{} }

// New wraps already-built steps.
func New(steps ...Step) *Traversal { return &Traversal{Steps: steps} }

// Err returns the first construction error of t or any nested traversal.
func (t *Traversal) Err() error {
	if t == nil {
		return nil
	}
	if t.err != nil {
		return t.err
	}
	if t.pending != nil {
		return ir.NewMalformed("repeat", "until()/emit() without a following repeat()")
	}
	var err error
	Walk(t, func(_ int, s Step) bool {
		if n, ok := s.(NestedStep); ok {
			for _, c := range n.Children() {
				if c.err != nil || c.pending != nil {
					err = c.Err()
					return false
				}
			}
		}
		return true
	})
	return err
}

// Len returns the number of top-level steps.
func (t *Traversal) Len() int { return len(t.Steps) }

// Last returns the final step, or nil for an empty traversal.
func (t *Traversal) Last() Step {
	if len(t.Steps) == 0 {
		return nil
	}
	return t.Steps[len(t.Steps)-1]
}

// EndLabels returns the labels bound by the final step.
func (t *Traversal) EndLabels() []string {
	if last := t.Last(); last != nil {
		return last.Base().Labels
	}
	return nil
}

// Append adds a step.
func (t *Traversal) Append(s Step) *Traversal {
	t.Steps = append(t.Steps, s)
	return t
}

func (t *Traversal) fail(err error) *Traversal {
	if t.err == nil {
		t.err = err
	}
	return t
}

// As labels the previous step, or the traversal start when there is none.
func (t *Traversal) As(labels ...string) *Traversal {
	if last := t.Last(); last != nil {
		b := last.Base()
		b.Labels = append(b.Labels, labels...)
		return t
	}
	t.StartLabels = append(t.StartLabels, labels...)
	return t
}

func (t *Traversal) Out(labels ...string) *Traversal {
	return t.Append(&VertexStep{Direction: Out, EdgeLabels: labels})
}

func (t *Traversal) In(labels ...string) *Traversal {
	return t.Append(&VertexStep{Direction: In, EdgeLabels: labels})
}

func (t *Traversal) Both(labels ...string) *Traversal {
	return t.Append(&VertexStep{Direction: Both, EdgeLabels: labels})
}

func (t *Traversal) OutE(labels ...string) *Traversal {
	return t.Append(&VertexStep{Direction: Out, EdgeLabels: labels, Edges: true})
}

func (t *Traversal) InE(labels ...string) *Traversal {
	return t.Append(&VertexStep{Direction: In, EdgeLabels: labels, Edges: true})
}

func (t *Traversal) BothE(labels ...string) *Traversal {
	return t.Append(&VertexStep{Direction: Both, EdgeLabels: labels, Edges: true})
}

func (t *Traversal) OutV() *Traversal   { return t.Append(&EdgeVertexStep{Direction: Out}) }
func (t *Traversal) InV() *Traversal    { return t.Append(&EdgeVertexStep{Direction: In}) }
func (t *Traversal) BothV() *Traversal  { return t.Append(&EdgeVertexStep{Direction: Both}) }
func (t *Traversal) OtherV() *Traversal { return t.Append(&OtherVertexStep{}) }

// Has filters on a property. value may be a Predicate or a literal, which
// is compared for equality.
func (t *Traversal) Has(key string, value any) *Traversal {
	return t.Append(&HasStep{Containers: []HasContainer{{Key: key, Pred: asPredicate(value)}}})
}

// HasLabel filters on the element label.
func (t *Traversal) HasLabel(labels ...string) *Traversal {
	return t.Append(&HasStep{Containers: []HasContainer{{Token: TokenLabel, Pred: oneOf(stringsToAny(labels))}}})
}

// HasID filters on the element id.
func (t *Traversal) HasID(ids ...any) *Traversal {
	return t.Append(&HasStep{Containers: []HasContainer{{Token: TokenID, Pred: oneOf(ids)}}})
}

// Is filters the current value. value may be a Predicate or a literal.
func (t *Traversal) Is(value any) *Traversal {
	return t.Append(&IsStep{Pred: asPredicate(value)})
}

func (t *Traversal) And(ts ...*Traversal) *Traversal { return t.Append(&AndStep{Traversals: ts}) }
func (t *Traversal) Or(ts ...*Traversal) *Traversal  { return t.Append(&OrStep{Traversals: ts}) }
func (t *Traversal) Not(c *Traversal) *Traversal     { return t.Append(&NotStep{Traversal: c}) }

func (t *Traversal) Filter(c *Traversal) *Traversal {
	return t.Append(&FilterStep{Traversal: c})
}

// Where filters by a sub-traversal.
func (t *Traversal) Where(c *Traversal) *Traversal {
	return t.Append(&WhereTraversalStep{Traversal: c})
}

// WhereP compares the current value against labeled values, as in
// where(eq("a")). The predicate's operand names labels.
func (t *Traversal) WhereP(p Predicate) *Traversal {
	return t.WhereKeyP("", p)
}

// WhereKeyP compares the value labeled start against labeled values, as in
// where("a", neq("b")).
func (t *Traversal) WhereKeyP(start string, p Predicate) *Traversal {
	c, ok := p.(*Compare)
	if !ok {
		return t.fail(ir.NewUnsupported("where", "connective predicates over labels are not supported"))
	}
	keys, err := labelOperands(c.Value)
	if err != nil {
		return t.fail(err)
	}
	return t.Append(&WherePredicateStep{StartKey: start, Op: c.Op, Keys: keys})
}

func labelOperands(v ir.IRValue) ([]string, error) {
	switch val := v.(type) {
	case ir.IRString:
		return []string{string(val)}, nil
	case ir.IRArray:
		keys := make([]string, 0, len(val))
		for _, elem := range val {
			s, ok := elem.(ir.IRString)
			if !ok {
				return nil, ir.NewMalformed("where", "label operand %s is not a string", elem)
			}
			keys = append(keys, string(s))
		}
		return keys, nil
	}
	return nil, ir.NewMalformed("where", "label operand %s is not a string", v)
}

func (t *Traversal) Dedup(keys ...string) *Traversal {
	return t.Append(&DedupStep{Keys: keys})
}

func (t *Traversal) Limit(n int64) *Traversal { return t.Append(&RangeStep{Low: 0, High: n}) }
func (t *Traversal) Skip(n int64) *Traversal  { return t.Append(&RangeStep{Low: n, High: -1}) }

func (t *Traversal) Range(low, high int64) *Traversal {
	return t.Append(&RangeStep{Low: low, High: high})
}

func (t *Traversal) LimitLocal(n int64) *Traversal {
	return t.Append(&RangeStep{Low: 0, High: n, Local: true})
}

func (t *Traversal) RangeLocal(low, high int64) *Traversal {
	return t.Append(&RangeStep{Low: low, High: high, Local: true})
}

func (t *Traversal) Tail(n int64) *Traversal   { return t.Append(&TailStep{N: n}) }
func (t *Traversal) Coin(p float64) *Traversal { return t.Append(&CoinStep{Probability: p}) }
func (t *Traversal) Sample(n int64) *Traversal { return t.Append(&SampleStep{N: n}) }
func (t *Traversal) SimplePath() *Traversal    { return t.Append(&SimplePathStep{}) }
func (t *Traversal) CyclicPath() *Traversal    { return t.Append(&SimplePathStep{Cyclic: true}) }
func (t *Traversal) ID() *Traversal            { return t.Append(&IDStep{}) }
func (t *Traversal) Label() *Traversal         { return t.Append(&LabelStep{}) }
func (t *Traversal) Key() *Traversal           { return t.Append(&PropertyKeyStep{}) }
func (t *Traversal) Value() *Traversal         { return t.Append(&PropertyValueStep{}) }
func (t *Traversal) Fold() *Traversal          { return t.Append(&FoldStep{}) }
func (t *Traversal) Unfold() *Traversal        { return t.Append(&UnfoldStep{}) }
func (t *Traversal) Path() *Traversal          { return t.Append(&PathStep{}) }
func (t *Traversal) Identity() *Traversal      { return t.Append(&IdentityStep{}) }
func (t *Traversal) Barrier() *Traversal       { return t.Append(&BarrierStep{}) }
func (t *Traversal) Loops() *Traversal         { return t.Append(&LoopsStep{}) }

func (t *Traversal) Values(keys ...string) *Traversal {
	return t.Append(&PropertiesStep{Keys: keys, Values: true})
}

func (t *Traversal) Constant(v any) *Traversal {
	val, err := ir.Of(v)
	if err != nil {
		return t.fail(ir.NewMalformed("constant", "%v", err))
	}
	return t.Append(&ConstantStep{Value: val})
}

func (t *Traversal) Properties(keys ...string) *Traversal {
	return t.Append(&PropertiesStep{Keys: keys})
}

func (t *Traversal) ValueMap(keys ...string) *Traversal {
	return t.Append(&PropertyMapStep{Keys: keys})
}

func (t *Traversal) ElementMap(keys ...string) *Traversal {
	return t.Append(&PropertyMapStep{Keys: keys, Elements: true})
}

// Select reads labeled values: one key yields the value itself, several a
// map keyed by label.
func (t *Traversal) Select(keys ...string) *Traversal {
	return t.SelectPop(PopNone, keys...)
}

// SelectPop is Select with an explicit pop.
func (t *Traversal) SelectPop(pop Pop, keys ...string) *Traversal {
	switch len(keys) {
	case 0:
		return t.fail(ir.NewMalformed("select", "select() needs at least one key"))
	case 1:
		return t.Append(&SelectOneStep{Pop: pop, Key: keys[0]})
	default:
		return t.Append(&SelectStep{Pop: pop, Keys: keys})
	}
}

func (t *Traversal) Count() *Traversal      { return t.reduce(StepCount, false) }
func (t *Traversal) CountLocal() *Traversal { return t.reduce(StepCount, true) }
func (t *Traversal) Sum() *Traversal        { return t.reduce(StepSum, false) }
func (t *Traversal) SumLocal() *Traversal   { return t.reduce(StepSum, true) }
func (t *Traversal) Max() *Traversal        { return t.reduce(StepMax, false) }
func (t *Traversal) MaxLocal() *Traversal   { return t.reduce(StepMax, true) }
func (t *Traversal) Min() *Traversal        { return t.reduce(StepMin, false) }
func (t *Traversal) MinLocal() *Traversal   { return t.reduce(StepMin, true) }
func (t *Traversal) Mean() *Traversal       { return t.reduce(StepMean, false) }
func (t *Traversal) MeanLocal() *Traversal  { return t.reduce(StepMean, true) }

func (t *Traversal) reduce(op StepKind, local bool) *Traversal {
	return t.Append(&ReduceStep{Op: op, Local: local})
}

func (t *Traversal) Order() *Traversal      { return t.Append(&OrderStep{}) }
func (t *Traversal) OrderLocal() *Traversal { return t.Append(&OrderStep{Local: true}) }
func (t *Traversal) Group() *Traversal      { return t.Append(&GroupStep{}) }

// GroupCount counts by key; an optional side-effect key makes it a side
// effect for a later cap().
func (t *Traversal) GroupCount(sideEffectKey ...string) *Traversal {
	s := &GroupCountStep{}
	if len(sideEffectKey) > 0 {
		s.SideEffectKey = sideEffectKey[0]
	}
	return t.Append(s)
}

func (t *Traversal) Project(keys ...string) *Traversal {
	return t.Append(&ProjectStep{Keys: keys})
}

// By modulates the previous step. Accepted arguments: nothing (identity), a
// property key, a Token, a *Traversal, and an optional trailing Order.
func (t *Traversal) By(args ...any) *Traversal {
	var b By
	for i, a := range args {
		switch v := a.(type) {
		case string:
			b.Key = v
		case Token:
			b.Token = v
		case *Traversal:
			b.Traversal = v
		case Order:
			if i != len(args)-1 {
				return t.fail(ir.NewMalformed("by", "order must be the last by() argument"))
			}
			b.Order = v
		default:
			return t.fail(ir.NewMalformed("by", "unsupported by() argument %T", a))
		}
	}
	m, ok := t.Last().(Modulated)
	if !ok {
		name := "start"
		if last := t.Last(); last != nil {
			name = last.Name()
		}
		return t.fail(ir.NewMalformed("by", "%s does not take by() modulators", name))
	}
	if err := m.Modulate(b); err != nil {
		return t.fail(err)
	}
	return t
}

// Repeat loops body. until()/emit() given just before it become its
// until-first/emit-first conditions.
func (t *Traversal) Repeat(body *Traversal) *Traversal {
	r := &RepeatStep{Body: body}
	if t.pending != nil {
		r.Until, r.UntilFirst = t.pending.Until, t.pending.UntilFirst
		r.Emit, r.EmitFirst, r.EmitAll = t.pending.Emit, t.pending.EmitFirst, t.pending.EmitAll
		t.pending = nil
	}
	return t.Append(r)
}

func (t *Traversal) repeatTarget() (*RepeatStep, bool) {
	if r, ok := t.Last().(*RepeatStep); ok {
		return r, false
	}
	if t.pending == nil {
		t.pending = &RepeatStep{}
	}
	return t.pending, true
}

func (t *Traversal) Until(cond *Traversal) *Traversal {
	r, first := t.repeatTarget()
	if r.Until != nil {
		return t.fail(ir.NewMalformed("until", "repeat already has an until() condition"))
	}
	r.Until, r.UntilFirst = cond, first
	return t
}

// Emit with no argument emits every iteration; with a condition, only
// traversers satisfying it.
func (t *Traversal) Emit(cond ...*Traversal) *Traversal {
	r, first := t.repeatTarget()
	if r.Emit != nil || r.EmitAll {
		return t.fail(ir.NewMalformed("emit", "repeat already has an emit() modulator"))
	}
	switch len(cond) {
	case 0:
		r.EmitAll = true
	case 1:
		r.Emit = cond[0]
	default:
		return t.fail(ir.NewMalformed("emit", "emit() takes at most one condition"))
	}
	r.EmitFirst = first
	return t
}

func (t *Traversal) Times(n int64) *Traversal {
	r, ok := t.Last().(*RepeatStep)
	if !ok {
		return t.fail(ir.NewMalformed("times", "times() must follow repeat()"))
	}
	r.Times, r.HasTimes = n, true
	return t
}

// Choose routes by the selector's value; add branches with Option.
func (t *Traversal) Choose(selector *Traversal) *Traversal {
	return t.Append(&ChooseStep{Selector: selector})
}

// ChooseIf routes to onTrue when pred yields a result, else to onFalse.
func (t *Traversal) ChooseIf(pred, onTrue, onFalse *Traversal) *Traversal {
	return t.Append(&ChooseStep{
		Selector:  pred,
		Predicate: true,
		Options: []Option{
			{Pick: ir.IRBool(true), Traversal: onTrue},
			{Pick: ir.IRBool(false), Traversal: onFalse},
		},
	})
}

// Option adds a branch to the preceding choose. pick is PickNone, PickAny
// or a literal.
func (t *Traversal) Option(pick any, branch *Traversal) *Traversal {
	c, ok := t.Last().(*ChooseStep)
	if !ok {
		return t.fail(ir.NewMalformed("option", "option() must follow choose()"))
	}
	opt := Option{Traversal: branch}
	if tok, ok := pick.(PickToken); ok {
		opt.Token = tok
	} else {
		v, err := ir.Of(pick)
		if err != nil {
			return t.fail(ir.NewMalformed("option", "%v", err))
		}
		opt.Pick = v
	}
	c.Options = append(c.Options, opt)
	return t
}

func (t *Traversal) Optional(c *Traversal) *Traversal {
	return t.Append(&OptionalStep{Traversal: c})
}

func (t *Traversal) Union(ts ...*Traversal) *Traversal {
	return t.Append(&UnionStep{Traversals: ts})
}

func (t *Traversal) Coalesce(ts ...*Traversal) *Traversal {
	return t.Append(&CoalesceStep{Traversals: ts})
}

func (t *Traversal) Local(c *Traversal) *Traversal {
	return t.Append(&ScopeStep{Op: StepLocal, Traversal: c})
}

func (t *Traversal) Map(c *Traversal) *Traversal {
	return t.Append(&ScopeStep{Op: StepMap, Traversal: c})
}

func (t *Traversal) FlatMap(c *Traversal) *Traversal {
	return t.Append(&ScopeStep{Op: StepFlatMap, Traversal: c})
}

func (t *Traversal) Aggregate(key string) *Traversal {
	return t.Append(&AggregateStep{Key: key})
}

func (t *Traversal) Store(key string) *Traversal {
	return t.Append(&AggregateStep{Key: key, Lazy: true})
}

func (t *Traversal) Cap(keys ...string) *Traversal {
	return t.Append(&CapStep{Keys: keys})
}

// With attaches a query setting.
func (t *Traversal) With(key string, value any) *Traversal {
	v, err := ir.Of(value)
	if err != nil {
		return t.fail(ir.NewMalformed("with", "%v", err))
	}
	return t.Append(&ConfigStep{Key: key, Value: v})
}

// Opaque appends a parameterless step of the given kind, e.g. drop().
func (t *Traversal) Opaque(kind StepKind, detail string) *Traversal {
	return t.Append(&OpaqueStep{Op: kind, Detail: detail})
}

func (t *Traversal) Math(expr string) *Traversal { return t.Opaque(StepMath, expr) }
func (t *Traversal) Drop() *Traversal            { return t.Opaque(StepDrop, "") }

// String renders the traversal in the usual dotted step notation.
func (t *Traversal) String() string {
	if t == nil {
		return "<nil>"
	}
	var b strings.Builder
	if len(t.StartLabels) > 0 {
		fmt.Fprintf(&b, "as(%s)", quoteAll(t.StartLabels))
	}
	for _, s := range t.Steps {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(Format(s))
	}
	if b.Len() == 0 {
		return "identity()"
	}
	return b.String()
}

// Walk visits every step of t depth-first, including steps of nested
// traversals. Returning false from fn stops the walk.
func Walk(t *Traversal, fn func(depth int, s Step) bool) {
	walk(t, 0, fn)
}

func walk(t *Traversal, depth int, fn func(int, Step) bool) bool {
	if t == nil {
		return true
	}
	for _, s := range t.Steps {
		if !fn(depth, s) {
			return false
		}
		if n, ok := s.(NestedStep); ok {
			for _, c := range n.Children() {
				if !walk(c, depth+1, fn) {
					return false
				}
			}
		}
	}
	return true
}

// CountSteps returns the number of steps in t including nested ones.
func CountSteps(t *Traversal) int {
	n := 0
	Walk(t, func(int, Step) bool {
		n++
		return true
	})
	return n
}

func literals(vs []any) []ir.IRValue {
	if len(vs) == 0 {
		return nil
	}
	out := make([]ir.IRValue, len(vs))
	for i, v := range vs {
		out[i] = ir.MustOf(v)
	}
	return out
}

func oneOf(vs []any) Predicate {
	if len(vs) == 1 {
		return Eq(vs[0])
	}
	return Within(vs...)
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
