package traversal

import (
	"github.com/roach88/gplan/internal/ir"
)

// Step is one element of a traversal. Concrete steps are pointers to the
// structs in this file; the builder dispatches on Kind and reads parameters
// through the concrete type or a capability interface.
type Step interface {
	Kind() StepKind
	// Name is the user-facing step name, used in diagnostics.
	Name() string
	Base() *StepBase
}

// StepBase holds what every step carries regardless of kind.
type StepBase struct {
	// Labels are the as(...) names bound to the step's output.
	Labels []string
}

// Base returns the shared step fields.
func (b *StepBase) Base() *StepBase { return b }

// Labeled reports whether the step binds at least one label.
func Labeled(s Step) bool { return len(s.Base().Labels) > 0 }

// GraphStep is the traversal source, V(ids...) or E(ids...). Containers
// holds has-filters folded into the source by FoldSourceFilters; Config
// holds with(...) settings attached to the source.
type GraphStep struct {
	StepBase
	Edges      bool
	IDs        []ir.IRValue
	Containers []HasContainer
	Config     map[string]ir.IRValue
}

func (*GraphStep) Kind() StepKind { return StepGraph }

func (s *GraphStep) Name() string {
	if s.Edges {
		return "E"
	}
	return "V"
}

// VertexStep moves from a vertex to adjacent vertices (out/in/both) or to
// incident edges (outE/inE/bothE).
type VertexStep struct {
	StepBase
	Direction  Direction
	EdgeLabels []string
	Edges      bool
}

func (*VertexStep) Kind() StepKind { return StepVertex }

func (s *VertexStep) Name() string {
	if s.Edges {
		return s.Direction.String() + "E"
	}
	return s.Direction.String()
}

// EdgeVertexStep moves from an edge to its endpoint(s): outV/inV/bothV.
type EdgeVertexStep struct {
	StepBase
	Direction Direction
}

func (*EdgeVertexStep) Kind() StepKind { return StepEdgeVertex }
func (s *EdgeVertexStep) Name() string { return s.Direction.String() + "V" }

// OtherVertexStep moves from an edge to the endpoint the traverser did not
// arrive from.
type OtherVertexStep struct{ StepBase }

func (*OtherVertexStep) Kind() StepKind { return StepEdgeOtherVertex }
func (*OtherVertexStep) Name() string   { return "otherV" }

// HasStep filters elements by a conjunction of has-containers.
type HasStep struct {
	StepBase
	Containers []HasContainer
}

func (*HasStep) Kind() StepKind                  { return StepHas }
func (*HasStep) Name() string                    { return "has" }
func (s *HasStep) HasContainers() []HasContainer { return s.Containers }

// IsStep filters the current value itself.
type IsStep struct {
	StepBase
	Pred Predicate
}

func (*IsStep) Kind() StepKind { return StepIs }
func (*IsStep) Name() string   { return "is" }

func (s *IsStep) HasContainers() []HasContainer {
	return []HasContainer{{Token: TokenValue, Pred: s.Pred}}
}

// AndStep passes traversers for which every child traversal yields a result.
type AndStep struct {
	StepBase
	Traversals []*Traversal
}

func (*AndStep) Kind() StepKind           { return StepAnd }
func (*AndStep) Name() string             { return "and" }
func (s *AndStep) Children() []*Traversal { return s.Traversals }

// OrStep passes traversers for which any child traversal yields a result.
type OrStep struct {
	StepBase
	Traversals []*Traversal
}

func (*OrStep) Kind() StepKind           { return StepOr }
func (*OrStep) Name() string             { return "or" }
func (s *OrStep) Children() []*Traversal { return s.Traversals }

// NotStep passes traversers for which the child traversal yields nothing.
type NotStep struct {
	StepBase
	Traversal *Traversal
}

func (*NotStep) Kind() StepKind           { return StepNot }
func (*NotStep) Name() string             { return "not" }
func (s *NotStep) Children() []*Traversal { return []*Traversal{s.Traversal} }

// WherePredicateStep compares labeled values: where(eq("a")) compares the
// current value, where("a", eq("b")) compares label StartKey. Keys are the
// label operands of the predicate; By modulators apply to the start value
// first, then to each key in turn.
type WherePredicateStep struct {
	StepBase
	StartKey string
	Op       ir.CompareOp
	Keys     []string
	By       []By
}

func (*WherePredicateStep) Kind() StepKind { return StepWherePredicate }
func (*WherePredicateStep) Name() string   { return "where" }

func (s *WherePredicateStep) Children() []*Traversal { return byTraversals(s.By) }

func (s *WherePredicateStep) Modulate(b By) error {
	if len(s.By) > len(s.Keys) {
		return tooManyModulators(s)
	}
	s.By = append(s.By, b)
	return nil
}

// WhereTraversalStep filters by a sub-traversal whose start label and end
// label (if any) refer to bound labels.
type WhereTraversalStep struct {
	StepBase
	Traversal *Traversal
}

func (*WhereTraversalStep) Kind() StepKind           { return StepWhereTraversal }
func (*WhereTraversalStep) Name() string             { return "where" }
func (s *WhereTraversalStep) Children() []*Traversal { return []*Traversal{s.Traversal} }

// FilterStep passes traversers for which the child traversal yields a result.
type FilterStep struct {
	StepBase
	Traversal *Traversal
}

func (*FilterStep) Kind() StepKind           { return StepTraversalFilter }
func (*FilterStep) Name() string             { return "filter" }
func (s *FilterStep) Children() []*Traversal { return []*Traversal{s.Traversal} }

// DedupStep removes duplicates of the current value, of the values bound to
// Keys, or of the By projection.
type DedupStep struct {
	StepBase
	Keys []string
	By   *By
}

func (*DedupStep) Kind() StepKind { return StepDedup }
func (*DedupStep) Name() string   { return "dedup" }

func (s *DedupStep) Children() []*Traversal {
	if s.By == nil {
		return nil
	}
	return byTraversals([]By{*s.By})
}

func (s *DedupStep) Modulate(b By) error {
	if s.By != nil {
		return tooManyModulators(s)
	}
	s.By = &b
	return nil
}

// RangeStep keeps traversers [Low, High). High < 0 means unbounded. Local
// applies the range inside each collection value instead of across the
// stream.
type RangeStep struct {
	StepBase
	Low   int64
	High  int64
	Local bool
}

func (*RangeStep) Kind() StepKind { return StepRange }

func (s *RangeStep) Name() string {
	switch {
	case s.Low == 0 && s.High >= 0:
		return "limit"
	case s.High < 0:
		return "skip"
	default:
		return "range"
	}
}

// TailStep keeps the last N traversers.
type TailStep struct {
	StepBase
	N int64
}

func (*TailStep) Kind() StepKind { return StepTail }
func (*TailStep) Name() string   { return "tail" }

// CoinStep keeps each traverser with the given probability.
type CoinStep struct {
	StepBase
	Probability float64
}

func (*CoinStep) Kind() StepKind { return StepCoin }
func (*CoinStep) Name() string   { return "coin" }

// SampleStep keeps a uniform sample of N traversers.
type SampleStep struct {
	StepBase
	N int64
}

func (*SampleStep) Kind() StepKind { return StepSample }
func (*SampleStep) Name() string   { return "sample" }

// SimplePathStep keeps traversers whose path has no repeated element, or
// with Cyclic set, only those whose path does.
type SimplePathStep struct {
	StepBase
	Cyclic bool
}

func (*SimplePathStep) Kind() StepKind { return StepSimplePath }

func (s *SimplePathStep) Name() string {
	if s.Cyclic {
		return "cyclicPath"
	}
	return "simplePath"
}

// IDStep maps an element to its id.
type IDStep struct{ StepBase }

func (*IDStep) Kind() StepKind { return StepID }
func (*IDStep) Name() string   { return "id" }

// LabelStep maps an element to its label.
type LabelStep struct{ StepBase }

func (*LabelStep) Kind() StepKind { return StepLabel }
func (*LabelStep) Name() string   { return "label" }

// ConstantStep maps every traverser to a literal.
type ConstantStep struct {
	StepBase
	Value ir.IRValue
}

func (*ConstantStep) Kind() StepKind { return StepConstant }
func (*ConstantStep) Name() string   { return "constant" }

// PropertiesStep maps an element to its properties (or, with Values set,
// their values), restricted to Keys when non-empty.
type PropertiesStep struct {
	StepBase
	Keys   []string
	Values bool
}

func (*PropertiesStep) Kind() StepKind { return StepProperties }

func (s *PropertiesStep) Name() string {
	if s.Values {
		return "values"
	}
	return "properties"
}

// PropertyMapStep maps an element to a map of its properties: valueMap, or
// elementMap when Elements is set (which includes id and label).
type PropertyMapStep struct {
	StepBase
	Keys     []string
	Elements bool
}

func (*PropertyMapStep) Kind() StepKind { return StepPropertyMap }

func (s *PropertyMapStep) Name() string {
	if s.Elements {
		return "elementMap"
	}
	return "valueMap"
}

// PropertyKeyStep maps a property to its key.
type PropertyKeyStep struct{ StepBase }

func (*PropertyKeyStep) Kind() StepKind { return StepPropertyKey }
func (*PropertyKeyStep) Name() string   { return "key" }

// PropertyValueStep maps a property to its value.
type PropertyValueStep struct{ StepBase }

func (*PropertyValueStep) Kind() StepKind { return StepPropertyValue }
func (*PropertyValueStep) Name() string   { return "value" }

// SelectOneStep maps to the value bound to one label.
type SelectOneStep struct {
	StepBase
	Pop Pop
	Key string
	By  *By
}

func (*SelectOneStep) Kind() StepKind { return StepSelectOne }
func (*SelectOneStep) Name() string   { return "select" }

func (s *SelectOneStep) Children() []*Traversal {
	if s.By == nil {
		return nil
	}
	return byTraversals([]By{*s.By})
}

func (s *SelectOneStep) Modulate(b By) error {
	if s.By != nil {
		return tooManyModulators(s)
	}
	s.By = &b
	return nil
}

// SelectStep maps to a map of the values bound to several labels. By
// modulators apply to keys round-robin.
type SelectStep struct {
	StepBase
	Pop  Pop
	Keys []string
	By   []By
}

func (*SelectStep) Kind() StepKind           { return StepSelect }
func (*SelectStep) Name() string             { return "select" }
func (s *SelectStep) Children() []*Traversal { return byTraversals(s.By) }

func (s *SelectStep) Modulate(b By) error {
	s.By = append(s.By, b)
	return nil
}

// PathStep maps to the traverser's path. By modulators apply to path
// elements round-robin.
type PathStep struct {
	StepBase
	By []By
}

func (*PathStep) Kind() StepKind           { return StepPath }
func (*PathStep) Name() string             { return "path" }
func (s *PathStep) Children() []*Traversal { return byTraversals(s.By) }

func (s *PathStep) Modulate(b By) error {
	s.By = append(s.By, b)
	return nil
}

// ReduceStep is count, sum, max, min or mean, over the whole stream or, with
// Local set, over each collection value.
type ReduceStep struct {
	StepBase
	Op    StepKind
	Local bool
}

func (s *ReduceStep) Kind() StepKind { return s.Op }
func (s *ReduceStep) Name() string   { return s.Op.String() }

// FoldStep collects the stream into one list.
type FoldStep struct{ StepBase }

func (*FoldStep) Kind() StepKind { return StepFold }
func (*FoldStep) Name() string   { return "fold" }

// UnfoldStep emits each element of a collection value.
type UnfoldStep struct{ StepBase }

func (*UnfoldStep) Kind() StepKind { return StepUnfold }
func (*UnfoldStep) Name() string   { return "unfold" }

// OrderStep sorts the stream (or each collection with Local set). Each By
// is one sort key; no By sorts by the value itself ascending.
type OrderStep struct {
	StepBase
	Local bool
	By    []By
}

func (*OrderStep) Kind() StepKind           { return StepOrder }
func (*OrderStep) Name() string             { return "order" }
func (s *OrderStep) Children() []*Traversal { return byTraversals(s.By) }

func (s *OrderStep) Modulate(b By) error {
	s.By = append(s.By, b)
	return nil
}

// GroupStep groups the stream into a map. The first By selects the key,
// the second the value (folded).
type GroupStep struct {
	StepBase
	By []By
}

func (*GroupStep) Kind() StepKind           { return StepGroup }
func (*GroupStep) Name() string             { return "group" }
func (s *GroupStep) Children() []*Traversal { return byTraversals(s.By) }

func (s *GroupStep) Modulate(b By) error {
	if len(s.By) == 2 {
		return tooManyModulators(s)
	}
	s.By = append(s.By, b)
	return nil
}

// GroupCountStep counts the stream by key. A non-empty SideEffectKey makes
// it a side effect read back with cap.
type GroupCountStep struct {
	StepBase
	SideEffectKey string
	By            *By
}

func (*GroupCountStep) Kind() StepKind { return StepGroupCount }
func (*GroupCountStep) Name() string   { return "groupCount" }

func (s *GroupCountStep) Children() []*Traversal {
	if s.By == nil {
		return nil
	}
	return byTraversals([]By{*s.By})
}

func (s *GroupCountStep) Modulate(b By) error {
	if s.By != nil {
		return tooManyModulators(s)
	}
	s.By = &b
	return nil
}

// ProjectStep maps each traverser to a map with one entry per key; the
// i-th By produces the i-th value.
type ProjectStep struct {
	StepBase
	Keys []string
	By   []By
}

func (*ProjectStep) Kind() StepKind           { return StepProject }
func (*ProjectStep) Name() string             { return "project" }
func (s *ProjectStep) Children() []*Traversal { return byTraversals(s.By) }

func (s *ProjectStep) Modulate(b By) error {
	if len(s.By) == len(s.Keys) {
		return tooManyModulators(s)
	}
	s.By = append(s.By, b)
	return nil
}

// RepeatStep loops Body. Until and Emit are optional condition traversals;
// the First flags mark conditions given before repeat(), which are tested
// before the first iteration. EmitAll is emit() with no condition. Times
// is the explicit iteration bound when HasTimes is set.
type RepeatStep struct {
	StepBase
	Body       *Traversal
	Until      *Traversal
	Emit       *Traversal
	UntilFirst bool
	EmitFirst  bool
	EmitAll    bool
	Times      int64
	HasTimes   bool
}

func (*RepeatStep) Kind() StepKind { return StepRepeat }
func (*RepeatStep) Name() string   { return "repeat" }

func (s *RepeatStep) Children() []*Traversal {
	return nonNil(s.Body, s.Until, s.Emit)
}

// ChooseStep routes each traverser to the option matching the selector's
// value. Predicate marks choose(pred, t, f), whose selector is tested for
// a result rather than read for a value.
type ChooseStep struct {
	StepBase
	Selector  *Traversal
	Predicate bool
	Options   []Option
}

func (*ChooseStep) Kind() StepKind { return StepChoose }
func (*ChooseStep) Name() string   { return "choose" }

func (s *ChooseStep) Children() []*Traversal {
	out := nonNil(s.Selector)
	for _, o := range s.Options {
		out = append(out, nonNil(o.Traversal)...)
	}
	return out
}

// OptionalStep emits the child's results, or the traverser itself when the
// child yields nothing.
type OptionalStep struct {
	StepBase
	Traversal *Traversal
}

func (*OptionalStep) Kind() StepKind           { return StepOptional }
func (*OptionalStep) Name() string             { return "optional" }
func (s *OptionalStep) Children() []*Traversal { return []*Traversal{s.Traversal} }

// UnionStep emits the results of every branch.
type UnionStep struct {
	StepBase
	Traversals []*Traversal
}

func (*UnionStep) Kind() StepKind           { return StepUnion }
func (*UnionStep) Name() string             { return "union" }
func (s *UnionStep) Children() []*Traversal { return s.Traversals }

// CoalesceStep emits the results of the first branch that yields any.
type CoalesceStep struct {
	StepBase
	Traversals []*Traversal
}

func (*CoalesceStep) Kind() StepKind           { return StepCoalesce }
func (*CoalesceStep) Name() string             { return "coalesce" }
func (s *CoalesceStep) Children() []*Traversal { return s.Traversals }

// ScopeStep is local, map or flatMap around a child traversal.
type ScopeStep struct {
	StepBase
	Op        StepKind
	Traversal *Traversal
}

func (s *ScopeStep) Kind() StepKind         { return s.Op }
func (s *ScopeStep) Name() string           { return s.Op.String() }
func (s *ScopeStep) Children() []*Traversal { return []*Traversal{s.Traversal} }

// LoopsStep reads the current loop counter. Bound is set when
// FoldLoopBounds merged a following is(...) into it.
type LoopsStep struct {
	StepBase
	Bound Predicate
}

func (*LoopsStep) Kind() StepKind         { return StepLoops }
func (*LoopsStep) Name() string           { return "loops" }
func (s *LoopsStep) LoopBound() Predicate { return s.Bound }

// AggregateStep collects the stream into a side-effect collection. Lazy is
// store(), which collects without a barrier.
type AggregateStep struct {
	StepBase
	Key  string
	Lazy bool
}

func (*AggregateStep) Kind() StepKind { return StepAggregate }

func (s *AggregateStep) Name() string {
	if s.Lazy {
		return "store"
	}
	return "aggregate"
}

// CapStep emits the side-effect collection(s) named by Keys.
type CapStep struct {
	StepBase
	Keys []string
}

func (*CapStep) Kind() StepKind { return StepCap }
func (*CapStep) Name() string   { return "cap" }

// IdentityStep passes traversers through unchanged.
type IdentityStep struct{ StepBase }

func (*IdentityStep) Kind() StepKind { return StepIdentity }
func (*IdentityStep) Name() string   { return "identity" }

// BarrierStep is a bulking hint.
type BarrierStep struct {
	StepBase
	Size int64
}

func (*BarrierStep) Kind() StepKind { return StepBarrier }
func (*BarrierStep) Name() string   { return "barrier" }

// ConfigStep carries one with(key, value) query setting.
type ConfigStep struct {
	StepBase
	Key   string
	Value ir.IRValue
}

func (*ConfigStep) Kind() StepKind { return StepConfig }
func (*ConfigStep) Name() string   { return "with" }

// OpaqueStep stands for a step kind the compiler recognizes by name but
// carries no parameters for, such as mutations and graph algorithms.
type OpaqueStep struct {
	StepBase
	Op     StepKind
	Detail string
}

func (s *OpaqueStep) Kind() StepKind { return s.Op }
func (s *OpaqueStep) Name() string   { return s.Op.String() }

func byTraversals(bys []By) []*Traversal {
	var out []*Traversal
	for _, b := range bys {
		if b.Traversal != nil {
			out = append(out, b.Traversal)
		}
	}
	return out
}

func nonNil(ts ...*Traversal) []*Traversal {
	var out []*Traversal
	for _, t := range ts {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

func tooManyModulators(s Step) error {
	return ir.NewMalformed(s.Name(), "too many by() modulators")
}
