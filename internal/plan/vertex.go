package plan

import (
	"encoding/json"

	"github.com/roach88/gplan/internal/ir"
)

// Vertex is one operator of a logical plan.
//
// A vertex created by Builder.Delegate is an alias of its target: it has the
// target's ID but is never added to a plan, and edges drawn from it are
// drawn from the target.
type Vertex struct {
	ID        int32         `json:"id"`
	Op        OperatorKind  `json:"op"`
	Arg       *Argument     `json:"arg,omitempty"`
	Before    []Requirement `json:"before,omitempty"`
	After     []Requirement `json:"after,omitempty"`
	Range     *Range        `json:"range,omitempty"`
	EarlyStop EarlyStop     `json:"early_stop"`
	Loop      *LoopSpec     `json:"loop,omitempty"`

	target *Vertex
}

// IsDelegate reports whether v aliases another vertex.
func (v *Vertex) IsDelegate() bool { return v.target != nil }

// Resolve returns the vertex v stands for: its delegate target, or v.
func (v *Vertex) Resolve() *Vertex {
	for v.target != nil {
		v = v.target
	}
	return v
}

// AddBefore appends a before-requirement, merging into an existing one of
// the same kind so each kind appears at most once.
func (v *Vertex) AddBefore(r Requirement) { v.Before = AddRequirement(v.Before, r) }

// AddAfter appends an after-requirement, merging like AddBefore.
func (v *Vertex) AddAfter(r Requirement) { v.After = AddRequirement(v.After, r) }

// AddRequirement merges r into list: labels and props join an existing
// requirement of the same kind, otherwise r is appended.
func AddRequirement(list []Requirement, r Requirement) []Requirement {
	for i := range list {
		if list[i].Kind == r.Kind {
			list[i].Labels = appendUnique(list[i].Labels, r.Labels...)
			list[i].Props = appendUnique(list[i].Props, r.Props...)
			return list
		}
	}
	return append(list, Requirement{
		Kind:   r.Kind,
		Labels: appendUnique(nil, r.Labels...),
		Props:  appendUnique(nil, r.Props...),
	})
}

func appendUnique(dst []int32, vals ...int32) []int32 {
	for _, v := range vals {
		seen := false
		for _, d := range dst {
			if d == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}

// Requirement returns the before (or after) requirement of kind k.
func (v *Vertex) Requirement(after bool, k RequirementKind) (Requirement, bool) {
	list := v.Before
	if after {
		list = v.After
	}
	for _, r := range list {
		if r.Kind == k {
			return r, true
		}
	}
	return Requirement{}, false
}

// Argument is the operator payload. Which fields are set depends on the
// operator; unused fields stay zero.
type Argument struct {
	// Value is a single literal (constant, coin probability).
	Value ir.IRValue `json:"value,omitempty"`
	// Ints holds ids: property ids, label indices, element label ids, bounds.
	Ints []int64 `json:"ints,omitempty"`
	// Strings holds names such as edge labels.
	Strings []string `json:"strings,omitempty"`
	// Comparisons is a conjunction of structured tests.
	Comparisons []Comparison `json:"comparisons,omitempty"`
	// Disjunction is an OR of conjunctions (HAS_OR).
	Disjunction [][]Comparison `json:"disjunction,omitempty"`
	// Payload is canonical JSON for composite arguments (order, group, project specs).
	Payload json.RawMessage `json:"payload,omitempty"`
	// Flag marks local scope for operators that also have a stream form.
	Flag bool `json:"flag,omitempty"`
}

// Comparison is one structured test of a filter-like operator.
type Comparison struct {
	Target CompareTarget `json:"target"`
	// Key is the property id (TargetProp) or label index (TargetLabelValue).
	Key   int32        `json:"key,omitempty"`
	Op    ir.CompareOp `json:"op"`
	Value ir.IRValue   `json:"value,omitempty"`
}

// Requirement is a structured directive run before or after the vertex.
type Requirement struct {
	Kind   RequirementKind `json:"kind"`
	Labels []int32         `json:"labels,omitempty"`
	Props  []int32         `json:"props,omitempty"`
}

// Range is a half-open [Low, High) bound; High < 0 is unbounded.
type Range struct {
	Low  int64 `json:"low"`
	High int64 `json:"high"`
}

// EarlyStop lets the executor stop upstream work once the vertex has
// produced all it will keep.
type EarlyStop struct {
	GlobalStop   bool `json:"global_stop,omitempty"`
	GlobalFilter bool `json:"global_filter,omitempty"`
}

// LoopSpec describes a REPEAT vertex. Body is rooted at a delegate of the
// repeat vertex itself. Each iteration, rows produced by LeaveID leave the
// loop and rows produced by FeedbackID run the body again; after MaxLoops
// iterations rows at FeedbackID leave as well, unless they already left
// through LeaveID. LeaveID is 0 when the loop has no early exit.
type LoopSpec struct {
	MaxLoops   int64        `json:"max_loops"`
	Body       *LogicalPlan `json:"body"`
	LeaveID    int32        `json:"leave_id"`
	FeedbackID int32        `json:"feedback_id"`
}

// Shuffle is the data movement on an edge. Key is the label index the rows
// are partitioned by when Kind is ShuffleByKey (0 is the head).
type Shuffle struct {
	Kind ShuffleKind `json:"kind"`
	Key  int32       `json:"key,omitempty"`
}

func (s Shuffle) String() string {
	if s.Kind == ShuffleByKey {
		return s.Kind.String() + "(" + itoa(s.Key) + ")"
	}
	return s.Kind.String()
}

// Forward keeps rows on the worker that produced them.
func Forward() Shuffle { return Shuffle{Kind: ShuffleForward} }

// ByKey partitions rows by the value under label index key.
func ByKey(key int32) Shuffle { return Shuffle{Kind: ShuffleByKey, Key: key} }

// ByConst routes every row to one worker.
func ByConst() Shuffle { return Shuffle{Kind: ShuffleByConst} }

// Unspecified leaves the choice to the executor.
func Unspecified() Shuffle { return Shuffle{Kind: ShuffleUnspecified} }

// Edge connects two vertices.
type Edge struct {
	From    int32   `json:"from"`
	To      int32   `json:"to"`
	Shuffle Shuffle `json:"shuffle"`
}
