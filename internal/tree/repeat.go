package tree

import (
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/valuetype"
)

// Cond is a per-row condition evaluated by a sub-chain: a row passes when
// Sub yields anything for it, or, with Negate, when it yields nothing. All
// passes every row.
type Cond struct {
	Sub    Chain
	Negate bool
	// Key is the system label of the semi/anti join.
	Key string
	All bool
}

// RepeatNode is repeat(Body) with optional until and emit conditions.
type RepeatNode struct {
	NodeBase
	Body       Chain
	Until      *Cond
	Emit       *Cond
	UntilFirst bool
	EmitFirst  bool
	MaxLoops   int64
}

// Repeat adds a loop after in and adopts its chains.
func (t *Tree) Repeat(in NodeID, n *RepeatNode) NodeID {
	id := t.add(n, KindRepeat, in)
	t.Adopt(n.Body, id)
	for _, c := range []*Cond{n.Until, n.Emit} {
		if c != nil && !c.All {
			t.Adopt(c.Sub, id)
		}
	}
	return id
}

func (n *RepeatNode) OutputType(t *Tree) valuetype.Type {
	types := []valuetype.Type{t.TypeOf(n.Body.End)}
	if n.UntilFirst || n.EmitFirst {
		types = append(types, t.TypeOf(n.Input()))
	}
	return valuetype.Merge(types...)
}

// PropLocal is false: the loop output unions rows from several places.
func (n *RepeatNode) PropLocal(*Tree) bool { return false }

func (n *RepeatNode) lower(l *lowerer, in *plan.SubPlan) (*plan.SubPlan, error) {
	x := in.Output()
	var exits []*plan.Vertex

	if n.EmitFirst && n.Emit != nil {
		e, _, err := l.cond(in, x, n.Emit, false)
		if err != nil {
			return nil, err
		}
		exits = append(exits, e)
	}
	enter := x
	if n.UntilFirst && n.Until != nil {
		leave, stay, err := l.cond(in, x, n.Until, true)
		if err != nil {
			return nil, err
		}
		exits = append(exits, leave)
		enter = stay
	}

	r := l.pb.NewVertex(plan.OpRepeat, nil)
	in.Connect(enter, r, plan.Forward())

	body, err := l.from(n.Body, r)
	if err != nil {
		return nil, err
	}
	y := body.Output()
	// Rows that satisfy until leave; the rest loop again and, if they pass
	// emit, also leave a copy.
	var leave *plan.Vertex
	feedback := y
	if n.Until != nil {
		if leave, feedback, err = l.cond(body, y, n.Until, true); err != nil {
			return nil, err
		}
	}
	if n.Emit != nil {
		e, _, err := l.cond(body, feedback, n.Emit, false)
		if err != nil {
			return nil, err
		}
		if leave == nil {
			leave = e
		} else {
			leave = l.union(body, []*plan.Vertex{leave, e})
		}
	}

	spec := &plan.LoopSpec{
		MaxLoops:   n.MaxLoops,
		Body:       plan.Assemble(body, nil, nil),
		FeedbackID: feedback.Resolve().ID,
	}
	if leave != nil {
		spec.LeaveID = leave.Resolve().ID
	}
	r.Loop = spec

	out := l.union(in, append([]*plan.Vertex{r}, exits...))
	in.SetOutput(out)
	return l.finish(n, in, out), nil
}
