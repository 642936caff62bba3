package traversal

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders one step with its parameters. The output is stable and
// includes every parameter that affects compilation, so it doubles as the
// step's identity when fingerprinting traversals.
func Format(s Step) string {
	var args []string
	switch v := s.(type) {
	case *GraphStep:
		for _, id := range v.IDs {
			args = append(args, id.String())
		}
		out := v.Name() + "(" + strings.Join(args, ",") + ")"
		for _, c := range v.Containers {
			out += ".has(" + c.String() + ")"
		}
		return out + labelSuffix(s)
	case *VertexStep:
		args = quoted(v.EdgeLabels)
	case *HasStep:
		for _, c := range v.Containers {
			args = append(args, c.String())
		}
	case *IsStep:
		args = []string{v.Pred.String()}
	case *AndStep:
		args = traversals(v.Traversals)
	case *OrStep:
		args = traversals(v.Traversals)
	case *NotStep:
		args = traversals([]*Traversal{v.Traversal})
	case *WherePredicateStep:
		if v.StartKey != "" {
			args = append(args, strconv.Quote(v.StartKey))
		}
		args = append(args, v.Op.String()+"("+quoteAll(v.Keys)+")")
		return v.Name() + "(" + strings.Join(args, ",") + ")" + bys(v.By) + labelSuffix(s)
	case *WhereTraversalStep:
		args = traversals([]*Traversal{v.Traversal})
	case *FilterStep:
		args = traversals([]*Traversal{v.Traversal})
	case *DedupStep:
		args = quoted(v.Keys)
		return v.Name() + "(" + strings.Join(args, ",") + ")" + optBy(v.By) + labelSuffix(s)
	case *RangeStep:
		if v.Local {
			args = append(args, "local")
		}
		args = append(args, strconv.FormatInt(v.Low, 10), strconv.FormatInt(v.High, 10))
		return "range(" + strings.Join(args, ",") + ")" + labelSuffix(s)
	case *TailStep:
		args = []string{strconv.FormatInt(v.N, 10)}
	case *CoinStep:
		args = []string{strconv.FormatFloat(v.Probability, 'g', -1, 64)}
	case *SampleStep:
		args = []string{strconv.FormatInt(v.N, 10)}
	case *ConstantStep:
		args = []string{v.Value.String()}
	case *PropertiesStep:
		args = quoted(v.Keys)
	case *PropertyMapStep:
		args = quoted(v.Keys)
	case *SelectOneStep:
		args = popArgs(v.Pop, []string{v.Key})
		return v.Name() + "(" + strings.Join(args, ",") + ")" + optBy(v.By) + labelSuffix(s)
	case *SelectStep:
		args = popArgs(v.Pop, v.Keys)
		return v.Name() + "(" + strings.Join(args, ",") + ")" + bys(v.By) + labelSuffix(s)
	case *PathStep:
		return v.Name() + "()" + bys(v.By) + labelSuffix(s)
	case *ReduceStep:
		if v.Local {
			args = []string{"local"}
		}
	case *OrderStep:
		if v.Local {
			args = []string{"local"}
		}
		return v.Name() + "(" + strings.Join(args, ",") + ")" + bys(v.By) + labelSuffix(s)
	case *GroupStep:
		return v.Name() + "()" + bys(v.By) + labelSuffix(s)
	case *GroupCountStep:
		if v.SideEffectKey != "" {
			args = []string{strconv.Quote(v.SideEffectKey)}
		}
		return v.Name() + "(" + strings.Join(args, ",") + ")" + optBy(v.By) + labelSuffix(s)
	case *ProjectStep:
		return v.Name() + "(" + quoteAll(v.Keys) + ")" + bys(v.By) + labelSuffix(s)
	case *RepeatStep:
		return formatRepeat(v) + labelSuffix(s)
	case *ChooseStep:
		out := v.Name() + "(" + v.Selector.String() + ")"
		for _, o := range v.Options {
			out += ".option(" + o.String() + "," + o.Traversal.String() + ")"
		}
		return out + labelSuffix(s)
	case *OptionalStep:
		args = traversals([]*Traversal{v.Traversal})
	case *UnionStep:
		args = traversals(v.Traversals)
	case *CoalesceStep:
		args = traversals(v.Traversals)
	case *ScopeStep:
		args = traversals([]*Traversal{v.Traversal})
	case *LoopsStep:
		if v.Bound != nil {
			return "loops().is(" + v.Bound.String() + ")" + labelSuffix(s)
		}
	case *AggregateStep:
		args = []string{strconv.Quote(v.Key)}
	case *CapStep:
		args = quoted(v.Keys)
	case *ConfigStep:
		args = []string{strconv.Quote(v.Key), v.Value.String()}
	case *OpaqueStep:
		if v.Detail != "" {
			args = []string{strconv.Quote(v.Detail)}
		}
	}
	return s.Name() + "(" + strings.Join(args, ",") + ")" + labelSuffix(s)
}

func formatRepeat(r *RepeatStep) string {
	var b strings.Builder
	if r.UntilFirst && r.Until != nil {
		fmt.Fprintf(&b, "until(%s).", r.Until)
	}
	if r.EmitFirst {
		b.WriteString(emitString(r) + ".")
	}
	fmt.Fprintf(&b, "repeat(%s)", r.Body)
	if r.HasTimes {
		fmt.Fprintf(&b, ".times(%d)", r.Times)
	}
	if !r.UntilFirst && r.Until != nil {
		fmt.Fprintf(&b, ".until(%s)", r.Until)
	}
	if !r.EmitFirst && (r.EmitAll || r.Emit != nil) {
		b.WriteString("." + emitString(r))
	}
	return b.String()
}

func emitString(r *RepeatStep) string {
	if r.Emit != nil {
		return "emit(" + r.Emit.String() + ")"
	}
	return "emit()"
}

func labelSuffix(s Step) string {
	labels := s.Base().Labels
	if len(labels) == 0 {
		return ""
	}
	return ".as(" + quoteAll(labels) + ")"
}

func popArgs(p Pop, keys []string) []string {
	var args []string
	if p != PopNone {
		args = append(args, p.String())
	}
	return append(args, quoted(keys)...)
}

func bys(bs []By) string {
	var b strings.Builder
	for _, by := range bs {
		b.WriteString("." + by.String())
	}
	return b.String()
}

func optBy(b *By) string {
	if b == nil {
		return ""
	}
	return "." + b.String()
}

func traversals(ts []*Traversal) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}

func quoted(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strconv.Quote(s)
	}
	return out
}

func quoteAll(ss []string) string {
	return strings.Join(quoted(ss), ",")
}
