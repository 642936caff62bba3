package plan

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Explain renders the plan as deterministic text, one vertex per line:
//
//	output=5
//	1 SOURCE_VERTEX cmp=[label eq 3] range=[0,5) global_stop
//	2 OUT ints=[3] <- 1 FORWARD
//
// Loop bodies follow their REPEAT vertex, indented. The label and config
// tables close the listing.
func (lp *LogicalPlan) Explain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "output=%d\n", lp.OutputID)
	lp.explain(&b, "")

	if len(lp.Labels) > 0 {
		names := make([]string, 0, len(lp.Labels))
		for name := range lp.Labels {
			names = append(names, name)
		}
		slices.SortFunc(names, func(a, c string) int { return int(lp.Labels[a] - lp.Labels[c]) })
		b.WriteString("labels:")
		for _, name := range names {
			fmt.Fprintf(&b, " %s=%d", name, lp.Labels[name])
		}
		b.WriteByte('\n')
	}
	if len(lp.Config) > 0 {
		keys := make([]string, 0, len(lp.Config))
		for k := range lp.Config {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		b.WriteString("config:")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, lp.Config[k])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (lp *LogicalPlan) explain(b *strings.Builder, indent string) {
	inputs := make(map[int32][]Edge)
	for _, e := range lp.Edges {
		inputs[e.To] = append(inputs[e.To], e)
	}

	for _, v := range lp.Vertices {
		b.WriteString(indent)
		b.WriteString(itoa(v.ID))
		b.WriteByte(' ')
		b.WriteString(v.Op.String())
		if v.Arg != nil {
			b.WriteString(explainArgument(v.Arg))
		}
		if v.Range != nil {
			fmt.Fprintf(b, " range=[%d,%s)", v.Range.Low, bound(v.Range.High))
		}
		if v.EarlyStop.GlobalStop {
			b.WriteString(" global_stop")
		}
		if v.EarlyStop.GlobalFilter {
			b.WriteString(" global_filter")
		}
		writeRequirements(b, "before", v.Before)
		writeRequirements(b, "after", v.After)
		if in := inputs[v.ID]; len(in) > 0 {
			b.WriteString(" <-")
			for i, e := range in {
				if i > 0 {
					b.WriteByte(',')
				}
				fmt.Fprintf(b, " %d %s", e.From, e.Shuffle)
			}
		}
		b.WriteByte('\n')

		if v.Loop != nil {
			fmt.Fprintf(b, "%s  loop max=%d leave=%d feedback=%d\n", indent, v.Loop.MaxLoops, v.Loop.LeaveID, v.Loop.FeedbackID)
			if v.Loop.Body != nil {
				v.Loop.Body.explain(b, indent+"    ")
			}
		}
	}
}

func explainArgument(a *Argument) string {
	var b strings.Builder
	if a.Value != nil {
		b.WriteString(" value=" + a.Value.String())
	}
	if len(a.Ints) > 0 {
		parts := make([]string, len(a.Ints))
		for i, n := range a.Ints {
			parts[i] = strconv.FormatInt(n, 10)
		}
		b.WriteString(" ints=[" + strings.Join(parts, ",") + "]")
	}
	if len(a.Strings) > 0 {
		parts := make([]string, len(a.Strings))
		for i, s := range a.Strings {
			parts[i] = strconv.Quote(s)
		}
		b.WriteString(" strings=[" + strings.Join(parts, ",") + "]")
	}
	if len(a.Comparisons) > 0 {
		b.WriteString(" cmp=[" + explainComparisons(a.Comparisons) + "]")
	}
	if len(a.Disjunction) > 0 {
		terms := make([]string, len(a.Disjunction))
		for i, conj := range a.Disjunction {
			terms[i] = "[" + explainComparisons(conj) + "]"
		}
		b.WriteString(" or=[" + strings.Join(terms, " | ") + "]")
	}
	if len(a.Payload) > 0 {
		b.WriteString(" payload=" + string(a.Payload))
	}
	if a.Flag {
		b.WriteString(" local")
	}
	return b.String()
}

func explainComparisons(cs []Comparison) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// String renders the comparison as "target op value", with the property
// id or label index after a '#' for keyed targets.
func (c Comparison) String() string {
	target := c.Target.String()
	if c.Target == TargetProp || c.Target == TargetLabelValue {
		target += "#" + itoa(c.Key)
	}
	if c.Value == nil {
		return target + " " + c.Op.String()
	}
	return target + " " + c.Op.String() + " " + c.Value.String()
}

func writeRequirements(b *strings.Builder, where string, rs []Requirement) {
	for _, r := range rs {
		b.WriteString(" " + where + ":" + r.Kind.String())
		if len(r.Labels) > 0 {
			b.WriteString("[" + joinInts(r.Labels) + "]")
		}
		if len(r.Props) > 0 {
			b.WriteString("{" + joinInts(r.Props) + "}")
		}
	}
}

func joinInts(ns []int32) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = itoa(n)
	}
	return strings.Join(parts, ",")
}

func bound(n int64) string {
	if n < 0 {
		return "*"
	}
	return strconv.FormatInt(n, 10)
}
