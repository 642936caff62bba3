// Package ingest reads traversals from CUE documents. A document holds a
// traversal as a list of step structs, each naming its step and carrying
// the step's arguments:
//
//	name: "friends"
//	config: {timeout: 30}
//	traversal: [
//		{step: "V"},
//		{step: "hasLabel", args: ["person"]},
//		{step: "out", args: ["knows"]},
//		{step: "has", key: "age", pred: {op: "gt", value: 30}},
//		{step: "where", traversal: [{step: "out", args: ["created"]}]},
//		{step: "values", args: ["name"]},
//	]
//
// Nested traversals are nested lists. Config entries become with() steps
// right after the source step.
package ingest

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/traversal"
)

// Document is one decoded traversal.
type Document struct {
	Name      string
	Traversal *traversal.Traversal
	Config    map[string]ir.IRValue
}

// Decode reads a document from v, which must hold a traversal field.
func Decode(v cue.Value) (*Document, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	doc := &Document{}

	// Parse name (optional)
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		doc.Name = name
	}

	// Parse traversal (required)
	tVal := v.LookupPath(cue.ParsePath("traversal"))
	if !tVal.Exists() {
		return nil, errorf("traversal", v.Pos(), "traversal is required")
	}
	t, err := decodeList("traversal", tVal)
	if err != nil {
		return nil, err
	}
	if len(t.Steps) == 0 {
		return nil, errorf("traversal", tVal.Pos(), "traversal has no steps")
	}

	// Parse config (optional)
	if cfgVal := v.LookupPath(cue.ParsePath("config")); cfgVal.Exists() {
		iter, err := cfgVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		doc.Config = make(map[string]ir.IRValue)
		var steps []traversal.Step
		for iter.Next() {
			key := iter.Selector().Unquoted()
			val, err := literal("config."+key, iter.Value())
			if err != nil {
				return nil, err
			}
			doc.Config[key] = val
			steps = append(steps, &traversal.ConfigStep{Key: key, Value: val})
		}
		t.Steps = append(t.Steps[:1], append(steps, t.Steps[1:]...)...)
	}

	doc.Traversal = t
	return doc, nil
}

// decodeList decodes a list of step structs into a traversal.
func decodeList(field string, v cue.Value) (*traversal.Traversal, error) {
	iter, err := v.List()
	if err != nil {
		return nil, errorf(field, v.Pos(), "expected a list of steps")
	}
	t := traversal.Anon()
	for i := 0; iter.Next(); i++ {
		s := stepValue{field: fmt.Sprintf("%s[%d]", field, i), v: iter.Value()}
		if t, err = decodeStep(t, s); err != nil {
			return nil, err
		}
	}
	if err := t.Err(); err != nil {
		return nil, errorf(field, v.Pos(), "%v", err)
	}
	return t, nil
}

func decodeStep(t *traversal.Traversal, s stepValue) (*traversal.Traversal, error) {
	name, err := s.str("step")
	if err != nil {
		return nil, err
	}

	switch name {
	// Sources
	case "V", "E":
		ids, err := s.literals("args")
		if err != nil {
			return nil, err
		}
		return t.Append(&traversal.GraphStep{Edges: name == "E", IDs: ids}), nil

	// Navigation
	case "out", "in", "both", "outE", "inE", "bothE":
		labels, err := s.strings("args")
		if err != nil {
			return nil, err
		}
		return navigate(t, name, labels), nil
	case "outV":
		return t.OutV(), nil
	case "inV":
		return t.InV(), nil
	case "bothV":
		return t.BothV(), nil
	case "otherV":
		return t.OtherV(), nil

	// Filters
	case "has":
		key, err := s.str("key")
		if err != nil {
			return nil, err
		}
		p, err := s.pred()
		if err != nil {
			return nil, err
		}
		return t.Has(key, p), nil
	case "hasLabel":
		labels, err := s.strings("args")
		if err != nil {
			return nil, err
		}
		if len(labels) == 0 {
			return nil, s.errorf("hasLabel needs at least one label")
		}
		return t.HasLabel(labels...), nil
	case "hasId":
		ids, err := s.literals("args")
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, s.errorf("hasId needs at least one id")
		}
		anyIDs := make([]any, len(ids))
		for i, id := range ids {
			anyIDs[i] = id
		}
		return t.HasID(anyIDs...), nil
	case "is":
		p, err := s.pred()
		if err != nil {
			return nil, err
		}
		return t.Is(p), nil
	case "and", "or":
		subs, err := s.subs("traversals")
		if err != nil {
			return nil, err
		}
		if name == "and" {
			return t.And(subs...), nil
		}
		return t.Or(subs...), nil
	case "not", "filter":
		sub, err := s.sub("traversal")
		if err != nil {
			return nil, err
		}
		if name == "not" {
			return t.Not(sub), nil
		}
		return t.Filter(sub), nil
	case "where":
		return decodeWhere(t, s)
	case "dedup":
		keys, err := s.strings("args")
		if err != nil {
			return nil, err
		}
		return t.Dedup(keys...), nil
	case "limit", "skip", "tail", "sample":
		n, err := s.count()
		if err != nil {
			return nil, err
		}
		return limit(t, name, n, s.flag("local")), nil
	case "range":
		bounds, err := s.ints("args")
		if err != nil {
			return nil, err
		}
		if len(bounds) != 2 {
			return nil, s.errorf("range needs two bounds, got %d", len(bounds))
		}
		if s.flag("local") {
			return t.RangeLocal(bounds[0], bounds[1]), nil
		}
		return t.Range(bounds[0], bounds[1]), nil
	case "coin":
		p, err := s.float("value")
		if err != nil {
			return nil, err
		}
		return t.Coin(p), nil
	case "simplePath":
		return t.SimplePath(), nil
	case "cyclicPath":
		return t.CyclicPath(), nil

	// Maps
	case "id":
		return t.ID(), nil
	case "label":
		return t.Label(), nil
	case "key":
		return t.Key(), nil
	case "value":
		return t.Value(), nil
	case "identity":
		return t.Identity(), nil
	case "barrier":
		return t.Barrier(), nil
	case "loops":
		return t.Loops(), nil
	case "fold":
		return t.Fold(), nil
	case "unfold":
		return t.Unfold(), nil
	case "path":
		return t.Path(), nil
	case "constant":
		v, ok, err := s.lit("value")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, s.errorf("constant needs a value")
		}
		return t.Constant(v), nil
	case "values", "properties", "valueMap", "elementMap":
		keys, err := s.strings("args")
		if err != nil {
			return nil, err
		}
		return properties(t, name, keys), nil
	case "select":
		keys, err := s.strings("args")
		if err != nil {
			return nil, err
		}
		pop, err := s.pop()
		if err != nil {
			return nil, err
		}
		return t.SelectPop(pop, keys...), nil

	// Reducers
	case "count", "sum", "max", "min", "mean":
		return reduce(t, name, s.flag("local")), nil
	case "order":
		if s.flag("local") {
			return t.OrderLocal(), nil
		}
		return t.Order(), nil
	case "group":
		return t.Group(), nil
	case "groupCount":
		keys, err := s.strings("args")
		if err != nil {
			return nil, err
		}
		return t.GroupCount(keys...), nil
	case "project":
		keys, err := s.strings("args")
		if err != nil {
			return nil, err
		}
		return t.Project(keys...), nil
	case "by":
		return decodeBy(t, s)

	// Branches and loops
	case "repeat":
		body, err := s.sub("traversal")
		if err != nil {
			return nil, err
		}
		return t.Repeat(body), nil
	case "until":
		cond, err := s.sub("traversal")
		if err != nil {
			return nil, err
		}
		return t.Until(cond), nil
	case "emit":
		cond, ok, err := s.optSub("traversal")
		if err != nil {
			return nil, err
		}
		if !ok {
			return t.Emit(), nil
		}
		return t.Emit(cond), nil
	case "times":
		n, err := s.count()
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, s.errorf("times() needs a positive count, got %d", n)
		}
		return t.Times(n), nil
	case "choose":
		return decodeChoose(t, s)
	case "option":
		return decodeOption(t, s)
	case "union", "coalesce":
		subs, err := s.subs("traversals")
		if err != nil {
			return nil, err
		}
		if name == "union" {
			return t.Union(subs...), nil
		}
		return t.Coalesce(subs...), nil
	case "optional", "local", "map", "flatMap":
		sub, err := s.sub("traversal")
		if err != nil {
			return nil, err
		}
		return scope(t, name, sub), nil

	// Side effects and modulators
	case "aggregate", "store":
		key, err := s.str("key")
		if err != nil {
			return nil, err
		}
		if name == "store" {
			return t.Store(key), nil
		}
		return t.Aggregate(key), nil
	case "cap":
		keys, err := s.strings("args")
		if err != nil {
			return nil, err
		}
		return t.Cap(keys...), nil
	case "with":
		key, err := s.str("key")
		if err != nil {
			return nil, err
		}
		v, ok, err := s.lit("value")
		if err != nil {
			return nil, err
		}
		if !ok {
			v = ir.IRBool(true)
		}
		return t.With(key, v), nil
	case "as":
		labels, err := s.strings("args")
		if err != nil {
			return nil, err
		}
		if len(labels) == 0 {
			return nil, s.errorf("as needs at least one label")
		}
		return t.As(labels...), nil
	}

	// Steps without a document form of their own keep their kind and
	// are rejected by the compiler if it cannot lower them.
	if kind, ok := traversal.ParseStepKind(name); ok {
		detail, _, err := s.optStr("detail")
		if err != nil {
			return nil, err
		}
		return t.Opaque(kind, detail), nil
	}
	return nil, errorf(s.field+".step", s.v.Pos(), "unknown step %q", name)
}

func navigate(t *traversal.Traversal, name string, labels []string) *traversal.Traversal {
	switch name {
	case "in":
		return t.In(labels...)
	case "both":
		return t.Both(labels...)
	case "outE":
		return t.OutE(labels...)
	case "inE":
		return t.InE(labels...)
	case "bothE":
		return t.BothE(labels...)
	default:
		return t.Out(labels...)
	}
}

func limit(t *traversal.Traversal, name string, n int64, local bool) *traversal.Traversal {
	switch name {
	case "skip":
		return t.Skip(n)
	case "tail":
		return t.Tail(n)
	case "sample":
		return t.Sample(n)
	}
	if local {
		return t.LimitLocal(n)
	}
	return t.Limit(n)
}

func properties(t *traversal.Traversal, name string, keys []string) *traversal.Traversal {
	switch name {
	case "properties":
		return t.Properties(keys...)
	case "valueMap":
		return t.ValueMap(keys...)
	case "elementMap":
		return t.ElementMap(keys...)
	default:
		return t.Values(keys...)
	}
}

func reduce(t *traversal.Traversal, name string, local bool) *traversal.Traversal {
	switch {
	case name == "sum" && local:
		return t.SumLocal()
	case name == "sum":
		return t.Sum()
	case name == "max" && local:
		return t.MaxLocal()
	case name == "max":
		return t.Max()
	case name == "min" && local:
		return t.MinLocal()
	case name == "min":
		return t.Min()
	case name == "mean" && local:
		return t.MeanLocal()
	case name == "mean":
		return t.Mean()
	case local:
		return t.CountLocal()
	default:
		return t.Count()
	}
}

func scope(t *traversal.Traversal, name string, sub *traversal.Traversal) *traversal.Traversal {
	switch name {
	case "local":
		return t.Local(sub)
	case "map":
		return t.Map(sub)
	case "flatMap":
		return t.FlatMap(sub)
	default:
		return t.Optional(sub)
	}
}

// decodeWhere reads where(traversal), where(pred) and where(start, pred).
func decodeWhere(t *traversal.Traversal, s stepValue) (*traversal.Traversal, error) {
	if sub, ok, err := s.optSub("traversal"); err != nil {
		return nil, err
	} else if ok {
		return t.Where(sub), nil
	}
	p, err := s.pred()
	if err != nil {
		return nil, err
	}
	start, _, err := s.optStr("start")
	if err != nil {
		return nil, err
	}
	return t.WhereKeyP(start, p), nil
}

var tokens = map[string]traversal.Token{
	"id":    traversal.TokenID,
	"label": traversal.TokenLabel,
	"key":   traversal.TokenKey,
	"value": traversal.TokenValue,
}

var orders = map[string]traversal.Order{
	"asc":     traversal.Asc,
	"desc":    traversal.Desc,
	"shuffle": traversal.Shuffle,
}

// decodeBy reads a by() modulator: identity, a key, a token or a
// traversal, with an optional order.
func decodeBy(t *traversal.Traversal, s stepValue) (*traversal.Traversal, error) {
	var args []any
	if key, ok, err := s.optStr("key"); err != nil {
		return nil, err
	} else if ok {
		args = append(args, key)
	}
	if name, ok, err := s.optStr("token"); err != nil {
		return nil, err
	} else if ok {
		tok, known := tokens[name]
		if !known {
			return nil, s.errorf("unknown token %q", name)
		}
		args = append(args, tok)
	}
	if sub, ok, err := s.optSub("traversal"); err != nil {
		return nil, err
	} else if ok {
		args = append(args, sub)
	}
	if len(args) > 1 {
		return nil, s.errorf("by takes one of key, token or traversal")
	}
	if name, ok, err := s.optStr("order"); err != nil {
		return nil, err
	} else if ok {
		o, known := orders[name]
		if !known {
			return nil, s.errorf("unknown order %q", name)
		}
		args = append(args, o)
	}
	return t.By(args...), nil
}

// decodeChoose reads choose(selector) and, with three traversals,
// choose(predicate, onTrue, onFalse).
func decodeChoose(t *traversal.Traversal, s stepValue) (*traversal.Traversal, error) {
	if sel, ok, err := s.optSub("traversal"); err != nil {
		return nil, err
	} else if ok {
		return t.Choose(sel), nil
	}
	subs, err := s.subs("traversals")
	if err != nil {
		return nil, err
	}
	if len(subs) != 3 {
		return nil, s.errorf("choose needs a traversal or three traversals, got %d", len(subs))
	}
	return t.ChooseIf(subs[0], subs[1], subs[2]), nil
}

func decodeOption(t *traversal.Traversal, s stepValue) (*traversal.Traversal, error) {
	branch, err := s.sub("traversal")
	if err != nil {
		return nil, err
	}
	if name, ok, err := s.optStr("token"); err != nil {
		return nil, err
	} else if ok {
		switch name {
		case "none":
			return t.Option(traversal.PickNone, branch), nil
		case "any":
			return t.Option(traversal.PickAny, branch), nil
		default:
			return nil, s.errorf("unknown option token %q", name)
		}
	}
	pick, ok, err := s.lit("pick")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.errorf("option needs a pick or a token")
	}
	return t.Option(pick, branch), nil
}
