package ingest

import (
	"cuelang.org/go/cue"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/traversal"
)

// literal converts a concrete CUE value into an IR value.
func literal(field string, v cue.Value) (ir.IRValue, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		val, err := ir.Of(f)
		if err != nil {
			return nil, errorf(field, v.Pos(), "%v", err)
		}
		return val, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for iter.Next() {
			elem, err := literal(field, iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			key := iter.Selector().Unquoted()
			elem, err := literal(field+"."+key, iter.Value())
			if err != nil {
				return nil, err
			}
			obj[key] = elem
		}
		return obj, nil
	default:
		return nil, errorf(field, v.Pos(), "value must be concrete, got %v", v.IncompleteKind())
	}
}

// predicate decodes {op: "gt", value: 3}, {and: [...]} or {or: [...]}.
func predicate(field string, v cue.Value) (traversal.Predicate, error) {
	for _, join := range []string{"and", "or"} {
		terms := v.LookupPath(cue.ParsePath(join))
		if !terms.Exists() {
			continue
		}
		iter, err := terms.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		c := &traversal.Connective{Or: join == "or"}
		for iter.Next() {
			p, err := predicate(field+"."+join, iter.Value())
			if err != nil {
				return nil, err
			}
			c.Terms = append(c.Terms, p)
		}
		if len(c.Terms) == 0 {
			return nil, errorf(field, v.Pos(), "%s needs at least one predicate", join)
		}
		return c, nil
	}

	opVal := v.LookupPath(cue.ParsePath("op"))
	if !opVal.Exists() {
		return nil, errorf(field, v.Pos(), "predicate needs op, and or or")
	}
	name, err := opVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	op, ok := ir.ParseCompareOp(name)
	if !ok {
		return nil, errorf(field+".op", opVal.Pos(), "unknown compare op %q", name)
	}

	valueVal := v.LookupPath(cue.ParsePath("value"))
	if !valueVal.Exists() {
		return nil, errorf(field, v.Pos(), "predicate %s needs a value", name)
	}
	value, err := literal(field+".value", valueVal)
	if err != nil {
		return nil, err
	}
	switch op {
	case ir.OpWithin, ir.OpWithout:
		if _, isList := value.(ir.IRArray); !isList {
			value = ir.IRArray{value}
		}
	case ir.OpBetween, ir.OpInside, ir.OpOutside:
		if arr, isList := value.(ir.IRArray); !isList || len(arr) != 2 {
			return nil, errorf(field+".value", valueVal.Pos(), "%s needs a two element list", name)
		}
	}
	return &traversal.Compare{Op: op, Value: value}, nil
}
