package ingest

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/traversal"
)

// stepValue is one step struct of a traversal list.
type stepValue struct {
	field string
	v     cue.Value
}

func (s stepValue) errorf(format string, args ...any) *DecodeError {
	return errorf(s.field, s.v.Pos(), format, args...)
}

func (s stepValue) lookup(name string) (cue.Value, bool) {
	v := s.v.LookupPath(cue.ParsePath(name))
	return v, v.Exists()
}

func (s stepValue) str(name string) (string, error) {
	v, ok, err := s.optStr(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", s.errorf("%s is required", name)
	}
	return v, nil
}

func (s stepValue) optStr(name string) (string, bool, error) {
	v, ok := s.lookup(name)
	if !ok {
		return "", false, nil
	}
	str, err := v.String()
	if err != nil {
		return "", false, errorf(s.field+"."+name, v.Pos(), "expected a string")
	}
	return str, true, nil
}

func (s stepValue) strings(name string) ([]string, error) {
	v, ok := s.lookup(name)
	if !ok {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, errorf(s.field+"."+name, v.Pos(), "expected a list of strings")
	}
	var out []string
	for iter.Next() {
		str, err := iter.Value().String()
		if err != nil {
			return nil, errorf(s.field+"."+name, iter.Value().Pos(), "expected a string")
		}
		out = append(out, str)
	}
	return out, nil
}

func (s stepValue) literals(name string) ([]ir.IRValue, error) {
	v, ok := s.lookup(name)
	if !ok {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, errorf(s.field+"."+name, v.Pos(), "expected a list")
	}
	var out []ir.IRValue
	for iter.Next() {
		val, err := literal(s.field+"."+name, iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

func (s stepValue) ints(name string) ([]int64, error) {
	v, ok := s.lookup(name)
	if !ok {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, errorf(s.field+"."+name, v.Pos(), "expected a list of integers")
	}
	var out []int64
	for iter.Next() {
		n, err := iter.Value().Int64()
		if err != nil {
			return nil, errorf(s.field+"."+name, iter.Value().Pos(), "expected an integer")
		}
		out = append(out, n)
	}
	return out, nil
}

// count reads the single integer argument of limit(), times() and the like.
func (s stepValue) count() (int64, error) {
	args, err := s.ints("args")
	if err != nil {
		return 0, err
	}
	if len(args) != 1 {
		return 0, s.errorf("expected one integer argument, got %d", len(args))
	}
	return args[0], nil
}

func (s stepValue) float(name string) (float64, error) {
	v, ok := s.lookup(name)
	if !ok {
		return 0, s.errorf("%s is required", name)
	}
	f, err := v.Float64()
	if err != nil {
		return 0, errorf(s.field+"."+name, v.Pos(), "expected a number")
	}
	return f, nil
}

// flag reads an optional boolean, treating anything but true as false.
func (s stepValue) flag(name string) bool {
	v, ok := s.lookup(name)
	if !ok {
		return false
	}
	b, err := v.Bool()
	return err == nil && b
}

func (s stepValue) lit(name string) (ir.IRValue, bool, error) {
	v, ok := s.lookup(name)
	if !ok {
		return nil, false, nil
	}
	val, err := literal(s.field+"."+name, v)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// pred reads the step's predicate: a pred struct, or a bare value meaning
// equality.
func (s stepValue) pred() (traversal.Predicate, error) {
	if v, ok := s.lookup("pred"); ok {
		return predicate(s.field+".pred", v)
	}
	val, ok, err := s.lit("value")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.errorf("pred or value is required")
	}
	return &traversal.Compare{Op: ir.OpEq, Value: val}, nil
}

var pops = map[string]traversal.Pop{
	"first": traversal.PopFirst,
	"last":  traversal.PopLast,
	"all":   traversal.PopAll,
	"mixed": traversal.PopMixed,
}

func (s stepValue) pop() (traversal.Pop, error) {
	name, ok, err := s.optStr("pop")
	if err != nil || !ok {
		return traversal.PopNone, err
	}
	p, known := pops[name]
	if !known {
		return traversal.PopNone, s.errorf("unknown pop %q", name)
	}
	return p, nil
}

func (s stepValue) sub(name string) (*traversal.Traversal, error) {
	t, ok, err := s.optSub(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.errorf("%s is required", name)
	}
	return t, nil
}

func (s stepValue) optSub(name string) (*traversal.Traversal, bool, error) {
	v, ok := s.lookup(name)
	if !ok {
		return nil, false, nil
	}
	t, err := decodeList(s.field+"."+name, v)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (s stepValue) subs(name string) ([]*traversal.Traversal, error) {
	v, ok := s.lookup(name)
	if !ok {
		return nil, s.errorf("%s is required", name)
	}
	iter, err := v.List()
	if err != nil {
		return nil, errorf(s.field+"."+name, v.Pos(), "expected a list of traversals")
	}
	var out []*traversal.Traversal
	for i := 0; iter.Next(); i++ {
		t, err := decodeList(fmt.Sprintf("%s.%s[%d]", s.field, name, i), iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
