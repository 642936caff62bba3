// Package valuetype describes the semantic shape of the values flowing
// between traversal steps: graph elements, scalars of a data type, lists,
// maps, map entries and variant unions of those.
//
// Types are plain values. Two types are equal when their canonical String()
// forms are equal; Merge relies on this to deduplicate.
package valuetype

import (
	"fmt"
	"strings"
)

// DataType is the scalar kind of a property or computed value.
type DataType uint8

const (
	Unknown DataType = iota
	Bool
	Int
	Long
	Float
	Double
	String
	Bytes
	Date
	numDataTypes
)

var dataTypeNames = [numDataTypes]string{
	Unknown: "unknown",
	Bool:    "bool",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	String:  "string",
	Bytes:   "bytes",
	Date:    "date",
}

func (d DataType) String() string {
	if d < numDataTypes {
		return dataTypeNames[d]
	}
	return fmt.Sprintf("DataType(%d)", d)
}

// ParseDataType maps a schema type name to a DataType.
func ParseDataType(name string) (DataType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range dataTypeNames {
		if n == name {
			return DataType(i), true
		}
	}
	return Unknown, false
}

// Numeric reports whether values of d can be summed or averaged.
func (d DataType) Numeric() bool {
	switch d {
	case Int, Long, Float, Double:
		return true
	}
	return false
}

// Type is a sealed interface; only the types in this package implement it.
type Type interface {
	valueType()
	String() string
}

// VertexType is a graph vertex.
type VertexType struct{}

// EdgeType is a graph edge.
type EdgeType struct{}

// PropertyType is a property object (key plus value) as returned by properties().
type PropertyType struct{}

// ScalarType is a single value of a data type.
type ScalarType struct {
	Kind DataType
}

// ListType is an ordered collection.
type ListType struct {
	Elem Type
}

// MapType is a keyed collection.
type MapType struct {
	Key   Type
	Value Type
}

// EntryType is one key/value pair of a map, produced by unfolding it.
type EntryType struct {
	Key   Type
	Value Type
}

// VariantType is a tagged union of distinct types. Build it with Merge so
// the no-duplicate, no-nesting invariant holds.
type VariantType struct {
	Types []Type
}

func (VertexType) valueType()   {}
func (EdgeType) valueType()     {}
func (PropertyType) valueType() {}
func (ScalarType) valueType()   {}
func (ListType) valueType()     {}
func (MapType) valueType()      {}
func (EntryType) valueType()    {}
func (VariantType) valueType()  {}

func (VertexType) String() string   { return "vertex" }
func (EdgeType) String() string     { return "edge" }
func (PropertyType) String() string { return "property" }
func (s ScalarType) String() string { return s.Kind.String() }
func (l ListType) String() string   { return "list<" + str(l.Elem) + ">" }
func (m MapType) String() string    { return "map<" + str(m.Key) + "," + str(m.Value) + ">" }
func (e EntryType) String() string  { return "entry<" + str(e.Key) + "," + str(e.Value) + ">" }

func (v VariantType) String() string {
	parts := make([]string, len(v.Types))
	for i, t := range v.Types {
		parts[i] = str(t)
	}
	return "variant<" + strings.Join(parts, "|") + ">"
}

func str(t Type) string {
	if t == nil {
		return Scalar(Unknown).String()
	}
	return t.String()
}

// Convenience constructors.
var (
	Vertex   Type = VertexType{}
	Edge     Type = EdgeType{}
	Property Type = PropertyType{}
)

// Scalar returns the scalar type of kind d.
func Scalar(d DataType) Type { return ScalarType{Kind: d} }

// List returns list<elem>.
func List(elem Type) Type { return ListType{Elem: elem} }

// Map returns map<key,value>.
func Map(key, value Type) Type { return MapType{Key: key, Value: value} }

// Equal reports whether a and b describe the same shape.
func Equal(a, b Type) bool {
	return str(a) == str(b)
}

// Merge combines types into one: the single type when all inputs agree,
// otherwise a VariantType of the distinct types in first-occurrence order.
// Nested variants are flattened. Merge of nothing is scalar unknown.
func Merge(types ...Type) Type {
	var out []Type
	seen := make(map[string]bool)
	var add func(t Type)
	add = func(t Type) {
		if t == nil {
			t = Scalar(Unknown)
		}
		if v, ok := t.(VariantType); ok {
			for _, inner := range v.Types {
				add(inner)
			}
			return
		}
		key := t.String()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, t)
	}
	for _, t := range types {
		add(t)
	}

	switch len(out) {
	case 0:
		return Scalar(Unknown)
	case 1:
		return out[0]
	default:
		return VariantType{Types: out}
	}
}

// IsElement reports whether t is a vertex or an edge, or a variant made
// only of those.
func IsElement(t Type) bool {
	switch v := t.(type) {
	case VertexType, EdgeType:
		return true
	case VariantType:
		for _, inner := range v.Types {
			if !IsElement(inner) {
				return false
			}
		}
		return len(v.Types) > 0
	}
	return false
}

// Unfold returns the type produced by unfolding a value of type t: the
// element of a list, an entry of a map, or t itself.
func Unfold(t Type) Type {
	switch v := t.(type) {
	case ListType:
		return v.Elem
	case MapType:
		return EntryType{Key: v.Key, Value: v.Value}
	case VariantType:
		parts := make([]Type, len(v.Types))
		for i, inner := range v.Types {
			parts[i] = Unfold(inner)
		}
		return Merge(parts...)
	}
	return t
}

// NumericResult is the type of sum() over values of type t: the scalar kind
// itself when numeric, double otherwise.
func NumericResult(t Type) Type {
	if s, ok := t.(ScalarType); ok && s.Kind.Numeric() {
		return s
	}
	return Scalar(Double)
}
