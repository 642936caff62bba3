package tree

import (
	"encoding/json"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/valuetype"
)

// KeyKind says what a KeySpec reads.
type KeyKind uint8

const (
	// KeyHead reads the value itself.
	KeyHead KeyKind = iota
	// KeyProp reads property Prop of the element.
	KeyProp
	// KeyToken reads a built-in attribute (id, label, key, value).
	KeyToken
	// KeyLabel reads the value stored under label index Label, typically a
	// system label filled by a value ring.
	KeyLabel
	// KeyReduce reduces a collected group with the named step.
	KeyReduce
)

var keyKindNames = [...]string{
	KeyHead:   "head",
	KeyProp:   "prop",
	KeyToken:  "token",
	KeyLabel:  "label",
	KeyReduce: "reduce",
}

// KeySpec is a resolved by() modulator: what an order, group, dedup,
// project, select or path operator reads from each row. It is encoded into
// the vertex payload as canonical JSON.
type KeySpec struct {
	Kind   KeyKind
	Prop   int32
	Token  traversal.Token
	Label  int32
	Reduce string
	Order  traversal.Order
	// Type is the type of the value read. It is not part of the payload.
	Type valuetype.Type
}

// HeadKey reads the value itself.
func HeadKey(typ valuetype.Type) KeySpec { return KeySpec{Kind: KeyHead, Type: typ} }

// PropKey reads a property.
func PropKey(prop int32, typ valuetype.Type) KeySpec {
	return KeySpec{Kind: KeyProp, Prop: prop, Type: typ}
}

// TokenKey reads a built-in attribute.
func TokenKey(tok traversal.Token, typ valuetype.Type) KeySpec {
	return KeySpec{Kind: KeyToken, Token: tok, Type: typ}
}

// LabelKey reads a label value.
func LabelKey(idx int32, typ valuetype.Type) KeySpec {
	return KeySpec{Kind: KeyLabel, Label: idx, Type: typ}
}

// ReduceKey reduces a group's values with step.
func ReduceKey(step string, typ valuetype.Type) KeySpec {
	return KeySpec{Kind: KeyReduce, Reduce: step, Type: typ}
}

func (k KeySpec) canonical(withOrder bool) map[string]any {
	out := map[string]any{"kind": keyKindNames[k.Kind]}
	switch k.Kind {
	case KeyProp:
		out["prop"] = k.Prop
	case KeyToken:
		out["token"] = k.Token.String()
	case KeyLabel:
		out["label"] = k.Label
	case KeyReduce:
		out["reduce"] = k.Reduce
	}
	if withOrder {
		out["order"] = k.Order.String()
	}
	return out
}

// propsOf returns the property ids the specs read from the head.
func propsOf(specs ...KeySpec) []int32 {
	var out []int32
	for _, k := range specs {
		if k.Kind == KeyProp {
			out = append(out, k.Prop)
		}
	}
	return out
}

// keyPayload encodes specs as a canonical JSON list.
func keyPayload(specs []KeySpec, withOrder bool) (json.RawMessage, error) {
	list := make([]any, len(specs))
	for i, k := range specs {
		list[i] = k.canonical(withOrder)
	}
	return ir.MarshalCanonical(list)
}

// objectPayload encodes named specs as a canonical JSON object.
func objectPayload(fields map[string]KeySpec) (json.RawMessage, error) {
	obj := make(map[string]any, len(fields))
	for name, k := range fields {
		obj[name] = k.canonical(false)
	}
	return ir.MarshalCanonical(obj)
}
