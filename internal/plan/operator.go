package plan

import "fmt"

// OperatorKind tags what a vertex does.
type OperatorKind uint8

const (
	OpSourceVertex OperatorKind = iota
	OpSourceEdge

	OpOut
	OpIn
	OpBoth
	OpOutE
	OpInE
	OpBothE
	OpOutV
	OpInV
	OpBothV
	OpOtherV

	OpHas
	OpHasOr
	OpDedup
	OpDedupLocal
	OpRange
	OpTail
	OpCoin
	OpSample
	OpSimplePath
	OpCyclicPath
	OpWhereLabel

	OpID
	OpLabel
	OpConstant
	OpPropValue
	OpProperties
	OpPropMap
	OpPropKey
	OpPropFill
	OpSelectOne
	OpSelect
	OpPath
	OpUnfold
	OpProject

	OpCount
	OpSum
	OpMax
	OpMin
	OpMean
	OpFold
	OpOrder
	OpGroup
	OpGroupCount

	OpEnterKey
	OpJoinLabel
	OpJoinDirectFilter
	OpJoinDirectFilterNegate
	OpUnion
	OpRepeat

	numOperatorKinds
)

var operatorNames = [numOperatorKinds]string{
	OpSourceVertex:           "SOURCE_VERTEX",
	OpSourceEdge:             "SOURCE_EDGE",
	OpOut:                    "OUT",
	OpIn:                     "IN",
	OpBoth:                   "BOTH",
	OpOutE:                   "OUT_E",
	OpInE:                    "IN_E",
	OpBothE:                  "BOTH_E",
	OpOutV:                   "OUT_V",
	OpInV:                    "IN_V",
	OpBothV:                  "BOTH_V",
	OpOtherV:                 "OTHER_V",
	OpHas:                    "HAS",
	OpHasOr:                  "HAS_OR",
	OpDedup:                  "DEDUP",
	OpDedupLocal:             "DEDUP_LOCAL",
	OpRange:                  "RANGE",
	OpTail:                   "TAIL",
	OpCoin:                   "COIN",
	OpSample:                 "SAMPLE",
	OpSimplePath:             "SIMPLE_PATH",
	OpCyclicPath:             "CYCLIC_PATH",
	OpWhereLabel:             "WHERE_LABEL",
	OpID:                     "ID",
	OpLabel:                  "LABEL",
	OpConstant:               "CONSTANT",
	OpPropValue:              "PROP_VALUE",
	OpProperties:             "PROPERTIES",
	OpPropMap:                "PROP_MAP",
	OpPropKey:                "PROP_KEY",
	OpPropFill:               "PROP_FILL",
	OpSelectOne:              "SELECT_ONE",
	OpSelect:                 "SELECT",
	OpPath:                   "PATH",
	OpUnfold:                 "UNFOLD",
	OpProject:                "PROJECT",
	OpCount:                  "COUNT",
	OpSum:                    "SUM",
	OpMax:                    "MAX",
	OpMin:                    "MIN",
	OpMean:                   "MEAN",
	OpFold:                   "FOLD",
	OpOrder:                  "ORDER",
	OpGroup:                  "GROUP",
	OpGroupCount:             "GROUP_COUNT",
	OpEnterKey:               "ENTER_KEY",
	OpJoinLabel:              "JOIN_LABEL",
	OpJoinDirectFilter:       "JOIN_DIRECT_FILTER",
	OpJoinDirectFilterNegate: "JOIN_DIRECT_FILTER_NEGATE",
	OpUnion:                  "UNION",
	OpRepeat:                 "REPEAT",
}

func (k OperatorKind) String() string {
	if k < numOperatorKinds {
		return operatorNames[k]
	}
	return fmt.Sprintf("OperatorKind(%d)", k)
}

// ParseOperatorKind looks an operator up by its String name.
func ParseOperatorKind(name string) (OperatorKind, bool) {
	for k, n := range operatorNames {
		if n == name {
			return OperatorKind(k), true
		}
	}
	return 0, false
}

// MarshalText encodes the kind by name.
func (k OperatorKind) MarshalText() ([]byte, error) {
	if k >= numOperatorKinds {
		return nil, fmt.Errorf("invalid operator kind %d", k)
	}
	return []byte(operatorNames[k]), nil
}

// Arity is the number of in-edges a vertex of this kind takes.
func (k OperatorKind) Arity() int {
	switch k {
	case OpSourceVertex, OpSourceEdge:
		return 0
	case OpJoinLabel, OpJoinDirectFilter, OpJoinDirectFilterNegate, OpUnion:
		return 2
	default:
		return 1
	}
}

// IsSource reports whether the kind starts a plan.
func (k OperatorKind) IsSource() bool { return k.Arity() == 0 }

// IsFlatMap reports whether the kind moves from an element to adjacent
// elements, producing zero or more rows per input.
func (k OperatorKind) IsFlatMap() bool {
	return k >= OpOut && k <= OpOtherV
}

// RequirementKind tags a before/after directive on a vertex.
type RequirementKind uint8

const (
	// LabelStart stores the vertex output under the listed label indices.
	LabelStart RequirementKind = iota
	// LabelDel frees the listed label indices.
	LabelDel
	// PathAdd appends the input head to the traverser path.
	PathAdd
	// KeyDel drops the listed join keys.
	KeyDel
)

var requirementNames = [...]string{
	LabelStart: "LABEL_START",
	LabelDel:   "LABEL_DEL",
	PathAdd:    "PATH_ADD",
	KeyDel:     "KEY_DEL",
}

func (k RequirementKind) String() string {
	if int(k) < len(requirementNames) {
		return requirementNames[k]
	}
	return fmt.Sprintf("RequirementKind(%d)", k)
}

func (k RequirementKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ShuffleKind is the data movement policy of an edge.
type ShuffleKind uint8

const (
	ShuffleUnspecified ShuffleKind = iota
	ShuffleForward
	ShuffleByKey
	ShuffleByConst
)

var shuffleNames = [...]string{
	ShuffleUnspecified: "UNSPECIFIED",
	ShuffleForward:     "FORWARD",
	ShuffleByKey:       "BY_KEY",
	ShuffleByConst:     "BY_CONST",
}

func (k ShuffleKind) String() string {
	if int(k) < len(shuffleNames) {
		return shuffleNames[k]
	}
	return fmt.Sprintf("ShuffleKind(%d)", k)
}

func (k ShuffleKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// CompareTarget is what a structured comparison reads from the row.
type CompareTarget uint8

const (
	// TargetProp reads the property whose id is Comparison.Key.
	TargetProp CompareTarget = iota
	TargetID
	TargetLabel
	// TargetValue reads the head value itself.
	TargetValue
	// TargetKey reads the key of a property head.
	TargetKey
	// TargetLabelValue reads the value stored under label index Comparison.Key.
	TargetLabelValue
)

var targetNames = [...]string{
	TargetProp:       "prop",
	TargetID:         "id",
	TargetLabel:      "label",
	TargetValue:      "value",
	TargetKey:        "key",
	TargetLabelValue: "label_value",
}

func (t CompareTarget) String() string {
	if int(t) < len(targetNames) {
		return targetNames[t]
	}
	return fmt.Sprintf("CompareTarget(%d)", t)
}

func (t CompareTarget) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
