package traversal

import "fmt"

// StepKind identifies the kind of a traversal step. It is a closed set: the
// builder's dispatch table is indexed by StepKind and must have one entry per
// kind (see NumStepKinds).
//
// New kinds are appended immediately before NumStepKinds.
type StepKind uint8

const (
	StepGraph StepKind = iota
	StepVertex
	StepEdgeVertex
	StepEdgeOtherVertex
	StepHas
	StepIs
	StepAnd
	StepOr
	StepNot
	StepWherePredicate
	StepWhereTraversal
	StepTraversalFilter
	StepDedup
	StepRange
	StepTail
	StepCoin
	StepSample
	StepSimplePath
	StepID
	StepLabel
	StepConstant
	StepProperties
	StepPropertyMap
	StepPropertyKey
	StepPropertyValue
	StepSelectOne
	StepSelect
	StepPath
	StepCount
	StepSum
	StepMax
	StepMin
	StepMean
	StepFold
	StepUnfold
	StepOrder
	StepGroup
	StepGroupCount
	StepProject
	StepRepeat
	StepChoose
	StepOptional
	StepUnion
	StepCoalesce
	StepLocal
	StepMap
	StepFlatMap
	StepLoops
	StepAggregate
	StepCap
	StepIdentity
	StepBarrier
	StepConfig
	StepMath
	StepMatch
	StepSack
	StepSubgraph
	StepTree
	StepLambda
	StepAddVertex
	StepAddEdge
	StepDrop
	StepPropertyMutation
	StepInject
	StepShortestPath
	StepPageRank
	StepTimeLimit
	StepSideEffect
	StepProfile

	// NumStepKinds is the number of step kinds. It is not a valid kind.
	NumStepKinds
)

var stepKindNames = [NumStepKinds]string{
	StepGraph:            "graph",
	StepVertex:           "vertex",
	StepEdgeVertex:       "edgeVertex",
	StepEdgeOtherVertex:  "otherV",
	StepHas:              "has",
	StepIs:               "is",
	StepAnd:              "and",
	StepOr:               "or",
	StepNot:              "not",
	StepWherePredicate:   "wherePredicate",
	StepWhereTraversal:   "whereTraversal",
	StepTraversalFilter:  "filter",
	StepDedup:            "dedup",
	StepRange:            "range",
	StepTail:             "tail",
	StepCoin:             "coin",
	StepSample:           "sample",
	StepSimplePath:       "simplePath",
	StepID:               "id",
	StepLabel:            "label",
	StepConstant:         "constant",
	StepProperties:       "properties",
	StepPropertyMap:      "propertyMap",
	StepPropertyKey:      "key",
	StepPropertyValue:    "value",
	StepSelectOne:        "selectOne",
	StepSelect:           "select",
	StepPath:             "path",
	StepCount:            "count",
	StepSum:              "sum",
	StepMax:              "max",
	StepMin:              "min",
	StepMean:             "mean",
	StepFold:             "fold",
	StepUnfold:           "unfold",
	StepOrder:            "order",
	StepGroup:            "group",
	StepGroupCount:       "groupCount",
	StepProject:          "project",
	StepRepeat:           "repeat",
	StepChoose:           "choose",
	StepOptional:         "optional",
	StepUnion:            "union",
	StepCoalesce:         "coalesce",
	StepLocal:            "local",
	StepMap:              "map",
	StepFlatMap:          "flatMap",
	StepLoops:            "loops",
	StepAggregate:        "aggregate",
	StepCap:              "cap",
	StepIdentity:         "identity",
	StepBarrier:          "barrier",
	StepConfig:           "with",
	StepMath:             "math",
	StepMatch:            "match",
	StepSack:             "sack",
	StepSubgraph:         "subgraph",
	StepTree:             "tree",
	StepLambda:           "lambda",
	StepAddVertex:        "addV",
	StepAddEdge:          "addE",
	StepDrop:             "drop",
	StepPropertyMutation: "property",
	StepInject:           "inject",
	StepShortestPath:     "shortestPath",
	StepPageRank:         "pageRank",
	StepTimeLimit:        "timeLimit",
	StepSideEffect:       "sideEffect",
	StepProfile:          "profile",
}

func (k StepKind) String() string {
	if k < NumStepKinds {
		return stepKindNames[k]
	}
	return fmt.Sprintf("StepKind(%d)", k)
}

// ParseStepKind maps a kind name back to its StepKind.
func ParseStepKind(name string) (StepKind, bool) {
	for i, n := range stepKindNames {
		if n == name {
			return StepKind(i), true
		}
	}
	return 0, false
}

// AllStepKinds returns every valid kind in declaration order.
func AllStepKinds() []StepKind {
	kinds := make([]StepKind, NumStepKinds)
	for i := range kinds {
		kinds[i] = StepKind(i)
	}
	return kinds
}
