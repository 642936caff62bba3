package tree

import "fmt"

// Kind tags a node.
type Kind uint8

const (
	KindSource Kind = iota
	KindDelegate
	KindVertex
	KindEdgeVertex
	KindHas
	KindHasOr
	KindFilter
	KindDedup
	KindRange
	KindMap
	KindSelectOne
	KindSelect
	KindPath
	KindProject
	KindReduce
	KindOrder
	KindGroup
	KindGroupCount
	KindRing
	KindRepeat
	KindBranch
	KindUnion
	KindCoalesce
	numKinds
)

var kindNames = [numKinds]string{
	KindSource:     "source",
	KindDelegate:   "delegate",
	KindVertex:     "vertex",
	KindEdgeVertex: "edgeVertex",
	KindHas:        "has",
	KindHasOr:      "hasOr",
	KindFilter:     "filter",
	KindDedup:      "dedup",
	KindRange:      "range",
	KindMap:        "map",
	KindSelectOne:  "selectOne",
	KindSelect:     "select",
	KindPath:       "path",
	KindProject:    "project",
	KindReduce:     "reduce",
	KindOrder:      "order",
	KindGroup:      "group",
	KindGroupCount: "groupCount",
	KindRing:       "ring",
	KindRepeat:     "repeat",
	KindBranch:     "branch",
	KindUnion:      "union",
	KindCoalesce:   "coalesce",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}
