package builder

import (
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/tree"
)

// stepHandler builds the node(s) for one step after in and returns the node
// that now ends the chain. Hint and configuration steps return in.
type stepHandler func(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error)

// stepHandlers has one entry per step kind. It is filled in init because
// the handlers recurse back into the table. The array literal is sized by
// its highest index, so assigning it to the NumStepKinds-sized table does
// not compile unless the last kind has an entry; TestStepHandlersComplete
// catches gaps.
var stepHandlers [traversal.NumStepKinds]stepHandler

func init() {
	stepHandlers = [...]stepHandler{
		traversal.StepGraph:            buildSource,
		traversal.StepVertex:           buildVertex,
		traversal.StepEdgeVertex:       buildEdgeVertex,
		traversal.StepEdgeOtherVertex:  buildEdgeVertex,
		traversal.StepHas:              buildHas,
		traversal.StepIs:               buildHas,
		traversal.StepAnd:              buildAnd,
		traversal.StepOr:               buildOr,
		traversal.StepNot:              buildNot,
		traversal.StepWherePredicate:   buildWherePredicate,
		traversal.StepWhereTraversal:   buildWhereTraversal,
		traversal.StepTraversalFilter:  buildTraversalFilter,
		traversal.StepDedup:            buildDedup,
		traversal.StepRange:            buildRange,
		traversal.StepTail:             buildSampling,
		traversal.StepCoin:             buildSampling,
		traversal.StepSample:           buildSampling,
		traversal.StepSimplePath:       buildSimplePath,
		traversal.StepID:               buildToken,
		traversal.StepLabel:            buildToken,
		traversal.StepConstant:         buildConstant,
		traversal.StepProperties:       buildProperties,
		traversal.StepPropertyMap:      buildPropertyMap,
		traversal.StepPropertyKey:      buildPropertyKey,
		traversal.StepPropertyValue:    buildPropertyValue,
		traversal.StepSelectOne:        buildSelectOne,
		traversal.StepSelect:           buildSelect,
		traversal.StepPath:             buildPath,
		traversal.StepCount:            buildReduce,
		traversal.StepSum:              buildReduce,
		traversal.StepMax:              buildReduce,
		traversal.StepMin:              buildReduce,
		traversal.StepMean:             buildReduce,
		traversal.StepFold:             buildFold,
		traversal.StepUnfold:           buildUnfold,
		traversal.StepOrder:            buildOrder,
		traversal.StepGroup:            buildGroup,
		traversal.StepGroupCount:       buildGroupCount,
		traversal.StepProject:          buildProject,
		traversal.StepRepeat:           buildRepeat,
		traversal.StepChoose:           buildChoose,
		traversal.StepOptional:         buildOptional,
		traversal.StepUnion:            buildUnion,
		traversal.StepCoalesce:         buildCoalesce,
		traversal.StepLocal:            buildScope,
		traversal.StepMap:              buildScope,
		traversal.StepFlatMap:          buildScope,
		traversal.StepLoops:            buildLoops,
		traversal.StepAggregate:        buildAggregate,
		traversal.StepCap:              buildCap,
		traversal.StepIdentity:         passThrough,
		traversal.StepBarrier:          passThrough,
		traversal.StepConfig:           buildConfig,
		traversal.StepMath:             unsupported,
		traversal.StepMatch:            unsupported,
		traversal.StepSack:             unsupported,
		traversal.StepSubgraph:         unsupported,
		traversal.StepTree:             unsupported,
		traversal.StepLambda:           unsupported,
		traversal.StepAddVertex:        unsupported,
		traversal.StepAddEdge:          unsupported,
		traversal.StepDrop:             unsupported,
		traversal.StepPropertyMutation: unsupported,
		traversal.StepInject:           unsupported,
		traversal.StepShortestPath:     unsupported,
		traversal.StepPageRank:         unsupported,
		traversal.StepTimeLimit:        unsupported,
		traversal.StepSideEffect:       unsupported,
		traversal.StepProfile:          unsupported,
	}
}

// Supported reports whether steps of kind k can be compiled at all. Some
// supported kinds still reject particular shapes.
func Supported(k traversal.StepKind) bool {
	if k >= traversal.NumStepKinds {
		return false
	}
	h := stepHandlers[k]
	return h != nil && !isUnsupported(k)
}

func isUnsupported(k traversal.StepKind) bool {
	switch k {
	case traversal.StepMath, traversal.StepMatch, traversal.StepSack, traversal.StepSubgraph,
		traversal.StepTree, traversal.StepLambda, traversal.StepAddVertex, traversal.StepAddEdge,
		traversal.StepDrop, traversal.StepPropertyMutation, traversal.StepInject,
		traversal.StepShortestPath, traversal.StepPageRank, traversal.StepTimeLimit,
		traversal.StepSideEffect, traversal.StepProfile:
		return true
	}
	return false
}

func unsupported(_ *buildContext, s traversal.Step, _ tree.NodeID) (tree.NodeID, error) {
	return tree.NoNode, ir.NewUnsupported(s.Name(), "%s() has no lowering", s.Name())
}

// passThrough handles hint steps that survive the rewrites, such as a
// labeled identity.
func passThrough(_ *buildContext, _ traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	return in, nil
}

func buildConfig(c *buildContext, s traversal.Step, in tree.NodeID) (tree.NodeID, error) {
	cfg := s.(*traversal.ConfigStep)
	c.config[cfg.Key] = cfg.Value
	return in, nil
}

func buildLoops(_ *buildContext, s traversal.Step, _ tree.NodeID) (tree.NodeID, error) {
	return tree.NoNode, ir.NewUnsupported(s.Name(), "loops() is only supported as the bound of repeat().until()")
}
