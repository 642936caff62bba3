// Package builder turns a traversal into an IR tree. It visits steps
// through a dispatch table indexed by step kind, rewrites every traversal
// (nested ones included) right before visiting it, resolves schema names,
// and annotates each node with the flags lowering needs.
package builder

import (
	"errors"
	"fmt"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/label"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/tree"
)

// DefaultMaxLoops bounds a repeat with neither times() nor a loops() guard.
const DefaultMaxLoops = 1000

// DefaultMaxDepth bounds the nesting of sub-traversals.
const DefaultMaxDepth = 64

// Options tune one build.
type Options struct {
	// MaxLoops replaces DefaultMaxLoops when positive.
	MaxLoops int64
	// MaxDepth replaces DefaultMaxDepth when positive.
	MaxDepth int
}

// Result is a built tree and what lowering and assembly need from the
// build.
type Result struct {
	Tree   *tree.Tree
	Root   tree.NodeID
	Labels *label.Manager
	Config map[string]ir.IRValue
}

// buildContext is the state of one Build call. It is threaded by pointer;
// nested saves and restores the scoped fields around a sub-traversal.
type buildContext struct {
	tree   *tree.Tree
	labels *label.Manager
	schema schema.Schema
	config map[string]ir.IRValue

	maxLoops int64
	maxDepth int
	// tracksPath is set when the traversal reads paths anywhere.
	tracksPath bool

	scoped
	// pending is an aggregate or side-effect groupCount waiting for its cap.
	pending *sideEffect
	// deferred are labels a where() read before they were bound.
	deferred []string
}

// scoped is the part of the context a sub-traversal may change.
type scoped struct {
	rootPath  bool
	subquery  bool
	loopDepth int
	depth     int
	// keyed is set inside chains lowered under a ring key.
	keyed bool
	// match holds labels a where() traversal compares against instead of
	// binding.
	match map[string]bool
}

// scope is the kind of sub-traversal being visited.
type scope uint8

const (
	// scopeRing is a predicate, selector or by() traversal: its rows are
	// joined back and never extend the path.
	scopeRing scope = iota
	// scopeBranch is a union branch or branch option.
	scopeBranch
	// scopeCoalesce is a coalesce or optional branch, tagged with the
	// coalesce key.
	scopeCoalesce
	// scopeLoop is a repeat body.
	scopeLoop
)

// Build builds the tree of t. t must start with a source step.
func Build(t *traversal.Traversal, sc schema.Schema, opts Options) (*Result, error) {
	if t == nil || len(t.Steps) == 0 {
		return nil, ir.NewMalformed("", "empty traversal")
	}
	if err := t.Err(); err != nil {
		return nil, err
	}

	labels := label.NewManager()
	c := &buildContext{
		tree:       tree.New(labels),
		labels:     labels,
		schema:     sc,
		config:     make(map[string]ir.IRValue),
		maxLoops:   DefaultMaxLoops,
		maxDepth:   DefaultMaxDepth,
		tracksPath: readsPath(t),
	}
	if opts.MaxLoops > 0 {
		c.maxLoops = opts.MaxLoops
	}
	if opts.MaxDepth > 0 {
		c.maxDepth = opts.MaxDepth
	}
	c.rootPath = c.tracksPath

	root, err := c.chain(t, tree.NoNode)
	if err != nil {
		return nil, err
	}
	if c.pending != nil {
		return nil, ir.NewUnsupported(c.pending.step, "side effect %q is never read by cap()", c.pending.key)
	}
	for _, name := range c.deferred {
		if !labels.Bound(name) {
			return nil, ir.NewUnresolvedLabel("where", name)
		}
	}
	return &Result{Tree: c.tree, Root: root, Labels: labels, Config: c.config}, nil
}

// readsPath reports whether any step of t needs path history.
func readsPath(t *traversal.Traversal) bool {
	found := false
	traversal.Walk(t, func(_ int, s traversal.Step) bool {
		switch s.Kind() {
		case traversal.StepPath, traversal.StepSimplePath:
			found = true
		}
		return !found
	})
	return found
}

// chain visits the steps of t after in and returns the node that ends it.
func (c *buildContext) chain(t *traversal.Traversal, in tree.NodeID) (tree.NodeID, error) {
	t = traversal.Rewrite(t)
	if len(t.StartLabels) > 0 {
		if in == tree.NoNode {
			return tree.NoNode, ir.NewMalformed("as", "a root traversal cannot start with as()")
		}
		var err error
		if in, err = c.bind(in, t.StartLabels); err != nil {
			return tree.NoNode, err
		}
	}

	for _, s := range t.Steps {
		if in == tree.NoNode && s.Kind() != traversal.StepGraph {
			return tree.NoNode, ir.NewMalformed(s.Name(), "traversal must start with V() or E()")
		}
		if c.pending != nil && s.Kind() != traversal.StepCap {
			return tree.NoNode, ir.NewUnsupported(c.pending.step, "side effect %q must be followed by cap()", c.pending.key)
		}

		first := tree.NodeID(c.tree.Len())
		out, err := stepHandlers[s.Kind()](c, s, in)
		if err != nil {
			return tree.NoNode, attribute(err, s)
		}
		c.annotate(first, s)
		if in, err = c.bind(out, s.Base().Labels); err != nil {
			return tree.NoNode, err
		}
	}
	return in, nil
}

// attribute names the step an error came from unless it already names one.
func attribute(err error, s traversal.Step) error {
	var ce *ir.CompileError
	if errors.As(err, &ce) {
		return ce.WithStep(s.Name())
	}
	return fmt.Errorf("%s: %w", s.Name(), err)
}

// annotate sets the step name, subquery flag and path flag on the nodes a
// handler created at this level. Nodes of nested chains were annotated by
// their own visit.
func (c *buildContext) annotate(first tree.NodeID, s traversal.Step) {
	for id := first; int(id) < c.tree.Len(); id++ {
		b := c.tree.Node(id).Base()
		if b.Step != "" {
			continue
		}
		b.Step = s.Name()
		b.Subquery = c.subquery
		b.PathFlag = c.rootPath && changesHead(b.Kind())
	}
}

// changesHead reports whether a node of kind k emits a new path element.
func changesHead(k tree.Kind) bool {
	switch k {
	case tree.KindSource, tree.KindVertex, tree.KindEdgeVertex, tree.KindMap, tree.KindSelectOne:
		return true
	}
	return false
}

// bind binds names to the output of id. Inside a where() traversal, a
// name already bound outside it is compared instead: a WHERE_LABEL filter
// keeps rows whose head equals the bound value. bind returns the node that
// ends the chain.
func (c *buildContext) bind(id tree.NodeID, names []string) (tree.NodeID, error) {
	for _, name := range names {
		if c.match[name] {
			id = c.matchLabel(id, name)
			continue
		}
		if err := c.labels.BindUserLabel(name, int32(id)); err != nil {
			return tree.NoNode, err
		}
		b := c.tree.Node(id).Base()
		b.Labels = append(b.Labels, name)
	}
	return id, nil
}

func (c *buildContext) matchLabel(in tree.NodeID, name string) tree.NodeID {
	arg := &plan.Argument{
		Ints: []int64{int64(label.Head)},
		Comparisons: []plan.Comparison{
			{Target: plan.TargetLabelValue, Key: c.labels.Index(name), Op: ir.OpEq},
		},
	}
	id := c.tree.Filter(in, plan.OpWhereLabel, arg, false)
	b := c.tree.Node(id).Base()
	b.Step = "where"
	b.Subquery = c.subquery
	c.tree.MarkUsed(name, id)
	return id
}

// nested runs fn with the scoped state adjusted for a sub-traversal of
// kind s, and restores it afterwards.
func (c *buildContext) nested(s scope, fn func() error) error {
	saved, pending := c.scoped, c.pending
	defer func() { c.scoped = saved }()

	c.depth++
	if c.depth > c.maxDepth {
		return ir.NewUnsupported("", "sub-traversals nested deeper than %d", c.maxDepth)
	}
	c.subquery = true
	switch s {
	case scopeRing:
		c.rootPath = false
		c.keyed = true
	case scopeCoalesce:
		c.keyed = true
	case scopeLoop:
		c.loopDepth++
	}
	if err := fn(); err != nil {
		return err
	}
	if c.pending != pending {
		return ir.NewUnsupported(c.pending.step, "side effect %q must be read by cap() in the same traversal", c.pending.key)
	}
	return nil
}

// sub builds t as a nested chain over the rows of in. A nil t is the
// empty chain.
func (c *buildContext) sub(s scope, t *traversal.Traversal, in tree.NodeID) (tree.Chain, error) {
	var ch tree.Chain
	err := c.nested(s, func() error {
		var err error
		ch, err = c.subWith(in, func(d tree.NodeID) (tree.NodeID, error) {
			if t == nil {
				return d, nil
			}
			return c.chain(t, d)
		})
		return err
	})
	return ch, err
}

// subWith creates the delegate of a nested chain over in and lets build
// extend it. The caller is responsible for the scope.
func (c *buildContext) subWith(in tree.NodeID, build func(d tree.NodeID) (tree.NodeID, error)) (tree.Chain, error) {
	d := c.tree.Delegate(in, c.tree.PropLocal(in))
	b := c.tree.Node(d).Base()
	b.Step = "start"
	b.Subquery = true
	end, err := build(d)
	if err != nil {
		return tree.Chain{}, err
	}
	return tree.Chain{Start: d, End: end}, nil
}

// fresh mints a system label and gives it an index.
func (c *buildContext) fresh(prefix string) string {
	name := c.labels.FreshSystemLabel(prefix)
	c.labels.Index(name)
	return name
}

// schemaError turns a schema miss into a SchemaLookupFailure.
func schemaError(kind, name string, err error) error {
	if errors.Is(err, schema.ErrNotFound) {
		return ir.NewSchemaLookupFailure(kind, name)
	}
	return fmt.Errorf("schema lookup of %s %q: %w", kind, name, err)
}
