// Package label tracks the named bindings of one compilation: which IR nodes
// produce a value under a name, the stable integer index the plan uses for
// it, and the merged value type a reader of the name sees.
//
// A Manager is compilation-scoped. It is not safe for concurrent use and
// must never be shared between compilations.
package label

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/traversal"
	"github.com/roach88/gplan/internal/valuetype"
)

const (
	// Head is the index of the traverser's current value.
	Head int32 = 0

	// Unresolved is returned by FilterIndex for names with no index yet.
	Unresolved int32 = -1

	// SystemPrefix starts every synthesized label. User labels may not use it.
	SystemPrefix = "~"
)

// IsSystem reports whether name is a synthesized label.
func IsSystem(name string) bool {
	return strings.HasPrefix(name, SystemPrefix)
}

// Manager owns label indices and producer bindings for one compilation.
//
// Indices are allocated from 1 upward in first-use order and are never
// reassigned: Index(name) returns the same value for the lifetime of the
// Manager.
type Manager struct {
	indices   map[string]int32
	producers map[string][]int32
	next      int32
	counter   int
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		indices:   make(map[string]int32),
		producers: make(map[string][]int32),
		next:      1,
	}
}

// BindUserLabel records that node produces a value visible as name. A name
// may be bound many times (union branches, loop bodies); bindings are
// accumulated in order.
func (m *Manager) BindUserLabel(name string, node int32) error {
	if name == "" {
		return ir.NewMalformed("as", "empty label")
	}
	if IsSystem(name) {
		return ir.NewMalformed("as", "label %q uses the reserved prefix %q", name, SystemPrefix)
	}
	m.bind(name, node)
	return nil
}

// BindSystemLabel records a producer for a name minted by FreshSystemLabel.
func (m *Manager) BindSystemLabel(name string, node int32) {
	if !IsSystem(name) {
		panic(fmt.Sprintf("label: %q is not a system label", name))
	}
	m.bind(name, node)
}

func (m *Manager) bind(name string, node int32) {
	m.producers[name] = append(m.producers[name], node)
	m.Index(name)
}

// Index returns the stable index of name, allocating one on first use.
func (m *Manager) Index(name string) int32 {
	if idx, ok := m.indices[name]; ok {
		return idx
	}
	idx := m.next
	m.next++
	m.indices[name] = idx
	return idx
}

// FilterIndex returns the index of name, or Unresolved when name has none
// yet. Filters that may be satisfied structurally (by a keyed join rather
// than an index lookup) use it to tolerate names bound later.
func (m *Manager) FilterIndex(name string) int32 {
	if idx, ok := m.indices[name]; ok {
		return idx
	}
	return Unresolved
}

// FreshSystemLabel mints a new synthesized name. System names start with
// SystemPrefix, which BindUserLabel rejects, so they never collide with
// user labels.
func (m *Manager) FreshSystemLabel(prefix string) string {
	m.counter++
	return fmt.Sprintf("%s%s_%d", SystemPrefix, prefix, m.counter)
}

// Bound reports whether name has at least one producer.
func (m *Manager) Bound(name string) bool {
	return len(m.producers[name]) > 0
}

// Producers returns the nodes bound to name, in binding order.
func (m *Manager) Producers(name string) []int32 {
	return slices.Clone(m.producers[name])
}

// ValueType returns the type a reader of name sees under pop:
//   - first/last: the type of the first/last producer
//   - all: a list of the merged producer types
//   - mixed or none: the merged producer types
//
// typeOf resolves a producer node to its output type. A name with no
// producers is an UnresolvedLabel error.
func (m *Manager) ValueType(name string, pop traversal.Pop, typeOf func(node int32) valuetype.Type) (valuetype.Type, error) {
	nodes := m.producers[name]
	if len(nodes) == 0 {
		return nil, ir.NewUnresolvedLabel("select", name)
	}

	switch pop {
	case traversal.PopFirst:
		return typeOf(nodes[0]), nil
	case traversal.PopLast:
		return typeOf(nodes[len(nodes)-1]), nil
	}

	types := make([]valuetype.Type, len(nodes))
	for i, n := range nodes {
		types[i] = typeOf(n)
	}
	merged := valuetype.Merge(types...)
	if pop == traversal.PopAll {
		return valuetype.List(merged), nil
	}
	return merged, nil
}

// Names returns the name-to-index table of every label that was given an
// index.
func (m *Manager) Names() map[string]int32 {
	return maps.Clone(m.indices)
}

// SortedNames returns label names ordered by index.
func (m *Manager) SortedNames() []string {
	names := slices.Collect(maps.Keys(m.indices))
	slices.SortFunc(names, func(a, b string) int {
		return int(m.indices[a] - m.indices[b])
	})
	return names
}
