// Package schema is the property and label catalog the compiler resolves
// names against. Every lookup is total over the names a traversal uses:
// a missing name is reported with ErrNotFound, never defaulted.
package schema

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/gplan/internal/valuetype"
)

// ErrNotFound is wrapped by every lookup of an unknown name.
var ErrNotFound = errors.New("schema: name not found")

// Schema resolves property and element label names.
type Schema interface {
	PropertyID(name string) (int32, error)
	ElementLabelID(name string) (int32, error)
	// PropertyDataTypes returns the value types a property is declared
	// with; several when the property is overloaded across labels.
	PropertyDataTypes(name string) ([]valuetype.DataType, error)
}

// Property is one declared property.
type Property struct {
	ID    int32
	Types []valuetype.DataType
}

// Static is an in-memory Schema. It is safe for concurrent reads once
// built.
type Static struct {
	mu     sync.RWMutex
	labels map[string]int32
	props  map[string]Property
}

// NewStatic returns an empty Static schema.
func NewStatic() *Static {
	return &Static{
		labels: make(map[string]int32),
		props:  make(map[string]Property),
	}
}

// AddLabel declares an element label.
func (s *Static) AddLabel(name string, id int32) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[name] = id
	return s
}

// AddProperty declares a property.
func (s *Static) AddProperty(name string, id int32, types ...valuetype.DataType) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[name] = Property{ID: id, Types: types}
	return s
}

func (s *Static) PropertyID(name string) (int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.props[name]
	if !ok {
		return 0, NotFound("property", name)
	}
	return p.ID, nil
}

func (s *Static) ElementLabelID(name string) (int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.labels[name]
	if !ok {
		return 0, NotFound("label", name)
	}
	return id, nil
}

func (s *Static) PropertyDataTypes(name string) ([]valuetype.DataType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.props[name]
	if !ok {
		return nil, NotFound("property", name)
	}
	return slices.Clone(p.Types), nil
}

// Labels returns the declared labels, sorted by name.
func (s *Static) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.labels)
}

// Properties returns the declared properties, sorted by name.
func (s *Static) Properties() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.props)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// NotFound wraps ErrNotFound for a missing name of the given kind
// ("property" or "label").
func NotFound(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
}
