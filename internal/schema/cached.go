package schema

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/roach88/gplan/internal/valuetype"
)

// Cached memoizes the lookups of a slower Schema, such as the SQLite
// catalog, across concurrent compilations. Misses are not cached.
type Cached struct {
	inner  Schema
	props  *xsync.MapOf[string, int32]
	labels *xsync.MapOf[string, int32]
	types  *xsync.MapOf[string, []valuetype.DataType]
}

// NewCached wraps inner.
func NewCached(inner Schema) *Cached {
	return &Cached{
		inner:  inner,
		props:  xsync.NewMapOf[string, int32](),
		labels: xsync.NewMapOf[string, int32](),
		types:  xsync.NewMapOf[string, []valuetype.DataType](),
	}
}

func (c *Cached) PropertyID(name string) (int32, error) {
	return lookup(c.props, name, c.inner.PropertyID)
}

func (c *Cached) ElementLabelID(name string) (int32, error) {
	return lookup(c.labels, name, c.inner.ElementLabelID)
}

func (c *Cached) PropertyDataTypes(name string) ([]valuetype.DataType, error) {
	return lookup(c.types, name, c.inner.PropertyDataTypes)
}

// Len returns the number of cached entries.
func (c *Cached) Len() int {
	return c.props.Size() + c.labels.Size() + c.types.Size()
}

func lookup[V any](m *xsync.MapOf[string, V], name string, load func(string) (V, error)) (V, error) {
	if v, ok := m.Load(name); ok {
		return v, nil
	}
	v, err := load(name)
	if err != nil {
		return v, err
	}
	m.Store(name, v)
	return v, nil
}
