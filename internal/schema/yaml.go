package schema

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gplan/internal/valuetype"
)

// File is the YAML form of a schema:
//
//	labels:
//	  person: 1
//	properties:
//	  name: {id: 1, types: [string]}
type File struct {
	Labels     map[string]int32        `yaml:"labels"`
	Properties map[string]PropertyFile `yaml:"properties"`
}

// PropertyFile is one property entry of a File.
type PropertyFile struct {
	ID    int32    `yaml:"id"`
	Types []string `yaml:"types"`
}

// LoadYAML reads a schema file. Unknown fields, unknown data type names and
// duplicate ids are errors.
func LoadYAML(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML parses the YAML form of a schema.
func ParseYAML(data []byte) (*Static, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}
	return f.Static()
}

// Static validates f and builds the in-memory schema.
func (f *File) Static() (*Static, error) {
	s := NewStatic()

	seen := make(map[int32]string)
	for _, name := range sortedKeys(f.Labels) {
		id := f.Labels[name]
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("labels %q and %q share id %d", prev, name, id)
		}
		seen[id] = name
		s.AddLabel(name, id)
	}

	clear(seen)
	for _, name := range sortedKeys(f.Properties) {
		p := f.Properties[name]
		if prev, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("properties %q and %q share id %d", prev, name, p.ID)
		}
		seen[p.ID] = name
		types := make([]valuetype.DataType, 0, len(p.Types))
		for _, tn := range p.Types {
			dt, ok := valuetype.ParseDataType(tn)
			if !ok {
				return nil, fmt.Errorf("property %q: unknown data type %q", name, tn)
			}
			types = append(types, dt)
		}
		s.AddProperty(name, p.ID, types...)
	}
	return s, nil
}
