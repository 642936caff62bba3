package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// LoadFile reads the traversal documents of a CUE file. A file holds
// either one document at its top level or several under queries:
//
//	queries: {
//		friends: {traversal: [...]}
//		oldest:  {traversal: [...]}
//	}
//
// Documents without a name are named after the file or their queries
// field.
func LoadFile(path string) ([]*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return LoadBytes(path, data)
}

// LoadBytes is LoadFile over in-memory source; filename is used for
// positions and the default document name.
func LoadBytes(filename string, data []byte) ([]*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var docs []*Document

	if v.LookupPath(cue.ParsePath("traversal")).Exists() {
		doc, err := Decode(v)
		if err != nil {
			return nil, err
		}
		if doc.Name == "" {
			doc.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		}
		docs = append(docs, doc)
	}

	if queries := v.LookupPath(cue.ParsePath("queries")); queries.Exists() {
		iter, err := queries.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			doc, err := Decode(iter.Value())
			if err != nil {
				return nil, err
			}
			if doc.Name == "" {
				doc.Name = iter.Selector().Unquoted()
			}
			docs = append(docs, doc)
		}
	}

	if len(docs) == 0 {
		return nil, errorf("traversal", v.Pos(), "%s holds no traversal or queries", filename)
	}
	return docs, nil
}
