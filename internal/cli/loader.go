package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/gplan/internal/ingest"
	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/store"
)

// Query is one traversal document and the file it came from.
type Query struct {
	File string
	Doc  *ingest.Document
}

// LoadError is an input file that could not be turned into queries.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadQueries reads every query document under paths. A path is a CUE
// file or a directory searched recursively for them. All files are read
// and every failure is collected; queries keep file order, then document
// order within a file.
func LoadQueries(paths []string) ([]Query, []error) {
	var files []string
	var errs []error
	for _, path := range paths {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			errs = append(errs, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)})
			continue
		}
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)})
			continue
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		found, err := FindCUEFiles(path)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)})
			continue
		}
		if len(found) == 0 {
			errs = append(errs, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)})
			continue
		}
		files = append(files, found...)
	}

	var queries []Query
	for _, file := range files {
		docs, err := ingest.LoadFile(file)
		if err != nil {
			errs = append(errs, convertDecodeError(err))
			continue
		}
		for _, doc := range docs {
			queries = append(queries, Query{File: file, Doc: doc})
		}
	}
	return queries, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func convertDecodeError(err error) *LoadError {
	var de *ingest.DecodeError
	if errors.As(err, &de) {
		return &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: fmt.Sprintf("%s: %s", de.Field, de.Message),
			Pos:     de.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// failLoad reports a single load or schema error and exits 2.
func failLoad(formatter *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return formatter.Fail(ExitCommandError, le.Code, le.Message, nil)
	}
	return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}

// errorDetails renders errs as CLI errors for JSON output.
func errorDetails(errs []error) []CLIError {
	out := make([]CLIError, len(errs))
	for i, err := range errs {
		var le *LoadError
		if errors.As(err, &le) {
			out[i] = CLIError{Code: le.Code, Message: le.Error()}
			continue
		}
		out[i] = CLIError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	return out
}

// SchemaSource names where a command reads its schema from.
type SchemaSource struct {
	SchemaFile string // YAML schema
	DB         string // SQLite catalog
}

// Open resolves the source into a schema. The YAML file wins when both are
// set. The returned store is non-nil whenever DB is set and must be closed
// by the caller.
func (s SchemaSource) Open() (schema.Schema, *store.Store, error) {
	var st *store.Store
	if s.DB != "" {
		var err error
		st, err = store.Open(s.DB)
		if err != nil {
			return nil, nil, &LoadError{Code: ErrCodeStore, Message: err.Error()}
		}
	}

	if s.SchemaFile != "" {
		sc, err := schema.LoadYAML(s.SchemaFile)
		if err != nil {
			if st != nil {
				st.Close()
			}
			return nil, nil, &LoadError{Code: ErrCodeSchema, Message: err.Error()}
		}
		return sc, st, nil
	}
	if st != nil {
		return schema.NewCached(st), st, nil
	}
	return nil, nil, &LoadError{Code: ErrCodeSchema, Message: "a schema is required: pass --schema or --db"}
}
