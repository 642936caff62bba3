package ir

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// CompileError is the single error type raised while compiling a traversal.
// Every failure is fatal: the compilation that raised it produces no plan.
//
// CompileError carries enough context (offending step and/or label) for a
// caller to render a diagnostic without re-inspecting the traversal.
type CompileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Step is the name of the offending traversal step, when known.
	Step string

	// Label is the offending label or schema name, when relevant.
	Label string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes compile errors.
type ErrorCode string

const (
	// CodeUnresolvedLabel indicates a pop-qualified name was never bound.
	CodeUnresolvedLabel ErrorCode = "UNRESOLVED_LABEL"

	// CodeUnsupportedFeature indicates a step or step combination has no lowering rule.
	CodeUnsupportedFeature ErrorCode = "UNSUPPORTED_FEATURE"

	// CodeMalformedTraversal indicates a structural assumption was violated.
	CodeMalformedTraversal ErrorCode = "MALFORMED_TRAVERSAL"

	// CodeSchemaLookupFailure indicates a property or label name is absent from the schema.
	CodeSchemaLookupFailure ErrorCode = "SCHEMA_LOOKUP_FAILURE"
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)

	var ctx []string
	if e.Step != "" {
		ctx = append(ctx, "step="+e.Step)
	}
	if e.Label != "" {
		ctx = append(ctx, "name="+e.Label)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ctx = append(ctx, k+"="+e.Details[k])
		}
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// NewUnresolvedLabel creates a CompileError for a label that was never bound.
func NewUnresolvedLabel(step, name string) *CompileError {
	return &CompileError{
		Code:    CodeUnresolvedLabel,
		Message: fmt.Sprintf("label %q is referenced but never bound", name),
		Step:    step,
		Label:   name,
	}
}

// NewUnsupported creates a CompileError for a step shape with no lowering rule.
func NewUnsupported(step, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    CodeUnsupportedFeature,
		Message: fmt.Sprintf(format, args...),
		Step:    step,
	}
}

// NewMalformed creates a CompileError for a structurally invalid traversal.
func NewMalformed(step, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    CodeMalformedTraversal,
		Message: fmt.Sprintf(format, args...),
		Step:    step,
	}
}

// NewSchemaLookupFailure creates a CompileError for a name missing from the schema.
func NewSchemaLookupFailure(kind, name string) *CompileError {
	return &CompileError{
		Code:    CodeSchemaLookupFailure,
		Message: fmt.Sprintf("%s %q not found in schema", kind, name),
		Label:   name,
		Details: map[string]string{"kind": kind},
	}
}

// WithStep returns a copy of e attributed to step, unless e already names one.
func (e *CompileError) WithStep(step string) *CompileError {
	if e.Step != "" {
		return e
	}
	cp := *e
	cp.Step = step
	return &cp
}

// CodeOf returns the ErrorCode of err, or "" if err is not a CompileError.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsUnresolvedLabel returns true if err is an UnresolvedLabel compile error.
func IsUnresolvedLabel(err error) bool {
	return CodeOf(err) == CodeUnresolvedLabel
}

// IsUnsupported returns true if err is an UnsupportedFeature compile error.
func IsUnsupported(err error) bool {
	return CodeOf(err) == CodeUnsupportedFeature
}

// IsMalformed returns true if err is a MalformedTraversal compile error.
func IsMalformed(err error) bool {
	return CodeOf(err) == CodeMalformedTraversal
}

// IsSchemaLookupFailure returns true if err is a SchemaLookupFailure compile error.
func IsSchemaLookupFailure(err error) bool {
	return CodeOf(err) == CodeSchemaLookupFailure
}
