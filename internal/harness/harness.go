package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/gplan/internal/compiler"
	"github.com/roach88/gplan/internal/ingest"
	"github.com/roach88/gplan/internal/ir"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/store"
)

// QueryResult is the outcome of compiling one query of a scenario.
type QueryResult struct {
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Vertices    int    `json:"vertices,omitempty"`
	Explain     string `json:"explain,omitempty"`
	Error       string `json:"error,omitempty"` // compile error code
	Message     string `json:"message,omitempty"`

	plan *plan.LogicalPlan
}

// Result is the outcome of a scenario run.
type Result struct {
	Pass    bool          `json:"pass"`
	Queries []QueryResult `json:"queries"`
	Errors  []string      `json:"errors,omitempty"`
}

// AddError records a failed expectation.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Query returns the result for the named query.
func (r *Result) Query(name string) (*QueryResult, bool) {
	for i := range r.Queries {
		if r.Queries[i].Name == name {
			return &r.Queries[i], true
		}
	}
	return nil, false
}

// Run compiles every query of the scenario and checks its expectations.
// A query that fails to compile is a result, not an error: Run returns an
// error only when the scenario cannot be executed at all.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	static, err := schema.LoadYAML(s.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.ImportSchema(ctx, static); err != nil {
		return nil, err
	}
	sc := schema.NewCached(st)

	docs, err := ingest.LoadFile(s.Queries)
	if err != nil {
		return nil, fmt.Errorf("failed to load queries: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	result := &Result{Pass: true}
	for _, doc := range docs {
		opts := s.Options
		opts.Logger = logger
		opts.QueryID = s.Name + "/" + doc.Name

		qr := QueryResult{Name: doc.Name}
		lp, err := compiler.Compile(ctx, doc.Traversal, sc, opts)
		if err != nil {
			code := ir.CodeOf(err)
			if code == "" {
				return nil, fmt.Errorf("query %q: %w", doc.Name, err)
			}
			qr.Error = string(code)
			qr.Message = err.Error()
			result.Queries = append(result.Queries, qr)
			continue
		}

		rec, err := st.WritePlan(ctx, doc.Name, doc.Traversal.String(), lp)
		if err != nil {
			return nil, err
		}
		qr.Fingerprint = rec.ID
		qr.Vertices = rec.Vertices
		qr.Explain = rec.Explain
		qr.plan = lp
		result.Queries = append(result.Queries, qr)
	}

	for i, e := range s.Expect {
		qr, ok := result.Query(e.Query)
		if !ok {
			result.AddError(fmt.Sprintf("expect[%d]: query %q not found in %s", i, e.Query, s.Queries))
			continue
		}
		checkExpectation(result, qr, e)
	}
	return result, nil
}

func checkExpectation(result *Result, qr *QueryResult, e Expectation) {
	switch {
	case e.Error != "" && qr.Error != e.Error:
		actual := "compiled"
		if qr.Error != "" {
			actual = qr.Message
		}
		result.AddError((&AssertionError{
			Query:    qr.Name,
			Type:     "error",
			Expected: e.Error,
			Actual:   actual,
			Explain:  qr.Explain,
		}).Error())
	case e.Error != "":
	case qr.Error != "":
		result.AddError(fmt.Sprintf("query %q: unexpected compile error: %s", qr.Name, qr.Message))
	default:
		for _, msg := range EvaluateAssertions(qr.Name, qr.plan, e.Assertions) {
			result.AddError(msg)
		}
	}
}
