package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/gplan/internal/compiler"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/schema"
)

// CompileOptions holds flags for the compile and explain commands.
type CompileOptions struct {
	*RootOptions
	Schema  SchemaSource
	Config  string // compiler options YAML
	Output  string // output file path
	Record  bool   // log plans into the --db store
	Metrics bool   // dump compiler metrics to stderr
	Jobs    int
}

// QueryPlan is the outcome of compiling one query.
type QueryPlan struct {
	Name        string            `json:"name"`
	File        string            `json:"file"`
	Traversal   string            `json:"traversal"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Vertices    int               `json:"vertices,omitempty"`
	Seq         int64             `json:"seq,omitempty"` // plan log position once recorded
	Plan        *plan.LogicalPlan `json:"plan,omitempty"`
	Explain     string            `json:"explain,omitempty"`
	Error       *CLIError         `json:"error,omitempty"`
}

// CompileResult holds every query of a compile run, in input order.
type CompileResult struct {
	Queries []QueryPlan `json:"queries"`
	Failed  int         `json:"failed"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <file.cue|dir>...",
		Short: "Compile traversal documents to logical plans",
		Long: `Compile CUE traversal documents into logical dataflow plans.

Every query of every file is compiled, in parallel, against the schema
given by --schema (YAML) or the catalog of --db. A failing query does not
stop the others; the command exits 2 if any query failed.

Examples:
  gplan compile --schema schema.yaml queries/
  gplan compile --db plans.db --record friends.cue
  gplan compile --schema schema.yaml --config opts.yaml -o plans.json q.cue`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args, cmd, false)
		},
	}

	addCompileFlags(cmd, opts)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write plans as JSON to this file")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "log compiled plans into the --db store")

	return cmd
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <file.cue|dir>...",
		Short: "Print the plan listing of each query",
		Long: `Compile traversal documents and print each plan as an explain
listing, one vertex per line.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args, cmd, true)
		},
	}

	addCompileFlags(cmd, opts)
	return cmd
}

func addCompileFlags(cmd *cobra.Command, opts *CompileOptions) {
	cmd.Flags().StringVar(&opts.Schema.SchemaFile, "schema", "", "schema YAML file")
	cmd.Flags().StringVar(&opts.Schema.DB, "db", "", "SQLite plan store holding the schema catalog")
	cmd.Flags().StringVar(&opts.Config, "config", "", "compiler options YAML file")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print compiler metrics to stderr when done")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", runtime.GOMAXPROCS(0), "queries compiled in parallel")
}

func runCompile(ctx context.Context, opts *CompileOptions, args []string, cmd *cobra.Command, explain bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	copts, err := compiler.LoadOptions(opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeOptions, err.Error(), nil)
	}
	copts.Logger = formatter.Logger()

	queries, loadErrs := LoadQueries(args)
	if len(loadErrs) > 0 {
		return outputLoadErrors(formatter, loadErrs)
	}
	formatter.VerboseLog("Loaded %d query(s) from %d path(s)", len(queries), len(args))

	sc, st, err := opts.Schema.Open()
	if err != nil {
		return failLoad(formatter, err)
	}
	if st != nil {
		defer st.Close()
	}
	if opts.Record && st == nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "--record needs --db", nil)
	}

	result := compileAll(ctx, queries, sc, copts, opts.Jobs)

	if opts.Record {
		for i := range result.Queries {
			q := &result.Queries[i]
			if q.Plan == nil {
				continue
			}
			rec, err := st.WritePlan(ctx, q.Name, q.Traversal, q.Plan)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
			}
			q.Seq = rec.Seq
			formatter.VerboseLog("Recorded %s as %s (seq %d)", q.Name, rec.ID, rec.Seq)
		}
	}

	if opts.Output != "" {
		if err := writePlansFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
		}
	}

	if opts.Metrics {
		if err := writeMetrics(formatter.GetErrWriter()); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
	}

	if explain {
		return outputExplain(formatter, result)
	}
	return outputCompile(formatter, result, opts.Output)
}

// compileAll compiles the queries concurrently. Results keep input order;
// a compile error is recorded on its query, never returned.
func compileAll(ctx context.Context, queries []Query, sc schema.Schema, copts compiler.Options, jobs int) *CompileResult {
	if jobs < 1 {
		jobs = 1
	}
	results := make([]QueryPlan, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, q := range queries {
		g.Go(func() error {
			results[i] = compileQuery(gctx, q, sc, copts)
			return nil
		})
	}
	_ = g.Wait()

	res := &CompileResult{Queries: results}
	for _, q := range results {
		if q.Error != nil {
			res.Failed++
		}
	}
	return res
}

func compileQuery(ctx context.Context, q Query, sc schema.Schema, copts compiler.Options) QueryPlan {
	qp := QueryPlan{
		Name:      q.Doc.Name,
		File:      q.File,
		Traversal: q.Doc.Traversal.String(),
	}

	lp, err := compiler.Compile(ctx, q.Doc.Traversal, sc, copts)
	if err != nil {
		qp.Error = &CLIError{Code: compileErrorCode(err), Message: err.Error()}
		return qp
	}
	fp, err := lp.Fingerprint()
	if err != nil {
		qp.Error = &CLIError{Code: ErrCodeGeneric, Message: err.Error()}
		return qp
	}

	qp.Fingerprint = fp
	qp.Vertices = lp.CountVertices()
	qp.Plan = lp
	qp.Explain = lp.Explain()
	return qp
}

func writePlansFile(result *CompileResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling plans: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func outputLoadErrors(formatter *OutputFormatter, errs []error) error {
	details := errorDetails(errs)
	if formatter.JSON() {
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   details,
			Error:  &details[0],
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("loading failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Loading failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %v\n", err)
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("loading failed with %d error(s)", len(errs)))
}

func outputCompile(formatter *OutputFormatter, result *CompileResult, outputFile string) error {
	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
			resp.Error = firstError(result)
		}
		if err := formatter.Encode(resp); err != nil {
			return err
		}
		return compileExit(result)
	}

	w := formatter.Writer
	if result.Failed == 0 {
		fmt.Fprintf(w, "✓ Compiled %d query(s)\n\n", len(result.Queries))
	} else {
		fmt.Fprintf(w, "✗ Compilation failed: %d of %d query(s)\n\n", result.Failed, len(result.Queries))
	}
	for _, q := range result.Queries {
		if q.Error != nil {
			fmt.Fprintf(w, "  ✗ %s (%s): %s: %s\n", q.Name, q.File, q.Error.Code, q.Error.Message)
			continue
		}
		fmt.Fprintf(w, "  ✓ %s (%s): %d vertices, fingerprint %s\n", q.Name, q.File, q.Vertices, q.Fingerprint[:12])
	}
	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote plans to %s\n", outputFile)
	}
	return compileExit(result)
}

func outputExplain(formatter *OutputFormatter, result *CompileResult) error {
	if formatter.JSON() {
		return outputCompile(formatter, result, "")
	}

	w := formatter.Writer
	for i, q := range result.Queries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s\n", q.Name)
		if q.Error != nil {
			fmt.Fprintf(w, "error: %s: %s\n", q.Error.Code, q.Error.Message)
			continue
		}
		fmt.Fprint(w, q.Explain)
	}
	return compileExit(result)
}

func firstError(result *CompileResult) *CLIError {
	for _, q := range result.Queries {
		if q.Error != nil {
			return q.Error
		}
	}
	return nil
}

// compileExit turns failed queries into exit code 2.
func compileExit(result *CompileResult) error {
	if result.Failed > 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed for %d query(s)", result.Failed))
	}
	return nil
}
