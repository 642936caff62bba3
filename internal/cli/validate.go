package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gplan/internal/compiler"
	"github.com/roach88/gplan/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Schema SchemaSource
}

// Finding is one lint error of one query.
type Finding struct {
	Query   string `json:"query"`
	File    string `json:"file"`
	Code    string `json:"code"`
	Step    string `json:"step,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Queries  int       `json:"queries"`
	Findings []Finding `json:"findings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file.cue|dir>...",
		Short: "Lint traversal documents without compiling",
		Long: `Check traversal documents for problems that would fail compilation:
steps without a lowering, unbound select() labels, nested repeat() and,
when a schema is given, unknown property and label names.

All findings are reported, not just the first. Exits 1 when there are any.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema.SchemaFile, "schema", "", "schema YAML file (enables name checks)")
	cmd.Flags().StringVar(&opts.Schema.DB, "db", "", "SQLite plan store holding the schema catalog")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	queries, loadErrs := LoadQueries(args)
	if len(loadErrs) > 0 {
		return outputLoadErrors(formatter, loadErrs)
	}

	var sc schema.Schema
	if opts.Schema.SchemaFile != "" || opts.Schema.DB != "" {
		s, st, err := opts.Schema.Open()
		if err != nil {
			return failLoad(formatter, err)
		}
		if st != nil {
			defer st.Close()
		}
		sc = s
	}

	result := ValidationResult{Valid: true, Queries: len(queries)}
	for _, q := range queries {
		formatter.VerboseLog("Linting %s (%s)", q.Doc.Name, q.File)
		for _, le := range compiler.Lint(q.Doc.Traversal, sc) {
			result.Findings = append(result.Findings, Finding{
				Query:   q.Doc.Name,
				File:    q.File,
				Code:    le.Code,
				Step:    le.Step,
				Message: le.Message,
			})
		}
	}
	result.Valid = len(result.Findings) == 0

	return outputValidation(formatter, result)
}

func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: result.Findings[0].Code, Message: result.Findings[0].Message}
		}
		if err := formatter.Encode(resp); err != nil {
			return err
		}
		return validationExit(result)
	}

	w := formatter.Writer
	if result.Valid {
		fmt.Fprintf(w, "✓ All %d query(s) valid\n", result.Queries)
		return nil
	}

	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, f := range result.Findings {
		fmt.Fprintf(w, "%s (%s)\n", f.Query, f.File)
		if f.Step != "" {
			fmt.Fprintf(w, "  [%s] %s: %s\n\n", f.Code, f.Step, f.Message)
		} else {
			fmt.Fprintf(w, "  [%s] %s\n\n", f.Code, f.Message)
		}
	}
	return validationExit(result)
}

// validationExit turns findings into exit code 1.
func validationExit(result ValidationResult) error {
	if result.Valid {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(result.Findings)))
}
