package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gplan/internal/store"
)

// PlansOptions holds flags for the plans command.
type PlansOptions struct {
	*RootOptions
	DB   string
	Name string
}

// PlanSummary is one row of the plan log listing.
type PlanSummary struct {
	Seq       int64  `json:"seq"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Vertices  int    `json:"vertices"`
	Traversal string `json:"traversal"`
}

// NewPlansCommand creates the plans command.
func NewPlansCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlansOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List the plans recorded in a plan store",
		Long: `List the plan log of the --db store in write order. Plans are
content-addressed: recompiling an unchanged query does not add a row.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlansList(opts, cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "SQLite plan store (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "only plans recorded under this query name")

	cmd.AddCommand(&cobra.Command{
		Use:           "show <id>",
		Short:         "Print the explain listing of a recorded plan",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlansShow(opts, args[0], cmd)
		},
	})

	return cmd
}

func runPlansList(opts *PlansOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openStore(formatter, opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	var recs []store.PlanRecord
	if opts.Name != "" {
		recs, err = st.ReadPlansByName(cmd.Context(), opts.Name)
	} else {
		recs, err = st.ReadPlans(cmd.Context())
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	summaries := make([]PlanSummary, len(recs))
	for i, r := range recs {
		summaries[i] = PlanSummary{
			Seq:       r.Seq,
			ID:        r.ID,
			Name:      r.Name,
			Vertices:  r.Vertices,
			Traversal: r.Traversal,
		}
	}

	if formatter.JSON() {
		return formatter.Success(summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No plans recorded.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "%4d  %s  %-20s %3d  %s\n", s.Seq, s.ID[:12], s.Name, s.Vertices, s.Traversal)
	}
	return nil
}

func runPlansShow(opts *PlansOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openStore(formatter, opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.ReadPlan(cmd.Context(), id)
	if errors.Is(err, store.ErrPlanNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodePlanNotFound, fmt.Sprintf("no plan %s", id), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if formatter.JSON() {
		return formatter.Success(map[string]any{
			"id":        rec.ID,
			"name":      rec.Name,
			"seq":       rec.Seq,
			"traversal": rec.Traversal,
			"explain":   rec.Explain,
		})
	}
	fmt.Fprintf(formatter.Writer, "%s %s (seq %d)\n%s\n", rec.Name, rec.ID, rec.Seq, rec.Traversal)
	fmt.Fprint(formatter.Writer, rec.Explain)
	return nil
}
