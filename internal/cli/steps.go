package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gplan/internal/builder"
	"github.com/roach88/gplan/internal/traversal"
)

// StepInfo describes one step kind.
type StepInfo struct {
	Name      string `json:"name"`
	Supported bool   `json:"supported"`
}

// StepsOptions holds flags for the steps command.
type StepsOptions struct {
	*RootOptions
	Unsupported bool
}

// NewStepsCommand creates the steps command.
func NewStepsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StepsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "steps",
		Short: "List traversal step kinds and whether they compile",
		Long: `List every step kind a traversal document may name. Steps marked
unsupported are accepted by the loader but have no lowering, so any query
using them fails with UNSUPPORTED_FEATURE.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSteps(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Unsupported, "unsupported", false, "list only unsupported steps")
	return cmd
}

func runSteps(opts *StepsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var steps []StepInfo
	for _, k := range traversal.AllStepKinds() {
		supported := builder.Supported(k)
		if opts.Unsupported && supported {
			continue
		}
		steps = append(steps, StepInfo{Name: k.String(), Supported: supported})
	}

	if formatter.JSON() {
		return formatter.Success(steps)
	}
	for _, s := range steps {
		mark := "✓"
		if !s.Supported {
			mark = "✗"
		}
		fmt.Fprintf(formatter.Writer, "%s %s\n", mark, s.Name)
	}
	return nil
}
