package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/store"
)

// SchemaOptions holds flags for the schema subcommands.
type SchemaOptions struct {
	*RootOptions
	DB string
}

// SchemaListing is the catalog as printed by schema show.
type SchemaListing struct {
	Labels     []SchemaLabel    `json:"labels"`
	Properties []SchemaProperty `json:"properties"`
}

// SchemaLabel is one element label of the catalog.
type SchemaLabel struct {
	Name string `json:"name"`
	ID   int32  `json:"id"`
}

// SchemaProperty is one property of the catalog.
type SchemaProperty struct {
	Name  string   `json:"name"`
	ID    int32    `json:"id"`
	Types []string `json:"types,omitempty"`
}

// NewSchemaCommand creates the schema command and its subcommands.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the schema catalog of a plan store",
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "SQLite plan store (required)")

	cmd.AddCommand(&cobra.Command{
		Use:   "import <schema.yaml>",
		Short: "Import a YAML schema into the catalog",
		Long: `Import every label and property of a YAML schema into the catalog of
the --db store, in one transaction. Names already in the catalog are
overwritten; an id held by another name fails the whole import.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaImport(opts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "Print the catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaShow(opts, cmd)
		},
	})

	return cmd
}

func openStore(formatter *OutputFormatter, path string) (*store.Store, error) {
	if path == "" {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, "--db is required", nil)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	return st, nil
}

func runSchemaImport(opts *SchemaOptions, file string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	static, err := schema.LoadYAML(file)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSchema, err.Error(), nil)
	}

	st, err := openStore(formatter, opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ImportSchema(cmd.Context(), static); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	labels, props := len(static.Labels()), len(static.Properties())
	formatter.VerboseLog("Imported %s into %s", file, opts.DB)
	if formatter.JSON() {
		return formatter.Success(map[string]int{"labels": labels, "properties": props})
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %d label(s), %d property(s)\n", labels, props)
	return nil
}

func runSchemaShow(opts *SchemaOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openStore(formatter, opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	static, err := st.Static(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	listing, err := newSchemaListing(static)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSchema, err.Error(), nil)
	}

	if formatter.JSON() {
		return formatter.Success(listing)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "Labels:")
	for _, l := range listing.Labels {
		fmt.Fprintf(w, "  %s: %d\n", l.Name, l.ID)
	}
	fmt.Fprintln(w, "Properties:")
	for _, p := range listing.Properties {
		fmt.Fprintf(w, "  %s: %d [%s]\n", p.Name, p.ID, strings.Join(p.Types, ", "))
	}
	return nil
}

func newSchemaListing(sc *schema.Static) (SchemaListing, error) {
	listing := SchemaListing{
		Labels:     []SchemaLabel{},
		Properties: []SchemaProperty{},
	}
	for _, name := range sc.Labels() {
		id, err := sc.ElementLabelID(name)
		if err != nil {
			return listing, err
		}
		listing.Labels = append(listing.Labels, SchemaLabel{Name: name, ID: id})
	}
	for _, name := range sc.Properties() {
		id, err := sc.PropertyID(name)
		if err != nil {
			return listing, err
		}
		types, err := sc.PropertyDataTypes(name)
		if err != nil {
			return listing, err
		}
		p := SchemaProperty{Name: name, ID: id}
		for _, dt := range types {
			p.Types = append(p.Types, dt.String())
		}
		listing.Properties = append(listing.Properties, p)
	}
	return listing, nil
}
