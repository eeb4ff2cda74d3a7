package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/c360studio/semshacl/graphstore"
	"github.com/c360studio/semshacl/validation"
	"github.com/spf13/cobra"
)

func graphsCmd(global *globalOptions) *cobra.Command {
	var (
		store   storeOptions
		classes []string
		param   string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "graphs",
		Short: "List graphs in the graph store",
		Long: `Graphs lists the graphs of the configured store with their assigned
classes. Use --class to filter by class or --param to list the graphs
accepted by a graph parameter.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.setup(cmd)
			if err != nil {
				return err
			}
			if err := store.apply(&cfg.GraphStore); err != nil {
				return err
			}

			if param != "" {
				d, ok := validation.Lookup(param)
				if !ok || d.Kind != validation.KindGraph {
					return fmt.Errorf("%s is not a graph parameter (one of %s)", param,
						strings.Join(validation.Names(validation.KindGraph), ", "))
				}
				classes = append(classes, d.Classes...)
			}

			s, err := cfg.GraphStore.Open(logger)
			if err != nil {
				return fmt.Errorf("open graph store: %w", err)
			}
			catalog, err := graphstore.LoadCatalog(cmd.Context(), s)
			if err != nil {
				return fmt.Errorf("list graphs: %w", err)
			}

			graphs := catalog.Filter(classes...)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), graphs)
			}
			return writeGraphTable(cmd.OutOrStdout(), graphs)
		},
	}

	store.register(cmd)
	cmd.Flags().StringArrayVar(&classes, "class", nil, "Only list graphs with this class IRI (repeatable)")
	cmd.Flags().StringVar(&param, "param", "", "Only list graphs accepted by this graph parameter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func writeGraphTable(w io.Writer, graphs []graphstore.GraphInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "IRI\tLABEL\tCLASSES")
	for _, g := range graphs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", g.IRI, g.Label, strings.Join(g.AssignedClasses, ", "))
	}
	return tw.Flush()
}
