package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/c360studio/semshacl/validation"
	"github.com/spf13/cobra"
)

func paramsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "params",
		Short: "Describe the validation parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptors := validation.Descriptors()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), descriptors)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FLAG\tKIND\tDEFAULT\tDESCRIPTION")
			for _, d := range descriptors {
				fmt.Fprintf(tw, "--%s\t%s\t%s\t%s\n", flagName(d.Name), d.Kind, d.Default, d.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
