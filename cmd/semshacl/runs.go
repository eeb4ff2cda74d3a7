package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/c360studio/semshacl/storage"
	"github.com/spf13/cobra"
)

func runsCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect validation run history",
	}

	var limit int
	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent validation runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunStore(cmd, global, func(ctx context.Context, store *storage.RunStore) error {
				runs, err := store.List(ctx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), runs)
				}
				return writeRunTable(cmd.OutOrStdout(), runs)
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs (0 for all)")
	list.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	get := &cobra.Command{
		Use:   "get RUN_ID",
		Short: "Show one validation run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunStore(cmd, global, func(ctx context.Context, store *storage.RunStore) error {
				run, err := store.Get(ctx, args[0])
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("run %s not found", args[0])
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), run)
			})
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}

// withRunStore connects to NATS and opens the run history bucket.
func withRunStore(cmd *cobra.Command, global *globalOptions, fn func(context.Context, *storage.RunStore) error) error {
	cfg, logger, err := global.setup(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := connectToNATS(ctx, cfg.NATS.URL, logger)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	js, err := client.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream: %w", err)
	}
	store, err := storage.NewRunStore(ctx, js, cfg.NATS.RunBucket)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	return fn(ctx, store)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRunTable(w io.Writer, runs []*storage.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCONFORMS\tRESULTS\tSTARTED\tDURATION")
	for _, r := range runs {
		conforms := "-"
		if r.Conforms != nil {
			conforms = fmt.Sprintf("%t", *r.Conforms)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID,
			r.Status,
			conforms,
			r.ResultCount,
			r.StartedAt.UTC().Format(time.RFC3339),
			(time.Duration(r.DurationMs) * time.Millisecond).String(),
		)
	}
	return tw.Flush()
}
