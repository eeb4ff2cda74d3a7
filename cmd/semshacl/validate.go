package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/c360studio/semshacl/config"
	"github.com/c360studio/semshacl/graphstore"
	"github.com/c360studio/semshacl/report"
	"github.com/c360studio/semshacl/validation"
	"github.com/c360studio/semshacl/vocabulary/shacl"
	"github.com/c360studio/semshacl/watch"
	"github.com/spf13/cobra"
)

// Output formats of the validate command.
const (
	outputJSON   = "json"
	outputCSV    = "csv"
	outputTurtle = "turtle"
	outputNone   = "none"
)

// errNotConforming is returned with --fail when the data graph has violations.
var errNotConforming = errors.New("data graph does not conform")

// storeOptions override the configured graph store from the command line.
type storeOptions struct {
	local     string
	graphs    []string
	outputDir string
}

func (o *storeOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.local, "local", "", "Serve graphs from files below this directory instead of the configured store")
	cmd.Flags().StringArrayVar(&o.graphs, "graph", nil, "Local graph as IRI=GLOB[,GLOB...] (repeatable, implies --local .)")
	cmd.Flags().StringVar(&o.outputDir, "output-dir", "", "Directory for validation graphs written by the local store")
}

// apply rewrites settings for a local store when requested.
func (o *storeOptions) apply(settings *graphstore.Settings) error {
	if o.local == "" && len(o.graphs) == 0 && o.outputDir == "" {
		return nil
	}

	local := &graphstore.LocalSettings{Root: "."}
	if settings.Local != nil {
		copied := *settings.Local
		local = &copied
	}
	if o.local != "" {
		local.Root = o.local
	}
	if o.outputDir != "" {
		local.OutputDir = o.outputDir
	}
	for _, arg := range o.graphs {
		g, err := parseLocalGraph(arg)
		if err != nil {
			return err
		}
		local.Graphs = append(local.Graphs, g)
	}

	settings.URL = ""
	settings.Local = local
	return nil
}

// adHocGraphClasses are assigned to --graph graphs so they are accepted by
// every graph parameter.
var adHocGraphClasses = []string{shacl.ShuiShapeCatalog, shacl.OWLOntology}

// parseLocalGraph parses IRI=GLOB[,GLOB...]. The last "=" separates the
// IRI so query strings survive.
func parseLocalGraph(spec string) (graphstore.LocalGraph, error) {
	i := strings.LastIndex(spec, "=")
	if i <= 0 || i == len(spec)-1 {
		return graphstore.LocalGraph{}, fmt.Errorf("invalid --graph %q: expected IRI=GLOB", spec)
	}
	iri, globs := spec[:i], spec[i+1:]
	var files []string
	for _, g := range strings.Split(globs, ",") {
		if g = strings.TrimSpace(g); g != "" {
			files = append(files, g)
		}
	}
	return graphstore.LocalGraph{IRI: iri, Files: files, Classes: adHocGraphClasses}, nil
}

type validateOptions struct {
	global *globalOptions
	store  storeOptions

	inputs   map[string]string
	output   string
	fail     bool
	watch    bool
	debounce time.Duration
}

func validateCmd(global *globalOptions) *cobra.Command {
	opts := &validateOptions{global: global}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a data graph against a SHACL shapes graph",
		Long: `Validate runs pySHACL on a data graph and a shapes graph loaded from
the graph store. Parameters default to the "defaults" section of the
configuration and can be overridden with one flag per parameter.`,
		Example: `  semshacl validate --data-graph-uri https://example.org/data/ \
    --shacl-graph-uri https://example.org/shapes/ --output csv

  semshacl validate --graph https://example.org/data/=data/*.ttl \
    --graph https://example.org/shapes/=shapes.ttl \
    --data-graph-uri https://example.org/data/ \
    --shacl-graph-uri https://example.org/shapes/ --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}

	registerParameterFlags(cmd)
	opts.store.register(cmd)
	cmd.Flags().StringToStringVar(&opts.inputs, "input", nil, "Workflow input values as name=value (graph and boolean parameters only)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputJSON, "Output format (json, csv, turtle, none)")
	cmd.Flags().BoolVar(&opts.fail, "fail", false, "Exit with an error when the data graph does not conform")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-run validation when local graph files change")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 300*time.Millisecond, "Quiet period before a change triggers validation")

	return cmd
}

// flagName converts a parameter name to its command line flag.
func flagName(param string) string {
	return strings.ReplaceAll(param, "_", "-")
}

// registerParameterFlags adds one flag per validation parameter.
func registerParameterFlags(cmd *cobra.Command) {
	for _, d := range validation.Descriptors() {
		usage := d.Label
		if d.Kind == validation.KindChoice {
			values := make([]string, 0, len(d.Choices))
			for _, c := range d.Choices {
				values = append(values, c.Value)
			}
			usage += " (" + strings.Join(values, ", ") + ")"
		}
		if d.Kind == validation.KindBool {
			cmd.Flags().Bool(flagName(d.Name), d.Default == "true", usage)
			continue
		}
		cmd.Flags().String(flagName(d.Name), d.Default, usage)
	}
}

// parametersFromFlags overrides defaults with the parameter flags that were set.
func parametersFromFlags(cmd *cobra.Command, defaults validation.Parameters) (validation.Parameters, error) {
	params := defaults
	for _, d := range validation.Descriptors() {
		name := flagName(d.Name)
		if !cmd.Flags().Changed(name) {
			continue
		}
		if err := params.Set(d.Name, cmd.Flags().Lookup(name).Value.String()); err != nil {
			return params, err
		}
	}
	return params, nil
}

func (o *validateOptions) run(cmd *cobra.Command) error {
	switch o.output {
	case outputJSON, outputCSV, outputTurtle, outputNone:
	default:
		return fmt.Errorf("unknown output format %q", o.output)
	}

	cfg, logger, err := o.global.setup(cmd)
	if err != nil {
		return err
	}
	if err := o.store.apply(&cfg.GraphStore); err != nil {
		return err
	}
	params, err := parametersFromFlags(cmd, cfg.Defaults)
	if err != nil {
		return err
	}

	store, err := cfg.GraphStore.Open(logger)
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	runner, err := newRunner(cfg, store, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !o.watch {
		return o.validateOnce(ctx, cmd.OutOrStdout(), runner, params)
	}

	local, ok := store.(*graphstore.LocalStore)
	if !ok {
		return fmt.Errorf("--watch requires a local graph store (use --local or --graph)")
	}
	return o.watchAndValidate(ctx, cmd.OutOrStdout(), logger, local, runner, params)
}

func newRunner(cfg *config.Config, store graphstore.Store, logger *slog.Logger) (*validation.Runner, error) {
	validator, err := cfg.Engine.New(logger)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	return validation.NewRunner(store, validator, validation.WithLogger(logger)), nil
}

func (o *validateOptions) validateOnce(ctx context.Context, w io.Writer, runner *validation.Runner, params validation.Parameters) error {
	res, err := runner.Execute(ctx, params, o.inputs)
	if err != nil {
		return err
	}
	if err := writeResult(ctx, w, o.output, res); err != nil {
		return err
	}
	if o.fail && !res.Conforms {
		return errNotConforming
	}
	return nil
}

func (o *validateOptions) watchAndValidate(
	ctx context.Context,
	w io.Writer,
	logger *slog.Logger,
	store *graphstore.LocalStore,
	runner *validation.Runner,
	params validation.Parameters,
) error {
	// The first run shows the current state; failures are reported and
	// watching continues.
	if err := o.validateOnce(ctx, w, runner, params); err != nil && !errors.Is(err, errNotConforming) {
		logger.Error("Validation failed", "error", err)
	}

	watcher, err := watch.New(watch.Config{
		Files:         store.Files(),
		DebounceDelay: o.debounce,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Stop()

	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	for change := range watcher.Changes() {
		logger.Info("Graph files changed, re-running validation",
			"modified", change.Modified,
			"removed", change.Removed)
		if err := o.validateOnce(ctx, w, runner, params); err != nil && !errors.Is(err, errNotConforming) {
			logger.Error("Validation failed", "error", err)
		}
	}
	return nil
}

// writeResult renders a validation result.
func writeResult(ctx context.Context, w io.Writer, format string, res *validation.Result) error {
	switch format {
	case outputJSON:
		return writeJSON(w, res)
	case outputCSV:
		if res.Entities == nil {
			return fmt.Errorf("csv output requires the %s parameter", validation.ParamOutputValues)
		}
		return res.Entities.WriteCSV(w)
	case outputTurtle:
		return res.ValidationGraph.SerializeTurtle(ctx, w, report.DefaultPrefixes)
	}
	return nil
}
