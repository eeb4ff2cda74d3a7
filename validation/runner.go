package validation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/semshacl/engine"
	"github.com/c360studio/semshacl/graphstore"
	"github.com/c360studio/semshacl/rdfgraph"
	"github.com/c360studio/semshacl/report"
	"github.com/geoknoesis/rdf-go/rdf"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of a validation run.
type Result struct {
	RunID       string     `json:"run_id"`
	Parameters  Parameters `json:"parameters"`
	Conforms    bool       `json:"conforms"`
	ResultCount int        `json:"result_count"`
	Timestamp   string     `json:"timestamp"`

	// Entities holds the result table when output_values is set.
	Entities *report.Entities `json:"entities,omitempty"`

	// ValidationGraph is the post-processed report graph when
	// generate_graph is set, otherwise the raw report.
	ValidationGraph *rdfgraph.Graph `json:"-"`

	// Posted reports whether the validation graph was uploaded.
	Posted bool `json:"posted"`

	Duration time.Duration `json:"duration"`
}

// Runner executes validation runs.
type Runner struct {
	store     graphstore.Store
	validator engine.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithClock sets the time source for report timestamps.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a Runner reading and writing graphs in store.
func NewRunner(store graphstore.Store, validator engine.Validator, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:     store,
		validator: validator,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type loadedGraphs struct {
	data, shapes, ontology *rdfgraph.Graph
}

// Execute runs one validation. The user access token, if any, is taken
// from ctx (see graphstore.WithAccessToken). Inputs override parameters.
func (r *Runner) Execute(ctx context.Context, params Parameters, inputs map[string]string) (*Result, error) {
	return r.ExecuteRun(ctx, uuid.NewString(), params, inputs)
}

// ExecuteRun is Execute with a caller-assigned run ID.
func (r *Runner) ExecuteRun(ctx context.Context, runID string, params Parameters, inputs map[string]string) (*Result, error) {
	start := time.Now()
	logger := r.logger.With("run_id", runID)

	if _, ok := graphstore.AccessTokenFrom(ctx); !ok {
		logger.Debug("No user access token in context, using store credentials")
	}

	if len(inputs) > 0 {
		if err := params.ApplyInputs(inputs); err != nil {
			return nil, err
		}
	}

	if err := params.checkBasic(); err != nil {
		return nil, err
	}
	catalog, err := graphstore.LoadCatalog(ctx, r.store)
	if err != nil {
		return nil, fmt.Errorf("load graph catalog: %w", err)
	}
	if err := params.Check(catalog, logger); err != nil {
		return nil, err
	}

	graphs, err := r.load(ctx, logger, params)
	if err != nil {
		return nil, err
	}

	logger.Info("Starting SHACL validation")
	outcome, err := r.validator.Validate(ctx, engine.Request{
		Data:      graphs.data,
		Shapes:    graphs.shapes,
		Ontology:  graphs.ontology,
		MetaSHACL: params.MetaSHACL,
		Inference: params.Inference,
	})
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	logger.Info("Finished SHACL validation", "seconds", elapsed(outcome.Duration), "conforms", outcome.Conforms)

	timestamp := report.Timestamp(r.now())
	validationGraph := outcome.Report

	res := &Result{
		RunID:           runID,
		Parameters:      params,
		Conforms:        outcome.Conforms,
		ResultCount:     len(report.ResultNodes(validationGraph)),
		Timestamp:       timestamp,
		ValidationGraph: validationGraph,
	}

	if params.OutputValues {
		logger.Info("Creating entities")
		formatter := &report.Formatter{
			Data:               graphs.data,
			Shapes:             graphs.shapes,
			IncludeGraphLabels: params.IncludeGraphsLabels,
		}
		res.Entities, err = report.MakeEntities(ctx, validationGraph, formatter, report.Meta{
			DataGraph:   params.DataGraphURI,
			ShapesGraph: params.ShaclGraphURI,
			Timestamp:   timestamp,
		})
		if err != nil {
			return nil, fmt.Errorf("create entities: %w", err)
		}
	}

	if params.GenerateGraph {
		validationGraph = r.buildValidationGraph(logger, params, graphs, validationGraph, timestamp, res.Entities)
		res.ValidationGraph = validationGraph

		logger.Info("Posting SHACL validation graph", "graph", params.ValidationGraphURI, "triples", validationGraph.Len())
		err := r.store.PostGraph(ctx, params.ValidationGraphURI, validationGraph, graphstore.PostOptions{
			Replace: params.ClearValidationGraph,
		})
		if err != nil {
			return nil, fmt.Errorf("post validation graph: %w", err)
		}
		res.Posted = true
		logger.Info("Successfully posted SHACL validation graph")
	}

	res.Duration = time.Since(start)
	return res, nil
}

// load fetches the data, shapes and ontology graphs concurrently.
func (r *Runner) load(ctx context.Context, logger *slog.Logger, params Parameters) (*loadedGraphs, error) {
	opts := graphstore.GetOptions{OWLImportsResolution: params.OWLImportsResolution}
	out := &loadedGraphs{}

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(kind, iri string, dst **rdfgraph.Graph) {
		g.Go(func() error {
			logger.Info("Loading graph into memory", "kind", kind, "graph", iri)
			start := time.Now()
			graph, err := r.store.GetGraph(gctx, iri, opts)
			if err != nil {
				return fmt.Errorf("load %s graph: %w", kind, err)
			}
			*dst = graph
			logger.Info("Finished loading graph", "kind", kind, "triples", graph.Len(), "seconds", elapsed(time.Since(start)))
			return nil
		})
	}
	fetch("data", params.DataGraphURI, &out.data)
	fetch("SHACL", params.ShaclGraphURI, &out.shapes)
	if params.OntologyGraphURI != "" {
		fetch("ontology", params.OntologyGraphURI, &out.ontology)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// buildValidationGraph skolemizes and annotates the report for upload.
func (r *Runner) buildValidationGraph(
	logger *slog.Logger,
	params Parameters,
	graphs *loadedGraphs,
	vg *rdfgraph.Graph,
	timestamp string,
	entities *report.Entities,
) *rdfgraph.Graph {
	if params.SkolemizeValidationGraph {
		logger.Info("Skolemizing validation graph")
		var mapping map[string]rdf.IRI
		vg, mapping = vg.Skolemize(params.ValidationGraphURI)
		if entities != nil {
			entities.Remap(mapping)
		}
	} else {
		vg = vg.Clone()
	}

	results := report.ResultNodes(vg)
	var focusNodes []rdf.Term
	if params.AddLabelsToValidationGraph {
		logger.Info("Adding labels to validation graph")
		focusNodes = report.AddLabels(vg, graphs.data, graphs.shapes, report.LabelOptions{
			IncludeGraphLabels: params.IncludeGraphsLabels,
			CollectFocusNodes:  params.AddShuiConformsToValidationGraph,
		})
	}
	if params.AddShuiConformsToValidationGraph {
		logger.Info("Adding shui:conforms flags to validation graph")
		report.AddShuiConforms(vg, results, focusNodes)
	}

	logger.Info("Adding PROV information to validation graph")
	report.AddProvenance(vg, params.DataGraphURI, params.ShaclGraphURI, timestamp)
	return vg
}

// elapsed rounds d to milliseconds in seconds.
func elapsed(d time.Duration) float64 {
	return float64(d.Round(time.Millisecond)) / float64(time.Second)
}
