// Package shaclvalidation provides a JetStream processor that runs SHACL
// validation as a workflow step. It consumes ValidationRequest messages,
// validates a data graph against a shapes graph from the configured graph
// store, records the run, and publishes a ValidationOutput.
package shaclvalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semshacl/graphstore"
	"github.com/c360studio/semshacl/storage"
	"github.com/c360studio/semshacl/validation"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// maxDeliver bounds redelivery of requests that failed transiently.
const maxDeliver = 3

// executor runs one validation. *validation.Runner satisfies it.
type executor interface {
	ExecuteRun(ctx context.Context, runID string, params validation.Parameters, inputs map[string]string) (*validation.Result, error)
}

// runRecorder persists run history. *storage.RunStore satisfies it.
type runRecorder interface {
	Record(ctx context.Context, run *storage.Run) error
}

// disposition is what to do with a consumed message.
type disposition int

const (
	dispositionAck disposition = iota
	dispositionNak
)

// Component implements the shacl-validation processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger
	org        string
	runner     executor
	runs       runRecorder
	publisher  Publisher
	metrics    *Metrics
	now        func() time.Time

	// JetStream consumer state.
	consumer jetstream.Consumer

	// Lifecycle.
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc

	// Counters.
	triggersProcessed atomic.Int64
	runsConforming    atomic.Int64
	runsViolating     atomic.Int64
	runsRejected      atomic.Int64
	errorsCount       atomic.Int64
	lastActivityMu    sync.RWMutex
	lastActivity      time.Time
}

// NewComponent constructs a shacl-validation Component from raw JSON config
// and semstreams dependencies.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	config := DefaultConfig()
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if config.Ports == nil {
		config.Ports = DefaultConfig().Ports
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := deps.GetLogger()

	store, err := config.GraphStore.Open(logger)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	validator, err := config.Engine.New(logger)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	c := &Component{
		name:       componentName,
		config:     config,
		natsClient: deps.NATSClient,
		logger:     logger,
		org:        deps.Platform.Org,
		runner:     validation.NewRunner(store, validator, validation.WithLogger(logger)),
		metrics:    NewMetrics(deps.MetricsRegistry),
		now:        time.Now,
	}
	if deps.NATSClient != nil {
		c.publisher = deps.NATSClient
	}
	if c.org == "" {
		c.org = "default"
	}
	return c, nil
}

// Initialize prepares the component for startup.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized shacl-validation",
		"stream", c.config.StreamName,
		"consumer", c.config.ConsumerName,
		"run_bucket", c.config.RunBucket)
	return nil
}

// Start begins consuming ValidationRequest messages from JetStream.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}

	c.running = true
	c.startTime = time.Now()

	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	js, err := c.natsClient.JetStream()
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get jetstream: %w", err)
	}

	stream, err := js.Stream(subCtx, c.config.StreamName)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get stream %s: %w", c.config.StreamName, err)
	}

	if c.config.RunBucket != "" {
		runStore, err := storage.NewRunStore(subCtx, js, c.config.RunBucket)
		if err != nil {
			c.rollbackStart(cancel)
			return fmt.Errorf("open run store: %w", err)
		}
		c.runs = runStore
	}

	triggerSubject := c.config.TriggerSubject()
	consumerConfig := jetstream.ConsumerConfig{
		Durable:       c.config.ConsumerName,
		FilterSubject: triggerSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		// Validation of large graphs can take minutes.
		AckWait:    c.config.GetExecutionTimeout() + 30*time.Second,
		MaxDeliver: maxDeliver,
	}

	consumer, err := stream.CreateOrUpdateConsumer(subCtx, consumerConfig)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("create consumer: %w", err)
	}
	c.consumer = consumer

	go c.consumeLoop(subCtx)

	c.logger.Info("shacl-validation started",
		"stream", c.config.StreamName,
		"consumer", c.config.ConsumerName,
		"subject", triggerSubject)

	return nil
}

func (c *Component) rollbackStart(cancel context.CancelFunc) {
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.mu.Unlock()
	cancel()
}

// consumeLoop fetches messages from the JetStream consumer until the
// context is cancelled.
func (c *Component) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("Fetch timeout or error", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleMessage(ctx, msg)
		}

		if msgs.Error() != nil && msgs.Error() != context.DeadlineExceeded {
			c.logger.Warn("Message fetch error", "error", msgs.Error())
		}
	}
}

// handleMessage processes one message and acknowledges it.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	final := false
	if meta, err := msg.Metadata(); err == nil {
		final = meta.NumDelivered >= maxDeliver
	}

	switch c.process(ctx, msg.Data(), final) {
	case dispositionNak:
		if nakErr := msg.Nak(); nakErr != nil {
			c.logger.Warn("Failed to NAK message", "error", nakErr)
		}
	default:
		if ackErr := msg.Ack(); ackErr != nil {
			c.logger.Warn("Failed to ACK message", "error", ackErr)
		}
	}
}

// process runs the validation requested by data. final is set on the last
// permitted delivery, when transient failures are reported instead of retried.
func (c *Component) process(ctx context.Context, data []byte, final bool) disposition {
	c.triggersProcessed.Add(1)
	c.updateLastActivity()

	req, err := parseRequest(data)
	if err != nil {
		c.errorsCount.Add(1)
		c.logger.Error("Failed to parse trigger", "error", err)
		return dispositionNak
	}

	if err := req.Validate(); err != nil {
		c.runsRejected.Add(1)
		c.logger.Error("Invalid trigger", "error", err)
		// Invalid requests will not succeed on retry.
		return dispositionAck
	}

	run := &storage.Run{
		ID:        uuid.NewString(),
		RequestID: req.RequestID,
		Status:    storage.RunStatusRunning,
		StartedAt: c.now(),
	}
	logger := c.logger.With("run_id", run.ID, "request_id", req.RequestID)

	params, err := c.requestParameters(req)
	if err != nil {
		c.reject(ctx, logger, run, err)
		return dispositionAck
	}
	run.Parameters = params.Values()
	c.record(ctx, logger, run)

	logger.Info("Processing SHACL validation trigger",
		"data_graph", params.DataGraphURI,
		"shacl_graph", params.ShaclGraphURI)

	runCtx, cancel := context.WithTimeout(ctx, c.config.GetExecutionTimeout())
	defer cancel()
	if req.AccessToken != "" {
		runCtx = graphstore.WithAccessToken(runCtx, req.AccessToken)
	}

	c.metrics.runStarted()
	result, err := c.runner.ExecuteRun(runCtx, run.ID, params, req.Inputs)
	if err != nil {
		if validation.IsParameterError(err) {
			c.metrics.runFinished(string(storage.RunStatusRejected), c.now().Sub(run.StartedAt), 0, false)
			c.reject(ctx, logger, run, err)
			return dispositionAck
		}

		c.errorsCount.Add(1)
		c.metrics.runFinished(string(storage.RunStatusFailed), c.now().Sub(run.StartedAt), 0, false)
		run.Error = err.Error()
		run.SetStatus(storage.RunStatusFailed, c.now())
		c.record(ctx, logger, run)

		if isTransient(err) && !final && ctx.Err() == nil {
			logger.Warn("Validation failed transiently, NAKing for retry", "error", err)
			return dispositionNak
		}
		logger.Error("Validation failed", "error", err)
		c.publishOutput(ctx, logger, &ValidationOutput{
			RunID:      run.ID,
			RequestID:  req.RequestID,
			Parameters: run.Parameters,
			Error:      err.Error(),
		})
		return dispositionAck
	}

	if result.Conforms {
		c.runsConforming.Add(1)
	} else {
		c.runsViolating.Add(1)
	}

	conforms := result.Conforms
	run.Conforms = &conforms
	run.ResultCount = result.ResultCount
	run.Posted = result.Posted
	run.SetStatus(storage.RunStatusCompleted, c.now())
	c.metrics.runFinished(string(storage.RunStatusCompleted), result.Duration, result.ResultCount, result.Posted)
	c.record(ctx, logger, run)

	if c.config.PublishEntities && result.Entities.Len() > 0 && c.publisher != nil {
		n, err := publishEntities(ctx, c.publisher, c.org, run.ID, result.Entities, c.now())
		c.metrics.entitiesPublished(n)
		if err != nil {
			c.metrics.publishFailed()
			logger.Warn("Failed to publish result entities", "published", n, "error", err)
		}
	}

	c.publishOutput(ctx, logger, &ValidationOutput{
		RunID:       run.ID,
		RequestID:   req.RequestID,
		Success:     true,
		Conforms:    result.Conforms,
		ResultCount: result.ResultCount,
		Posted:      result.Posted,
		Timestamp:   result.Timestamp,
		Parameters:  run.Parameters,
		Entities:    result.Entities,
	})

	logger.Info("SHACL validation completed",
		"conforms", result.Conforms,
		"results", result.ResultCount,
		"posted", result.Posted)
	return dispositionAck
}

// requestParameters applies the request's parameter overrides to the
// configured defaults in name order.
func (c *Component) requestParameters(req *ValidationRequest) (validation.Parameters, error) {
	params := c.config.Defaults
	names := make([]string, 0, len(req.Parameters))
	for name := range req.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := params.Set(name, req.Parameters[name]); err != nil {
			return params, err
		}
	}
	return params, nil
}

// reject records and reports a run refused because of its parameters.
func (c *Component) reject(ctx context.Context, logger *slog.Logger, run *storage.Run, cause error) {
	c.runsRejected.Add(1)
	logger.Warn("Rejected validation request", "error", cause)

	run.Error = cause.Error()
	run.SetStatus(storage.RunStatusRejected, c.now())
	c.record(ctx, logger, run)

	c.publishOutput(ctx, logger, &ValidationOutput{
		RunID:      run.ID,
		RequestID:  run.RequestID,
		Parameters: run.Parameters,
		Error:      cause.Error(),
	})
}

func (c *Component) record(ctx context.Context, logger *slog.Logger, run *storage.Run) {
	if c.runs == nil {
		return
	}
	if err := c.runs.Record(ctx, run); err != nil {
		logger.Warn("Failed to record run", "status", run.Status, "error", err)
	}
}

// publishOutput publishes a ValidationOutput to JetStream.
// Subject: workflow.result.shacl-validation.<run_id>
func (c *Component) publishOutput(ctx context.Context, logger *slog.Logger, out *ValidationOutput) {
	if c.publisher == nil {
		return
	}
	baseMsg := message.NewBaseMessage(out.Schema(), out, componentName)

	data, err := json.Marshal(baseMsg)
	if err != nil {
		logger.Warn("Failed to marshal validation output", "error", err)
		return
	}

	subject := fmt.Sprintf("workflow.result.%s.%s", componentName, out.RunID)
	if err := c.publisher.PublishToStream(ctx, subject, data); err != nil {
		c.metrics.publishFailed()
		logger.Warn("Failed to publish validation output", "subject", subject, "error", err)
	}
}

// isTransient reports whether err came from an infrastructure failure that
// may clear on redelivery.
func isTransient(err error) bool {
	var httpErr *graphstore.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}

	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	c.logger.Info("shacl-validation stopped",
		"triggers_processed", c.triggersProcessed.Load(),
		"runs_conforming", c.runsConforming.Load(),
		"runs_violating", c.runsViolating.Load(),
		"runs_rejected", c.runsRejected.Load(),
		"errors", c.errorsCount.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        componentName,
		Type:        "processor",
		Description: "Validates RDF data graphs against SHACL shapes as a workflow step",
		Version:     "0.1.0",
	}
}

// InputPorts returns the configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}
	return buildPorts(c.config.Ports.Inputs, component.DirectionInput)
}

// OutputPorts returns the configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}
	return buildPorts(c.config.Ports.Outputs, component.DirectionOutput)
}

func buildPorts(defs []component.PortDefinition, direction component.Direction) []component.Port {
	ports := make([]component.Port, len(defs))
	for i, def := range defs {
		ports[i] = component.Port{
			Name:        def.Name,
			Direction:   direction,
			Required:    def.Required,
			Description: def.Description,
			Config:      component.NATSPort{Subject: def.Subject},
		}
	}
	return ports
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return shaclValidationSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	if running {
		status = "running"
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(c.errorsCount.Load()),
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{
		MessagesPerSecond: 0,
		BytesPerSecond:    0,
		ErrorRate:         0,
		LastActivity:      c.getLastActivity(),
	}
}

func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}
