package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	semshaclconfig "github.com/c360studio/semshacl/config"
	shaclvalidation "github.com/c360studio/semshacl/processor/shacl-validation"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/componentregistry"
	"github.com/c360studio/semstreams/config"
	"github.com/c360studio/semstreams/metric"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/c360studio/semstreams/service"
	"github.com/c360studio/semstreams/types"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	global     *globalOptions
	flowConfig string
	org        string
	httpPort   int
	entities   bool
}

func serveCmd(global *globalOptions) *cobra.Command {
	opts := &serveOptions{global: global}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the shacl-validation workflow component",
		Long: `Serve connects to NATS and runs the shacl-validation component, which
consumes requests from workflow.trigger.shacl-validation and publishes
results to workflow.result.shacl-validation.<run_id>.

Without --flow-config a minimal semstreams configuration is built from the
semshacl configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}

	cmd.Flags().StringVar(&opts.flowConfig, "flow-config", "", "semstreams config file (JSON) replacing the built-in flow")
	cmd.Flags().StringVar(&opts.org, "org", "semshacl", "Organization for entity IDs")
	cmd.Flags().IntVar(&opts.httpPort, "http-port", 8080, "Service manager HTTP port")
	cmd.Flags().BoolVar(&opts.entities, "publish-entities", false, "Publish validation results as graph entities")

	return cmd
}

func (o *serveOptions) run(cmd *cobra.Command) error {
	printBanner(cmd)

	shaclCfg, logger, err := o.global.setup(cmd)
	if err != nil {
		return err
	}

	cfg, err := o.loadFlowConfig(shaclCfg)
	if err != nil {
		return fmt.Errorf("load flow config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := context.Background()
	natsClient, err := connectToNATS(ctx, natsURL(shaclCfg, cfg), logger)
	if err != nil {
		return err
	}
	defer natsClient.Close(ctx)

	if err := ensureStreams(ctx, cfg, natsClient, logger); err != nil {
		return err
	}

	metricsRegistry := metric.NewMetricsRegistry()
	platform := extractPlatformMeta(cfg)

	configManager, err := config.NewConfigManager(cfg, natsClient, logger)
	if err != nil {
		return fmt.Errorf("create config manager: %w", err)
	}
	if err := configManager.Start(ctx); err != nil {
		return fmt.Errorf("start config manager: %w", err)
	}
	defer configManager.Stop(5 * time.Second)

	slog.Info("Platform identity configured",
		"org", platform.Org,
		"platform", platform.Platform)

	componentRegistry := component.NewRegistry()

	slog.Debug("Registering semstreams component factories")
	if err := componentregistry.Register(componentRegistry); err != nil {
		return fmt.Errorf("register semstreams components: %w", err)
	}

	slog.Debug("Registering semshacl component factories")
	if err := shaclvalidation.Register(componentRegistry); err != nil {
		return fmt.Errorf("register shacl-validation: %w", err)
	}

	factories := componentRegistry.ListFactories()
	slog.Info("Component factories registered", "count", len(factories))

	serviceRegistry := service.NewServiceRegistry()
	if err := service.RegisterAll(serviceRegistry); err != nil {
		return fmt.Errorf("register services: %w", err)
	}

	manager := service.NewServiceManager(serviceRegistry)
	ensureServiceManagerConfig(cfg, o.httpPort)

	svcDeps := &service.Dependencies{
		NATSClient:        natsClient,
		MetricsRegistry:   metricsRegistry,
		Logger:            logger,
		Platform:          platform,
		Manager:           configManager,
		ComponentRegistry: componentRegistry,
	}

	if err := configureAndCreateServices(cfg, manager, svcDeps); err != nil {
		return err
	}

	slog.Info("All services configured")

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	slog.Info("Starting all services")
	if err := manager.StartAll(signalCtx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	slog.Info("Semshacl ready", "version", Version)

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	shutdownTimeout := 30 * time.Second
	if err := manager.StopAll(shutdownTimeout); err != nil {
		slog.Error("Error stopping services", "error", err)
	}

	slog.Info("Semshacl shutdown complete")
	return nil
}

func printBanner(cmd *cobra.Command) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "╔═══════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║             Semshacl v"+Version+"                    ║")
	fmt.Fprintln(w, "║      SHACL Validation Workflow Component      ║")
	fmt.Fprintln(w, "╚═══════════════════════════════════════════════╝")
}

func (o *serveOptions) loadFlowConfig(shaclCfg *semshaclconfig.Config) (*config.Config, error) {
	if o.flowConfig != "" {
		return loadConfigWithEnvSubstitution(o.flowConfig)
	}
	return buildFlowConfig(shaclCfg, o.org, o.entities)
}

// loadConfigWithEnvSubstitution reads a config file and expands environment
// variables before parsing. Supports ${VAR} and ${VAR:-default} syntax.
func loadConfigWithEnvSubstitution(configPath string) (*config.Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := config.ExpandEnvWithDefaults(string(data))

	loader := config.NewLoader()
	return loader.LoadFromBytes([]byte(expanded))
}

// componentConfig converts the semshacl configuration into the JSON config
// of the shacl-validation component.
func componentConfig(shaclCfg *semshaclconfig.Config, publishEntities bool) (json.RawMessage, error) {
	compCfg := shaclvalidation.DefaultConfig()
	compCfg.GraphStore = shaclCfg.GraphStore
	compCfg.Engine = shaclCfg.Engine
	compCfg.Defaults = shaclCfg.Defaults
	compCfg.PublishEntities = publishEntities
	if shaclCfg.NATS.RunBucket != "" {
		compCfg.RunBucket = shaclCfg.NATS.RunBucket
	}
	if err := compCfg.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(compCfg)
}

func buildFlowConfig(shaclCfg *semshaclconfig.Config, org string, publishEntities bool) (*config.Config, error) {
	compJSON, err := componentConfig(shaclCfg, publishEntities)
	if err != nil {
		return nil, fmt.Errorf("shacl-validation config: %w", err)
	}

	return &config.Config{
		Version: "1.0.0",
		Platform: config.PlatformConfig{
			Org:         org,
			ID:          "semshacl-local",
			Environment: "dev",
		},
		NATS: config.NATSConfig{
			URLs:          []string{shaclCfg.NATS.URL},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			JetStream: config.JetStreamConfig{
				Enabled: true,
			},
		},
		Services: types.ServiceConfigs{},
		Components: config.ComponentConfigs{
			"shacl-validation": types.ComponentConfig{
				Name:    "shacl-validation",
				Type:    types.ComponentTypeProcessor,
				Enabled: true,
				Config:  compJSON,
			},
		},
		Streams: config.StreamConfigs{
			"WORKFLOWS": config.StreamConfig{
				Subjects: []string{
					"workflow.trigger.>",
					"workflow.result.>",
				},
				MaxAge:   "24h",
				Storage:  "file",
				Replicas: 1,
			},
			"GRAPH": config.StreamConfig{
				Subjects: []string{
					"graph.ingest.entity",
				},
				MaxAge:   "24h",
				Storage:  "memory",
				Replicas: 1,
			},
		},
	}, nil
}

// natsURL picks the NATS server: the semshacl configuration (which already
// includes the NATS_URL override) unless a flow config lists servers.
func natsURL(shaclCfg *semshaclconfig.Config, cfg *config.Config) string {
	if len(cfg.NATS.URLs) > 0 && cfg.NATS.URLs[0] != "" {
		return strings.Join(cfg.NATS.URLs, ",")
	}
	if shaclCfg.NATS.URL != "" {
		return shaclCfg.NATS.URL
	}
	return "nats://localhost:4222"
}

func connectToNATS(ctx context.Context, natsURLs string, logger *slog.Logger) (*natsclient.Client, error) {
	logger.Info("Connecting to NATS", "url", natsURLs)

	client, err := natsclient.NewClient(natsURLs,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithCircuitBreakerThreshold(20),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, natsURLs)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, natsURLs)
	}

	logger.Info("Connected to NATS", "url", natsURLs)
	return client, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker run -p 4222:4222 nats -js

Or set NATS_URL environment variable to point to your NATS server.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

func ensureStreams(ctx context.Context, cfg *config.Config, natsClient *natsclient.Client, logger *slog.Logger) error {
	logger.Debug("Creating JetStream streams")
	streamsManager := config.NewStreamsManager(natsClient, logger)

	if err := streamsManager.EnsureStreams(ctx, cfg); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	logger.Debug("JetStream streams ready")
	return nil
}

func extractPlatformMeta(cfg *config.Config) types.PlatformMeta {
	platformID := cfg.Platform.InstanceID
	if platformID == "" {
		platformID = cfg.Platform.ID
	}

	return types.PlatformMeta{
		Org:      cfg.Platform.Org,
		Platform: platformID,
	}
}

// ensureServiceManagerConfig ensures service-manager config exists with defaults
func ensureServiceManagerConfig(cfg *config.Config, httpPort int) {
	if cfg.Services == nil {
		cfg.Services = make(types.ServiceConfigs)
	}

	if _, exists := cfg.Services["service-manager"]; !exists {
		slog.Debug("Adding default service-manager config")
		defaultConfig := map[string]any{
			"http_port":  httpPort,
			"swagger_ui": false,
			"server_info": map[string]string{
				"title":       "Semshacl API",
				"description": "SHACL validation workflow component",
				"version":     Version,
			},
		}
		defaultConfigJSON, _ := json.Marshal(defaultConfig)
		cfg.Services["service-manager"] = types.ServiceConfig{
			Name:    "service-manager",
			Enabled: true,
			Config:  defaultConfigJSON,
		}
	}
}

// configureAndCreateServices configures the manager and creates all services
func configureAndCreateServices(
	cfg *config.Config,
	manager *service.Manager,
	svcDeps *service.Dependencies,
) error {
	slog.Debug("Configuring Manager")
	if err := manager.ConfigureFromServices(cfg.Services, svcDeps); err != nil {
		return fmt.Errorf("configure service manager: %w", err)
	}

	slog.Debug("Creating services from config", "count", len(cfg.Services))
	for name, svcConfig := range cfg.Services {
		if name == "service-manager" {
			continue
		}

		if err := createServiceIfEnabled(manager, name, svcConfig, svcDeps); err != nil {
			return err
		}
	}

	return nil
}

// createServiceIfEnabled creates a service if it's enabled and registered
func createServiceIfEnabled(
	manager *service.Manager,
	name string,
	svcConfig types.ServiceConfig,
	svcDeps *service.Dependencies,
) error {
	if !svcConfig.Enabled {
		slog.Info("Service disabled in config", "name", name)
		return nil
	}

	if !manager.HasConstructor(name) {
		slog.Warn("Service configured but not registered", "key", name, "available_constructors", manager.ListConstructors())
		return nil
	}

	if _, err := manager.CreateService(name, svcConfig.Config, svcDeps); err != nil {
		return fmt.Errorf("create service %s: %w", name, err)
	}

	slog.Info("Created service", "name", name, "config_name", svcConfig.Name)
	return nil
}
