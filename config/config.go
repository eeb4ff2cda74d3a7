// Package config provides configuration loading and management for semshacl.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/c360studio/semshacl/engine"
	"github.com/c360studio/semshacl/graphstore"
	"github.com/c360studio/semshacl/validation"
	"gopkg.in/yaml.v3"
)

// Config represents the complete semshacl configuration.
type Config struct {
	GraphStore graphstore.Settings   `yaml:"graph_store"`
	Engine     engine.Settings       `yaml:"engine"`
	Defaults   validation.Parameters `yaml:"defaults"`
	NATS       NATSConfig            `yaml:"nats"`
}

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	// URL is the NATS server URL (empty = nats://localhost:4222)
	URL string `yaml:"url"`
	// RunBucket is the KV bucket for run history
	RunBucket string `yaml:"run_bucket"`
}

// defaultLocal serves graphs from the working directory.
func defaultLocal() *graphstore.LocalSettings {
	return &graphstore.LocalSettings{Root: "."}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: engine.Settings{
			Command: engine.DefaultCommand,
			Timeout: engine.DefaultTimeout.String(),
		},
		Defaults: validation.DefaultParameters(),
		NATS: NATSConfig{
			URL:       "nats://localhost:4222",
			RunBucket: "SHACL_RUNS",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.GraphStore.Validate(); err != nil {
		return fmt.Errorf("graph_store: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if c.Defaults.Inference != "" && !engine.ValidInference(c.Defaults.Inference) {
		return fmt.Errorf("defaults.inference must be one of %v", engine.InferenceModes)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values). Boolean defaults cannot be reset to false by a merge,
// so a file that sets them is decoded over the accumulated config instead
// (see Loader.Load).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Graph store
	if other.GraphStore.URL != "" {
		c.GraphStore.URL = other.GraphStore.URL
		c.GraphStore.Local = nil
	}
	if other.GraphStore.Endpoint != "" {
		c.GraphStore.Endpoint = other.GraphStore.Endpoint
	}
	mergeCredentials(&c.GraphStore.Credentials, other.GraphStore.Credentials)
	if other.GraphStore.Local != nil {
		c.GraphStore.Local = other.GraphStore.Local
	}

	// Engine
	if other.Engine.Command != "" {
		c.Engine.Command = other.Engine.Command
	}
	if other.Engine.Timeout != "" {
		c.Engine.Timeout = other.Engine.Timeout
	}
	if other.Engine.TempDir != "" {
		c.Engine.TempDir = other.Engine.TempDir
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.RunBucket != "" {
		c.NATS.RunBucket = other.NATS.RunBucket
	}
}

func mergeCredentials(dst *graphstore.Credentials, src graphstore.Credentials) {
	if src.AccessToken != "" {
		dst.AccessToken = src.AccessToken
	}
	if src.ClientID != "" {
		dst.ClientID = src.ClientID
	}
	if src.ClientSecret != "" {
		dst.ClientSecret = src.ClientSecret
	}
	if src.TokenURL != "" {
		dst.TokenURL = src.TokenURL
	}
}
