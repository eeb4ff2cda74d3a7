package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "semshacl.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/semshacl"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// dataPlatformPath locates the DataPlatform below the CMEM base URI.
const dataPlatformPath = "/dataplatform"

// Environment variables read by Load, applied after all config files.
// EnvEndpoint is the DataPlatform URL; without it the DataPlatform is
// expected below EnvBaseURI.
const (
	EnvBaseURI      = "CMEM_BASE_URI"
	EnvEndpoint     = "DP_API_ENDPOINT"
	EnvClientID     = "OAUTH_CLIENT_ID"
	EnvClientSecret = "OAUTH_CLIENT_SECRET"
	EnvTokenURL     = "OAUTH_TOKEN_URL"
	EnvAccessToken  = "OAUTH_ACCESS_TOKEN"
	EnvEngine       = "SEMSHACL_ENGINE"
	EnvNATSURL      = "NATS_URL"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger  *slog.Logger
	getenv  func(string) string
	workDir string
	homeDir string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnv replaces the environment lookup.
func WithEnv(getenv func(string) string) LoaderOption {
	return func(l *Loader) {
		l.getenv = getenv
	}
}

// WithDirs sets the working and home directories searched for config files.
func WithDirs(workDir, homeDir string) LoaderOption {
	return func(l *Loader) {
		l.workDir = workDir
		l.homeDir = homeDir
	}
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger, getenv: os.Getenv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/semshacl/config.yaml)
// 3. Project config (semshacl.yaml in current or parent directories)
// 4. Explicit file, if path is not empty
// 5. Environment variables
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfigPath != "" {
		if err := applyFile(config, userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		} else if !os.IsNotExist(err) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if err := applyFile(config, projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if path != "" {
		if err := applyFile(config, path); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config", slog.String("path", path))
	}

	l.applyEnv(config)

	// Without any store configured, graphs resolve against the working directory.
	if config.GraphStore.URL == "" && config.GraphStore.Local == nil {
		config.GraphStore.Local = defaultLocal()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyFile merges the file at path into config. The defaults section is
// decoded over the accumulated parameters so booleans can be reset.
func applyFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	other := &Config{}
	if err := yaml.Unmarshal(data, other); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	config.Merge(other)

	var raw struct {
		Defaults yaml.Node `yaml:"defaults"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if !raw.Defaults.IsZero() {
		if err := raw.Defaults.Decode(&config.Defaults); err != nil {
			return fmt.Errorf("failed to parse defaults in %s: %w", path, err)
		}
	}
	return nil
}

func (l *Loader) applyEnv(config *Config) {
	if v := l.getenv(EnvEndpoint); v != "" {
		config.GraphStore.URL = v
		config.GraphStore.Local = nil
	} else if v := l.getenv(EnvBaseURI); v != "" {
		config.GraphStore.URL = strings.TrimRight(v, "/") + dataPlatformPath
		config.GraphStore.Local = nil
	}
	creds := &config.GraphStore.Credentials
	if v := l.getenv(EnvClientID); v != "" {
		creds.ClientID = v
	}
	if v := l.getenv(EnvClientSecret); v != "" {
		creds.ClientSecret = v
	}
	if v := l.getenv(EnvTokenURL); v != "" {
		creds.TokenURL = v
	}
	if v := l.getenv(EnvAccessToken); v != "" {
		creds.AccessToken = v
	}
	if v := l.getenv(EnvEngine); v != "" {
		config.Engine.Command = v
	}
	if v := l.getenv(EnvNATSURL); v != "" {
		config.NATS.URL = v
	}
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()
	if userConfigPath == "" {
		return fmt.Errorf("no home directory")
	}

	if _, err := os.Stat(userConfigPath); err == nil {
		return nil
	}

	config := DefaultConfig()
	config.GraphStore.Local = defaultLocal()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home := l.homeDir
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return ""
		}
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for semshacl.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	dir := l.workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
