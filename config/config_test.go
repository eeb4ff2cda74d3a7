package config

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/semshacl/engine"
	"github.com/c360studio/semshacl/graphstore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Engine.Command != "pyshacl" {
		t.Errorf("expected default engine pyshacl, got %s", cfg.Engine.Command)
	}
	if cfg.Engine.GetTimeout() != engine.DefaultTimeout {
		t.Errorf("expected default engine timeout %v, got %v", engine.DefaultTimeout, cfg.Engine.GetTimeout())
	}
	if !cfg.Defaults.OutputValues || !cfg.Defaults.OWLImportsResolution {
		t.Error("expected output_values and owl_imports_resolution enabled by default")
	}
	if cfg.Defaults.Inference != engine.InferenceNone {
		t.Errorf("expected inference none, got %s", cfg.Defaults.Inference)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "local store",
			modify:  func(c *Config) { c.GraphStore.Local = defaultLocal() },
			wantErr: false,
		},
		{
			name:    "remote store",
			modify:  func(c *Config) { c.GraphStore.URL = "https://cmem.example.org" },
			wantErr: false,
		},
		{
			name:    "no store",
			modify:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "bad engine timeout",
			modify: func(c *Config) {
				c.GraphStore.Local = defaultLocal()
				c.Engine.Timeout = "forever"
			},
			wantErr: true,
		},
		{
			name: "bad inference",
			modify: func(c *Config) {
				c.GraphStore.Local = defaultLocal()
				c.Defaults.Inference = "owl2"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
graph_store:
  url: "https://cmem.example.org"
  endpoint: "default"
  credentials:
    client_id: "cmem-service-account"
    client_secret: "secret"
    token_url: "https://cmem.example.org/auth/token"
engine:
  command: "python -m pyshacl"
  timeout: 2m
defaults:
  data_graph_uri: "https://example.org/data/"
  inference: rdfs
nats:
  url: "nats://test:4222"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.GraphStore.URL != "https://cmem.example.org" {
		t.Errorf("expected graph store URL, got %s", cfg.GraphStore.URL)
	}
	if cfg.GraphStore.Credentials.ClientID != "cmem-service-account" {
		t.Errorf("expected client id, got %s", cfg.GraphStore.Credentials.ClientID)
	}
	if cfg.Engine.Command != "python -m pyshacl" {
		t.Errorf("expected engine command, got %s", cfg.Engine.Command)
	}
	if cfg.Engine.Timeout != "2m" {
		t.Errorf("expected engine timeout 2m, got %s", cfg.Engine.Timeout)
	}
	if cfg.Defaults.DataGraphURI != "https://example.org/data/" {
		t.Errorf("expected data graph, got %s", cfg.Defaults.DataGraphURI)
	}
	if cfg.Defaults.Inference != "rdfs" {
		t.Errorf("expected inference rdfs, got %s", cfg.Defaults.Inference)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	base.GraphStore.Local = defaultLocal()
	override := &Config{
		GraphStore: graphstore.Settings{
			URL:         "https://cmem.example.org",
			Credentials: graphstore.Credentials{AccessToken: "token"},
		},
		Engine: engine.Settings{Timeout: "30s"},
	}

	base.Merge(override)

	if base.GraphStore.URL != "https://cmem.example.org" {
		t.Errorf("expected merged URL, got %s", base.GraphStore.URL)
	}
	if base.GraphStore.Local != nil {
		t.Error("expected a remote store to replace the local store")
	}
	if base.GraphStore.Credentials.AccessToken != "token" {
		t.Errorf("expected merged access token, got %s", base.GraphStore.Credentials.AccessToken)
	}
	// Command should remain from base since override didn't set it
	if base.Engine.Command != engine.DefaultCommand {
		t.Errorf("expected engine command to remain default, got %s", base.Engine.Command)
	}
	if base.Engine.Timeout != "30s" {
		t.Errorf("expected timeout 30s, got %s", base.Engine.Timeout)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.GraphStore.Local = defaultLocal()
	cfg.Engine.Command = "saved-engine"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Engine.Command != "saved-engine" {
		t.Errorf("expected engine saved-engine, got %s", loaded.Engine.Command)
	}
	if loaded.GraphStore.Local == nil || loaded.GraphStore.Local.Root != "." {
		t.Errorf("expected local root to round trip, got %+v", loaded.GraphStore.Local)
	}
}

func TestLoaderLayers(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	work := filepath.Join(project, "nested", "dir")
	if err := os.MkdirAll(work, 0755); err != nil {
		t.Fatal(err)
	}

	userConfig := `
engine:
  command: user-engine
defaults:
  output_values: false
  data_graph_uri: "https://example.org/user/"
`
	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile), userConfig)

	projectConfig := `
graph_store:
  local:
    root: graphs
    graphs:
      - iri: "https://example.org/data/"
        files: ["data/*.ttl"]
defaults:
  data_graph_uri: "https://example.org/data/"
`
	writeFile(t, filepath.Join(project, ProjectConfigFile), projectConfig)

	env := map[string]string{EnvAccessToken: "env-token"}
	loader := NewLoader(nil, WithDirs(work, home), WithEnv(func(k string) string { return env[k] }))

	cfg, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.Command != "user-engine" {
		t.Errorf("expected user engine, got %s", cfg.Engine.Command)
	}
	if cfg.Defaults.OutputValues {
		t.Error("expected user config to disable output_values")
	}
	if !cfg.Defaults.SkolemizeValidationGraph {
		t.Error("expected untouched defaults to survive")
	}
	if cfg.Defaults.DataGraphURI != "https://example.org/data/" {
		t.Errorf("expected project data graph to win, got %s", cfg.Defaults.DataGraphURI)
	}
	if cfg.GraphStore.Local == nil || cfg.GraphStore.Local.Root != "graphs" || len(cfg.GraphStore.Local.Graphs) != 1 {
		t.Errorf("expected project local store, got %+v", cfg.GraphStore.Local)
	}
	if cfg.GraphStore.Credentials.AccessToken != "env-token" {
		t.Errorf("expected env access token, got %s", cfg.GraphStore.Credentials.AccessToken)
	}
}

func TestLoaderEnvironment(t *testing.T) {
	env := map[string]string{
		EnvBaseURI:      "https://cmem.example.org/",
		EnvClientID:     "client",
		EnvClientSecret: "secret",
		EnvTokenURL:     "https://cmem.example.org/auth/token",
		EnvEngine:       "/opt/pyshacl/bin/pyshacl",
		EnvNATSURL:      "nats://nats:4222",
	}
	loader := NewLoader(nil, WithDirs(t.TempDir(), t.TempDir()), WithEnv(func(k string) string { return env[k] }))

	cfg, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GraphStore.URL != "https://cmem.example.org/dataplatform" || cfg.GraphStore.Local != nil {
		t.Errorf("expected DataPlatform below the base URI, got %+v", cfg.GraphStore)
	}
	if cfg.GraphStore.Endpoint != "" {
		t.Errorf("expected endpoint to stay config-only, got %s", cfg.GraphStore.Endpoint)
	}
	creds := cfg.GraphStore.Credentials
	if creds.ClientID != "client" || creds.ClientSecret != "secret" || creds.TokenURL == "" {
		t.Errorf("expected client credentials from env, got %+v", creds)
	}
	if cfg.Engine.Command != "/opt/pyshacl/bin/pyshacl" {
		t.Errorf("expected engine from env, got %s", cfg.Engine.Command)
	}
	if cfg.NATS.URL != "nats://nats:4222" {
		t.Errorf("expected NATS URL from env, got %s", cfg.NATS.URL)
	}
}

func TestLoaderEnvironmentRequestURLs(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/graphs/list") {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, "[]")
			return
		}
		w.Header().Set("Content-Type", "text/turtle")
		io.WriteString(w, "<http://example.org/s> <http://example.org/p> \"v\" .\n")
	}))
	defer server.Close()

	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "base uri", env: map[string]string{EnvBaseURI: server.URL}},
		{name: "dataplatform endpoint", env: map[string]string{EnvEndpoint: server.URL + "/dataplatform"}},
		{name: "endpoint wins", env: map[string]string{
			EnvBaseURI:  "https://other.example.org",
			EnvEndpoint: server.URL + "/dataplatform",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths = nil
			loader := NewLoader(nil, WithDirs(t.TempDir(), t.TempDir()), WithEnv(func(k string) string { return tt.env[k] }))
			cfg, err := loader.Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			store, err := cfg.GraphStore.Open(nil)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			ctx := context.Background()
			if _, err := store.ListGraphs(ctx); err != nil {
				t.Fatalf("ListGraphs() error = %v", err)
			}
			if _, err := store.GetGraph(ctx, "https://example.org/data/", graphstore.GetOptions{}); err != nil {
				t.Fatalf("GetGraph() error = %v", err)
			}

			want := []string{"/dataplatform/graphs/list", "/dataplatform/proxy/default/graph"}
			if len(paths) != len(want) {
				t.Fatalf("requests = %v, want %v", paths, want)
			}
			for i := range want {
				if paths[i] != want[i] {
					t.Errorf("request %d = %s, want %s", i, paths[i], want[i])
				}
			}
		})
	}
}

func TestLoaderDefaultsToLocalStore(t *testing.T) {
	loader := NewLoader(nil, WithDirs(t.TempDir(), t.TempDir()), WithEnv(func(string) string { return "" }))

	cfg, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GraphStore.Local == nil || cfg.GraphStore.Local.Root != "." {
		t.Errorf("expected local store rooted at the working directory, got %+v", cfg.GraphStore.Local)
	}
}

func TestLoaderExplicitFile(t *testing.T) {
	loader := NewLoader(nil, WithDirs(t.TempDir(), t.TempDir()), WithEnv(func(string) string { return "" }))

	if _, err := loader.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}

	path := filepath.Join(t.TempDir(), "explicit.yaml")
	writeFile(t, path, "engine:\n  timeout: 90s\n")
	cfg, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.Timeout != "90s" {
		t.Errorf("expected timeout 90s, got %s", cfg.Engine.Timeout)
	}
}

func TestEnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	loader := NewLoader(nil, WithDirs(t.TempDir(), home))

	if err := loader.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	path := filepath.Join(home, UserConfigDir, UserConfigFile)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("failed to load created config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("created config is invalid: %v", err)
	}

	// A second call leaves the file alone.
	writeFile(t, path, "engine:\n  command: custom\n")
	if err := loader.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	cfg, _ = LoadFromFile(path)
	if cfg.Engine.Command != "custom" {
		t.Errorf("expected existing config to be kept, got %s", cfg.Engine.Command)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
