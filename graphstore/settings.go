package graphstore

import (
	"fmt"
	"log/slog"
)

// Settings selects and configures a Store. A non-empty URL selects the
// HTTP client, otherwise Local selects file-backed graphs.
type Settings struct {
	// URL is the DataPlatform base URL.
	URL string `yaml:"url" json:"url,omitempty"`

	// Endpoint is the graph proxy endpoint identifier.
	Endpoint string `yaml:"endpoint" json:"endpoint,omitempty"`

	Credentials Credentials `yaml:"credentials" json:"credentials,omitempty"`

	Local *LocalSettings `yaml:"local,omitempty" json:"local,omitempty"`
}

// LocalSettings configures a LocalStore.
type LocalSettings struct {
	Root      string       `yaml:"root" json:"root"`
	OutputDir string       `yaml:"output_dir" json:"output_dir,omitempty"`
	Graphs    []LocalGraph `yaml:"graphs" json:"graphs"`
}

// Validate checks that a store is selected.
func (s Settings) Validate() error {
	if s.URL == "" && s.Local == nil {
		return fmt.Errorf("graph store url or local graphs are required")
	}
	return nil
}

// Open creates the configured Store.
func (s Settings) Open(logger *slog.Logger) (Store, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if s.URL != "" {
		opts := []Option{WithLogger(logger), WithCredentials(s.Credentials)}
		if s.Endpoint != "" {
			opts = append(opts, WithEndpoint(s.Endpoint))
		}
		return NewClient(s.URL, opts...)
	}
	root := s.Local.Root
	if root == "" {
		root = "."
	}
	return NewLocalStore(root, s.Local.OutputDir, s.Local.Graphs, logger)
}
