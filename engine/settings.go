package engine

import (
	"fmt"
	"log/slog"
	"time"
)

// Settings configures a CommandValidator.
type Settings struct {
	// Command is the engine command line. Empty means DefaultCommand.
	Command string `yaml:"command" json:"command,omitempty"`

	// Timeout bounds one invocation, as a duration string.
	Timeout string `yaml:"timeout" json:"timeout,omitempty"`

	// TempDir is the parent directory for run files.
	TempDir string `yaml:"temp_dir" json:"temp_dir,omitempty"`
}

// GetTimeout parses the timeout. Returns DefaultTimeout if the field is
// empty or unparseable.
func (s Settings) GetTimeout() time.Duration {
	if s.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Validate checks the settings for errors.
func (s Settings) Validate() error {
	if s.Timeout != "" {
		if _, err := time.ParseDuration(s.Timeout); err != nil {
			return fmt.Errorf("invalid engine timeout %q: %w", s.Timeout, err)
		}
	}
	return nil
}

// New creates the configured validator.
func (s Settings) New(logger *slog.Logger) (*CommandValidator, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	opts := []CommandOption{WithTimeout(s.GetTimeout()), WithTempDir(s.TempDir)}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return NewCommandValidator(s.Command, opts...)
}
