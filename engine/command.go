package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/semshacl/rdfgraph"
	"github.com/c360studio/semshacl/vocabulary/shacl"
	"github.com/google/uuid"
)

// DefaultCommand is the validation engine invoked when none is configured.
const DefaultCommand = "pyshacl"

// DefaultTimeout bounds a single engine invocation.
const DefaultTimeout = 10 * time.Minute

// skolemBase prefixes the IRIs standing in for blank nodes while graphs are
// handed to the engine. The engine's parser renames blank nodes, so the
// report would otherwise not share them with the request graphs.
const skolemBase = "https://semshacl.invalid/.well-known/genid/"

// Engine exit codes.
const (
	exitConforms    = 0
	exitNonConforms = 1
)

// ExecError is returned when the engine fails instead of producing a report.
type ExecError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("validation engine %s failed (exit code %d)", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// CommandValidator runs a pySHACL compatible command line engine. Graphs
// are exchanged as N-Triples files in a per-run temporary directory and the
// report is read from stdout.
type CommandValidator struct {
	args    []string
	timeout time.Duration
	tempDir string
	logger  *slog.Logger
}

// CommandOption configures a CommandValidator.
type CommandOption func(*CommandValidator)

// WithTimeout bounds each engine invocation.
func WithTimeout(d time.Duration) CommandOption {
	return func(v *CommandValidator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithTempDir sets the parent directory for run files.
func WithTempDir(dir string) CommandOption {
	return func(v *CommandValidator) {
		v.tempDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CommandOption {
	return func(v *CommandValidator) {
		v.logger = logger
	}
}

// NewCommandValidator creates a validator for command, which may carry
// leading arguments such as "python3 -m pyshacl".
func NewCommandValidator(command string, opts ...CommandOption) (*CommandValidator, error) {
	if command == "" {
		command = DefaultCommand
	}
	args := splitCommand(command)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty engine command")
	}
	v := &CommandValidator{
		args:    args,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Command returns the engine command line.
func (v *CommandValidator) Command() string {
	return strings.Join(v.args, " ")
}

// Validate writes the request graphs to disk and runs the engine.
func (v *CommandValidator) Validate(ctx context.Context, req Request) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(v.tempDir, "semshacl-")
	if err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	defer os.RemoveAll(dir)

	base := skolemBase + uuid.NewString() + "/"
	data, nodes := req.Data.Skolemize(base)
	dataPath, err := writeGraph(ctx, dir, data)
	if err != nil {
		return nil, fmt.Errorf("write data graph: %w", err)
	}
	shapesPath, err := writeGraph(ctx, dir, req.Shapes)
	if err != nil {
		return nil, fmt.Errorf("write shapes graph: %w", err)
	}

	inference := req.Inference
	if inference == "" {
		inference = InferenceNone
	}
	args := append([]string{}, v.args[1:]...)
	args = append(args, "-s", shapesPath, "-sf", "nt", "-df", "nt")
	if req.Ontology != nil {
		ontology, ontologyNodes := req.Ontology.Skolemize(base)
		ontPath, err := writeGraph(ctx, dir, ontology)
		if err != nil {
			return nil, fmt.Errorf("write ontology graph: %w", err)
		}
		// Identifiers used by both graphs name different nodes; those stay
		// skolem IRIs in the report.
		for id, iri := range ontologyNodes {
			if _, ok := nodes[id]; !ok {
				nodes[id] = iri
			}
		}
		args = append(args, "-e", ontPath, "-ef", "nt")
	}
	args = append(args, "-i", inference)
	if req.MetaSHACL {
		args = append(args, "-m")
	}
	args = append(args, "-f", "nt", dataPath)

	cmdCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, v.args[0], args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	v.logger.Debug("Running validation engine",
		"command", v.args[0],
		"data_triples", req.Data.Len(),
		"shapes_triples", req.Shapes.Len(),
		"inference", inference,
		"meta_shacl", req.MetaSHACL)

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
		if ctx.Err() != nil {
			return nil, &ExecError{Command: v.Command(), ExitCode: exitCode, Stderr: "cancelled", Err: ctx.Err()}
		}
		if cmdCtx.Err() != nil {
			return nil, &ExecError{Command: v.Command(), ExitCode: exitCode, Stderr: "timed out after " + v.timeout.String(), Err: cmdCtx.Err()}
		}
	}
	if exitCode != exitConforms && exitCode != exitNonConforms {
		return nil, &ExecError{
			Command:  v.Command(),
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      runErr,
		}
	}

	parsed, err := rdfgraph.ParseBytes(ctx, stdout.Bytes(), rdfgraph.FormatNTriples)
	if err != nil {
		return nil, fmt.Errorf("parse validation report: %w", err)
	}
	report := parsed.Unskolemize(nodes)

	conforms := exitCode == exitConforms
	if value, ok := reportConforms(report); ok && value != conforms {
		v.logger.Warn("Engine exit code disagrees with report",
			"exit_code", exitCode, "report_conforms", value)
		conforms = value
	}

	return &Outcome{
		Conforms: conforms,
		Report:   report,
		Stderr:   stderr.String(),
		Duration: duration,
	}, nil
}

// reportConforms reads sh:conforms of the report node.
func reportConforms(report *rdfgraph.Graph) (bool, bool) {
	node, ok := report.Subject(rdfgraph.IRI(shacl.RDFType), rdfgraph.IRI(shacl.ValidationReport))
	if !ok {
		return false, false
	}
	value, ok := report.Value(node, rdfgraph.IRI(shacl.Conforms))
	if !ok {
		return false, false
	}
	return rdfgraph.TermText(value) == "true", true
}

func writeGraph(ctx context.Context, dir string, g *rdfgraph.Graph) (string, error) {
	path := filepath.Join(dir, uuid.NewString()+".nt")
	data, err := g.Bytes(ctx, rdfgraph.FormatNTriples)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", err
	}
	return path, nil
}

// splitCommand tokenises a command string on spaces, keeping single and
// double quoted tokens intact.
func splitCommand(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingle := false
	inDouble := false

	for _, r := range cmd {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case r == ' ' && !inSingle && !inDouble:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
