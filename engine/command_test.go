package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semshacl/rdfgraph"
	"github.com/geoknoesis/rdf-go/rdf"
)

const nonConformingReport = `_:r <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/ns/shacl#ValidationReport> .
_:r <http://www.w3.org/ns/shacl#conforms> "false"^^<http://www.w3.org/2001/XMLSchema#boolean> .
_:r <http://www.w3.org/ns/shacl#result> _:v .
_:v <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/ns/shacl#ValidationResult> .
_:v <http://www.w3.org/ns/shacl#focusNode> <http://example.org/alice> .
`

const conformingReport = `_:r <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/ns/shacl#ValidationReport> .
_:r <http://www.w3.org/ns/shacl#conforms> "true"^^<http://www.w3.org/2001/XMLSchema#boolean> .
`

// fakeEngine writes a shell script that records its arguments, prints
// report to stdout and exits with exitCode.
func fakeEngine(t *testing.T, report string, exitCode int, stderr string) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine requires a POSIX shell")
	}
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	reportFile := filepath.Join(dir, "report.nt")
	if err := os.WriteFile(reportFile, []byte(report), 0644); err != nil {
		t.Fatalf("write report: %v", err)
	}
	script := fmt.Sprintf(`#!/bin/sh
printf '%%s ' "$@" > %q
cat %q
if [ -n %q ]; then echo %q >&2; fi
exit %d
`, argsFile, reportFile, stderr, stderr, exitCode)
	path := filepath.Join(dir, "fake-pyshacl")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path, argsFile
}

func sampleGraph() *rdfgraph.Graph {
	g := rdfgraph.New()
	g.Add(rdfgraph.IRI("http://example.org/alice"), rdfgraph.IRI("http://example.org/name"), rdfgraph.Literal("Alice"))
	return g
}

func TestValidateNonConforming(t *testing.T) {
	cmd, argsFile := fakeEngine(t, nonConformingReport, 1, "")
	v, err := NewCommandValidator(cmd, WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("NewCommandValidator: %v", err)
	}

	out, err := v.Validate(context.Background(), Request{
		Data:      sampleGraph(),
		Shapes:    sampleGraph(),
		Ontology:  sampleGraph(),
		MetaSHACL: true,
		Inference: InferenceRDFS,
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out.Conforms {
		t.Error("expected non-conforming outcome")
	}
	if out.Report.Len() != 5 {
		t.Errorf("report triples = %d, want 5", out.Report.Len())
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	got := string(args)
	for _, want := range []string{"-s ", "-sf nt", "-df nt", "-e ", "-ef nt", "-i rdfs", "-m", "-f nt"} {
		if !strings.Contains(got, want) {
			t.Errorf("args %q missing %q", got, want)
		}
	}
}

func TestValidateConforming(t *testing.T) {
	cmd, argsFile := fakeEngine(t, conformingReport, 0, "")
	v, err := NewCommandValidator(cmd)
	if err != nil {
		t.Fatalf("NewCommandValidator: %v", err)
	}

	out, err := v.Validate(context.Background(), Request{Data: sampleGraph(), Shapes: sampleGraph()})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !out.Conforms {
		t.Error("expected conforming outcome")
	}

	args, _ := os.ReadFile(argsFile)
	if strings.Contains(string(args), "-e ") || strings.Contains(string(args), " -m") {
		t.Errorf("unexpected ontology or meta flags in %q", args)
	}
	if !strings.Contains(string(args), "-i none") {
		t.Errorf("expected default inference in %q", args)
	}
}

func TestValidateReportOverridesExitCode(t *testing.T) {
	cmd, _ := fakeEngine(t, nonConformingReport, 0, "")
	v, _ := NewCommandValidator(cmd)

	out, err := v.Validate(context.Background(), Request{Data: sampleGraph(), Shapes: sampleGraph()})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out.Conforms {
		t.Error("report sh:conforms false should win over exit code 0")
	}
}

func TestValidateEngineFailure(t *testing.T) {
	cmd, _ := fakeEngine(t, "", 2, "shapes graph is broken")
	v, _ := NewCommandValidator(cmd)

	_, err := v.Validate(context.Background(), Request{Data: sampleGraph(), Shapes: sampleGraph()})
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.ExitCode != 2 {
		t.Errorf("exit code = %d, want 2", execErr.ExitCode)
	}
	if execErr.Stderr != "shapes graph is broken" {
		t.Errorf("stderr = %q", execErr.Stderr)
	}
}

func TestValidateMissingCommand(t *testing.T) {
	v, _ := NewCommandValidator("/nonexistent/pyshacl")
	_, err := v.Validate(context.Background(), Request{Data: sampleGraph(), Shapes: sampleGraph()})
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.ExitCode != -1 {
		t.Errorf("exit code = %d, want -1", execErr.ExitCode)
	}
}

// scriptEngine writes a shell script engine with the given body.
func scriptEngine(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-pyshacl")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestValidateKeepsBlankNodeIdentity(t *testing.T) {
	// The engine reports the labelled data node; the data file is the last
	// argument.
	cmd := scriptEngine(t, `eval data=\${$#}
if grep -q '^_:' "$data"; then echo "blank node in data file" >&2; exit 2; fi
focus=$(grep 'label' "$data" | cut -d' ' -f1)
echo '_:r <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/ns/shacl#ValidationReport> .'
echo '_:r <http://www.w3.org/ns/shacl#result> _:v .'
echo '_:v <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/ns/shacl#ValidationResult> .'
echo "_:v <http://www.w3.org/ns/shacl#focusNode> $focus ."
exit 1`)
	v, _ := NewCommandValidator(cmd)

	node := rdf.BlankNode{ID: "b0"}
	data := rdfgraph.New()
	data.Add(node, rdfgraph.IRI("http://www.w3.org/2000/01/rdf-schema#label"), rdfgraph.Literal("X"))

	out, err := v.Validate(context.Background(), Request{Data: data, Shapes: sampleGraph()})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if _, ok := out.Report.Subject(rdfgraph.IRI("http://www.w3.org/ns/shacl#focusNode"), node); !ok {
		t.Fatalf("focus node does not refer to the data graph blank node: %v", out.Report.Triples())
	}
	if label, ok := data.LabelText(node); !ok || label != "X" {
		t.Errorf("data label = %q, %v", label, ok)
	}
}

func TestValidateCancelled(t *testing.T) {
	cmd := scriptEngine(t, "exec sleep 5")
	v, _ := NewCommandValidator(cmd, WithTimeout(time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := v.Validate(ctx, Request{Data: sampleGraph(), Shapes: sampleGraph()})
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.Stderr != "cancelled" {
		t.Errorf("stderr = %q, want cancelled", execErr.Stderr)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected parent context error, got %v", err)
	}
}

func TestValidateTimeout(t *testing.T) {
	cmd := scriptEngine(t, "exec sleep 5")
	v, _ := NewCommandValidator(cmd, WithTimeout(100*time.Millisecond))

	_, err := v.Validate(context.Background(), Request{Data: sampleGraph(), Shapes: sampleGraph()})
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if !strings.HasPrefix(execErr.Stderr, "timed out after") {
		t.Errorf("stderr = %q, want timeout", execErr.Stderr)
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"complete", Request{Data: sampleGraph(), Shapes: sampleGraph(), Inference: InferenceBoth}, false},
		{"no data", Request{Shapes: sampleGraph()}, true},
		{"no shapes", Request{Data: sampleGraph()}, true},
		{"bad inference", Request{Data: sampleGraph(), Shapes: sampleGraph(), Inference: "owl2"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"pyshacl", []string{"pyshacl"}},
		{"python3 -m pyshacl", []string{"python3", "-m", "pyshacl"}},
		{`"/opt/my tools/pyshacl" -a`, []string{"/opt/my tools/pyshacl", "-a"}},
		{"  ", nil},
	}
	for _, tt := range tests {
		got := splitCommand(tt.input)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("splitCommand(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewCommandValidatorDefault(t *testing.T) {
	v, err := NewCommandValidator("")
	if err != nil {
		t.Fatalf("NewCommandValidator: %v", err)
	}
	if v.Command() != DefaultCommand {
		t.Errorf("Command() = %q, want %q", v.Command(), DefaultCommand)
	}
}
