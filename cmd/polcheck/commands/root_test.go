package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testRulesYAML = `version: 1
rules:
  - id: pod-named
    description: Pods must carry a name
    kind: Pod
    required:
      - path: metadata.name
        pattern: "^[a-z][a-z0-9-]*$"
`

const passingPodYAML = `apiVersion: v1
kind: Pod
metadata:
  name: web
spec:
  securityContext:
    runAsNonRoot: true
  containers:
    - name: app
      image: nginx:1.27
`

const failingPodYAML = `apiVersion: v1
kind: Pod
metadata:
  name: web
spec:
  containers:
    - name: app
      image: nginx:1.27
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// runCommand executes the root command with args and returns captured
// stdout plus the execution error.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	cmd := newRootCommand("test", "none", "now")
	cmd.SetArgs(args)
	execErr := cmd.ExecuteContext(context.Background())

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	return buf.String(), execErr
}

func TestEvaluateCommandPass(t *testing.T) {
	rules := writeTempFile(t, "rules.yaml", testRulesYAML)
	policy := writeTempFile(t, "pod.yaml", passingPodYAML)

	out, err := runCommand(t, "evaluate", rules, policy, "--dialect=kubernetes-yaml")
	if err != nil {
		t.Fatalf("expected pass, got error: %v", err)
	}
	if !strings.Contains(out, "PASS") {
		t.Errorf("output missing PASS marker:\n%s", out)
	}
}

func TestEvaluateCommandMultipleDocuments(t *testing.T) {
	rules := writeTempFile(t, "rules.yaml", testRulesYAML)
	first := writeTempFile(t, "first.yaml", passingPodYAML)
	second := writeTempFile(t, "second.yaml", passingPodYAML)

	out, err := runCommand(t, "evaluate", rules, first, second, "--dialect=kubernetes-yaml")
	if err != nil {
		t.Fatalf("expected pass, got error: %v", err)
	}
	if !strings.Contains(out, "PASS") {
		t.Errorf("output missing PASS marker:\n%s", out)
	}
}

func TestEvaluateCommandFail(t *testing.T) {
	rules := writeTempFile(t, "rules.yaml", testRulesYAML)
	policy := writeTempFile(t, "pod.yaml", failingPodYAML)

	_, err := runCommand(t, "evaluate", rules, policy, "--dialect=kubernetes-yaml")

	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitCodeError, got %v", err)
	}
	if exitErr.Code != ExitFail {
		t.Errorf("exit code = %d, want %d", exitErr.Code, ExitFail)
	}
}

func TestEvaluateCommandUnsupportedDialect(t *testing.T) {
	rules := writeTempFile(t, "rules.yaml", testRulesYAML)
	policy := writeTempFile(t, "pod.yaml", passingPodYAML)

	_, err := runCommand(t, "evaluate", rules, policy, "--dialect=cloudformation")

	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitCodeError, got %v", err)
	}
	if exitErr.Code != ExitError {
		t.Errorf("exit code = %d, want %d", exitErr.Code, ExitError)
	}
}

func TestEvaluateCommandSyntaxError(t *testing.T) {
	rules := writeTempFile(t, "rules.yaml", testRulesYAML)
	policy := writeTempFile(t, "broken.yaml", "kind: Pod\n  bad indent")

	_, err := runCommand(t, "evaluate", rules, policy, "--dialect=kubernetes-yaml")

	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitCodeError, got %v", err)
	}
	if exitErr.Code != ExitError {
		t.Errorf("exit code = %d, want %d", exitErr.Code, ExitError)
	}
}

func TestEvaluateCommandJSONFormat(t *testing.T) {
	rules := writeTempFile(t, "rules.yaml", testRulesYAML)
	policy := writeTempFile(t, "pod.yaml", passingPodYAML)

	out, err := runCommand(t, "evaluate", rules, policy, "--dialect=kubernetes-yaml", "--format=json")
	if err != nil {
		t.Fatalf("expected pass, got error: %v", err)
	}
	if !strings.Contains(out, `"pass": true`) {
		t.Errorf("JSON output missing pass field:\n%s", out)
	}
	if !strings.Contains(out, `"verdicts"`) {
		t.Errorf("JSON output missing verdicts:\n%s", out)
	}
}

func TestEvaluateCommandReference(t *testing.T) {
	rules := writeTempFile(t, "rules.yaml", testRulesYAML)
	candidate := writeTempFile(t, "candidate.yaml", failingPodYAML)
	reference := writeTempFile(t, "reference.yaml", passingPodYAML)

	_, err := runCommand(t, "evaluate", rules, candidate, "--dialect=kubernetes-yaml", "--reference="+reference)

	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitCodeError, got %v", err)
	}
	if exitErr.Code != ExitFail {
		t.Errorf("exit code = %d, want %d", exitErr.Code, ExitFail)
	}
}

func TestDialectsCommand(t *testing.T) {
	out, err := runCommand(t, "dialects")
	if err != nil {
		t.Fatalf("dialects: %v", err)
	}
	for _, want := range []string{"terraform-hcl", "kubernetes-yaml", "rego"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing dialect %q:\n%s", want, out)
		}
	}
}

func TestRulesListCommand(t *testing.T) {
	out, err := runCommand(t, "rules", "list")
	if err != nil {
		t.Fatalf("rules list: %v", err)
	}
	if !strings.Contains(out, "bucket-encryption") {
		t.Errorf("output missing builtin rule:\n%s", out)
	}
}

func TestRulesValidateCommand(t *testing.T) {
	valid := writeTempFile(t, "valid.yaml", testRulesYAML)
	invalid := writeTempFile(t, "invalid.yaml", "version: 2\nrules: []\n")

	if _, err := runCommand(t, "rules", "validate", valid); err != nil {
		t.Fatalf("valid file rejected: %v", err)
	}

	_, err := runCommand(t, "rules", "validate", invalid)
	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitCodeError, got %v", err)
	}
	if exitErr.Code != ExitFail {
		t.Errorf("exit code = %d, want %d", exitErr.Code, ExitFail)
	}
}

func TestRulesValidateCommandStructuralCheck(t *testing.T) {
	// Decodes fine but is missing kind; validate must reject it the
	// same way evaluate would.
	missingKind := writeTempFile(t, "nokind.yaml", `version: 1
rules:
  - id: unnamed-target
    required:
      - path: metadata.name
`)

	out, err := runCommand(t, "rules", "validate", missingKind)

	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitCodeError, got %v", err)
	}
	if exitErr.Code != ExitFail {
		t.Errorf("exit code = %d, want %d", exitErr.Code, ExitFail)
	}
	if !strings.Contains(out, "INVALID") {
		t.Errorf("output missing INVALID marker:\n%s", out)
	}
}
