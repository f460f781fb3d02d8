package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestHelperProcess is a subprocess entrypoint used by tests.
//
// This pattern allows tests to execute main() and observe:
//   - process exit codes (including os.Exit),
//   - stdout/stderr output,
//
// without terminating the parent "go test" process.
//
// The parent test runs the current test binary with:
//
//	-test.run=TestHelperProcess
//
// and sets GO_WANT_HELPER_PROCESS=1.
//
// Any arguments after a literal "--" are treated as CLI args for the command.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	// Rebuild os.Args to contain only the command arguments passed after "--".
	args := os.Args
	i := 0
	for ; i < len(args); i++ {
		if args[i] == "--" {
			break
		}
	}
	if i < len(args) {
		os.Args = append([]string{args[0]}, args[i+1:]...)
	} else {
		// No args were provided; keep argv0 only.
		os.Args = []string{args[0]}
	}

	main()
	os.Exit(0)
}

// runCmd executes the command's main() in a subprocess and returns the captured
// stdout, stderr, and the process exit code.
//
// The subprocess is the current test binary, re-invoked with
// -test.run=TestHelperProcess, so it runs on all platforms supported by Go tests.
func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	cmdArgs := []string{"-test.run=TestHelperProcess", "--"}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.Command(os.Args[0], cmdArgs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	// Exit code handling: nil means exit 0.
	if err == nil {
		return stdout, stderr, 0
	}

	// For non-zero exits, Go returns *exec.ExitError.
	if ee, ok := err.(*exec.ExitError); ok {
		return stdout, stderr, ee.ExitCode()
	}

	// Unexpected error type (e.g., binary not runnable). Fail loudly.
	t.Fatalf("unexpected run error: %T: %v", err, err)
	return "", "", 1
}

func writeSampleCSV(t *testing.T) string {
	t.Helper()
	csvPath := filepath.Join(t.TempDir(), "sample.csv")
	csv := strings.Join([]string{
		"id,category,value",
		"1,a,10.5",
		"2,a,11.5",
		"3,b,12.5",
		"4,b,13.5",
		"5,c,14.5",
		"",
	}, "\n")
	if err := os.WriteFile(csvPath, []byte(csv), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return csvPath
}

func TestMain_ReportMode_SuppressesJSONAndPrintsReportToStdout(t *testing.T) {
	t.Parallel()

	csvPath := writeSampleCSV(t)

	stdout, stderr, code := runCmd(
		t,
		"-input", csvPath,
		"-report=true",
	)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d\nstderr:\n%s\nstdout:\n%s", code, stderr, stdout)
	}

	// In report mode, stdout should contain the per-column table and MUST
	// NOT contain config JSON.
	for _, col := range []string{"id", "category", "value"} {
		if !strings.Contains(stdout, col) {
			t.Fatalf("expected column %q in report, got:\n%s", col, stdout)
		}
	}
	if strings.Contains(stdout, `"input"`) {
		t.Fatalf("expected report-only output (no JSON), got stdout:\n%s", stdout)
	}

	// Report mode should not require stderr output.
	_ = stderr
}

func TestMain_DefaultMode_EmitsLoadableConfig(t *testing.T) {
	t.Parallel()

	csvPath := writeSampleCSV(t)

	stdout, stderr, code := runCmd(
		t,
		"-input", csvPath,
		"-name", "My Sample",
		"-storage", "sqlite",
	)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d\nstderr:\n%s\nstdout:\n%s", code, stderr, stdout)
	}

	var run map[string]any
	if err := json.Unmarshal([]byte(stdout), &run); err != nil {
		t.Fatalf("stdout is not valid JSON: %v\nstdout:\n%s\nstderr:\n%s", err, stdout, stderr)
	}
	if run["job"] != "my_sample" {
		t.Fatalf("job = %v, want my_sample", run["job"])
	}
	st, ok := run["storage"].(map[string]any)
	if !ok || st["kind"] != "sqlite" {
		t.Fatalf("storage section missing or wrong: %v", run["storage"])
	}
}

func TestMain_MissingInput_ExitsWith2AndPrintsUsage(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := runCmd(t /* no args */)

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d\nstderr:\n%s\nstdout:\n%s", code, stderr, stdout)
	}
	if !strings.Contains(stderr, "usage: probe") {
		t.Fatalf("expected usage message on stderr, got:\n%s", stderr)
	}
}

func TestBuildRun_DefaultsMatchInput(t *testing.T) {
	run := buildRun("data/in.csv", "csv", "retail demo", 15, 321)

	if run.Job != "retail_demo" {
		t.Fatalf("Job = %q", run.Job)
	}
	if run.Input.Path != "data/in.csv" || run.Input.Kind != "csv" {
		t.Fatalf("Input = %+v", run.Input)
	}
	if run.Output.Path != "retail_demo_synth.csv" {
		t.Fatalf("Output.Path = %q", run.Output.Path)
	}
	if run.Synth.Rows != 321 || run.Synth.Seed != 42 || run.Synth.CardinalityThreshold != 15 {
		t.Fatalf("Synth = %+v", run.Synth)
	}
}

func TestResolveDSN_Precedence(t *testing.T) {
	old := os.Getenv("DSN")
	t.Cleanup(func() { _ = os.Setenv("DSN", old) })

	_ = os.Setenv("DSN", "env-dsn")
	if got := resolveDSN("postgres", "flag-dsn", "demo"); got != "flag-dsn" {
		t.Fatalf("flag should win: %q", got)
	}
	if got := resolveDSN("postgres", "", "demo"); got != "env-dsn" {
		t.Fatalf("env should win over default: %q", got)
	}

	_ = os.Setenv("DSN", "")
	if got := resolveDSN("postgres", "", "demo"); !strings.HasPrefix(got, "postgres://") {
		t.Fatalf("postgres default = %q", got)
	}
	if got := resolveDSN("mssql", "", "demo"); !strings.HasPrefix(got, "sqlserver://") {
		t.Fatalf("mssql default = %q", got)
	}
	if got := resolveDSN("sqlite", "", "demo"); got != "demo.db" {
		t.Fatalf("sqlite default = %q", got)
	}
	if got := resolveDSN("oracle", "", "demo"); got != "" {
		t.Fatalf("unknown kind default = %q", got)
	}
}
