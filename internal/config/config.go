// Package config defines the JSON run configuration consumed by the
// tabsynth commands.
//
// A run config describes:
//   - where the real table comes from (CSV file or HTML page)
//   - synthesis parameters (seed, cardinality threshold, row count)
//   - evaluation parameters (target column, task type, privacy k)
//   - optional storage and metrics backends
//
// The package is intentionally side-effect free: loading, defaulting and
// validation never touch the network or the filesystem beyond the config
// file itself.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Run is the top-level configuration for one synthesis run.
type Run struct {
	// Job is the logical job name used in metrics tags and storage rows.
	// Defaults to "tabsynth" when empty.
	Job string `json:"job"`

	Input   Input   `json:"input"`
	Output  Output  `json:"output"`
	Synth   Synth   `json:"synth"`
	Eval    Eval    `json:"eval"`
	Storage Storage `json:"storage"`
	Metrics Metrics `json:"metrics"`
}

// Input describes the real table source.
type Input struct {
	// Kind selects the reader: "csv" (default) or "html".
	Kind string `json:"kind"`
	// Path is a local file path.
	Path string `json:"path"`
	// Options carries reader-specific knobs (comma, charset, trim_space,
	// table_selector for HTML).
	Options Options `json:"options,omitempty"`
}

// Output describes where the synthetic table is written.
type Output struct {
	// Path of the synthetic CSV. Empty means stdout.
	Path string `json:"path"`
}

// Synth holds the core model parameters.
type Synth struct {
	// Rows is the number of synthetic rows to generate.
	Rows int `json:"rows"`
	// Seed drives all randomness in fit and sampling. Runs with the same
	// config and input are bit-identical.
	Seed int64 `json:"seed"`
	// CardinalityThreshold is the distinct-count cutoff below which an
	// integer-valued numeric column is modeled as discrete and a string
	// column stays categorical. 0 means the default (20).
	CardinalityThreshold int `json:"cardinality_threshold"`
}

// Eval holds the metrics-suite parameters.
type Eval struct {
	// TargetColumn selects the column predicted in the utility (TSTR)
	// evaluation. Empty disables the utility report.
	TargetColumn string `json:"target_column"`
	// TaskType is "classification" or "regression".
	TaskType string `json:"task_type"`
	// PrivacyK is the neighbor count for the privacy distance metric.
	// 0 means 1.
	PrivacyK int `json:"privacy_k"`
	// DriftThreshold is the per-column KS/TVD value under which a column
	// counts as "ok" in the fidelity headline. 0 means 0.1.
	DriftThreshold float64 `json:"drift_threshold"`
}

// Storage selects an optional run-artifact backend.
type Storage struct {
	// Kind is "postgres", "mssql", "sqlite" or "" (disabled).
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`
	// Table is the destination table for synthetic rows. Run metadata
	// goes to the shared synth_runs table.
	Table string `json:"table"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "datadog", "none" or "".
	Backend string `json:"backend"`
	// Tags are extra backend tags, e.g. ["env:prod"].
	Tags []string `json:"tags,omitempty"`
}

// Load reads and decodes a run config from path.
func Load(path string) (Run, error) {
	var r Run
	f, err := os.Open(path)
	if err != nil {
		return r, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return r, fmt.Errorf("decode config: %w", err)
	}
	return r, nil
}

// ---- validation ----

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding, pointing at a config path.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// Validate checks a run config and returns all findings. Errors make the
// config unusable; warnings are advisory.
func Validate(r Run) []Issue {
	var out []Issue

	errf := func(path, format string, a ...any) {
		out = append(out, Issue{SeverityError, path, fmt.Sprintf(format, a...)})
	}
	warnf := func(path, format string, a ...any) {
		out = append(out, Issue{SeverityWarning, path, fmt.Sprintf(format, a...)})
	}

	switch r.Input.Kind {
	case "", "csv", "html":
	default:
		errf("input.kind", "unknown input kind %q (want csv or html)", r.Input.Kind)
	}
	if strings.TrimSpace(r.Input.Path) == "" {
		errf("input.path", "input path is required")
	}

	if r.Synth.Rows < 0 {
		errf("synth.rows", "rows must be >= 0, got %d", r.Synth.Rows)
	}
	if r.Synth.CardinalityThreshold < 0 {
		errf("synth.cardinality_threshold", "must be >= 0, got %d", r.Synth.CardinalityThreshold)
	}

	switch r.Eval.TaskType {
	case "", "classification", "regression":
	default:
		errf("eval.task_type", "unknown task type %q (want classification or regression)", r.Eval.TaskType)
	}
	if r.Eval.TargetColumn != "" && r.Eval.TaskType == "" {
		warnf("eval.task_type", "target_column set without task_type; assuming classification")
	}
	if r.Eval.PrivacyK < 0 {
		errf("eval.privacy_k", "must be >= 0, got %d", r.Eval.PrivacyK)
	}

	switch r.Storage.Kind {
	case "", "postgres", "mssql", "sqlite":
	default:
		errf("storage.kind", "unknown storage kind %q", r.Storage.Kind)
	}
	if r.Storage.Kind != "" {
		if strings.TrimSpace(r.Storage.DSN) == "" {
			errf("storage.dsn", "dsn is required when storage.kind is set")
		}
		if strings.TrimSpace(r.Storage.Table) == "" {
			errf("storage.table", "table is required when storage.kind is set")
		}
	}

	switch r.Metrics.Backend {
	case "", "none", "datadog":
	default:
		warnf("metrics.backend", "unknown metrics backend %q; metrics will be disabled", r.Metrics.Backend)
	}

	return out
}

// HasError reports whether any issue has error severity.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
