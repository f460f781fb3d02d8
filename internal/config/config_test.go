package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DecodesRun(t *testing.T) {
	body := `{
		"job": "demo",
		"input": {"kind": "csv", "path": "data.csv", "options": {"comma": ";"}},
		"output": {"path": "out.csv"},
		"synth": {"rows": 100, "seed": 42},
		"eval": {"target_column": "label", "task_type": "classification"},
		"storage": {"kind": "sqlite", "dsn": "demo.db", "table": "synthetic"}
	}`
	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Job != "demo" || r.Synth.Rows != 100 || r.Synth.Seed != 42 {
		t.Fatalf("decoded run = %+v", r)
	}
	if got := r.Input.Options.Rune("comma", ','); got != ';' {
		t.Fatalf("comma option = %q", got)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte(`{"input": {"path": "x"}, "typo_field": 1}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestValidate_FindingsPerField(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*Run)
		wantPath string
		severity Severity
	}{
		{
			"unknown input kind",
			func(r *Run) { r.Input.Kind = "xlsx" },
			"input.kind", SeverityError,
		},
		{
			"missing input path",
			func(r *Run) { r.Input.Path = " " },
			"input.path", SeverityError,
		},
		{
			"negative rows",
			func(r *Run) { r.Synth.Rows = -5 },
			"synth.rows", SeverityError,
		},
		{
			"unknown task type",
			func(r *Run) { r.Eval.TaskType = "clustering" },
			"eval.task_type", SeverityError,
		},
		{
			"target without task is a warning",
			func(r *Run) { r.Eval.TargetColumn = "y"; r.Eval.TaskType = "" },
			"eval.task_type", SeverityWarning,
		},
		{
			"storage kind without dsn",
			func(r *Run) { r.Storage = Storage{Kind: "postgres", Table: "t"} },
			"storage.dsn", SeverityError,
		},
		{
			"storage kind without table",
			func(r *Run) { r.Storage = Storage{Kind: "sqlite", DSN: "x.db"} },
			"storage.table", SeverityError,
		},
		{
			"unknown metrics backend is a warning",
			func(r *Run) { r.Metrics.Backend = "statsd" },
			"metrics.backend", SeverityWarning,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := Run{Input: Input{Path: "data.csv"}}
			c.mutate(&r)

			issues := Validate(r)
			found := false
			for _, iss := range issues {
				if iss.Path == c.wantPath && iss.Severity == c.severity {
					found = true
				}
			}
			if !found {
				t.Fatalf("no %s issue at %s; got %+v", c.severity, c.wantPath, issues)
			}
		})
	}
}

func TestValidate_CleanConfigHasNoErrors(t *testing.T) {
	r := Run{
		Input: Input{Kind: "csv", Path: "data.csv"},
		Synth: Synth{Rows: 10, Seed: 1},
	}
	if issues := Validate(r); HasError(issues) {
		t.Fatalf("unexpected errors: %+v", issues)
	}
}

func TestOptions_TypedAccessors(t *testing.T) {
	o := Options{
		"flag_bool":  true,
		"flag_str":   "yes",
		"num":        float64(7),
		"num_str":    "9",
		"ratio":      0.25,
		"name":       "hello",
		"delim":      ";",
		"tags":       map[string]any{"env": "dev", "n": 1},
		"wrong_type": []any{1, 2},
	}

	if !o.Bool("flag_bool", false) || !o.Bool("flag_str", false) {
		t.Fatal("bool accessor failed")
	}
	if o.Bool("missing", true) != true {
		t.Fatal("bool default ignored")
	}
	if o.Int("num", 0) != 7 || o.Int("num_str", 0) != 9 {
		t.Fatal("int accessor failed")
	}
	if o.Float("ratio", 0) != 0.25 {
		t.Fatal("float accessor failed")
	}
	if o.String("name", "") != "hello" || o.String("missing", "dflt") != "dflt" {
		t.Fatal("string accessor failed")
	}
	if o.Rune("delim", ',') != ';' || o.Rune("missing", ',') != ',' {
		t.Fatal("rune accessor failed")
	}
	m := o.StringMap("tags")
	if m["env"] != "dev" {
		t.Fatalf("string map = %v", m)
	}
	if _, ok := m["n"]; ok {
		t.Fatal("non-string map value kept")
	}
	if o.Int("wrong_type", 3) != 3 {
		t.Fatal("mistyped value should fall back to default")
	}
}
