// Command eval scores a synthetic table against the real table it was
// fitted from: fidelity, utility (train on synthetic, test on real) and
// privacy indicators.
//
// The schema is re-inferred from the real table so the command needs no
// model artifacts, only the two CSV/HTML inputs and the run config.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tabsynth/internal/config"
	"tabsynth/internal/eval"
	"tabsynth/internal/metrics"
	"tabsynth/internal/schema"
	"tabsynth/internal/table"
)

func main() {
	var (
		cfgPath   string
		realPath  string
		synthPath string
		jsonOut   bool
	)

	flag.StringVar(&cfgPath, "config", "configs/run.json", "run config JSON path")
	flag.StringVar(&realPath, "real", "", "real table path (defaults to input.path from the config)")
	flag.StringVar(&synthPath, "synth", "", "synthetic table path (defaults to output.path from the config)")
	flag.BoolVar(&jsonOut, "json", false, "emit the report as JSON instead of text")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	run, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	issues := config.Validate(run)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		os.Exit(1)
	}

	if realPath == "" {
		realPath = run.Input.Path
	}
	if synthPath == "" {
		synthPath = run.Output.Path
	}
	if synthPath == "" {
		fatalf("no synthetic table: set -synth or output.path in the config")
	}

	onErr := func(line int, err error) { log.Printf("input line %d: %v", line, err) }
	real, err := table.ReadSource(config.Input{Kind: run.Input.Kind, Path: realPath, Options: run.Input.Options}, onErr)
	if err != nil {
		fatalf("read real table: %v", err)
	}
	synthetic, err := table.ReadSource(config.Input{Kind: "csv", Path: synthPath}, onErr)
	if err != nil {
		fatalf("read synthetic table: %v", err)
	}

	sch, err := schema.Infer(real, schema.InferOptions{
		CardinalityThreshold: run.Synth.CardinalityThreshold,
	})
	if err != nil {
		fatalf("%v", err)
	}
	if *verbose {
		log.Printf("scoring %d real rows against %d synthetic rows", real.NumRows(), synthetic.NumRows())
	}

	rep, err := score(real, synthetic, sch, run)
	if err != nil {
		fatalf("%v", err)
	}

	if jsonOut {
		if err := rep.WriteJSON(os.Stdout); err != nil {
			fatalf("%v", err)
		}
		return
	}
	rep.RenderText(os.Stdout)
}

func score(real, synthetic *table.Table, sch schema.Schema, run config.Run) (*eval.Report, error) {
	rep := &eval.Report{}

	step := func(name string, f func() error) error {
		start := time.Now()
		err := f()
		metrics.ObserveHistogram(metrics.MetricStepDuration, time.Since(start).Seconds(), metrics.Labels{"step": name})
		return err
	}

	if err := step("fidelity", func() error {
		f, err := eval.Fidelity(real, synthetic, sch, run.Eval.DriftThreshold)
		rep.Fidelity = f
		return err
	}); err != nil {
		return nil, err
	}

	if run.Eval.TargetColumn != "" {
		task := eval.Task(run.Eval.TaskType)
		if task == "" {
			task = eval.TaskClassification
		}
		if err := step("utility", func() error {
			u, err := eval.Utility(real, synthetic, sch, run.Eval.TargetColumn, task, run.Synth.Seed)
			rep.Utility = u
			return err
		}); err != nil {
			return nil, err
		}
	}

	if err := step("privacy", func() error {
		p, err := eval.Privacy(real, synthetic, sch, run.Eval.PrivacyK)
		rep.Privacy = p
		return err
	}); err != nil {
		return nil, err
	}

	return rep, nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
