package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tabsynth/internal/config"
	"tabsynth/internal/metrics"
	"tabsynth/internal/metrics/datadog"
	"tabsynth/internal/schema"
	"tabsynth/internal/storage"
	"tabsynth/internal/synth"
	"tabsynth/internal/table"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "tabsynth/internal/storage/all"
)

// main is the entry point for the synth binary. It loads the run config,
// optionally initializes a metrics backend, fits the model on the real
// table and writes the synthetic table.
func main() {
	var (
		cfgPath           string
		rowsFlg           int
		seedFlg           int64
		metricsBackendFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/run.json", "run config JSON path")
	flag.IntVar(&rowsFlg, "rows", -1, "override synth.rows from the config")
	flag.Int64Var(&seedFlg, "seed", -1, "override synth.seed from the config")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (datadog, none; overrides config)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	run, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	if rowsFlg >= 0 {
		run.Synth.Rows = rowsFlg
	}
	if seedFlg >= 0 {
		run.Synth.Seed = seedFlg
	}

	issues := config.Validate(run)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	shutdownMetrics := setupMetrics(run, metricsBackendFlg, *verbose)
	defer shutdownMetrics()

	ctx := context.Background()
	start := time.Now()

	if err := runSynthesis(ctx, run, *verbose, start); err != nil {
		metrics.IncCounter(metrics.MetricRunsTotal, 1, metrics.Labels{"status": "error"})
		log.Fatalf("%v", err)
	}
	metrics.IncCounter(metrics.MetricRunsTotal, 1, metrics.Labels{"status": "ok"})

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

func runSynthesis(ctx context.Context, run config.Run, verbose bool, start time.Time) error {
	real, err := table.ReadSource(run.Input, func(line int, err error) {
		log.Printf("input line %d: %v", line, err)
	})
	if err != nil {
		return err
	}
	if verbose {
		log.Printf("input: %d rows, %d columns", real.NumRows(), len(real.Columns))
	}

	sch, err := schema.Infer(real, schema.InferOptions{
		CardinalityThreshold: run.Synth.CardinalityThreshold,
	})
	if err != nil {
		return err
	}

	fitStart := time.Now()
	model, err := synth.Fit(ctx, real, sch, run.Synth.Seed)
	if err != nil {
		return err
	}
	metrics.ObserveHistogram(metrics.MetricStepDuration, time.Since(fitStart).Seconds(), metrics.Labels{"step": "fit"})
	if verbose {
		if dep := model.Dependence(); dep != nil {
			log.Printf("fit: %d columns, %d independent", dep.Dim(), len(dep.IndependentColumns()))
		} else {
			log.Printf("fit: independent sampling fallback")
		}
	}

	genStart := time.Now()
	out, err := model.Generate(ctx, run.Synth.Rows, run.Synth.Seed)
	if err != nil {
		return err
	}
	metrics.ObserveHistogram(metrics.MetricStepDuration, time.Since(genStart).Seconds(), metrics.Labels{"step": "generate"})
	metrics.IncCounter(metrics.MetricRowsTotal, float64(out.NumRows()), metrics.Labels{"kind": "synthetic"})

	if err := writeOutput(run.Output.Path, out); err != nil {
		return err
	}

	if run.Storage.Kind != "" {
		if err := persist(ctx, run, sch, out, start); err != nil {
			return err
		}
	}
	return nil
}

func writeOutput(path string, t *table.Table) error {
	if path == "" {
		return table.WriteCSV(os.Stdout, t)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := table.WriteCSV(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func persist(ctx context.Context, run config.Run, sch schema.Schema, t *table.Table, start time.Time) error {
	repo, err := storage.New(ctx, storage.Config{
		Kind:  run.Storage.Kind,
		DSN:   os.ExpandEnv(run.Storage.DSN),
		Table: run.Storage.Table,
	})
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.EnsureTable(ctx, run.Storage.Table, sch); err != nil {
		return err
	}
	n, err := repo.InsertRows(ctx, run.Storage.Table, sch, t)
	if err != nil {
		return err
	}
	job := run.Job
	if job == "" {
		job = "tabsynth"
	}
	return repo.RecordRun(ctx, storage.RunRecord{
		Job:       job,
		Table:     run.Storage.Table,
		Rows:      n,
		Seed:      run.Synth.Seed,
		StartedAt: start,
		Duration:  time.Since(start),
	})
}

// setupMetrics installs the configured metrics backend and returns the
// shutdown func. Flag overrides config; unknown backends disable
// metrics rather than failing the run.
func setupMetrics(run config.Run, flagBackend string, verbose bool) func() {
	backendName := flagBackend
	if backendName == "" {
		backendName = run.Metrics.Backend
	}
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}

	switch backendName {
	case "datadog":
		// Datadog backend:
		//   - buffers metrics and submits periodically (default once per minute)
		//   - submits one final time at shutdown (Close())
		jobName := run.Job
		if jobName == "" {
			jobName = "tabsynth"
		}

		tags := append([]string(nil), run.Metrics.Tags...)
		tags = append(tags, datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))...)

		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: jobName,
			Tags:    tags,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: backend=%v job_name=%v tags=%v", backendName, jobName, tags)
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: datadog close/flush error: %v", err)
			}
		}

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
		return func() {}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
		return func() {}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
