package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"weather-contract-tester/internal/config"
	"weather-contract-tester/internal/executor"
	"weather-contract-tester/internal/logger"
	"weather-contract-tester/internal/reporter"
	"weather-contract-tester/internal/schema"
	"weather-contract-tester/internal/suite"
)

type runOptions struct {
	configPath  string
	suitePath   string
	only        string
	baseURL     string
	reportDir   string
	workers     int
	latencySoft bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the contract suite against the weather service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSuite(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default "+config.DefaultPath+" when present)")
	flags.StringVar(&opts.suitePath, "suite", "", "YAML scenario suite replacing the built-in one")
	flags.StringVar(&opts.only, "only", "", "run only scenarios whose ID contains this text")
	flags.StringVar(&opts.baseURL, "base-url", "", "override environment.base_url")
	flags.StringVar(&opts.reportDir, "report-dir", "", "write the run summary into this directory")
	flags.IntVar(&opts.workers, "workers", 0, "scenarios run at once (default test.max_workers)")
	flags.BoolVar(&opts.latencySoft, "latency-soft", false, "do not fail the run on latency findings alone")
	return cmd
}

// runSuite executes one contract run and prints its summary to out. It
// returns errFailures when any outcome counts as failing.
func runSuite(ctx context.Context, opts *runOptions, out io.Writer) error {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyOverrides(cfg, opts)

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	if err := cfg.ResolveCredential(); err != nil {
		log.WithError(err).Error("Cannot run the suite without an API key")
		return err
	}

	registry := schema.NewRegistry()
	if err := registry.Check(); err != nil {
		return fmt.Errorf("response contracts are inconsistent: %w", err)
	}

	scenarios, err := suite.NewLoader(cfg.Test.SuiteFile).Load()
	if err != nil {
		return err
	}
	scenarios = suite.Filter(scenarios, opts.only)
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenario matches %q", opts.only)
	}

	testExecutor := executor.NewTestExecutor(cfg, registry, log,
		executor.WithRecorder(reporter.NewFailureReporter(cfg.Reporting.FailureDir, log)))

	log.WithFields(logrus.Fields{
		"run_id":    testExecutor.RunID(),
		"base_url":  cfg.Environment.BaseURL,
		"scenarios": len(scenarios),
		"workers":   cfg.Test.MaxWorkers,
	}).Info("Starting contract run")

	started := time.Now()
	outcomes := testExecutor.RunTests(ctx, scenarios)
	report := reporter.NewReport(testExecutor.RunID(), started, time.Since(started), executor.Summarize(outcomes))

	if err := reporter.PrintSummary(out, report); err != nil {
		log.WithError(err).Warn("Failed to print summary")
	}

	testReporter := reporter.NewReporter(reporter.ReportingConfig{
		Format:    cfg.Reporting.Formats,
		OutputDir: cfg.Reporting.OutputDir,
	})
	paths, err := testReporter.GenerateReport(report)
	if err != nil {
		log.WithError(err).Error("Failed to write run report")
	}
	for _, p := range paths {
		log.WithField("file", p).Info("Run report saved")
	}

	for _, o := range outcomes {
		if o.Failing {
			return errFailures
		}
	}
	return nil
}

func applyOverrides(cfg *config.Config, opts *runOptions) {
	if opts.suitePath != "" {
		cfg.Test.SuiteFile = opts.suitePath
	}
	if opts.baseURL != "" {
		cfg.Environment.BaseURL = strings.TrimRight(opts.baseURL, "/")
	}
	if opts.reportDir != "" {
		cfg.Reporting.OutputDir = opts.reportDir
	}
	if opts.workers > 0 {
		cfg.Test.MaxWorkers = opts.workers
	}
	if opts.latencySoft {
		cfg.Test.LatencySoft = true
	}
}
