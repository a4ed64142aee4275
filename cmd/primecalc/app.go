package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bobbyc-brs/prime-runner/config"
	"github.com/bobbyc-brs/prime-runner/core"
	obs "github.com/bobbyc-brs/prime-runner/observability/prometheus"
	"github.com/bobbyc-brs/prime-runner/primes"
	"github.com/bobbyc-brs/prime-runner/report"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:            "primecalc",
		Usage:           "Calculate primes up to max_number on a worker pool",
		ArgsUsage:       "<max_number> [thread_count]",
		HideHelpCommand: true,
		Writer:          stdout,
		ErrWriter:       stderr,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
			},
			&cli.IntFlag{
				Name:    "batch-size",
				Aliases: []string{"b"},
				Usage:   "odd candidates per batch",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on this address while running",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "report format: text or json",
			},
			&cli.IntFlag{
				Name:  "rows",
				Usage: "detailed result rows in the report",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},

		Action: func(c *cli.Context) error {
			return calculateAction(c, stdout, stderr)
		},
	}
}

func calculateAction(c *cli.Context, stdout, stderr io.Writer) error {
	// 1. Arguments
	if c.NArg() < 1 {
		_ = cli.ShowAppHelp(c)
		return cli.Exit("Error: max_number is required", 1)
	}
	limit, err := strconv.ParseUint(c.Args().Get(0), 10, 64)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: invalid max_number %q", c.Args().Get(0)), 1)
	}
	if limit < 2 {
		return cli.Exit("Error: max_number must be at least 2", 1)
	}

	// 2. Settings: defaults, file, environment, flags, arguments
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	if c.NArg() > 1 {
		threads, err := strconv.Atoi(c.Args().Get(1))
		if err != nil || threads < 1 {
			return cli.Exit("Error: thread_count must be at least 1", 1)
		}
		cfg.Threads = threads
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	// 3. Run
	logger := core.NewLogger(stderr, core.ParseLevel(cfg.Log.Level))
	summary, err := calculate(c.Context, stdout, limit, cfg, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	// 4. Output
	if cfg.Report.Format == config.FormatJSON {
		err = report.WriteJSON(stdout, summary)
	} else {
		err = report.WriteText(stdout, summary)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	return nil
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(config.EnvPrefix); err != nil {
		return cfg, err
	}

	if c.IsSet("batch-size") {
		cfg.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}
	if c.IsSet("format") {
		cfg.Report.Format = c.String("format")
	}
	if c.IsSet("rows") {
		cfg.Report.Rows = c.Int("rows")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	return cfg, nil
}

func calculate(ctx context.Context, stdout io.Writer, limit uint64, cfg config.Config, logger core.Logger) (report.Summary, error) {
	opts := []primes.Option{
		primes.WithBatchSize(cfg.BatchSize),
		primes.WithLogger(logger),
	}

	var poller *obs.SnapshotPoller
	if cfg.Metrics.Addr != "" {
		reg := prom.NewRegistry()
		exporter, err := obs.NewMetricsExporter(cfg.Metrics.Namespace, reg, obs.ExporterOptions{})
		if err != nil {
			return report.Summary{}, err
		}
		poller, err = obs.NewSnapshotPoller(cfg.Metrics.Namespace, reg, 250*time.Millisecond)
		if err != nil {
			return report.Summary{}, err
		}
		stop, err := serveMetrics(cfg.Metrics.Addr, reg, logger)
		if err != nil {
			return report.Summary{}, err
		}
		defer stop()

		opts = append(opts,
			primes.WithMetrics(exporter),
			primes.WithSchedulerConfig(&core.TaskSchedulerConfig{Metrics: exporter, Logger: logger}),
		)
	}

	calc, err := primes.New(cfg.Threads, opts...)
	if err != nil {
		return report.Summary{}, err
	}
	defer calc.Close()

	if poller != nil {
		poller.AddCalculator("primes", calc)
		poller.AddPool(calc.Pool().ID(), calc.Pool())
		poller.Start(ctx)
		defer poller.Stop()
	}

	if cfg.Report.Format != config.FormatJSON {
		if err := report.WriteStart(stdout, limit, calc.Workers()); err != nil {
			return report.Summary{}, err
		}
	}

	start := time.Now()
	if err := calc.ComputeUpTo(limit); err != nil {
		return report.Summary{}, err
	}
	elapsed := time.Since(start)

	return report.Build(calc, elapsed, cfg.Report.Rows), nil
}

// serveMetrics binds addr before returning so that a bad address fails the run.
func serveMetrics(addr string, reg *prom.Registry, logger core.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", core.F("error", err))
		}
	}()
	logger.Info("serving metrics", core.F("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}
