// Package main implements the sigflow command, which loads a flowgraph file,
// builds it from the built-in block types and runs it to completion.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/componentregistry"
	"github.com/c360/sigflow/config"
	"github.com/c360/sigflow/graph"
	"github.com/c360/sigflow/health"
	"github.com/c360/sigflow/metric"
	"github.com/c360/sigflow/scheduler"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "sigflow"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("sigflow failed", "error", err, "exit_code", 1)
		cancel()
		os.Exit(1)
	}
}

// run executes the command. Cancelling ctx asks every block to stop; the run
// still drains before returning.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cliCfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		return flag.ErrHelp
	}

	logger := setupLogger(stderr, cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	registry, err := componentregistry.NewRegistry()
	if err != nil {
		return fmt.Errorf("register blocks: %w", err)
	}
	if cliCfg.ListTypes {
		return listTypes(stdout, registry)
	}

	logger.Info("Starting sigflow",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	cfg, err := config.NewLoader().LoadFile(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cliCfg.Workers > 0 {
		cfg.Scheduler.Workers = cliCfg.Workers
	}

	metricsRegistry := metric.NewMetricsRegistry()
	deps := block.Dependencies{Logger: logger, MetricsRegistry: metricsRegistry}
	g, err := config.Build(cfg, registry, deps, graph.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("build flowgraph: %w", err)
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("invalid flowgraph: %w", err)
	}

	analysis := g.Analyze()
	logger.Info("Flowgraph built",
		"blocks", analysis.Blocks,
		"edges", analysis.Edges,
		"sources", analysis.Sources,
		"sinks", analysis.Sinks,
		"components", len(analysis.Components))

	if cliCfg.Validate {
		logger.Info("Flowgraph is valid")
		return nil
	}

	monitor := health.NewMonitor(appName)
	if cliCfg.MetricsPort > 0 {
		server := metric.NewServer(cliCfg.MetricsPort, "/metrics", metricsRegistry, metric.WithHealthHandler(monitor))
		if err := server.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			if err := server.Stop(cliCfg.ShutdownTimeout); err != nil {
				logger.Warn("Metrics server shutdown failed", "error", err)
			}
		}()
		logger.Info("Serving metrics", "address", server.Address())
	}

	opts := append(cfg.Scheduler.Options(),
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(metricsRegistry),
		scheduler.WithHealthMonitor(monitor))
	sched, err := scheduler.New(g, opts...)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	runErr := sched.Run(ctx)
	stats := sched.Stats()
	logger.Info("Run finished",
		"run_id", stats.RunID,
		"state", stats.State,
		"rounds", stats.Rounds,
		"invocations", stats.Invocations,
		"duration", stats.Duration,
		"leftover_samples", stats.LeftoverSamples,
		"leftover_tags", stats.LeftoverTags)
	return runErr
}

func listTypes(w io.Writer, registry *block.Registry) error {
	for _, typeName := range registry.Types() {
		reg, _ := registry.Lookup(typeName)
		if _, err := fmt.Fprintf(w, "%-32s %-10s %s\n", typeName, reg.Capability, reg.Description); err != nil {
			return err
		}
	}
	return nil
}
