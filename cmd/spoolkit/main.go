// Package main implements the entry point for the spoolkit bootstrapper.
// It loads a configuration file, builds an application from the declared
// spools, drives the boot sequence to app:ready, and serves Prometheus
// metrics until a shutdown signal arrives.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	ossignal "os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/spoolkit/config"
	"github.com/c360/spoolkit/engine"
	"github.com/c360/spoolkit/metric"
	"github.com/c360/spoolkit/spool"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "spoolkit"
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

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load the user configuration tree
	user, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Build the application. Business spools come from the embedding
	// process; the standalone binary only wires an empty registry, which
	// still exercises the full barrier sequence for validation.
	metricsRegistry := metric.NewRegistry()
	app, err := engine.New(engine.Options{
		User:        user,
		Env:         cliCfg.Env,
		Root:        cliCfg.Root,
		Registry:    spool.NewRegistry(),
		Logger:      logger,
		Metrics:     metricsRegistry,
		BootTimeout: cliCfg.BootTimeout,
	})
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid",
			"env", app.Env(),
			"spools", app.SpoolNames())
		return nil
	}

	if cliCfg.MetricsPort > 0 {
		startMetricsServer(cliCfg.MetricsPort, metricsRegistry)
	}

	return runWithSignalHandling(app)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting spoolkit",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"env", cliCfg.Env)

	return cliCfg, logger, false, nil
}

// runWithSignalHandling boots the application and stops it on SIGINT/SIGTERM
func runWithSignalHandling(app *engine.App) error {
	signalCtx, signalCancel := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := app.Boot(signalCtx); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	slog.Info("Application ready", "id", app.ID(), "spools", app.SpoolNames())

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	if err := app.Stop(); err != nil {
		return fmt.Errorf("stop: %w", err)
	}

	slog.Info("Shutdown complete")
	return nil
}

// startMetricsServer exposes the Prometheus registry on /metrics.
func startMetricsServer(port int, registry *metric.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		registry.PrometheusRegistry(),
		promhttp.HandlerOpts{},
	))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Metrics server listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
}

// loadConfig loads the user configuration tree from the specified file path
func loadConfig(path string) (config.Tree, error) {
	tree, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return tree, nil
}
