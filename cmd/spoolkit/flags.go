package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	Env         string
	Root        string
	LogLevel    string
	LogFormat   string
	Debug       bool
	BootTimeout time.Duration
	MetricsPort int
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("SPOOLKIT_CONFIG", "configs/app.json"),
		"Path to configuration file (env: SPOOLKIT_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("SPOOLKIT_CONFIG", "configs/app.json"),
		"Path to configuration file (env: SPOOLKIT_CONFIG)")

	flag.StringVar(&cfg.Env, "env",
		getEnv("SPOOLKIT_ENV", "development"),
		"Environment name selecting the config overlay (env: SPOOLKIT_ENV)")

	flag.StringVar(&cfg.Root, "root",
		getEnv("SPOOLKIT_ROOT", "."),
		"Application root directory for derived paths (env: SPOOLKIT_ROOT)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SPOOLKIT_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: SPOOLKIT_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SPOOLKIT_LOG_FORMAT", "json"),
		"Log format: json, text (env: SPOOLKIT_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("SPOOLKIT_DEBUG", false),
		"Enable debug mode (env: SPOOLKIT_DEBUG)")

	flag.DurationVar(&cfg.BootTimeout, "boot-timeout",
		getEnvDuration("SPOOLKIT_BOOT_TIMEOUT", 0),
		"Abort the boot if app:ready is not reached in time, 0 to wait forever (env: SPOOLKIT_BOOT_TIMEOUT)")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("SPOOLKIT_METRICS_PORT", 0),
		"Prometheus metrics port, 0 to disable (env: SPOOLKIT_METRICS_PORT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	// Validate config file exists
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	// Validate log format
	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	// Validate metrics port
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	if cfg.BootTimeout < 0 {
		return fmt.Errorf("invalid boot timeout: %s", cfg.BootTimeout)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Spool-based Application Bootstrapper

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with custom config
  %s --config=/path/to/config.yaml

  # Run a specific environment overlay
  %s --env=production --root=/srv/app

  # Run with environment variables
  export SPOOLKIT_CONFIG=/etc/spoolkit/config.json
  export SPOOLKIT_LOG_LEVEL=debug
  %s

  # Validate configuration only
  %s --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
