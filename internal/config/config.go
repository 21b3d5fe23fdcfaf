// Package config resolves the operational settings a queuectl process
// needs (paths, polling cadence, metrics address) by layering compiled
// defaults, an optional file, environment variables, and CLI flags, in
// increasing precedence. Domain settings that affect job outcomes
// (max_retries, backoff_base) live in the store's config table instead;
// see internal/store.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
)

// Config holds every operational setting a queuectl process reads at
// startup.
type Config struct {
	DataDir         string
	LogDir          string
	LivenessPath    string
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
	MetricsAddr     string // empty disables the metrics server
}

// DBPath is the store file location, derived from DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "queue.db")
}

// Defaults returns the compiled-in baseline before file/env/flag layers
// are applied.
func Defaults() *Config {
	return &Config{
		DataDir:         ".",
		LogDir:          "logs",
		LivenessPath:    ".queuectl.pids",
		PollInterval:    500 * time.Millisecond,
		ShutdownTimeout: 5 * time.Second,
		MetricsAddr:     "",
	}
}

// BindFlags registers the root command's persistent flags against cfg,
// so cobra is the final, highest-precedence layer.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory holding queue.db")
	fs.StringVar(&c.LogDir, "log-dir", c.LogDir, "directory holding per-job captured output")
	fs.StringVar(&c.LivenessPath, "liveness-file", c.LivenessPath, "path to the supervisor's liveness file")
	fs.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "worker idle polling interval")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "grace period before forced worker termination")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "address to serve /metrics on (empty disables)")
	// --config is consumed by Load via ResolveConfigPath before cobra
	// parses; it is registered here only so cobra accepts it.
	fs.String("config", "", "path to a YAML or TOML config file")
}

// ApplyEnv overlays environment variables onto cfg, each taking
// precedence over the file layer but yielding to explicit flags applied
// afterward.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("QUEUECTL_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("QUEUECTL_LOG_DIR"); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv("QUEUECTL_LIVENESS_FILE"); v != "" {
		c.LivenessPath = v
	}
	if v := os.Getenv("QUEUECTL_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("QUEUECTL_POLL_INTERVAL: %w", err)
		}
		c.PollInterval = d
	}
	if v := os.Getenv("QUEUECTL_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("QUEUECTL_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}
	if v := os.Getenv("QUEUECTL_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	return nil
}

// Load builds a Config from defaults, an optional config file resolved
// via ResolveConfigPath, and environment variables. The caller (cmd/root.go)
// layers cobra flags on top via BindFlags before the command tree executes,
// so flags remain the highest-precedence source.
func Load(args []string) (*Config, error) {
	cfg := Defaults()

	path, err := ResolveConfigPath(args)
	if err != nil {
		return nil, err
	}
	if path != "" {
		fileCfg, err := LoadFileConfig(path)
		if err != nil {
			return nil, err
		}
		if err := ApplyFileConfig(cfg, fileCfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}
