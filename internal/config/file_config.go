package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var defaultConfigFilenames = []string{
	"queuectl.yaml",
	"queuectl.yml",
	"queuectl.toml",
	".queuectl.yaml",
	".queuectl.yml",
	".queuectl.toml",
}

// FileConfig mirrors Config's operational settings for file-based
// overrides; domain settings (max_retries, backoff_base) have no file
// representation since they live in the store's config table.
type FileConfig struct {
	DataDir         string `yaml:"data_dir" toml:"data_dir"`
	LogDir          string `yaml:"log_dir" toml:"log_dir"`
	LivenessPath    string `yaml:"liveness_file" toml:"liveness_file"`
	PollInterval    string `yaml:"poll_interval" toml:"poll_interval"`
	ShutdownTimeout string `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	MetricsAddr     string `yaml:"metrics_addr" toml:"metrics_addr"`
}

// ResolveConfigPath returns the config file to load: an explicit
// --config flag, then QUEUECTL_CONFIG, then the first default filename
// that exists in the working directory. Returns "" if none apply.
func ResolveConfigPath(args []string) (string, error) {
	path, ok, err := parseConfigFlag(args)
	if err != nil {
		return "", err
	}
	if ok {
		return path, nil
	}
	if env := os.Getenv("QUEUECTL_CONFIG"); env != "" {
		return env, nil
	}
	for _, name := range defaultConfigFilenames {
		if fileExists(name) {
			return name, nil
		}
	}
	return "", nil
}

// LoadFileConfig reads and parses path, dispatching on its extension.
func LoadFileConfig(path string) (*FileConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", filepath.Ext(path))
	}
	return &cfg, nil
}

// ApplyFileConfig overlays any non-zero fields of fileCfg onto cfg.
func ApplyFileConfig(cfg *Config, fileCfg *FileConfig) error {
	if fileCfg == nil {
		return nil
	}
	if fileCfg.DataDir != "" {
		cfg.DataDir = fileCfg.DataDir
	}
	if fileCfg.LogDir != "" {
		cfg.LogDir = fileCfg.LogDir
	}
	if fileCfg.LivenessPath != "" {
		cfg.LivenessPath = fileCfg.LivenessPath
	}
	if fileCfg.PollInterval != "" {
		parsed, err := parseDurationField("poll_interval", fileCfg.PollInterval)
		if err != nil {
			return err
		}
		cfg.PollInterval = parsed
	}
	if fileCfg.ShutdownTimeout != "" {
		parsed, err := parseDurationField("shutdown_timeout", fileCfg.ShutdownTimeout)
		if err != nil {
			return err
		}
		cfg.ShutdownTimeout = parsed
	}
	if fileCfg.MetricsAddr != "" {
		cfg.MetricsAddr = fileCfg.MetricsAddr
	}
	return nil
}

func parseConfigFlag(args []string) (string, bool, error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) || args[i+1] == "" {
				return "", true, fmt.Errorf("missing value for --config")
			}
			return args[i+1], true, nil
		}
		if strings.HasPrefix(arg, "--config=") {
			value := strings.TrimPrefix(arg, "--config=")
			if value == "" {
				return "", true, fmt.Errorf("missing value for --config")
			}
			return value, true, nil
		}
	}
	return "", false, nil
}

func parseDurationField(field, value string) (time.Duration, error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	return parsed, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
