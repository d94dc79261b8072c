// Package config loads the optional profiling protocol file. All settings
// have defaults so the tool is fully usable without any config.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/baikal/tracelab/internal/logging"
	"github.com/baikal/tracelab/internal/qemu"
)

// Defaults applied when no config file is present or a field is omitted.
const (
	DefaultCollectorTimeoutSec = 120
	DefaultOutputDir           = "runs"
	DefaultWarmupRuns          = 1
	DefaultMeasuredRuns        = 5
)

type ProtocolConfig struct {
	CollectorTimeoutSec int    `yaml:"collector_timeout_sec"`
	OutputDir           string `yaml:"output_dir"`
	QemuArch            string `yaml:"qemu_arch"`
	Strict              bool   `yaml:"strict"`
	LogLevel            string `yaml:"log_level"`
	WarmupRuns          int    `yaml:"warmup_runs"`
	MeasuredRuns        int    `yaml:"measured_runs"`
}

// Default returns a config populated with the built-in defaults.
func Default() *ProtocolConfig {
	return &ProtocolConfig{
		CollectorTimeoutSec: DefaultCollectorTimeoutSec,
		OutputDir:           DefaultOutputDir,
		WarmupRuns:          DefaultWarmupRuns,
		MeasuredRuns:        DefaultMeasuredRuns,
	}
}

// Load reads a protocol config file. An empty path returns the defaults
// without touching the filesystem.
func Load(filepath string) (*ProtocolConfig, error) {
	cfg := Default()
	if filepath == "" {
		return cfg, nil
	}

	logger := logging.GetLogger()

	data, err := os.ReadFile(filepath)
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to read config file")
		return nil, err
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to parse config file")
		return nil, fmt.Errorf("parse %s: %w", filepath, err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filepath, err)
	}

	return cfg, nil
}

func (c *ProtocolConfig) CollectorTimeout() time.Duration {
	return time.Duration(c.CollectorTimeoutSec) * time.Second
}

// expandEnvVars substitutes ${VAR} references with values from the
// environment. Unset variables are left untouched.
func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

func validate(cfg *ProtocolConfig) error {
	if cfg.CollectorTimeoutSec <= 0 {
		return fmt.Errorf("collector_timeout_sec must be greater than 0")
	}
	if cfg.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if cfg.WarmupRuns < 0 {
		return fmt.Errorf("warmup_runs must not be negative")
	}
	if cfg.MeasuredRuns <= 0 {
		return fmt.Errorf("measured_runs must be greater than 0")
	}
	if cfg.QemuArch != "" {
		normalized, ok := qemu.NormalizeSelector(cfg.QemuArch)
		if !ok {
			return fmt.Errorf("unsupported qemu_arch %q; supported: %s",
				cfg.QemuArch, strings.Join(qemu.SupportedSelectors(), ", "))
		}
		cfg.QemuArch = normalized
	}
	return nil
}
