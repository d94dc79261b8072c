package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracelab.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CollectorTimeoutSec != DefaultCollectorTimeoutSec {
		t.Errorf("timeout = %d, want %d", cfg.CollectorTimeoutSec, DefaultCollectorTimeoutSec)
	}
	if cfg.OutputDir != DefaultOutputDir {
		t.Errorf("output dir = %q, want %q", cfg.OutputDir, DefaultOutputDir)
	}
	if cfg.WarmupRuns != 1 || cfg.MeasuredRuns != 5 {
		t.Errorf("protocol runs = %d/%d, want 1/5", cfg.WarmupRuns, cfg.MeasuredRuns)
	}
	if cfg.CollectorTimeout() != 120*time.Second {
		t.Errorf("CollectorTimeout = %v", cfg.CollectorTimeout())
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
collector_timeout_sec: 30
output_dir: results
qemu_arch: arm64
strict: true
measured_runs: 7
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CollectorTimeoutSec != 30 || cfg.OutputDir != "results" || !cfg.Strict {
		t.Errorf("cfg = %+v", cfg)
	}
	// Aliases are normalized at load time.
	if cfg.QemuArch != "aarch64" {
		t.Errorf("qemu_arch = %q, want aarch64", cfg.QemuArch)
	}
	if cfg.MeasuredRuns != 7 {
		t.Errorf("measured_runs = %d, want 7", cfg.MeasuredRuns)
	}
	// Omitted fields keep their defaults.
	if cfg.WarmupRuns != DefaultWarmupRuns {
		t.Errorf("warmup_runs = %d, want default", cfg.WarmupRuns)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TRACELAB_TEST_OUTPUT", "env-results")
	path := writeConfig(t, "output_dir: ${TRACELAB_TEST_OUTPUT}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "env-results" {
		t.Errorf("output_dir = %q, want env-results", cfg.OutputDir)
	}
}

func TestLoadUnsetEnvVarLeftVerbatim(t *testing.T) {
	path := writeConfig(t, "output_dir: ${TRACELAB_DEFINITELY_UNSET_VAR}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "${TRACELAB_DEFINITELY_UNSET_VAR}" {
		t.Errorf("output_dir = %q, want unexpanded reference", cfg.OutputDir)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"zero timeout", "collector_timeout_sec: 0\n", "collector_timeout_sec"},
		{"negative warmup", "warmup_runs: -1\n", "warmup_runs"},
		{"zero measured", "measured_runs: 0\n", "measured_runs"},
		{"bad arch", "qemu_arch: mips\n", "unsupported qemu_arch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "collector_timeout_sec: [not an int\n")); err == nil {
		t.Error("expected parse error")
	}
}
