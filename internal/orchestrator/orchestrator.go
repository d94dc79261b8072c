// Package orchestrator drives one diagnostic run end to end: workload
// execution under process monitoring, collector replays, diagnosis, and
// artifact assembly.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/baikal/tracelab/internal/artifact"
	"github.com/baikal/tracelab/internal/collector"
	"github.com/baikal/tracelab/internal/diagnosis"
	"github.com/baikal/tracelab/internal/executor"
	"github.com/baikal/tracelab/internal/logging"
	"github.com/baikal/tracelab/internal/model"
	"github.com/baikal/tracelab/internal/qemu"
)

// Strict-mode failures map to exit code 2 at the CLI layer.
var (
	ErrStrictPlatform   = errors.New("strict mode requires Linux collectors")
	ErrStrictTools      = errors.New("strict mode requires perf and strace in PATH")
	ErrStrictCollectors = errors.New("strict mode failed because at least one collector was not usable")
)

// Options configures a single diagnostic run.
type Options struct {
	Mode             string
	QemuArch         string // required when Mode is qemu; any accepted alias
	Strict           bool
	CollectorTimeout time.Duration
}

// Run executes the workload once under process-state monitoring, replays it
// under perf and strace, diagnoses the result, and returns the assembled
// artifact. The returned exit code mirrors the monitored workload; errors
// before execution leave the exit code at 2.
func Run(ctx context.Context, runner executor.Runner, opts Options, workload []string) (*artifact.RunArtifact, int, error) {
	logger := logging.GetLogger()

	if len(workload) == 0 {
		return nil, 2, errors.New("empty workload command")
	}

	execArgs := workload
	qemuArch := ""
	if opts.Mode == model.ModeQemu {
		normalized, ok := qemu.NormalizeSelector(opts.QemuArch)
		if !ok {
			return nil, 2, fmt.Errorf("unsupported qemu arch %q; supported: %s",
				opts.QemuArch, strings.Join(qemu.SupportedSelectors(), ", "))
		}
		qemuArch = normalized
		binary := qemu.Binary(qemuArch)
		if !runner.Available(binary) {
			return nil, 2, fmt.Errorf("missing %s in PATH", binary)
		}
		execArgs = append([]string{binary}, workload...)
	}

	if opts.Strict {
		if runtime.GOOS != "linux" {
			return nil, 2, ErrStrictPlatform
		}
		if !runner.Available("perf") || !runner.Available("strace") {
			return nil, 2, ErrStrictTools
		}
	}

	logger.WithField("mode", opts.Mode).
		WithField("command", executor.JoinRaw(workload)).
		Info("Starting diagnostic run")

	// The workload runs once for wall time and proc sampling, then is
	// replayed once per tool-driven collector so each tool manages its own
	// runtime options. The executions are sequential, never concurrent.
	obs := collector.SelectMonitor().Run(execArgs)
	perf := collector.CollectPerfStat(ctx, runner, execArgs, opts.CollectorTimeout)
	strace := collector.CollectStraceSummary(ctx, runner, execArgs, opts.CollectorTimeout)

	logger.WithField("duration_sec", obs.WallTimeSec).
		WithField("exit_code", obs.ExitCode).
		WithField("perf", perf.Outcome.Status).
		WithField("strace", strace.Outcome.Status).
		WithField("proc", obs.SamplerOutcome.Status).
		Debug("Collectors finished")

	if opts.Strict &&
		(!obs.SamplerOutcome.OK() || !perf.Outcome.OK() || !strace.Outcome.OK()) {
		return nil, 2, ErrStrictCollectors
	}

	verdict := diagnosis.Diagnose(obs, perf, strace, opts.Mode)

	art := artifact.NewRun(artifact.RunInputs{
		Mode:                opts.Mode,
		QemuArch:            qemuArch,
		Command:             executor.JoinRaw(workload),
		ExecCommand:         executor.JoinQuoted(execArgs),
		Strict:              opts.Strict,
		CollectorTimeoutSec: int(opts.CollectorTimeout / time.Second),
		Workload:            obs,
		Perf:                perf,
		Strace:              strace,
		Diagnosis:           verdict,
	})

	return art, obs.ExitCode, nil
}
