package collector

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/baikal/tracelab/internal/executor"
	"github.com/baikal/tracelab/internal/model"
)

// perfEvents is the fixed counter list requested from perf stat.
const perfEvents = "cycles,instructions,branches,branch-misses,cache-misses,page-faults"

// PerfStatResult is the envelope for one perf stat replay.
type PerfStatResult struct {
	Outcome  model.CollectorOutcome
	Counters model.CounterSet
}

// CollectPerfStat replays the workload under `perf stat -x,` and parses the
// selected counters. Timeout detection strictly precedes parse evaluation:
// a timed-out run never contributes partially captured counters.
func CollectPerfStat(ctx context.Context, runner executor.Runner, argv []string, timeout time.Duration) PerfStatResult {
	var result PerfStatResult

	if runtime.GOOS != "linux" {
		result.Outcome = unavailableOutcome("perf collector is Linux-only")
		return result
	}
	if len(argv) == 0 {
		result.Outcome = errorOutcome("empty command", -1, "")
		return result
	}
	if !runner.Available("perf") {
		result.Outcome = unavailableOutcome("perf not found in PATH")
		return result
	}

	args := append([]string{"stat", "-x,", "-e", perfEvents, "--"}, argv...)
	raw, err := runner.Run(ctx, timeout, "perf", args...)
	if err != nil {
		result.Outcome = errorOutcome(fmt.Sprintf("perf execution failed: %v", err), -1, "")
		return result
	}

	if raw.TimedOut {
		result.Outcome = timedOutOutcome("perf", raw.ExitCode, raw.Output)
		return result
	}

	counters, parseErr := executor.ParsePerfStatCSV(raw.Output)
	switch {
	case parseErr == nil:
		result.Outcome = okOutcome(raw.ExitCode, raw.Output)
		result.Counters = *counters
	case errors.Is(parseErr, executor.ErrNoCounterData) && raw.ExitCode == 0:
		result.Outcome = errorOutcome("perf output missing expected counters", raw.ExitCode, raw.Output)
	default:
		result.Outcome = errorOutcome(
			fmt.Sprintf("perf command failed with exit code %d", raw.ExitCode), raw.ExitCode, raw.Output)
	}

	return result
}
