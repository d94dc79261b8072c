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

// StraceSummaryResult is the envelope for one strace -c replay.
type StraceSummaryResult struct {
	Outcome model.CollectorOutcome
	Summary model.SyscallSummary
}

// CollectStraceSummary replays the workload under `strace -qq -c` and parses
// the per-syscall summary table. As with perf, a timeout fixes the outcome
// before any parsing happens.
func CollectStraceSummary(ctx context.Context, runner executor.Runner, argv []string, timeout time.Duration) StraceSummaryResult {
	var result StraceSummaryResult

	if runtime.GOOS != "linux" {
		result.Outcome = unavailableOutcome("strace collector is Linux-only")
		return result
	}
	if len(argv) == 0 {
		result.Outcome = errorOutcome("empty command", -1, "")
		return result
	}
	if !runner.Available("strace") {
		result.Outcome = unavailableOutcome("strace not found in PATH")
		return result
	}

	args := append([]string{"-qq", "-c", "--"}, argv...)
	raw, err := runner.Run(ctx, timeout, "strace", args...)
	if err != nil {
		result.Outcome = errorOutcome(fmt.Sprintf("strace execution failed: %v", err), -1, "")
		return result
	}

	if raw.TimedOut {
		result.Outcome = timedOutOutcome("strace", raw.ExitCode, raw.Output)
		return result
	}

	summary, parseErr := executor.ParseStraceSummary(raw.Output)
	switch {
	case parseErr == nil:
		result.Outcome = okOutcome(raw.ExitCode, raw.Output)
		result.Summary = *summary
	case errors.Is(parseErr, executor.ErrNoSummaryRows) && raw.ExitCode == 0:
		result.Outcome = errorOutcome("strace output missing expected summary rows", raw.ExitCode, raw.Output)
	default:
		result.Outcome = errorOutcome(
			fmt.Sprintf("strace command failed with exit code %d", raw.ExitCode), raw.ExitCode, raw.Output)
	}

	return result
}
