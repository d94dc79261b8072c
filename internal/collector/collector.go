// Package collector gathers one category of telemetry per collector from an
// execution of the workload: perf counters (perf stat replay), a syscall
// summary (strace -c replay), and /proc status sampling during the monitored
// run. A collector never aborts the run; every failure is absorbed into its
// CollectorOutcome.
package collector

import (
	"fmt"

	"github.com/baikal/tracelab/internal/model"
)

func okOutcome(exitCode int, raw string) model.CollectorOutcome {
	return model.CollectorOutcome{Status: model.StatusOK, ExitCode: exitCode, Raw: raw}
}

func unavailableOutcome(reason string) model.CollectorOutcome {
	return model.CollectorOutcome{Status: model.StatusUnavailable, Reason: reason, ExitCode: -1}
}

func errorOutcome(reason string, exitCode int, raw string) model.CollectorOutcome {
	return model.CollectorOutcome{Status: model.StatusError, Reason: reason, ExitCode: exitCode, Raw: raw}
}

func timedOutOutcome(tool string, exitCode int, raw string) model.CollectorOutcome {
	return model.CollectorOutcome{
		Status:   model.StatusError,
		Reason:   fmt.Sprintf("%s collector timed out", tool),
		ExitCode: exitCode,
		TimedOut: true,
		Raw:      raw,
	}
}
