// Package diagnosis derives dimensionless metrics from collector outputs and
// applies an ordered rule cascade to label the dominant bottleneck.
package diagnosis

import (
	"strings"

	"github.com/baikal/tracelab/internal/collector"
	"github.com/baikal/tracelab/internal/model"
)

// ioSyscalls is the fixed set of syscalls attributed to filesystem I/O when
// computing the I/O time share.
var ioSyscalls = map[string]bool{
	"read": true, "write": true, "pread64": true, "pwrite64": true,
	"preadv": true, "pwritev": true, "readv": true, "writev": true,
	"open": true, "openat": true, "close": true, "fsync": true,
	"fdatasync": true, "stat": true, "fstat": true, "lstat": true,
	"newfstatat": true, "getdents": true, "getdents64": true,
}

// Metrics holds the derived ratios the rule cascade consumes. nil means the
// metric could not be computed from the available collector outputs.
type Metrics struct {
	IPC                 *float64
	CacheMissRate       *float64
	SyscallShare        *float64
	IOShare             *float64
	TopSyscallShare     *float64
	TopSyscallName      string
	TopSyscallTimeSec   float64
	PageFaultRate       *float64
	VoluntarySwitchRate *float64
	MaxRSSMB            *float64
}

func ptr(v float64) *float64 { return &v }

// Derive computes each metric only when its collector succeeded and its
// denominator is strictly positive.
func Derive(obs model.WorkloadObservation, perf collector.PerfStatResult, strace collector.StraceSummaryResult) Metrics {
	var m Metrics

	counters := perf.Counters
	if perf.Outcome.OK() {
		if counters.Cycles != nil && *counters.Cycles > 0 && counters.Instructions != nil {
			m.IPC = ptr(*counters.Instructions / *counters.Cycles)
		}
		if counters.CacheMisses != nil && counters.Instructions != nil && *counters.Instructions > 0 {
			m.CacheMissRate = ptr(*counters.CacheMisses / *counters.Instructions)
		}
		if counters.PageFaults != nil && obs.WallTimeSec > 0 {
			m.PageFaultRate = ptr(*counters.PageFaults / obs.WallTimeSec)
		}
	}

	summary := strace.Summary
	if strace.Outcome.OK() && summary.TotalTimeSec != nil && obs.WallTimeSec > 0 {
		m.SyscallShare = ptr(*summary.TotalTimeSec / obs.WallTimeSec)
	}

	if len(summary.Entries) > 0 && summary.TotalTimeSec != nil && *summary.TotalTimeSec > 0 {
		var ioTime float64
		for _, entry := range summary.Entries {
			if ioSyscalls[strings.ToLower(entry.Name)] && entry.TimeSec > 0 {
				ioTime += entry.TimeSec
			}
		}
		m.IOShare = ptr(ioTime / *summary.TotalTimeSec)

		// First entry = highest time, by the parser's preserved ordering.
		top := summary.Entries[0]
		m.TopSyscallName = top.Name
		m.TopSyscallTimeSec = top.TimeSec
		m.TopSyscallShare = ptr(top.TimeSec / *summary.TotalTimeSec)
	}

	if obs.Sample.VoluntarySwitches != nil && obs.WallTimeSec > 0 {
		m.VoluntarySwitchRate = ptr(float64(*obs.Sample.VoluntarySwitches) / obs.WallTimeSec)
	}

	if obs.Sample.MaxRSSKB != nil {
		m.MaxRSSMB = ptr(float64(*obs.Sample.MaxRSSKB) / 1024.0)
	}

	return m
}
