package diagnosis

import (
	"fmt"
	"strconv"

	"github.com/baikal/tracelab/internal/collector"
	"github.com/baikal/tracelab/internal/model"
)

// Rule thresholds. Values are part of the artifact contract; change them and
// previously recorded verdicts stop being reproducible.
const (
	memoryRSSMinMB          = 512.0
	memoryFaultRateMin      = 500.0
	memoryFaultRateHigh     = 2000.0
	memorySwitchRateMin     = 5000.0
	ioBoundSyscallShareMin  = 0.15
	ioBoundIOShareMin       = 0.60
	ioBoundSyscallShareHigh = 0.30
	ioBoundIOShareHigh      = 0.75
	syscallHeavyShareMin    = 0.15
	syscallHeavyShareHigh   = 0.35
	cpuBoundIPCMin          = 0.90
	cpuBoundIPCHigh         = 1.20
	cpuBoundSyscallShareMax = 0.10
	cpuBoundSyscallTightMax = 0.05
	cpuBoundCacheMissMax    = 0.05
	shortRunThresholdSec    = 0.05
)

func formatNumber(value float64, precision int) string {
	return strconv.FormatFloat(value, 'f', precision, 64)
}

// rule is one entry of the fixed-priority cascade. The first rule whose match
// predicate holds determines the verdict.
type rule struct {
	label      string
	match      func(m Metrics) bool
	confidence func(m Metrics) string
	evidence   func(m Metrics) []model.Evidence
}

var cascade = []rule{
	{
		label: model.LabelMemoryPressure,
		match: func(m Metrics) bool {
			return m.MaxRSSMB != nil && *m.MaxRSSMB >= memoryRSSMinMB &&
				((m.PageFaultRate != nil && *m.PageFaultRate >= memoryFaultRateMin) ||
					(m.VoluntarySwitchRate != nil && *m.VoluntarySwitchRate >= memorySwitchRateMin))
		},
		confidence: func(m Metrics) string {
			if m.PageFaultRate != nil && *m.PageFaultRate >= memoryFaultRateHigh {
				return model.ConfidenceHigh
			}
			return model.ConfidenceMedium
		},
		evidence: func(m Metrics) []model.Evidence {
			ev := []model.Evidence{{
				Metric: "max_rss_mb",
				Value:  formatNumber(*m.MaxRSSMB, 1),
				Detail: "Peak RSS sampled from /proc/<pid>/status.",
			}}
			if m.PageFaultRate != nil {
				ev = append(ev, model.Evidence{
					Metric: "page_faults_per_sec",
					Value:  formatNumber(*m.PageFaultRate, 1),
					Detail: "Page fault activity is elevated for this runtime.",
				})
			}
			if m.VoluntarySwitchRate != nil {
				ev = append(ev, model.Evidence{
					Metric: "voluntary_ctx_switches_per_sec",
					Value:  formatNumber(*m.VoluntarySwitchRate, 1),
					Detail: "High switching can indicate stalls around memory activity.",
				})
			}
			return ev
		},
	},
	{
		label: model.LabelIOBound,
		match: func(m Metrics) bool {
			return m.SyscallShare != nil && m.IOShare != nil &&
				*m.SyscallShare >= ioBoundSyscallShareMin && *m.IOShare >= ioBoundIOShareMin
		},
		confidence: func(m Metrics) string {
			if *m.SyscallShare >= ioBoundSyscallShareHigh && *m.IOShare >= ioBoundIOShareHigh {
				return model.ConfidenceHigh
			}
			return model.ConfidenceMedium
		},
		evidence: func(m Metrics) []model.Evidence {
			ev := []model.Evidence{
				{
					Metric: "syscall_time_share",
					Value:  formatNumber(*m.SyscallShare, 3),
					Detail: "Share of wall time spent inside syscalls.",
				},
				{
					Metric: "io_syscall_share",
					Value:  formatNumber(*m.IOShare, 3),
					Detail: "I/O-related syscalls dominate syscall time.",
				},
			}
			if m.TopSyscallShare != nil {
				ev = append(ev, topSyscallEvidence(m))
			}
			return ev
		},
	},
	{
		label: model.LabelSyscallHeavy,
		match: func(m Metrics) bool {
			return m.SyscallShare != nil && *m.SyscallShare >= syscallHeavyShareMin
		},
		confidence: func(m Metrics) string {
			if *m.SyscallShare >= syscallHeavyShareHigh {
				return model.ConfidenceHigh
			}
			return model.ConfidenceMedium
		},
		evidence: func(m Metrics) []model.Evidence {
			ev := []model.Evidence{{
				Metric: "syscall_time_share",
				Value:  formatNumber(*m.SyscallShare, 3),
				Detail: "Share of wall time spent inside syscalls.",
			}}
			if m.TopSyscallShare != nil {
				ev = append(ev, model.Evidence{
					Metric: "top_syscall_share",
					Value:  formatNumber(*m.TopSyscallShare, 3),
					Detail: "Top syscall concentration within strace summary.",
				})
				ev = append(ev, topSyscallEvidence(m))
			}
			return ev
		},
	},
	{
		label: model.LabelCPUBound,
		match: func(m Metrics) bool {
			return m.IPC != nil && *m.IPC >= cpuBoundIPCMin &&
				(m.SyscallShare == nil || *m.SyscallShare <= cpuBoundSyscallShareMax) &&
				(m.CacheMissRate == nil || *m.CacheMissRate <= cpuBoundCacheMissMax)
		},
		confidence: func(m Metrics) string {
			if *m.IPC >= cpuBoundIPCHigh &&
				(m.SyscallShare == nil || *m.SyscallShare <= cpuBoundSyscallTightMax) {
				return model.ConfidenceHigh
			}
			return model.ConfidenceMedium
		},
		evidence: func(m Metrics) []model.Evidence {
			ev := []model.Evidence{{
				Metric: "ipc",
				Value:  formatNumber(*m.IPC, 3),
				Detail: "Instructions per cycle from perf counters.",
			}}
			if m.SyscallShare != nil {
				ev = append(ev, model.Evidence{
					Metric: "syscall_time_share",
					Value:  formatNumber(*m.SyscallShare, 3),
					Detail: "Low syscall share suggests compute-heavy execution.",
				})
			}
			if m.CacheMissRate != nil {
				ev = append(ev, model.Evidence{
					Metric: "cache_miss_per_instruction",
					Value:  formatNumber(*m.CacheMissRate, 6),
					Detail: "Cache-miss density from perf counters.",
				})
			}
			return ev
		},
	},
}

func topSyscallEvidence(m Metrics) model.Evidence {
	return model.Evidence{
		Metric: "top_syscall",
		Value:  fmt.Sprintf("%s (%ss)", m.TopSyscallName, formatNumber(m.TopSyscallTimeSec, 6)),
		Detail: "Most expensive syscall entry in strace summary.",
	}
}

func addUniqueLimitation(limitations []string, text string) []string {
	for _, existing := range limitations {
		if existing == text {
			return limitations
		}
	}
	return append(limitations, text)
}

// buildLimitations collects availability-driven caveats. They apply to every
// label and keep insertion order with duplicates removed.
func buildLimitations(obs model.WorkloadObservation, perf, strace model.CollectorOutcome, mode string) []string {
	var limitations []string

	if mode == model.ModeQemu {
		limitations = addUniqueLimitation(limitations,
			"Perf counters captured under QEMU emulation; compare primarily by wall time and throughput.")
	}
	if !perf.OK() {
		limitations = addUniqueLimitation(limitations,
			"perf collector not fully usable: "+perf.Describe())
	}
	if !strace.OK() {
		limitations = addUniqueLimitation(limitations,
			"strace collector not fully usable: "+strace.Describe())
	}
	if !obs.SamplerOutcome.OK() {
		limitations = addUniqueLimitation(limitations,
			"proc status sampler not fully usable: "+obs.SamplerOutcome.Describe())
	}
	if obs.WallTimeSec > 0 && obs.WallTimeSec < shortRunThresholdSec {
		limitations = addUniqueLimitation(limitations,
			"Workload completed in under 50ms; startup noise may dominate.")
	}

	return limitations
}

// ensureMinimumEvidence guarantees every verdict cites at least two evidence
// entries, injecting wall time and combined collector statuses while skipping
// duplicates by metric name.
func ensureMinimumEvidence(obs model.WorkloadObservation, perf, strace model.CollectorOutcome, evidence []model.Evidence) []model.Evidence {
	if len(evidence) >= 2 {
		return evidence
	}

	pushUnique := func(e model.Evidence) {
		for _, existing := range evidence {
			if existing.Metric == e.Metric {
				return
			}
		}
		evidence = append(evidence, e)
	}

	pushUnique(model.Evidence{
		Metric: "wall_time_sec",
		Value:  formatNumber(obs.WallTimeSec, 6),
		Detail: "Elapsed runtime from fallback timer.",
	})
	pushUnique(model.Evidence{
		Metric: "collector_statuses",
		Value: fmt.Sprintf("perf=%s, strace=%s, proc=%s",
			perf.Status, strace.Status, obs.SamplerOutcome.Status),
		Detail: "Collector availability influences diagnosis confidence.",
	})

	return evidence
}

// Diagnose runs the cascade over the derived metrics and returns a verdict.
// It never fails: absent or unusable inputs fall through every rule guard
// into the inconclusive label.
func Diagnose(obs model.WorkloadObservation, perf collector.PerfStatResult, strace collector.StraceSummaryResult, mode string) model.Verdict {
	metrics := Derive(obs, perf, strace)

	verdict := model.Verdict{
		Limitations: buildLimitations(obs, perf.Outcome, strace.Outcome, mode),
	}

	matched := false
	for _, r := range cascade {
		if r.match(metrics) {
			verdict.Label = r.label
			verdict.Confidence = r.confidence(metrics)
			verdict.Evidence = r.evidence(metrics)
			matched = true
			break
		}
	}

	if !matched {
		verdict.Label = model.LabelInconclusive
		verdict.Confidence = model.ConfidenceLow
		verdict.Evidence = []model.Evidence{
			{
				Metric: "wall_time_sec",
				Value:  formatNumber(obs.WallTimeSec, 6),
				Detail: "Elapsed runtime from fallback timer.",
			},
			{
				Metric: "exit_code",
				Value:  strconv.Itoa(obs.ExitCode),
				Detail: "Non-zero exit or limited telemetry can prevent clear attribution.",
			},
		}
		verdict.Limitations = addUniqueLimitation(verdict.Limitations,
			"No rule crossed confidence thresholds for CPU, syscall, I/O, or memory pressure.")
	}

	verdict.Evidence = ensureMinimumEvidence(obs, perf.Outcome, strace.Outcome, verdict.Evidence)
	return verdict
}
