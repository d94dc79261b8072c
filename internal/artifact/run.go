package artifact

import (
	"time"

	"github.com/baikal/tracelab/internal/collector"
	"github.com/baikal/tracelab/internal/model"
)

// Artifact kinds.
const (
	KindRunResult     = "run_result"
	KindCompareResult = "compare_result"
	KindDoctorResult  = "doctor_result"
	KindInspectResult = "inspect_result"
)

// topSyscallLimit caps how many syscall rows a run artifact keeps.
const topSyscallLimit = 15

// CollectionStrategy names the replay design: one monitored run plus one
// replay per tool-driven collector.
const CollectionStrategy = "main_run_plus_replay_collectors"

// RunArtifact is the persisted result of one `tracelab run` invocation.
type RunArtifact struct {
	SchemaVersion       string             `json:"schema_version"`
	Kind                string             `json:"kind"`
	TimestampUTC        string             `json:"timestamp_utc"`
	Mode                string             `json:"mode"`
	CollectionStrategy  string             `json:"collection_strategy"`
	CollectorTimeoutSec int                `json:"collector_timeout_sec"`
	Command             string             `json:"command"`
	ExecCommand         string             `json:"exec_command"`
	DurationSec         float64            `json:"duration_sec"`
	ExitCode            int                `json:"exit_code"`
	Strict              bool               `json:"strict"`
	Fallback            Fallback           `json:"fallback"`
	Qemu                *QemuInfo          `json:"qemu,omitempty"`
	Host                HostInfo           `json:"host"`
	Collectors          CollectorArtifacts `json:"collectors"`
	Diagnosis           model.Verdict      `json:"diagnosis"`
}

// Fallback carries the telemetry that is available even when every
// tool-driven collector fails. Absent values serialize as null.
type Fallback struct {
	WallTimeSec        float64 `json:"wall_time_sec"`
	ExitClassification string  `json:"exit_classification"`
	model.ProcessSample
}

// QemuInfo is present only for qemu-mode runs.
type QemuInfo struct {
	Arch string `json:"arch"`
}

// HostInfo records reproducibility metadata about the machine the run
// happened on.
type HostInfo struct {
	OS     string `json:"os"`
	Arch   string `json:"arch"`
	Kernel string `json:"kernel"`
	GitSHA string `json:"git_sha"`
}

// CollectorArtifacts groups the per-collector blocks under fixed names; the
// compare reader reaches them via ScanCollectorStatus.
type CollectorArtifacts struct {
	PerfStat      PerfStatArtifact      `json:"perf_stat"`
	StraceSummary StraceSummaryArtifact `json:"strace_summary"`
	ProcStatus    ProcStatusArtifact    `json:"proc_status"`
}

// PerfStatArtifact serializes the perf replay: outcome plus whichever
// counters were captured.
type PerfStatArtifact struct {
	model.CollectorOutcome
	Counters model.CounterSet `json:"counters"`
}

// StraceSummaryArtifact serializes the strace replay, keeping the top rows
// in the tool's time-descending order.
type StraceSummaryArtifact struct {
	model.CollectorOutcome
	TopSyscalls  []model.SyscallEntry `json:"top_syscalls"`
	TotalTimeSec *float64             `json:"total_time_sec,omitempty"`
}

// ProcStatusArtifact serializes the /proc sampler outcome and its folded
// sample.
type ProcStatusArtifact struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	model.ProcessSample
}

// RunInputs is everything NewRun needs to assemble a run artifact.
type RunInputs struct {
	Mode                string
	QemuArch            string
	Command             string
	ExecCommand         string
	Strict              bool
	CollectorTimeoutSec int
	Workload            model.WorkloadObservation
	Perf                collector.PerfStatResult
	Strace              collector.StraceSummaryResult
	Diagnosis           model.Verdict
}

// NewRun assembles the immutable run artifact from finalized collector
// results.
func NewRun(in RunInputs) *RunArtifact {
	top := in.Strace.Summary.Entries
	if len(top) > topSyscallLimit {
		top = top[:topSyscallLimit]
	}
	if top == nil {
		top = []model.SyscallEntry{}
	}

	a := &RunArtifact{
		SchemaVersion:       model.SchemaVersion,
		Kind:                KindRunResult,
		TimestampUTC:        time.Now().UTC().Format(time.RFC3339),
		Mode:                in.Mode,
		CollectionStrategy:  CollectionStrategy,
		CollectorTimeoutSec: in.CollectorTimeoutSec,
		Command:             in.Command,
		ExecCommand:         in.ExecCommand,
		DurationSec:         in.Workload.WallTimeSec,
		ExitCode:            in.Workload.ExitCode,
		Strict:              in.Strict,
		Fallback: Fallback{
			WallTimeSec:        in.Workload.WallTimeSec,
			ExitClassification: in.Workload.ExitClassification,
			ProcessSample:      in.Workload.Sample,
		},
		Host: DetectHost(),
		Collectors: CollectorArtifacts{
			PerfStat: PerfStatArtifact{
				CollectorOutcome: in.Perf.Outcome,
				Counters:         in.Perf.Counters,
			},
			StraceSummary: StraceSummaryArtifact{
				CollectorOutcome: in.Strace.Outcome,
				TopSyscalls:      top,
				TotalTimeSec:     in.Strace.Summary.TotalTimeSec,
			},
			ProcStatus: ProcStatusArtifact{
				Status:        in.Workload.SamplerOutcome.Status,
				Reason:        in.Workload.SamplerOutcome.Reason,
				ProcessSample: in.Workload.Sample,
			},
		},
		Diagnosis: in.Diagnosis,
	}

	if in.Mode == model.ModeQemu {
		a.Qemu = &QemuInfo{Arch: in.QemuArch}
	}

	return a
}
