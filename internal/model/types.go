// Package model defines the data types shared by collectors, the diagnosis
// engine, and the JSON artifacts tracelab persists. Absent telemetry values
// are modeled as nil pointers, never as zero sentinels.
// Schema version: 1.0.0
package model

// SchemaVersion identifies the artifact layout produced by this build.
const SchemaVersion = "1.0.0"

// Execution modes recorded in run artifacts.
const (
	ModeNative = "native"
	ModeQemu   = "qemu"
)

// Collector outcome statuses.
const (
	StatusOK          = "ok"
	StatusError       = "error"
	StatusUnavailable = "unavailable"
)

// Collector names as they appear in run artifacts.
const (
	CollectorPerfStat      = "perf_stat"
	CollectorStraceSummary = "strace_summary"
	CollectorProcStatus    = "proc_status"
)

// CollectorOutcome records how a single collection attempt ended. Exactly one
// outcome exists per collector per run; it is immutable once produced.
type CollectorOutcome struct {
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	ExitCode int    `json:"command_exit_code"`
	TimedOut bool   `json:"timed_out"`
	Raw      string `json:"-"`
}

// OK reports whether the collector produced usable data.
func (o CollectorOutcome) OK() bool {
	return o.Status == StatusOK
}

// Describe returns the reason when set, otherwise the bare status. Used when
// quoting a degraded collector in diagnosis limitations.
func (o CollectorOutcome) Describe() string {
	if o.Reason != "" {
		return o.Reason
	}
	return o.Status
}

// CounterSet holds the perf counters tracelab understands. Each field is
// independently optional: nil means the counter was not captured.
type CounterSet struct {
	Cycles       *float64 `json:"cycles,omitempty"`
	Instructions *float64 `json:"instructions,omitempty"`
	Branches     *float64 `json:"branches,omitempty"`
	BranchMisses *float64 `json:"branch_misses,omitempty"`
	CacheMisses  *float64 `json:"cache_misses,omitempty"`
	PageFaults   *float64 `json:"page_faults,omitempty"`
}

// CounterNames lists the recognized counters in artifact order.
var CounterNames = []string{
	"cycles", "instructions", "branches",
	"branch_misses", "cache_misses", "page_faults",
}

// Lookup returns the value of a counter by its artifact name.
func (c *CounterSet) Lookup(name string) (float64, bool) {
	var p *float64
	switch name {
	case "cycles":
		p = c.Cycles
	case "instructions":
		p = c.Instructions
	case "branches":
		p = c.Branches
	case "branch_misses":
		p = c.BranchMisses
	case "cache_misses":
		p = c.CacheMisses
	case "page_faults":
		p = c.PageFaults
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Empty reports whether no counter was captured.
func (c *CounterSet) Empty() bool {
	for _, name := range CounterNames {
		if _, ok := c.Lookup(name); ok {
			return false
		}
	}
	return true
}

// SyscallEntry is one row of a syscall summary, in the source tool's
// time-descending order.
type SyscallEntry struct {
	Name    string  `json:"name"`
	Calls   int64   `json:"calls"`
	TimeSec float64 `json:"time_sec"`
	Errors  int64   `json:"errors"`
}

// SyscallSummary is the parsed strace -c table. Entries keep the input order;
// they are never re-sorted.
type SyscallSummary struct {
	Entries      []SyscallEntry
	TotalTimeSec *float64
}

// ProcessSample carries /proc/<pid>/status fields folded over one run:
// MaxRSSKB is the running maximum, the switch counters are the last
// observed values.
type ProcessSample struct {
	MaxRSSKB             *int64 `json:"max_rss_kb"`
	VoluntarySwitches    *int64 `json:"voluntary_ctxt_switches"`
	NonvoluntarySwitches *int64 `json:"nonvoluntary_ctxt_switches"`
}

// Exit classifications for the monitored workload execution.
const (
	ExitClassCode     = "exit_code"
	ExitClassSignal   = "signal"
	ExitClassUnknown  = "unknown"
	ExitClassSpawnErr = "spawn_error"
	ExitClassWaitErr  = "wait_error"
	ExitClassArgErr   = "argument_error"
)

// WorkloadObservation is the result of the monitored workload execution.
// It is built during the polling loop and finalized at process exit.
type WorkloadObservation struct {
	ExitCode           int
	ExitClassification string
	WallTimeSec        float64
	Sample             ProcessSample
	SamplerOutcome     CollectorOutcome
}
