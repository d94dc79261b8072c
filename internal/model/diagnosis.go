package model

// Bottleneck labels produced by the rule cascade, in priority order.
const (
	LabelMemoryPressure = "memory-pressure"
	LabelIOBound        = "io-bound"
	LabelSyscallHeavy   = "syscall-heavy"
	LabelCPUBound       = "cpu-bound"
	LabelInconclusive   = "inconclusive"
)

// Confidence ratings attached to a verdict.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Evidence is a single metric citation justifying part of a verdict.
type Evidence struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
	Detail string `json:"detail"`
}

// Verdict is the diagnosis engine's output. Evidence always has at least two
// entries; limitations are unique and keep insertion order.
type Verdict struct {
	Label       string     `json:"label"`
	Confidence  string     `json:"confidence"`
	Evidence    []Evidence `json:"evidence"`
	Limitations []string   `json:"limitations"`
}
