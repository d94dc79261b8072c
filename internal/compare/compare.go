package compare

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/baikal/tracelab/internal/artifact"
	"github.com/baikal/tracelab/internal/model"
)

// Measurement protocol reference values. One warm-up run primes caches and
// the loader; five measured runs give a stable median.
const (
	recommendedWarmupRuns   = 1
	recommendedMeasuredRuns = 5
)

// ErrNoSamples is returned when either sample bucket is empty.
var ErrNoSamples = errors.New("at least one native and one qemu sample are required")

// Inputs records which files fed the comparison.
type Inputs struct {
	NativeFiles   []string `json:"native_files"`
	QemuFiles     []string `json:"qemu_files"`
	CommandsMatch bool     `json:"commands_match"`
	Command       string   `json:"command"`
}

// Bucket holds per-mode aggregate statistics.
type Bucket struct {
	SampleCount       int      `json:"sample_count"`
	MedianDurationSec float64  `json:"median_duration_sec"`
	Arches            []string `json:"arches,omitempty"`
}

// Figures are the headline native-vs-qemu numbers.
type Figures struct {
	DeltaDurationSec    float64            `json:"delta_duration_sec"`
	SlowdownFactor      float64            `json:"slowdown_factor_qemu_vs_native"`
	ThroughputRatio     float64            `json:"throughput_ratio_qemu_vs_native"`
	ThroughputChangePct float64            `json:"throughput_change_percent_qemu_vs_native"`
	CounterRatios       map[string]float64 `json:"perf_counter_ratio_qemu_vs_native"`
}

// Protocol describes how the provided sample counts relate to the
// recommended measurement protocol.
type Protocol struct {
	RecommendedWarmupRuns      int  `json:"recommended_warmup_runs"`
	RecommendedMeasuredRuns    int  `json:"recommended_measured_runs"`
	ProvidedNativeSamples      int  `json:"provided_native_samples"`
	ProvidedQemuSamples        int  `json:"provided_qemu_samples"`
	UsesRecommendedSampleCount bool `json:"uses_recommended_sample_count"`
}

// Result is the persisted compare artifact.
type Result struct {
	SchemaVersion string   `json:"schema_version"`
	Kind          string   `json:"kind"`
	TimestampUTC  string   `json:"timestamp_utc"`
	Inputs        Inputs   `json:"inputs"`
	Native        Bucket   `json:"native"`
	Qemu          Bucket   `json:"qemu"`
	Comparison    Figures  `json:"comparison"`
	Protocol      Protocol `json:"protocol"`
	Caveats       []string `json:"caveats"`
}

// Median returns the middle value of vals, or the mean of the two middle
// values for even-length input. vals is not modified.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Compare aggregates both sample buckets into a Result using the recommended
// measurement protocol.
func Compare(native, qemuSamples []*RunSample) (*Result, error) {
	return CompareWithProtocol(native, qemuSamples, recommendedWarmupRuns, recommendedMeasuredRuns)
}

// CompareWithProtocol aggregates both sample buckets into a Result, judging
// sample counts against the given protocol. Both buckets must be non-empty
// and yield positive duration medians; wall time is the primary axis, perf
// counter ratios are advisory.
func CompareWithProtocol(native, qemuSamples []*RunSample, warmupRuns, measuredRuns int) (*Result, error) {
	if len(native) == 0 || len(qemuSamples) == 0 {
		return nil, ErrNoSamples
	}

	nativeMedian := Median(durations(native))
	qemuMedian := Median(durations(qemuSamples))
	if nativeMedian <= 0 || qemuMedian <= 0 {
		return nil, fmt.Errorf("duration medians must be positive (native=%g, qemu=%g)", nativeMedian, qemuMedian)
	}

	result := &Result{
		SchemaVersion: model.SchemaVersion,
		Kind:          artifact.KindCompareResult,
		TimestampUTC:  time.Now().UTC().Format(time.RFC3339),
		Inputs: Inputs{
			NativeFiles:   paths(native),
			QemuFiles:     paths(qemuSamples),
			CommandsMatch: commandsMatch(native, qemuSamples),
			Command:       native[0].Command,
		},
		Native: Bucket{
			SampleCount:       len(native),
			MedianDurationSec: nativeMedian,
		},
		Qemu: Bucket{
			SampleCount:       len(qemuSamples),
			MedianDurationSec: qemuMedian,
			Arches:            distinctArches(qemuSamples),
		},
		Comparison: Figures{
			DeltaDurationSec:    qemuMedian - nativeMedian,
			SlowdownFactor:      qemuMedian / nativeMedian,
			ThroughputRatio:     nativeMedian / qemuMedian,
			ThroughputChangePct: (nativeMedian/qemuMedian - 1.0) * 100.0,
			CounterRatios:       counterRatios(native, qemuSamples),
		},
		Protocol: Protocol{
			RecommendedWarmupRuns:   warmupRuns,
			RecommendedMeasuredRuns: measuredRuns,
			ProvidedNativeSamples:   len(native),
			ProvidedQemuSamples:     len(qemuSamples),
			UsesRecommendedSampleCount: len(native) == measuredRuns &&
				len(qemuSamples) == measuredRuns,
		},
	}
	result.Caveats = buildCaveats(native, qemuSamples, result)
	return result, nil
}

func durations(samples []*RunSample) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.DurationSec)
	}
	return out
}

func paths(samples []*RunSample) []string {
	out := make([]string, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.Path)
	}
	return out
}

func commandsMatch(native, qemuSamples []*RunSample) bool {
	command := native[0].Command
	for _, s := range native {
		if s.Command != command {
			return false
		}
	}
	for _, s := range qemuSamples {
		if s.Command != command {
			return false
		}
	}
	return true
}

func distinctArches(samples []*RunSample) []string {
	seen := make(map[string]struct{})
	for _, s := range samples {
		if s.QemuArch != "" {
			seen[s.QemuArch] = struct{}{}
		}
	}
	arches := make([]string, 0, len(seen))
	for arch := range seen {
		arches = append(arches, arch)
	}
	sort.Strings(arches)
	return arches
}

// counterRatios computes, per perf counter, the ratio of qemu to native
// medians. A counter contributes only when both buckets have at least one
// sample for it and the native median is positive.
func counterRatios(native, qemuSamples []*RunSample) map[string]float64 {
	ratios := make(map[string]float64)
	for _, counter := range model.CounterNames {
		nativeVals := counterValues(native, counter)
		qemuVals := counterValues(qemuSamples, counter)
		if len(nativeVals) == 0 || len(qemuVals) == 0 {
			continue
		}
		nativeMedian := Median(nativeVals)
		if nativeMedian <= 0 {
			continue
		}
		ratios[counter] = Median(qemuVals) / nativeMedian
	}
	return ratios
}

func counterValues(samples []*RunSample, counter string) []float64 {
	var vals []float64
	for _, s := range samples {
		if v, ok := s.Counters[counter]; ok {
			vals = append(vals, v)
		}
	}
	return vals
}

func buildCaveats(native, qemuSamples []*RunSample, result *Result) []string {
	caveats := []string{
		"Wall-clock and throughput are primary metrics for native vs QEMU comparison.",
	}
	if !result.Protocol.UsesRecommendedSampleCount {
		caveats = append(caveats, fmt.Sprintf(
			"Protocol note: Section 4 recommends %d warm-up plus %d measured runs per mode; provided native=%d, qemu=%d.",
			result.Protocol.RecommendedWarmupRuns, result.Protocol.RecommendedMeasuredRuns,
			len(native), len(qemuSamples)))
	}
	for _, s := range qemuSamples {
		if s.PerfStatus == model.StatusOK {
			caveats = append(caveats,
				"Perf counters in QEMU mode are emulation-affected and not directly equivalent to native counters.")
			break
		}
	}
	if !result.Inputs.CommandsMatch {
		caveats = append(caveats, "Input artifacts do not share an identical command string.")
	}
	if anyNonOKCollector(native) || anyNonOKCollector(qemuSamples) {
		caveats = append(caveats, "At least one collector was not 'ok' in the compared artifacts.")
	}
	if len(result.Qemu.Arches) > 1 {
		caveats = append(caveats, fmt.Sprintf(
			"Compared QEMU samples include multiple target architectures: %s.",
			strings.Join(result.Qemu.Arches, ", ")))
	}
	return caveats
}

func anyNonOKCollector(samples []*RunSample) bool {
	for _, s := range samples {
		if s.hasNonOKCollector() {
			return true
		}
	}
	return false
}
