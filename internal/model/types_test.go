package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func f64(v float64) *float64 { return &v }

func TestCounterSetLookup(t *testing.T) {
	c := CounterSet{Cycles: f64(100), PageFaults: f64(7)}

	if v, ok := c.Lookup("cycles"); !ok || v != 100 {
		t.Errorf("cycles = (%v, %v)", v, ok)
	}
	if v, ok := c.Lookup("page_faults"); !ok || v != 7 {
		t.Errorf("page_faults = (%v, %v)", v, ok)
	}
	if _, ok := c.Lookup("instructions"); ok {
		t.Error("absent counter reported present")
	}
	if _, ok := c.Lookup("bogus"); ok {
		t.Error("unknown counter reported present")
	}
}

func TestCounterSetEmpty(t *testing.T) {
	var empty CounterSet
	if !empty.Empty() {
		t.Error("zero-value set not empty")
	}
	one := CounterSet{Branches: f64(1)}
	if one.Empty() {
		t.Error("set with a counter reported empty")
	}
}

func TestCollectorOutcomeDescribe(t *testing.T) {
	withReason := CollectorOutcome{Status: StatusError, Reason: "perf not found in PATH"}
	if got := withReason.Describe(); got != "perf not found in PATH" {
		t.Errorf("Describe = %q", got)
	}
	bare := CollectorOutcome{Status: StatusUnavailable}
	if got := bare.Describe(); got != StatusUnavailable {
		t.Errorf("Describe = %q", got)
	}
	if !(CollectorOutcome{Status: StatusOK}).OK() || (CollectorOutcome{Status: StatusError}).OK() {
		t.Error("OK() misclassifies statuses")
	}
}

func TestProcessSampleExplicitNulls(t *testing.T) {
	data, err := json.Marshal(ProcessSample{MaxRSSKB: func() *int64 { v := int64(2048); return &v }()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(data)
	// Absent /proc fields serialize as null, never omitted and never zero.
	for _, want := range []string{
		`"max_rss_kb":2048`,
		`"voluntary_ctxt_switches":null`,
		`"nonvoluntary_ctxt_switches":null`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("JSON missing %s: %s", want, text)
		}
	}
}

func TestCounterSetOmitsAbsent(t *testing.T) {
	data, err := json.Marshal(CounterSet{Cycles: f64(5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"cycles":5`) {
		t.Errorf("cycles missing: %s", text)
	}
	if strings.Contains(text, "instructions") {
		t.Errorf("absent counter serialized: %s", text)
	}
}
