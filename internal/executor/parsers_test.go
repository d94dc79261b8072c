package executor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return string(data)
}

func TestCanonicalizeCounterNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234567", "1234567"},
		{"1,234,567", "1234567"},
		{"1,042", "1042"}, // exactly three digits after a lone comma: grouping
		{"0,52", "0.52"},  // lone comma, not three digits: decimal
		{"9,84", "9.84"},
		{"1,234.5", "1234.5"}, // comma plus dot: comma is grouping
		{" 1 234 ", "1234"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := canonicalizeCounterNumber(tt.in); got != tt.want {
			t.Errorf("canonicalizeCounterNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseCounterValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4858063876", 4858063876, true},
		{"1,932,842,569", 1932842569, true},
		{"0,52", 0.52, true},
		{"<not supported>", 0, false},
		{"<not counted>", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseCounterValue(tt.in)
		if ok != tt.ok {
			t.Errorf("parseCounterValue(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("parseCounterValue(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseSecondsNoGroupingHeuristic(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"0.001232", 0.001232, true},
		{"0,001232", 0.001232, true}, // decimal comma, never grouping
		{"1,234", 1.234, true},
		{"1,234.5", 1234.5, true},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseSeconds(tt.in)
		if ok != tt.ok {
			t.Errorf("parseSeconds(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("parseSeconds(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParsePerfStatCSV(t *testing.T) {
	counters, err := ParsePerfStatCSV(readFixture(t, "perf_stat.csv"))
	if err != nil {
		t.Fatalf("ParsePerfStatCSV: %v", err)
	}

	checks := []struct {
		name string
		got  *float64
		want float64
	}{
		{"cycles", counters.Cycles, 4858063876},
		{"instructions", counters.Instructions, 9842446914},
		{"branches", counters.Branches, 1932842569},
		{"branch-misses", counters.BranchMisses, 9764513},
		{"cache-misses", counters.CacheMisses, 1204966},
		{"page-faults", counters.PageFaults, 1042},
	}
	for _, c := range checks {
		if c.got == nil {
			t.Errorf("%s: missing, want %v", c.name, c.want)
			continue
		}
		if *c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, *c.got, c.want)
		}
	}
}

func TestParsePerfStatCSVLocaleVariants(t *testing.T) {
	counters, err := ParsePerfStatCSV(readFixture(t, "perf_stat_locale.csv"))
	if err != nil {
		t.Fatalf("ParsePerfStatCSV: %v", err)
	}

	// Dotted grouping without commas is unparseable and skipped, as is
	// "<not supported>"; the remaining rows exercise the comma heuristic.
	if counters.Cycles != nil {
		t.Errorf("cycles = %v, want absent", *counters.Cycles)
	}
	if counters.CacheMisses != nil {
		t.Errorf("cache-misses = %v, want absent", *counters.CacheMisses)
	}
	if counters.Instructions == nil || *counters.Instructions != 9.84 {
		t.Errorf("instructions = %v, want 9.84", counters.Instructions)
	}
	if counters.Branches == nil || *counters.Branches != 1932842569 {
		t.Errorf("branches = %v, want 1932842569", counters.Branches)
	}
	if counters.BranchMisses == nil || *counters.BranchMisses != 9764513 {
		t.Errorf("branch-misses = %v, want 9764513", counters.BranchMisses)
	}
	if counters.PageFaults == nil || *counters.PageFaults != 1042 {
		t.Errorf("page-faults = %v, want 1042", counters.PageFaults)
	}
}

func TestParsePerfStatCSVNoData(t *testing.T) {
	for _, raw := range []string{"", "garbage\nmore garbage\n", "1,2\nshort,row\n"} {
		if _, err := ParsePerfStatCSV(raw); !errors.Is(err, ErrNoCounterData) {
			t.Errorf("ParsePerfStatCSV(%q) err = %v, want ErrNoCounterData", raw, err)
		}
	}
}

func TestParsePerfStatCSVIgnoresUnknownEvents(t *testing.T) {
	raw := "123,,cycles,1,100.00,,\n456,,task-clock,1,100.00,,\n"
	counters, err := ParsePerfStatCSV(raw)
	if err != nil {
		t.Fatalf("ParsePerfStatCSV: %v", err)
	}
	if counters.Cycles == nil || *counters.Cycles != 123 {
		t.Errorf("cycles = %v, want 123", counters.Cycles)
	}
	if counters.Instructions != nil {
		t.Errorf("instructions = %v, want absent", *counters.Instructions)
	}
}

func TestParseStraceSummary(t *testing.T) {
	summary, err := ParseStraceSummary(readFixture(t, "strace_summary.txt"))
	if err != nil {
		t.Fatalf("ParseStraceSummary: %v", err)
	}

	if len(summary.Entries) != 5 {
		t.Fatalf("entries = %d, want 5", len(summary.Entries))
	}

	// Rows keep the tool's time-descending order.
	first := summary.Entries[0]
	if first.Name != "read" || first.Calls != 115 || first.TimeSec != 0.001232 || first.Errors != 0 {
		t.Errorf("entry[0] = %+v, want read/115/0.001232/0", first)
	}

	second := summary.Entries[1]
	if second.Name != "openat" || second.Calls != 62 || second.Errors != 11 {
		t.Errorf("entry[1] = %+v, want openat/62 with 11 errors", second)
	}

	if summary.TotalTimeSec == nil || *summary.TotalTimeSec != 0.002733 {
		t.Errorf("total = %v, want 0.002733", summary.TotalTimeSec)
	}

	// The total row must not appear as a syscall entry.
	for _, e := range summary.Entries {
		if e.Name == "total" {
			t.Error("total row leaked into entries")
		}
	}
}

func TestParseStraceSummaryDecimalComma(t *testing.T) {
	raw := " 99,99    0,004321          10       400           read\n" +
		"100,00    0,004321          10       400           total\n"
	summary, err := ParseStraceSummary(raw)
	if err != nil {
		t.Fatalf("ParseStraceSummary: %v", err)
	}
	if len(summary.Entries) != 1 || summary.Entries[0].TimeSec != 0.004321 {
		t.Fatalf("entries = %+v, want one read row with 0.004321s", summary.Entries)
	}
	if summary.TotalTimeSec == nil || *summary.TotalTimeSec != 0.004321 {
		t.Errorf("total = %v, want 0.004321", summary.TotalTimeSec)
	}
}

func TestParseStraceSummaryNoRows(t *testing.T) {
	raw := "% time     seconds  usecs/call     calls    errors syscall\n" +
		"------ ----------- ----------- --------- --------- ----------------\n"
	if _, err := ParseStraceSummary(raw); !errors.Is(err, ErrNoSummaryRows) {
		t.Errorf("err = %v, want ErrNoSummaryRows", err)
	}
}

func TestParseStraceSummarySkipsMalformedRows(t *testing.T) {
	raw := "nonsense row without numbers here ok\n" +
		" 50.00    0.000100           5        20           write\n"
	summary, err := ParseStraceSummary(raw)
	if err != nil {
		t.Fatalf("ParseStraceSummary: %v", err)
	}
	if len(summary.Entries) != 1 || summary.Entries[0].Name != "write" {
		t.Fatalf("entries = %+v, want single write row", summary.Entries)
	}
	if summary.TotalTimeSec != nil {
		t.Errorf("total = %v, want absent", *summary.TotalTimeSec)
	}
}
