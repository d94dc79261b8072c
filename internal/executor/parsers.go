package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/baikal/tracelab/internal/model"
)

// ErrNoCounterData is returned when perf output contains none of the
// recognized counter rows.
var ErrNoCounterData = fmt.Errorf("no recognized perf counters found")

// ErrNoSummaryRows is returned when strace output contains neither syscall
// rows nor a total row.
var ErrNoSummaryRows = fmt.Errorf("no syscall summary rows found")

// canonicalizeCounterNumber normalizes locale/grouping variants in perf
// counter values. Commas with no dot are thousands separators when there are
// two or more of them, or when exactly three digits follow the last one;
// a lone comma otherwise stands in for a decimal point. When both commas and
// a dot appear, commas are grouping separators.
func canonicalizeCounterNumber(value string) string {
	value = strings.ReplaceAll(strings.TrimSpace(value), " ", "")

	commas := strings.Count(value, ",")
	dots := strings.Count(value, ".")

	switch {
	case commas > 0 && dots == 0:
		digitsAfter := len(value) - strings.LastIndex(value, ",") - 1
		if commas >= 2 || digitsAfter == 3 {
			value = strings.ReplaceAll(value, ",", "")
		} else {
			value = strings.ReplaceAll(value, ",", ".")
		}
	case commas > 0 && dots > 0:
		value = strings.ReplaceAll(value, ",", "")
	}

	return value
}

// parseCounterValue parses a possibly localized perf counter token.
func parseCounterValue(value string) (float64, bool) {
	canonical := canonicalizeCounterNumber(value)

	var cleaned strings.Builder
	for _, ch := range canonical {
		if (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' || ch == '+' || ch == 'e' || ch == 'E' {
			cleaned.WriteRune(ch)
		}
	}
	if cleaned.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseSeconds parses strace time columns, tolerating a localized decimal
// comma. Unlike counter values there is no thousands heuristic: seconds
// columns never carry grouping separators.
func parseSeconds(value string) (float64, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), " ", "")

	commas := strings.Count(normalized, ",")
	dots := strings.Count(normalized, ".")
	if commas > 0 && dots == 0 {
		normalized = strings.ReplaceAll(normalized, ",", ".")
	} else if commas > 0 && dots > 0 {
		normalized = strings.ReplaceAll(normalized, ",", "")
	}

	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// splitCounterRow splits a perf CSV row. Some locales/tools emit ';' instead
// of ','; any semicolon in the line switches the delimiter.
func splitCounterRow(line string) []string {
	delim := ","
	if strings.Contains(line, ";") {
		delim = ";"
	}
	return strings.Split(line, delim)
}

// ParsePerfStatCSV parses `perf stat -x,` output into a CounterSet. Field 0
// is the value, field 2 the event name; other fields and unrecognized events
// are ignored. Returns ErrNoCounterData when nothing recognizable was found.
func ParsePerfStatCSV(raw string) (*model.CounterSet, error) {
	counters := &model.CounterSet{}

	for _, line := range strings.Split(raw, "\n") {
		fields := splitCounterRow(line)
		if len(fields) < 3 {
			continue
		}

		value, ok := parseCounterValue(fields[0])
		if !ok {
			continue
		}
		v := value

		switch strings.TrimSpace(fields[2]) {
		case "cycles":
			counters.Cycles = &v
		case "instructions":
			counters.Instructions = &v
		case "branches":
			counters.Branches = &v
		case "branch-misses":
			counters.BranchMisses = &v
		case "cache-misses":
			counters.CacheMisses = &v
		case "page-faults":
			counters.PageFaults = &v
		}
	}

	if counters.Empty() {
		return nil, ErrNoCounterData
	}
	return counters, nil
}

// ParseStraceSummary parses `strace -c` tabular output. Rows keep the tool's
// time-descending order; the "total" row only sets TotalTimeSec. Returns
// ErrNoSummaryRows when neither a row nor the total was captured.
func ParseStraceSummary(raw string) (*model.SyscallSummary, error) {
	summary := &model.SyscallSummary{}
	parsedAny := false

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "% time") || strings.HasPrefix(trimmed, "------") {
			continue
		}

		tokens := strings.Fields(trimmed)
		if len(tokens) < 5 {
			continue
		}

		name := tokens[len(tokens)-1]
		seconds, ok := parseSeconds(tokens[1])
		if !ok {
			continue
		}

		if name == "total" {
			total := seconds
			summary.TotalTimeSec = &total
			parsedAny = true
			continue
		}

		calls, err := strconv.ParseInt(tokens[3], 10, 64)
		if err != nil {
			continue
		}

		var errCount int64
		if len(tokens) >= 6 {
			if parsed, err := strconv.ParseInt(tokens[4], 10, 64); err == nil {
				errCount = parsed
			}
		}

		summary.Entries = append(summary.Entries, model.SyscallEntry{
			Name:    name,
			Calls:   calls,
			TimeSec: seconds,
			Errors:  errCount,
		})
		parsedAny = true
	}

	if !parsedAny {
		return nil, ErrNoSummaryRows
	}
	return summary, nil
}
