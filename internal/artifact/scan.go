// Package artifact defines the persisted run artifact and a best-effort
// field scanner over previously written artifact text.
package artifact

import (
	"fmt"
	"regexp"
	"strconv"
)

// The scanner is deliberately not a JSON parser: artifacts are trusted
// self-produced text and readers only need a handful of known fields.
// First match wins and absence is never an error. Duplicate keys nested
// elsewhere in an artifact can shadow the intended match; readers accept
// that trade for tolerance of partially written files.

// ScanString extracts a string field by key.
func ScanString(text, key string) (string, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"([^"]*)"`)
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// ScanNumber extracts a numeric field by key.
func ScanNumber(text, key string) (float64, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*(-?[0-9]+(?:\.[0-9]+)?)`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ScanInteger extracts an integer field by key.
func ScanInteger(text, key string) (int, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*(-?[0-9]+)`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// ScanCollectorStatus extracts collectors.<name>.status from run artifact
// text.
func ScanCollectorStatus(text, collector string) (string, bool) {
	re := regexp.MustCompile(fmt.Sprintf(`(?s)"%s"\s*:\s*\{.*?"status"\s*:\s*"([^"]+)"`,
		regexp.QuoteMeta(collector)))
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// ScanQemuArch extracts qemu.arch from run artifact text.
func ScanQemuArch(text string) (string, bool) {
	re := regexp.MustCompile(`(?s)"qemu"\s*:\s*\{.*?"arch"\s*:\s*"([^"]+)"`)
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}
