package executor

import "strings"

// ShellQuote single-quotes an argument for display in recorded command
// strings. Workloads are always exec'd argv-style; this is presentation only.
func ShellQuote(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// JoinRaw joins arguments verbatim for display.
func JoinRaw(parts []string) string {
	return strings.Join(parts, " ")
}

// JoinQuoted joins arguments with shell quoting for recorded exec commands.
func JoinQuoted(parts []string) string {
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = ShellQuote(part)
	}
	return strings.Join(quoted, " ")
}
