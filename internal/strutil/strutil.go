// Package strutil provides string utility functions shared across packages.
package strutil

import "strings"

// Truncate truncates a string to a maximum number of runes.
// Uses rune-level truncation to ensure Unicode safety (correct handling of multi-byte characters).
// Returns empty string if maxLen <= 0 to prevent slice bounds panic.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// StripControl removes control characters except tab, newline and carriage
// return. Exported artifacts must stay parseable by strict JSON consumers,
// and upstream message text occasionally carries raw control bytes.
func StripControl(s string) string {
	if s == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
