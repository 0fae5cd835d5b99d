package internal

import "unicode/utf8"

const (
	// SummaryCharLimit caps the transcript sent for summarization.
	SummaryCharLimit = 30_000
	// AnalysisCharLimit caps the transcript sent for analysis.
	AnalysisCharLimit = 5_000
	// TruncationMarker is appended whenever a transcript is cut.
	TruncationMarker = "\n\n[...truncated...]"
)

// Truncate keeps the first limit code points of s and appends TruncationMarker
// when anything was dropped.
func Truncate(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}

	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + TruncationMarker, true
		}
		n++
	}
	return s, false
}
