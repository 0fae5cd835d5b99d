package internal

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	t.Run("short text is unchanged", func(t *testing.T) {
		got, cut := Truncate("hello", 10)
		assert.False(t, cut)
		assert.Equal(t, "hello", got)
	})

	t.Run("exact length is unchanged", func(t *testing.T) {
		s := strings.Repeat("a", AnalysisCharLimit)
		got, cut := Truncate(s, AnalysisCharLimit)
		assert.False(t, cut)
		assert.Equal(t, s, got)
	})

	t.Run("long text keeps prefix and marker", func(t *testing.T) {
		s := strings.Repeat("a", SummaryCharLimit) + strings.Repeat("b", 100)
		got, cut := Truncate(s, SummaryCharLimit)
		assert.True(t, cut)
		assert.Equal(t, strings.Repeat("a", SummaryCharLimit)+TruncationMarker, got)
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		s := strings.Repeat("ç", 10)
		got, cut := Truncate(s, 4)
		assert.True(t, cut)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, "çççç"+TruncationMarker, got)
	})
}
