package internal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummaryStyle(t *testing.T) {
	tests := []struct {
		in      string
		want    SummaryStyle
		wantErr bool
	}{
		{"", StyleStructured, false},
		{"structured", StyleStructured, false},
		{"LIST", StyleList, false},
		{"bullet_points", StyleList, false},
		{" paragraph ", StyleParagraph, false},
		{"haiku", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSummaryStyle(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLanguage(t *testing.T) {
	for _, in := range []string{"pt", "en", "es", "fr"} {
		got, err := ParseLanguage(in)
		require.NoError(t, err)
		assert.Equal(t, Language(in), got)
	}

	got, err := ParseLanguage("auto")
	require.NoError(t, err)
	assert.Equal(t, LangAuto, got)
	assert.Equal(t, "auto", got.Tag())

	_, err = ParseLanguage("de")
	assert.Error(t, err)

	assert.Equal(t, "Portuguese", LangPortuguese.Name())
}

func TestParseAudioFormat(t *testing.T) {
	got, err := ParseAudioFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatMP3, got)

	got, err = ParseAudioFormat("FLAC")
	require.NoError(t, err)
	assert.Equal(t, FormatFLAC, got)
	assert.Equal(t, "audio/flac", got.MIMEType())
	assert.Equal(t, "audio/wav", FormatWAV.MIMEType())
	assert.Equal(t, "audio/mpeg", FormatMP3.MIMEType())

	_, err = ParseAudioFormat("ogg")
	assert.Error(t, err)
}

func TestStageProgressIsMonotonic(t *testing.T) {
	order := []Stage{StageIdle, StageFetching, StageConverting, StageTranscribing, StageSummarizing, StageDone}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i].Progress(), order[i-1].Progress(), "%s after %s", order[i], order[i-1])
	}
	assert.Equal(t, 100, StageDone.Progress())
	assert.Zero(t, StageError.Progress())

	assert.True(t, StageTranscribing.IsActive())
	assert.False(t, StageDone.IsActive())
	assert.True(t, StageError.IsFinished())
}

func TestStageOf(t *testing.T) {
	tests := []struct {
		err  error
		want Stage
	}{
		{nil, StageDone},
		{fmt.Errorf("x: %w", ErrFetch), StageFetching},
		{&SizeError{Size: 2, Limit: 1}, StageConverting},
		{fmt.Errorf("%w: boom", ErrTranscribe), StageTranscribing},
		{ErrAnalyze, StageSummarizing},
		{errors.New("other"), StageError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StageOf(tt.err))
	}
}

func TestStageErrorWrapsOnce(t *testing.T) {
	inner := fmt.Errorf("%w: yt-dlp failed", ErrFetch)
	err := stageError(ErrFetch, "downloading audio", inner)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, "downloading audio: fetch failed: yt-dlp failed", err.Error())

	err = stageError(ErrWrite, "writing reports", errors.New("disk full"))
	assert.ErrorIs(t, err, ErrWrite)
	assert.Equal(t, "writing reports: writing report failed: disk full", err.Error())
}

func TestSuggestCorrection(t *testing.T) {
	p := ParseArg("transcrib")
	require.Error(t, p.Error)
	assert.Equal(t, ContentTypeCommand, p.ContentType)
	assert.Contains(t, p.SuggestCorrection([]string{"transcribe", "version"}), "transcribe")
}
