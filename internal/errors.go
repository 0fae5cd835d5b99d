package internal

import (
	"errors"
	"fmt"
)

// Stage failures. Every pipeline error wraps exactly one of these.
var (
	ErrFetch      = errors.New("fetch failed")
	ErrConvert    = errors.New("conversion failed")
	ErrTooLarge   = errors.New("audio too large")
	ErrTranscribe = errors.New("transcription failed")
	ErrSummarize  = errors.New("summarization failed")
	ErrAnalyze    = errors.New("analysis failed")
	ErrWrite      = errors.New("writing report failed")
)

// ErrBusy is returned when a run is already in progress.
var ErrBusy = errors.New("a run is already in progress")

// SizeError reports an audio file rejected by the size guard.
type SizeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("audio file is %s, above the %s upload limit; split the audio into smaller parts (see `yta split`) and process them separately",
		FormatBytes(e.Size), FormatBytes(e.Limit))
}

// Unwrap lets errors.Is match ErrTooLarge.
func (e *SizeError) Unwrap() error {
	return ErrTooLarge
}

// stageError wraps err with a stage sentinel unless it already carries one.
func stageError(sentinel error, action string, err error) error {
	if errors.Is(err, sentinel) {
		return fmt.Errorf("%s: %w", action, err)
	}
	return fmt.Errorf("%s: %w: %w", action, sentinel, err)
}

// StageOf maps an error to the stage that produced it.
func StageOf(err error) Stage {
	switch {
	case err == nil:
		return StageDone
	case errors.Is(err, ErrFetch):
		return StageFetching
	case errors.Is(err, ErrConvert), errors.Is(err, ErrTooLarge):
		return StageConverting
	case errors.Is(err, ErrTranscribe):
		return StageTranscribing
	case errors.Is(err, ErrSummarize), errors.Is(err, ErrAnalyze), errors.Is(err, ErrWrite):
		return StageSummarizing
	}
	return StageError
}
