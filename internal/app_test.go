package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVideoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type stageRecorder struct {
	mu     sync.Mutex
	events []StageEvent
}

func (r *stageRecorder) record(ev StageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *stageRecorder) stages() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Stage
	for _, ev := range r.events {
		if len(out) == 0 || out[len(out)-1] != ev.Stage {
			out = append(out, ev.Stage)
		}
	}
	return out
}

func newTestApp(t *testing.T, config *Config, dl *fakeDownloader, runner *fakeRunner, model *fakeModel) *App {
	t.Helper()
	app := NewApp(config,
		WithYouTube(dl),
		WithAudio(NewAudio(runner, false)),
		WithAI(NewAI(model, NewPromptManager(""), AIOptions{})),
		WithUI(NewUIManager(false, true)),
	)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestAnalyze_SmallAudioCompletes(t *testing.T) {
	config := testConfig(t)
	dl := &fakeDownloader{metadata: &VideoMetadata{Title: "Go Concurrency", Channel: "Gophers", Duration: 600}, size: 12_000_000}
	runner := &fakeRunner{outputSize: 9_600_000}
	model := newFakeModel()
	app := newTestApp(t, config, dl, runner, model)

	rec := &stageRecorder{}
	opts := app.RunOptionsFromConfig(testVideoURL)
	opts.OnStage = rec.record

	result, err := app.Analyze(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageFetching, StageConverting, StageTranscribing, StageSummarizing, StageDone}, rec.stages())

	last := -1
	for _, ev := range rec.events {
		assert.GreaterOrEqual(t, ev.Progress, last, "progress must not go backwards")
		last = ev.Progress
	}
	assert.Equal(t, 100, last)

	assert.Equal(t, "dQw4w9WgXcQ", result.VideoID)
	assert.Equal(t, FormatMP3, result.Audio.Format)
	assert.Equal(t, int64(9_600_000), result.Audio.Size)
	assert.Equal(t, TargetSampleRate, result.Audio.SampleRate)
	assert.Equal(t, TargetChannels, result.Audio.Channels)
	assert.Equal(t, strings.TrimSpace(model.transcript), result.Transcript.Text)
	assert.NotEmpty(t, result.Summary.Text)
	assert.NotEmpty(t, result.Analysis.Text)

	require.NotNil(t, result.Reports)
	for _, path := range []string{result.Reports.Transcript, result.Reports.Summary, result.Reports.Report, result.Reports.JSON} {
		assert.FileExists(t, path)
	}

	// temporary audio is gone
	assert.NoDirExists(t, filepath.Join(config.TempDir, result.RunID))
}

func TestAnalyze_OversizedAudioIsRejectedBeforeUpload(t *testing.T) {
	config := testConfig(t)
	config.AudioFormat = FormatWAV
	dl := &fakeDownloader{metadata: &VideoMetadata{Title: "Long Lecture"}, size: 30_000_000}
	runner := &fakeRunner{outputSize: 25_000_000}
	model := newFakeModel()
	app := newTestApp(t, config, dl, runner, model)

	rec := &stageRecorder{}
	opts := app.RunOptionsFromConfig(testVideoURL)
	opts.OnStage = rec.record

	_, err := app.Analyze(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)

	var sizeErr *SizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, int64(25_000_000), sizeErr.Size)
	assert.Equal(t, MaxUploadBytes, sizeErr.Limit)
	assert.Contains(t, err.Error(), "25.00 MB")
	assert.Contains(t, err.Error(), "split")

	assert.Zero(t, model.remoteCalls(), "nothing may be sent to the model")
	assert.Empty(t, listFiles(t, config.OutputDir))
	assert.Equal(t, StageError, rec.stages()[len(rec.stages())-1])
	assert.Empty(t, listFiles(t, config.TempDir))
}

func TestAnalyze_InvalidURLWritesNothing(t *testing.T) {
	config := testConfig(t)
	dl := &fakeDownloader{metadata: &VideoMetadata{Title: "x"}, size: 1000}
	runner := &fakeRunner{outputSize: 1000}
	model := newFakeModel()
	app := newTestApp(t, config, dl, runner, model)

	rec := &stageRecorder{}
	opts := app.RunOptionsFromConfig("https://example.com/watch?v=dQw4w9WgXcQ")
	opts.OnStage = rec.record

	_, err := app.Analyze(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)

	assert.Zero(t, dl.callCount())
	assert.Zero(t, runner.callCount())
	assert.Zero(t, model.remoteCalls())
	assert.Empty(t, listFiles(t, config.OutputDir))
	assert.Equal(t, []Stage{StageError}, rec.stages())
}

func TestAnalyze_FetchFailureStopsPipeline(t *testing.T) {
	config := testConfig(t)
	dl := &fakeDownloader{err: errors.New("video unavailable")}
	runner := &fakeRunner{}
	model := newFakeModel()
	app := newTestApp(t, config, dl, runner, model)

	_, err := app.Analyze(context.Background(), app.RunOptionsFromConfig(testVideoURL))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, StageFetching, StageOf(err))
	assert.Zero(t, runner.callCount())
	assert.Zero(t, model.remoteCalls())
}

func TestAnalyze_ConversionFailure(t *testing.T) {
	config := testConfig(t)
	dl := &fakeDownloader{metadata: &VideoMetadata{Title: "x"}, size: 1000}
	runner := &fakeRunner{err: errors.New("exit status 1")}
	model := newFakeModel()
	app := newTestApp(t, config, dl, runner, model)

	_, err := app.Analyze(context.Background(), app.RunOptionsFromConfig(testVideoURL))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConvert)
	assert.Zero(t, model.remoteCalls())
}

func TestAnalyze_TranscriptionFailure(t *testing.T) {
	config := testConfig(t)
	dl := &fakeDownloader{metadata: &VideoMetadata{Title: "x"}, size: 1000}
	runner := &fakeRunner{outputSize: 500}
	model := newFakeModel()
	model.err = errors.New("quota exceeded")
	app := newTestApp(t, config, dl, runner, model)

	_, err := app.Analyze(context.Background(), app.RunOptionsFromConfig(testVideoURL))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscribe)
	assert.Equal(t, StageTranscribing, StageOf(err))
	assert.Empty(t, listFiles(t, config.OutputDir))
}

func TestAnalyze_RejectsConcurrentRun(t *testing.T) {
	config := testConfig(t)
	dl := &fakeDownloader{metadata: &VideoMetadata{Title: "x"}, size: 1000, block: make(chan struct{})}
	runner := &fakeRunner{outputSize: 500}
	app := newTestApp(t, config, dl, runner, newFakeModel())

	started := make(chan struct{})
	done := make(chan error, 1)
	opts := app.RunOptionsFromConfig(testVideoURL)
	opts.OnStage = func(ev StageEvent) {
		if ev.Stage == StageFetching {
			select {
			case <-started:
			default:
				close(started)
			}
		}
	}
	go func() {
		_, err := app.Analyze(context.Background(), opts)
		done <- err
	}()

	<-started
	assert.True(t, app.Busy())
	_, err := app.Analyze(context.Background(), app.RunOptionsFromConfig(testVideoURL))
	assert.ErrorIs(t, err, ErrBusy)

	close(dl.block)
	require.NoError(t, <-done)
	assert.False(t, app.Busy())
}

func TestTranscribe_SkipsSummaryAndReports(t *testing.T) {
	config := testConfig(t)
	dl := &fakeDownloader{metadata: &VideoMetadata{Title: "x"}, size: 1000}
	runner := &fakeRunner{outputSize: 500}
	model := newFakeModel()
	app := newTestApp(t, config, dl, runner, model)

	result, err := app.Transcribe(context.Background(), app.RunOptionsFromConfig(testVideoURL))
	require.NoError(t, err)
	assert.NotEmpty(t, result.Transcript.Text)
	assert.Nil(t, result.Summary)
	assert.Equal(t, 1, model.remoteCalls())
	assert.Empty(t, listFiles(t, config.OutputDir))
}

func TestAnalyze_RecordsRunsInLedger(t *testing.T) {
	config := testConfig(t)
	config.LedgerEnabled = true
	dl := &fakeDownloader{metadata: &VideoMetadata{Title: "Ledger Test"}, size: 1000}
	runner := &fakeRunner{outputSize: 500}
	app := newTestApp(t, config, dl, runner, newFakeModel())

	_, err := app.Analyze(context.Background(), app.RunOptionsFromConfig(testVideoURL))
	require.NoError(t, err)

	runner.err = errors.New("exit status 1")
	_, err = app.Analyze(context.Background(), app.RunOptionsFromConfig(testVideoURL))
	require.Error(t, err)

	runs, err := app.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byStage := map[Stage]Run{}
	for _, r := range runs {
		byStage[r.Stage] = r
	}
	assert.Equal(t, "Ledger Test", byStage[StageDone].Title)
	assert.NotEmpty(t, byStage[StageDone].Report)
	assert.Contains(t, byStage[StageError].Error, "conversion failed")
}

func TestHistory_DisabledLedger(t *testing.T) {
	config := testConfig(t)
	app := newTestApp(t, config, &fakeDownloader{}, &fakeRunner{}, newFakeModel())

	_, err := app.History(context.Background(), 10)
	assert.Error(t, err)
}

func TestHistory_InjectedLedger(t *testing.T) {
	config := testConfig(t)
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)

	dl := &fakeDownloader{metadata: &VideoMetadata{Title: "Injected"}, size: 1000}
	app := NewApp(config,
		WithYouTube(dl),
		WithAudio(NewAudio(&fakeRunner{outputSize: 500}, false)),
		WithAI(NewAI(newFakeModel(), NewPromptManager(""), AIOptions{})),
		WithUI(NewUIManager(false, true)),
		WithLedger(ledger),
	)
	defer app.Close()

	result, err := app.Transcribe(context.Background(), app.RunOptionsFromConfig(testVideoURL))
	require.NoError(t, err)

	runs, err := app.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].ID)
	assert.Equal(t, StageDone, runs[0].Stage)
	assert.Empty(t, runs[0].Report)
}
