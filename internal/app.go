package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Downloader resolves video metadata and audio streams
type Downloader interface {
	Metadata(ctx context.Context, youtubeURL string) (*VideoMetadata, error)
	Audio(ctx context.Context, youtubeURL, dir, name string, bar ProgressBar) (*AudioAsset, error)
}

// App holds the application state and dependencies
type App struct {
	youtube Downloader
	audio   *Audio
	ai      *AI
	reports *ReportWriter
	config  *Config
	ui      UIManager
	logger  *zap.Logger

	ledgerOnce sync.Once
	ledger     *Ledger

	running atomic.Bool
	newID   func() string
}

// NewApp initializes the application
func NewApp(config *Config, options ...AppOption) *App {
	cmdRunner := &DefaultCommandRunner{}

	aiOpts := AIOptions{
		SummaryTimeout:    config.SummaryTimeout,
		TranscribeTimeout: config.TranscribeTimeout,
		RequestsPerMinute: config.RequestsPerMinute,
		MaxRetries:        config.MaxRetries,
		Verbose:           config.Verbose,
	}

	app := &App{
		youtube: NewYouTube(config.CookiesFile, config.Verbose),
		audio:   NewAudio(cmdRunner, config.Verbose),
		ai:      NewAIWithFactory(NewClientFactory(config), NewPromptManager(config.Prompt), aiOpts),
		reports: NewReportWriter(config.OutputDir),
		config:  config,
		ui:      NewUIManager(config.Verbose, config.Quiet),
		logger:  zap.NewNop(),
		newID:   uuid.NewString,
	}

	// Apply any custom options
	for _, option := range options {
		option(app)
	}

	return app
}

// AppOption customizes App creation
type AppOption func(*App)

// WithYouTube sets a custom downloader
func WithYouTube(youtube Downloader) AppOption {
	return func(a *App) {
		a.youtube = youtube
	}
}

// WithAudio sets a custom audio processor
func WithAudio(audio *Audio) AppOption {
	return func(a *App) {
		a.audio = audio
	}
}

// WithAI sets a custom AI processor
func WithAI(ai *AI) AppOption {
	return func(a *App) {
		a.ai = ai
	}
}

// WithUI sets a custom UI manager
func WithUI(ui UIManager) AppOption {
	return func(a *App) {
		a.ui = ui
	}
}

// WithLogger sets the structured logger used for stage transitions
func WithLogger(logger *zap.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

// WithLedger sets the run ledger
func WithLedger(ledger *Ledger) AppOption {
	return func(a *App) {
		a.ledgerOnce.Do(func() {})
		a.ledger = ledger
	}
}

// SetPromptManager replaces the prompt manager, e.g. for a --prompt flag
func (app *App) SetPromptManager(pm *PromptManager) {
	app.ai.prompts = pm
}

// Config returns the application configuration
func (app *App) Config() *Config {
	return app.config
}

// Busy reports whether a run is in progress
func (app *App) Busy() bool {
	return app.running.Load()
}

// RunOptions selects what a pipeline run does
type RunOptions struct {
	URL            string
	Style          SummaryStyle
	Language       Language
	SourceLanguage Language
	Format         AudioFormat
	ShowProgress   bool
	OnStage        StageFunc
	// RunID is generated when empty
	RunID string
}

// RunOptionsFromConfig returns options filled with the configured defaults
func (app *App) RunOptionsFromConfig(url string) RunOptions {
	return RunOptions{
		URL:            url,
		Style:          app.config.SummaryStyle,
		Language:       app.config.Language,
		SourceLanguage: app.config.SourceLanguage,
		Format:         app.config.AudioFormat,
	}
}

// Analyze runs the whole pipeline: fetch, convert, size check, transcribe,
// summarize, analyze and write reports. Temporary audio is always removed.
func (app *App) Analyze(ctx context.Context, opts RunOptions) (*Result, error) {
	return app.run(ctx, opts, true)
}

// Transcribe runs the pipeline up to and including transcription
func (app *App) Transcribe(ctx context.Context, opts RunOptions) (*Result, error) {
	return app.run(ctx, opts, false)
}

// run is a single linear pass; a failing stage aborts the run
func (app *App) run(ctx context.Context, opts RunOptions, full bool) (result *Result, err error) {
	if !app.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer app.running.Store(false)

	runID := opts.RunID
	if runID == "" {
		runID = app.newID()
	}
	tr := &tracker{app: app, runID: runID, onStage: opts.OnStage}

	parsed := ParseArg(opts.URL)
	if !parsed.IsValid() {
		tr.fail(parsed.Error)
		return nil, parsed.Error
	}
	if opts.Format == "" {
		opts.Format = FormatMP3
	}
	if opts.Style == "" {
		opts.Style = StyleStructured
	}

	result = &Result{
		RunID:     runID,
		URL:       parsed.NormalizedURL,
		VideoID:   parsed.ID,
		StartedAt: time.Now(),
	}

	ledger := app.openLedger()
	if ledger != nil {
		if lerr := ledger.Start(ctx, runID, result.URL, result.StartedAt); lerr != nil {
			app.ui.Verbose("Warning: %v\n", lerr)
		}
		defer func() {
			title, report := "", ""
			if result != nil && result.Metadata != nil {
				title = result.Metadata.Title
			}
			if result != nil && result.Reports != nil {
				report = result.Reports.Report
			}
			if lerr := ledger.Finish(context.WithoutCancel(ctx), runID, title, err, report, time.Now()); lerr != nil {
				app.ui.Verbose("Warning: %v\n", lerr)
			}
		}()
	}

	runDir := filepath.Join(app.config.TempDir, runID)
	defer func() {
		if rerr := os.RemoveAll(runDir); rerr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to remove temporary files in %s: %v\n", runDir, rerr)
		}
	}()

	var spinner ProgressBar
	defer func() {
		if spinner != nil {
			spinner.Finish()
		}
	}()

	// Stage 1: fetch
	tr.stage(StageFetching, StageFetching.Progress(), "")
	if result.Metadata, err = app.youtube.Metadata(ctx, result.URL); err != nil {
		return tr.abort(result, stageError(ErrFetch, "fetching metadata", err))
	}
	tr.stage(StageFetching, StageFetching.Progress(), result.Metadata.Title)

	var bar ProgressBar
	if opts.ShowProgress {
		bar = app.ui.NewProgressBar(100, "Downloading audio")
	}
	raw, err := app.youtube.Audio(ctx, result.URL, runDir, parsed.ID, bar)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return tr.abort(result, stageError(ErrFetch, "downloading audio", err))
	}
	app.ui.Verbose("Downloaded %s (%s)\n", raw.Path, FormatBytes(raw.Size))

	if opts.ShowProgress {
		spinner = app.ui.NewSpinner(StageConverting.Label())
	}
	tr.spinner = spinner

	// Stage 2: convert and guard
	tr.stage(StageConverting, StageConverting.Progress(), "")
	if result.Audio, err = app.audio.Convert(ctx, raw, opts.Format, app.config.PassthroughOptimized); err != nil {
		return tr.abort(result, stageError(ErrConvert, "converting audio", err))
	}
	if err = CheckSize(result.Audio, MaxUploadBytes); err != nil {
		return tr.abort(result, err)
	}

	// Stage 3: transcribe
	tr.stage(StageTranscribing, StageTranscribing.Progress(), "")
	if result.Transcript, err = app.ai.Transcribe(ctx, result.Audio, opts.Language, opts.SourceLanguage); err != nil {
		return tr.abort(result, stageError(ErrTranscribe, "transcribing audio", err))
	}

	if full {
		// Stage 4: summarize and analyze
		tr.stage(StageSummarizing, StageSummarizing.Progress(), "")
		result.Summary, err = app.ai.Summarize(ctx, result.Transcript.Text, opts.Style, opts.Language, result.Metadata)
		if err != nil {
			return tr.abort(result, stageError(ErrSummarize, "generating summary", err))
		}

		tr.stage(StageSummarizing, 80, "Analyzing content...")
		if result.Analysis, err = app.ai.Analyze(ctx, result.Transcript.Text, opts.Language); err != nil {
			return tr.abort(result, stageError(ErrAnalyze, "analyzing content", err))
		}

		result.FinishedAt = time.Now()
		result.ProcessTime = result.FinishedAt.Sub(result.StartedAt)
		if _, err = app.reports.Write(result); err != nil {
			return tr.abort(result, stageError(ErrWrite, "writing reports", err))
		}
	} else {
		result.FinishedAt = time.Now()
		result.ProcessTime = result.FinishedAt.Sub(result.StartedAt)
	}

	tr.stage(StageDone, StageDone.Progress(), "")
	return result, nil
}

// tracker fans stage transitions out to the callback, spinner and logger
type tracker struct {
	app     *App
	runID   string
	onStage StageFunc
	spinner ProgressBar
}

func (t *tracker) stage(stage Stage, progress int, message string) {
	ev := StageEvent{
		RunID:    t.runID,
		Stage:    stage,
		Progress: progress,
		Message:  message,
		Time:     time.Now(),
	}

	t.app.logger.Info("stage",
		zap.String("run_id", t.runID),
		zap.String("stage", string(stage)),
		zap.Int("progress", progress),
		zap.String("message", message))

	if t.spinner != nil {
		label := stage.Label()
		if message != "" {
			label = message
		}
		t.spinner.Describe(label)
		t.spinner.Advance()
	}
	if t.onStage != nil {
		t.onStage(ev)
	}
}

func (t *tracker) fail(err error) {
	t.app.logger.Warn("run failed", zap.String("run_id", t.runID), zap.Error(err))
	if t.onStage != nil {
		t.onStage(StageEvent{
			RunID:   t.runID,
			Stage:   StageError,
			Message: err.Error(),
			Time:    time.Now(),
		})
	}
}

// abort records the failure and returns the partial result for the ledger
func (t *tracker) abort(result *Result, err error) (*Result, error) {
	t.fail(err)
	result.FinishedAt = time.Now()
	return result, err
}

// openLedger lazily opens the run ledger; failures disable it
func (app *App) openLedger() *Ledger {
	app.ledgerOnce.Do(func() {
		if !app.config.LedgerEnabled || app.config.LedgerPath == "" {
			return
		}
		ledger, err := OpenLedger(app.config.LedgerPath)
		if err != nil {
			app.ui.Verbose("Warning: run ledger disabled: %v\n", err)
			return
		}
		app.ledger = ledger
	})
	return app.ledger
}

// History returns recent runs from the ledger
func (app *App) History(ctx context.Context, limit int) ([]Run, error) {
	ledger := app.openLedger()
	if ledger == nil {
		return nil, fmt.Errorf("run ledger is disabled")
	}
	return ledger.List(ctx, limit)
}

// LookupRun returns a recorded run from the ledger
func (app *App) LookupRun(ctx context.Context, id string) (*Run, error) {
	ledger := app.openLedger()
	if ledger == nil {
		return nil, fmt.Errorf("run ledger is disabled")
	}
	return ledger.Get(ctx, id)
}

// Metadata fetches video metadata with an optional status spinner
func (app *App) Metadata(ctx context.Context, youtubeURL string, showStatus bool) (*VideoMetadata, error) {
	parsed := ParseArg(youtubeURL)
	if !parsed.IsValid() {
		return nil, parsed.Error
	}

	var spinner ProgressBar
	if showStatus {
		spinner = app.ui.NewSpinner("Fetching video metadata...")
		defer spinner.Finish()
	}

	return app.youtube.Metadata(ctx, parsed.NormalizedURL)
}

// ConvertFile converts a local audio file next to itself and reports
// whether the result fits the upload limit
func (app *App) ConvertFile(ctx context.Context, path string, format AudioFormat) (*AudioAsset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConvert, err)
	}

	spinner := app.ui.NewSpinner("Converting audio...")
	defer spinner.Finish()

	asset := &AudioAsset{Path: path, Size: info.Size(), Format: FormatFromPath(path)}
	converted, err := app.audio.Convert(ctx, asset, format, false)
	if err != nil {
		return nil, err
	}
	return converted, CheckSize(converted, MaxUploadBytes)
}

// SplitFile splits a local audio file into parts that each fit the upload
// limit. parts of zero picks the smallest sufficient count.
func (app *App) SplitFile(ctx context.Context, path, outDir string, parts int) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if parts <= 0 {
		parts = PartsFor(info.Size(), MaxUploadBytes)
	}
	if outDir == "" {
		outDir = filepath.Dir(path)
	}

	spinner := app.ui.NewSpinner(fmt.Sprintf("Splitting into %d parts...", parts))
	defer spinner.Finish()

	return app.audio.Split(ctx, path, outDir, parts)
}

// ProbeFile returns ffprobe details for a local audio file
func (app *App) ProbeFile(ctx context.Context, path string) (*AudioInfo, error) {
	return app.audio.Probe(ctx, path)
}

// Close releases the model client and the ledger
func (app *App) Close() error {
	var errs []error
	if err := app.ai.Close(); err != nil {
		errs = append(errs, err)
	}
	if app.ledger != nil {
		if err := app.ledger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
