package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// sparseFile creates a file of the given size without writing its content
func sparseFile(t *testing.T, path string, size int64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
}

// fakeRunner stands in for ffmpeg/ffprobe. ffmpeg calls create their last
// argument with outputSize bytes.
type fakeRunner struct {
	mu         sync.Mutex
	calls      [][]string
	outputSize int64
	output     []byte
	err        error
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()

	if r.err != nil {
		return []byte("boom"), r.err
	}
	if name == FFmpegCommand && len(args) > 0 {
		out := args[len(args)-1]
		f, err := os.Create(out)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := f.Truncate(r.outputSize); err != nil {
			return nil, err
		}
	}
	return r.output, nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// fakeDownloader writes a source file of size bytes instead of calling yt-dlp
type fakeDownloader struct {
	metadata *VideoMetadata
	size     int64
	ext      string
	err      error

	mu    sync.Mutex
	calls int
	// block, when set, is waited on before the download returns
	block chan struct{}
}

func (d *fakeDownloader) Metadata(ctx context.Context, youtubeURL string) (*VideoMetadata, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.metadata, nil
}

func (d *fakeDownloader) Audio(ctx context.Context, youtubeURL, dir, name string, bar ProgressBar) (*AudioAsset, error) {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := EnsureDirs(dir); err != nil {
		return nil, err
	}
	ext := d.ext
	if ext == "" {
		ext = "webm"
	}
	path := filepath.Join(dir, name+"."+ext)
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := f.Truncate(d.size); err != nil {
		return nil, err
	}
	if bar != nil {
		bar.Set(100)
	}
	return &AudioAsset{Path: path, Size: d.size, Format: FormatFromPath(path)}, nil
}

func (d *fakeDownloader) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// fakeModel is a ModelClient that records its prompts
type fakeModel struct {
	mu          sync.Mutex
	transcript  string
	summary     string
	analysis    string
	transcribes int
	prompts     []string
	err         error
}

func (m *fakeModel) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcribes++
	m.prompts = append(m.prompts, req.Prompt)
	if m.err != nil {
		return "", m.err
	}
	if _, err := os.Stat(req.Audio.Path); err != nil {
		return "", errors.New("audio file missing at upload time")
	}
	return m.transcript, nil
}

func (m *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if strings.HasPrefix(prompt, "Analyze the content") {
		return m.analysis, nil
	}
	return m.summary, nil
}

func (m *fakeModel) Model() string { return "fake-model" }

func (m *fakeModel) Close() error { return nil }

func (m *fakeModel) remoteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		transcript: strings.Repeat("This is a long enough transcript about Go concurrency. ", 5),
		summary:    "## Executive Summary\nGo makes concurrency approachable.",
		analysis:   "## Category\nTechnology",
	}
}

// testConfig returns a config rooted in a temp directory
func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		Provider:     ProviderGemini,
		Model:        "fake-model",
		GoogleAPIKey: "test-key",
		OutputDir:    filepath.Join(dir, "reports"),
		SummaryStyle: StyleStructured,
		AudioFormat:  FormatMP3,
		ConfigDir:    filepath.Join(dir, "config"),
		DataDir:      filepath.Join(dir, "data"),
		CacheDir:     filepath.Join(dir, "cache"),
		TempDir:      filepath.Join(dir, "cache", "tmp"),
		LedgerPath:   filepath.Join(dir, "data", "runs.db"),
		Quiet:        true,
	}
}
