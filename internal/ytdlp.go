package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// VideoMetadata contains YouTube video information
type VideoMetadata struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Channel     string         `json:"channel"`
	Uploader    string         `json:"uploader"`
	Duration    float64        `json:"duration"`
	ViewCount   int64          `json:"view_count"`
	UploadDate  string         `json:"upload_date"`
	WebpageURL  string         `json:"webpage_url"`
	Categories  []string       `json:"categories"`
	Tags        []string       `json:"tags"`
	Chapters    []VideoChapter `json:"chapters"`
}

// VideoChapter represents a video chapter marker
type VideoChapter struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Title     string  `json:"title"`
}

// ChannelName returns the channel, falling back to the uploader
func (m *VideoMetadata) ChannelName() string {
	if m.Channel != "" {
		return m.Channel
	}
	if m.Uploader != "" {
		return m.Uploader
	}
	return "Unknown"
}

// YouTube fetches metadata and audio with yt-dlp
type YouTube struct {
	cookiesFile string
	verbose     bool

	installOnce sync.Once
	installErr  error
}

// NewYouTube creates a new YouTube downloader
func NewYouTube(cookiesFile string, verbose bool) *YouTube {
	return &YouTube{
		cookiesFile: cookiesFile,
		verbose:     verbose,
	}
}

// ensureInstalled downloads yt-dlp on first use when it isn't on PATH
func (yt *YouTube) ensureInstalled(ctx context.Context) error {
	yt.installOnce.Do(func() {
		if _, err := ytdlp.Install(ctx, nil); err != nil {
			yt.installErr = fmt.Errorf("installing yt-dlp: %w", err)
		}
	})
	return yt.installErr
}

func (yt *YouTube) command() *ytdlp.Command {
	dl := ytdlp.New().NoPlaylist()
	if yt.cookiesFile != "" {
		dl = dl.Cookies(yt.cookiesFile)
	}
	return dl
}

// Metadata fetches video details using go-ytdlp
func (yt *YouTube) Metadata(ctx context.Context, youtubeURL string) (*VideoMetadata, error) {
	if err := yt.ensureInstalled(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	if yt.verbose {
		fmt.Fprintln(os.Stderr, "Extracting video metadata...")
	}

	result, err := yt.command().
		DumpSingleJSON().
		SkipDownload().
		Run(ctx, youtubeURL)
	if err != nil {
		if yt.verbose && result != nil {
			fmt.Fprintf(os.Stderr, "Stderr: %s\n", result.Stderr)
		}
		return nil, fmt.Errorf("%w: extracting video metadata: %w", ErrFetch, err)
	}

	var metadata VideoMetadata
	if err := json.Unmarshal([]byte(result.Stdout), &metadata); err != nil {
		return nil, fmt.Errorf("%w: parsing video metadata: %w", ErrFetch, err)
	}

	if yt.verbose {
		fmt.Fprintf(os.Stderr, "Title: %s\n", metadata.Title)
		fmt.Fprintf(os.Stderr, "Channel: %s\n", metadata.ChannelName())
		fmt.Fprintf(os.Stderr, "Duration: %s\n", FormatDuration(metadata.Duration))
	}

	return &metadata, nil
}

// Audio downloads the best audio stream into dir as name.<ext>. The
// stream is kept in its source container; conversion happens later.
func (yt *YouTube) Audio(ctx context.Context, youtubeURL, dir, name string, bar ProgressBar) (*AudioAsset, error) {
	if err := yt.ensureInstalled(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if err := EnsureDirs(dir); err != nil {
		return nil, fmt.Errorf("%w: creating temp directory: %w", ErrFetch, err)
	}

	dl := yt.command().
		Format("bestaudio/best").
		Output(filepath.Join(dir, name+".%(ext)s"))

	if bar != nil {
		dl = dl.ProgressFunc(500*time.Millisecond, func(update ytdlp.ProgressUpdate) {
			bar.Set(int(update.Percent()))
		})
	}

	result, err := dl.Run(ctx, youtubeURL)
	if err != nil {
		if yt.verbose && result != nil {
			fmt.Fprintf(os.Stderr, "Stderr: %s\n", result.Stderr)
		}
		return nil, fmt.Errorf("%w: yt-dlp failed: %w", ErrFetch, err)
	}
	if bar != nil {
		bar.Set(100)
	}

	return findDownloaded(dir, name)
}

// findDownloaded locates the file yt-dlp wrote for name
func findDownloaded(dir, name string) (*AudioAsset, error) {
	matches, err := filepath.Glob(filepath.Join(dir, name+".*"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	for _, path := range matches {
		if ext := filepath.Ext(path); ext == ".part" || ext == ".ytdl" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return &AudioAsset{
			Path:   path,
			Size:   info.Size(),
			Format: FormatFromPath(path),
		}, nil
	}

	return nil, fmt.Errorf("%w: no audio file found after download in %s", ErrFetch, dir)
}
