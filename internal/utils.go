package internal

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseArg normalizes a YouTube video ID or URL.
// Accepted URL forms: youtube.com/watch?v=, youtu.be/, youtube.com/embed/,
// youtube.com/v/ and youtube.com/shorts/.
func ParseArg(arg string) *ParsedArg {
	arg = strings.TrimSpace(arg)
	p := &ParsedArg{OriginalInput: arg}

	if IsValidYouTubeID(arg) {
		p.ContentType = ContentTypeVideo
		p.ID = arg
		p.NormalizedURL = "https://www.youtube.com/watch?v=" + arg
		return p
	}

	if !strings.Contains(arg, "://") && !strings.Contains(arg, ".") {
		if IsLikelyCommand(arg) {
			p.ContentType = ContentTypeCommand
		}
		p.Error = fmt.Errorf("%w: %q is not a YouTube URL or video ID", ErrFetch, arg)
		return p
	}

	id, short, err := getVideoID(arg)
	if err != nil {
		p.Error = fmt.Errorf("%w: %w", ErrFetch, err)
		return p
	}

	p.ID = id
	p.ContentType = ContentTypeVideo
	if short {
		p.ContentType = ContentTypeShort
	}
	p.NormalizedURL = "https://www.youtube.com/watch?v=" + id
	return p
}

var youtubeHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
	"youtu.be":        true,
}

// getVideoID extracts the video ID and whether the URL points at a short
func getVideoID(youtubeURL string) (string, bool, error) {
	youtubeURL = strings.TrimSpace(youtubeURL)
	if !strings.Contains(youtubeURL, "://") {
		youtubeURL = "https://" + youtubeURL
	}
	u, err := url.Parse(youtubeURL)
	if err != nil {
		return "", false, fmt.Errorf("parsing URL: %w", err)
	}

	host := strings.ToLower(u.Host)
	if !youtubeHosts[host] {
		return "", false, fmt.Errorf("not a YouTube URL: %s", youtubeURL)
	}

	var id string
	short := false
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case host == "youtu.be":
		id = parts[0]
	case u.Path == "/watch":
		id = u.Query().Get("v")
	case len(parts) == 2 && (parts[0] == "embed" || parts[0] == "v" || parts[0] == "shorts"):
		id = parts[1]
		short = parts[0] == "shorts"
	}

	if !IsValidYouTubeID(id) {
		return "", false, fmt.Errorf("could not extract video ID from URL: %s", youtubeURL)
	}
	return id, short, nil
}

// IsValidYouTubeID checks if a string looks like a valid YouTube video ID
func IsValidYouTubeID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// IsLikelyCommand checks if a string looks like it might be a mistyped command
func IsLikelyCommand(arg string) bool {
	return len(arg) > 0 && len(arg) <= 10 && !IsValidYouTubeID(arg)
}

// CleanupTempDir purges files from a temporary directory
func CleanupTempDir(tempDir string) error {
	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		return nil
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return fmt.Errorf("reading temp directory: %w", err)
	}

	for _, entry := range entries {
		filePath := filepath.Join(tempDir, entry.Name())
		if err := os.RemoveAll(filePath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to remove temporary file %s: %v\n", filePath, err)
		}
	}

	if err := os.Remove(tempDir); err != nil {
		fmt.Fprintf(os.Stderr, "Note: could not remove temp directory %s: %v\n", tempDir, err)
	}

	return nil
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// getTerminalWidth gets terminal width with fallback
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}

	if width > 10 {
		return width - 4
	}

	return width
}

// RenderMarkdown renders markdown content with glamour.
// Output that isn't a terminal gets the markdown unchanged.
func RenderMarkdown(content string) (string, error) {
	if !IsTerminal(os.Stdout) {
		return content, nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(getTerminalWidth()),
		glamour.WithColorProfile(termenv.EnvColorProfile()),
	)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}

	renderedContent, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	return renderedContent, nil
}

// ReadAPIKey prompts for an API key without echoing it
func ReadAPIKey(w io.Writer, envName string) (string, error) {
	if !IsTerminal(os.Stdin) {
		return "", fmt.Errorf("no API key available and stdin is not a terminal")
	}

	fmt.Fprintf(w, "%s is not set. Enter API key: ", envName)
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	return strings.TrimSpace(string(key)), nil
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// EnsureDirs creates directories if needed
func EnsureDirs(dir ...string) error {
	for _, dir := range dir {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// cleanupFiles removes temporary files
func cleanupFiles(files ...string) {
	for _, file := range files {
		if file == "" {
			continue
		}
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to remove file %s: %v\n", file, err)
		}
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// SanitizeFilename makes a title safe to use as a file name
func SanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = whitespaceRun.ReplaceAllString(name, " ")
	name = strings.Trim(name, " .")

	if utf8.RuneCountInString(name) > 100 {
		name = strings.TrimSpace(string([]rune(name)[:100]))
	}
	if name == "" {
		return "video"
	}
	return name
}

// FormatDuration renders seconds as HH:MM:SS, or MM:SS under an hour
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "N/A"
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatBytes renders a byte count in MB with two decimals
func FormatBytes(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/1_000_000)
}

// FormatCount adds thousands separators to n
func FormatCount(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + FormatCount(-n)
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ShortDescription trims a description for display
func ShortDescription(desc string) string {
	if utf8.RuneCountInString(desc) <= 200 {
		return desc
	}
	return string([]rune(desc)[:200]) + "..."
}
