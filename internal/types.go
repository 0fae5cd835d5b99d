package internal

import (
	"fmt"
	"strings"
	"time"
)

// ContentType represents the type of a command line argument
type ContentType int

const (
	ContentTypeUnknown ContentType = iota
	ContentTypeVideo
	ContentTypeShort
	ContentTypeCommand
)

// String returns a human-readable representation of the content type
func (ct ContentType) String() string {
	switch ct {
	case ContentTypeVideo:
		return "video"
	case ContentTypeShort:
		return "short"
	case ContentTypeCommand:
		return "command"
	default:
		return "unknown"
	}
}

// ParsedArg represents the result of parsing a command line argument
type ParsedArg struct {
	ContentType   ContentType
	OriginalInput string
	NormalizedURL string
	ID            string
	Error         error
}

// IsValid returns true if the parsed argument is valid and has no errors
func (p *ParsedArg) IsValid() bool {
	return p.Error == nil && (p.ContentType == ContentTypeVideo || p.ContentType == ContentTypeShort)
}

// String returns a formatted representation of the parsed argument
func (p *ParsedArg) String() string {
	if p.Error != nil {
		return fmt.Sprintf("ParsedArg{type=%s, input=%q, error=%v}", p.ContentType, p.OriginalInput, p.Error)
	}
	return fmt.Sprintf("ParsedArg{type=%s, id=%s, url=%s}", p.ContentType, p.ID, p.NormalizedURL)
}

// SuggestCorrection provides helpful suggestions for invalid inputs
func (p *ParsedArg) SuggestCorrection(availableCommands []string) string {
	if p.ContentType != ContentTypeCommand {
		return ""
	}

	input := strings.ToLower(p.OriginalInput)
	var suggestions []string
	for _, cmd := range availableCommands {
		if strings.Contains(cmd, input) || strings.Contains(input, cmd) {
			suggestions = append(suggestions, cmd)
		}
	}

	if len(suggestions) > 0 {
		return fmt.Sprintf("did you mean: %s", strings.Join(suggestions, ", "))
	}
	return "use --help to see available commands"
}

// Stage is a pipeline progress state.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageFetching     Stage = "fetching"
	StageConverting   Stage = "converting"
	StageTranscribing Stage = "transcribing"
	StageSummarizing  Stage = "summarizing"
	StageDone         Stage = "done"
	StageError        Stage = "error"
)

// Progress returns the percentage shown for the stage.
func (s Stage) Progress() int {
	switch s {
	case StageFetching:
		return 10
	case StageConverting:
		return 25
	case StageTranscribing:
		return 40
	case StageSummarizing:
		return 60
	case StageDone:
		return 100
	default:
		return 0
	}
}

// Label returns the status line for the stage.
func (s Stage) Label() string {
	switch s {
	case StageFetching:
		return "Downloading audio..."
	case StageConverting:
		return "Converting audio..."
	case StageTranscribing:
		return "Transcribing audio..."
	case StageSummarizing:
		return "Generating summary and analysis..."
	case StageDone:
		return "Done"
	case StageError:
		return "Failed"
	default:
		return "Waiting"
	}
}

// IsActive reports whether a run in this stage is still in progress.
func (s Stage) IsActive() bool {
	switch s {
	case StageFetching, StageConverting, StageTranscribing, StageSummarizing:
		return true
	}
	return false
}

// IsFinished reports whether the stage is terminal.
func (s Stage) IsFinished() bool {
	return s == StageDone || s == StageError
}

// StageEvent is emitted on every pipeline transition.
type StageEvent struct {
	RunID    string    `json:"run_id"`
	Stage    Stage     `json:"stage"`
	Progress int       `json:"progress"`
	Message  string    `json:"message,omitempty"`
	Time     time.Time `json:"time"`
}

// StageFunc receives stage events. It may be nil.
type StageFunc func(StageEvent)

// SummaryStyle selects the summary prompt.
type SummaryStyle string

const (
	StyleStructured SummaryStyle = "structured"
	StyleList       SummaryStyle = "list"
	StyleParagraph  SummaryStyle = "paragraph"
)

// ParseSummaryStyle accepts the style names plus the bullet_points alias.
func ParseSummaryStyle(s string) (SummaryStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "structured":
		return StyleStructured, nil
	case "list", "bullet_points", "bullets":
		return StyleList, nil
	case "paragraph":
		return StyleParagraph, nil
	}
	return "", fmt.Errorf("unsupported summary style: %s (supported: structured, list, paragraph)", s)
}

// Language is an optional language tag. The empty value means automatic.
type Language string

const (
	LangAuto       Language = ""
	LangPortuguese Language = "pt"
	LangEnglish    Language = "en"
	LangSpanish    Language = "es"
	LangFrench     Language = "fr"
)

var languageNames = map[Language]string{
	LangPortuguese: "Portuguese",
	LangEnglish:    "English",
	LangSpanish:    "Spanish",
	LangFrench:     "French",
}

// ParseLanguage accepts pt, en, es, fr or an empty/auto value.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if l == "auto" || l == LangAuto {
		return LangAuto, nil
	}
	if _, ok := languageNames[l]; ok {
		return l, nil
	}
	return "", fmt.Errorf("unsupported language: %s (supported: pt, en, es, fr)", s)
}

// Name returns the English name of the language.
func (l Language) Name() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return "the original language"
}

// Tag returns the language code or "auto".
func (l Language) Tag() string {
	if l == LangAuto {
		return "auto"
	}
	return string(l)
}

// AudioFormat is a conversion target.
type AudioFormat string

const (
	FormatMP3  AudioFormat = "mp3"
	FormatWAV  AudioFormat = "wav"
	FormatFLAC AudioFormat = "flac"
)

// ParseAudioFormat validates a conversion target name.
func ParseAudioFormat(s string) (AudioFormat, error) {
	switch f := AudioFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatMP3, nil
	case FormatMP3, FormatWAV, FormatFLAC:
		return f, nil
	}
	return "", fmt.Errorf("unsupported audio format: %s (supported: mp3, wav, flac)", s)
}

// MIMEType returns the upload content type for the format.
func (f AudioFormat) MIMEType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatFLAC:
		return "audio/flac"
	default:
		return "audio/mpeg"
	}
}

// AudioAsset is an audio file on local disk.
type AudioAsset struct {
	Path       string      `json:"path"`
	Size       int64       `json:"size"`
	Format     AudioFormat `json:"format"`
	SampleRate int         `json:"sample_rate,omitempty"`
	Channels   int         `json:"channels,omitempty"`
	Bitrate    string      `json:"bitrate,omitempty"`
}

// Transcript is the text produced from the audio.
type Transcript struct {
	Text           string   `json:"text"`
	Language       Language `json:"language"`
	SourceLanguage Language `json:"source_language"`
	Model          string   `json:"model"`
	AudioSize      int64    `json:"audio_size"`
}

// Summary is the model's summary of a transcript.
type Summary struct {
	Text             string       `json:"text"`
	Style            SummaryStyle `json:"style"`
	Language         Language     `json:"language"`
	Model            string       `json:"model"`
	OriginalLength   int          `json:"original_length"`
	SummaryLength    int          `json:"summary_length"`
	CompressionRatio float64      `json:"compression_ratio"`
	Truncated        bool         `json:"truncated"`
}

// Analysis is the model's structured content analysis.
type Analysis struct {
	Text      string   `json:"text"`
	Language  Language `json:"language"`
	Model     string   `json:"model"`
	Truncated bool     `json:"truncated"`
}

// ReportFiles lists the files written for one run.
type ReportFiles struct {
	BaseName   string `json:"base_name"`
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
	Report     string `json:"report"`
	JSON       string `json:"json"`
}

// Result is everything produced by a single run.
type Result struct {
	RunID       string         `json:"run_id"`
	URL         string         `json:"url"`
	VideoID     string         `json:"video_id"`
	Metadata    *VideoMetadata `json:"metadata"`
	Audio       *AudioAsset    `json:"audio"`
	Transcript  *Transcript    `json:"transcript"`
	Summary     *Summary       `json:"summary"`
	Analysis    *Analysis      `json:"analysis"`
	Reports     *ReportFiles   `json:"reports,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	ProcessTime time.Duration  `json:"process_time"`
}
