package internal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

// minSummaryChars is the least amount of non-space text worth summarizing
const minSummaryChars = 50

// TranscribeRequest describes one transcription call
type TranscribeRequest struct {
	Audio  *AudioAsset
	Prompt string
	Target Language
	Source Language
}

// ModelClient is a remote speech and text model
type ModelClient interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (string, error)
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
	Close() error
}

// sourceLanguageTranscriber is implemented by clients whose Transcribe
// returns the spoken language and ignores the requested target
type sourceLanguageTranscriber interface {
	KeepsSourceLanguage() bool
}

// ClientFactory builds a ModelClient on first use
type ClientFactory func(ctx context.Context) (ModelClient, error)

// AIOptions tunes an AI processor
type AIOptions struct {
	SummaryTimeout    time.Duration
	TranscribeTimeout time.Duration
	RequestsPerMinute int
	MaxRetries        int
	Verbose           bool
}

// AI handles model interactions for transcription, summary and analysis
type AI struct {
	client     ModelClient
	newClient  ClientFactory
	clientOnce sync.Once
	clientErr  error

	prompts *PromptManager
	limiter *rate.Limiter
	retry   RetryConfig
	opts    AIOptions
}

// NewAI creates a new AI processor around an existing client
func NewAI(client ModelClient, prompts *PromptManager, opts AIOptions) *AI {
	ai := newAI(prompts, opts)
	ai.client = client
	return ai
}

// NewAIWithFactory creates a new AI processor with lazy client initialization
func NewAIWithFactory(factory ClientFactory, prompts *PromptManager, opts AIOptions) *AI {
	ai := newAI(prompts, opts)
	ai.newClient = factory
	return ai
}

func newAI(prompts *PromptManager, opts AIOptions) *AI {
	if opts.SummaryTimeout <= 0 {
		opts.SummaryTimeout = 2 * time.Minute
	}
	if opts.TranscribeTimeout <= 0 {
		opts.TranscribeTimeout = 10 * time.Minute
	}

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}

	return &AI{
		prompts: prompts,
		limiter: rate.NewLimiter(limit, 1),
		retry:   NewRetryConfig(opts.MaxRetries),
		opts:    opts,
	}
}

// ensureClient initializes the model client if needed
func (ai *AI) ensureClient(ctx context.Context) error {
	ai.clientOnce.Do(func() {
		if ai.client != nil {
			return
		}
		if ai.newClient == nil {
			ai.clientErr = fmt.Errorf("no model client configured")
			return
		}
		ai.client, ai.clientErr = ai.newClient(ctx)
	})
	return ai.clientErr
}

// call runs fn under the rate limiter, a timeout and the retry policy
func (ai *AI) call(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (string, error)) (string, error) {
	return RetryDo(ctx, ai.retry, func() (string, error) {
		if err := ai.limiter.Wait(ctx); err != nil {
			return "", err
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return fn(callCtx)
	})
}

// Transcribe sends the audio to the model and returns its transcript
func (ai *AI) Transcribe(ctx context.Context, audio *AudioAsset, target, source Language) (*Transcript, error) {
	if err := ai.ensureClient(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscribe, err)
	}

	prompt, err := ai.prompts.TranscriptionPrompt(target, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscribe, err)
	}

	if ai.opts.Verbose {
		fmt.Fprintf(os.Stderr, "Transcribing %s (%s) with %s\n", audio.Path, FormatBytes(audio.Size), ai.client.Model())
	}

	text, err := ai.call(ctx, ai.opts.TranscribeTimeout, func(ctx context.Context) (string, error) {
		return ai.client.Transcribe(ctx, TranscribeRequest{
			Audio:  audio,
			Prompt: prompt,
			Target: target,
			Source: source,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscribe, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: model returned an empty transcript", ErrTranscribe)
	}

	if st, ok := ai.client.(sourceLanguageTranscriber); ok && st.KeepsSourceLanguage() &&
		target != LangAuto && target != source {
		if text, err = ai.translate(ctx, text, target, source); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTranscribe, err)
		}
	}

	return &Transcript{
		Text:           text,
		Language:       target,
		SourceLanguage: source,
		Model:          ai.client.Model(),
		AudioSize:      audio.Size,
	}, nil
}

// translate turns a source-language transcript into target as a separate
// limited call. The whole transcript is sent: it is the output, not context.
func (ai *AI) translate(ctx context.Context, text string, target, source Language) (string, error) {
	prompt, err := ai.prompts.TranslationPrompt(text, target, source)
	if err != nil {
		return "", err
	}

	translated, err := ai.call(ctx, ai.opts.TranscribeTimeout, func(ctx context.Context) (string, error) {
		return ai.client.Generate(ctx, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("translating transcript: %w", err)
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return "", fmt.Errorf("model returned an empty translation")
	}
	return translated, nil
}

// Summarize creates a summary of transcript in the given style. The
// transcript is cut to SummaryCharLimit characters first.
func (ai *AI) Summarize(ctx context.Context, transcript string, style SummaryStyle, lang Language, metadata *VideoMetadata) (*Summary, error) {
	if utf8.RuneCountInString(strings.TrimSpace(transcript)) < minSummaryChars {
		return nil, fmt.Errorf("%w: text too short to summarize", ErrSummarize)
	}
	if err := ai.ensureClient(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSummarize, err)
	}

	input, truncated := Truncate(transcript, SummaryCharLimit)
	if truncated && ai.opts.Verbose {
		fmt.Fprintf(os.Stderr, "Transcript truncated to %d characters for summary\n", SummaryCharLimit)
	}

	prompt, err := ai.prompts.SummaryPrompt(style, input, lang, metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: creating prompt: %w", ErrSummarize, err)
	}

	text, err := ai.call(ctx, ai.opts.SummaryTimeout, func(ctx context.Context) (string, error) {
		return ai.client.Generate(ctx, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSummarize, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: model returned an empty summary", ErrSummarize)
	}

	originalLen := utf8.RuneCountInString(transcript)
	summaryLen := utf8.RuneCountInString(text)
	return &Summary{
		Text:             text,
		Style:            style,
		Language:         lang,
		Model:            ai.client.Model(),
		OriginalLength:   originalLen,
		SummaryLength:    summaryLen,
		CompressionRatio: float64(summaryLen) / float64(originalLen),
		Truncated:        truncated,
	}, nil
}

// Analyze asks for a structured content analysis of the first
// AnalysisCharLimit characters of transcript
func (ai *AI) Analyze(ctx context.Context, transcript string, lang Language) (*Analysis, error) {
	if err := ai.ensureClient(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalyze, err)
	}

	input, truncated := Truncate(transcript, AnalysisCharLimit)
	prompt, err := ai.prompts.AnalysisPrompt(input, lang)
	if err != nil {
		return nil, fmt.Errorf("%w: creating prompt: %w", ErrAnalyze, err)
	}

	text, err := ai.call(ctx, ai.opts.SummaryTimeout, func(ctx context.Context) (string, error) {
		return ai.client.Generate(ctx, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalyze, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: model returned an empty analysis", ErrAnalyze)
	}

	return &Analysis{
		Text:      text,
		Language:  lang,
		Model:     ai.client.Model(),
		Truncated: truncated,
	}, nil
}

// Close releases the model client
func (ai *AI) Close() error {
	if ai.client == nil {
		return nil
	}
	return ai.client.Close()
}

// NewClientFactory returns the factory for the configured provider
func NewClientFactory(config *Config) ClientFactory {
	return func(ctx context.Context) (ModelClient, error) {
		if err := ValidateAPIKey(config); err != nil {
			return nil, err
		}
		switch config.Provider {
		case ProviderOpenAI:
			return NewOpenAIClient(config.OpenAIAPIKey, config.OpenAIModel), nil
		case ProviderGemini, "":
			return NewGeminiClient(ctx, config.GoogleAPIKey, config.Model)
		}
		return nil, fmt.Errorf("unsupported provider: %s (supported: gemini, openai)", config.Provider)
	}
}

// ValidateAPIKey checks that the configured provider has a key
func ValidateAPIKey(config *Config) error {
	if config.APIKey() != "" {
		return nil
	}
	if config.Provider == ProviderOpenAI {
		return fmt.Errorf("OpenAI API key is required - set OPENAI_API_KEY in the environment or a .env file")
	}
	return fmt.Errorf("Google API key is required - set GOOGLE_API_KEY in the environment or a .env file")
}
