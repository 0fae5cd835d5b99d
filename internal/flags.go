package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// AddAnalysisFlags adds the flags shared by commands that run the pipeline
func AddAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("style", "s", "", "Summary style: structured, list or paragraph")
	cmd.Flags().StringP("lang", "l", "", "Output language: pt, en, es, fr (default: same as audio)")
	cmd.Flags().String("source-lang", "", "Spoken language of the audio: pt, en, es, fr (default: auto)")
	cmd.Flags().StringP("format", "f", "", "Intermediate audio format: mp3, wav or flac")
	AddModelFlags(cmd)
}

// AddModelFlags adds flags related to the remote model
func AddModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "Model to use")
	cmd.Flags().String("provider", "", "Model provider: gemini or openai")
	cmd.Flags().StringP("prompt", "p", "", "Custom summary prompt (string or file path)")
}

// ApplyAnalysisFlags overrides config with any analysis flags that were set
func ApplyAnalysisFlags(cmd *cobra.Command, config *Config) error {
	if s, _ := cmd.Flags().GetString("style"); s != "" {
		style, err := ParseSummaryStyle(s)
		if err != nil {
			return err
		}
		config.SummaryStyle = style
	}
	if s, _ := cmd.Flags().GetString("lang"); s != "" {
		lang, err := ParseLanguage(s)
		if err != nil {
			return err
		}
		config.Language = lang
	}
	if s, _ := cmd.Flags().GetString("source-lang"); s != "" {
		lang, err := ParseLanguage(s)
		if err != nil {
			return err
		}
		config.SourceLanguage = lang
	}
	if s, _ := cmd.Flags().GetString("format"); s != "" {
		format, err := ParseAudioFormat(s)
		if err != nil {
			return err
		}
		config.AudioFormat = format
	}
	return ApplyModelFlags(cmd, config)
}

// ApplyModelFlags handles --provider and --model
func ApplyModelFlags(cmd *cobra.Command, config *Config) error {
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		switch Provider(p) {
		case ProviderGemini, ProviderOpenAI:
			config.Provider = Provider(p)
		default:
			return fmt.Errorf("unsupported provider: %s (supported: gemini, openai)", p)
		}
	}
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		if config.Provider == ProviderOpenAI {
			config.OpenAIModel = m
		} else {
			config.Model = m
		}
	}
	return nil
}

// HandlePromptFlag processes the --prompt flag to set custom prompt
func HandlePromptFlag(cmd *cobra.Command, app *App) error {
	// Check if prompt flag was explicitly set
	promptFlag := cmd.Flags().Lookup("prompt")
	if promptFlag == nil || !promptFlag.Changed {
		return nil
	}

	prompt, err := cmd.Flags().GetString("prompt")
	if err != nil {
		return fmt.Errorf("failed to get prompt flag: %w", err)
	}
	if prompt == "" {
		return nil
	}

	app.SetPromptManager(NewPromptManager(prompt))

	if app.config.Verbose {
		if IsLikelyFilePath(prompt) && FileExists(prompt) {
			fmt.Fprintf(os.Stderr, "Using custom prompt file: %s\n", prompt)
		} else {
			fmt.Fprintf(os.Stderr, "Using custom prompt string\n")
		}
	}

	return nil
}

// HandleVerboseFlag processes the --verbose flag to update config
func HandleVerboseFlag(cmd *cobra.Command, config *Config) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	config.Verbose = config.Verbose || verbose
	return nil
}

// EnsureAPIKey makes sure the configured provider has a key, asking for it
// on the terminal when none is configured
func EnsureAPIKey(config *Config) error {
	if err := ValidateAPIKey(config); err == nil {
		return nil
	} else if !IsTerminal(os.Stdin) {
		return err
	}

	envName := "GOOGLE_API_KEY"
	if config.Provider == ProviderOpenAI {
		envName = "OPENAI_API_KEY"
	}

	key, err := ReadAPIKey(os.Stderr, envName)
	if err != nil {
		return err
	}
	config.SetAPIKey(key)
	return ValidateAPIKey(config)
}
