package internal

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// PromptData for template injection
type PromptData struct {
	Title              string
	Channel            string
	Description        string
	Transcript         string
	Language           string
	LanguageName       string
	SourceLanguageName string
}

// PromptManager builds the transcription, summary and analysis prompts
type PromptManager struct {
	promptFile   string
	promptString string
}

// NewPromptManager creates a new prompt manager. A non-empty promptSetting
// replaces the built-in summary templates; it may be a file path or the
// template text itself.
func NewPromptManager(promptSetting string) *PromptManager {
	pm := &PromptManager{}

	if promptSetting != "" {
		if IsLikelyFilePath(promptSetting) && FileExists(promptSetting) {
			pm.promptFile = promptSetting
		} else {
			pm.promptString = promptSetting
		}
	}

	return pm
}

// HasCustomPrompt reports whether summaries use a user template
func (pm *PromptManager) HasCustomPrompt() bool {
	return pm.promptFile != "" || pm.promptString != ""
}

func newPromptData(transcript string, lang Language, metadata *VideoMetadata) PromptData {
	data := PromptData{Transcript: transcript}
	if lang != LangAuto {
		data.Language = string(lang)
		data.LanguageName = lang.Name()
	}
	if metadata != nil {
		data.Title = metadata.Title
		data.Channel = metadata.ChannelName()
		data.Description = ShortDescription(metadata.Description)
	}
	return data
}

// TranscriptionPrompt builds the instruction sent along with the audio
func (pm *PromptManager) TranscriptionPrompt(target, source Language) (string, error) {
	data := PromptData{}
	if target != LangAuto {
		data.Language = string(target)
		data.LanguageName = target.Name()
	}
	if source != LangAuto {
		data.SourceLanguageName = source.Name()
	}
	return executeTemplate(promptTemplates, "transcribe.tmpl", data)
}

// SummaryPrompt builds the summary prompt for style around an already
// truncated transcript
func (pm *PromptManager) SummaryPrompt(style SummaryStyle, transcript string, lang Language, metadata *VideoMetadata) (string, error) {
	data := newPromptData(transcript, lang, metadata)

	if pm.HasCustomPrompt() {
		content := pm.promptString
		if pm.promptFile != "" {
			raw, err := os.ReadFile(pm.promptFile)
			if err != nil {
				return "", fmt.Errorf("reading prompt template: %w", err)
			}
			content = string(raw)
		}
		return buildPromptFromTemplate(content, data)
	}

	return executeTemplate(promptTemplates, string(style)+".tmpl", data)
}

// AnalysisPrompt builds the content analysis prompt around an already
// truncated transcript
func (pm *PromptManager) AnalysisPrompt(transcript string, lang Language) (string, error) {
	return executeTemplate(promptTemplates, "analysis.tmpl", newPromptData(transcript, lang, nil))
}

// TranslationPrompt builds the prompt that translates a finished transcript
func (pm *PromptManager) TranslationPrompt(transcript string, target, source Language) (string, error) {
	data := newPromptData(transcript, target, nil)
	if source != LangAuto {
		data.SourceLanguageName = source.Name()
	}
	return executeTemplate(promptTemplates, "translate.tmpl", data)
}

// buildPromptFromTemplate parses a user template with the built-in partials available
func buildPromptFromTemplate(templateContent string, data PromptData) (string, error) {
	base, err := promptTemplates.Clone()
	if err != nil {
		return "", fmt.Errorf("cloning prompt templates: %w", err)
	}

	tmpl, err := base.New("custom").Parse(templateContent)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}

	// a template that never references the transcript still needs it
	if !strings.Contains(templateContent, "{{.Transcript}}") && !strings.Contains(templateContent, "{{ .Transcript }}") {
		tmpl, err = tmpl.Parse(templateContent + "\n\n{{.Transcript}}")
		if err != nil {
			return "", fmt.Errorf("parsing prompt template: %w", err)
		}
	}

	return executeTemplate(tmpl, "custom", data)
}

func executeTemplate(tmpl *template.Template, name string, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("executing prompt template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// IsLikelyFilePath uses heuristics to determine if a string is likely a file path
func IsLikelyFilePath(s string) bool {
	if strings.Contains(s, "/") || strings.Contains(s, "\\") {
		return true
	}

	if strings.Contains(s, ".txt") || strings.Contains(s, ".md") ||
		strings.Contains(s, ".template") || strings.Contains(s, ".tmpl") {
		return true
	}

	// If it's longer than 200 characters, it's likely a prompt string
	if len(s) > 200 {
		return false
	}

	return !strings.Contains(s, " ") && !strings.Contains(s, "\n")
}
