package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReportWriter renders run results into text, markdown and JSON files
type ReportWriter struct {
	outputDir string
	now       func() time.Time
}

// NewReportWriter creates a writer rooted at outputDir
func NewReportWriter(outputDir string) *ReportWriter {
	return &ReportWriter{outputDir: outputDir, now: time.Now}
}

// OutputDir returns the directory reports are written to
func (w *ReportWriter) OutputDir() string {
	return w.outputDir
}

// BaseName returns <sanitized title>_<YYYYmmdd_HHMMSS>[_<lang>]
func BaseName(title string, lang Language, t time.Time) string {
	name := SanitizeFilename(title) + "_" + t.Format("20060102_150405")
	if lang != LangAuto {
		name += "_" + string(lang)
	}
	return name
}

// Write stores the transcript, summary, full report and JSON for result
func (w *ReportWriter) Write(result *Result) (*ReportFiles, error) {
	if err := EnsureDirs(w.outputDir); err != nil {
		return nil, fmt.Errorf("%w: creating output directory: %w", ErrWrite, err)
	}

	title := "video"
	if result.Metadata != nil && result.Metadata.Title != "" {
		title = result.Metadata.Title
	}
	var lang Language
	if result.Transcript != nil {
		lang = result.Transcript.Language
	}
	base := BaseName(title, lang, w.now())

	files := &ReportFiles{
		BaseName:   base,
		Transcript: filepath.Join(w.outputDir, base+"_transcript.txt"),
		Summary:    filepath.Join(w.outputDir, base+"_summary.md"),
		Report:     filepath.Join(w.outputDir, base+"_report.md"),
		JSON:       filepath.Join(w.outputDir, base+"_report.json"),
	}

	if result.Transcript != nil {
		if err := writeFile(files.Transcript, w.transcriptText(result)); err != nil {
			return nil, err
		}
	}
	if result.Summary != nil {
		if err := writeFile(files.Summary, w.summaryMarkdown(result)); err != nil {
			return nil, err
		}
	}
	if err := writeFile(files.Report, w.reportMarkdown(result)); err != nil {
		return nil, err
	}

	result.Reports = files
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling result: %w", ErrWrite, err)
	}
	if err := writeFile(files.JSON, string(data)); err != nil {
		return nil, err
	}

	return files, nil
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func (w *ReportWriter) transcriptText(r *Result) string {
	var sb strings.Builder
	sb.WriteString("TRANSCRIPT\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n")
	w.writeVideoHeader(&sb, r, "%s: %s\n")
	fmt.Fprintf(&sb, "Output language: %s\n", r.Transcript.Language.Tag())
	fmt.Fprintf(&sb, "Source language: %s\n", r.Transcript.SourceLanguage.Tag())
	fmt.Fprintf(&sb, "Model: %s\n", r.Transcript.Model)
	fmt.Fprintf(&sb, "Date: %s\n", w.now().Format("2006-01-02 15:04:05"))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	sb.WriteString(r.Transcript.Text)
	sb.WriteString("\n")
	return sb.String()
}

func (w *ReportWriter) summaryMarkdown(r *Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Summary: %s\n\n", titleOf(r))
	w.writeVideoHeader(&sb, r, "**%s:** %s  \n")
	s := r.Summary
	fmt.Fprintf(&sb, "**Style:** %s  \n", s.Style)
	fmt.Fprintf(&sb, "**Language:** %s  \n", s.Language.Tag())
	fmt.Fprintf(&sb, "**Original length:** %s characters  \n", FormatCount(int64(s.OriginalLength)))
	fmt.Fprintf(&sb, "**Summary length:** %s characters  \n", FormatCount(int64(s.SummaryLength)))
	fmt.Fprintf(&sb, "**Compression ratio:** %.1f%%\n\n", s.CompressionRatio*100)
	sb.WriteString("---\n\n")
	sb.WriteString(s.Text)
	sb.WriteString("\n")

	if r.Analysis != nil && r.Analysis.Text != "" {
		sb.WriteString("\n---\n\n## Content Analysis\n\n")
		sb.WriteString(r.Analysis.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (w *ReportWriter) reportMarkdown(r *Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Report: %s\n\n", titleOf(r))
	fmt.Fprintf(&sb, "*Generated %s*\n\n", w.now().Format("2006-01-02 15:04:05"))

	sb.WriteString("## Video Information\n\n")
	w.writeVideoHeader(&sb, r, "- **%s:** %s\n")
	if m := r.Metadata; m != nil {
		if m.ViewCount > 0 {
			fmt.Fprintf(&sb, "- **Views:** %s\n", FormatCount(m.ViewCount))
		}
		if m.Description != "" {
			fmt.Fprintf(&sb, "- **Description:** %s\n", ShortDescription(m.Description))
		}
	}

	if t := r.Transcript; t != nil {
		sb.WriteString("\n## Language Settings\n\n")
		fmt.Fprintf(&sb, "- **Output language:** %s\n", t.Language.Tag())
		fmt.Fprintf(&sb, "- **Source language:** %s\n", t.SourceLanguage.Tag())
	}

	sb.WriteString("\n## Technical Data\n\n")
	fmt.Fprintf(&sb, "- **Run:** %s\n", r.RunID)
	if a := r.Audio; a != nil {
		fmt.Fprintf(&sb, "- **Audio:** %s, %s\n", a.Format, FormatBytes(a.Size))
	}
	if t := r.Transcript; t != nil {
		fmt.Fprintf(&sb, "- **Model:** %s\n", t.Model)
		fmt.Fprintf(&sb, "- **Transcript length:** %s characters\n", FormatCount(int64(len([]rune(t.Text)))))
	}
	if s := r.Summary; s != nil {
		fmt.Fprintf(&sb, "- **Summary style:** %s\n", s.Style)
		fmt.Fprintf(&sb, "- **Compression ratio:** %.1f%%\n", s.CompressionRatio*100)
	}
	if r.ProcessTime > 0 {
		fmt.Fprintf(&sb, "- **Processing time:** %s\n", r.ProcessTime.Round(time.Second))
	}

	if r.Analysis != nil && r.Analysis.Text != "" {
		sb.WriteString("\n## Content Analysis\n\n")
		sb.WriteString(r.Analysis.Text)
		sb.WriteString("\n")
	}
	if r.Summary != nil {
		sb.WriteString("\n## Summary\n\n")
		sb.WriteString(r.Summary.Text)
		sb.WriteString("\n")
	}
	if r.Transcript != nil {
		sb.WriteString("\n## Full Transcript\n\n")
		sb.WriteString(r.Transcript.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// writeVideoHeader writes the title/channel/duration/url lines with format
func (w *ReportWriter) writeVideoHeader(sb *strings.Builder, r *Result, format string) {
	fmt.Fprintf(sb, format, "Title", titleOf(r))
	if m := r.Metadata; m != nil {
		fmt.Fprintf(sb, format, "Channel", m.ChannelName())
		fmt.Fprintf(sb, format, "Duration", FormatDuration(m.Duration))
	}
	if r.URL != "" {
		fmt.Fprintf(sb, format, "URL", r.URL)
	}
}

func titleOf(r *Result) string {
	if r.Metadata != nil && r.Metadata.Title != "" {
		return r.Metadata.Title
	}
	return "Untitled video"
}
