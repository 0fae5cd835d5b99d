package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtzll/yta/internal"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [YouTube URL or ID]",
	Short: "Transcribe, summarize and analyze a YouTube video",
	Example: `  # Analyze a YouTube video
  yta analyze "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  yta analyze tAP1eZYEuKA

  # Paragraph summary in Spanish from English audio
  yta analyze tAP1eZYEuKA --style paragraph --lang es --source-lang en

  # Use custom prompt for the summary
  yta analyze tAP1eZYEuKA --prompt "tldr: {{.Transcript}}"

  # Print markdown without terminal rendering
  yta analyze tAP1eZYEuKA --no-render > summary.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func addAnalyzeFlags(cmd *cobra.Command) {
	internal.AddAnalysisFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Directory for report files (default from config)")
	cmd.Flags().Bool("no-render", false, "Print raw markdown instead of rendering it")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := checkArg(args[0]); err != nil {
		return err
	}
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		config.OutputDir = out
	}

	app, err := newPipelineApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Analyze(cmd.Context(), runOptions(app, args[0]))
	if err != nil {
		printFailure(err)
		return err
	}

	noRender, _ := cmd.Flags().GetBool("no-render")
	return printResult(result, noRender)
}

// printResult writes the summary, analysis and stats to stdout
func printResult(result *internal.Result, noRender bool) error {
	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", result.Metadata.Title)
	md.WriteString(result.Summary.Text)
	md.WriteString("\n\n## Content Analysis\n\n")
	md.WriteString(result.Analysis.Text)
	md.WriteString("\n")

	output := md.String()
	if !noRender {
		rendered, err := internal.RenderMarkdown(output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			output = rendered
		}
	}
	fmt.Print(output)

	if config.Quiet {
		return nil
	}

	s := result.Summary
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Original length:   %s characters\n", internal.FormatCount(int64(s.OriginalLength)))
	fmt.Fprintf(os.Stderr, "Summary length:    %s characters\n", internal.FormatCount(int64(s.SummaryLength)))
	fmt.Fprintf(os.Stderr, "Compression ratio: %.1f%%\n", s.CompressionRatio*100)
	fmt.Fprintf(os.Stderr, "Processing time:   %s\n", result.ProcessTime.Round(time.Second))
	if result.Reports != nil {
		fmt.Fprintf(os.Stderr, "Transcript: %s\n", result.Reports.Transcript)
		fmt.Fprintf(os.Stderr, "Summary:    %s\n", result.Reports.Summary)
		fmt.Fprintf(os.Stderr, "Report:     %s\n", result.Reports.Report)
	}
	return nil
}

func init() {
	addAnalyzeFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}
