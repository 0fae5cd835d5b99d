package cmd

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/rtzll/yta/internal"
)

// cpCmd copies the summary (or transcript) to the system clipboard instead of printing to stdout.
var cpCmd = &cobra.Command{
	Use:   "cp [URL]",
	Short: "Copy the summary of a YouTube video to the clipboard",
	Example: `  # Copy the summary
  yta cp "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  yta cp tAP1eZYEuKA

  # Copy the transcript only (skips summary and analysis)
  yta cp tAP1eZYEuKA --transcript`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkArg(args[0]); err != nil {
			return err
		}

		app, err := newPipelineApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		opts := runOptions(app, args[0])
		transcriptOnly, _ := cmd.Flags().GetBool("transcript")

		var text, what string
		if transcriptOnly {
			result, err := app.Transcribe(cmd.Context(), opts)
			if err != nil {
				printFailure(err)
				return err
			}
			text, what = result.Transcript.Text, "Transcript"
		} else {
			result, err := app.Analyze(cmd.Context(), opts)
			if err != nil {
				printFailure(err)
				return err
			}
			text, what = result.Summary.Text, "Summary"
		}

		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}

		if !config.Quiet {
			fmt.Fprintf(os.Stderr, "%s copied to clipboard\n", what)
		}

		return nil
	},
}

func init() {
	internal.AddAnalysisFlags(cpCmd)
	cpCmd.Flags().Bool("transcript", false, "Copy the transcript instead of the summary")
	rootCmd.AddCommand(cpCmd)
}
