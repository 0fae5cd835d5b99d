package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/yta/internal"
)

// transcribeCmd represents the transcribe command
var transcribeCmd = &cobra.Command{
	Use:   "transcribe [YouTube URL or ID]",
	Short: "Transcribe the audio of a YouTube video",
	Example: `  # Print the transcript
  yta transcribe "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  yta transcribe tAP1eZYEuKA

  # Save transcript to file
  yta transcribe tAP1eZYEuKA -o transcript.txt

  # Translate French audio into English
  yta transcribe tAP1eZYEuKA --source-lang fr --lang en`,
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

		result, err := app.Transcribe(cmd.Context(), runOptions(app, args[0]))
		if err != nil {
			printFailure(err)
			return err
		}

		// Handle output flag
		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" {
			return os.WriteFile(outputFile, []byte(result.Transcript.Text+"\n"), 0644)
		}

		fmt.Println(result.Transcript.Text)
		return nil
	},
}

func init() {
	internal.AddAnalysisFlags(transcribeCmd)
	transcribeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	rootCmd.AddCommand(transcribeCmd)
}
