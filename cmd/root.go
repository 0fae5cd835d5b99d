package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtzll/yta/internal"
)

var (
	config *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "yta [YouTube URL or ID]",
	Short: "YouTube audio analyzer - transcribe, summarize and analyze videos",
	Long: `yta downloads the audio of a YouTube video, converts it to a compact
mono file and sends it to a speech model for transcription.

The transcript is then summarized and analyzed, and the results are written
as text and markdown reports. Audio above 20 MB after conversion is rejected
before anything is uploaded; use "yta split" on such files.

The default model provider is Google Gemini (GOOGLE_API_KEY).`,
	Example: `  # Analyze a YouTube video (default behavior)
  yta "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  yta tAP1eZYEuKA

  # Bullet list summary in Portuguese
  yta tAP1eZYEuKA --style list --lang pt

  # Keep lossless audio for transcription
  yta tAP1eZYEuKA --format flac

  # Use OpenAI instead of Gemini
  yta tAP1eZYEuKA --provider openai`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			config.Quiet = true
		}
		return internal.HandleVerboseFlag(cmd, config)
	},
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Create a cancellable context for the entire application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize configuration with Viper
	config = internal.InitConfig()

	// Ensure XDG directories exist
	if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir, config.TempDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating XDG directories: %v\n", err)
		os.Exit(1)
	}

	// Ensure default config exists in XDG config directory
	if err := internal.EnsureDefaultConfig(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default config: %v\n", err)
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Handle shutdown signal in a separate goroutine
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal. Cleaning up and shutting down...")

		// Cancel the main context to signal all operations to stop
		cancel()

		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cleanupCancel()

		cleanupDone := make(chan struct{})
		go func() {
			if err := internal.CleanupTempDir(config.TempDir); err != nil {
				fmt.Fprintf(os.Stderr, "Error cleaning up temporary files: %v\n", err)
			}
			close(cleanupDone)
		}()

		select {
		case <-cleanupDone:
		case <-cleanupCtx.Done():
			fmt.Fprintln(os.Stderr, "Warning: Cleanup timed out, forcing exit")
		}

		os.Exit(130)
	}()

	// Set context on root command
	rootCmd.SetContext(ctx)

	return rootCmd.Execute()
}

func init() {
	addAnalyzeFlags(rootCmd)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress output")
}
