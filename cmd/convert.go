package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/yta/internal"
)

// convertCmd runs the converter and size guard on a local file
var convertCmd = &cobra.Command{
	Use:   "convert [audio file]",
	Short: "Convert a local audio file to the upload format",
	Long: `Convert re-encodes a local audio or video file to mono 22050 Hz audio, the
same way the pipeline does before transcription, and checks the result
against the 20 MB upload limit.`,
	Example: `  # Convert to MP3 (128k)
  yta convert talk.m4a

  # Convert to lossless FLAC
  yta convert talk.m4a --format flac`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := config.AudioFormat
		if s, _ := cmd.Flags().GetString("format"); s != "" {
			var err error
			if format, err = internal.ParseAudioFormat(s); err != nil {
				return err
			}
		}

		app := internal.NewApp(config)
		asset, err := app.ConvertFile(cmd.Context(), args[0], format)
		if asset == nil {
			return err
		}

		data, jerr := json.MarshalIndent(asset, "", "  ")
		if jerr != nil {
			return fmt.Errorf("error converting asset to JSON: %w", jerr)
		}
		fmt.Println(string(data))

		if errors.Is(err, internal.ErrTooLarge) {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			return nil
		}
		return err
	},
}

// splitCmd divides an oversized audio file into uploadable parts
var splitCmd = &cobra.Command{
	Use:   "split [audio file]",
	Short: "Split an audio file into parts under the upload limit",
	Example: `  # Split into as many parts as needed
  yta split long_talk_converted.mp3

  # Split into exactly 4 parts in another directory
  yta split long_talk_converted.mp3 --parts 4 --out parts/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parts, _ := cmd.Flags().GetInt("parts")
		outDir, _ := cmd.Flags().GetString("out")

		app := internal.NewApp(config)
		files, err := app.SplitFile(cmd.Context(), args[0], outDir, parts)
		if err != nil {
			return err
		}

		for _, f := range files {
			fmt.Println(f)
		}
		return nil
	},
}

// probeCmd prints stream details of an audio file
var probeCmd = &cobra.Command{
	Use:   "probe [audio file]",
	Short: "Show codec, sample rate, channels and duration of an audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := internal.NewApp(config)
		info, err := app.ProbeFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Codec:       %s\n", info.Codec)
		fmt.Printf("Sample rate: %d Hz\n", info.SampleRate)
		fmt.Printf("Channels:    %d\n", info.Channels)
		fmt.Printf("Bitrate:     %d kb/s\n", info.Bitrate/1000)
		fmt.Printf("Duration:    %s\n", internal.FormatDuration(info.Duration))
		fmt.Printf("Size:        %s\n", internal.FormatBytes(info.Size))
		return nil
	},
}

func init() {
	convertCmd.Flags().StringP("format", "f", "", "Target format: mp3, wav or flac")
	splitCmd.Flags().IntP("parts", "n", 0, "Number of parts (default: as many as needed)")
	splitCmd.Flags().String("out", "", "Output directory (default: next to the input)")
	rootCmd.AddCommand(convertCmd, splitCmd, probeCmd)
}
