package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/yta/internal"
)

var commandNames = []string{"analyze", "transcribe", "metadata", "convert", "split", "probe", "serve", "mcp", "cp", "history", "paths", "version", "help"}

// checkArg rejects arguments that look like mistyped subcommands
func checkArg(arg string) error {
	parsed := internal.ParseArg(arg)
	if parsed.IsValid() {
		return nil
	}
	if parsed.ContentType == internal.ContentTypeCommand {
		return fmt.Errorf("'%s' doesn't look like a YouTube URL or video ID; %s", arg, parsed.SuggestCorrection(commandNames))
	}
	return parsed.Error
}

// newPipelineApp applies the command flags to config, makes sure an API
// key is available and builds the app
func newPipelineApp(cmd *cobra.Command) (*internal.App, error) {
	if err := internal.ApplyAnalysisFlags(cmd, config); err != nil {
		return nil, err
	}
	if err := internal.EnsureAPIKey(config); err != nil {
		return nil, err
	}

	app := internal.NewApp(config)
	if err := internal.HandlePromptFlag(cmd, app); err != nil {
		return nil, err
	}
	return app, nil
}

// runOptions builds pipeline options for arg from config
func runOptions(app *internal.App, arg string) internal.RunOptions {
	opts := app.RunOptionsFromConfig(arg)
	opts.ShowProgress = !config.Quiet
	return opts
}

// printFailure adds the stage a run failed in to verbose output
func printFailure(err error) {
	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Run failed during %s\n", internal.StageOf(err).Label())
	}
}
