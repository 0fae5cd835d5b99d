package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rtzll/yta/internal"
)

// serveCmd runs the web UI
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web interface",
	Long: `Serve a small web interface: paste a URL, pick the summary style, audio
format and languages, and follow the run live. One run at a time; a second
request while a run is active is rejected.`,
	Example: `  # Serve on the default address (:8080)
  yta serve

  # Serve on localhost only
  yta serve --addr 127.0.0.1:9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			config.Addr = addr
		}
		if err := internal.ApplyModelFlags(cmd, config); err != nil {
			return err
		}
		if err := internal.EnsureAPIKey(config); err != nil {
			return err
		}

		logger, err := internal.NewLogger(config.Verbose)
		if err != nil {
			return err
		}
		defer logger.Sync()

		// Progress bars make no sense without a terminal user
		config.Quiet = true
		app := internal.NewApp(config, internal.WithLogger(logger.Named("pipeline")))
		defer app.Close()

		return internal.NewServer(app, logger).ListenAndServe(cmd.Context(), config.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	internal.AddModelFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}
