package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rtzll/yta/internal"
)

// historyCmd lists recorded runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	Example: `  # Show the last 20 runs
  yta history

  # Show the last 100 runs
  yta history --limit 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		app := internal.NewApp(config)
		defer app.Close()

		runs, err := app.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tSTAGE\tTITLE\tERROR")
		for _, r := range runs {
			title := r.Title
			if title == "" {
				title = r.URL
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.StartedAt.Local().Format("2006-01-02 15:04"), r.Stage, title, r.Error)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
