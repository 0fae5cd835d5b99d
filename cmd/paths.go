package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/yta/internal"
)

// pathsCmd represents the paths command
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show paths used by the application",
	Example: `  # Show all application paths
  yta paths`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Config directory: %s\n", config.ConfigDir)
		fmt.Printf("Data directory: %s\n", config.DataDir)
		fmt.Printf("Cache directory: %s\n", config.CacheDir)
		fmt.Printf("Reports directory: %s\n", config.OutputDir)
		fmt.Printf("Run ledger: %s\n", config.LedgerPath)
		fmt.Printf("MCP log: %s\n", internal.MCPLogPath(config))
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}
