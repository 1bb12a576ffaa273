package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "vibery",
	Short: "Install Claude templates: agents, commands, MCPs, settings, hooks and skills",
	Long: `Vibery installs ready-made templates into a project's .claude directory.

Templates are fetched from the vibery template repository when it is
reachable and from the copies bundled with this binary when it is not.
MCP templates are merged into .mcp.json.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vibery %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("offline", false, "Use cached and bundled templates only")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log source fallbacks to stderr")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
