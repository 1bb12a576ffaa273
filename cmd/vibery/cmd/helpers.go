package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibery-studio/vibery/internal/core/catalog"
)

// resolveTargetDir resolves the --dir flag or falls back to cwd.
func resolveTargetDir(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir != "" {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return cwd, nil
}

// resolveType parses the --type flag. An empty flag means any type.
func resolveType(cmd *cobra.Command) (catalog.Type, error) {
	raw, _ := cmd.Flags().GetString("type")
	return catalog.ParseType(raw)
}

// addDirFlag adds the --dir/-d target directory flag to a command.
func addDirFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("dir", "d", "", "Target directory (default: current directory)")
}

// sourceLabel is the suffix printed after an installed template.
func sourceLabel(source string) string {
	return "(from " + source + ")"
}

// formatBytes renders a size with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// formatAge renders a cache age in whole minutes.
func formatAge(d time.Duration) string {
	m := int(d.Minutes())
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

// usageHint is printed after a single successful install.
func usageHint(d catalog.Descriptor) string {
	switch d.Type {
	case catalog.TypeAgent:
		return "Use this agent by mentioning it in Claude Code"
	case catalog.TypeCommand:
		return "Run with: /" + d.CleanName()
	case catalog.TypeMCP:
		return "Restart Claude Code to activate this MCP"
	case catalog.TypeSetting:
		return "Settings will be applied on next Claude Code restart"
	case catalog.TypeHook:
		return "Hook will trigger on matching tool use"
	case catalog.TypeSkill:
		return "Skill is ready to use in your project"
	}
	return ""
}
