package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vibery-studio/vibery/internal/ui"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search templates by name or description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return errors.New("search query is empty")
		}
		t, err := resolveType(cmd)
		if err != nil {
			return err
		}

		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		results, err := d.resolver.Search(cmd.Context(), query, t)
		if err != nil {
			return err
		}

		p := d.printer
		if len(results) == 0 {
			p.Warn("No templates found matching: %q", query)
			p.Muted(`Try a different search term or run "vibery list" to see all templates`)
			return nil
		}

		p.Title("🔍 Search Results for %q (%d)", query, len(results))
		// Results arrive grouped by type, so a heading starts at each change.
		var current string
		for _, r := range results {
			if key := r.Type.Plural(); key != current {
				current = key
				p.Info("")
				p.Info("  %s %s:", ui.Icon(r.Type), ui.Capitalize(key))
			}
			p.Template(r, true)
		}

		fmt.Println()
		p.Muted("Install with: vibery install <template-name>")
		return nil
	},
}

func init() {
	searchCmd.Flags().StringP("type", "t", "", "Only search this type")
	rootCmd.AddCommand(searchCmd)
}
