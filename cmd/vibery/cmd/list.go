package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vibery-studio/vibery/internal/core/catalog"
	"github.com/vibery-studio/vibery/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available templates",
	Long: `List the templates in the catalog, grouped by type.

Use --type to show a single type, or --type kits to list the stacks that
can be installed with "vibery stack install".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("type")
		if k := strings.ToLower(raw); k == "kit" || k == "kits" || k == "stack" || k == "stacks" {
			return listStacks(cmd)
		}
		t, err := catalog.ParseType(raw)
		if err != nil {
			return err
		}

		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		c, err := d.catalog(cmd)
		if err != nil {
			return err
		}
		p := d.printer

		if t != "" {
			items := c.Templates(t)
			if len(items) == 0 {
				p.Warn("No templates found for type: %s", t)
				return nil
			}
			p.Title("%s", ui.TypeHeading(t.Plural(), len(items)))
			for _, item := range items {
				p.Template(item, false)
			}
		} else {
			p.Title("📦 Available Templates")
			for _, bc := range c.Counts() {
				p.Info("  %s %s: %d", ui.Icon(catalog.Type(strings.TrimSuffix(bc.Key, "s"))), ui.Capitalize(bc.Key), bc.Count)
			}
			for _, key := range c.Keys() {
				items := c.Bucket(key)
				if len(items) == 0 {
					continue
				}
				p.Section(ui.TypeHeading(key, len(items)))
				for _, item := range items {
					p.Template(item, false)
				}
			}
		}

		fmt.Println()
		p.Muted("Install with: vibery install <template-name>")
		p.Muted("List kits: vibery list --type kits")
		return nil
	},
}

// listStacks prints the bundled stacks.
func listStacks(cmd *cobra.Command) error {
	d, err := newDeps(cmd)
	if err != nil {
		return err
	}
	stacks, err := d.stacks()
	if err != nil {
		return err
	}

	p := d.printer
	p.Title("📦 Available Kits (%d)", len(stacks))
	for _, s := range stacks {
		p.Info("  %s", s.ID)
		p.Muted("    %s - %s", s.Name, s.Description)
		p.Muted("    Items: %d | Tags: %s", len(s.Templates), strings.Join(s.Tags, ", "))
	}
	fmt.Println()
	p.Muted("Install with: vibery stack install <kit-id>")
	return nil
}

func init() {
	listCmd.Flags().StringP("type", "t", "", "Only list this type (agent, command, mcp, setting, hook, skill or kits)")
	rootCmd.AddCommand(listCmd)
}
