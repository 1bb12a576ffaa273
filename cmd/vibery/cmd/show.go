package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vibery-studio/vibery/internal/core/catalog"
)

var showCmd = &cobra.Command{
	Use:   "show <template>",
	Short: "Show a template without installing it",
	Long: `Show a template's catalog entry and content.

Markdown templates are rendered for the terminal; their frontmatter is
summarized above the body. Skills show their SKILL.md.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := resolveType(cmd)
		if err != nil {
			return err
		}
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		if _, err := d.catalog(cmd); err != nil {
			return err
		}
		desc, err := d.resolver.Find(cmd.Context(), args[0], t)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		content, source, err := d.installer.Read(cmd.Context(), desc)
		if err != nil {
			return fmt.Errorf("reading %s: %w", desc.Name, err)
		}

		p := d.printer
		p.Title("%s %s", desc.Name, sourceLabel(source))
		p.Template(desc, true)
		if len(desc.Tags) > 0 {
			p.Muted("  Tags: %s", strings.Join(desc.Tags, ", "))
		}
		fmt.Println()

		if desc.Type.Ext() == ".json" {
			fmt.Fprintln(p.Out(), strings.TrimRight(string(content), "\n"))
			return nil
		}

		fm, body, err := catalog.SplitFrontmatter(content)
		if err != nil {
			d.logger.Debug("frontmatter unreadable", "template", desc.Name, "err", err)
			body = content
		}
		if fm.Model != "" {
			p.Muted("  Model: %s", fm.Model)
		}
		if fm.Tools != "" {
			p.Muted("  Tools: %s", fm.Tools)
		}

		rendered, err := p.Markdown(string(body))
		if err != nil {
			return fmt.Errorf("rendering %s: %w", desc.Name, err)
		}
		fmt.Fprint(p.Out(), rendered)
		if !strings.HasSuffix(rendered, "\n") {
			fmt.Fprintln(p.Out())
		}
		return nil
	},
}

func init() {
	showCmd.Flags().StringP("type", "t", "", "Template type when the name is ambiguous")
	showCmd.Flags().Bool("refresh", false, "Ignore the cached catalog")
	rootCmd.AddCommand(showCmd)
}
