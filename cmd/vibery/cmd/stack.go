package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vibery-studio/vibery/internal/core/catalog"
	"github.com/vibery-studio/vibery/internal/core/installer"
)

var stackCmd = &cobra.Command{
	Use:   "stack",
	Short: "Install curated groups of templates",
}

var stackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available stacks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		stacks, err := d.stacks()
		if err != nil {
			return err
		}
		if len(stacks) == 0 {
			fmt.Println("No stacks available.")
			return nil
		}

		rows := make([][]any, 0, len(stacks))
		for _, s := range stacks {
			rows = append(rows, []any{s.ID, s.Name, len(s.Templates), strings.Join(s.Tags, ", ")})
		}
		d.printer.Table([]any{"ID", "Name", "Items", "Tags"}, rows)
		return nil
	},
}

var stackInstallCmd = &cobra.Command{
	Use:   "install <stack>",
	Short: "Install every template of a stack",
	Long: `Install every template of a stack, one after another.

A template that cannot be installed is reported and the rest continue.
The command fails only when nothing was installed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		root, err := resolveTargetDir(cmd)
		if err != nil {
			return err
		}
		stacks, err := d.stacks()
		if err != nil {
			return err
		}
		stack, ok := catalog.FindStack(stacks, args[0])
		if !ok {
			return fmt.Errorf("stack %q not found (run \"vibery stack list\")", args[0])
		}

		p := d.printer
		p.Title("Installing %s (%d templates)", stack.Name, len(stack.Templates))
		batch := d.installer.InstallStack(cmd.Context(), stack, d.resolver, root, func(ref catalog.Ref, res installer.Result) {
			if res.Success {
				p.Success("%s: %s %s", refType(ref), ref.Name, sourceLabel(res.Source))
				return
			}
			p.Error("%s: %s: %v", refType(ref), ref.Name, res.Err)
		})

		fmt.Println()
		if batch.Success() {
			p.Success("Installed %d/%d templates", len(batch.Installed), batch.Total())
			return nil
		}
		p.Warn("Installed %d/%d templates (%d failed)", len(batch.Installed), batch.Total(), len(batch.Failed))
		for _, f := range batch.Failed {
			p.Muted("  %s %s: %s", refType(f.Ref), f.Ref.Name, f.Reason)
		}
		if len(batch.Installed) == 0 && batch.Total() > 0 {
			return errors.New("no templates were installed")
		}
		return nil
	},
}

func init() {
	addDirFlag(stackInstallCmd)
	stackCmd.AddCommand(stackListCmd)
	stackCmd.AddCommand(stackInstallCmd)
	rootCmd.AddCommand(stackCmd)
}

// refType labels a stack reference; untyped references match any bucket.
func refType(ref catalog.Ref) string {
	if ref.Type == "" {
		return "template"
	}
	return string(ref.Type)
}
