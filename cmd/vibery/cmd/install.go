package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibery-studio/vibery/internal/core/catalog"
	"github.com/vibery-studio/vibery/internal/core/installer"
)

var installCmd = &cobra.Command{
	Use:   "install [template...]",
	Short: "Install templates into a project",
	Long: `Install one or more templates into the project's .claude directory.

Names are looked up in the catalog across all types. When the same name
exists under several types, pass the type explicitly:

  vibery install code-reviewer commit
  vibery install --agent code-reviewer --mcp github
  vibery install --skill frontend-design -d ./my-project

Templates come from the remote repository when it is reachable and from
the bundled copies otherwise. MCP templates are merged into .mcp.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		refs := collectRefs(cmd, args)
		if len(refs) == 0 {
			return errors.New("no templates specified (usage: vibery install <template>... or --agent <name>)")
		}

		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		root, err := resolveTargetDir(cmd)
		if err != nil {
			return err
		}
		if d.offline {
			d.printer.Muted("Running in offline mode")
		}
		if _, err := d.catalog(cmd); err != nil {
			return err
		}

		var (
			installed int
			last      catalog.Descriptor
		)
		for _, ref := range refs {
			desc, err := d.resolver.Find(cmd.Context(), ref.Name, ref.Type)
			if err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					d.printer.Error("Template not found: %s", ref.Name)
				} else {
					d.printer.Error("Looking up %s: %v", ref.Name, err)
				}
				continue
			}

			res := installOne(cmd.Context(), d, desc, root)
			if !res.Success {
				d.printer.Error("Failed to install %s: %v", desc.Name, res.Err)
				continue
			}
			d.printer.Success("Installed %s: %s %s", desc.Type, desc.Name, sourceLabel(res.Source))
			d.printer.Info("  → %s", res.Path)
			installed++
			last = desc
		}

		failed := len(refs) - installed
		switch {
		case len(refs) > 1 && failed == 0:
			fmt.Println()
			d.printer.Success("All %d templates installed successfully", installed)
		case len(refs) > 1:
			fmt.Println()
			d.printer.Warn("Installed %d/%d templates (%d failed)", installed, len(refs), failed)
		case installed == 1:
			fmt.Println()
			d.printer.Muted("%s", usageHint(last))
		}

		if installed == 0 {
			d.printer.Muted(`Run "vibery list" to see available templates`)
			return errors.New("no templates were installed")
		}
		return nil
	},
}

// collectRefs gathers the typed flags first, then the untyped positional
// names, preserving order within each group.
func collectRefs(cmd *cobra.Command, args []string) []catalog.Ref {
	var refs []catalog.Ref
	for _, t := range catalog.Types {
		names, _ := cmd.Flags().GetStringSlice(string(t))
		for _, name := range names {
			refs = append(refs, catalog.Ref{Name: name, Type: t})
		}
	}
	for _, name := range args {
		refs = append(refs, catalog.Ref{Name: name})
	}
	return refs
}

// installOne installs a template, showing transfer progress for skills.
func installOne(ctx context.Context, d *deps, desc catalog.Descriptor, root string) installer.Result {
	if desc.Type != catalog.TypeSkill {
		return d.installer.InstallTemplate(ctx, desc, root, nil)
	}
	progress := d.printer.StartProgress("Downloading " + desc.CleanName())
	defer progress.Stop()
	return d.installer.InstallTemplate(ctx, desc, root, progress.Update)
}

func init() {
	for _, t := range catalog.Types {
		installCmd.Flags().StringSlice(string(t), nil, fmt.Sprintf("Install the %s with this name", t))
	}
	addDirFlag(installCmd)
	installCmd.Flags().Bool("refresh", false, "Ignore cached catalog and skill archives")
	rootCmd.AddCommand(installCmd)
}
