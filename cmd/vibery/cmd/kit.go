package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vibery-studio/vibery/internal/core/kit"
)

var kitCmd = &cobra.Command{
	Use:   "kit",
	Short: "Manage kits with the external kit installer",
	Long: `Manage kits through the kit installer script (install.py).

The script is looked up at $VIBERY_KIT_INSTALLER, then next to an on-disk
templates bundle ($VIBERY_TEMPLATES_DIR/scripts/install.py), then at
.claude/skills/kit-installer/scripts/install.py in the target directory.
It runs with python3 and inherits the terminal.`,
}

var kitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available kits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newKitRunner(cmd)
		if err != nil {
			return err
		}
		return r.List(cmd.Context())
	},
}

var kitInstalledCmd = &cobra.Command{
	Use:   "installed",
	Short: "List kits installed in the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newKitRunner(cmd)
		if err != nil {
			return err
		}
		return r.Installed(cmd.Context())
	},
}

var kitInstallCmd = &cobra.Command{
	Use:   "install <kit>...",
	Short: "Install one or more kits",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newKitRunner(cmd)
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return r.Install(cmd.Context(), args, dryRun)
	},
}

var kitUninstallCmd = &cobra.Command{
	Use:   "uninstall <kit>",
	Short: "Uninstall a kit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newKitRunner(cmd)
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return r.Uninstall(cmd.Context(), args[0], dryRun)
	},
}

func newKitRunner(cmd *cobra.Command) (*kit.Runner, error) {
	d, err := newDeps(cmd)
	if err != nil {
		return nil, err
	}
	dir, err := resolveTargetDir(cmd)
	if err != nil {
		return nil, err
	}
	return d.kitRunner(dir), nil
}

func init() {
	kitCmd.PersistentFlags().StringP("dir", "d", "", "Project directory (default: current directory)")
	kitInstallCmd.Flags().Bool("dry-run", false, "Show what would be installed")
	kitUninstallCmd.Flags().Bool("dry-run", false, "Show what would be removed")

	kitCmd.AddCommand(kitListCmd)
	kitCmd.AddCommand(kitInstalledCmd)
	kitCmd.AddCommand(kitInstallCmd)
	kitCmd.AddCommand(kitUninstallCmd)
	rootCmd.AddCommand(kitCmd)
}
