package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local template cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is cached",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		st := d.cache.Stats()
		p := d.printer

		p.Title("Cache Status")
		p.Info("Location: %s", st.Dir)

		p.Section("Registry Cache")
		if st.CatalogExists {
			status := "✓ Valid"
			if !st.CatalogValid {
				status = "✗ Expired"
			}
			p.Info("  Status: %s", status)
			p.Info("  Age: %s", formatAge(st.CatalogAge))
			p.Info("  Size: %s", formatBytes(st.CatalogSize))
		} else {
			p.Info("  Status: Not cached")
		}

		p.Section("Template Archives")
		p.Info("  Count: %d files", st.ArchiveCount)
		p.Info("  Total Size: %s", formatBytes(st.ArchiveTotalBytes))
		if len(st.Archives) > 0 {
			fmt.Println()
			rows := make([][]any, 0, len(st.Archives))
			for _, a := range st.Archives {
				rows = append(rows, []any{a.Name, formatBytes(a.Size)})
			}
			p.Table([]any{"Archive", "Size"}, rows)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached data",
	Long: `Remove cached data. Without flags the whole cache directory is
removed; --registry drops only the catalog and --archives only the skill
archives.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		registry, _ := cmd.Flags().GetBool("registry")
		archives, _ := cmd.Flags().GetBool("archives")

		switch {
		case registry:
			if err := d.cache.ClearCatalog(); err != nil {
				return err
			}
			d.printer.Success("Registry cache cleared")
		case archives:
			if err := d.cache.ClearArchives(); err != nil {
				return err
			}
			d.printer.Success("Template archives cleared")
		default:
			if err := d.cache.ClearAll(); err != nil {
				return err
			}
			d.printer.Success("Cache cleared")
		}
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().Bool("registry", false, "Only clear the cached catalog")
	cacheClearCmd.Flags().Bool("archives", false, "Only clear cached skill archives")
	cacheClearCmd.MarkFlagsMutuallyExclusive("registry", "archives")

	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
