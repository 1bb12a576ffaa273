package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vibery-studio/vibery/internal/core/catalog"
	"github.com/vibery-studio/vibery/internal/core/installer"
	"github.com/vibery-studio/vibery/internal/ui"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest <templates-dir>",
	Short: "Generate the templates manifest for a templates directory",
	Long: `Generate templates-manifest.json for a templates directory laid out as
<dir>/agents, <dir>/commands, ..., <dir>/skills/<name>/...

The manifest lists every file per type and every file of every skill, so
skills can be downloaded without the contents API. With --catalog a
grouped registry.json is generated too, with descriptions read from
markdown frontmatter and JSON "description" fields.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		fsys := afero.NewOsFs()
		if info, err := fsys.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("templates directory not found: %s", dir)
		}

		output, _ := cmd.Flags().GetString("output")
		catalogOut, _ := cmd.Flags().GetString("catalog")
		version, _ := cmd.Flags().GetString("version")
		p := ui.NewPrinter(os.Stdout)

		data, err := installer.GenerateManifest(fsys, dir)
		if err != nil {
			return err
		}
		if output == "" {
			fmt.Print(string(data))
		} else {
			if err := afero.WriteFile(fsys, output, data, 0o644); err != nil {
				return fmt.Errorf("writing manifest: %w", err)
			}
			p.Success("Manifest written to %s", output)
		}

		if catalogOut == "" {
			return nil
		}
		c, err := installer.GenerateCatalog(fsys, dir, version)
		if err != nil {
			return err
		}
		out, err := catalog.Marshal(c)
		if err != nil {
			return err
		}
		if err := afero.WriteFile(fsys, catalogOut, out, 0o644); err != nil {
			return fmt.Errorf("writing catalog: %w", err)
		}
		p.Success("Catalog with %d templates written to %s", c.Len(), catalogOut)
		return nil
	},
}

func init() {
	manifestCmd.Flags().StringP("output", "o", "", "Write the manifest to this file instead of stdout")
	manifestCmd.Flags().String("catalog", "", "Also write a grouped catalog to this file")
	manifestCmd.Flags().String("version", "1.0.0", "Catalog version recorded with --catalog")
	rootCmd.AddCommand(manifestCmd)
}
