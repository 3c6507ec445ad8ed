package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/smile-viewer/internal"
	"github.com/iksnae/smile-viewer/internal/export"
	"github.com/spf13/cobra"
)

var (
	format     string
	exportPath string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the list of saved smiles",
	Long: `Export the list of saved smiles to various formats (jsonl, md, yaml, json).

By default the list is written to smiles.<ext> in the current directory.
Use -o - to write to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		var records []internal.SnapshotRecord
		err = internal.ShowProgress(cmd.Context(), "Fetching past smiles", func() error {
			var listErr error
			records, listErr = listSnapshots(cmd.Context(), client)
			return listErr
		})
		if err != nil {
			return fmt.Errorf("failed to list smiles: %w", err)
		}

		catalog := &export.Catalog{Source: client.BaseURL(), Snapshots: records}

		if exportPath == "-" {
			if err := exporter.Export(catalog, cmd.OutOrStdout()); err != nil {
				return &internal.ExportError{Format: format, Path: exportPath, Err: err}
			}
			return nil
		}

		path := exportPath
		if path == "" {
			path = "smiles." + exporter.Extension()
		}
		file, err := os.Create(path)
		if err != nil {
			return &internal.ExportError{Format: format, Path: path, Err: err}
		}
		if err := exporter.Export(catalog, file); err != nil {
			_ = file.Close()
			return &internal.ExportError{Format: format, Path: path, Err: err}
		}
		if err := file.Close(); err != nil {
			return &internal.ExportError{Format: format, Path: path, Err: err}
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d smile(s) exported to %s", len(records), path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "", "Output file, or - for stdout (default smiles.<ext>)")
}
