// ABOUTME: CLI command to export notes and events
// ABOUTME: Writes YAML, JSON, CSV or Markdown to a file or stdout

package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harper/agenda/internal/storage/sqlite"
)

var (
	exportOutput string
	exportAs     string
	exportType   string
	exportStatus string
)

// NewExportCmd creates export command
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export notes and events",
		Long: `Export stored items with their schedules and recurrences.

The format follows --as, or the output file's extension, or YAML.

Examples:
  agenda export
  agenda export -o agenda.csv
  agenda export --as markdown --type event`,
		RunE: runExport,
	}

	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&exportAs, "as", "", "Export format: yaml, json, csv or markdown")
	cmd.Flags().StringVar(&exportType, "type", "", "Only NOTE or EVENT items")
	cmd.Flags().StringVar(&exportStatus, "status", "", "Only ACTIVE, CANCELLED or COMPLETED items")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	f, err := parseItemFilter(exportType, exportStatus)
	if err != nil {
		return err
	}

	format := sqlite.FormatYAML
	switch {
	case exportAs != "":
		format, err = sqlite.ParseExportFormat(exportAs)
	case filepath.Ext(exportOutput) != "":
		format, err = sqlite.ParseExportFormat(filepath.Ext(exportOutput))
	}
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if exportOutput != "" {
		if err := a.Items.ExportToFile(cmd.Context(), f, exportOutput, format); err != nil {
			return fmt.Errorf("exporting items: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s (%s)\n", exportOutput, format)
		}
		return nil
	}

	data, err := a.Items.Export(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("exporting items: %w", err)
	}
	return sqlite.WriteExport(cmd.OutOrStdout(), data, format)
}
