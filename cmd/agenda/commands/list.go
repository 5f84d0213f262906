// ABOUTME: CLI command to list notes and events
// ABOUTME: Reads the item store directly, optionally filtered by type and status
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/agenda/internal/models"
)

var (
	listType   string
	listStatus string
)

// NewListCmd creates list command
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes and events",
		Long: `List stored notes and events.

Examples:
  agenda list
  agenda list --type event --status active
  agenda list --format json`,
		RunE: runList,
	}

	cmd.Flags().StringVar(&listType, "type", "", "Only NOTE or EVENT items")
	cmd.Flags().StringVar(&listStatus, "status", "", "Only ACTIVE, CANCELLED or COMPLETED items")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	f, err := parseItemFilter(listType, listStatus)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var rows []models.ItemRow
	if f.ItemType == "" && f.ItemStatus == "" {
		rows, err = a.Items.ListItems(cmd.Context())
	} else {
		rows, err = a.Items.GetItems(cmd.Context(), f)
	}
	if err != nil {
		return fmt.Errorf("listing items: %w", err)
	}

	if len(rows) == 0 && !wantJSON() {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No items found\n")
		}
		return nil
	}
	if err := printRows(cmd.OutOrStdout(), rows); err != nil {
		return err
	}
	if !quiet && !wantJSON() {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d item(s)\n", len(rows))
	}
	return nil
}
