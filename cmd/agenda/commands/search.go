// ABOUTME: CLI command for semantic search over notes and events
// ABOUTME: Queries the index directly without classification
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/agenda/internal/models"
)

var (
	searchLimit int
)

// NewSearchCmd creates search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over notes and events",
		Long: `Search stored items by meaning rather than exact words.

Examples:
  agenda search "groceries"
  agenda search --limit 10 "doctor visits"
  agenda search --format json "travel"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 5, "Maximum results to return")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(searchLimit, "limit"); err != nil {
		return err
	}
	query := strings.Join(args, " ")

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	matches, err := a.Index.SearchK(ctx, query, searchLimit, a.Config.RelevanceThreshold, nil)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	if len(matches) == 0 && !wantJSON() {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No items found for query: %s\n", query)
		}
		return nil
	}

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.ItemID
	}
	rows, err := a.Items.GetItems(ctx, models.ItemFilter{ItemIDs: ids})
	if err != nil {
		return fmt.Errorf("loading items: %w", err)
	}
	if err := printRows(cmd.OutOrStdout(), models.SortByRank(rows, ids)); err != nil {
		return err
	}
	if !quiet && !wantJSON() {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d result(s)\n", len(rows))
	}
	return nil
}
