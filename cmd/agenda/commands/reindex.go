// ABOUTME: CLI commands for index maintenance
// ABOUTME: reindex rebuilds from the item store; reconcile replays failed index writes
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reindexCheck bool
)

// NewReindexCmd creates reindex command
func NewReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the semantic index",
		Long: `Rebuild the semantic index from every stored item.

A rebuild re-embeds each item, drops documents with no backing item
and resolves every pending reconcile task.

Examples:
  agenda reindex
  agenda reindex --check`,
		RunE: runReindex,
	}

	cmd.Flags().BoolVar(&reindexCheck, "check", false, "Only report drift between the store and the index")

	return cmd
}

func runReindex(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if reindexCheck {
		return printDrift(cmd, a.Reindexer.Drift)
	}

	n, err := a.Reindexer.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	if wantJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]int{"indexed": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d item(s)\n", n)
	return nil
}

// NewReconcileCmd creates reconcile command
func NewReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Replay index writes that failed",
		Long: `Replay pending reconcile tasks.

When an item is committed but its index write fails, a reconcile task
is recorded. This command replays those tasks and reports any drift
still left between the store and the index.`,
		RunE: runReconcile,
	}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	n, replayErr := a.Reindexer.Reconcile(cmd.Context())
	if !quiet && !wantJSON() {
		fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d task(s)\n", n)
	}
	if err := printDrift(cmd, a.Reindexer.Drift); err != nil {
		return err
	}
	if replayErr != nil {
		return fmt.Errorf("replaying tasks: %w", replayErr)
	}
	return nil
}
