// ABOUTME: Shared output helpers for CLI commands
// ABOUTME: Item tables, JSON output and colored status labels
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/agenda/internal/models"
)

// parseItemFilter validates --type and --status flag values
func parseItemFilter(itemType, itemStatus string) (models.ItemFilter, error) {
	f := models.ItemFilter{
		ItemType:   models.ItemType(strings.ToUpper(itemType)),
		ItemStatus: models.ItemStatus(strings.ToUpper(itemStatus)),
	}
	switch f.ItemType {
	case "", models.ItemTypeNote, models.ItemTypeEvent:
	default:
		return f, fmt.Errorf("unknown item type %q", itemType)
	}
	switch f.ItemStatus {
	case "", models.StatusActive, models.StatusCancelled, models.StatusCompleted:
	default:
		return f, fmt.Errorf("unknown item status %q", itemStatus)
	}
	return f, nil
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatTime formats a time for display
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	if diff < time.Minute {
		return "just now"
	} else if diff < time.Hour {
		mins := int(diff.Minutes())
		return fmt.Sprintf("%dm ago", mins)
	} else if diff < 24*time.Hour {
		hours := int(diff.Hours())
		return fmt.Sprintf("%dh ago", hours)
	} else if diff < 7*24*time.Hour {
		days := int(diff.Hours() / 24)
		return fmt.Sprintf("%dd ago", days)
	}
	return t.Format("2006-01-02")
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}

func wantJSON() bool {
	return outputFormat == "json"
}

func printJSON(w io.Writer, v any) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintf(w, "%s\n", jsonData)
	return nil
}

func statusLabel(s models.ItemStatus) string {
	switch s {
	case models.StatusActive:
		return color.New(color.FgHiGreen).Sprint(s)
	case models.StatusCompleted:
		return color.New(color.FgHiBlue).Sprint(s)
	case models.StatusCancelled:
		return color.New(color.FgRed).Sprint(s)
	}
	return string(s)
}

// when renders the schedule and recurrence columns of a row
func when(r models.ItemRow) string {
	var parts []string
	if s := r.Schedule; s != nil {
		start := strings.TrimSpace(s.StartDate + " " + s.StartTime)
		end := strings.TrimSpace(s.EndDate + " " + s.EndTime)
		if end != "" {
			start += " - " + end
		}
		parts = append(parts, start)
	}
	if rec := r.Recurrence; rec != nil {
		parts = append(parts, color.New(color.FgCyan).Sprintf("%s(%d)", rec.Pattern, rec.Rule))
	}
	return strings.Join(parts, " ")
}

// printRows writes rows as a table, or as JSON with --format json
func printRows(w io.Writer, rows []models.ItemRow) error {
	if wantJSON() {
		if rows == nil {
			rows = []models.ItemRow{}
		}
		return printJSON(w, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tTYPE\tSTATUS\tCONTENT\tWHEN\tCREATED\n")
	fmt.Fprintf(tw, "--\t----\t------\t-------\t----\t-------\n")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ItemID,
			r.ItemType,
			statusLabel(r.ItemStatus),
			truncate(r.DocumentText(), 50),
			when(r),
			formatTime(r.CreatedAt))
	}
	return tw.Flush()
}

type driftFunc func(ctx context.Context) (missing, orphaned []int64, err error)

// printDrift reports items missing from the index and orphaned documents
func printDrift(cmd *cobra.Command, drift driftFunc) error {
	missing, orphaned, err := drift(cmd.Context())
	if err != nil {
		return fmt.Errorf("checking drift: %w", err)
	}
	if wantJSON() {
		if missing == nil {
			missing = []int64{}
		}
		if orphaned == nil {
			orphaned = []int64{}
		}
		return printJSON(cmd.OutOrStdout(), map[string][]int64{"missing": missing, "orphaned": orphaned})
	}
	if len(missing) == 0 && len(orphaned) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Index is in sync")
		return nil
	}
	if len(missing) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", color.New(color.FgYellow).Sprint("missing from index:"), missing)
	}
	if len(orphaned) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", color.New(color.FgYellow).Sprint("orphaned documents:"), orphaned)
	}
	return nil
}
