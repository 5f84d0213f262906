// ABOUTME: Export of stored notes and events with their schedules and recurrences
// ABOUTME: Supports YAML, JSON, CSV and Markdown output
package sqlite

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/harper/agenda/internal/models"
)

// ExportFormat selects the encoding of an export
type ExportFormat string

const (
	FormatYAML     ExportFormat = "yaml"
	FormatJSON     ExportFormat = "json"
	FormatCSV      ExportFormat = "csv"
	FormatMarkdown ExportFormat = "markdown"
)

// ParseExportFormat accepts a format name or a file extension
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ExportData is the complete exportable item set
type ExportData struct {
	Version    string       `yaml:"version" json:"version"`
	ExportedAt string       `yaml:"exported_at" json:"exported_at"`
	Tool       string       `yaml:"tool" json:"tool"`
	Items      []ExportItem `yaml:"items" json:"items"`
}

// ExportItem is one item with its schedule and recurrence inlined
type ExportItem struct {
	ItemID     int64             `yaml:"item_id" json:"item_id"`
	Title      string            `yaml:"title,omitempty" json:"title,omitempty"`
	Content    string            `yaml:"content" json:"content"`
	ItemType   string            `yaml:"item_type" json:"item_type"`
	ItemStatus string            `yaml:"item_status" json:"item_status"`
	Schedule   *ExportSchedule   `yaml:"schedule,omitempty" json:"schedule,omitempty"`
	Recurrence *ExportRecurrence `yaml:"recurrence,omitempty" json:"recurrence,omitempty"`
	CreatedAt  string            `yaml:"created_at" json:"created_at"`
	UpdatedAt  string            `yaml:"updated_at" json:"updated_at"`
}

// ExportSchedule is the calendar placement of an exported event
type ExportSchedule struct {
	StartDate string `yaml:"start_date" json:"start_date"`
	StartTime string `yaml:"start_time,omitempty" json:"start_time,omitempty"`
	EndDate   string `yaml:"end_date,omitempty" json:"end_date,omitempty"`
	EndTime   string `yaml:"end_time,omitempty" json:"end_time,omitempty"`
}

// ExportRecurrence is the repeat cadence of an exported item
type ExportRecurrence struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Rule    int    `yaml:"rule" json:"rule"`
}

// Export collects the items matching f, or every item for an empty filter
func (s *ItemStore) Export(ctx context.Context, f models.ItemFilter) (*ExportData, error) {
	rows, err := s.GetItems(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().Format(time.RFC3339),
		Tool:       "agenda",
		Items:      make([]ExportItem, 0, len(rows)),
	}
	for _, row := range rows {
		item := ExportItem{
			ItemID:     row.ItemID,
			Title:      row.Title,
			Content:    row.Content,
			ItemType:   string(row.ItemType),
			ItemStatus: string(row.ItemStatus),
			CreatedAt:  row.CreatedAt.Format(time.RFC3339),
			UpdatedAt:  row.UpdatedAt.Format(time.RFC3339),
		}
		if sc := row.Schedule; sc != nil {
			item.Schedule = &ExportSchedule{
				StartDate: sc.StartDate,
				StartTime: sc.StartTime,
				EndDate:   sc.EndDate,
				EndTime:   sc.EndTime,
			}
		}
		if rec := row.Recurrence; rec != nil {
			item.Recurrence = &ExportRecurrence{Pattern: string(rec.Pattern), Rule: rec.Rule}
		}
		data.Items = append(data.Items, item)
	}

	s.logger.Debug("exported items", zap.Int("count", len(data.Items)))
	return data, nil
}

// WriteExport encodes data to w in the given format
func WriteExport(w io.Writer, data *ExportData, format ExportFormat) error {
	switch format {
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return encoder.Close()
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case FormatCSV:
		return writeCSV(w, data)
	case FormatMarkdown:
		return writeMarkdown(w, data)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// ExportToFile exports the items matching f to outputPath
func (s *ItemStore) ExportToFile(ctx context.Context, f models.ItemFilter, outputPath string, format ExportFormat) error {
	data, err := s.Export(ctx, f)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return WriteExport(file, data, format)
}

var csvHeader = []string{
	"item_id", "title", "content", "item_type", "item_status",
	"start_date", "start_time", "end_date", "end_time",
	"recurrence_pattern", "recurrence_rule", "created_at", "updated_at",
}

func writeCSV(w io.Writer, data *ExportData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, item := range data.Items {
		var sc ExportSchedule
		if item.Schedule != nil {
			sc = *item.Schedule
		}
		pattern, rule := "", ""
		if item.Recurrence != nil {
			pattern = item.Recurrence.Pattern
			rule = strconv.Itoa(item.Recurrence.Rule)
		}
		if err := cw.Write([]string{
			strconv.FormatInt(item.ItemID, 10), item.Title, item.Content, item.ItemType, item.ItemStatus,
			sc.StartDate, sc.StartTime, sc.EndDate, sc.EndTime,
			pattern, rule, item.CreatedAt, item.UpdatedAt,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeMarkdown(w io.Writer, data *ExportData) error {
	var notes, events []ExportItem
	for _, item := range data.Items {
		if item.ItemType == string(models.ItemTypeEvent) {
			events = append(events, item)
		} else {
			notes = append(notes, item)
		}
	}

	_, _ = fmt.Fprintf(w, "# Agenda Export\n\n")
	_, _ = fmt.Fprintf(w, "Generated: %s\n\n", data.ExportedAt)

	if len(events) > 0 {
		_, _ = fmt.Fprintln(w, "## Events")
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "| ID | Content | Status | Starts | Ends | Repeats |")
		_, _ = fmt.Fprintln(w, "|----|---------|--------|--------|------|---------|")
		for _, e := range events {
			var starts, ends string
			if e.Schedule != nil {
				starts = strings.TrimSpace(e.Schedule.StartDate + " " + e.Schedule.StartTime)
				ends = strings.TrimSpace(e.Schedule.EndDate + " " + e.Schedule.EndTime)
			}
			repeats := ""
			if e.Recurrence != nil {
				repeats = fmt.Sprintf("%s(%d)", e.Recurrence.Pattern, e.Recurrence.Rule)
			}
			_, _ = fmt.Fprintf(w, "| %d | %s | %s | %s | %s | %s |\n",
				e.ItemID, markdownCell(e.Content), e.ItemStatus, starts, ends, repeats)
		}
		_, _ = fmt.Fprintln(w)
	}

	if len(notes) > 0 {
		_, _ = fmt.Fprintln(w, "## Notes")
		_, _ = fmt.Fprintln(w)
		for _, n := range notes {
			mark := " "
			if n.ItemStatus == string(models.StatusCompleted) {
				mark = "x"
			}
			_, err := fmt.Fprintf(w, "- [%s] %s\n", mark, n.Content)
			if err != nil {
				return err
			}
		}
		_, _ = fmt.Fprintln(w)
	}
	return nil
}

func markdownCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
