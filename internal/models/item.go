// ABOUTME: Item, Schedule and Recurrence records owned by the relational store
// ABOUTME: ItemRow is the flattened item⋈schedule⋈recurrence row returned by queries
package models

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ItemType distinguishes plain notes from scheduled events
type ItemType string

const (
	ItemTypeNote  ItemType = "NOTE"
	ItemTypeEvent ItemType = "EVENT"
)

// ItemStatus is the lifecycle state of an item
type ItemStatus string

const (
	StatusActive    ItemStatus = "ACTIVE"
	StatusCancelled ItemStatus = "CANCELLED"
	StatusCompleted ItemStatus = "COMPLETED"
)

// RecurrencePattern is the repeat cadence of a recurring item
type RecurrencePattern string

const (
	PatternDaily    RecurrencePattern = "DAILY"
	PatternWeekly   RecurrencePattern = "WEEKLY"
	PatternBiweekly RecurrencePattern = "BIWEEKLY"
	PatternMonthly  RecurrencePattern = "MONTHLY"
)

// ParseRecurrencePattern accepts any casing and surrounding whitespace
func ParseRecurrencePattern(s string) (RecurrencePattern, error) {
	p := RecurrencePattern(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PatternDaily, PatternWeekly, PatternBiweekly, PatternMonthly:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown pattern %q", ErrInvalidRecurrence, s)
}

// Item is a stored note or event
type Item struct {
	ItemID       int64      `json:"item_id"`
	Title        string     `json:"title,omitempty"`
	Content      string     `json:"content"`
	ItemType     ItemType   `json:"item_type"`
	ItemStatus   ItemStatus `json:"item_status"`
	RecurrenceID *int64     `json:"recurrence_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Schedule holds the calendar placement of an EVENT item.
// Dates are YYYY-MM-DD and times HH:MM; empty means unset.
type Schedule struct {
	ScheduleID int64  `json:"schedule_id"`
	ItemID     int64  `json:"item_id"`
	StartDate  string `json:"start_date"`
	StartTime  string `json:"start_time,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
}

// Recurrence is shared by every item repeating on the same (pattern, rule)
type Recurrence struct {
	RecurrenceID int64             `json:"recurrence_id"`
	Pattern      RecurrencePattern `json:"recurrence_pattern"`
	Rule         int               `json:"recurrence_rule"`
}

// ItemRow is one item joined with its optional schedule and recurrence
type ItemRow struct {
	Item
	Schedule   *Schedule   `json:"schedule,omitempty"`
	Recurrence *Recurrence `json:"recurrence,omitempty"`
}

// DocumentText is the text embedded for an item: title and content joined by a space
func (r ItemRow) DocumentText() string {
	return strings.TrimSpace(r.Title + " " + r.Content)
}

// ItemIDs collects the ids of rows in order
func ItemIDs(rows []ItemRow) []int64 {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ItemID
	}
	return ids
}

// SortByRank orders rows by the position of their id in ranked.
// Rows whose id is not ranked keep their relative order at the end.
func SortByRank(rows []ItemRow, ranked []int64) []ItemRow {
	pos := make(map[int64]int, len(ranked))
	for i, id := range ranked {
		if _, seen := pos[id]; !seen {
			pos[id] = i
		}
	}
	rank := func(id int64) int {
		if i, ok := pos[id]; ok {
			return i
		}
		return len(ranked)
	}
	slices.SortStableFunc(rows, func(a, b ItemRow) int {
		return cmp.Compare(rank(a.ItemID), rank(b.ItemID))
	})
	return rows
}
