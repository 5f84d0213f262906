// ABOUTME: ItemFilter and ItemUpdate describe store queries and bulk updates
// ABOUTME: Date and time fields carry raw phrases resolved by the store
package models

// ItemFilter narrows GetItems. Every set field is ANDed.
// A nil ItemIDs means no id constraint; a non-nil empty slice matches nothing.
type ItemFilter struct {
	ItemIDs           []int64
	ItemType          ItemType
	ItemStatus        ItemStatus
	Title             string
	Content           string
	StartDate         string
	StartTime         string
	EndDate           string
	EndTime           string
	RecurrencePattern string
	RecurrenceRule    *int
	SearchTimeFrame   string
}

// FilterFromSlots builds the structured part of a disambiguation query.
// Content is left out since semantic search already consumed it.
func FilterFromSlots(ids []int64, s Slots) ItemFilter {
	return ItemFilter{
		ItemIDs:           ids,
		StartDate:         s.StartDate,
		StartTime:         s.StartTime,
		EndDate:           s.EndDate,
		EndTime:           s.EndTime,
		RecurrencePattern: s.RecurrencePattern,
		RecurrenceRule:    s.RecurrenceRule,
		SearchTimeFrame:   s.SearchTimeFrame,
	}
}

// ItemUpdate lists the columns to write; empty fields are left unchanged
type ItemUpdate struct {
	Title             string
	Content           string
	ItemStatus        ItemStatus
	StartDate         string
	StartTime         string
	EndDate           string
	EndTime           string
	RecurrencePattern string
	RecurrenceRule    *int
}

// IsEmpty reports whether the update would write nothing
func (u ItemUpdate) IsEmpty() bool {
	return u == ItemUpdate{}
}
