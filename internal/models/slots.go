// ABOUTME: Slots is the fixed set of fields extracted from an utterance
// ABOUTME: Empty strings and a nil rule stand for null slot values
package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Slot keys, in the order they are presented to the model
const (
	SlotContent           = "content"
	SlotStartDate         = "start_date"
	SlotStartTime         = "start_time"
	SlotEndDate           = "end_date"
	SlotEndTime           = "end_time"
	SlotRecurrencePattern = "recurrence_pattern"
	SlotRecurrenceRule    = "recurrence_rule"
	SlotSearchTimeFrame   = "search_time_frame"
)

// SlotKeys is the complete key set every slot map carries
var SlotKeys = []string{
	SlotContent,
	SlotStartDate,
	SlotStartTime,
	SlotEndDate,
	SlotEndTime,
	SlotRecurrencePattern,
	SlotRecurrenceRule,
	SlotSearchTimeFrame,
}

// Slots holds raw extracted phrases; date and time values are resolved later
type Slots struct {
	Content           string `json:"content"`
	StartDate         string `json:"start_date"`
	StartTime         string `json:"start_time"`
	EndDate           string `json:"end_date"`
	EndTime           string `json:"end_time"`
	RecurrencePattern string `json:"recurrence_pattern"`
	RecurrenceRule    *int   `json:"recurrence_rule"`
	SearchTimeFrame   string `json:"search_time_frame"`
}

// IsZero reports whether every slot is null
func (s Slots) IsZero() bool {
	return s == Slots{}
}

// Map renders the slots with every key present and nil for null values
func (s Slots) Map() map[string]any {
	m := make(map[string]any, len(SlotKeys))
	str := func(v string) any {
		if v == "" {
			return nil
		}
		return v
	}
	m[SlotContent] = str(s.Content)
	m[SlotStartDate] = str(s.StartDate)
	m[SlotStartTime] = str(s.StartTime)
	m[SlotEndDate] = str(s.EndDate)
	m[SlotEndTime] = str(s.EndTime)
	m[SlotRecurrencePattern] = str(s.RecurrencePattern)
	m[SlotSearchTimeFrame] = str(s.SearchTimeFrame)
	if s.RecurrenceRule != nil {
		m[SlotRecurrenceRule] = *s.RecurrenceRule
	} else {
		m[SlotRecurrenceRule] = nil
	}
	return m
}

// SlotsFromMap projects an arbitrary decoded JSON object onto the slot key set.
// Unknown keys are dropped and missing keys stay null.
func SlotsFromMap(m map[string]any) Slots {
	var s Slots
	if m == nil {
		return s
	}
	s.Content = slotString(m[SlotContent])
	s.StartDate = slotString(m[SlotStartDate])
	s.StartTime = slotString(m[SlotStartTime])
	s.EndDate = slotString(m[SlotEndDate])
	s.EndTime = slotString(m[SlotEndTime])
	s.RecurrencePattern = slotString(m[SlotRecurrencePattern])
	s.SearchTimeFrame = slotString(m[SlotSearchTimeFrame])
	s.RecurrenceRule = slotInt(m[SlotRecurrenceRule])
	return s
}

func slotString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		t = strings.TrimSpace(t)
		switch strings.ToLower(t) {
		case "null", "none", "nil", "n/a":
			return ""
		}
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func slotInt(v any) *int {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return nil
		}
		n := int(t)
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}

// IntPtr is a convenience for building slots with a rule
func IntPtr(n int) *int {
	return &n
}
