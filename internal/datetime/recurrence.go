// ABOUTME: Recurrence normalization and next-occurrence arithmetic
// ABOUTME: Rules are day intervals, weekday indexes (Sunday=0) or days of month
package datetime

import (
	"fmt"
	"time"

	"github.com/harper/agenda/internal/models"
)

// NormalizeRecurrence validates a pattern and rule, deriving a missing rule from start
func NormalizeRecurrence(pattern string, rule *int, start time.Time) (models.RecurrencePattern, int, error) {
	p, err := models.ParseRecurrencePattern(pattern)
	if err != nil {
		return "", 0, err
	}
	if rule == nil {
		return p, DefaultRule(p, start), nil
	}

	n := *rule
	switch p {
	case models.PatternDaily:
		if n < 1 {
			return "", 0, fmt.Errorf("%w: daily interval must be at least 1, got %d", models.ErrInvalidRecurrence, n)
		}
	case models.PatternWeekly, models.PatternBiweekly:
		if n < 0 || n > 6 {
			return "", 0, fmt.Errorf("%w: weekday must be 0-6, got %d", models.ErrInvalidRecurrence, n)
		}
	case models.PatternMonthly:
		if n < 1 || n > 31 {
			return "", 0, fmt.Errorf("%w: day of month must be 1-31, got %d", models.ErrInvalidRecurrence, n)
		}
	}
	return p, n, nil
}

// DefaultRule picks the rule implied by a start date
func DefaultRule(p models.RecurrencePattern, start time.Time) int {
	switch p {
	case models.PatternWeekly, models.PatternBiweekly:
		return int(start.Weekday())
	case models.PatternMonthly:
		return start.Day()
	default:
		return 1
	}
}

// NextOccurrence returns the first day on or after from that the rule lands on
func NextOccurrence(p models.RecurrencePattern, rule int, from time.Time) time.Time {
	day := startOfDay(from)
	switch p {
	case models.PatternWeekly, models.PatternBiweekly:
		delta := (rule - int(day.Weekday()) + 7) % 7
		return day.AddDate(0, 0, delta)
	case models.PatternMonthly:
		for i := 0; i < 13; i++ {
			first := time.Date(day.Year(), day.Month()+time.Month(i), 1, 0, 0, 0, 0, day.Location())
			if rule > daysIn(first) {
				continue
			}
			candidate := time.Date(first.Year(), first.Month(), rule, 0, 0, 0, 0, day.Location())
			if !candidate.Before(day) {
				return candidate
			}
		}
	}
	return day
}

func daysIn(month time.Time) int {
	return time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, month.Location()).Day()
}
