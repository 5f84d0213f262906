// ABOUTME: Resolves natural-language date and time phrases against a reference clock
// ABOUTME: Unparseable phrases resolve to nothing so callers can drop the constraint
package datetime

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const (
	// DateLayout is the stored form of calendar dates
	DateLayout = "2006-01-02"
	// TimeLayout is the stored form of clock times
	TimeLayout = "15:04"
)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	DateLayout,
}

var clockLayouts = []string{"15:04:05", TimeLayout}

var (
	clockRe  = regexp.MustCompile(`(?i)^(?:at\s+)?(\d{1,2})(?::(\d{2}))?\s*([ap])\.?\s*m\.?$`)
	periodRe = regexp.MustCompile(`(?i)^(?:in\s+|during\s+)?(?:the\s+)?(last|past|previous|this|current|next|coming)\s+(day|week|month|year)$`)
)

var casualDays = map[string]int{
	"today":     0,
	"tonight":   0,
	"now":       0,
	"tomorrow":  1,
	"yesterday": -1,
}

// Resolver turns phrases like "tomorrow", "3 PM" or "last week" into absolute times
type Resolver struct {
	parser *when.Parser
	now    func() time.Time
}

// Option configures a Resolver
type Option func(*Resolver)

// WithClock fixes the reference instant, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a Resolver with English and common rules
func NewResolver(opts ...Option) *Resolver {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r := &Resolver{parser: w, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the reference instant
func (r *Resolver) Now() time.Time {
	return r.now()
}

// Today returns midnight of the reference day
func (r *Resolver) Today() time.Time {
	return startOfDay(r.now())
}

// Resolve parses text relative to the reference instant.
// The second return is false when nothing in the text could be understood.
func (r *Resolver) Resolve(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	now := r.now()

	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return t, true
		}
	}
	for _, layout := range clockLayouts {
		if t, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return onDay(now, t.Hour(), t.Minute()), true
		}
	}
	if t, ok := parseClock(now, text); ok {
		return t, true
	}
	if t, ok := parsePeriod(now, text); ok {
		return t, true
	}
	if days, ok := casualDays[strings.ToLower(text)]; ok {
		return now.AddDate(0, 0, days), true
	}

	res, err := r.parser.Parse(text, now)
	if err != nil || res == nil {
		return time.Time{}, false
	}
	return res.Time, true
}

// ResolveDate resolves text to a YYYY-MM-DD date
func (r *Resolver) ResolveDate(text string) (string, bool) {
	t, ok := r.Resolve(text)
	if !ok {
		return "", false
	}
	return t.Format(DateLayout), true
}

// ResolveTime resolves text to an HH:MM clock time
func (r *Resolver) ResolveTime(text string) (string, bool) {
	t, ok := r.Resolve(text)
	if !ok {
		return "", false
	}
	return t.Format(TimeLayout), true
}

// Timeframe spans from today to t when t is ahead, or from t to today otherwise.
// Both ends are midnight-truncated.
func (r *Resolver) Timeframe(t time.Time) (time.Time, time.Time) {
	today := r.Today()
	day := startOfDay(t.In(today.Location()))
	if day.After(today) {
		return today, day
	}
	return day, today
}

// ResolveTimeframe resolves a vague search phrase into an inclusive date range
func (r *Resolver) ResolveTimeframe(text string) (string, string, bool) {
	t, ok := r.Resolve(text)
	if !ok {
		return "", "", false
	}
	start, end := r.Timeframe(t)
	return start.Format(DateLayout), end.Format(DateLayout), true
}

func parseClock(now time.Time, text string) (time.Time, bool) {
	switch strings.ToLower(text) {
	case "noon", "midday":
		return onDay(now, 12, 0), true
	case "midnight":
		return onDay(now, 0, 0), true
	}

	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour < 1 || hour > 12 || minute > 59 {
		return time.Time{}, false
	}
	hour %= 12
	if strings.EqualFold(m[3], "p") {
		hour += 12
	}
	return onDay(now, hour, minute), true
}

func parsePeriod(now time.Time, text string) (time.Time, bool) {
	m := periodRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	n := 0
	switch strings.ToLower(m[1]) {
	case "last", "past", "previous":
		n = -1
	case "next", "coming":
		n = 1
	}
	switch strings.ToLower(m[2]) {
	case "day":
		return now.AddDate(0, 0, n), true
	case "week":
		return now.AddDate(0, 0, 7*n), true
	case "month":
		return now.AddDate(0, n, 0), true
	default:
		return now.AddDate(n, 0, 0), true
	}
}

func onDay(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func startOfDay(t time.Time) time.Time {
	return onDay(t, 0, 0)
}
