// Package datetime turns raw date/time tokens and a small relative-date
// vocabulary into absolute timestamps.
package datetime

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	// Embedded zone database so the configured default zone resolves even on
	// minimal container images.
	_ "time/tzdata"

	appLog "icsconv/internal/log"
)

// DefaultHour is the time of day assigned to relative dates that carry no
// explicit clock ("tomorrow", "next friday").
const DefaultHour = 9

var ErrUnsupportedFormat = errors.New("datetime: unsupported format")

// Resolver resolves tokens against a fixed location and a reference "now".
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

// NewResolver constructs a Resolver. A nil loc means UTC; a nil now means
// time.Now.
func NewResolver(loc *time.Location, now func() time.Time) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{loc: loc, now: now}
}

// Location returns the zone used for floating (zone-less) values.
func (r *Resolver) Location() *time.Location { return r.loc }

// Now returns the reference instant in the resolver's location.
func (r *Resolver) Now() time.Time { return r.now().In(r.loc) }

// ResolveLocation loads an IANA zone, falling back to time.Local on error.
func ResolveLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

var (
	icsUTCRe   = regexp.MustCompile(`^\d{8}T\d{6}Z$`)
	icsLocalRe = regexp.MustCompile(`^\d{8}T\d{6}$`)
	icsDateRe  = regexp.MustCompile(`^\d{8}$`)
)

// ParseICSToken parses the value part of a DTSTART/DTEND/DTSTAMP property.
//
// Accepted shapes:
//   - 20250915T080000Z  UTC
//   - 20250915T080000   floating, interpreted in loc
//   - 20250915          date only, midnight in loc
func ParseICSToken(value string, loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(value)
	if loc == nil {
		loc = time.UTC
	}

	switch {
	case icsUTCRe.MatchString(v):
		return time.Parse("20060102T150405Z", v)
	case icsLocalRe.MatchString(v):
		return time.ParseInLocation("20060102T150405", v, loc)
	case icsDateRe.MatchString(v):
		return time.ParseInLocation("20060102", v, loc)
	}
	return time.Time{}, fmt.Errorf("%w: ics token %q", ErrUnsupportedFormat, v)
}

// IsDateOnly reports whether an ICS token carries no time-of-day.
func IsDateOnly(value string) bool {
	return icsDateRe.MatchString(strings.TrimSpace(value))
}

var dateLayouts = []string{
	"January 2 2006",
	"Jan 2 2006",
	"1/2/2006",
	"2006-01-02",
}

var clockLayouts = []string{
	"3:04PM",
	"3PM",
	"15:04",
	"15",
}

// ParseDateTime parses an absolute date token plus an optional clock token
// in the resolver's location. Dates may be "January 15, 2025", "Jan 15 2025",
// "01/15/2025" or "2025-01-15"; clocks "2:00 PM", "2pm" or "14:00".
func (r *Resolver) ParseDateTime(date, clock string) (time.Time, error) {
	d := normalizeDate(date)
	day, err := parseFirst(d, dateLayouts, r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrUnsupportedFormat, date)
	}
	if strings.TrimSpace(clock) == "" {
		return day, nil
	}

	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, r.loc), nil
}

// ParseClock parses a time-of-day token and returns hour and minute.
func ParseClock(clock string) (int, int, error) {
	c := strings.ToUpper(strings.Join(strings.Fields(clock), ""))
	t, err := parseFirst(c, clockLayouts, time.UTC)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrUnsupportedFormat, clock)
	}
	return t.Hour(), t.Minute(), nil
}

// ResolveRelative resolves "today", "tonight", "tomorrow" or
// "next <weekday>" against the reference now. The returned bool is false
// when clock was empty and DefaultHour was applied.
func (r *Resolver) ResolveRelative(phrase, clock string) (time.Time, bool, error) {
	now := r.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)

	var day time.Time
	p := strings.ToLower(strings.Join(strings.Fields(phrase), " "))
	switch {
	case p == "today" || p == "tonight":
		day = today
	case p == "tomorrow":
		day = today.AddDate(0, 0, 1)
	case strings.HasPrefix(p, "next "):
		wd, ok := weekdayByName[strings.TrimPrefix(p, "next ")]
		if !ok {
			return time.Time{}, false, fmt.Errorf("%w: relative phrase %q", ErrUnsupportedFormat, phrase)
		}
		next, err := NextWeekday(today, wd)
		if err != nil {
			return time.Time{}, false, err
		}
		day = next
	default:
		return time.Time{}, false, fmt.Errorf("%w: relative phrase %q", ErrUnsupportedFormat, phrase)
	}

	hour, minute, explicit := DefaultHour, 0, false
	if strings.TrimSpace(clock) != "" {
		h, m, err := ParseClock(clock)
		if err != nil {
			return time.Time{}, false, err
		}
		hour, minute, explicit = h, m, true
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, r.loc), explicit, nil
}

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func normalizeDate(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, ",", " ")), " ")
}

func parseFirst(value string, layouts []string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
