package model

import (
	"strings"
	"time"
)

const (
	// DefaultTitle is used when extraction yields no usable title.
	DefaultTitle = "Calendar Event"
	// FallbackTitle marks the synthetic event produced when nothing at all
	// could be extracted from the input text.
	FallbackTitle = "Extracted Text Event"
	// DefaultTimezone is the zone assigned to events whose source does not
	// name one. Deployments may override it through config.
	DefaultTimezone = "Europe/Paris"

	// DefaultDuration is applied when no end time is known.
	DefaultDuration = time.Hour
)

// CalendarEvent is a finalized event, ready for serialization or display.
type CalendarEvent struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location,omitempty"`
	AllDay      bool      `json:"all_day"`

	// Timezone is an IANA zone identifier.
	Timezone string `json:"timezone,omitempty"`

	// Confidence is 0..1. Deterministic sources (structured JSON,
	// iCalendar input) report 1.0.
	Confidence float64 `json:"confidence"`
}

// CandidateEvent is a provisionally extracted event. It lives for a single
// parse call and is either promoted via Finalize or discarded.
type CandidateEvent struct {
	CalendarEvent

	// Origin names the strategy or pattern that produced the candidate,
	// e.g. "json", "ical", "schedule", "nl:iso-date".
	Origin string
}

// Finalize promotes the candidate to a CalendarEvent, enforcing:
//   - title is non-empty after trimming (DefaultTitle otherwise)
//   - End >= Start (Start + DefaultDuration otherwise)
//   - Timezone is set (defaultZone otherwise)
func (c CandidateEvent) Finalize(defaultZone string) CalendarEvent {
	ev := c.CalendarEvent

	ev.Title = strings.TrimSpace(ev.Title)
	if ev.Title == "" {
		ev.Title = DefaultTitle
	}
	if ev.End.IsZero() || ev.End.Before(ev.Start) {
		ev.End = ev.Start.Add(DefaultDuration)
	}
	if ev.Timezone == "" {
		ev.Timezone = defaultZone
	}
	if ev.Confidence < 0 {
		ev.Confidence = 0
	}
	if ev.Confidence > 1 {
		ev.Confidence = 1
	}
	return ev
}

// Format is the closed set of input shapes the parser recognizes.
type Format int

const (
	FormatNaturalLanguage Format = iota
	FormatJSONEvents
	FormatICalendarProperties
	FormatScheduleTable
)

func (f Format) String() string {
	switch f {
	case FormatJSONEvents:
		return "json-events"
	case FormatICalendarProperties:
		return "icalendar-properties"
	case FormatScheduleTable:
		return "schedule-table"
	default:
		return "natural-language"
	}
}
