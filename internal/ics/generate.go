// Package ics serializes calendar events into RFC 5545 text and reads it
// back. Only the VCALENDAR/VEVENT envelope subset is produced: no
// recurrence, alarms or attendees.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"icsconv/internal/model"
)

// DefaultProdID is emitted when Encoder.ProdID is empty.
const DefaultProdID = "-//icsconv//Calendar Converter//EN"

const (
	crlf       = "\r\n"
	dateLayout = "20060102"
	utcLayout  = "20060102T150405Z"
)

// Encoder renders events as an iCalendar document. The zero value is ready
// to use.
type Encoder struct {
	ProdID string
	Now    func() time.Time
	// NewUID returns the UID of the event at index for a document generated
	// at now. Results must be unique within one call.
	NewUID func(now time.Time, index int) string
}

// Encode emits the calendar in input order with CRLF line endings.
func (e Encoder) Encode(events []model.CalendarEvent) string {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	prodID := e.ProdID
	if prodID == "" {
		prodID = DefaultProdID
	}
	newUID := e.NewUID
	if newUID == nil {
		newUID = defaultUID
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
	}
	stamp := now.UTC().Format(utcLayout)

	for i, ev := range events {
		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+newUID(now, i),
			"DTSTAMP:"+stamp,
			"DTSTART:"+formatDate(ev.Start, ev.AllDay),
			"DTEND:"+formatDate(ev.End, ev.AllDay),
			"SUMMARY:"+escapeText(ev.Title),
		)
		if ev.Description != "" {
			lines = append(lines, "DESCRIPTION:"+escapeText(ev.Description))
		}
		if ev.Location != "" {
			lines = append(lines, "LOCATION:"+escapeText(ev.Location))
		}
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR")

	return strings.Join(lines, crlf)
}

// GenerateICS encodes events with the default Encoder.
func GenerateICS(events []model.CalendarEvent) string {
	return Encoder{}.Encode(events)
}

func defaultUID(now time.Time, index int) string {
	return fmt.Sprintf("event-%d-%d-%s@icsconv", now.UnixMilli(), index, uuid.NewString()[:8])
}

// formatDate writes all-day values as the calendar date of t in its own
// location and timed values as UTC with a Z suffix.
func formatDate(t time.Time, allDay bool) string {
	if allDay {
		return t.Format(dateLayout)
	}
	return t.UTC().Format(utcLayout)
}

var newlineNormalizer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// escapeText applies RFC 5545 TEXT escaping. ical.ToText is a single-pass
// replacer, so backslashes it introduces are never escaped twice.
func escapeText(s string) string {
	return ical.ToText(newlineNormalizer.Replace(s))
}
