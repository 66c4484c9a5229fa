package ics

import (
	"strings"

	goical "github.com/emersion/go-ical"

	appLog "icsconv/internal/log"
)

// Validate performs the structural check applied before export: the
// VCALENDAR envelope, at least one VEVENT, a VERSION and a PRODID line.
// It never panics.
func Validate(text string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Error("ics validate panicked", nil, "panic", r)
			ok = false
		}
	}()

	var begin, end, event, version, prodID bool
	for _, line := range strings.Split(text, crlf) {
		switch {
		case line == "BEGIN:VCALENDAR":
			begin = true
		case line == "END:VCALENDAR":
			end = true
		case line == "BEGIN:VEVENT":
			event = true
		case strings.HasPrefix(line, "VERSION:"):
			version = true
		case strings.HasPrefix(line, "PRODID:"):
			prodID = true
		}
	}
	return begin && end && event && version && prodID
}

// ValidateStrict additionally requires text to decode as a VCALENDAR with
// at least one VEVENT child.
func ValidateStrict(text string) bool {
	if !Validate(text) {
		return false
	}

	cal, err := goical.NewDecoder(strings.NewReader(text)).Decode()
	if err != nil {
		appLog.Debug("ics strict validation: decode failed", "err", err)
		return false
	}
	if cal.Name != goical.CompCalendar {
		return false
	}
	for _, child := range cal.Children {
		if child.Name == goical.CompEvent {
			return true
		}
	}
	return false
}
