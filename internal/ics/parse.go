package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"icsconv/internal/datetime"
	appLog "icsconv/internal/log"
	"icsconv/internal/model"
)

// DecodedEvent is a VEVENT read back from an iCalendar document.
type DecodedEvent struct {
	UID string `json:"uid"`
	model.CalendarEvent
}

// Decode parses an iCalendar payload. Floating DTSTART/DTEND values are
// interpreted in the TZID parameter's zone when present, loc otherwise.
// VEVENTs without a usable DTSTART are logged and skipped.
func Decode(body []byte, loc *time.Location) ([]DecodedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics decode failed", err)
		return nil, err
	}

	events := make([]DecodedEvent, 0)
	for _, ve := range cal.Events() {
		ev, err := decodeVEvent(ve, loc)
		if err != nil {
			appLog.Error("ics vevent decode failed", err, "uid", ev.UID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics decode completed", "event_count", len(events))
	return events, nil
}

func decodeVEvent(ve *ical.VEvent, loc *time.Location) (DecodedEvent, error) {
	var out DecodedEvent

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	out.Title = textProperty(ve, ical.ComponentPropertySummary)
	out.Description = textProperty(ve, ical.ComponentPropertyDescription)
	out.Location = textProperty(ve, ical.ComponentPropertyLocation)

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, errors.New("missing DTSTART")
	}
	start, tz, err := dateProperty(startProp, loc)
	if err != nil {
		return out, err
	}
	out.Start = start
	out.Timezone = tz
	out.AllDay = isDateValue(startProp)

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		if end, _, err := dateProperty(endProp, loc); err == nil {
			out.End = end
		}
	}
	if out.End.IsZero() || out.End.Before(out.Start) {
		out.End = out.Start.Add(model.DefaultDuration)
	}
	return out, nil
}

func textProperty(ve *ical.VEvent, prop ical.ComponentProperty) string {
	p := ve.GetProperty(prop)
	if p == nil {
		return ""
	}
	return ical.FromText(p.Value)
}

// dateProperty resolves a DTSTART/DTEND value and reports the zone name it
// was read in.
func dateProperty(p *ical.IANAProperty, loc *time.Location) (time.Time, string, error) {
	if tzs := p.ICalParameters[string(ical.ParameterTzid)]; len(tzs) > 0 {
		if l, err := time.LoadLocation(tzs[0]); err == nil {
			loc = l
		}
	}
	t, err := datetime.ParseICSToken(p.Value, loc)
	if err != nil {
		return time.Time{}, "", err
	}
	if strings.HasSuffix(strings.TrimSpace(p.Value), "Z") {
		return t, "UTC", nil
	}
	return t, loc.String(), nil
}

// isDateValue reports an all-day value: VALUE=DATE or a bare YYYYMMDD.
func isDateValue(p *ical.IANAProperty) bool {
	if vs := p.ICalParameters[string(ical.ParameterValue)]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return datetime.IsDateOnly(p.Value)
}
