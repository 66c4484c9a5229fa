package extract

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"icsconv/internal/datetime"
	appLog "icsconv/internal/log"
	"icsconv/internal/model"
)

const icalFallbackDescription = "Extracted from iCalendar format"

type icalState int

const (
	stateOutside icalState = iota
	stateInEvent
)

// pendingEvent accumulates properties until END:VEVENT or end of input.
type pendingEvent struct {
	title       string
	description string
	location    string
	timezone    string

	start, end time.Time
	hasStart   bool
	hasEnd     bool
}

// icalScanner is the line state machine behind the iCalendar strategy.
//
//	Outside --BEGIN:VEVENT--> InEvent   (pending cleared)
//	InEvent --END:VEVENT----> Outside   (pending emitted if it has a start)
//
// Property lines update the pending record in either state, so fragments
// without BEGIN/END still produce an event when input ends.
type icalScanner struct {
	env

	state   icalState
	pending pendingEvent
	out     []model.CandidateEvent
}

func (s *icalScanner) feed(line string) {
	switch line {
	case "BEGIN:VEVENT":
		s.state = stateInEvent
		s.pending = pendingEvent{}
		return
	case "END:VEVENT":
		s.state = stateOutside
		s.flush()
		return
	}

	name, params, value, ok := splitContentLine(line)
	if !ok {
		return
	}

	switch name {
	case "SUMMARY":
		s.pending.title = ical.FromText(value)
	case "DESCRIPTION":
		s.pending.description = ical.FromText(value)
	case "LOCATION":
		s.pending.location = ical.FromText(value)
	case "DTSTART":
		if t, tz, ok := s.parseDate(params, value); ok {
			s.pending.start, s.pending.hasStart = t, true
			if tz != "" {
				s.pending.timezone = tz
			}
		}
	case "DTEND":
		if t, _, ok := s.parseDate(params, value); ok {
			s.pending.end, s.pending.hasEnd = t, true
		}
	case "DTSTAMP":
		// Fallback only; a later DTSTART still wins.
		if s.pending.hasStart {
			return
		}
		if t, _, ok := s.parseDate(params, value); ok {
			s.pending.start, s.pending.hasStart = t, true
		}
	}
}

// finish emits a record left open at end of input.
func (s *icalScanner) finish() []model.CandidateEvent {
	if s.state == stateInEvent {
		appLog.Debug("ical input ended inside VEVENT", "has_start", s.pending.hasStart)
	}
	s.flush()
	if len(s.out) == 0 {
		s.out = append(s.out, s.placeholder(icalFallbackDescription, "ical:fallback"))
	}
	return s.out
}

func (s *icalScanner) flush() {
	p := s.pending
	s.pending = pendingEvent{}
	if !p.hasStart {
		return
	}

	title := strings.TrimSpace(p.title)
	if title == "" {
		title = model.DefaultTitle
	}
	end := p.end
	if !p.hasEnd || end.Before(p.start) {
		end = p.start.Add(model.DefaultDuration)
	}
	zone := p.timezone
	if zone == "" {
		zone = s.zone
	}

	s.out = append(s.out, model.CandidateEvent{
		CalendarEvent: model.CalendarEvent{
			Title:       title,
			Description: p.description,
			Start:       p.start,
			End:         end,
			Location:    p.location,
			Timezone:    zone,
			Confidence:  1.0,
		},
		Origin: "ical",
	})
}

// parseDate resolves a date property. Floating values use the TZID
// parameter when it names a loadable zone, the default zone otherwise.
func (s *icalScanner) parseDate(params map[string]string, value string) (time.Time, string, bool) {
	loc := s.loc()
	tz := params["TZID"]
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		} else {
			tz = ""
		}
	}

	t, err := datetime.ParseICSToken(value, loc)
	if err != nil {
		appLog.Debug("ical property skipped: unparseable date", "value", value)
		return time.Time{}, "", false
	}
	return t, tz, true
}

// splitContentLine splits "NAME;P1=V1;P2=V2:value" into its parts.
func splitContentLine(line string) (string, map[string]string, string, bool) {
	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return "", nil, "", false
	}
	head, value := line[:colon], line[colon+1:]

	parts := strings.Split(head, ";")
	name := strings.ToUpper(strings.TrimSpace(parts[0]))
	params := make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		params[strings.ToUpper(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(v), `"`)
	}
	return name, params, value, true
}

type icalExtractor struct {
	env
}

func (x icalExtractor) Extract(doc Sniffed) []model.CandidateEvent {
	s := &icalScanner{env: x.env}
	for _, line := range splitLines(doc.Text) {
		s.feed(line)
	}
	return s.finish()
}
