package extract

import (
	"encoding/json"
	"strings"
	"time"

	"icsconv/internal/datetime"
	appLog "icsconv/internal/log"
	"icsconv/internal/model"
)

const jsonFallbackDescription = "Extracted from JSON format"

// jsonEvent mirrors one element of the upstream {"events": [...]} payload.
// Property names follow iCalendar naming; only DTSTART is required.
type jsonEvent struct {
	UID         string `json:"UID"`
	DTStamp     string `json:"DTSTAMP"`
	DTStart     string `json:"DTSTART"`
	DTEnd       string `json:"DTEND"`
	Summary     string `json:"SUMMARY"`
	Description string `json:"DESCRIPTION"`
	Location    string `json:"LOCATION"`
	TZID        string `json:"TZID"`
}

type jsonExtractor struct {
	env
}

func (x jsonExtractor) Extract(doc Sniffed) []model.CandidateEvent {
	out := make([]model.CandidateEvent, 0, len(doc.Events))

	for i, raw := range doc.Events {
		var je jsonEvent
		if err := json.Unmarshal(raw, &je); err != nil {
			appLog.Debug("json event skipped: undecodable element", "index", i, "err", err)
			continue
		}

		ev, ok := x.toCandidate(je)
		if !ok {
			appLog.Debug("json event skipped: unparseable DTSTART", "index", i, "dtstart", je.DTStart)
			continue
		}
		out = append(out, ev)
	}

	if len(out) == 0 {
		out = append(out, x.placeholder(jsonFallbackDescription, "json:fallback"))
	}
	return out
}

func (x jsonExtractor) toCandidate(je jsonEvent) (model.CandidateEvent, bool) {
	loc := x.loc()
	zone := strings.TrimSpace(je.TZID)
	if zone != "" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		}
	} else {
		zone = x.zone
	}

	start, err := parseJSONTime(je.DTStart, loc)
	if err != nil {
		return model.CandidateEvent{}, false
	}
	end, err := parseJSONTime(je.DTEnd, loc)
	if err != nil || end.Before(start) {
		end = start.Add(model.DefaultDuration)
	}

	title := strings.TrimSpace(je.Summary)
	if title == "" {
		title = model.DefaultTitle
	}

	return model.CandidateEvent{
		CalendarEvent: model.CalendarEvent{
			Title:       title,
			Description: je.Description,
			Start:       start,
			End:         end,
			Location:    je.Location,
			Timezone:    zone,
			Confidence:  1.0,
		},
		Origin: "json",
	}, true
}

// parseJSONTime accepts the iCalendar basic forms and, since upstream
// extractors sometimes emit them, RFC 3339 timestamps.
func parseJSONTime(v string, loc *time.Location) (time.Time, error) {
	t, err := datetime.ParseICSToken(v, loc)
	if err == nil {
		return t, nil
	}
	if rt, rerr := time.Parse(time.RFC3339, strings.TrimSpace(v)); rerr == nil {
		return rt, nil
	}
	return time.Time{}, err
}
