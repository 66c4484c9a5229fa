package extract

import (
	"strings"
	"time"

	"icsconv/internal/datetime"
	appLog "icsconv/internal/log"
	"icsconv/internal/model"
)

const (
	scheduleFirstHour = 8
	scheduleHours     = 8
	scheduleDays      = 5

	knownSubjectConfidence     = 0.7
	heuristicSubjectConfidence = 0.5
)

// scheduleExtractor rebuilds a weekly timetable from text such as
// "8H00 PHYSIQUE-CHIMIE BASSE M. B714".
//
// The times in the text are not trusted. Each distinct subject gets a
// synthetic one-hour slot in the current ISO week: day = index mod 5
// (Monday first), hour = 8 + (index / 5) mod 8.
type scheduleExtractor struct {
	env
	subjects SubjectMatcher
}

type scheduleEntry struct {
	subject Subject
	line    string
	room    string
}

func (x scheduleExtractor) Extract(doc Sniffed) []model.CandidateEvent {
	var entries []scheduleEntry
	seen := make(map[string]bool)

	for _, line := range splitLines(doc.Text) {
		for _, seg := range timeSegments(line) {
			room := firstRoomCode(seg)
			for _, subj := range x.subjects.Subjects(seg) {
				key := strings.ToUpper(subj.Name)
				if seen[key] {
					continue
				}
				seen[key] = true
				entries = append(entries, scheduleEntry{subject: subj, line: line, room: room})
			}
		}
	}
	if len(entries) == 0 {
		return nil
	}

	days, err := datetime.SchoolDays(x.resolver.Now())
	if err != nil {
		appLog.Error("schedule: failed to compute school week", err)
		return nil
	}

	out := make([]model.CandidateEvent, 0, len(entries))
	for i, e := range entries {
		day := days[i%scheduleDays]
		hour := scheduleFirstHour + (i/scheduleDays)%scheduleHours
		start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, x.loc())

		confidence := heuristicSubjectConfidence
		if e.subject.Known {
			confidence = knownSubjectConfidence
		}

		out = append(out, model.CandidateEvent{
			CalendarEvent: model.CalendarEvent{
				Title:       e.subject.Name,
				Description: "Extracted from schedule: " + e.line,
				Start:       start,
				End:         start.Add(model.DefaultDuration),
				Location:    e.room,
				Timezone:    x.zone,
				Confidence:  confidence,
			},
			Origin: "schedule",
		})
	}
	return out
}

// timeSegments returns the text following each time marker on line, each
// segment running up to the next marker.
func timeSegments(line string) []string {
	locs := timeMarkerRe.FindAllStringIndex(line, -1)
	segs := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(line)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		seg := strings.TrimSpace(line[loc[1]:end])
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

func firstRoomCode(seg string) string {
	for _, tok := range strings.Fields(seg) {
		tok = strings.Trim(tok, ",;:")
		if roomCodeRe.MatchString(tok) {
			return tok
		}
	}
	return ""
}
