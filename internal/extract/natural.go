package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"icsconv/internal/datetime"
	appLog "icsconv/internal/log"
	"icsconv/internal/model"
)

type dateKind int

const (
	kindAbsolute dateKind = iota
	kindRelative
	kindICSToken
)

// linePattern is one row of the natural-language pattern table. Group
// indexes of 0 mean "not captured".
type linePattern struct {
	name       string
	re         *regexp.Regexp
	title      int
	date       int
	clock      int
	kind       dateKind
	confidence float64
}

const monthNames = `january|february|march|april|may|june|july|august|september|october|november|december|` +
	`jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

// naturalPatterns is tried in order; the first pattern matching a line
// decides that line.
var naturalPatterns = []linePattern{
	{
		name:       "month-name",
		re:         regexp.MustCompile(`(?i)^(.*?)\s*(?:\bon\s+)?\b((?:` + monthNames + `)\s+\d{1,2},?\s+\d{4})(?:\s+at)?\s+(\d{1,2}:\d{2}(?:\s*[ap]m)?)`),
		title:      1,
		date:       2,
		clock:      3,
		kind:       kindAbsolute,
		confidence: 0.9,
	},
	{
		name:       "slash-date",
		re:         regexp.MustCompile(`^(.*?):?\s*(\d{1,2}/\d{1,2}/\d{4})\s+(\d{1,2}:\d{2})`),
		title:      1,
		date:       2,
		clock:      3,
		kind:       kindAbsolute,
		confidence: 0.85,
	},
	{
		name:       "iso-date",
		re:         regexp.MustCompile(`(?i)^(.*?)\s*(\d{4}-\d{2}-\d{2})\s+(\d{1,2}:\d{2}(?:\s*[ap]m)?)`),
		title:      1,
		date:       2,
		clock:      3,
		kind:       kindAbsolute,
		confidence: 0.9,
	},
	{
		name:       "relative",
		re:         regexp.MustCompile(`(?i)^(.*?)\s*\b(today|tonight|tomorrow|next\s+(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday))\b(?:\s+at\s+(\d{1,2}(?::\d{2})?(?:\s*[ap]m)?))?`),
		title:      1,
		date:       2,
		clock:      3,
		kind:       kindRelative,
		confidence: 0.8,
	},
	{
		name:       "ics-token",
		re:         regexp.MustCompile(`(\d{8}T\d{6}Z?)`),
		date:       1,
		kind:       kindICSToken,
		confidence: 0.95,
	},
}

var titlePrefixRe = regexp.MustCompile(`(?i)^(?:meeting|appointment|event)\b:?\s*`)

type naturalExtractor struct {
	env
	patterns []linePattern
}

func (x naturalExtractor) Extract(doc Sniffed) []model.CandidateEvent {
	var out []model.CandidateEvent

	for _, line := range splitLines(doc.Text) {
		for _, p := range x.patterns {
			m := p.re.FindStringSubmatchIndex(line)
			if m == nil {
				continue
			}
			if ev, ok := x.fromMatch(p, line, m); ok {
				out = append(out, ev)
			} else {
				appLog.Debug("natural-language line skipped: unparseable date", "pattern", p.name, "line", line)
			}
			break
		}
	}
	return out
}

func (x naturalExtractor) fromMatch(p linePattern, line string, m []int) (model.CandidateEvent, bool) {
	date := group(line, m, p.date)
	clock := group(line, m, p.clock)
	confidence := p.confidence

	var start time.Time
	var err error
	switch p.kind {
	case kindAbsolute:
		start, err = x.resolver.ParseDateTime(date, clock)
	case kindRelative:
		var explicit bool
		start, explicit, err = x.resolver.ResolveRelative(date, clock)
		if !explicit {
			confidence /= 2
		}
	case kindICSToken:
		start, err = datetime.ParseICSToken(date, x.loc())
	}
	if err != nil {
		return model.CandidateEvent{}, false
	}

	rawTitle := group(line, m, p.title)
	if strings.TrimSpace(rawTitle) == "" {
		rawTitle = line[:m[0]] + " " + line[m[1]:]
	}

	return model.CandidateEvent{
		CalendarEvent: model.CalendarEvent{
			Title:       cleanTitle(rawTitle),
			Description: "Extracted from: " + line,
			Start:       start,
			End:         start.Add(model.DefaultDuration),
			Timezone:    x.zone,
			Confidence:  confidence,
		},
		Origin: "nl:" + p.name,
	}, true
}

// cleanTitle trims separators, drops a leading "meeting"/"appointment"/
// "event" label and falls back to DefaultTitle for titles shorter than two
// characters. A bare label therefore becomes DefaultTitle.
func cleanTitle(raw string) string {
	t := strings.Trim(strings.TrimSpace(raw), " \t:,;-@")
	t = strings.TrimSpace(titlePrefixRe.ReplaceAllString(t, ""))
	if utf8.RuneCountInString(t) < 2 {
		return model.DefaultTitle
	}
	return t
}

func group(s string, m []int, idx int) string {
	if idx <= 0 || 2*idx+1 >= len(m) || m[2*idx] < 0 {
		return ""
	}
	return s[m[2*idx]:m[2*idx+1]]
}
