package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"slices"
	"strings"

	"icsconv/internal/model"
)

// Sniffed is the result of a single classification pass over the input.
type Sniffed struct {
	Format model.Format
	Text   string

	// Events holds the raw elements of the "events" array when Format is
	// FormatJSONEvents.
	Events []json.RawMessage
}

var (
	icalPropertyRe = regexp.MustCompile(`^(DTSTART|DTEND|DTSTAMP|SUMMARY|DESCRIPTION)[:;]`)
	timeMarkerRe   = regexp.MustCompile(`\d{1,2}H\d{2}`)
)

// Classify returns the format of text. Precedence is JSON, then iCalendar
// property lines, then schedule tables, then natural language.
func Classify(text string) model.Format {
	return Sniff(text).Format
}

// Sniff classifies text and keeps whatever the classification decoded.
func Sniff(text string) Sniffed {
	if events, ok := findEventsJSON(text); ok {
		return Sniffed{Format: model.FormatJSONEvents, Text: text, Events: events}
	}

	lines := splitLines(text)
	for _, line := range lines {
		if icalPropertyRe.MatchString(line) {
			return Sniffed{Format: model.FormatICalendarProperties, Text: text}
		}
	}
	for _, line := range lines {
		if timeMarkerRe.MatchString(line) {
			return Sniffed{Format: model.FormatScheduleTable, Text: text}
		}
	}
	return Sniffed{Format: model.FormatNaturalLanguage, Text: text}
}

// maxEnvelopeAttempts bounds how many embedded objects are decoded per
// input.
const maxEnvelopeAttempts = 32

// findEventsJSON accepts either a whole-text JSON object or the first
// balanced {...} block with an "events" key that decodes with a top-level
// events array. Prose around the block is ignored.
func findEventsJSON(text string) ([]json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if events, ok := decodeEnvelope(trimmed); ok {
		return events, true
	}

	for i, c := range envelopeCandidates(text) {
		if i == maxEnvelopeAttempts {
			break
		}
		if events, ok := decodeEnvelope(text[c.open : c.close+1]); ok {
			return events, true
		}
	}
	return nil, false
}

func decodeEnvelope(s string) ([]json.RawMessage, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	raw, ok := obj["events"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return nil, false
	}

	var events []json.RawMessage
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, false
	}
	if events == nil {
		events = []json.RawMessage{}
	}
	return events, true
}

type braceSpan struct {
	open, close int
}

// envelopeCandidates pairs braces in a single pass and returns the balanced
// objects that carry a direct "events" key, ordered by opening position.
// Braces and quotes outside any object are prose and ignored; braces inside
// string literals do not count.
func envelopeCandidates(s string) []braceSpan {
	type frame struct {
		open      int
		hasEvents bool
	}
	var (
		stack    []frame
		spans    []braceSpan
		inString bool
		escaped  bool
		strStart int
		lastKey  string
		keyOpen  bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				lastKey = s[strStart:i]
				keyOpen = true
			}
			continue
		}

		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case ':':
			if keyOpen && lastKey == "events" && len(stack) > 0 {
				stack[len(stack)-1].hasEvents = true
			}
		case '"':
			if len(stack) > 0 {
				inString = true
				strStart = i + 1
			}
		case '{':
			stack = append(stack, frame{open: i})
		case '}':
			if len(stack) == 0 {
				break
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.hasEvents {
				spans = append(spans, braceSpan{open: top.open, close: i})
			}
		}
		keyOpen = false
	}

	// Inner objects close first.
	slices.SortFunc(spans, func(a, b braceSpan) int { return a.open - b.open })
	return spans
}

// splitLines splits on LF, drops CRs and surrounding blanks, and skips empty
// lines.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}
