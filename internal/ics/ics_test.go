package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icsconv/internal/model"
)

func fixedEncoder(now time.Time) Encoder {
	return Encoder{
		ProdID: "-//test//EN",
		Now:    func() time.Time { return now },
	}
}

func sampleEvents(t *testing.T) []model.CalendarEvent {
	t.Helper()
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	start := time.Date(2025, 1, 15, 14, 0, 0, 0, paris)
	return []model.CalendarEvent{
		{Title: "Team Meeting", Start: start, End: start.Add(time.Hour), Timezone: "Europe/Paris"},
		{Title: "Review", Description: "Quarterly", Location: "Room 4", Start: start.Add(2 * time.Hour), End: start.Add(3 * time.Hour), Timezone: "Europe/Paris"},
	}
}

func TestEncode_Layout(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 10, 8, 30, 0, 0, time.UTC)
	out := fixedEncoder(now).Encode(sampleEvents(t))
	lines := strings.Split(out, "\r\n")

	assert.Equal(t, []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN", "CALSCALE:GREGORIAN"}, lines[:4])
	assert.Equal(t, "END:VCALENDAR", lines[len(lines)-1])
	assert.NotContains(t, strings.ReplaceAll(out, "\r\n", ""), "\n")

	first := lines[4:11]
	assert.Equal(t, "BEGIN:VEVENT", first[0])
	assert.True(t, strings.HasPrefix(first[1], "UID:event-"))
	assert.Equal(t, "DTSTAMP:20250110T083000Z", first[2])
	assert.Equal(t, "DTSTART:20250115T130000Z", first[3])
	assert.Equal(t, "DTEND:20250115T140000Z", first[4])
	assert.Equal(t, "SUMMARY:Team Meeting", first[5])
	// No empty DESCRIPTION/LOCATION lines.
	assert.Equal(t, "END:VEVENT", first[6])

	assert.Contains(t, lines, "DESCRIPTION:Quarterly")
	assert.Contains(t, lines, "LOCATION:Room 4")
}

func TestEncode_UniqueUIDs(t *testing.T) {
	t.Parallel()

	events := make([]model.CalendarEvent, 5)
	for i := range events {
		events[i] = model.CalendarEvent{Title: "Same", Start: time.Unix(0, 0), End: time.Unix(3600, 0)}
	}
	out := GenerateICS(events)

	seen := map[string]bool{}
	for _, l := range strings.Split(out, "\r\n") {
		if strings.HasPrefix(l, "UID:") {
			assert.False(t, seen[l], "duplicate %s", l)
			seen[l] = true
		}
	}
	assert.Len(t, seen, 5)
}

func TestEncode_AllDay(t *testing.T) {
	t.Parallel()

	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := GenerateICS([]model.CalendarEvent{{Title: "Holiday", Start: day, End: day.AddDate(0, 0, 1), AllDay: true}})

	assert.Contains(t, out, "\r\nDTSTART:20250301\r\n")
	assert.Contains(t, out, "\r\nDTEND:20250302\r\n")
}

func TestEncode_Escaping(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)
	out := GenerateICS([]model.CalendarEvent{{
		Title:       "Lunch; then, talk\nabout C:\\path",
		Description: "a\r\nb",
		Start:       start,
		End:         start.Add(time.Hour),
	}})

	var summary string
	for _, l := range strings.Split(out, "\r\n") {
		if strings.HasPrefix(l, "SUMMARY:") {
			summary = strings.TrimPrefix(l, "SUMMARY:")
		}
	}
	assert.Equal(t, `Lunch\; then\, talk\nabout C:\\path`, summary)

	unescaped := strings.NewReplacer(`\\`, "", `\;`, "", `\,`, "", `\n`, "").Replace(summary)
	assert.NotContains(t, unescaped, ";")
	assert.NotContains(t, unescaped, ",")
	assert.NotContains(t, unescaped, "\n")

	assert.Contains(t, out, "\r\nDESCRIPTION:a\\nb\r\n")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := GenerateICS(sampleEvents(t))

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "generated", in: valid, want: true},
		{name: "empty", in: "", want: false},
		{name: "no events", in: GenerateICS(nil), want: false},
		{name: "missing end", in: strings.TrimSuffix(valid, "\r\nEND:VCALENDAR"), want: false},
		{name: "missing prodid", in: strings.Replace(valid, "PRODID:", "X-PRODID:", 1), want: false},
		{name: "missing version", in: strings.Replace(valid, "VERSION:2.0\r\n", "", 1), want: false},
		{name: "lf only", in: strings.ReplaceAll(valid, "\r\n", "\n"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Validate(tc.in))
		})
	}
}

func TestValidate_GeneratedAlwaysValid(t *testing.T) {
	t.Parallel()

	titles := []string{"", "x", "a;b,c", "multi\nline", `back\slash`, "ünïcødé"}
	var events []model.CalendarEvent
	for i, title := range titles {
		start := time.Date(2025, 1, 1+i, 9, 0, 0, 0, time.UTC)
		events = append(events, model.CalendarEvent{Title: title, Description: title, Location: title, Start: start, End: start.Add(time.Hour)})
		assert.True(t, Validate(GenerateICS(events)), "events %d", len(events))
	}
}

func TestValidateStrict(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidateStrict(GenerateICS(sampleEvents(t))))
	assert.False(t, ValidateStrict(""))
	assert.False(t, ValidateStrict(GenerateICS(nil)))
}

func TestDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	events := sampleEvents(t)
	events[0].Title = "Team; Sync, weekly"
	events[0].Description = "line one\nline two"
	paris := events[0].Start.Location()

	decoded, err := Decode([]byte(GenerateICS(events)), paris)
	require.NoError(t, err)
	require.Len(t, decoded, len(events))

	for i, d := range decoded {
		assert.True(t, strings.HasPrefix(d.UID, "event-"))
		assert.Equal(t, events[i].Title, d.Title)
		assert.Equal(t, events[i].Description, d.Description)
		assert.Equal(t, events[i].Location, d.Location)
		assert.True(t, events[i].Start.Equal(d.Start), "start %v want %v", d.Start, events[i].Start)
		assert.True(t, events[i].End.Equal(d.End), "end %v want %v", d.End, events[i].End)
		assert.Equal(t, "UTC", d.Timezone)
		assert.False(t, d.AllDay)
	}
}

func TestDecode_RoundTripKeepsInstantAcrossZones(t *testing.T) {
	t.Parallel()

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)
	events := []model.CalendarEvent{
		{Title: "UTC class", Start: start, End: start.Add(time.Hour), Timezone: "Europe/Paris"},
		{Title: "NY call", Start: start.In(newYork), End: start.Add(time.Hour).In(newYork), Timezone: "America/New_York"},
	}

	out := GenerateICS(events)
	assert.Contains(t, out, "\r\nDTSTART:20250915T080000Z\r\n")
	assert.NotContains(t, out, "DTSTART:20250915T040000")

	for _, loc := range []*time.Location{paris, time.UTC, newYork} {
		decoded, err := Decode([]byte(out), loc)
		require.NoError(t, err)
		require.Len(t, decoded, len(events))
		for i, d := range decoded {
			assert.True(t, events[i].Start.Equal(d.Start), "%s: start %v want %v", loc, d.Start, events[i].Start)
			assert.True(t, events[i].End.Equal(d.End), "%s: end %v want %v", loc, d.End, events[i].End)
		}
	}
}

func TestDecode_ZonesAndDates(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:a",
		"DTSTART;TZID=America/New_York:20250122T090000",
		"SUMMARY:NY",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:b",
		"DTSTART;VALUE=DATE:20250301",
		"SUMMARY:All day",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:c",
		"SUMMARY:No start",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:d",
		"DTSTART:20250122T090000Z",
		"DTEND:20250122T080000Z",
		"SUMMARY:Backwards",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n")

	decoded, err := Decode([]byte(body), time.UTC)
	require.NoError(t, err)
	require.Len(t, decoded, 3)

	assert.Equal(t, "America/New_York", decoded[0].Timezone)
	assert.True(t, decoded[0].Start.Equal(time.Date(2025, 1, 22, 14, 0, 0, 0, time.UTC)))

	assert.True(t, decoded[1].AllDay)
	assert.Equal(t, 1, decoded[1].Start.Day())

	assert.Equal(t, "UTC", decoded[2].Timezone)
	assert.True(t, decoded[2].End.Equal(decoded[2].Start.Add(time.Hour)))
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	_, err := Decode(nil, time.UTC)
	assert.Error(t, err)

	_, err = Decode([]byte("not a calendar"), time.UTC)
	assert.Error(t, err)
}

func TestDeriveFilename(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		events []model.CalendarEvent
		want   string
	}{
		{name: "truncated", events: []model.CalendarEvent{{Title: "Important Business Meeting!!!"}}, want: "important-business-m-1events-2025-01-15.ics"},
		{name: "short", events: []model.CalendarEvent{{Title: "Team  Sync"}, {Title: "Other"}}, want: "team-sync-2events-2025-01-15.ics"},
		{name: "default title", events: []model.CalendarEvent{{Title: model.DefaultTitle}}, want: "calendar-events-1events-2025-01-15.ics"},
		{name: "fallback title", events: []model.CalendarEvent{{Title: model.FallbackTitle}}, want: "calendar-events-1events-2025-01-15.ics"},
		{name: "symbols only", events: []model.CalendarEvent{{Title: "!!!"}}, want: "calendar-events-1events-2025-01-15.ics"},
		{name: "no events", want: "calendar-events-0events-2025-01-15.ics"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveFilename(tc.events, now))
		})
	}
}
