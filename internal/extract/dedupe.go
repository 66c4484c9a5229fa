package extract

import "icsconv/internal/model"

type dedupeKey struct {
	title string
	start int64
}

// Dedupe drops events whose (title, start instant) pair was already seen,
// keeping the first occurrence and the input order.
func Dedupe(events []model.CalendarEvent) []model.CalendarEvent {
	seen := make(map[dedupeKey]struct{}, len(events))
	out := make([]model.CalendarEvent, 0, len(events))

	for _, ev := range events {
		k := dedupeKey{title: ev.Title, start: ev.Start.UnixNano()}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, ev)
	}
	return out
}
