package ics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"icsconv/internal/model"
)

const (
	defaultFileBase = "calendar-events"
	maxFileBaseLen  = 20
)

var (
	fileBaseStripRe = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRunRe = regexp.MustCompile(`\s+`)
)

// DeriveFilename names the export after the first event's title, e.g.
// "team-sync-3events-2025-01-15.ics". Placeholder titles give
// "calendar-events-...".
func DeriveFilename(events []model.CalendarEvent, now time.Time) string {
	base := defaultFileBase
	if len(events) > 0 {
		if b := fileBase(events[0].Title); b != "" {
			base = b
		}
	}
	return fmt.Sprintf("%s-%devents-%s.ics", base, len(events), now.Format("2006-01-02"))
}

func fileBase(title string) string {
	if title == "" || title == model.DefaultTitle || title == model.FallbackTitle {
		return ""
	}
	b := fileBaseStripRe.ReplaceAllString(strings.ToLower(title), "")
	b = whitespaceRunRe.ReplaceAllString(strings.TrimSpace(b), "-")
	if len(b) > maxFileBaseLen {
		b = b[:maxFileBaseLen]
	}
	return b
}
