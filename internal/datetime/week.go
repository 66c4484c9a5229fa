package datetime

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// NextWeekday returns midnight of the first wd strictly after day. If day is
// already a wd, the result is one week later.
func NextWeekday(day time.Time, wd time.Weekday) (time.Time, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()).AddDate(0, 0, 1)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[wd]},
		Dtstart:   start,
		Count:     1,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("datetime: build weekday rule: %w", err)
	}

	occ := r.All()
	if len(occ) == 0 {
		return time.Time{}, fmt.Errorf("datetime: no occurrence of %s after %s", wd, day.Format("2006-01-02"))
	}
	return occ[0].In(day.Location()), nil
}

// WeekStart returns Monday 00:00 of the ISO week containing t, in t's
// location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -offset)
}

// SchoolDays returns Monday..Friday (midnight) of the ISO week containing t.
func SchoolDays(t time.Time) ([]time.Time, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR},
		Dtstart:   WeekStart(t),
		Count:     5,
	})
	if err != nil {
		return nil, fmt.Errorf("datetime: build school week rule: %w", err)
	}

	days := r.All()
	for i := range days {
		days[i] = days[i].In(t.Location())
	}
	return days, nil
}
