package datetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParis(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return loc
}

func TestParseICSToken(t *testing.T) {
	paris := mustParis(t)

	tests := []struct {
		name  string
		in    string
		want  time.Time
		isErr bool
	}{
		{name: "utc", in: "20250915T080000Z", want: time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)},
		{name: "floating", in: "20231003T120000", want: time.Date(2023, 10, 3, 12, 0, 0, 0, paris)},
		{name: "date only", in: " 20250101 ", want: time.Date(2025, 1, 1, 0, 0, 0, 0, paris)},
		{name: "iso extended", in: "2025-09-15T08:00:00Z", isErr: true},
		{name: "garbage", in: "invalid-date", isErr: true},
		{name: "empty", in: "", isErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseICSToken(tc.in, paris)
			if tc.isErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %v want %v", got, tc.want)
		})
	}
}

func TestParseICSToken_UTCStaysUTC(t *testing.T) {
	got, err := ParseICSToken("20250915T080000Z", mustParis(t))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 8, got.Hour())
}

func TestResolver_ParseDateTime(t *testing.T) {
	paris := mustParis(t)
	r := NewResolver(paris, nil)

	tests := []struct {
		date, clock string
		want        time.Time
	}{
		{date: "January 15, 2025", clock: "2:00 PM", want: time.Date(2025, 1, 15, 14, 0, 0, 0, paris)},
		{date: "December 25, 2024", clock: "10:30 AM", want: time.Date(2024, 12, 25, 10, 30, 0, 0, paris)},
		{date: "Jan 3 2025", clock: "9:05", want: time.Date(2025, 1, 3, 9, 5, 0, 0, paris)},
		{date: "01/15/2025", clock: "14:00", want: time.Date(2025, 1, 15, 14, 0, 0, 0, paris)},
		{date: "2025-01-15", clock: "2:00PM", want: time.Date(2025, 1, 15, 14, 0, 0, 0, paris)},
		{date: "2025-01-15", clock: "", want: time.Date(2025, 1, 15, 0, 0, 0, 0, paris)},
	}

	for _, tc := range tests {
		got, err := r.ParseDateTime(tc.date, tc.clock)
		require.NoError(t, err, tc.date)
		assert.True(t, got.Equal(tc.want), "%s %s: got %v want %v", tc.date, tc.clock, got, tc.want)
	}

	_, err := r.ParseDateTime("Smarch 15, 2025", "2:00 PM")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = r.ParseDateTime("2025-01-15", "25:99")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestResolver_ResolveRelative(t *testing.T) {
	paris := mustParis(t)
	// Wednesday.
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, paris)
	r := NewResolver(paris, func() time.Time { return now })

	tests := []struct {
		phrase, clock string
		want          time.Time
		explicit      bool
	}{
		{phrase: "today", want: time.Date(2025, 1, 15, 9, 0, 0, 0, paris)},
		{phrase: "tonight", clock: "8pm", want: time.Date(2025, 1, 15, 20, 0, 0, 0, paris), explicit: true},
		{phrase: "Tomorrow", want: time.Date(2025, 1, 16, 9, 0, 0, 0, paris)},
		{phrase: "tomorrow", clock: "3:30 PM", want: time.Date(2025, 1, 16, 15, 30, 0, 0, paris), explicit: true},
		{phrase: "next friday", want: time.Date(2025, 1, 17, 9, 0, 0, 0, paris)},
		{phrase: "next  Wednesday", want: time.Date(2025, 1, 22, 9, 0, 0, 0, paris)},
	}

	for _, tc := range tests {
		got, explicit, err := r.ResolveRelative(tc.phrase, tc.clock)
		require.NoError(t, err, tc.phrase)
		assert.True(t, got.Equal(tc.want), "%s: got %v want %v", tc.phrase, got, tc.want)
		assert.Equal(t, tc.explicit, explicit, tc.phrase)
	}

	_, _, err := r.ResolveRelative("yesterday", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestResolver_NextFridayOnFriday(t *testing.T) {
	paris := mustParis(t)
	friday := time.Date(2025, 1, 17, 18, 0, 0, 0, paris)
	r := NewResolver(paris, func() time.Time { return friday })

	got, _, err := r.ResolveRelative("next friday", "")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 1, 24, 9, 0, 0, 0, paris)), "got %v", got)
}

func TestResolveLocation(t *testing.T) {
	assert.Equal(t, "Europe/Paris", ResolveLocation("Europe/Paris").String())
	assert.Equal(t, time.Local, ResolveLocation("Not/AZone"))
	assert.Equal(t, time.Local, ResolveLocation(""))
}
