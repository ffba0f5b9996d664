package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/scheduling/internal/domain"
)

func recurrenceTemplate() Candidate {
	return Candidate{
		Title:          "Morning Practice",
		StartsAt:       time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:         time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
		VenueID:        "hall",
		ParticipantIDs: []string{"p1"},
		Points:         5,
	}
}

func TestExpandSundaysAndWednesdays(t *testing.T) {
	// 2024-01-01 is a Monday; Sundays and Wednesdays through the 14th fall
	// on the 3rd, 7th, 10th and 14th.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)

	out, err := Expand(recurrenceTemplate(), start, until, []time.Weekday{time.Sunday, time.Wednesday})
	require.NoError(t, err)

	var days []int
	for _, c := range out {
		days = append(days, c.StartsAt.Day())
		require.Equal(t, time.January, c.StartsAt.Month())
	}
	require.Equal(t, []int{3, 7, 10, 14}, days)
}

func TestExpandPreservesWallClockTimes(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)

	out, err := Expand(recurrenceTemplate(), start, until, []time.Weekday{time.Friday})
	require.NoError(t, err)
	require.Len(t, out, 1)

	c := out[0]
	require.Equal(t, time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), c.StartsAt)
	require.Equal(t, time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC), c.EndsAt)
	require.Equal(t, "Morning Practice", c.Title)
	require.Equal(t, []string{"p1"}, c.ParticipantIDs)
}

func TestExpandIncludesBoundaryDays(t *testing.T) {
	// Start and until both land on selected weekdays; both are included.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)  // Monday
	until := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC) // Monday

	out, err := Expand(recurrenceTemplate(), start, until, []time.Weekday{time.Monday})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, 1, out[0].StartsAt.Day())
	require.Equal(t, 15, out[2].StartsAt.Day())
}

func TestExpandEmptyWeekdaySelection(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)

	_, err := Expand(recurrenceTemplate(), start, until, nil)
	require.ErrorIs(t, err, ErrEmptySelection)
}

func TestExpandUntilBeforeStart(t *testing.T) {
	start := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := Expand(recurrenceTemplate(), start, until, []time.Weekday{time.Monday})
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))
}

func TestExpandDeduplicatesWeekdays(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)

	out, err := Expand(recurrenceTemplate(), start, until, []time.Weekday{time.Monday, time.Monday})
	require.NoError(t, err)
	require.Len(t, out, 1)
}
