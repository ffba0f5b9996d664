package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/scheduling/internal/domain"
)

func TestToMinutes(t *testing.T) {
	cases := map[string]int{
		"00:00": 0,
		"09:30": 570,
		"16:05": 965,
		"23:59": 1439,
	}
	for in, want := range cases {
		got, err := ToMinutes(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
}

func TestToMinutesRejectsMalformedInput(t *testing.T) {
	for _, in := range []string{"", "9:30", "0930", "24:00", "12:60", "ab:cd", "12-30", "12:3a"} {
		_, err := ToMinutes(in)
		require.Error(t, err, in)
		require.True(t, domain.IsValidation(err), in)
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	base := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	cases := []struct {
		a1, a2, b1, b2 int
		want           bool
	}{
		{9, 11, 10, 12, true},
		{9, 10, 10, 11, false}, // touching endpoints do not conflict
		{9, 12, 10, 11, true},  // containment
		{9, 10, 11, 12, false},
		{10, 11, 10, 11, true}, // identical
	}
	for _, c := range cases {
		got := Overlaps(at(c.a1), at(c.a2), at(c.b1), at(c.b2))
		mirrored := Overlaps(at(c.b1), at(c.b2), at(c.a1), at(c.a2))
		require.Equal(t, c.want, got)
		require.Equal(t, got, mirrored)
	}
}
