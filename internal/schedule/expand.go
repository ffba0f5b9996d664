package schedule

import (
	"time"

	"github.com/teambition/rrule-go"

	"example.com/scheduling/internal/domain"
)

// ErrEmptySelection is returned when a recurrence request selects no
// weekdays. Zero instances is reported explicitly, never as silent success.
var ErrEmptySelection = &domain.ValidationError{Field: "weekdays", Reason: "no weekdays selected"}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// Expand walks every calendar day from start to until inclusive and emits
// one candidate per day whose weekday is selected, cloned from template
// with the day substituted. Pure and deterministic; no horizon cap is
// enforced here, the default horizon is an API-layer convenience.
func Expand(template Candidate, start, until time.Time, weekdays []time.Weekday) ([]Candidate, error) {
	if err := template.Validate(); err != nil {
		return nil, err
	}
	if len(weekdays) == 0 {
		return nil, ErrEmptySelection
	}

	startDay := midnight(start)
	untilDay := midnight(until)
	if untilDay.Before(startDay) {
		return nil, domain.Invalid("until", "end date is before start date")
	}

	seen := make(map[time.Weekday]bool, len(weekdays))
	byday := make([]rrule.Weekday, 0, len(weekdays))
	for _, wd := range weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return nil, domain.Invalid("weekdays", "weekday out of range")
		}
		if seen[wd] {
			continue
		}
		seen[wd] = true
		byday = append(byday, rruleWeekdays[wd])
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   startDay,
		Until:     untilDay,
		Byweekday: byday,
	})
	if err != nil {
		return nil, domain.Invalid("recurrence", err.Error())
	}

	days := rule.All()
	out := make([]Candidate, 0, len(days))
	for _, day := range days {
		c := template
		c.AssetIDs = append([]string(nil), template.AssetIDs...)
		c.ParticipantIDs = append([]string(nil), template.ParticipantIDs...)
		c.StartsAt = onDay(day, template.StartsAt)
		c.EndsAt = onDay(day, template.EndsAt)
		out = append(out, c)
	}
	return out, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// onDay keeps clock's wall-clock time but moves it onto day.
func onDay(day, clock time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, clock.Location())
}
