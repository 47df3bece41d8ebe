package scheduling

import (
	"time"
	_ "time/tzdata"

	"github.com/teambition/rrule-go"
)

var isoWeekdays = [...]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// Generate expands spec into its concrete occurrences, ascending by start.
//
// The weekly rule is expanded over floating calendar dates (in UTC, where
// every midnight exists). Each matching date is then combined with the start
// and end clock using the zone offset in effect on that date. Dates whose
// start or end wall time falls in a daylight-saving gap are skipped.
func Generate(spec RecurrenceSpec) ([]Occurrence, error) {
	loc, err := validateRecurrence(spec)
	if err != nil {
		return nil, err
	}

	byday := make([]rrule.Weekday, 0, len(spec.Weekdays))
	for _, d := range spec.Weekdays {
		byday = append(byday, isoWeekdays[d-1])
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   spec.StartDate.In(time.UTC),
		Until:     spec.EndDate.In(time.UTC).Add(24*time.Hour - time.Second),
		Byweekday: byday,
	})
	if err != nil {
		return nil, invalidRecurrence("weekdays", err.Error())
	}

	days := rule.All()
	out := make([]Occurrence, 0, len(days))
	for _, day := range days {
		date := DateOf(day)
		start, ok := spec.StartTime.On(date, loc)
		if !ok {
			continue
		}
		end, ok := spec.EndTime.On(date, loc)
		if !ok {
			continue
		}
		out = append(out, Occurrence{
			LocalDate: date,
			StartAt:   start.UTC(),
			EndAt:     end.UTC(),
		})
	}
	return out, nil
}

// DateRange returns the UTC interval covering every local date of spec:
// local midnight of StartDate up to local midnight after EndDate.
func DateRange(spec RecurrenceSpec) (TimeRange, error) {
	loc, err := loadZone(spec.Timezone)
	if err != nil {
		return TimeRange{}, err
	}
	return TimeRange{
		From: spec.StartDate.In(loc).UTC(),
		To:   spec.EndDate.AddDays(1).In(loc).UTC(),
	}, nil
}

func validateRecurrence(spec RecurrenceSpec) (*time.Location, error) {
	if spec.Timezone == "" {
		return nil, invalidRecurrence("timezone", "is required")
	}
	loc, err := loadZone(spec.Timezone)
	if err != nil {
		return nil, err
	}
	if !spec.StartTime.valid() {
		return nil, invalidRecurrence("startTime", "must be a valid HH:MM time")
	}
	if !spec.EndTime.valid() {
		return nil, invalidRecurrence("endTime", "must be a valid HH:MM time")
	}
	if spec.EndTime.minutes() <= spec.StartTime.minutes() {
		return nil, invalidRecurrence("endTime", "must be after startTime")
	}
	if len(spec.Weekdays) == 0 {
		return nil, invalidRecurrence("weekdays", "must not be empty")
	}
	for _, d := range spec.Weekdays {
		if d < 1 || d > 7 {
			return nil, invalidRecurrence("weekdays", "must be between 1 (Monday) and 7 (Sunday)")
		}
	}
	if spec.EndDate.Before(spec.StartDate) {
		return nil, invalidRecurrence("endDate", "must not be before startDate")
	}
	return loc, nil
}

// loadZone resolves an IANA zone name. "Local" is rejected so the server's
// own zone never leaks into a tenant's schedule.
func loadZone(name string) (*time.Location, error) {
	if name == "Local" {
		return nil, invalidRecurrence("timezone", "must be an IANA zone name")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, invalidRecurrence("timezone", "unknown timezone")
	}
	return loc, nil
}
