package snapshot

import (
	"fmt"
	"time"

	"github.com/hieulq/nestup-evn/internal/sensor"
)

// NormalizeDate returns the date at 00:00:00 in its own location
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Period is the monthly billing period covered by a snapshot
type Period struct {
	Start time.Time // Inclusive, normalized to start of day
	End   time.Time // Inclusive, normalized to start of day
}

// Contains checks if a date is within the period
func (p Period) Contains(date time.Time) bool {
	d := NormalizeDate(date.In(p.Start.Location()))
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days counts the calendar days in the period, both ends included
func (p Period) Days() int {
	days := 0
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}

func (p Period) String() string {
	return fmt.Sprintf("%s to %s (%d days)",
		p.Start.Format("2006-01-02"),
		p.End.Format("2006-01-02"),
		p.Days())
}

// BillingPeriod reads the period bounds out of normalised data
func BillingPeriod(data sensor.Data) (Period, error) {
	from, err := dateValue(data, sensor.KeyFromDate)
	if err != nil {
		return Period{}, err
	}
	to, err := dateValue(data, sensor.KeyToDate)
	if err != nil {
		return Period{}, err
	}
	if to.Before(from) {
		return Period{}, fmt.Errorf("%w: %s %s is before %s %s", ErrInvalidValue,
			sensor.KeyToDate, to.Format("2006-01-02"),
			sensor.KeyFromDate, from.Format("2006-01-02"))
	}
	return Period{Start: from, End: to}, nil
}

func dateValue(data sensor.Data, key string) (time.Time, error) {
	d, ok := sensor.Lookup(key)
	if !ok {
		return time.Time{}, fmt.Errorf("no descriptor for %s", key)
	}
	v, err := d.Read(data)
	if err != nil {
		return time.Time{}, err
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s has type %T", ErrInvalidValue, key, v)
	}
	return NormalizeDate(t), nil
}
