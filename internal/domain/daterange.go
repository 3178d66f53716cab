package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout        = "2006-01-02"
	DisplayDateLayout = "02/01/2006"
	ShortDateLayout   = "02/01"
)

// DateRange is an inclusive range of calendar days, both ends at UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: truncateDay(start), End: truncateDay(end)}
	if r.Start.IsZero() || r.End.IsZero() {
		return DateRange{}, fmt.Errorf("%w: start and end are required", ErrInvalidDateRange)
	}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidDateRange, r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}

	return r, nil
}

func ParseDateRange(start, end string) (DateRange, error) {
	startDate, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start date %q: %v", ErrInvalidDateRange, start, err)
	}
	endDate, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end date %q: %v", ErrInvalidDateRange, end, err)
	}

	return NewDateRange(startDate, endDate)
}

func (r DateRange) Days() int {
	if r.Start.IsZero() || r.End.Before(r.Start) {
		return 0
	}

	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Dates lists every day of the range in ascending order.
func (r DateRange) Dates() []time.Time {
	dates := make([]time.Time, 0, r.Days())
	for current := r.Start; !current.After(r.End) && !r.Start.IsZero(); current = current.AddDate(0, 0, 1) {
		dates = append(dates, current)
	}

	return dates
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s - %s", r.Start.Format(DisplayDateLayout), r.End.Format(DisplayDateLayout))
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
