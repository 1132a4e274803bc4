package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange is a half-open ingestion window [Start, End) of UTC calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both bounds to UTC midnight and checks ordering.
func NewDateRange(start, end time.Time) (DateRange, error) {
	w := DateRange{Start: truncateDay(start), End: truncateDay(end)}
	if !w.End.After(w.Start) {
		return DateRange{}, fmt.Errorf("invalid window: end %s must be after start %s",
			w.End.Format(dateLayout), w.Start.Format(dateLayout))
	}
	return w, nil
}

// ParseDateRange parses two YYYY-MM-DD dates.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse start date: %w", err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse end date: %w", err)
	}
	return NewDateRange(s, e)
}

// Key identifies the raw partition for this window: the start date.
func (w DateRange) Key() string {
	return w.Start.Format(dateLayout)
}

func (w DateRange) String() string {
	return w.Start.Format(dateLayout) + ".." + w.End.Format(dateLayout)
}

// Days splits the window into consecutive one-day windows.
func (w DateRange) Days() []DateRange {
	var days []DateRange
	for d := w.Start; d.Before(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, DateRange{Start: d, End: d.AddDate(0, 0, 1)})
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
