package domain

import (
	"fmt"
	"slices"
	"time"
)

// HoursRange is the "HH:MM" text form of a TimeRange.
type HoursRange struct {
	Open  string `json:"open" yaml:"open"`
	Close string `json:"close" yaml:"close"`
}

// HoursTable is how opening hours travel across storage and wire boundaries:
// lowercase day name to ranges.
type HoursTable map[string][]HoursRange

// ParseHoursTable converts and validates a table once at the boundary.
func ParseHoursTable(t HoursTable) (OpeningHours, error) {
	out := make(OpeningHours, len(t))
	for day, ranges := range t {
		wd, err := ParseWeekday(day)
		if err != nil {
			return nil, fmt.Errorf("parse opening hours: %w", err)
		}

		parsed := make([]TimeRange, 0, len(ranges))
		for i, r := range ranges {
			open, err := ParseClockTime(r.Open)
			if err != nil {
				return nil, fmt.Errorf("parse opening hours %s #%d: %w", day, i+1, err)
			}
			closeAt, err := ParseClockTime(r.Close)
			if err != nil {
				return nil, fmt.Errorf("parse opening hours %s #%d: %w", day, i+1, err)
			}
			if closeAt < open {
				return nil, fmt.Errorf("parse opening hours %s #%d: close %s before open %s", day, i+1, r.Close, r.Open)
			}
			parsed = append(parsed, TimeRange{Open: open, Close: closeAt})
		}
		out[wd] = append(out[wd], parsed...)
	}
	return out, nil
}

// Table renders h back to its text form. Closed days are listed with no ranges.
func (h OpeningHours) Table() HoursTable {
	out := make(HoursTable, 7)
	days := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	for _, d := range days {
		ranges := slices.Clone(h[d])
		text := make([]HoursRange, 0, len(ranges))
		for _, r := range ranges {
			text = append(text, HoursRange{Open: r.Open.String(), Close: r.Close.String()})
		}
		out[WeekdayName(d)] = text
	}
	return out
}
