package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time of day in minutes since midnight.
type ClockTime int

// ParseClockTime reads an "HH:MM" string. "24:00" is allowed as a closing time.
func ParseClockTime(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("parse clock time %q: expected HH:MM", s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("parse clock time %q: hour: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("parse clock time %q: minute: %w", s, err)
	}

	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("parse clock time %q: out of range", s)
	}

	return ClockTime(h*60 + m), nil
}

// ClockOf returns the minute-of-day of t in t's own location. Seconds are dropped.
func ClockOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// TimeRange is one opening interval within a day; both bounds are inclusive.
type TimeRange struct {
	Open  ClockTime
	Close ClockTime
}

func (r TimeRange) Contains(c ClockTime) bool {
	return c >= r.Open && c <= r.Close
}

// Weekly opening table. A missing or empty day means closed.
type OpeningHours map[time.Weekday][]TimeRange

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday accepts lowercase English day names ("monday").
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("parse weekday: unknown day %q", s)
	}
	return d, nil
}

// WeekdayName is the inverse of ParseWeekday.
func WeekdayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}

// Represents a facility that receives collected waste at the end of a route.
type DisposalSite struct {
	ID                 string
	Name               string
	Address            string
	Location           Coordinates
	AcceptedWasteTypes WasteTypes
	OpeningHours       OpeningHours
}

// Accepts reports whether the site takes every tag in types.
func (s *DisposalSite) Accepts(types WasteTypes) bool {
	return s.AcceptedWasteTypes.ContainsAll(types)
}

// Clone returns a deep copy of s.
func (s *DisposalSite) Clone() *DisposalSite {
	if s == nil {
		return nil
	}
	c := *s
	c.AcceptedWasteTypes = append(WasteTypes(nil), s.AcceptedWasteTypes...)
	if s.OpeningHours != nil {
		c.OpeningHours = make(OpeningHours, len(s.OpeningHours))
		for day, ranges := range s.OpeningHours {
			c.OpeningHours[day] = append([]TimeRange(nil), ranges...)
		}
	}
	return &c
}
