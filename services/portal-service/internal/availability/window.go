package availability

import (
	"strings"
	"time"
)

const (
	// SlotInterval is the fixed length of every bookable slot.
	SlotInterval = 60 * time.Minute
	// HorizonDays is how many days after today are offered for booking.
	HorizonDays = 30

	DateLayout  = "2006-01-02"
	LabelLayout = "Monday, Jan 2, 2006"
)

// Window is one recurring weekly availability block of a doctor.
type Window struct {
	ID        string
	DayOfWeek string
	StartTime string
	EndTime   string
	Fee       float64
}

// OnDay reports whether the window recurs on the given weekday (case-insensitive English name).
func (w Window) OnDay(day time.Weekday) bool {
	return strings.EqualFold(strings.TrimSpace(w.DayOfWeek), day.String())
}

// Bounds parses the window's start and end. ok is false for malformed times.
func (w Window) Bounds() (start, end Clock, ok bool) {
	start, err := ParseClock(w.StartTime)
	if err != nil {
		return 0, 0, false
	}
	end, err = ParseClock(w.EndTime)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// Contains reports start <= c < end.
func (w Window) Contains(c Clock) bool {
	start, end, ok := w.Bounds()
	return ok && c >= start && c < end
}

// ParseDate reads a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}
