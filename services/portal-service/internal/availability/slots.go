package availability

import (
	"sort"
	"time"
)

// GenerateSlots returns HH:MM start times from start, every interval, for every slot that
// ends at or before end. A window narrower than one interval has no slots.
// Malformed bounds or a non-positive interval yield no slots.
func GenerateSlots(start, end string, interval time.Duration) []string {
	s, err := ParseClock(start)
	if err != nil {
		return nil
	}
	e, err := ParseClock(end)
	if err != nil {
		return nil
	}
	return generate(s, e, interval)
}

func generate(start, end Clock, interval time.Duration) []string {
	if interval < time.Minute {
		return nil
	}
	seen := map[string]struct{}{}
	var slots []string
	for c := start; c.Add(interval) <= end; c = c.Add(interval) {
		label := c.String()
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		slots = append(slots, label)
	}
	return slots
}

// DaySlots merges the slots of every window on date's weekday, de-duplicated and sorted.
func DaySlots(date time.Time, windows []Window) []string {
	set := map[string]struct{}{}
	for _, w := range windows {
		if !w.OnDay(date.Weekday()) {
			continue
		}
		start, end, ok := w.Bounds()
		if !ok {
			continue
		}
		for _, s := range generate(start, end, SlotInterval) {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// FilterBooked drops slots whose HH:MM equals the truncated start time of any booked appointment.
func FilterBooked(slots []string, bookedStarts []string) []string {
	booked := make(map[string]struct{}, len(bookedStarts))
	for _, b := range bookedStarts {
		booked[TruncateHHMM(b)] = struct{}{}
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if _, taken := booked[s]; taken {
			continue
		}
		out = append(out, s)
	}
	return out
}
