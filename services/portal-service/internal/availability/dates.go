package availability

import "time"

// CandidateDate is a bookable calendar date inside the horizon.
type CandidateDate struct {
	Value   string       `json:"value"` // YYYY-MM-DD
	Label   string       `json:"label"` // e.g. "Monday, Jan 5, 2026"
	Weekday time.Weekday `json:"-"`
}

// AvailableDates lists, earliest first, the dates in the HorizonDays days after today
// (today excluded) whose weekday has at least one window.
func AvailableDates(today time.Time, windows []Window) []CandidateDate {
	out := []CandidateDate{}
	if len(windows) == 0 {
		return out
	}
	base := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	for i := 1; i <= HorizonDays; i++ {
		d := base.AddDate(0, 0, i)
		if !anyOnDay(windows, d.Weekday()) {
			continue
		}
		out = append(out, CandidateDate{
			Value:   d.Format(DateLayout),
			Label:   d.Format(LabelLayout),
			Weekday: d.Weekday(),
		})
	}
	return out
}

// InHorizon reports whether date is one of AvailableDates(today, windows).
func InHorizon(today time.Time, date time.Time, windows []Window) bool {
	value := date.Format(DateLayout)
	for _, c := range AvailableDates(today, windows) {
		if c.Value == value {
			return true
		}
	}
	return false
}

// NextAvailable summarizes the first day, from today through the next six, with any window:
// "Today: 09:00 - 12:00", "Monday: 09:00 - 12:00" or "Not available".
func NextAvailable(today time.Time, windows []Window) string {
	if len(windows) == 0 {
		return "Not available"
	}
	for i := 0; i < 7; i++ {
		day := time.Weekday((int(today.Weekday()) + i) % 7)
		for _, w := range windows {
			if !w.OnDay(day) {
				continue
			}
			span := TruncateHHMM(w.StartTime) + " - " + TruncateHHMM(w.EndTime)
			if i == 0 {
				return "Today: " + span
			}
			return day.String() + ": " + span
		}
	}
	return "Not available"
}

func anyOnDay(windows []Window, day time.Weekday) bool {
	for _, w := range windows {
		if w.OnDay(day) {
			return true
		}
	}
	return false
}
