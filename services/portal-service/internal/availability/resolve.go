package availability

import "time"

// Resolution is the fee and end time derived for a chosen slot.
type Resolution struct {
	// Window is the first window, in list order, on the date's weekday containing the start time.
	// Nil when none does; Fee is then zero.
	Window    *Window
	Fee       float64
	StartTime string
	EndTime   string
}

func (r Resolution) Matched() bool {
	return r.Window != nil
}

// Resolve matches a chosen start time against the windows for date's weekday.
// EndTime is start + SlotInterval and is not clipped to the window's end.
func Resolve(date time.Time, startTime string, windows []Window) (Resolution, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{
		StartTime: start.String(),
		EndTime:   start.Add(SlotInterval).String(),
	}
	for i := range windows {
		w := windows[i]
		if !w.OnDay(date.Weekday()) || !w.Contains(start) {
			continue
		}
		res.Window = &w
		res.Fee = w.Fee
		break
	}
	return res, nil
}
