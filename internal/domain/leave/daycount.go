package leave

import (
	"time"

	"agencyerp/internal/domain/holiday"
)

// DayCount is the breakdown for one leave interval. Total is the number of
// chargeable days; Holidays counts public holidays excluded from the charge.
type DayCount struct {
	Total    int `json:"totalDays"`
	Working  int `json:"workingDays"`
	Sandwich int `json:"sandwichDays"`
	Holidays int `json:"holidayCount"`
}

// CountDays classifies every day in the closed interval [start, end].
//
// With sandwich enabled, only Sundays are an automatic day off: Saturdays are
// chargeable and tracked separately as sandwich days. Without it, Saturdays
// and Sundays are both skipped and only Mon-Fri can be charged.
//
// The weekend skip runs before the holiday check in both modes, so a holiday
// falling on a skipped weekend day never reaches Holidays. Snapshots stored on
// existing requests depend on this ordering.
func CountDays(cal holiday.Calendar, start, end time.Time, sandwich bool) DayCount {
	var out DayCount
	if end.Before(start) {
		return out
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if sandwich {
			if holiday.IsSunday(d) {
				continue
			}
			if cal != nil && cal.IsHoliday(d) {
				out.Holidays++
				continue
			}
			out.Total++
			if d.Weekday() == time.Saturday {
				out.Sandwich++
			} else {
				out.Working++
			}
			continue
		}

		if d.Weekday() == time.Saturday || holiday.IsSunday(d) {
			continue
		}
		if cal != nil && cal.IsHoliday(d) {
			out.Holidays++
			continue
		}
		out.Working++
		out.Total++
	}
	return out
}

// HasSandwichDays reports whether any Saturday falls inside [start, end].
// Advisory only; it ignores holidays entirely.
func HasSandwichDays(start, end time.Time) bool {
	if end.Before(start) {
		return false
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday {
			return true
		}
	}
	return false
}
