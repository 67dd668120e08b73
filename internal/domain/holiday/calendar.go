package holiday

import "time"

// Calendar answers whether a calendar date is a public holiday. Lookups are
// by exact date; absence is a valid negative, never an error.
type Calendar interface {
	IsHoliday(date time.Time) bool
}

// DateSet is an in-memory Calendar keyed by YYYY-MM-DD.
type DateSet map[string]bool

func (s DateSet) IsHoliday(date time.Time) bool {
	return s[date.Format("2006-01-02")]
}

func IsSunday(date time.Time) bool {
	return date.Weekday() == time.Sunday
}

// IsSecondOrFourthSaturday reports whether date is a Saturday in week 2 or 4
// of its month, where week-of-month is ceil(dayOfMonth / 7). This is a
// day-of-month bucket, not ISO week numbering.
func IsSecondOrFourthSaturday(date time.Time) bool {
	if date.Weekday() != time.Saturday {
		return false
	}
	week := (date.Day() + 6) / 7
	return week == 2 || week == 4
}

// IsWorkingDay reports whether date is neither a public holiday, a Sunday,
// nor a second/fourth Saturday.
func IsWorkingDay(cal Calendar, date time.Time) bool {
	if cal != nil && cal.IsHoliday(date) {
		return false
	}
	if IsSunday(date) {
		return false
	}
	return !IsSecondOrFourthSaturday(date)
}
