package holiday

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsSunday(t *testing.T) {
	if !IsSunday(date(2025, time.March, 2)) {
		t.Fatal("expected 2025-03-02 to be a Sunday")
	}
	if IsSunday(date(2025, time.March, 3)) {
		t.Fatal("expected 2025-03-03 not to be a Sunday")
	}
}

func TestIsSecondOrFourthSaturday(t *testing.T) {
	// February 2025: the 1st is a Saturday, so Saturdays land on 1, 8, 15, 22.
	cases := []struct {
		day  int
		want bool
	}{
		{1, false},
		{8, true},
		{15, false},
		{22, true},
	}
	for _, tc := range cases {
		got := IsSecondOrFourthSaturday(date(2025, time.February, tc.day))
		if got != tc.want {
			t.Fatalf("day %d: expected %v, got %v", tc.day, tc.want, got)
		}
	}

	// March 2025: the 29th is a fifth Saturday, week 5.
	if IsSecondOrFourthSaturday(date(2025, time.March, 29)) {
		t.Fatal("expected fifth Saturday to be excluded")
	}

	// Non-Saturdays never qualify regardless of day-of-month.
	if IsSecondOrFourthSaturday(date(2025, time.February, 10)) {
		t.Fatal("expected a Monday to be excluded")
	}
}

func TestIsWorkingDay(t *testing.T) {
	cal := DateSet{"2025-03-05": true}

	if IsWorkingDay(cal, date(2025, time.March, 5)) {
		t.Fatal("holiday must not be a working day")
	}
	if IsWorkingDay(cal, date(2025, time.March, 2)) {
		t.Fatal("Sunday must not be a working day")
	}
	if IsWorkingDay(cal, date(2025, time.March, 8)) {
		t.Fatal("second Saturday must not be a working day")
	}
	if !IsWorkingDay(cal, date(2025, time.March, 4)) {
		t.Fatal("plain Tuesday must be a working day")
	}
	if !IsWorkingDay(cal, date(2025, time.March, 1)) {
		t.Fatal("first Saturday is a working day under this calendar")
	}
}

func TestDateSetLookupIsExactMatch(t *testing.T) {
	cal := DateSet{"2025-12-25": true}
	if !cal.IsHoliday(date(2025, time.December, 25)) {
		t.Fatal("expected exact date to match")
	}
	if cal.IsHoliday(date(2025, time.December, 26)) {
		t.Fatal("expected adjacent date not to match")
	}
	if cal.IsHoliday(date(2024, time.December, 25)) {
		t.Fatal("expected same day in another year not to match")
	}
}
