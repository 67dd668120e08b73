package leave

import (
	"testing"
	"time"

	"agencyerp/internal/domain/holiday"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCountDaysSingleWeekday(t *testing.T) {
	// 2025-03-04 is a Tuesday.
	got := CountDays(holiday.DateSet{}, day(2025, 3, 4), day(2025, 3, 4), false)
	if got.Total != 1 || got.Working != 1 || got.Sandwich != 0 || got.Holidays != 0 {
		t.Fatalf("unexpected breakdown: %+v", got)
	}
}

func TestCountDaysSunday(t *testing.T) {
	sunday := day(2025, 3, 2)
	for _, sandwich := range []bool{false, true} {
		got := CountDays(holiday.DateSet{}, sunday, sunday, sandwich)
		if got.Total != 0 {
			t.Fatalf("sandwich=%v: expected 0 chargeable days, got %+v", sandwich, got)
		}
	}
}

func TestCountDaysFullWeek(t *testing.T) {
	// Mon 2025-03-03 through Sun 2025-03-09: one Saturday, one Sunday.
	start, end := day(2025, 3, 3), day(2025, 3, 9)

	simple := CountDays(holiday.DateSet{}, start, end, false)
	if simple.Total != 5 || simple.Working != 5 || simple.Sandwich != 0 {
		t.Fatalf("simple mode: %+v", simple)
	}

	sandwich := CountDays(holiday.DateSet{}, start, end, true)
	if sandwich.Total != 6 || sandwich.Working != 5 || sandwich.Sandwich != 1 {
		t.Fatalf("sandwich mode: %+v", sandwich)
	}
}

func TestCountDaysWeekdayHoliday(t *testing.T) {
	// Tuesday 2025-03-04 is a holiday.
	cal := holiday.DateSet{"2025-03-04": true}
	start, end := day(2025, 3, 3), day(2025, 3, 9)

	for _, sandwich := range []bool{false, true} {
		base := CountDays(holiday.DateSet{}, start, end, sandwich)
		got := CountDays(cal, start, end, sandwich)
		if got.Holidays != 1 {
			t.Fatalf("sandwich=%v: expected holiday count 1, got %+v", sandwich, got)
		}
		if got.Total != base.Total-1 {
			t.Fatalf("sandwich=%v: expected total %d, got %d", sandwich, base.Total-1, got.Total)
		}
	}
}

func TestCountDaysWeekendHoliday(t *testing.T) {
	// Saturday 2025-03-08 is a holiday. The weekend skip absorbs it in simple
	// mode; in sandwich mode Saturdays are live so the holiday check fires.
	cal := holiday.DateSet{"2025-03-08": true}
	start, end := day(2025, 3, 3), day(2025, 3, 9)

	simple := CountDays(cal, start, end, false)
	if simple.Holidays != 0 || simple.Total != 5 {
		t.Fatalf("simple mode: %+v", simple)
	}

	sandwich := CountDays(cal, start, end, true)
	if sandwich.Holidays != 1 || sandwich.Sandwich != 0 || sandwich.Total != 5 {
		t.Fatalf("sandwich mode: %+v", sandwich)
	}
}

func TestCountDaysInvertedRange(t *testing.T) {
	got := CountDays(holiday.DateSet{}, day(2025, 3, 9), day(2025, 3, 3), true)
	if got != (DayCount{}) {
		t.Fatalf("expected zero breakdown, got %+v", got)
	}
}

func TestCountDaysIdempotent(t *testing.T) {
	cal := holiday.DateSet{"2025-03-05": true}
	first := CountDays(cal, day(2025, 3, 1), day(2025, 3, 31), true)
	second := CountDays(cal, day(2025, 3, 1), day(2025, 3, 31), true)
	if first != second {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestHasSandwichDays(t *testing.T) {
	if !HasSandwichDays(day(2025, 3, 3), day(2025, 3, 9)) {
		t.Fatal("expected Saturday inside range")
	}
	if HasSandwichDays(day(2025, 3, 3), day(2025, 3, 7)) {
		t.Fatal("expected no Saturday Mon-Fri")
	}
	if HasSandwichDays(day(2025, 3, 9), day(2025, 3, 3)) {
		t.Fatal("expected inverted range to report false")
	}
}
