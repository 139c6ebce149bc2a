package budget

import (
	"errors"
	"testing"
	"time"
)

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(time.Date(2024, 2, 17, 15, 4, 5, 0, time.UTC))

	if !start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", start)
	}
	if end.Day() != 29 || end.Month() != time.February {
		t.Fatalf("expected leap-year end on Feb 29, got %v", end)
	}
	if !end.Add(time.Nanosecond).Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end must be the last instant of the month, got %v", end)
	}
}

func TestMonthRangeKeepsCivilDay(t *testing.T) {
	// 23:30 on Mar 31 in UTC-5 is already April in UTC.
	ref := time.Date(2024, 3, 31, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))

	start, _ := MonthRange(ref)
	if start.Month() != time.March {
		t.Fatalf("expected March, got %v", start.Month())
	}
	if MonthKey(ref) != "2024-03" {
		t.Fatalf("expected 2024-03, got %s", MonthKey(ref))
	}
}

func TestTrailingWindowStart(t *testing.T) {
	ref := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	got, err := TrailingWindowStart(ref, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 2024-01-01, got %v", got)
	}

	got, err = TrailingWindowStart(ref, 1)
	if err != nil || !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window of one must start at the reference month, got %v (%v)", got, err)
	}

	got, err = TrailingWindowStart(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), 13)
	if err != nil || !got.Equal(time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 2023-02-01, got %v (%v)", got, err)
	}
}

func TestTrailingWindowStartRejectsNonPositive(t *testing.T) {
	for _, months := range []int{0, -1} {
		if _, err := TrailingWindowStart(time.Now(), months); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("months=%d: expected ErrInvalidArgument, got %v", months, err)
		}
	}
}

func TestParseMonth(t *testing.T) {
	got, err := ParseMonth("2024-03")
	if err != nil || !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected %v (%v)", got, err)
	}

	got, err = ParseMonth("2024-03-17")
	if err != nil || !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected %v (%v)", got, err)
	}

	if _, err := ParseMonth("March"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
