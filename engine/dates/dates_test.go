package dates

import (
	"testing"
	"time"
)

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b Date
		want int
	}{
		{"same day", NewDate(2024, 1, 1), NewDate(2024, 1, 1), 0},
		{"forward", NewDate(2024, 1, 1), NewDate(2024, 1, 19), 18},
		{"backward", NewDate(2024, 1, 19), NewDate(2024, 1, 1), -18},
		{"across leap day", NewDate(2024, 2, 28), NewDate(2024, 3, 1), 2},
		{"across year", NewDate(2023, 12, 31), NewDate(2024, 1, 1), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.a, tt.b); got != tt.want {
				t.Errorf("DaysBetween(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFloorMod(t *testing.T) {
	tests := []struct {
		a, n, want int
	}{
		{0, 18, 0},
		{18, 18, 0},
		{19, 18, 1},
		{-1, 18, 17},
		{-18, 18, 0},
		{-19, 18, 17},
	}
	for _, tt := range tests {
		if got := FloorMod(tt.a, tt.n); got != tt.want {
			t.Errorf("FloorMod(%d, %d) = %d, want %d", tt.a, tt.n, got, tt.want)
		}
	}
}

func TestYearMonthNumDays(t *testing.T) {
	tests := []struct {
		ym   YearMonth
		want int
	}{
		{YearMonth{2024, time.January}, 31},
		{YearMonth{2024, time.February}, 29},
		{YearMonth{2023, time.February}, 28},
		{YearMonth{2024, time.April}, 30},
	}
	for _, tt := range tests {
		if got := tt.ym.NumDays(); got != tt.want {
			t.Errorf("%s.NumDays() = %d, want %d", tt.ym, got, tt.want)
		}
	}
}

func TestYearMonthNextPrev(t *testing.T) {
	dec := YearMonth{2023, time.December}
	jan := YearMonth{2024, time.January}

	if got := dec.Next(); got != jan {
		t.Errorf("Next() = %s, want %s", got, jan)
	}
	if got := jan.Prev(); got != dec {
		t.Errorf("Prev() = %s, want %s", got, dec)
	}
	if got := dec.AddMonths(13); (got != YearMonth{2025, time.January}) {
		t.Errorf("AddMonths(13) = %s", got)
	}
}

func TestYearMonthDates(t *testing.T) {
	ym := YearMonth{2024, time.February}
	days := ym.Dates()
	if len(days) != 29 {
		t.Fatalf("expected 29 dates, got %d", len(days))
	}
	if days[0] != NewDate(2024, 2, 1) || days[28] != NewDate(2024, 2, 29) {
		t.Errorf("unexpected bounds: %s .. %s", days[0], days[28])
	}
	for _, d := range days {
		if !ym.Contains(d) {
			t.Errorf("%s not contained in %s", d, ym)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-19")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != NewDate(2024, 1, 19) {
		t.Errorf("got %s", d)
	}

	if _, err := ParseDate("19/01/2024"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestAddDaysNormalizes(t *testing.T) {
	if got := NewDate(2024, 1, 31).AddDays(1); got != NewDate(2024, 2, 1) {
		t.Errorf("got %s", got)
	}
	if got := NewDate(2024, 3, 1).AddDays(-1); got != NewDate(2024, 2, 29) {
		t.Errorf("got %s", got)
	}
}
