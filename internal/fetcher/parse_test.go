package fetcher

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"$1,234,567", "1234567"},
		{"$1,234,567.89", "1234567.89"},
		{"2.5M", "2500000"},
		{"$600K", "600000"},
		{"1.2B", "1200000000"},
		{" $42 ", "42"},
		{"0", "0"},
		{"", "0"},
		{"n/a", "0"},
		{"$,", "0"},
	}

	for _, tc := range cases {
		got := ParseMoney(tc.in)
		want, _ := decimal.NewFromString(tc.want)
		if !got.Equal(want) {
			t.Errorf("ParseMoney(%q) = %s, want %s", tc.in, got.String(), tc.want)
		}
	}
}

func TestParseDateFallsBackToToday(t *testing.T) {
	now := time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC)

	got := ParseDate("12 Mar 2023", "02 Jan 2006", now)
	want := time.Date(2023, 3, 12, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected parsed date %s, got %s", want, got)
	}

	got = ParseDate("not a date", "02 Jan 2006", now)
	want = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected fallback to today %s, got %s", want, got)
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2024, 1, 2, 23, 59, 59, 999, time.FixedZone("X", 3600))
	got := DateOnly(in)
	if got.Hour() != 0 || got.Minute() != 0 || got.Location() != time.UTC {
		t.Fatalf("DateOnly should truncate to UTC midnight, got %s", got)
	}
}
