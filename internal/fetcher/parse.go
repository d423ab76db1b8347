package fetcher

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// ParseMoney converts a source-supplied loss string ("$1,234,567", "2.5M",
// "600K") into a USD amount. Unparsable input yields zero; the cleaner
// drops non-positive amounts later.
func ParseMoney(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	multiplier := decimal.NewFromInt(1)
	switch {
	case strings.HasSuffix(s, "B"), strings.HasSuffix(s, "b"):
		multiplier = billion
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		multiplier = million
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		multiplier = thousand
		s = s[:len(s)-1]
	}

	value, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return value.Mul(multiplier)
}

// ParseDate parses a source date using the given layout, falling back to
// today (UTC, date-only) when the value does not parse. Sources routinely
// ship partial or reformatted dates; a bad date must not drop the row here.
func ParseDate(raw, layout string, now time.Time) time.Time {
	parsed, err := time.Parse(layout, strings.TrimSpace(raw))
	if err != nil {
		return DateOnly(now)
	}
	return DateOnly(parsed)
}

// DateOnly truncates a timestamp to a calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
