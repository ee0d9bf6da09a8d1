package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// NextDueDate returns the end of the billing period that starts at periodStart.
// The month count comes from the frequency. The day of month is taken from the anchor
// when given, otherwise from periodStart, and is clamped to the last day of the target month
// so that Jan 31 + 1 month lands on Feb 29 (or 28) and never rolls over into March.
// All arithmetic is done in UTC.
func NextDueDate(periodStart time.Time, frequency BillingFrequency, anchor *time.Time) time.Time {
	start := periodStart.UTC()
	target := AddClampedDate(time.Date(start.Year(), start.Month(), 1,
		start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), time.UTC), 0, frequency.Months(), 0)

	day := start.Day()
	if anchor != nil {
		day = anchor.UTC().Day()
	}

	if last := LastDayOfMonth(target); day > last {
		day = last
	}

	return time.Date(target.Year(), target.Month(), day,
		target.Hour(), target.Minute(), target.Second(), target.Nanosecond(), time.UTC)
}

// PeriodCharge is the amount billed for one period of the given frequency
func PeriodCharge(monthlyValue decimal.Decimal, frequency BillingFrequency) decimal.Decimal {
	return monthlyValue.Mul(decimal.NewFromInt(int64(frequency.Months()))).Round(2)
}

// DefaultDueDate returns the start of the reference's UTC day advanced by graceDays.
// With the platform default of zero days a new charge is due immediately.
func DefaultDueDate(reference time.Time, graceDays int) time.Time {
	return StartOfDay(reference).AddDate(0, 0, graceDays)
}

// StartOfDay truncates t to midnight UTC
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// LastDayOfMonth returns the number of days in t's month
func LastDayOfMonth(t time.Time) int {
	firstOfNextMonth := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	return firstOfNextMonth.AddDate(0, 0, -1).Day()
}

// AddClampedDate adds years, months and days to t. When the resulting month is shorter than
// the original day the day is clamped to the last valid day of that month.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)

	// adding 2 months to November lands on January next year
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	lastDay := LastDayOfMonth(time.Date(newY, newM, 1, 0, 0, 0, 0, t.Location()))
	if d > lastDay {
		d = lastDay
	}

	// days are applied after clamping the month so they may cross month boundaries
	return time.Date(newY, newM, d, h, min, sec, t.Nanosecond(), t.Location()).AddDate(0, 0, days)
}
