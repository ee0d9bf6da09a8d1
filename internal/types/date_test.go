package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var brt = time.FixedZone("BRT", -3*60*60)

func TestNextDueDate(t *testing.T) {
	jan31 := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	day31 := time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     time.Time
		frequency BillingFrequency
		anchor    *time.Time
		want      time.Time
	}{
		{
			name:      "monthly clamps to leap february",
			start:     jan31,
			frequency: BillingFrequencyMonthly,
			want:      time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "monthly clamps to non leap february",
			start:     time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC),
			frequency: BillingFrequencyMonthly,
			want:      time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "anchor restores the day after a clamped month",
			start:     time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
			frequency: BillingFrequencyMonthly,
			anchor:    &jan31,
			want:      time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "without anchor the clamped day drifts",
			start:     time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
			frequency: BillingFrequencyMonthly,
			want:      time.Date(2024, time.March, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "quarterly",
			start:     time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC),
			frequency: BillingFrequencyQuarterly,
			want:      time.Date(2024, time.April, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:      "quarterly across year with anchor",
			start:     time.Date(2024, time.November, 30, 0, 0, 0, 0, time.UTC),
			frequency: BillingFrequencyQuarterly,
			anchor:    &day31,
			want:      time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "semiannual clamps",
			start:     time.Date(2024, time.August, 31, 0, 0, 0, 0, time.UTC),
			frequency: BillingFrequencySemiannual,
			want:      time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "annual from leap day",
			start:     time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
			frequency: BillingFrequencyAnnual,
			want:      time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "non utc input is computed in utc",
			start:     time.Date(2024, time.January, 31, 22, 0, 0, 0, brt),
			frequency: BillingFrequencyMonthly,
			want:      time.Date(2024, time.March, 1, 1, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDueDate(tt.start, tt.frequency, tt.anchor)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestAddClampedDate(t *testing.T) {
	tests := []struct {
		name                string
		t                   time.Time
		years, months, days int
		want                time.Time
	}{
		{
			name:   "month end clamps",
			t:      time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "november plus two months",
			t:      time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC),
			months: 2,
			want:   time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "days cross the month boundary",
			t:    time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
			days: 5,
			want: time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "years and months together",
			t:      time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC),
			years:  1,
			months: 2,
			want:   time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "negative months",
			t:      time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
			months: -1,
			want:   time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddClampedDate(tt.t, tt.years, tt.months, tt.days)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestPeriodCharge(t *testing.T) {
	tests := []struct {
		monthly   string
		frequency BillingFrequency
		want      string
	}{
		{"50", BillingFrequencyMonthly, "50"},
		{"19.90", BillingFrequencyQuarterly, "59.7"},
		{"16.667", BillingFrequencyAnnual, "200"},
		{"10.005", BillingFrequencyMonthly, "10.01"},
		{"33.33", BillingFrequencySemiannual, "199.98"},
	}

	for _, tt := range tests {
		t.Run(tt.monthly+"/"+string(tt.frequency), func(t *testing.T) {
			got := PeriodCharge(decimal.RequireFromString(tt.monthly), tt.frequency)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestDefaultDueDate(t *testing.T) {
	ref := time.Date(2024, time.January, 27, 14, 30, 0, 0, time.UTC)

	assert.True(t, DefaultDueDate(ref, 0).Equal(time.Date(2024, time.January, 27, 0, 0, 0, 0, time.UTC)))
	assert.True(t, DefaultDueDate(ref, 3).Equal(time.Date(2024, time.January, 30, 0, 0, 0, 0, time.UTC)))

	// 23:00 in Sao Paulo is already the next day in UTC
	late := time.Date(2024, time.January, 27, 23, 0, 0, 0, brt)
	assert.True(t, DefaultDueDate(late, 0).Equal(time.Date(2024, time.January, 28, 0, 0, 0, 0, time.UTC)))
}

func TestBillingFrequency(t *testing.T) {
	assert.Equal(t, 1, BillingFrequencyMonthly.Months())
	assert.Equal(t, 3, BillingFrequencyQuarterly.Months())
	assert.Equal(t, 6, BillingFrequencySemiannual.Months())
	assert.Equal(t, 12, BillingFrequencyAnnual.Months())

	assert.NoError(t, BillingFrequencyAnnual.Validate())
	assert.Error(t, BillingFrequency("semanal").Validate())
}
