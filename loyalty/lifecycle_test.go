package loyalty_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/loyalty-engine/loyalty"
)

func TestEvaluateLifecycle(t *testing.T) {
	today := loyalty.MustParseDay("2025-06-15")
	d := loyalty.MustParseDay

	tests := []struct {
		name     string
		campaign loyalty.Campaign
		want     loyalty.Status
	}{
		{"inactive beats open-ended", loyalty.Campaign{Active: false, OpenEnded: true}, loyalty.StatusInactive},
		{"inactive beats in-range dates", loyalty.Campaign{Active: false, StartDate: d("2025-06-01"), EndDate: d("2025-06-30")}, loyalty.StatusInactive},
		{"open-ended ignores past end", loyalty.Campaign{Active: true, OpenEnded: true, EndDate: d("2025-01-01")}, loyalty.StatusOpen},
		{"ended", loyalty.Campaign{Active: true, EndDate: d("2025-06-14")}, loyalty.StatusEnded},
		{"end day inclusive", loyalty.Campaign{Active: true, EndDate: d("2025-06-15")}, loyalty.StatusActive},
		{"upcoming", loyalty.Campaign{Active: true, StartDate: d("2025-06-16")}, loyalty.StatusUpcoming},
		{"start day inclusive", loyalty.Campaign{Active: true, StartDate: d("2025-06-15")}, loyalty.StatusActive},
		{"no dates", loyalty.Campaign{Active: true}, loyalty.StatusActive},
		{"ended wins over upcoming", loyalty.Campaign{Active: true, StartDate: d("2025-07-01"), EndDate: d("2025-06-01")}, loyalty.StatusEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, loyalty.EvaluateLifecycle(tt.campaign, today))
		})
	}
}

func TestStatus_AcceptsTransactions(t *testing.T) {
	assert.True(t, loyalty.StatusActive.AcceptsTransactions())
	assert.True(t, loyalty.StatusOpen.AcceptsTransactions())
	assert.False(t, loyalty.StatusInactive.AcceptsTransactions())
	assert.False(t, loyalty.StatusUpcoming.AcceptsTransactions())
	assert.False(t, loyalty.StatusEnded.AcceptsTransactions())
}

func TestDay_TextRoundTrip(t *testing.T) {
	var d loyalty.Day
	assert.NoError(t, d.UnmarshalText([]byte("2025-02-28")))
	assert.Equal(t, "2025-03-01", d.AddDays(1).String())

	var zero loyalty.Day
	assert.NoError(t, zero.UnmarshalText(nil))
	assert.True(t, zero.IsZero())
	assert.Equal(t, "", zero.String())

	assert.Error(t, d.UnmarshalText([]byte("28/02/2025")))
}
