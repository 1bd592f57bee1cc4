package loyalty_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loyalty-engine/loyalty"
)

func TestAggregateClient(t *testing.T) {
	today := loyalty.MustParseDay("2025-06-15")
	catalog := []loyalty.Campaign{
		{ID: "a-stamps", Name: "A stamps", Type: loyalty.TypeStampCard, Active: true, OpenEnded: true, StampTarget: 4},
		{ID: "b-points", Name: "B points", Type: loyalty.TypePoints, Active: true, OpenEnded: true, RedeemThreshold: 10},
		{ID: "c-event", Name: "C event", Type: loyalty.TypeEvent, Active: true, OpenEnded: true},
	}
	at := func(day int) time.Time { return time.Date(2025, time.June, day, 12, 0, 0, 0, time.UTC) }
	txs := []loyalty.Transaction{
		{ClientID: "0000007", CampaignID: "a-stamps", StampsAwarded: 3, Total: decimal.NewFromInt(10), CreatedAt: at(1)},
		{ClientID: "0000007", CampaignID: "b-points", PointsAwarded: 12, Total: decimal.NewFromInt(12), CreatedAt: at(9)},
		{ClientID: "0000007", CampaignID: "a-stamps", StampsAwarded: 2, Total: decimal.NewFromInt(5), CreatedAt: at(3)},
		{ClientID: "0000007", CampaignID: "deleted", Total: decimal.NewFromInt(1), CreatedAt: at(2)},
		{ClientID: "0000007", Total: decimal.NewFromInt(2), CreatedAt: at(4)},
		{ClientID: "0000099", CampaignID: "a-stamps", StampsAwarded: 9, CreatedAt: at(14)},
	}

	// WHEN: Aggregating client 7 (raw id) with the stamp card in focus
	snap := loyalty.AggregateClient("7", txs, catalog, "a-stamps", today)

	// THEN: Totals cover every one of the client's transactions
	assert.Equal(t, loyalty.ClientID("0000007"), snap.ClientID)
	assert.Equal(t, 5, snap.TransactionCount)
	assert.True(t, decimal.NewFromInt(30).Equal(snap.TotalSpend))
	assert.Equal(t, at(9), snap.LastVisit)

	// AND: The focus gets the full evaluation
	require.NotNil(t, snap.Focus)
	assert.Equal(t, loyalty.StatusOpen, snap.Focus.Status)
	assert.Equal(t, 2, snap.Focus.TransactionCount)
	stamps := snap.Focus.Summary.(*loyalty.StampCardSummary)
	assert.Equal(t, 1, stamps.Earned)
	assert.Equal(t, 1, stamps.Completions)

	// AND: Only campaigns with activity are rolled up, in catalog order
	require.Len(t, snap.Others, 1)
	assert.Equal(t, loyalty.CampaignRollup{
		CampaignID: "b-points", CampaignName: "B points", Type: loyalty.TypePoints,
		TransactionCount: 1, PointsTotal: 12,
	}, snap.Others[0])
	assert.Equal(t, 1, snap.OrphanTransactions)
}

func TestAggregateClient_FocusWithoutTransactions(t *testing.T) {
	catalog := []loyalty.Campaign{{ID: "e", Name: "E", Type: loyalty.TypeEvent, Active: false}}

	snap := loyalty.AggregateClient("1", nil, catalog, "e", loyalty.MustParseDay("2025-01-01"))

	require.NotNil(t, snap.Focus)
	assert.Equal(t, loyalty.StatusInactive, snap.Focus.Status)
	assert.Equal(t, 0, snap.Focus.Summary.(*loyalty.EventSummary).Count)
	assert.True(t, snap.LastVisit.IsZero())
	assert.True(t, snap.TotalSpend.IsZero())
	assert.Empty(t, snap.Others)
}

func TestAggregateClient_UnknownFocus(t *testing.T) {
	snap := loyalty.AggregateClient("1", nil, nil, "gone", loyalty.MustParseDay("2025-01-01"))
	assert.Nil(t, snap.Focus)
}
