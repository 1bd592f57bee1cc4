package loyalty_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loyalty-engine/loyalty"
	"github.com/warp/loyalty-engine/loyalty/store"
	"go.uber.org/zap/zaptest"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var recorderNow = time.Date(2025, time.June, 15, 18, 30, 0, 0, time.UTC)

func newTestRecorder(t *testing.T, campaigns ...loyalty.Campaign) (*loyalty.Recorder, *store.Memory) {
	mem := store.NewMemory()
	ctx := context.Background()
	for _, c := range campaigns {
		require.NoError(t, mem.Campaigns().Save(ctx, c))
	}

	rec := loyalty.NewRecorder(mem.Campaigns(), mem.Ledger(), mem.Clients())
	rec.Clock = loyalty.FixedClock{At: recorderNow}
	rec.Logger = zaptest.NewLogger(t)
	seq := 0
	rec.NewID = func() loyalty.TransactionID {
		seq++
		return loyalty.TransactionID(fmt.Sprintf("tx-%03d", seq))
	}
	return rec, mem
}

func ledgerLen(t *testing.T, mem *store.Memory) int {
	txs, err := mem.Ledger().List(context.Background())
	require.NoError(t, err)
	return len(txs)
}

var (
	stampCard = loyalty.Campaign{ID: "stamps", Type: loyalty.TypeStampCard, Name: "Stamps", Active: true, OpenEnded: true, StampTarget: 5}
	pointsCmp = loyalty.Campaign{ID: "points", Type: loyalty.TypePoints, Name: "Points", Active: true, OpenEnded: true,
		PointsPerUnit: decimal.RequireFromString("1.5"), RedeemThreshold: 100}
)

func oneItem() []loyalty.Item { return []loyalty.Item{{Desc: "Ibuprofen", Qty: 1}} }

// =============================================================================
// VALIDATION ORDER
// =============================================================================

func TestRecord_ValidationOrder(t *testing.T) {
	paused := loyalty.Campaign{ID: "paused", Type: loyalty.TypeStampCard, Name: "Paused", Active: false, StampTarget: 5}
	rec, mem := newTestRecorder(t, stampCard, paused)

	tests := []struct {
		name  string
		input loyalty.RecordInput
		want  error
		code  string
	}{
		{
			name:  "missing client reported before everything else",
			input: loyalty.RecordInput{ClientID: "", CampaignID: "bad", Items: nil},
			want:  loyalty.ErrMissingClient, code: loyalty.CodeMissingClient,
		},
		{
			name:  "unknown campaign before no items",
			input: loyalty.RecordInput{ClientID: "1", CampaignID: "bad"},
			want:  loyalty.ErrCampaignNotFound, code: loyalty.CodeCampaignNotFound,
		},
		{
			name:  "blank campaign id is not found",
			input: loyalty.RecordInput{ClientID: "1", CampaignID: "  ", Items: oneItem()},
			want:  loyalty.ErrCampaignNotFound, code: loyalty.CodeCampaignNotFound,
		},
		{
			name:  "inactive campaign before no items",
			input: loyalty.RecordInput{ClientID: "1", CampaignID: "paused"},
			want:  loyalty.ErrCampaignNotActive, code: loyalty.CodeCampaignNotActive,
		},
		{
			name:  "only blank items",
			input: loyalty.RecordInput{ClientID: "1", CampaignID: "stamps", Items: []loyalty.Item{{Desc: "  ", Qty: 3}}},
			want:  loyalty.ErrNoItems, code: loyalty.CodeNoItems,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rec.Record(context.Background(), tt.input)

			require.ErrorIs(t, err, tt.want)
			var verr *loyalty.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.code, verr.Code)
			assert.True(t, loyalty.IsValidation(err))
		})
	}

	// Nothing reached the ledger or the registry.
	assert.Equal(t, 0, ledgerLen(t, mem))
	clients, err := mem.Clients().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestRecord_EndedCampaignRejected(t *testing.T) {
	ended := loyalty.Campaign{ID: "old", Type: loyalty.TypeEvent, Name: "Old", Active: true,
		StartDate: loyalty.MustParseDay("2025-05-01"), EndDate: loyalty.MustParseDay("2025-06-14")}
	rec, mem := newTestRecorder(t, ended)

	_, err := rec.Record(context.Background(), loyalty.RecordInput{ClientID: "1", CampaignID: "old", Items: oneItem()})

	assert.ErrorIs(t, err, loyalty.ErrCampaignNotActive)
	assert.Contains(t, err.Error(), "ended")
	assert.Equal(t, 0, ledgerLen(t, mem))
}

// =============================================================================
// AWARDS
// =============================================================================

func TestRecord_StampCardAwardsItemQuantities(t *testing.T) {
	rec, mem := newTestRecorder(t, stampCard)

	// WHEN: Recording two lines, one with a bogus quantity and one blank line
	tx, err := rec.Record(context.Background(), loyalty.RecordInput{
		ClientID:   " 789m",
		ClientName: " Ana Ruiz ",
		CampaignID: "stamps",
		Items: []loyalty.Item{
			{Desc: " Redoxon ", Qty: 2},
			{Desc: "Kids", Qty: 0},
			{Desc: "", Qty: 4},
		},
		Total:     decimal.RequireFromString("19.90"),
		ReceiptNo: " R-1 ",
	})

	// THEN: Quantities are cleaned and summed into stamps
	require.NoError(t, err)
	assert.Equal(t, loyalty.TransactionID("tx-001"), tx.ID)
	assert.Equal(t, loyalty.ClientID("0000789M"), tx.ClientID)
	assert.Equal(t, "Ana Ruiz", tx.ClientName)
	assert.Equal(t, []loyalty.Item{{Desc: "Redoxon", Qty: 2}, {Desc: "Kids", Qty: 1}}, tx.Items)
	assert.Equal(t, 3, tx.StampsAwarded)
	assert.Equal(t, 0, tx.PointsAwarded)
	assert.Equal(t, "Awarded 3 stamps", tx.ActionLabel)
	assert.Equal(t, "R-1", tx.ReceiptNo)
	assert.Equal(t, recorderNow, tx.CreatedAt)
	assert.Equal(t, loyalty.MustParseDay("2025-06-15"), tx.Date)

	// AND: The ledger and registry were updated
	assert.Equal(t, 1, ledgerLen(t, mem))
	client, ok, err := mem.Clients().Get(context.Background(), "0000789M")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ana Ruiz", client.Name)
}

func TestRecord_PointsRounding(t *testing.T) {
	rec, _ := newTestRecorder(t, pointsCmp)

	tests := []struct {
		total string
		want  int
		label string
	}{
		{"10", 15, "Awarded 15 points"},
		{"0.5", 1, "Awarded 1 point"}, // 0.75 rounds up
		{"0.3", 0, "Awarded 0 points"},
		{"-20", 0, "Awarded 0 points"}, // negative totals clamp to zero
	}
	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			tx, err := rec.Record(context.Background(), loyalty.RecordInput{
				ClientID: "1", CampaignID: "points", Items: oneItem(),
				Total: decimal.RequireFromString(tt.total),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, tx.PointsAwarded)
			assert.Equal(t, tt.label, tx.ActionLabel)
			assert.False(t, tx.Total.IsNegative())
		})
	}
}

func TestRecord_LabelsPerType(t *testing.T) {
	campaigns := []loyalty.Campaign{
		{ID: "d", Type: loyalty.TypeDiscount, Name: "D", Active: true, OpenEnded: true, DiscountPct: decimal.NewFromInt(15)},
		{ID: "e", Type: loyalty.TypeEvent, Name: "E", Active: true, OpenEnded: true},
		{ID: "b", Type: loyalty.TypeBuyXGetY, Name: "B", Active: true, OpenEnded: true, BuyQty: 2, GetQty: 1},
		{ID: "t", Type: loyalty.TypeTiered, Name: "T", Active: true, OpenEnded: true, Tiers: tiers(50)},
	}
	rec, _ := newTestRecorder(t, campaigns...)
	rec.CurrencySymbol = "$"

	want := map[loyalty.CampaignID]string{
		"d": "Applied 15% discount",
		"e": "Event purchase recorded",
		"b": "Purchase tracked (2 → 1 free)",
		"t": "Spend recorded ($42.50)",
	}
	for id, label := range want {
		tx, err := rec.Record(context.Background(), loyalty.RecordInput{
			ClientID: "1", CampaignID: id, Items: oneItem(), Total: decimal.RequireFromString("42.5"),
		})
		require.NoError(t, err)
		assert.Equal(t, label, tx.ActionLabel, string(id))
		assert.Zero(t, tx.StampsAwarded)
		assert.Zero(t, tx.PointsAwarded)
	}
}

// =============================================================================
// CLIENT NAME SNAPSHOT
// =============================================================================

func TestRecord_NameSnapshot(t *testing.T) {
	rec, mem := newTestRecorder(t, stampCard)
	ctx := context.Background()

	// GIVEN: A first visit with a name
	_, err := rec.Record(ctx, loyalty.RecordInput{ClientID: "42", ClientName: "Ana", CampaignID: "stamps", Items: oneItem()})
	require.NoError(t, err)

	// WHEN: A second visit without a name, then a third with a corrected one
	second, err := rec.Record(ctx, loyalty.RecordInput{ClientID: "0000042", CampaignID: "stamps", Items: oneItem()})
	require.NoError(t, err)
	_, err = rec.Record(ctx, loyalty.RecordInput{ClientID: "42", ClientName: "Ana María", CampaignID: "stamps", Items: oneItem()})
	require.NoError(t, err)

	// THEN: The blank visit borrowed the registry name, and old entries keep theirs
	assert.Equal(t, "Ana", second.ClientName)
	txs, err := mem.Ledger().ListByClient(ctx, "0000042")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, []string{"Ana", "Ana", "Ana María"}, []string{txs[0].ClientName, txs[1].ClientName, txs[2].ClientName})

	client, _, err := mem.Clients().Get(ctx, "0000042")
	require.NoError(t, err)
	assert.Equal(t, "Ana María", client.Name)
}

func TestRecord_DuplicateIDRejected(t *testing.T) {
	rec, mem := newTestRecorder(t, stampCard)
	rec.NewID = func() loyalty.TransactionID { return "same" }
	ctx := context.Background()

	_, err := rec.Record(ctx, loyalty.RecordInput{ClientID: "1", CampaignID: "stamps", Items: oneItem()})
	require.NoError(t, err)
	_, err = rec.Record(ctx, loyalty.RecordInput{ClientID: "1", CampaignID: "stamps", Items: oneItem()})

	assert.ErrorIs(t, err, loyalty.ErrDuplicateTransaction)
	assert.False(t, loyalty.IsValidation(err))
	assert.Equal(t, 1, ledgerLen(t, mem))
}

func TestNewTransactionID_Unique(t *testing.T) {
	seen := map[loyalty.TransactionID]bool{}
	for i := 0; i < 100; i++ {
		id := loyalty.NewTransactionID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
