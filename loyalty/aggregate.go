package loyalty

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGGREGATION FACADE - One client's view across campaigns
// =============================================================================

// FocusProgress is the full evaluation of the campaign currently in focus.
type FocusProgress struct {
	Campaign         Campaign
	Status           Status
	Summary          RewardSummary
	TransactionCount int
}

// CampaignRollup is the cheap summary shown for campaigns not in focus.
type CampaignRollup struct {
	CampaignID       CampaignID
	CampaignName     string
	Type             CampaignType
	TransactionCount int
	StampsTotal      int
	PointsTotal      int
}

// ClientSnapshot is everything shown for one client.
type ClientSnapshot struct {
	ClientID         ClientID
	TransactionCount int             // all of the client's transactions
	TotalSpend       decimal.Decimal // across all of them
	LastVisit        time.Time       // zero when the client has no transactions

	Focus  *FocusProgress   // nil when no focus was requested or it no longer resolves
	Others []CampaignRollup // catalog order, only campaigns with transactions

	// OrphanTransactions counts transactions whose campaign is no longer in
	// the catalog. They appear in no rollup.
	OrphanTransactions int
}

// AggregateClient builds the snapshot for clientID from the full ledger and
// catalog. Transactions without a campaign count toward the totals but not
// toward any campaign. Only the focus campaign runs the type-specific
// evaluator; the others get a rollup.
//
// AggregateClient only reads its inputs.
func AggregateClient(clientID ClientID, txs []Transaction, campaigns []Campaign, focus CampaignID, today Day) ClientSnapshot {
	clientID = ClientID(NormalizeID(string(clientID)))
	snap := ClientSnapshot{ClientID: clientID, TotalSpend: decimal.Zero}

	byCampaign := make(map[CampaignID][]Transaction)
	for _, tx := range txs {
		if tx.ClientID != clientID {
			continue
		}
		snap.TransactionCount++
		snap.TotalSpend = snap.TotalSpend.Add(tx.Total)
		if tx.CreatedAt.After(snap.LastVisit) {
			snap.LastVisit = tx.CreatedAt
		}
		if tx.CampaignID != "" {
			byCampaign[tx.CampaignID] = append(byCampaign[tx.CampaignID], tx)
		}
	}

	known := make(map[CampaignID]bool, len(campaigns))
	for _, c := range campaigns {
		known[c.ID] = true
		bucket := byCampaign[c.ID]

		if focus != "" && c.ID == focus {
			snap.Focus = &FocusProgress{
				Campaign:         c,
				Status:           EvaluateLifecycle(c, today),
				Summary:          EvaluateReward(c, bucket),
				TransactionCount: len(bucket),
			}
			continue
		}
		if len(bucket) == 0 {
			continue
		}
		snap.Others = append(snap.Others, rollup(c, bucket))
	}

	for id, bucket := range byCampaign {
		if !known[id] {
			snap.OrphanTransactions += len(bucket)
		}
	}
	return snap
}

func rollup(c Campaign, txs []Transaction) CampaignRollup {
	r := CampaignRollup{
		CampaignID:       c.ID,
		CampaignName:     c.Name,
		Type:             c.Type.Effective(),
		TransactionCount: len(txs),
	}
	for _, tx := range txs {
		r.StampsTotal += tx.StampsAwarded
		r.PointsTotal += tx.PointsAwarded
	}
	return r
}
