/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  loyalty domain types from the wire contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Campaign:     CampaignDTO (wraps factory.CampaignJSON)
  Client:       ClientDTO, ClientSnapshotDTO
  Transaction:  TransactionDTO, RecordTransactionRequest
  Progress:     RewardSummaryDTO and one *ProgressDTO per campaign type
  Scenarios:    ScenarioDTO, LoadScenarioRequest

MONEY:
  Decimals serialize as strings ("12.50"), as shopspring/decimal does by
  default. Requests accept either numbers or strings.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/campaign.go: CampaignJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/loyalty-engine/factory"
	"github.com/warp/loyalty-engine/loyalty"
)

// =============================================================================
// CAMPAIGNS
// =============================================================================

// CampaignDTO is a campaign document plus its lifecycle status today.
type CampaignDTO struct {
	factory.CampaignJSON
	Status    string    `json:"status"`
	TypeLabel string    `json:"type_label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// =============================================================================
// CLIENTS
// =============================================================================

type ClientDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClientSnapshotDTO is the aggregation facade output for one client.
type ClientSnapshotDTO struct {
	Client             ClientDTO       `json:"client"`
	TransactionCount   int             `json:"transaction_count"`
	TotalSpend         decimal.Decimal `json:"total_spend"`
	LastVisit          *time.Time      `json:"last_visit,omitempty"`
	Focus              *FocusDTO       `json:"focus,omitempty"`
	Others             []RollupDTO     `json:"others"`
	OrphanTransactions int             `json:"orphan_transactions"`
}

type FocusDTO struct {
	Campaign         CampaignDTO      `json:"campaign"`
	Status           string           `json:"status"`
	TransactionCount int              `json:"transaction_count"`
	Progress         RewardSummaryDTO `json:"progress"`
}

type RollupDTO struct {
	CampaignID       string `json:"campaign_id"`
	CampaignName     string `json:"campaign_name"`
	Type             string `json:"type"`
	TransactionCount int    `json:"transaction_count"`
	StampsTotal      int    `json:"stamps_total"`
	PointsTotal      int    `json:"points_total"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type ItemDTO struct {
	Desc string `json:"desc"`
	Qty  int    `json:"qty"`
}

type TransactionDTO struct {
	ID            string          `json:"id"`
	ClientID      string          `json:"client_id"`
	ClientName    string          `json:"client_name"`
	CampaignID    string          `json:"campaign_id,omitempty"`
	Items         []ItemDTO       `json:"items"`
	Total         decimal.Decimal `json:"total"`
	ReceiptNo     string          `json:"receipt_no,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Date          string          `json:"date"`
	StampsAwarded int             `json:"stamps_awarded"`
	PointsAwarded int             `json:"points_awarded"`
	ActionLabel   string          `json:"action_label"`
}

// RecordTransactionRequest is the body of POST /api/transactions.
type RecordTransactionRequest struct {
	ClientID   string          `json:"client_id"`
	ClientName string          `json:"client_name"`
	CampaignID string          `json:"campaign_id"`
	Items      []ItemDTO       `json:"items"`
	Total      decimal.Decimal `json:"total"`
	ReceiptNo  string          `json:"receipt_no"`
	Notes      string          `json:"notes"`
}

// =============================================================================
// PROGRESS - One populated variant per campaign type
// =============================================================================

// RewardSummaryDTO carries the campaign type and exactly one of the
// variant fields.
type RewardSummaryDTO struct {
	Type      string                `json:"type"`
	StampCard *StampCardProgressDTO `json:"stamp_card,omitempty"`
	Points    *PointsProgressDTO    `json:"points,omitempty"`
	Discount  *DiscountProgressDTO  `json:"discount,omitempty"`
	Event     *EventProgressDTO     `json:"event,omitempty"`
	BuyXGetY  *BuyXGetYProgressDTO  `json:"buy_x_get_y,omitempty"`
	Tiered    *TieredProgressDTO    `json:"tiered,omitempty"`
}

type StampCardProgressDTO struct {
	Target      int    `json:"target"`
	Total       int    `json:"total"`
	Earned      int    `json:"earned"`
	Completions int    `json:"completions"`
	Percent     int    `json:"percent"`
	Reward      string `json:"reward"`
}

type PointsProgressDTO struct {
	Threshold   int    `json:"threshold"`
	Total       int    `json:"total"`
	Remaining   int    `json:"remaining"`
	Redemptions int    `json:"redemptions"`
	Percent     int    `json:"percent"`
	Reward      string `json:"reward"`
}

type DiscountProgressDTO struct {
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Scope       string          `json:"scope"`
}

type EventProgressDTO struct {
	Count      int    `json:"count"`
	EventName  string `json:"event_name"`
	EventOffer string `json:"event_offer"`
}

type BuyXGetYProgressDTO struct {
	BuyQty          int    `json:"buy_qty"`
	GetQty          int    `json:"get_qty"`
	Count           int    `json:"count"`
	Progress        int    `json:"progress"`
	Completions     int    `json:"completions"`
	AboutToComplete bool   `json:"about_to_complete"`
	Reward          string `json:"reward"`
}

type TierDTO struct {
	Spend   decimal.Decimal `json:"spend"`
	Reward  string          `json:"reward"`
	Reached bool            `json:"reached"`
}

type TieredProgressDTO struct {
	TotalSpend      decimal.Decimal `json:"total_spend"`
	CurrentTier     *TierDTO        `json:"current_tier,omitempty"`
	NextTier        *TierDTO        `json:"next_tier,omitempty"`
	RemainingToNext decimal.Decimal `json:"remaining_to_next"`
	Ladder          []TierDTO       `json:"ladder"`
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// LifecycleChangeDTO is a status transition noticed by the lifecycle watcher.
type LifecycleChangeDTO struct {
	CampaignID   string    `json:"campaign_id"`
	CampaignName string    `json:"campaign_name"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	ObservedAt   time.Time `json:"observed_at"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// NormalizeDTO is the response of GET /api/normalize.
type NormalizeDTO struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toCampaignDTO(c loyalty.Campaign, today loyalty.Day) CampaignDTO {
	return CampaignDTO{
		CampaignJSON: factory.ToJSON(c),
		Status:       string(loyalty.EvaluateLifecycle(c, today)),
		TypeLabel:    c.Type.Effective().Label(),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toClientDTO(c loyalty.Client) ClientDTO {
	return ClientDTO{ID: string(c.ID), Name: c.Name, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func toTransactionDTO(tx loyalty.Transaction) TransactionDTO {
	items := make([]ItemDTO, len(tx.Items))
	for i, it := range tx.Items {
		items[i] = ItemDTO{Desc: it.Desc, Qty: it.Qty}
	}
	return TransactionDTO{
		ID:            string(tx.ID),
		ClientID:      string(tx.ClientID),
		ClientName:    tx.ClientName,
		CampaignID:    string(tx.CampaignID),
		Items:         items,
		Total:         tx.Total,
		ReceiptNo:     tx.ReceiptNo,
		Notes:         tx.Notes,
		CreatedAt:     tx.CreatedAt,
		Date:          tx.Date.String(),
		StampsAwarded: tx.StampsAwarded,
		PointsAwarded: tx.PointsAwarded,
		ActionLabel:   tx.ActionLabel,
	}
}

func toTransactionDTOs(txs []loyalty.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

// toRewardSummaryDTO must handle every loyalty.RewardSummary variant.
func toRewardSummaryDTO(s loyalty.RewardSummary) RewardSummaryDTO {
	dto := RewardSummaryDTO{Type: string(s.CampaignType())}
	switch v := s.(type) {
	case *loyalty.StampCardSummary:
		dto.StampCard = &StampCardProgressDTO{
			Target: v.Target, Total: v.Total, Earned: v.Earned,
			Completions: v.Completions, Percent: v.Percent, Reward: v.Reward,
		}
	case *loyalty.PointsSummary:
		dto.Points = &PointsProgressDTO{
			Threshold: v.Threshold, Total: v.Total, Remaining: v.Remaining,
			Redemptions: v.Redemptions, Percent: v.Percent, Reward: v.Reward,
		}
	case *loyalty.DiscountSummary:
		dto.Discount = &DiscountProgressDTO{DiscountPct: v.DiscountPct, Scope: v.Scope}
	case *loyalty.EventSummary:
		dto.Event = &EventProgressDTO{Count: v.Count, EventName: v.EventName, EventOffer: v.EventOffer}
	case *loyalty.BuyXGetYSummary:
		dto.BuyXGetY = &BuyXGetYProgressDTO{
			BuyQty: v.BuyQty, GetQty: v.GetQty, Count: v.Count, Progress: v.Progress,
			Completions: v.Completions, AboutToComplete: v.AboutToComplete, Reward: v.Reward,
		}
	case *loyalty.TieredSummary:
		t := &TieredProgressDTO{
			TotalSpend:      v.TotalSpend,
			RemainingToNext: v.RemainingToNext(),
			Ladder:          make([]TierDTO, len(v.Ladder)),
		}
		for i, step := range v.Ladder {
			t.Ladder[i] = TierDTO{Spend: step.Tier.Spend, Reward: step.Tier.Reward, Reached: step.Reached}
		}
		if v.CurrentTier != nil {
			t.CurrentTier = &TierDTO{Spend: v.CurrentTier.Spend, Reward: v.CurrentTier.Reward, Reached: true}
		}
		if v.NextTier != nil {
			t.NextTier = &TierDTO{Spend: v.NextTier.Spend, Reward: v.NextTier.Reward}
		}
		dto.Tiered = t
	}
	return dto
}

func toSnapshotDTO(client loyalty.Client, snap loyalty.ClientSnapshot, today loyalty.Day) ClientSnapshotDTO {
	dto := ClientSnapshotDTO{
		Client:             toClientDTO(client),
		TransactionCount:   snap.TransactionCount,
		TotalSpend:         snap.TotalSpend,
		Others:             make([]RollupDTO, len(snap.Others)),
		OrphanTransactions: snap.OrphanTransactions,
	}
	if !snap.LastVisit.IsZero() {
		lv := snap.LastVisit
		dto.LastVisit = &lv
	}
	if f := snap.Focus; f != nil {
		dto.Focus = &FocusDTO{
			Campaign:         toCampaignDTO(f.Campaign, today),
			Status:           string(f.Status),
			TransactionCount: f.TransactionCount,
			Progress:         toRewardSummaryDTO(f.Summary),
		}
	}
	for i, r := range snap.Others {
		dto.Others[i] = RollupDTO{
			CampaignID:       string(r.CampaignID),
			CampaignName:     r.CampaignName,
			Type:             string(r.Type),
			TransactionCount: r.TransactionCount,
			StampsTotal:      r.StampsTotal,
			PointsTotal:      r.PointsTotal,
		}
	}
	return dto
}
