/*
Package loyalty provides the pharmacy loyalty campaign engine.

PURPOSE:
  Derives reward progress and campaign lifecycle from two inputs: a catalog
  of campaign definitions and an append-only ledger of purchase transactions.
  Nothing derived is ever stored. Every summary is recomputed from the ledger,
  so changing a campaign never leaves a stale balance behind.

KEY CONCEPTS IN THIS FILE (types.go):
  - Campaign: A reward program with exactly one CampaignType
  - Transaction: An immutable purchase event, awards baked in at creation
  - Client: A national-ID keyed customer with a display name
  - Status: A campaign's derived lifecycle state

CAMPAIGN TYPES:
  stamp_card:  One stamp per item, reward every StampTarget stamps
  points:      PointsPerUnit points per currency unit, redeem at RedeemThreshold
  discount:    Flat DiscountPct on DiscountScope, no ledger state
  event:       Counts purchases made under an event offer
  buy_x_get_y: Every BuyQty purchases unlock GetQty free
  tiered:      Cumulative spend unlocks up to 4 reward tiers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified, only deleted as a correction
  2. Precision: Money, rates and percentages use decimal.Decimal
  3. Purity: Evaluators are folds over slices, no store access, no clock reads
  4. Totality: Malformed campaign data degrades to safe values, never panics

SEE ALSO:
  - identity.go: National ID normalization
  - lifecycle.go: Campaign status from dates and flags
  - reward.go: Per-type progress summaries
  - recorder.go: Validated ledger appends
  - aggregate.go: Per-client snapshot
*/
package loyalty

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CAMPAIGN TYPE - Closed set, selects the reward algorithm
// =============================================================================

type CampaignType string

const (
	TypeStampCard CampaignType = "stamp_card"
	TypePoints    CampaignType = "points"
	TypeDiscount  CampaignType = "discount"
	TypeEvent     CampaignType = "event"
	TypeBuyXGetY  CampaignType = "buy_x_get_y"
	TypeTiered    CampaignType = "tiered"
)

// CampaignTypes lists every supported type in display order.
var CampaignTypes = []CampaignType{
	TypeStampCard, TypePoints, TypeDiscount, TypeEvent, TypeBuyXGetY, TypeTiered,
}

// Known reports whether t is one of the supported campaign types.
func (t CampaignType) Known() bool {
	switch t {
	case TypeStampCard, TypePoints, TypeDiscount, TypeEvent, TypeBuyXGetY, TypeTiered:
		return true
	}
	return false
}

// Effective returns t, or TypeStampCard for unknown or empty values.
//
// OPEN QUESTION: the fallback preserves how existing data was always
// rendered. Whether an unknown type is graceful degradation or masks data
// corruption is pending product-owner confirmation.
func (t CampaignType) Effective() CampaignType {
	if t.Known() {
		return t
	}
	return TypeStampCard
}

// Label is the operator-facing name of the type.
func (t CampaignType) Label() string {
	switch t.Effective() {
	case TypePoints:
		return "Points"
	case TypeDiscount:
		return "Discount"
	case TypeEvent:
		return "Event"
	case TypeBuyXGetY:
		return "Buy X get Y"
	case TypeTiered:
		return "Tiered"
	default:
		return "Stamp card"
	}
}

// DefaultStampTarget applies to campaigns whose type could not be resolved
// and which carry no usable stamp target.
const DefaultStampTarget = 10

// MaxTiers is the largest tier ladder a tiered campaign may define.
const MaxTiers = 4

// =============================================================================
// CAMPAIGN - Reward program definition
// =============================================================================

type CampaignID string

// Tier is one rung of a tiered campaign.
type Tier struct {
	Spend  decimal.Decimal
	Reward string
}

// Campaign is a reward program definition. Only the parameters relevant to
// Type are meaningful; the rest are left zero.
type Campaign struct {
	ID          CampaignID
	Type        CampaignType
	Name        string
	Description string
	Brand       string
	Items       string // free-text scope hint, not evaluated

	Active    bool // operator kill switch
	OpenEnded bool // ignores StartDate/EndDate when true
	StartDate Day  // inclusive, zero = unbounded
	EndDate   Day  // inclusive, zero = unbounded

	// stamp_card
	StampTarget int

	// points
	PointsPerUnit   decimal.Decimal
	RedeemThreshold int

	// discount
	DiscountPct   decimal.Decimal
	DiscountScope string

	// event
	EventName  string
	EventOffer string

	// buy_x_get_y
	BuyQty int
	GetQty int

	// tiered
	Tiers []Tier

	// stamp_card, points, buy_x_get_y
	Reward string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// CLIENT - National-ID keyed customer
// =============================================================================

type ClientID string

type Client struct {
	ID        ClientID // always normalized, see NormalizeID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// TRANSACTION - Immutable purchase event
// =============================================================================

type TransactionID string

// Item is one cart line. Qty is at least 1 on recorded transactions.
type Item struct {
	Desc string
	Qty  int
}

// Transaction is one purchase event. Award fields are computed once by the
// Recorder and are never recomputed, even if the campaign changes later.
type Transaction struct {
	ID         TransactionID
	ClientID   ClientID
	ClientName string     // snapshot of the name at entry time, never re-synced
	CampaignID CampaignID // empty when the purchase is not tied to a campaign
	Items      []Item
	Total      decimal.Decimal
	ReceiptNo  string
	Notes      string
	CreatedAt  time.Time
	Date       Day

	StampsAwarded int
	PointsAwarded int
	ActionLabel   string
}

// ItemCount returns the sum of item quantities.
func (tx Transaction) ItemCount() int {
	n := 0
	for _, it := range tx.Items {
		n += it.Qty
	}
	return n
}
