package loyalty

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REWARD SUMMARY - Tagged union, one variant per campaign type
// =============================================================================

// RewardSummary is a type-specific progress summary. The concrete type is
// one of *StampCardSummary, *PointsSummary, *DiscountSummary, *EventSummary,
// *BuyXGetYSummary or *TieredSummary, chosen by the campaign's effective type.
type RewardSummary interface {
	CampaignType() CampaignType
	isRewardSummary()
}

type StampCardSummary struct {
	Target      int // stamps per completed card, at least 1
	Total       int // lifetime stamps
	Earned      int // stamps on the current card
	Completions int // completed cards
	Percent     int // progress on the current card, 0-100
	Reward      string
}

type PointsSummary struct {
	Threshold   int // points per redemption, at least 1
	Total       int // lifetime points
	Remaining   int // points toward the next redemption
	Redemptions int
	Percent     int
	Reward      string
}

type DiscountSummary struct {
	DiscountPct decimal.Decimal
	Scope       string
}

type EventSummary struct {
	Count      int
	EventName  string
	EventOffer string
}

type BuyXGetYSummary struct {
	BuyQty      int // at least 1
	GetQty      int
	Count       int // qualifying purchases
	Progress    int // purchases toward the current set
	Completions int
	// AboutToComplete is true when the next purchase completes the set.
	AboutToComplete bool
	Reward          string
}

type TierProgress struct {
	Tier    Tier
	Reached bool
}

type TieredSummary struct {
	TotalSpend  decimal.Decimal
	CurrentTier *Tier // highest reached tier, nil when none
	NextTier    *Tier // lowest unreached tier, nil when all reached
	Ladder      []TierProgress
}

func (*StampCardSummary) CampaignType() CampaignType { return TypeStampCard }
func (*PointsSummary) CampaignType() CampaignType    { return TypePoints }
func (*DiscountSummary) CampaignType() CampaignType  { return TypeDiscount }
func (*EventSummary) CampaignType() CampaignType     { return TypeEvent }
func (*BuyXGetYSummary) CampaignType() CampaignType  { return TypeBuyXGetY }
func (*TieredSummary) CampaignType() CampaignType    { return TypeTiered }

func (*StampCardSummary) isRewardSummary() {}
func (*PointsSummary) isRewardSummary()    {}
func (*DiscountSummary) isRewardSummary()  {}
func (*EventSummary) isRewardSummary()     {}
func (*BuyXGetYSummary) isRewardSummary()  {}
func (*TieredSummary) isRewardSummary()    {}

// RemainingToNext returns the spend still needed for NextTier, or zero.
func (s *TieredSummary) RemainingToNext() decimal.Decimal {
	if s.NextTier == nil {
		return decimal.Zero
	}
	return s.NextTier.Spend.Sub(s.TotalSpend)
}

// =============================================================================
// REWARD EVALUATOR
// =============================================================================

// EvaluateReward folds one client's transactions for campaign c into a
// progress summary. Transactions referencing other campaigns are ignored.
//
// Every branch is an order-independent fold, so any permutation of txs gives
// the same summary. An empty txs yields the zero state for the type, never nil.
func EvaluateReward(c Campaign, txs []Transaction) RewardSummary {
	own := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.CampaignID == c.ID {
			own = append(own, tx)
		}
	}

	switch c.Type.Effective() {
	case TypePoints:
		return evaluatePoints(c, own)
	case TypeDiscount:
		return &DiscountSummary{DiscountPct: c.DiscountPct, Scope: c.DiscountScope}
	case TypeEvent:
		return &EventSummary{Count: len(own), EventName: c.EventName, EventOffer: c.EventOffer}
	case TypeBuyXGetY:
		return evaluateBuyXGetY(c, own)
	case TypeTiered:
		return evaluateTiered(c, own)
	default:
		return evaluateStampCard(c, own)
	}
}

func evaluateStampCard(c Campaign, txs []Transaction) *StampCardSummary {
	target := c.StampTarget
	if !c.Type.Known() && target <= 0 {
		target = DefaultStampTarget
	}
	target = atLeastOne(target)

	total := 0
	for _, tx := range txs {
		total += tx.StampsAwarded
	}
	earned := total % target
	return &StampCardSummary{
		Target:      target,
		Total:       total,
		Earned:      earned,
		Completions: total / target,
		Percent:     percent(earned, target),
		Reward:      c.Reward,
	}
}

func evaluatePoints(c Campaign, txs []Transaction) *PointsSummary {
	threshold := atLeastOne(c.RedeemThreshold)

	total := 0
	for _, tx := range txs {
		total += tx.PointsAwarded
	}
	remaining := total % threshold
	return &PointsSummary{
		Threshold:   threshold,
		Total:       total,
		Remaining:   remaining,
		Redemptions: total / threshold,
		Percent:     percent(remaining, threshold),
		Reward:      c.Reward,
	}
}

func evaluateBuyXGetY(c Campaign, txs []Transaction) *BuyXGetYSummary {
	buy := atLeastOne(c.BuyQty)
	count := len(txs)
	progress := count % buy
	return &BuyXGetYSummary{
		BuyQty:          buy,
		GetQty:          c.GetQty,
		Count:           count,
		Progress:        progress,
		Completions:     count / buy,
		AboutToComplete: progress+1 >= buy,
		Reward:          c.Reward,
	}
}

func evaluateTiered(c Campaign, txs []Transaction) *TieredSummary {
	spend := decimal.Zero
	for _, tx := range txs {
		spend = spend.Add(tx.Total)
	}

	tiers := SortedTiers(c.Tiers)
	summary := &TieredSummary{
		TotalSpend: spend,
		Ladder:     make([]TierProgress, len(tiers)),
	}
	for i := range tiers {
		reached := spend.GreaterThanOrEqual(tiers[i].Spend)
		summary.Ladder[i] = TierProgress{Tier: tiers[i], Reached: reached}
		if reached {
			summary.CurrentTier = &tiers[i]
		} else if summary.NextTier == nil {
			summary.NextTier = &tiers[i]
		}
	}
	return summary
}

// SortedTiers returns a copy of tiers ordered by ascending spend. Tiers with
// equal spend keep their stored order.
func SortedTiers(tiers []Tier) []Tier {
	out := append([]Tier(nil), tiers...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Spend.LessThan(out[j].Spend)
	})
	return out
}

func atLeastOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func percent(part, whole int) int {
	return int(math.Round(100 * float64(part) / float64(whole)))
}
