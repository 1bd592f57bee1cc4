/*
presets.go - Ready-made campaign definitions

PURPOSE:
  Starting points for the campaign editor and the demo scenarios. Each
  preset returns a CampaignJSON so callers can tweak fields before running
  it through FromJSON like any operator-supplied document.

AVAILABLE PRESETS:
  StampCardPreset:  N stamps, one per unit bought, then a free product
  PointsPreset:     points per currency unit, redeemable at a threshold
  DiscountPreset:   flat percentage off a scope of products
  EventPreset:      in-store event with a named offer
  BuyXGetYPreset:   buy X units, get Y free
  TieredPreset:     spend ladder with up to four rewards

EXAMPLE:
  cj := factory.StampCardPreset("vit-c", "Vitamin C card", 8, "Free pack")
  cj.Brand = "Redoxon"
  campaign, err := factory.FromJSON(cj)

SEE ALSO:
  - campaign.go: Document parsing and validation
*/
package factory

import (
	"github.com/shopspring/decimal"
	"github.com/warp/loyalty-engine/loyalty"
)

// =============================================================================
// PRESETS
// =============================================================================

func StampCardPreset(id, name string, target int, reward string) CampaignJSON {
	return CampaignJSON{
		ID:          id,
		Type:        string(loyalty.TypeStampCard),
		Name:        name,
		OpenEnded:   true,
		StampTarget: target,
		Reward:      reward,
	}
}

func PointsPreset(id, name string, perUnit decimal.Decimal, threshold int, reward string) CampaignJSON {
	return CampaignJSON{
		ID:              id,
		Type:            string(loyalty.TypePoints),
		Name:            name,
		OpenEnded:       true,
		PointsPerUnit:   &perUnit,
		RedeemThreshold: threshold,
		Reward:          reward,
	}
}

func DiscountPreset(id, name string, pct decimal.Decimal, scope string) CampaignJSON {
	return CampaignJSON{
		ID:            id,
		Type:          string(loyalty.TypeDiscount),
		Name:          name,
		OpenEnded:     true,
		DiscountPct:   &pct,
		DiscountScope: scope,
	}
}

// EventPreset runs between start and end, both YYYY-MM-DD.
func EventPreset(id, name, eventName, offer, start, end string) CampaignJSON {
	return CampaignJSON{
		ID:         id,
		Type:       string(loyalty.TypeEvent),
		Name:       name,
		StartDate:  start,
		EndDate:    end,
		EventName:  eventName,
		EventOffer: offer,
	}
}

func BuyXGetYPreset(id, name string, buy, get int, reward string) CampaignJSON {
	return CampaignJSON{
		ID:        id,
		Type:      string(loyalty.TypeBuyXGetY),
		Name:      name,
		OpenEnded: true,
		BuyQty:    buy,
		GetQty:    get,
		Reward:    reward,
	}
}

// TieredPreset takes tiers in any order; they are sorted by spend at
// evaluation time.
func TieredPreset(id, name string, tiers ...TierJSON) CampaignJSON {
	return CampaignJSON{
		ID:        id,
		Type:      string(loyalty.TypeTiered),
		Name:      name,
		OpenEnded: true,
		Tiers:     tiers,
	}
}

// Tier is shorthand for building TieredPreset arguments.
func Tier(spend int64, reward string) TierJSON {
	return TierJSON{Spend: decimal.NewFromInt(spend), Reward: reward}
}
