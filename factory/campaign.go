/*
Package factory provides JSON and YAML to Go campaign conversion.

PURPOSE:
  Converts campaign definition documents into loyalty.Campaign values and
  back. The API accepts JSON, the seed command accepts YAML catalogs, and
  both go through the same validation.

JSON SCHEMA:
  {
    "id": "vit-c-card",
    "type": "stamp_card",
    "name": "Vitamin C stamp card",
    "brand": "Redoxon",
    "active": true,
    "open_ended": false,
    "start_date": "2025-01-01",
    "end_date": "2025-12-31",
    "stamp_target": 8,
    "reward": "Free 30-tablet pack"
  }

  Per type: stamp_card (stamp_target, reward), points (points_per_unit,
  redeem_threshold, reward), discount (discount_pct, discount_scope),
  event (event_name, event_offer), buy_x_get_y (buy_qty, get_qty, reward),
  tiered (tiers: [{"spend": 50, "reward": "..."}], at most 4).

VALIDATION:
  Validate reports every problem at once, not just the first, so an
  operator can fix a catalog file in one pass. The engine still guards
  malformed values at read time; validation keeps them out of the store.

DEFAULTS:
  - id: generated UUID when empty
  - active: true when omitted

SEE ALSO:
  - presets.go: Ready-made definitions per campaign type
  - loyalty/types.go: Campaign type definition
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/loyalty-engine/loyalty"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// CampaignJSON is the document form of a campaign.
type CampaignJSON struct {
	ID          string `json:"id" yaml:"id"`
	Type        string `json:"type" yaml:"type"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Brand       string `json:"brand,omitempty" yaml:"brand,omitempty"`
	Items       string `json:"items,omitempty" yaml:"items,omitempty"`
	Active      *bool  `json:"active,omitempty" yaml:"active,omitempty"`
	OpenEnded   bool   `json:"open_ended,omitempty" yaml:"open_ended,omitempty"`
	StartDate   string `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty" yaml:"end_date,omitempty"`

	StampTarget     int              `json:"stamp_target,omitempty" yaml:"stamp_target,omitempty"`
	PointsPerUnit   *decimal.Decimal `json:"points_per_unit,omitempty" yaml:"points_per_unit,omitempty"`
	RedeemThreshold int              `json:"redeem_threshold,omitempty" yaml:"redeem_threshold,omitempty"`
	DiscountPct     *decimal.Decimal `json:"discount_pct,omitempty" yaml:"discount_pct,omitempty"`
	DiscountScope   string           `json:"discount_scope,omitempty" yaml:"discount_scope,omitempty"`
	EventName       string           `json:"event_name,omitempty" yaml:"event_name,omitempty"`
	EventOffer      string           `json:"event_offer,omitempty" yaml:"event_offer,omitempty"`
	BuyQty          int              `json:"buy_qty,omitempty" yaml:"buy_qty,omitempty"`
	GetQty          int              `json:"get_qty,omitempty" yaml:"get_qty,omitempty"`
	Tiers           []TierJSON       `json:"tiers,omitempty" yaml:"tiers,omitempty"`
	Reward          string           `json:"reward,omitempty" yaml:"reward,omitempty"`
}

// TierJSON is one rung of a tiered campaign.
type TierJSON struct {
	Spend  decimal.Decimal `json:"spend" yaml:"spend"`
	Reward string          `json:"reward" yaml:"reward"`
}

// CatalogYAML is a campaign catalog file.
type CatalogYAML struct {
	Campaigns []CampaignJSON `yaml:"campaigns"`
}

// =============================================================================
// VALIDATION ERRORS
// =============================================================================

// FieldError is one problem with a campaign document.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every problem found in a document.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Field + ": " + e.Message
	}
	return "invalid campaign: " + strings.Join(parts, "; ")
}

func (v *ValidationErrors) add(field, format string, args ...any) {
	*v = append(*v, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// =============================================================================
// PARSING
// =============================================================================

// ParseCampaign parses and validates a JSON campaign document.
func ParseCampaign(data []byte) (loyalty.Campaign, error) {
	var cj CampaignJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return loyalty.Campaign{}, fmt.Errorf("failed to parse campaign JSON: %w", err)
	}
	return FromJSON(cj)
}

// ParseCatalogYAML parses and validates a YAML catalog. It fails on the
// first invalid campaign, naming its position.
func ParseCatalogYAML(data []byte) ([]loyalty.Campaign, error) {
	var doc CatalogYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	campaigns := make([]loyalty.Campaign, 0, len(doc.Campaigns))
	seen := make(map[loyalty.CampaignID]bool)
	for i, cj := range doc.Campaigns {
		c, err := FromJSON(cj)
		if err != nil {
			return nil, fmt.Errorf("campaign #%d (%s): %w", i+1, cj.Name, err)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("campaign #%d: duplicate id %q", i+1, c.ID)
		}
		seen[c.ID] = true
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}

// MarshalCatalogYAML writes campaigns as a YAML catalog.
func MarshalCatalogYAML(campaigns []loyalty.Campaign) ([]byte, error) {
	doc := CatalogYAML{Campaigns: make([]CampaignJSON, len(campaigns))}
	for i, c := range campaigns {
		doc.Campaigns[i] = ToJSON(c)
	}
	return yaml.Marshal(doc)
}

// FromJSON validates cj and converts it to a loyalty.Campaign.
func FromJSON(cj CampaignJSON) (loyalty.Campaign, error) {
	if err := Validate(cj); err != nil {
		return loyalty.Campaign{}, err
	}

	c := loyalty.Campaign{
		ID:              loyalty.CampaignID(strings.TrimSpace(cj.ID)),
		Type:            loyalty.CampaignType(cj.Type),
		Name:            strings.TrimSpace(cj.Name),
		Description:     cj.Description,
		Brand:           cj.Brand,
		Items:           cj.Items,
		Active:          cj.Active == nil || *cj.Active,
		OpenEnded:       cj.OpenEnded,
		StampTarget:     cj.StampTarget,
		PointsPerUnit:   decimalOrZero(cj.PointsPerUnit),
		RedeemThreshold: cj.RedeemThreshold,
		DiscountPct:     decimalOrZero(cj.DiscountPct),
		DiscountScope:   cj.DiscountScope,
		EventName:       cj.EventName,
		EventOffer:      cj.EventOffer,
		BuyQty:          cj.BuyQty,
		GetQty:          cj.GetQty,
		Reward:          cj.Reward,
	}
	if c.ID == "" {
		c.ID = loyalty.CampaignID(NewCampaignID())
	}
	// Dates were checked by Validate.
	c.StartDate, _ = loyalty.ParseDay(cj.StartDate)
	c.EndDate, _ = loyalty.ParseDay(cj.EndDate)
	for _, t := range cj.Tiers {
		c.Tiers = append(c.Tiers, loyalty.Tier{Spend: t.Spend, Reward: t.Reward})
	}
	return c, nil
}

// ToJSON converts a campaign to its document form. Parameters of other
// types are omitted.
func ToJSON(c loyalty.Campaign) CampaignJSON {
	active := c.Active
	cj := CampaignJSON{
		ID:          string(c.ID),
		Type:        string(c.Type),
		Name:        c.Name,
		Description: c.Description,
		Brand:       c.Brand,
		Items:       c.Items,
		Active:      &active,
		OpenEnded:   c.OpenEnded,
		StartDate:   c.StartDate.String(),
		EndDate:     c.EndDate.String(),
	}

	switch c.Type.Effective() {
	case loyalty.TypePoints:
		ppu := c.PointsPerUnit
		cj.PointsPerUnit = &ppu
		cj.RedeemThreshold = c.RedeemThreshold
		cj.Reward = c.Reward
	case loyalty.TypeDiscount:
		pct := c.DiscountPct
		cj.DiscountPct = &pct
		cj.DiscountScope = c.DiscountScope
	case loyalty.TypeEvent:
		cj.EventName = c.EventName
		cj.EventOffer = c.EventOffer
	case loyalty.TypeBuyXGetY:
		cj.BuyQty = c.BuyQty
		cj.GetQty = c.GetQty
		cj.Reward = c.Reward
	case loyalty.TypeTiered:
		for _, t := range c.Tiers {
			cj.Tiers = append(cj.Tiers, TierJSON{Spend: t.Spend, Reward: t.Reward})
		}
	default:
		cj.StampTarget = c.StampTarget
		cj.Reward = c.Reward
	}
	return cj
}

// Validate checks a campaign document and returns ValidationErrors listing
// every problem, or nil.
func Validate(cj CampaignJSON) error {
	var errs ValidationErrors

	if strings.TrimSpace(cj.Name) == "" {
		errs.add("name", "is required")
	}

	typ := loyalty.CampaignType(cj.Type)
	if !typ.Known() {
		errs.add("type", "unknown campaign type %q", cj.Type)
	}

	start, startErr := loyalty.ParseDay(cj.StartDate)
	if startErr != nil {
		errs.add("start_date", "must be YYYY-MM-DD")
	}
	end, endErr := loyalty.ParseDay(cj.EndDate)
	if endErr != nil {
		errs.add("end_date", "must be YYYY-MM-DD")
	}
	if startErr == nil && endErr == nil && !start.IsZero() && !end.IsZero() && end.Before(start) {
		errs.add("end_date", "is before start_date")
	}

	switch typ {
	case loyalty.TypeStampCard:
		if cj.StampTarget <= 0 {
			errs.add("stamp_target", "must be a positive integer")
		}
	case loyalty.TypePoints:
		if cj.PointsPerUnit == nil || !cj.PointsPerUnit.IsPositive() {
			errs.add("points_per_unit", "must be greater than 0")
		}
		if cj.RedeemThreshold <= 0 {
			errs.add("redeem_threshold", "must be a positive integer")
		}
	case loyalty.TypeDiscount:
		if cj.DiscountPct == nil || cj.DiscountPct.IsNegative() || cj.DiscountPct.GreaterThan(decimal.NewFromInt(100)) {
			errs.add("discount_pct", "must be between 0 and 100")
		}
	case loyalty.TypeBuyXGetY:
		if cj.BuyQty <= 0 {
			errs.add("buy_qty", "must be a positive integer")
		}
		if cj.GetQty <= 0 {
			errs.add("get_qty", "must be a positive integer")
		}
	case loyalty.TypeTiered:
		if len(cj.Tiers) == 0 {
			errs.add("tiers", "at least one tier is required")
		}
		if len(cj.Tiers) > loyalty.MaxTiers {
			errs.add("tiers", "at most %d tiers are allowed, got %d", loyalty.MaxTiers, len(cj.Tiers))
		}
		for i, t := range cj.Tiers {
			if t.Spend.IsNegative() {
				errs.add(fmt.Sprintf("tiers[%d].spend", i), "must not be negative")
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// NewCampaignID returns a random campaign id.
func NewCampaignID() string {
	return "cmp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
