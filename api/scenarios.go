/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built datasets that populate the store with a realistic
	pharmacy counter: a campaign catalog, regular clients and their purchase
	history. Each scenario demonstrates specific campaign types.

AVAILABLE SCENARIOS:

	stamp-card:    One vitamin stamp card, clients at different progress
	full-catalog:  One campaign of every type with mixed purchase history
	lifecycle:     Campaigns in every lifecycle status relative to today

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Create campaigns via factory presets
 3. Record purchases through the Recorder with a backdated clock, so
    awards and labels are computed exactly as at the counter

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "full-catalog"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - factory/presets.go: Campaign presets
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/loyalty-engine/factory"
	"github.com/warp/loyalty-engine/loyalty"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "stamp-card",
		Name:        "Stamp Card Regulars",
		Description: "A vitamin stamp card with clients close to, at and past a free product",
		Category:    "stamps",
	},
	{
		ID:          "full-catalog",
		Name:        "Full Catalog",
		Description: "One campaign of each type: stamps, points, discount, event, 3x2 and spend tiers",
		Category:    "catalog",
	},
	{
		ID:          "lifecycle",
		Name:        "Campaign Lifecycle",
		Description: "Open, active, upcoming, ended and paused campaigns side by side",
		Category:    "lifecycle",
	},
}

// Scenarios returns the available demo datasets.
func Scenarios() []ScenarioDTO {
	return append([]ScenarioDTO{}, scenarios...)
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_body", err)
		return
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID); err != nil {
		if _, known := scenarioLoaders[req.ScenarioID]; !known {
			writeError(w, http.StatusBadRequest, "Unknown scenario", "unknown_scenario", err)
			return
		}
		h.writeFailure(w, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		h.writeFailure(w, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LoadScenarioByID resets the store and loads scenario id.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	loader, ok := scenarioLoaders[id]
	if !ok {
		return fmt.Errorf("unknown scenario %q", id)
	}
	if err := h.reset(ctx); err != nil {
		return err
	}
	if err := loader(ctx, h); err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()

	h.Logger.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

func (h *Handler) reset(ctx context.Context) error {
	if h.Reset == nil {
		return fmt.Errorf("store does not support reset")
	}
	if err := h.Reset(ctx); err != nil {
		return err
	}
	if h.Watcher != nil {
		h.Watcher.Forget()
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

var scenarioLoaders = map[string]func(context.Context, *Handler) error{
	"stamp-card":   loadStampCardScenario,
	"full-catalog": loadFullCatalogScenario,
	"lifecycle":    loadLifecycleScenario,
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadStampCardScenario(ctx context.Context, h *Handler) error {
	cj := factory.StampCardPreset("vit-c-card", "Vitamin C stamp card", 8, "Free 30-tablet pack")
	cj.Brand = "Redoxon"
	cj.Items = "Vitamin C 1000mg, effervescent"
	if err := h.saveCampaigns(ctx, cj); err != nil {
		return err
	}

	sb := h.newSeeder(ctx)
	// Ana is one stamp away, Luis has completed a card, Marta just started.
	sb.buy(30, "12345678Z", "Ana Ruiz", "vit-c-card", "19.90", item("Redoxon 1000mg", 3))
	sb.buy(12, "12345678Z", "", "vit-c-card", "26.40", item("Redoxon 1000mg", 2), item("Redoxon Kids", 2))
	sb.buy(40, "876543W", "Luis Gómez", "vit-c-card", "48.60", item("Redoxon 1000mg", 6))
	sb.buy(5, "876543W", "", "vit-c-card", "13.20", item("Redoxon 1000mg", 3))
	sb.buy(1, "55555555K", "Marta Núñez", "vit-c-card", "6.60", item("Redoxon Kids", 1))
	return sb.err
}

func loadFullCatalogScenario(ctx context.Context, h *Handler) error {
	today := h.today()
	err := h.saveCampaigns(ctx,
		factory.StampCardPreset("omega-card", "Omega 3 card", 6, "Free Omega 3 pack"),
		factory.PointsPreset("club-points", "Pharmacy club points", decimal.NewFromInt(1), 100, "€5 voucher"),
		factory.DiscountPreset("sun-discount", "Sun care 15%", decimal.NewFromInt(15), "All sunscreens"),
		factory.EventPreset("skin-week", "Skin check week", "Dermatology week", "Free skin analysis",
			today.AddDays(-3).String(), today.AddDays(4).String()),
		factory.BuyXGetYPreset("baby-3x2", "Baby wipes 3x2", 2, 1, "Free pack of wipes"),
		factory.TieredPreset("spend-ladder", "Cosmetics spend ladder",
			factory.Tier(50, "Tote bag"), factory.Tier(100, "Travel kit"), factory.Tier(200, "Facial treatment")),
	)
	if err != nil {
		return err
	}

	sb := h.newSeeder(ctx)
	sb.buy(20, "12345678Z", "Ana Ruiz", "omega-card", "21.00", item("Omega 3 60caps", 2))
	sb.buy(10, "12345678Z", "", "club-points", "64.35", item("Ibuprofen 600", 1), item("Hand cream", 2))
	sb.buy(2, "12345678Z", "", "skin-week", "0", item("Skin analysis", 1))
	sb.buy(15, "876543W", "Luis Gómez", "baby-3x2", "11.50", item("Baby wipes", 2))
	sb.buy(3, "876543W", "", "baby-3x2", "5.75", item("Baby wipes", 1))
	sb.buy(25, "99887766P", "Carmen López", "spend-ladder", "72.00", item("Serum", 1), item("Moisturizer", 1))
	sb.buy(8, "99887766P", "", "spend-ladder", "45.50", item("Eye contour", 1))
	sb.buy(4, "99887766P", "", "sun-discount", "18.90", item("SPF50 spray", 1))
	sb.buy(6, "4321X", "Jorge Pérez", "club-points", "12.80", item("Toothpaste", 2))
	return sb.err
}

func loadLifecycleScenario(ctx context.Context, h *Handler) error {
	today := h.today()
	day := func(offset int) string { return today.AddDays(offset).String() }

	active := factory.EventPreset("flu-campaign", "Flu season", "Flu vaccination", "Free thermometer", day(-10), day(20))
	upcoming := factory.EventPreset("summer-fair", "Summer fair", "Summer health fair", "Samples", day(15), day(18))
	ended := factory.EventPreset("winter-promo", "Winter promo", "Winter care", "Lip balm", day(-60), day(-30))
	paused := factory.StampCardPreset("paused-card", "Paused card", 5, "Free gel")
	inactive := false
	paused.Active = &inactive
	open := factory.StampCardPreset("open-card", "Always-on card", 10, "Free product")

	if err := h.saveCampaigns(ctx, active, upcoming, ended, paused, open); err != nil {
		return err
	}

	sb := h.newSeeder(ctx)
	sb.buy(2, "12345678Z", "Ana Ruiz", "flu-campaign", "0", item("Flu shot", 1))
	sb.buy(1, "12345678Z", "", "open-card", "8.40", item("Paracetamol", 2))
	return sb.err
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) saveCampaigns(ctx context.Context, docs ...factory.CampaignJSON) error {
	for _, cj := range docs {
		c, err := factory.FromJSON(cj)
		if err != nil {
			return fmt.Errorf("campaign %s: %w", cj.ID, err)
		}
		if err := h.Campaigns.Save(ctx, c); err != nil {
			return fmt.Errorf("failed to save campaign %s: %w", c.ID, err)
		}
	}
	return nil
}

// seeder records backdated purchases and keeps the first error.
type seeder struct {
	ctx context.Context
	h   *Handler
	now time.Time
	err error
}

func (h *Handler) newSeeder(ctx context.Context) *seeder {
	return &seeder{ctx: ctx, h: h, now: h.Clock.Now()}
}

// buy records a purchase daysAgo days before now.
func (s *seeder) buy(daysAgo int, clientID, name, campaignID, total string, items ...loyalty.Item) {
	if s.err != nil {
		return
	}
	rec := *s.h.Recorder
	rec.Clock = loyalty.FixedClock{At: s.now.AddDate(0, 0, -daysAgo)}

	_, s.err = rec.Record(s.ctx, loyalty.RecordInput{
		ClientID:   clientID,
		ClientName: name,
		CampaignID: loyalty.CampaignID(campaignID),
		Items:      items,
		Total:      decimal.RequireFromString(total),
	})
}

func item(desc string, qty int) loyalty.Item {
	return loyalty.Item{Desc: desc, Qty: qty}
}
