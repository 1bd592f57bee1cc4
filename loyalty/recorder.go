/*
recorder.go - Validated creation of ledger entries

PURPOSE:
  The Recorder is the engine's only mutating component. It validates a
  purchase, computes the awards baked into the transaction, appends it to
  the Ledger and refreshes the Client registry.

VALIDATION ORDER:
  Checks run in a fixed order and the first failure is returned, because
  the message is shown verbatim to the operator:
    1. client id blank          -> ErrMissingClient
    2. campaign unknown         -> ErrCampaignNotFound
    3. campaign not active/open -> ErrCampaignNotActive
    4. no items                 -> ErrNoItems
  Nothing is written unless every check passes.

AWARDS AT WRITE TIME:
  stamp_card:  stamps = sum of item quantities
  points:      points = round(points_per_unit * total)
  other types: label only, progress is derived at read time

EXAMPLE FLOW:
  1. Operator scans 3 items for client "789M" on a 10-stamp card
  2. Record() normalizes the id to "0000789M"
  3. Transaction appended with StampsAwarded=3, "Awarded 3 stamps"
  4. Registry upserts "0000789M" -> "Ana Ruiz"

SEE ALSO:
  - reward.go: Folds the awards recorded here
  - store.go: Ledger and ClientRegistry interfaces
*/
package loyalty

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultCurrencySymbol prefixes money in action labels.
const DefaultCurrencySymbol = "€"

// RecordInput is a purchase as entered by the operator.
type RecordInput struct {
	ClientID   string // raw, normalized by Record
	ClientName string
	CampaignID CampaignID
	Items      []Item
	Total      decimal.Decimal
	ReceiptNo  string
	Notes      string
}

// Recorder validates purchases and appends them to a Ledger.
type Recorder struct {
	Campaigns CampaignStore
	Ledger    Ledger
	Clients   ClientRegistry

	Clock          Clock
	NewID          func() TransactionID
	CurrencySymbol string
	Logger         *zap.Logger
}

// NewRecorder returns a Recorder with a system clock, UUIDv7 transaction ids
// and the default currency symbol.
func NewRecorder(campaigns CampaignStore, ledger Ledger, clients ClientRegistry) *Recorder {
	return &Recorder{
		Campaigns:      campaigns,
		Ledger:         ledger,
		Clients:        clients,
		Clock:          SystemClock{},
		NewID:          NewTransactionID,
		CurrencySymbol: DefaultCurrencySymbol,
		Logger:         zap.NewNop(),
	}
}

// NewTransactionID returns a time-ordered UUIDv7 id.
func NewTransactionID() TransactionID {
	return TransactionID(uuid.Must(uuid.NewV7()).String())
}

// Record validates in, appends the resulting Transaction and upserts the
// client. On any validation failure the ledger is left untouched and the
// error is a *ValidationError.
func (r *Recorder) Record(ctx context.Context, in RecordInput) (Transaction, error) {
	clientID := NormalizeClientID(in.ClientID)
	if clientID == "" {
		return Transaction{}, newValidationError(ErrMissingClient, CodeMissingClient,
			"client_id", "client ID is required")
	}

	campaignID := CampaignID(strings.TrimSpace(string(in.CampaignID)))
	campaign, ok, err := r.lookupCampaign(ctx, campaignID)
	if err != nil {
		return Transaction{}, err
	}
	if !ok {
		return Transaction{}, newValidationError(ErrCampaignNotFound, CodeCampaignNotFound,
			"campaign_id", fmt.Sprintf("campaign %q not found", campaignID))
	}

	now := r.clock().Now()
	today := DayOf(now)
	if status := EvaluateLifecycle(campaign, today); !status.AcceptsTransactions() {
		return Transaction{}, newValidationError(ErrCampaignNotActive, CodeCampaignNotActive,
			"campaign_id", fmt.Sprintf("campaign %q is %s", campaign.Name, status))
	}

	items := cleanItems(in.Items)
	if len(items) == 0 {
		return Transaction{}, newValidationError(ErrNoItems, CodeNoItems,
			"items", "at least one item is required")
	}

	total := in.Total
	if total.IsNegative() {
		total = decimal.Zero
	}

	name := strings.TrimSpace(in.ClientName)
	if name == "" && r.Clients != nil {
		known, found, err := r.Clients.Get(ctx, clientID)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to look up client: %w", err)
		}
		if found {
			name = known.Name
		}
	}

	tx := Transaction{
		ID:         r.newID(),
		ClientID:   clientID,
		ClientName: name,
		CampaignID: campaign.ID,
		Items:      items,
		Total:      total,
		ReceiptNo:  strings.TrimSpace(in.ReceiptNo),
		Notes:      strings.TrimSpace(in.Notes),
		CreatedAt:  now,
		Date:       today,
	}
	r.award(campaign, &tx)

	if err := r.Ledger.Append(ctx, tx); err != nil {
		return Transaction{}, fmt.Errorf("failed to append transaction: %w", err)
	}
	if r.Clients != nil {
		if err := r.Clients.Upsert(ctx, clientID, name); err != nil {
			return tx, fmt.Errorf("transaction %s recorded but client upsert failed: %w", tx.ID, err)
		}
	}

	r.logger().Info("transaction recorded",
		zap.String("tx_id", string(tx.ID)),
		zap.String("client_id", string(tx.ClientID)),
		zap.String("campaign_id", string(tx.CampaignID)),
		zap.String("campaign_type", string(campaign.Type.Effective())),
		zap.Int("stamps", tx.StampsAwarded),
		zap.Int("points", tx.PointsAwarded),
	)
	return tx, nil
}

func (r *Recorder) lookupCampaign(ctx context.Context, id CampaignID) (Campaign, bool, error) {
	if id == "" {
		return Campaign{}, false, nil
	}
	c, ok, err := r.Campaigns.Get(ctx, id)
	if err != nil {
		return Campaign{}, false, fmt.Errorf("failed to load campaign: %w", err)
	}
	return c, ok, nil
}

// award fills the write-time award fields and the action label.
func (r *Recorder) award(c Campaign, tx *Transaction) {
	switch c.Type.Effective() {
	case TypePoints:
		tx.PointsAwarded = int(c.PointsPerUnit.Mul(tx.Total).Round(0).IntPart())
		tx.ActionLabel = fmt.Sprintf("Awarded %d %s", tx.PointsAwarded, plural(tx.PointsAwarded, "point"))
	case TypeDiscount:
		tx.ActionLabel = fmt.Sprintf("Applied %s%% discount", c.DiscountPct.String())
	case TypeEvent:
		tx.ActionLabel = "Event purchase recorded"
	case TypeBuyXGetY:
		tx.ActionLabel = fmt.Sprintf("Purchase tracked (%d → %d free)", c.BuyQty, c.GetQty)
	case TypeTiered:
		tx.ActionLabel = fmt.Sprintf("Spend recorded (%s%s)", r.currency(), tx.Total.StringFixed(2))
	default:
		tx.StampsAwarded = tx.ItemCount()
		tx.ActionLabel = fmt.Sprintf("Awarded %d %s", tx.StampsAwarded, plural(tx.StampsAwarded, "stamp"))
	}
}

// cleanItems trims descriptions, drops blank lines and raises qty to 1.
func cleanItems(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		desc := strings.TrimSpace(it.Desc)
		if desc == "" {
			continue
		}
		qty := it.Qty
		if qty < 1 {
			qty = 1
		}
		out = append(out, Item{Desc: desc, Qty: qty})
	}
	return out
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func (r *Recorder) clock() Clock {
	if r.Clock == nil {
		return SystemClock{}
	}
	return r.Clock
}

func (r *Recorder) newID() TransactionID {
	if r.NewID == nil {
		return NewTransactionID()
	}
	return r.NewID()
}

func (r *Recorder) currency() string {
	if r.CurrencySymbol == "" {
		return DefaultCurrencySymbol
	}
	return r.CurrencySymbol
}

func (r *Recorder) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
