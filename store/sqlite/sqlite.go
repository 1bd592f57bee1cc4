/*
Package sqlite provides a SQLite-backed implementation of the loyalty stores.

PURPOSE:
  Implements loyalty.CampaignStore, loyalty.Ledger and loyalty.ClientRegistry
  on one SQLite database. This holds the operator's local dataset.

INTERFACES IMPLEMENTED:
  loyalty.CampaignStore:  via Store.Campaigns()
  loyalty.Ledger:         via Store.Ledger()
  loyalty.ClientRegistry: via Store.Clients()

APPEND-ONLY ENFORCEMENT:
  The transactions table is never UPDATEd. The only DELETE is the
  administrative correction path (Ledger.Delete). Derived progress is never
  stored, so there is nothing else to keep in sync.

KEY TABLES:
  campaigns:    Campaign definitions, one column per parameter
  transactions: Immutable purchase log, awards baked in
  clients:      Normalized id -> display name, plus a folded search key

INDEXES:
  - idx_transactions_client:   Per-client snapshot (hot path)
  - idx_transactions_campaign: Campaign-scoped reporting
  - idx_clients_name_key:      Client search

MONEY:
  Decimals (totals, rates, percentages, tier spend) are stored as TEXT and
  parsed with shopspring/decimal, never as REAL.

USAGE:
  store, err := sqlite.New("./data/loyalty.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  recorder := loyalty.NewRecorder(store.Campaigns(), store.Ledger(), store.Clients())

SEE ALSO:
  - loyalty/store.go: Interface definitions
  - loyalty/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/loyalty-engine/loyalty"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Campaigns() *Campaigns { return &Campaigns{s: s} }
func (s *Store) Ledger() *Ledger       { return &Ledger{s: s} }
func (s *Store) Clients() *Clients     { return &Clients{s: s} }

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Campaign definitions
	CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		brand TEXT NOT NULL DEFAULT '',
		items TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		open_ended BOOLEAN NOT NULL DEFAULT FALSE,
		start_date TEXT,
		end_date TEXT,
		stamp_target INTEGER NOT NULL DEFAULT 0,
		points_per_unit TEXT NOT NULL DEFAULT '0',
		redeem_threshold INTEGER NOT NULL DEFAULT 0,
		discount_pct TEXT NOT NULL DEFAULT '0',
		discount_scope TEXT NOT NULL DEFAULT '',
		event_name TEXT NOT NULL DEFAULT '',
		event_offer TEXT NOT NULL DEFAULT '',
		buy_qty INTEGER NOT NULL DEFAULT 0,
		get_qty INTEGER NOT NULL DEFAULT 0,
		tiers_json TEXT NOT NULL DEFAULT '[]',
		reward TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		client_id TEXT NOT NULL,
		client_name TEXT NOT NULL DEFAULT '',
		campaign_id TEXT,
		items_json TEXT NOT NULL,
		total TEXT NOT NULL,
		receipt_no TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		date TEXT NOT NULL,
		stamps_awarded INTEGER NOT NULL DEFAULT 0,
		points_awarded INTEGER NOT NULL DEFAULT 0,
		action_label TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_client
		ON transactions(client_id, seq);
	CREATE INDEX IF NOT EXISTS idx_transactions_campaign
		ON transactions(campaign_id) WHERE campaign_id IS NOT NULL;

	-- Client registry
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		name_key TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clients_name_key
		ON clients(name_key);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CAMPAIGN STORE (loyalty.CampaignStore interface)
// =============================================================================

type Campaigns struct{ s *Store }

const campaignColumns = `id, type, name, description, brand, items, active, open_ended,
	start_date, end_date, stamp_target, points_per_unit, redeem_threshold,
	discount_pct, discount_scope, event_name, event_offer, buy_qty, get_qty,
	tiers_json, reward, created_at, updated_at`

// Save creates or replaces a campaign. The type of an existing campaign
// cannot change.
func (c *Campaigns) Save(ctx context.Context, campaign loyalty.Campaign) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	var existingType string
	err := c.s.db.QueryRowContext(ctx, "SELECT type FROM campaigns WHERE id = ?", campaign.ID).Scan(&existingType)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to load campaign: %w", err)
	case existingType != string(campaign.Type):
		return loyalty.ErrCampaignTypeChange
	}

	tiersJSON, err := marshalTiers(campaign.Tiers)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO campaigns (` + campaignColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			brand = excluded.brand,
			items = excluded.items,
			active = excluded.active,
			open_ended = excluded.open_ended,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			stamp_target = excluded.stamp_target,
			points_per_unit = excluded.points_per_unit,
			redeem_threshold = excluded.redeem_threshold,
			discount_pct = excluded.discount_pct,
			discount_scope = excluded.discount_scope,
			event_name = excluded.event_name,
			event_offer = excluded.event_offer,
			buy_qty = excluded.buy_qty,
			get_qty = excluded.get_qty,
			tiers_json = excluded.tiers_json,
			reward = excluded.reward,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	createdAt := campaign.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	_, err = c.s.db.ExecContext(ctx, query,
		campaign.ID, campaign.Type, campaign.Name, campaign.Description, campaign.Brand, campaign.Items,
		campaign.Active, campaign.OpenEnded,
		nullDay(campaign.StartDate), nullDay(campaign.EndDate),
		campaign.StampTarget, campaign.PointsPerUnit.String(), campaign.RedeemThreshold,
		campaign.DiscountPct.String(), campaign.DiscountScope,
		campaign.EventName, campaign.EventOffer,
		campaign.BuyQty, campaign.GetQty,
		tiersJSON, campaign.Reward,
		formatTime(createdAt), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}
	return nil
}

// Get retrieves a campaign by ID.
func (c *Campaigns) Get(ctx context.Context, id loyalty.CampaignID) (loyalty.Campaign, bool, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	rows, err := c.s.db.QueryContext(ctx, "SELECT "+campaignColumns+" FROM campaigns WHERE id = ?", id)
	if err != nil {
		return loyalty.Campaign{}, false, fmt.Errorf("failed to query campaign: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return loyalty.Campaign{}, false, rows.Err()
	}
	campaign, err := scanCampaign(rows)
	if err != nil {
		return loyalty.Campaign{}, false, err
	}
	return campaign, true, nil
}

// List returns all campaigns ordered by name.
func (c *Campaigns) List(ctx context.Context) ([]loyalty.Campaign, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	rows, err := c.s.db.QueryContext(ctx, "SELECT "+campaignColumns+" FROM campaigns ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []loyalty.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, rows.Err()
}

// Delete removes a campaign. Its transactions stay in the ledger.
func (c *Campaigns) Delete(ctx context.Context, id loyalty.CampaignID) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	res, err := c.s.db.ExecContext(ctx, "DELETE FROM campaigns WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return loyalty.ErrCampaignNotFound
	}
	return nil
}

func scanCampaign(rows *sql.Rows) (loyalty.Campaign, error) {
	var (
		c             loyalty.Campaign
		startDate     sql.NullString
		endDate       sql.NullString
		pointsPerUnit string
		discountPct   string
		tiersJSON     string
		createdAt     string
		updatedAt     string
	)

	err := rows.Scan(
		&c.ID, &c.Type, &c.Name, &c.Description, &c.Brand, &c.Items, &c.Active, &c.OpenEnded,
		&startDate, &endDate, &c.StampTarget, &pointsPerUnit, &c.RedeemThreshold,
		&discountPct, &c.DiscountScope, &c.EventName, &c.EventOffer, &c.BuyQty, &c.GetQty,
		&tiersJSON, &c.Reward, &createdAt, &updatedAt,
	)
	if err != nil {
		return c, fmt.Errorf("failed to scan campaign: %w", err)
	}

	c.StartDate = parseDay(startDate.String)
	c.EndDate = parseDay(endDate.String)
	c.PointsPerUnit = parseDecimal(pointsPerUnit)
	c.DiscountPct = parseDecimal(discountPct)
	c.Tiers, err = unmarshalTiers(tiersJSON)
	if err != nil {
		return c, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}

// =============================================================================
// LEDGER (loyalty.Ledger interface)
// =============================================================================

type Ledger struct{ s *Store }

const transactionColumns = `id, client_id, client_name, campaign_id, items_json, total,
	receipt_no, notes, created_at, date, stamps_awarded, points_awarded, action_label`

// Append adds a transaction to the ledger.
func (l *Ledger) Append(ctx context.Context, tx loyalty.Transaction) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	itemsJSON, err := marshalItems(tx.Items)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = l.s.db.ExecContext(ctx, query,
		tx.ID,
		tx.ClientID,
		tx.ClientName,
		nullString(string(tx.CampaignID)),
		itemsJSON,
		tx.Total.String(),
		tx.ReceiptNo,
		tx.Notes,
		formatTime(tx.CreatedAt),
		tx.Date.String(),
		tx.StampsAwarded,
		tx.PointsAwarded,
		tx.ActionLabel,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return loyalty.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// List returns every transaction in insertion order.
func (l *Ledger) List(ctx context.Context) ([]loyalty.Transaction, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	return l.query(ctx, "SELECT "+transactionColumns+" FROM transactions ORDER BY seq")
}

// ListByClient returns one client's transactions in insertion order.
func (l *Ledger) ListByClient(ctx context.Context, clientID loyalty.ClientID) ([]loyalty.Transaction, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	return l.query(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE client_id = ? ORDER BY seq",
		clientID)
}

// Get returns a specific transaction by ID.
func (l *Ledger) Get(ctx context.Context, id loyalty.TransactionID) (loyalty.Transaction, bool, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	txs, err := l.query(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	if err != nil || len(txs) == 0 {
		return loyalty.Transaction{}, false, err
	}
	return txs[0], true, nil
}

// Delete removes a transaction as an administrative correction.
func (l *Ledger) Delete(ctx context.Context, id loyalty.TransactionID) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	res, err := l.s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return loyalty.ErrTransactionNotFound
	}
	return nil
}

func (l *Ledger) query(ctx context.Context, query string, args ...any) ([]loyalty.Transaction, error) {
	rows, err := l.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []loyalty.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (loyalty.Transaction, error) {
	var (
		tx         loyalty.Transaction
		campaignID sql.NullString
		itemsJSON  string
		total      string
		createdAt  string
		date       string
	)

	err := rows.Scan(
		&tx.ID, &tx.ClientID, &tx.ClientName, &campaignID, &itemsJSON, &total,
		&tx.ReceiptNo, &tx.Notes, &createdAt, &date,
		&tx.StampsAwarded, &tx.PointsAwarded, &tx.ActionLabel,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.CampaignID = loyalty.CampaignID(campaignID.String)
	if err := json.Unmarshal([]byte(itemsJSON), &tx.Items); err != nil {
		return tx, fmt.Errorf("failed to decode items of %s: %w", tx.ID, err)
	}
	tx.Total = parseDecimal(total)
	tx.CreatedAt = parseTime(createdAt)
	tx.Date = parseDay(date)
	return tx, nil
}

// =============================================================================
// CLIENT REGISTRY (loyalty.ClientRegistry interface)
// =============================================================================

type Clients struct{ s *Store }

// Upsert records name for id. A blank name never overwrites a known one.
func (c *Clients) Upsert(ctx context.Context, id loyalty.ClientID, name string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	query := `
		INSERT INTO clients (id, name, name_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			name_key = excluded.name_key,
			updated_at = excluded.updated_at
		WHERE excluded.name <> '' AND excluded.name <> clients.name
	`

	now := formatTime(time.Now().UTC())
	_, err := c.s.db.ExecContext(ctx, query, id, name, loyalty.FoldName(name), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert client: %w", err)
	}
	return nil
}

// Get retrieves a client by ID.
func (c *Clients) Get(ctx context.Context, id loyalty.ClientID) (loyalty.Client, bool, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	clients, err := c.query(ctx, "SELECT id, name, created_at, updated_at FROM clients WHERE id = ?", id)
	if err != nil || len(clients) == 0 {
		return loyalty.Client{}, false, err
	}
	return clients[0], true, nil
}

// List returns all clients ordered by name.
func (c *Clients) List(ctx context.Context) ([]loyalty.Client, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	return c.query(ctx, "SELECT id, name, created_at, updated_at FROM clients ORDER BY name, id")
}

// Search matches the folded name anywhere or the id by prefix.
func (c *Clients) Search(ctx context.Context, query string) ([]loyalty.Client, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return c.List(ctx)
	}

	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	return c.query(ctx, `
		SELECT id, name, created_at, updated_at FROM clients
		WHERE name_key LIKE ? ESCAPE '\' OR id LIKE ? ESCAPE '\' OR id LIKE ? ESCAPE '\'
		ORDER BY name, id`,
		"%"+escapeLike(loyalty.FoldName(q))+"%",
		escapeLike(strings.ToUpper(q))+"%",
		escapeLike(loyalty.NormalizeID(q))+"%",
	)
}

func (c *Clients) query(ctx context.Context, query string, args ...any) ([]loyalty.Client, error) {
	rows, err := c.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []loyalty.Client
	for rows.Next() {
		var client loyalty.Client
		var createdAt, updatedAt string
		if err := rows.Scan(&client.ID, &client.Name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		client.CreatedAt = parseTime(createdAt)
		client.UpdatedAt = parseTime(updatedAt)
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"transactions", "clients", "campaigns"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDay(d loyalty.Day) sql.NullString {
	return nullString(d.String())
}

func parseDay(s string) loyalty.Day {
	d, err := loyalty.ParseDay(s)
	if err != nil {
		return loyalty.Day{}
	}
	return d
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

type tierRow struct {
	Spend  string `json:"spend"`
	Reward string `json:"reward"`
}

func marshalTiers(tiers []loyalty.Tier) (string, error) {
	rows := make([]tierRow, len(tiers))
	for i, t := range tiers {
		rows[i] = tierRow{Spend: t.Spend.String(), Reward: t.Reward}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("failed to encode tiers: %w", err)
	}
	return string(b), nil
}

func unmarshalTiers(s string) ([]loyalty.Tier, error) {
	var rows []tierRow
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		return nil, fmt.Errorf("failed to decode tiers: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	tiers := make([]loyalty.Tier, len(rows))
	for i, r := range rows {
		tiers[i] = loyalty.Tier{Spend: parseDecimal(r.Spend), Reward: r.Reward}
	}
	return tiers, nil
}

type itemRow struct {
	Desc string `json:"desc"`
	Qty  int    `json:"qty"`
}

func marshalItems(items []loyalty.Item) (string, error) {
	rows := make([]itemRow, len(items))
	for i, it := range items {
		rows[i] = itemRow{Desc: it.Desc, Qty: it.Qty}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("failed to encode items: %w", err)
	}
	return string(b), nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var (
	_ loyalty.CampaignStore  = (*Campaigns)(nil)
	_ loyalty.Ledger         = (*Ledger)(nil)
	_ loyalty.ClientRegistry = (*Clients)(nil)
)
