// Package store provides in-memory implementations of the loyalty stores.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/loyalty-engine/loyalty"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds campaigns, transactions and clients behind one lock. Use the
// Campaigns, Ledger and Clients views for the loyalty interfaces.
type Memory struct {
	mu           sync.RWMutex
	campaigns    map[loyalty.CampaignID]loyalty.Campaign
	transactions []loyalty.Transaction
	txIndex      map[loyalty.TransactionID]int
	clients      map[loyalty.ClientID]loyalty.Client

	// Now stamps campaign and client audit fields. Defaults to time.Now.
	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		campaigns: make(map[loyalty.CampaignID]loyalty.Campaign),
		txIndex:   make(map[loyalty.TransactionID]int),
		clients:   make(map[loyalty.ClientID]loyalty.Client),
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Campaigns() *MemoryCampaigns { return &MemoryCampaigns{m: m} }
func (m *Memory) Ledger() *MemoryLedger       { return &MemoryLedger{m: m} }
func (m *Memory) Clients() *MemoryClients     { return &MemoryClients{m: m} }

// =============================================================================
// CAMPAIGNS
// =============================================================================

type MemoryCampaigns struct{ m *Memory }

func (c *MemoryCampaigns) List(_ context.Context) ([]loyalty.Campaign, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()

	result := make([]loyalty.Campaign, 0, len(c.m.campaigns))
	for _, campaign := range c.m.campaigns {
		result = append(result, cloneCampaign(campaign))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (c *MemoryCampaigns) Get(_ context.Context, id loyalty.CampaignID) (loyalty.Campaign, bool, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()

	campaign, ok := c.m.campaigns[id]
	if !ok {
		return loyalty.Campaign{}, false, nil
	}
	return cloneCampaign(campaign), true, nil
}

func (c *MemoryCampaigns) Save(_ context.Context, campaign loyalty.Campaign) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	now := c.m.Now()
	if existing, ok := c.m.campaigns[campaign.ID]; ok {
		if existing.Type != campaign.Type {
			return loyalty.ErrCampaignTypeChange
		}
		campaign.CreatedAt = existing.CreatedAt
	} else if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}
	campaign.UpdatedAt = now
	c.m.campaigns[campaign.ID] = cloneCampaign(campaign)
	return nil
}

func (c *MemoryCampaigns) Delete(_ context.Context, id loyalty.CampaignID) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	if _, ok := c.m.campaigns[id]; !ok {
		return loyalty.ErrCampaignNotFound
	}
	delete(c.m.campaigns, id)
	return nil
}

// =============================================================================
// LEDGER
// =============================================================================

type MemoryLedger struct{ m *Memory }

// Append adds a transaction. Append-only.
func (l *MemoryLedger) Append(_ context.Context, tx loyalty.Transaction) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()

	if _, exists := l.m.txIndex[tx.ID]; exists {
		return loyalty.ErrDuplicateTransaction
	}
	tx.Items = append([]loyalty.Item(nil), tx.Items...)
	l.m.txIndex[tx.ID] = len(l.m.transactions)
	l.m.transactions = append(l.m.transactions, tx)
	return nil
}

func (l *MemoryLedger) List(_ context.Context) ([]loyalty.Transaction, error) {
	l.m.mu.RLock()
	defer l.m.mu.RUnlock()

	result := make([]loyalty.Transaction, len(l.m.transactions))
	for i, tx := range l.m.transactions {
		result[i] = cloneTransaction(tx)
	}
	return result, nil
}

func (l *MemoryLedger) ListByClient(_ context.Context, clientID loyalty.ClientID) ([]loyalty.Transaction, error) {
	l.m.mu.RLock()
	defer l.m.mu.RUnlock()

	var result []loyalty.Transaction
	for _, tx := range l.m.transactions {
		if tx.ClientID == clientID {
			result = append(result, cloneTransaction(tx))
		}
	}
	return result, nil
}

// Delete removes a transaction as an administrative correction.
func (l *MemoryLedger) Delete(_ context.Context, id loyalty.TransactionID) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()

	i, ok := l.m.txIndex[id]
	if !ok {
		return loyalty.ErrTransactionNotFound
	}
	l.m.transactions = append(l.m.transactions[:i], l.m.transactions[i+1:]...)
	delete(l.m.txIndex, id)
	for j := i; j < len(l.m.transactions); j++ {
		l.m.txIndex[l.m.transactions[j].ID] = j
	}
	return nil
}

// =============================================================================
// CLIENTS
// =============================================================================

type MemoryClients struct{ m *Memory }

// Upsert records name for id, never replacing a known name with a blank one.
func (c *MemoryClients) Upsert(_ context.Context, id loyalty.ClientID, name string) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	now := c.m.Now()
	existing, ok := c.m.clients[id]
	if !ok {
		c.m.clients[id] = loyalty.Client{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
		return nil
	}
	if name != "" && name != existing.Name {
		existing.Name = name
		existing.UpdatedAt = now
		c.m.clients[id] = existing
	}
	return nil
}

func (c *MemoryClients) Get(_ context.Context, id loyalty.ClientID) (loyalty.Client, bool, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()

	client, ok := c.m.clients[id]
	return client, ok, nil
}

func (c *MemoryClients) List(ctx context.Context) ([]loyalty.Client, error) {
	return c.Search(ctx, "")
}

func (c *MemoryClients) Search(_ context.Context, query string) ([]loyalty.Client, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()

	var result []loyalty.Client
	for _, client := range c.m.clients {
		if loyalty.MatchesClient(client, query) {
			result = append(result, client)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Reset drops all data (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.campaigns = make(map[loyalty.CampaignID]loyalty.Campaign)
	m.transactions = nil
	m.txIndex = make(map[loyalty.TransactionID]int)
	m.clients = make(map[loyalty.ClientID]loyalty.Client)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func cloneCampaign(c loyalty.Campaign) loyalty.Campaign {
	c.Tiers = append([]loyalty.Tier(nil), c.Tiers...)
	return c
}

func cloneTransaction(tx loyalty.Transaction) loyalty.Transaction {
	tx.Items = append([]loyalty.Item(nil), tx.Items...)
	return tx
}

var (
	_ loyalty.CampaignStore  = (*MemoryCampaigns)(nil)
	_ loyalty.Ledger         = (*MemoryLedger)(nil)
	_ loyalty.ClientRegistry = (*MemoryClients)(nil)
)
