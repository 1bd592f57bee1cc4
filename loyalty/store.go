/*
store.go - Collaborator interfaces for campaign, ledger and client storage

PURPOSE:
  The engine never owns storage. Callers pass these interfaces in, backed by
  SQLite, memory, or a remote API. The engine itself holds no package-level
  state.

KEY INTERFACES:
  CampaignStore:  Campaign definitions, plain CRUD
  Ledger:         Append-only purchase log
  ClientRegistry: Client names by normalized id

APPEND-ONLY CONTRACT:
  Ledger has a single write path for the engine: Append(). Delete() exists
  only for administrative corrections and is never called by the engine.
  A corrected purchase is a delete followed by a new Record().

IMPLEMENTATIONS:
  - loyalty/store/memory.go: In-memory for testing and dev
  - store/sqlite/sqlite.go: SQLite for the server

SEE ALSO:
  - recorder.go: The only engine component that writes
  - aggregate.go: Reads the full ledger and catalog
*/
package loyalty

import "context"

// CampaignStore holds campaign definitions.
type CampaignStore interface {
	// List returns all campaigns in catalog order (by name).
	List(ctx context.Context) ([]Campaign, error)

	// Get returns the campaign with id, and false when there is none.
	Get(ctx context.Context, id CampaignID) (Campaign, bool, error)

	// Save creates or replaces a campaign. Returns ErrCampaignTypeChange when
	// the stored campaign has a different type.
	Save(ctx context.Context, c Campaign) error

	// Delete removes a campaign. Its transactions stay in the ledger.
	Delete(ctx context.Context, id CampaignID) error
}

// Ledger is the append-only log of purchase transactions.
type Ledger interface {
	// Append adds a transaction. Returns ErrDuplicateTransaction if the id
	// already exists. This is the engine's ONLY write operation.
	Append(ctx context.Context, tx Transaction) error

	// List returns every transaction, oldest first.
	List(ctx context.Context) ([]Transaction, error)

	// ListByClient returns one client's transactions, oldest first.
	ListByClient(ctx context.Context, clientID ClientID) ([]Transaction, error)

	// Delete removes a transaction as an administrative correction.
	Delete(ctx context.Context, id TransactionID) error
}

// ClientRegistry maps normalized client ids to display names.
type ClientRegistry interface {
	// Upsert records name for id. A blank name never replaces a known one.
	Upsert(ctx context.Context, id ClientID, name string) error

	// Get returns the client with id, and false when there is none.
	Get(ctx context.Context, id ClientID) (Client, bool, error)

	// List returns all clients ordered by name.
	List(ctx context.Context) ([]Client, error)

	// Search returns clients whose folded name contains query or whose id
	// starts with the normalized query.
	Search(ctx context.Context, query string) ([]Client, error)
}
