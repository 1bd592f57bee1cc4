/*
handlers.go - HTTP API handlers for the loyalty engine

PURPOSE:
  Exposes the loyalty engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the loyalty package.

ENDPOINTS:
  Campaigns:
    GET    /api/campaigns                      List with lifecycle status
    POST   /api/campaigns                      Create or update from JSON
    GET    /api/campaigns/{id}                 Campaign details
    DELETE /api/campaigns/{id}                 Remove (transactions stay)
    GET    /api/campaigns/lifecycle            Recent status transitions

  Clients:
    GET    /api/clients?q=                     List or search
    GET    /api/clients/{id}                   Client details
    GET    /api/clients/{id}/snapshot          Progress, ?campaign_id= focus
    GET    /api/clients/{id}/transactions      History, newest first

  Transactions:
    POST   /api/transactions                   Record a purchase
    DELETE /api/transactions/{id}              Administrative correction

  Tools:
    GET    /api/normalize?id=                  Normalize a national ID

ERROR HANDLING:
  Errors are returned as ErrorResponse with a status chosen by statusFor:
  - 400: Recorder validation (missing_client, no_items), invalid input
  - 404: Unknown campaign, client or transaction
  - 409: Campaign not accepting purchases, type change, duplicate id
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The server is meant for a single pharmacy counter.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo dataset loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/warp/loyalty-engine/factory"
	"github.com/warp/loyalty-engine/loyalty"
	"github.com/warp/loyalty-engine/loyalty/store"
	"github.com/warp/loyalty-engine/store/sqlite"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Backend is the storage the handlers serve from.
type Backend struct {
	Campaigns loyalty.CampaignStore
	Ledger    loyalty.Ledger
	Clients   loyalty.ClientRegistry
	Reset     func(ctx context.Context) error
}

func SQLiteBackend(s *sqlite.Store) Backend {
	return Backend{Campaigns: s.Campaigns(), Ledger: s.Ledger(), Clients: s.Clients(), Reset: s.Reset}
}

func MemoryBackend(m *store.Memory) Backend {
	return Backend{Campaigns: m.Campaigns(), Ledger: m.Ledger(), Clients: m.Clients(), Reset: m.Reset}
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Backend
	Recorder *loyalty.Recorder
	Clock    loyalty.Clock
	Logger   *zap.Logger

	// Watcher is optional; without it the lifecycle endpoint returns [].
	Watcher *LifecycleWatcher

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over b. All "today" decisions use clock.
func NewHandler(b Backend, clock loyalty.Clock, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	rec := loyalty.NewRecorder(b.Campaigns, b.Ledger, b.Clients)
	rec.Clock = clock
	rec.Logger = log.Named("recorder")
	return &Handler{
		Backend:  b,
		Recorder: rec,
		Clock:    clock,
		Logger:   log,
	}
}

func (h *Handler) today() loyalty.Day {
	return loyalty.Today(h.Clock)
}

// =============================================================================
// CAMPAIGN HANDLERS
// =============================================================================

// ListCampaigns returns the catalog with each campaign's status today.
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Campaigns.List(r.Context())
	if err != nil {
		h.writeFailure(w, "Failed to list campaigns", err)
		return
	}

	today := h.today()
	statusFilter := r.URL.Query().Get("status")
	dtos := make([]CampaignDTO, 0, len(campaigns))
	for _, c := range campaigns {
		dto := toCampaignDTO(c, today)
		if statusFilter != "" && dto.Status != statusFilter {
			continue
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := loyalty.CampaignID(chi.URLParam(r, "id"))
	c, ok, err := h.Campaigns.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, "Failed to get campaign", err)
		return
	}
	if !ok {
		h.writeFailure(w, "Campaign not found", loyalty.ErrCampaignNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toCampaignDTO(c, h.today()))
}

// SaveCampaign creates or replaces a campaign from a JSON document.
func (h *Handler) SaveCampaign(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_body", err)
		return
	}

	c, err := factory.ParseCampaign(body)
	if err != nil {
		var verrs factory.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "Invalid campaign",
				"code":   "invalid_campaign",
				"fields": verrs,
			})
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid campaign JSON", "invalid_body", err)
		return
	}

	ctx := r.Context()
	if err := h.Campaigns.Save(ctx, c); err != nil {
		h.writeFailure(w, "Failed to save campaign", err)
		return
	}
	saved, _, err := h.Campaigns.Get(ctx, c.ID)
	if err != nil {
		h.writeFailure(w, "Failed to reload campaign", err)
		return
	}

	h.Logger.Info("campaign saved",
		zap.String("campaign_id", string(saved.ID)),
		zap.String("type", string(saved.Type)),
	)
	writeJSON(w, http.StatusCreated, toCampaignDTO(saved, h.today()))
}

func (h *Handler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := loyalty.CampaignID(chi.URLParam(r, "id"))
	if err := h.Campaigns.Delete(r.Context(), id); err != nil {
		h.writeFailure(w, "Failed to delete campaign", err)
		return
	}
	h.Logger.Info("campaign deleted", zap.String("campaign_id", string(id)))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": string(id)})
}

// ListLifecycleChanges returns the status transitions seen by the watcher.
func (h *Handler) ListLifecycleChanges(w http.ResponseWriter, r *http.Request) {
	if h.Watcher == nil {
		writeJSON(w, http.StatusOK, []LifecycleChangeDTO{})
		return
	}
	writeJSON(w, http.StatusOK, h.Watcher.Changes())
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns all clients, or those matching ?q= by name or id.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Clients.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeFailure(w, "Failed to list clients", err)
		return
	}
	dtos := make([]ClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = toClientDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	client, ok := h.lookupClient(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(client))
}

// GetClientSnapshot returns the aggregation for one client. ?campaign_id=
// selects the focus campaign that gets a full progress evaluation.
func (h *Handler) GetClientSnapshot(w http.ResponseWriter, r *http.Request) {
	client, ok := h.lookupClient(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	txs, err := h.Ledger.ListByClient(ctx, client.ID)
	if err != nil {
		h.writeFailure(w, "Failed to load transactions", err)
		return
	}
	campaigns, err := h.Campaigns.List(ctx)
	if err != nil {
		h.writeFailure(w, "Failed to list campaigns", err)
		return
	}

	today := h.today()
	focus := loyalty.CampaignID(strings.TrimSpace(r.URL.Query().Get("campaign_id")))
	snap := loyalty.AggregateClient(client.ID, txs, campaigns, focus, today)
	writeJSON(w, http.StatusOK, toSnapshotDTO(client, snap, today))
}

// GetClientTransactions returns a client's history, newest first.
func (h *Handler) GetClientTransactions(w http.ResponseWriter, r *http.Request) {
	id := loyalty.NormalizeClientID(chi.URLParam(r, "id"))
	txs, err := h.Ledger.ListByClient(r.Context(), id)
	if err != nil {
		h.writeFailure(w, "Failed to load transactions", err)
		return
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *Handler) lookupClient(w http.ResponseWriter, r *http.Request) (loyalty.Client, bool) {
	id := loyalty.NormalizeClientID(chi.URLParam(r, "id"))
	client, ok, err := h.Clients.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, "Failed to get client", err)
		return loyalty.Client{}, false
	}
	if !ok {
		h.writeFailure(w, "Client not found", loyalty.ErrClientNotFound)
		return loyalty.Client{}, false
	}
	return client, true
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// RecordTransaction records one purchase through the Recorder.
func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req RecordTransactionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_body", err)
		return
	}

	items := make([]loyalty.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = loyalty.Item{Desc: it.Desc, Qty: it.Qty}
	}

	tx, err := h.Recorder.Record(r.Context(), loyalty.RecordInput{
		ClientID:   req.ClientID,
		ClientName: req.ClientName,
		CampaignID: loyalty.CampaignID(req.CampaignID),
		Items:      items,
		Total:      req.Total,
		ReceiptNo:  req.ReceiptNo,
		Notes:      req.Notes,
	})
	if err != nil {
		h.writeFailure(w, "Failed to record transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// DeleteTransaction removes a transaction as an administrative correction.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := loyalty.TransactionID(chi.URLParam(r, "id"))
	if err := h.Ledger.Delete(r.Context(), id); err != nil {
		h.writeFailure(w, "Failed to delete transaction", err)
		return
	}
	h.Logger.Warn("transaction deleted", zap.String("tx_id", string(id)))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": string(id)})
}

// =============================================================================
// TOOLS
// =============================================================================

// Normalize shows how a raw national ID is stored.
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("id")
	normalized := loyalty.NormalizeID(raw)
	if normalized == "" {
		writeError(w, http.StatusBadRequest, "id is required", loyalty.CodeMissingClient, nil)
		return
	}
	writeJSON(w, http.StatusOK, NormalizeDTO{Raw: raw, Normalized: normalized})
}

// =============================================================================
// HELPERS
// =============================================================================

// statusFor maps engine and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, loyalty.ErrCampaignNotActive),
		errors.Is(err, loyalty.ErrCampaignTypeChange),
		errors.Is(err, loyalty.ErrDuplicateTransaction):
		return http.StatusConflict
	case loyalty.IsNotFound(err):
		return http.StatusNotFound
	case loyalty.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure writes err with the status from statusFor. Validation errors
// surface their message and code; internal errors are logged.
func (h *Handler) writeFailure(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)

	var verr *loyalty.ValidationError
	if errors.As(err, &verr) {
		writeError(w, status, verr.Message, verr.Code, nil)
		return
	}
	if status == http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
	}
	writeError(w, status, message, "", err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
