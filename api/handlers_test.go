/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Campaign CRUD and lifecycle status
- Transaction recording and error codes
- Client snapshot with focus campaign
- Normalization endpoint
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loyalty-engine/loyalty"
	"github.com/warp/loyalty-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Handler, http.Handler) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(SQLiteBackend(store), loyalty.FixedClock{At: testNow}, nil)
	return h, NewRouter(h, RouterOptions{})
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const stampCardJSON = `{"id":"vit-c","type":"stamp_card","name":"Vitamin C","stamp_target":4,"reward":"Free pack","open_ended":true}`

// =============================================================================
// CAMPAIGNS
// =============================================================================

func TestCampaign_CreateListGetDelete(t *testing.T) {
	_, srv := newTestServer(t)

	// GIVEN: A created stamp card
	rec := do(t, srv, http.MethodPost, "/api/campaigns", stampCardJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[CampaignDTO](t, rec)
	assert.Equal(t, "open", created.Status)
	assert.Equal(t, "Stamp card", created.TypeLabel)

	// WHEN: Listing and fetching
	list := decode[[]CampaignDTO](t, do(t, srv, http.MethodGet, "/api/campaigns", nil))
	got := decode[CampaignDTO](t, do(t, srv, http.MethodGet, "/api/campaigns/vit-c", nil))

	// THEN: Both return the campaign
	require.Len(t, list, 1)
	assert.Equal(t, "vit-c", list[0].ID)
	assert.Equal(t, 4, got.StampTarget)

	// AND: Delete removes it
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, "/api/campaigns/vit-c", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/campaigns/vit-c", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/campaigns/vit-c", nil).Code)
}

func TestCampaign_InvalidDocumentListsFields(t *testing.T) {
	_, srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/campaigns", `{"type":"tiered","name":""}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "invalid_campaign", body["code"])
	assert.Len(t, body["fields"], 2)
}

func TestCampaign_TypeChangeConflict(t *testing.T) {
	_, srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/campaigns", stampCardJSON).Code)

	rec := do(t, srv, http.MethodPost, "/api/campaigns",
		`{"id":"vit-c","type":"event","name":"Vitamin C","event_name":"x"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCampaign_StatusFilter(t *testing.T) {
	_, srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/campaigns", stampCardJSON)
	do(t, srv, http.MethodPost, "/api/campaigns",
		`{"id":"later","type":"event","name":"Later","start_date":"2025-07-01","end_date":"2025-07-10"}`)

	list := decode[[]CampaignDTO](t, do(t, srv, http.MethodGet, "/api/campaigns?status=upcoming", nil))

	require.Len(t, list, 1)
	assert.Equal(t, "later", list[0].ID)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestRecordTransaction_AwardsStamps(t *testing.T) {
	_, srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/campaigns", stampCardJSON)

	// WHEN: Recording three units for a short raw id
	rec := do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"client_id":   " 789m ",
		"client_name": "Ana Ruiz",
		"campaign_id": "vit-c",
		"items":       []map[string]any{{"desc": "Redoxon", "qty": 3}},
		"total":       19.9,
	})

	// THEN: The id is normalized and the stamps are baked in
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decode[TransactionDTO](t, rec)
	assert.Equal(t, "0000789M", tx.ClientID)
	assert.Equal(t, 3, tx.StampsAwarded)
	assert.Equal(t, "Awarded 3 stamps", tx.ActionLabel)
	assert.Equal(t, "2025-06-15", tx.Date)
	assert.Equal(t, "19.9", tx.Total.String())
}

func TestRecordTransaction_ErrorCodes(t *testing.T) {
	_, srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/campaigns", stampCardJSON)
	do(t, srv, http.MethodPost, "/api/campaigns",
		`{"id":"paused","type":"stamp_card","name":"Paused","stamp_target":5,"active":false}`)

	items := []map[string]any{{"desc": "x", "qty": 1}}
	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"missing client", map[string]any{"client_id": "  ", "campaign_id": "vit-c", "items": items}, http.StatusBadRequest, loyalty.CodeMissingClient},
		{"unknown campaign", map[string]any{"client_id": "1", "campaign_id": "nope", "items": items}, http.StatusNotFound, loyalty.CodeCampaignNotFound},
		{"inactive campaign", map[string]any{"client_id": "1", "campaign_id": "paused", "items": items}, http.StatusConflict, loyalty.CodeCampaignNotActive},
		{"no items", map[string]any{"client_id": "1", "campaign_id": "vit-c", "items": []map[string]any{{"desc": " "}}}, http.StatusBadRequest, loyalty.CodeNoItems},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/transactions", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}

	// AND: Nothing was written
	clients := decode[[]ClientDTO](t, do(t, srv, http.MethodGet, "/api/clients", nil))
	assert.Empty(t, clients)
}

func TestRecordTransaction_MalformedBody(t *testing.T) {
	_, srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/transactions", `{"client_id":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_body", decode[ErrorResponse](t, rec).Code)
}

func TestDeleteTransaction(t *testing.T) {
	_, srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/campaigns", stampCardJSON)
	tx := decode[TransactionDTO](t, do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"client_id": "1", "campaign_id": "vit-c", "items": []map[string]any{{"desc": "x", "qty": 1}},
	}))

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID, nil).Code)

	history := decode[[]TransactionDTO](t, do(t, srv, http.MethodGet, "/api/clients/1/transactions", nil))
	assert.Empty(t, history)
}

// =============================================================================
// CLIENTS
// =============================================================================

func TestClientSnapshot_FocusAndRollups(t *testing.T) {
	h, srv := newTestServer(t)
	require.NoError(t, h.LoadScenarioByID(context.Background(), "full-catalog"))

	// WHEN: Asking for Ana's snapshot focused on the points campaign
	rec := do(t, srv, http.MethodGet, "/api/clients/12345678z/snapshot?campaign_id=club-points", nil)

	// THEN: The focus carries points progress and the others are rolled up
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[ClientSnapshotDTO](t, rec)
	assert.Equal(t, "Ana Ruiz", snap.Client.Name)
	assert.Equal(t, 3, snap.TransactionCount)
	require.NotNil(t, snap.Focus)
	assert.Equal(t, "points", snap.Focus.Progress.Type)
	require.NotNil(t, snap.Focus.Progress.Points)
	assert.Equal(t, 64, snap.Focus.Progress.Points.Total)
	assert.Nil(t, snap.Focus.Progress.StampCard)

	ids := make([]string, len(snap.Others))
	for i, o := range snap.Others {
		ids[i] = o.CampaignID
	}
	assert.ElementsMatch(t, []string{"omega-card", "skin-week"}, ids)
}

func TestClientSnapshot_UnknownClient(t *testing.T) {
	_, srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/clients/999/snapshot", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClients_SearchAccentInsensitive(t *testing.T) {
	h, srv := newTestServer(t)
	require.NoError(t, h.LoadScenarioByID(context.Background(), "full-catalog"))

	byName := decode[[]ClientDTO](t, do(t, srv, http.MethodGet, "/api/clients?q=gomez", nil))
	byID := decode[[]ClientDTO](t, do(t, srv, http.MethodGet, "/api/clients?q=9988", nil))

	require.Len(t, byName, 1)
	assert.Equal(t, "Luis Gómez", byName[0].Name)
	require.Len(t, byID, 1)
	assert.Equal(t, "99887766P", byID[0].ID)
}

func TestClientTransactions_NewestFirst(t *testing.T) {
	h, srv := newTestServer(t)
	require.NoError(t, h.LoadScenarioByID(context.Background(), "stamp-card"))

	txs := decode[[]TransactionDTO](t, do(t, srv, http.MethodGet, "/api/clients/12345678Z/transactions", nil))

	require.Len(t, txs, 2)
	assert.True(t, txs[0].CreatedAt.After(txs[1].CreatedAt))
	assert.Equal(t, "Ana Ruiz", txs[0].ClientName, "name looked up from the registry")
}

// =============================================================================
// TOOLS
// =============================================================================

func TestNormalize(t *testing.T) {
	_, srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/normalize?id=123a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0000123A", decode[NormalizeDTO](t, rec).Normalized)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/normalize?id=%20", nil).Code)
}

func TestErrorResponseShape(t *testing.T) {
	_, srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/campaigns/missing", nil)

	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "Campaign not found", body.Error)
	assert.Equal(t, "campaign not found", body.Details)
}
