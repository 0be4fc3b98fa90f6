package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-inventory/components/inventory"
)

func newVault(t *testing.T, token string) *inventory.SessionVault {
	t.Helper()
	vault := inventory.NewSessionVault(inventory.NewMemoryKeyValueStore())
	if token != "" {
		require.NoError(t, vault.Save(context.Background(), inventory.Session{Token: token, User: inventory.Identity{Email: "ann@example.com"}}))
	}
	return vault
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens inventory.TokenProvider) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Config{BaseURL: server.URL, Tokens: tokens, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestLoginSendsNoTokenAndDecodesSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))
		var creds inventory.Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ann@example.com", creds.Email)
		_, _ = io.WriteString(w, `{"_id":"u1","email":"ann@example.com","name":"Ann","role":"admin","token":"tok-1"}`)
	}, newVault(t, "stale"))

	session, err := client.Login(context.Background(), inventory.Credentials{Email: "ann@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", session.Token)
	assert.Equal(t, "u1", session.User.ID)
	assert.Equal(t, "Ann", session.User.Name)
}

func TestLoginDecodesWrappedUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token":"tok-2","admin":{"id":7,"email":"ops@example.com"}}`)
	}, nil)
	session, err := client.Login(context.Background(), inventory.Credentials{Email: "ops@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "7", session.User.ID)
	assert.Equal(t, "tok-2", session.Token)
}

func TestRequestsCarryBearerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/admin/inventory", r.URL.Path)
		assert.Equal(t, "shirt", r.URL.Query().Get("search"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `{"products":[{"_id":"a","name":"Shirt","quantity":3}],"totalItems":6,"totalPages":2,"currentPage":2,"limit":5}`)
	}, newVault(t, "tok-9"))

	page, err := client.ListItems(context.Background(), inventory.ListQuery{Search: " shirt ", Page: 2, Limit: 5})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a", page.Items[0].ID)
	require.NotNil(t, page.Pagination)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, 5, page.Pagination.Limit)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
		msg    string
	}{
		{http.StatusNotFound, `{"message":"Product not found"}`, inventory.ErrNotFound, "Product not found"},
		{http.StatusUnprocessableEntity, `{"error":"sku taken"}`, inventory.ErrValidation, "sku taken"},
		{http.StatusBadRequest, ``, inventory.ErrValidation, "bad request"},
		{http.StatusInternalServerError, `oops`, inventory.ErrServer, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}, nil)
			_, err := client.GetItem(context.Background(), "x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want))
			assert.Equal(t, tc.msg, inventory.MessageOf(err))
		})
	}
}

func TestUnauthorizedInvalidatesSentTokenOnce(t *testing.T) {
	vault := newVault(t, "tok-1")
	var invalidations atomic.Int32
	vault.OnInvalidate(func(context.Context) { invalidations.Add(1) })

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Not authorized, token failed"}`)
	}, vault)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.DashboardSummary(context.Background())
			assert.True(t, errors.Is(err, inventory.ErrUnauthenticated))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, invalidations.Load())
	assert.Empty(t, vault.Token())
}

func TestUnauthorizedDoesNotClearNewerSession(t *testing.T) {
	vault := newVault(t, "old")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// a fresh login lands while the rejected request is in flight
		assert.NoError(t, vault.Save(context.Background(), inventory.Session{Token: "new"}))
		w.WriteHeader(http.StatusUnauthorized)
	}, vault)

	_, err := client.CurrentIdentity(context.Background())
	require.Error(t, err)
	assert.Equal(t, "new", vault.Token())
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := server.URL
	server.Close()

	client, err := New(Config{BaseURL: base})
	require.NoError(t, err)
	_, err = client.ListItems(context.Background(), inventory.ListQuery{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, inventory.ErrTransport))
	assert.Equal(t, "server unreachable", inventory.MessageOf(err))
}

func TestVariantUpdatePath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/admin/inventory/p1/v2", r.URL.Path)
		var variant inventory.Variant
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&variant))
		assert.Equal(t, 4, variant.Inventory.Quantity)
		_, _ = io.WriteString(w, `{"product":{"id":"p1","name":"Tee","variants":[{"id":"v2","inventory":{"quantity":4}}]}}`)
	}, nil)

	item, err := client.UpdateItem(context.Background(), inventory.UpdateRequest{
		Kind:      inventory.UpdateVariant,
		Item:      inventory.Item{ID: "p1"},
		VariantID: "v2",
		Variant:   &inventory.Variant{Inventory: inventory.Inventory{Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, item.TotalQuantity())
}

func TestBulkUpdateEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/inventory/bulk-update", r.URL.Path)
		var payload struct {
			Updates []inventory.BulkChange `json:"updates"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Len(t, payload.Updates, 1)
		_, _ = io.WriteString(w, `{"modifiedCount":1,"items":[{"id":"p1","name":"Tee","quantity":2}]}`)
	}, nil)

	result, err := client.BulkUpdate(context.Background(), []inventory.BulkChange{{ProductID: "p1", Field: inventory.FieldQuantity, NewValue: 2}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Items, 1)
}

func TestChangeLogQueryAndNumericIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-01-08", r.URL.Query().Get("dateFrom"))
		assert.Equal(t, "reserve", r.URL.Query().Get("changeType"))
		_, _ = io.WriteString(w, `{"logs":[
			{"id":2,"timestamp":"2025-01-08T09:15:00Z","productId":"PROD001","changeType":"reserve","field":"reserved","oldValue":5,"newValue":10,"user":"system"},
			{"id":3,"timestamp":"2025-01-08T08:45:00Z","productId":"PROD002","changeType":"threshold_update","oldValue":5,"newValue":10}
		]}`)
	}, nil)

	from := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	entries, err := client.ChangeLog(context.Background(), inventory.ChangeLogFilter{From: &from, ChangeType: inventory.ChangeReserve})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2", entries[0].ID)
	assert.Equal(t, inventory.LogValue("10"), entries[0].NewValue)
}

func TestSummaryFallbackOverHTTP(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/dashboard":
			w.WriteHeader(http.StatusNotFound)
		case "/api/admin/products":
			assert.Equal(t, "1000", r.URL.Query().Get("limit"))
			_, _ = io.WriteString(w, `{"products":[{"id":"p1","quantity":5,"price":10},{"id":"p2","variants":[{"quantity":3,"price":20},{"quantity":2,"price":5}]}]}`)
		case "/api/admin/inventory/low-stock":
			_, _ = io.WriteString(w, `{"items":[{"id":"p1"}]}`)
		case "/api/admin/orders":
			_, _ = io.WriteString(w, `{"orders":[{"id":"o1","status":"delivered","total":19.99},{"id":"o2","status":"completed","total":0.01},{"id":"o3","status":"pending","total":100}]}`)
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}, nil)

	summary, err := inventory.NewSummaryService(client, nil).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, inventory.DashboardSummary{TotalItems: 2, LowStockCount: 1, TotalQuantity: 10, TotalValue: 120, TotalRevenue: 20}, summary)
}

func TestCustomPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/me", r.URL.Path)
		_, _ = io.WriteString(w, `{"user":{"id":"u1","email":"ann@example.com"}}`)
	}))
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL + "/", APIPrefix: "v2/"})
	require.NoError(t, err)
	identity, err := client.CurrentIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", identity.Email)
}
