package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meliznube/backend/internal/domain/order"
)

type staticTokens struct{ token string }

func (s staticTokens) AccessToken(ctx context.Context) (string, error) {
	return s.token, nil
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL:          srv.URL,
		SellerID:         "seller-1",
		FullLogisticType: "fulfillment",
		FlexLogisticType: "self_service",
	}
	return NewClient(cfg, staticTokens{token: "tok"}, srv.Client(), nil)
}

func TestFetchOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 123,
			"pack_id": 900,
			"date_created": "2025-06-15T10:00:00Z",
			"order_items": [
				{"item": {"title": "Camisa", "seller_sku": "ABC!1"}, "quantity": 2}
			],
			"buyer": {"nickname": "BUYER", "first_name": "Ana"},
			"shipping": {"id": 555}
		}`))
	})

	c := newTestClient(t, mux)
	o, err := c.FetchOrder(context.Background(), "123")
	require.NoError(t, err)

	assert.Equal(t, "123", o.ID)
	assert.Equal(t, "900", o.PackID)
	assert.Equal(t, "555", o.ShippingID)
	assert.Equal(t, time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), o.CreatedAt)
	assert.Equal(t, "BUYER", o.BuyerNickname)
	assert.Equal(t, "Ana", o.BuyerFirstName)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "ABC!1", o.Lines[0].SellerSKU)
	assert.Equal(t, int64(2), o.Lines[0].Quantity)
}

func TestFetchOrder_NullPackBecomesEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 123, "pack_id": null, "order_items": []}`))
	})

	c := newTestClient(t, mux)
	o, err := c.FetchOrder(context.Background(), "123")
	require.NoError(t, err)
	assert.False(t, o.HasPack())
}

func TestFetchOrder_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/404", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	c := newTestClient(t, mux)
	_, err := c.FetchOrder(context.Background(), "404")
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestFetchOrdersByPack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/packs/900", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orders": [{"id": 1}, {"id": 2}]}`))
	})
	mux.HandleFunc("/orders/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1, "order_items": []}`))
	})
	mux.HandleFunc("/orders/2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 2, "order_items": []}`))
	})

	c := newTestClient(t, mux)
	orders, err := c.FetchOrdersByPack(context.Background(), "900")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "1", orders[0].ID)
	assert.Equal(t, "2", orders[1].ID)
}

func TestFetchShipment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/shipments/555", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"logistic_type": "self_service",
			"receiver_address": {"city": {"name": "Palermo"}, "state": {"name": "CABA"}}
		}`))
	})

	c := newTestClient(t, mux)
	s, err := c.FetchShipment(context.Background(), &order.Order{ID: "1", ShippingID: "555"})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.IsFlex)
	assert.False(t, s.IsFull)
	assert.Equal(t, "Palermo, CABA", s.Zone)
}

func TestFetchShipment_NoShippingID(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())
	s, err := c.FetchShipment(context.Background(), &order.Order{ID: "1"})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestFetchNotes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/1/notes", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"results": [{"note": "manual"}, {"note": "[AUTO] Dep: Camisa"}]}]`))
	})

	c := newTestClient(t, mux)
	notes, err := c.FetchNotes(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"manual", "[AUTO] Dep: Camisa"}, notes)
}

func TestUpsertNote_WritesWhenNoAutoNote(t *testing.T) {
	var posted map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/orders/1/notes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`[{"results": [{"note": "manual"}]}]`))
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.WriteHeader(http.StatusCreated)
	})

	c := newTestClient(t, mux)
	written, err := c.UpsertNote(context.Background(), "1", "[AUTO] Dep: Camisa")
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, "[AUTO] Dep: Camisa", posted["note"])
}

func TestUpsertNote_SkipsWhenAutoNotePresent(t *testing.T) {
	posts := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/orders/1/notes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`[{"results": [{"note": "[AUTO] ya anotado"}]}]`))
			return
		}
		posts++
		w.WriteHeader(http.StatusCreated)
	})

	c := newTestClient(t, mux)
	written, err := c.UpsertNote(context.Background(), "1", "[AUTO] nuevo")
	require.NoError(t, err)
	assert.False(t, written)
	assert.Zero(t, posts)
}

func TestCountRecentOrdersByBuyer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "seller-1", r.URL.Query().Get("seller"))
		assert.NotEmpty(t, r.URL.Query().Get("order.date_created.from"))
		w.Write([]byte(`{"results": [
			{"buyer": {"nickname": "BUYER"}},
			{"buyer": {"nickname": "other"}},
			{"buyer": {"nickname": "buyer"}}
		]}`))
	})

	c := newTestClient(t, mux)
	from := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	repeat, err := c.CountRecentOrdersByBuyer(context.Background(), from, to, "BUYER", "seller-1")
	require.NoError(t, err)
	assert.True(t, repeat)

	repeat, err = c.CountRecentOrdersByBuyer(context.Background(), from, to, "other", "seller-1")
	require.NoError(t, err)
	assert.False(t, repeat)
}

func TestSendBuyerMessage(t *testing.T) {
	var posted map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/messages/action_guide/packs/900/sellers/seller-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "post_sale", r.URL.Query().Get("tag"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.WriteHeader(http.StatusCreated)
	})

	c := newTestClient(t, mux)
	err := c.SendBuyerMessage(context.Background(), "900", "Hola ANA!")
	require.NoError(t, err)
	assert.Equal(t, "Hola ANA!", posted["text"])
}
