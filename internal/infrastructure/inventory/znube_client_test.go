package inventory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meliznube/backend/internal/domain/allocation"
	"github.com/meliznube/backend/internal/infrastructure/auth"
)

type memoryStore struct {
	mu  sync.Mutex
	doc auth.TokenDocument
}

func (m *memoryStore) Load(ctx context.Context) (*auth.TokenDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.doc
	return &cp, nil
}

func (m *memoryStore) Save(ctx context.Context, doc *auth.TokenDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = *doc
	return nil
}

const stockPayload = `{
	"Data": {
		"Stock": [
			{
				"Sku": "ABC#1",
				"ProductId": "prod-7",
				"Stock": [
					{"ResourceId": "r1", "Quantity": 3},
					{"ResourceId": "r2", "Quantity": 0}
				]
			},
			{
				"Sku": "ABC#2",
				"ProductId": "prod-7",
				"Stock": [
					{"ResourceId": "r2", "Quantity": 5}
				]
			}
		],
		"Resources": [
			{"ResourceId": "r1", "Name": "Depósito", "TotalStock": 10},
			{"ResourceId": "r2", "Name": "Sucursal Centro", "TotalStock": 4}
		],
		"Products": {"prod-7": "Camisa lisa"}
	}
}`

func newTestClient(t *testing.T, handler http.Handler, token string) (*Client, *memoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := &memoryStore{doc: auth.TokenDocument{InventoryToken: token}}
	c := NewClient(srv.URL, auth.NewInventoryTokens(store), srv.Client(), nil)
	return c, store
}

func TestQueryStockBySKU(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Omnichannel/GetStock", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ABC#1", r.URL.Query().Get("sku"))
		assert.Equal(t, "inv-tok", r.Header.Get("zNube-token"))
		w.Write([]byte(stockPayload))
	})

	c, _ := newTestClient(t, mux, "inv-tok")
	snap, err := c.QueryStockBySKU(context.Background(), "ABC#1")
	require.NoError(t, err)

	require.Len(t, snap.Resources, 2)
	assert.Equal(t, "Depósito", snap.Resources[0].Name)

	// only the requested SKU's stock is kept
	require.Len(t, snap.SkuStock, 2)
	assert.Equal(t, "r1", snap.SkuStock[0].ResourceID)
	assert.True(t, snap.SkuStock[0].Quantity.Equal(decimal.NewFromInt(3)))

	assert.Equal(t, "prod-7", snap.ProductID)
	assert.Equal(t, "Camisa lisa", snap.Title)
}

func TestQueryStockBySKU_SiblingSkusAreFilteredOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Omnichannel/GetStock", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stockPayload))
	})

	c, _ := newTestClient(t, mux, "inv-tok")
	snap, err := c.QueryStockBySKU(context.Background(), "ABC#2")
	require.NoError(t, err)
	require.Len(t, snap.SkuStock, 1)
	assert.Equal(t, "r2", snap.SkuStock[0].ResourceID)
}

func TestQueryStockBySKU_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Omnichannel/GetStock", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	c, _ := newTestClient(t, mux, "inv-tok")
	_, err := c.QueryStockBySKU(context.Background(), "NOPE")
	assert.ErrorIs(t, err, allocation.ErrSkuNotFound)
}

func TestQueryStockBySKU_NullDataMeansUnknownSku(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Omnichannel/GetStock", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Data": null}`))
	})

	c, _ := newTestClient(t, mux, "inv-tok")
	_, err := c.QueryStockBySKU(context.Background(), "NOPE")
	assert.ErrorIs(t, err, allocation.ErrSkuNotFound)
}

func TestTokenRotation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Omnichannel/GetStock", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("zNube-token", "rotated")
		w.Write([]byte(stockPayload))
	})

	c, store := newTestClient(t, mux, "inv-tok")
	_, err := c.QueryStockBySKU(context.Background(), "ABC#1")
	require.NoError(t, err)

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rotated", doc.InventoryToken)
}
