package allocation

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInventory serves canned snapshots keyed by SKU.
type fakeInventory struct {
	bySKU map[string]*StockSnapshot

	skuErr error

	skuQueries []string
}

func (f *fakeInventory) QueryStockBySKU(ctx context.Context, sku string) (*StockSnapshot, error) {
	f.skuQueries = append(f.skuQueries, sku)
	if f.skuErr != nil {
		return nil, f.skuErr
	}
	snap, ok := f.bySKU[sku]
	if !ok {
		return nil, ErrSkuNotFound
	}
	return snap, nil
}

func snapshot(productID string, resources []Resource, stock []SkuStock) *StockSnapshot {
	return &StockSnapshot{Resources: resources, SkuStock: stock, ProductID: productID}
}

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestResolve_UnknownSkuIsAnOutcomeNotAnError(t *testing.T) {
	r := NewResolver(&fakeInventory{bySKU: map[string]*StockSnapshot{}})

	res, err := r.Resolve(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Equal(t, SkuNotFound, res.Outcome)
}

func TestResolve_SkuAbsentFromResponseIsNotFound(t *testing.T) {
	// the service answers 200 with a resource catalog but no stock rows
	// for the SKU, which is how a shared endpoint reports an unknown SKU
	inv := &fakeInventory{bySKU: map[string]*StockSnapshot{
		"SKU": snapshot("prod-1",
			[]Resource{{ID: "r1", Name: "Deposito", TotalStock: dec(10)}},
			nil,
		),
	}}
	r := NewResolver(inv)

	res, err := r.Resolve(context.Background(), "SKU")
	require.NoError(t, err)
	assert.Equal(t, SkuNotFound, res.Outcome)
}

func TestResolve_TransportErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewResolver(&fakeInventory{skuErr: boom})

	_, err := r.Resolve(context.Background(), "SKU")
	assert.ErrorIs(t, err, boom)
}

func TestResolve_NormalizesBeforeQuerying(t *testing.T) {
	inv := &fakeInventory{bySKU: map[string]*StockSnapshot{}}
	r := NewResolver(inv)

	_, err := r.Resolve(context.Background(), "ABC!123")
	require.NoError(t, err)
	require.Len(t, inv.skuQueries, 1)
	assert.Equal(t, "ABC#123", inv.skuQueries[0])
}

func TestResolve_NoStockOutcome(t *testing.T) {
	inv := &fakeInventory{bySKU: map[string]*StockSnapshot{
		"SKU": snapshot("prod-1",
			[]Resource{{ID: "r1", Name: "Deposito", TotalStock: dec(10)}},
			[]SkuStock{{ResourceID: "r1", Quantity: dec(0)}},
		),
	}}
	r := NewResolver(inv)

	res, err := r.Resolve(context.Background(), "SKU")
	require.NoError(t, err)
	assert.Equal(t, NoStockForSku, res.Outcome)
	assert.Empty(t, res.Candidates)
}

func TestResolve_CandidatesKeepDiscoveryOrder(t *testing.T) {
	inv := &fakeInventory{bySKU: map[string]*StockSnapshot{
		"SKU": snapshot("prod-1",
			[]Resource{
				{ID: "r1", Name: "Sucursal Centro", TotalStock: dec(8)},
				{ID: "r2", Name: "Sucursal Norte", TotalStock: dec(2)},
			},
			[]SkuStock{
				{ResourceID: "r1", Quantity: dec(5)},
				{ResourceID: "r2", Quantity: dec(2)},
			},
		),
	}}
	r := NewResolver(inv)

	res, err := r.Resolve(context.Background(), "SKU")
	require.NoError(t, err)
	assert.Equal(t, SkuFound, res.Outcome)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "Sucursal Centro", res.Candidates[0].Name)
	assert.Equal(t, "Sucursal Norte", res.Candidates[1].Name)
	assert.Equal(t, "prod-1", res.ProductID)
}

func TestResolve_ZeroQuantityResourcesAreNotCandidates(t *testing.T) {
	inv := &fakeInventory{bySKU: map[string]*StockSnapshot{
		"SKU": snapshot("prod-1",
			[]Resource{
				{ID: "r1", Name: "Sucursal Centro", TotalStock: dec(8)},
				{ID: "r2", Name: "Sucursal Norte", TotalStock: dec(2)},
			},
			[]SkuStock{
				{ResourceID: "r1", Quantity: dec(5)},
				{ResourceID: "r2", Quantity: dec(0)},
			},
		),
	}}
	r := NewResolver(inv)

	res, err := r.Resolve(context.Background(), "SKU")
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "Sucursal Centro", res.Candidates[0].Name)
}
