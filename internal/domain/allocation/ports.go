package allocation

import "context"

// InventoryClient queries the external inventory-allocation service.
// Implementations must return ErrSkuNotFound (possibly wrapped) when the
// service reports an unknown SKU.
type InventoryClient interface {
	// QueryStockBySKU returns the stock snapshot for one normalized SKU.
	QueryStockBySKU(ctx context.Context, sku string) (*StockSnapshot, error)
}
