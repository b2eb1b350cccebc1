package allocation

import (
	"context"
	"errors"
	"strings"
)

// Outcome classifies the result of resolving one SKU against the
// inventory service.
type Outcome int

const (
	// SkuFound means the SKU exists and at least one resource holds stock.
	SkuFound Outcome = iota
	// SkuNotFound means the inventory service does not know the SKU.
	SkuNotFound
	// NoStockForSku means the SKU exists but every resource is at zero.
	NoStockForSku
)

// Resolution is the resolver's answer for one SKU: the candidate
// resources holding stock, in the discovery order of the response. A
// one-label assignment is just the degenerate split where a single
// candidate covers the whole quantity.
type Resolution struct {
	Outcome    Outcome
	Candidates []ResourceStock
	ProductID  string
	Title      string
}

// Resolver maps a SKU to the resources that can fulfill it.
type Resolver struct {
	inventory InventoryClient
}

// NewResolver creates a Resolver backed by the given inventory client.
func NewResolver(inventory InventoryClient) *Resolver {
	return &Resolver{inventory: inventory}
}

// Resolve queries stock for one raw seller SKU and classifies the result.
// Transport failures propagate so the caller can contain them per line;
// an unknown SKU is not an error but a SkuNotFound outcome.
func (r *Resolver) Resolve(ctx context.Context, rawSKU string) (*Resolution, error) {
	sku := NormalizeSKU(rawSKU)

	snap, err := r.inventory.QueryStockBySKU(ctx, sku)
	if errors.Is(err, ErrSkuNotFound) {
		return &Resolution{Outcome: SkuNotFound}, nil
	}
	if err != nil {
		return nil, err
	}
	// A 200 response that does not list the SKU at all means the service
	// does not know it, same as a 404.
	if snap == nil || len(snap.Resources) == 0 || len(snap.SkuStock) == 0 {
		return &Resolution{Outcome: SkuNotFound}, nil
	}

	candidates := candidatesWithStock(snap)
	if len(candidates) == 0 {
		return &Resolution{
			Outcome:   NoStockForSku,
			ProductID: snap.ProductID,
			Title:     snap.Title,
		}, nil
	}

	return &Resolution{
		Outcome:    SkuFound,
		Candidates: candidates,
		ProductID:  snap.ProductID,
		Title:      snap.Title,
	}, nil
}

// candidatesWithStock extracts the resources holding strictly positive
// quantity for the SKU, in the discovery order of the response.
func candidatesWithStock(snap *StockSnapshot) []ResourceStock {
	var out []ResourceStock
	for _, st := range snap.SkuStock {
		if !st.Quantity.IsPositive() {
			continue
		}
		resource, ok := snap.ResourceByID(st.ResourceID)
		if !ok || strings.TrimSpace(resource.Name) == "" {
			continue
		}
		out = append(out, ResourceStock{
			ResourceID: resource.ID,
			Name:       resource.Name,
			Quantity:   st.Quantity,
		})
	}
	return out
}
