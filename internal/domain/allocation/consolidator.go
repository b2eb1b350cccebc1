package allocation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meliznube/backend/internal/domain/note"
	"github.com/meliznube/backend/internal/domain/order"
)

// Consolidator runs the allocation engine across every order of a pack
// against one shared stock budget, so the same physical unit is never
// assigned to two orders. A single order is just a pack of one.
type Consolidator struct {
	resolver *Resolver
	engine   *Engine
}

// NewConsolidator creates a Consolidator backed by the given inventory
// client.
func NewConsolidator(inventory InventoryClient) *Consolidator {
	return &Consolidator{
		resolver: NewResolver(inventory),
		engine:   NewEngine(),
	}
}

// skuResolution is the per-SKU fan-out result.
type skuResolution struct {
	res *Resolution
	err error
}

// BuildEntries resolves stock for the distinct SKUs of the given orders
// (one inventory lookup per SKU, all in flight at once), then allocates
// every line item in order-then-item order against the shared pool.
//
// A failed per-SKU lookup degrades to an "ERROR:" labeled entry for the
// affected lines; only cancellation aborts the whole pass.
func (c *Consolidator) BuildEntries(ctx context.Context, orders []order.Order) ([]note.Entry, error) {
	resolutions := c.resolveDistinctSKUs(ctx, orders)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pool := NewPool()
	for sku, r := range resolutions {
		if r.err == nil && r.res != nil {
			pool.Seed(sku, r.res.Candidates)
		}
	}

	rr := RoundRobin{}
	var entries []note.Entry
	for _, o := range orders {
		for _, line := range o.Lines {
			entries = append(entries, c.allocateLine(line, resolutions, pool, rr)...)
		}
	}
	return entries, nil
}

// resolveDistinctSKUs fans out one resolver call per distinct normalized
// SKU and fans the results back in.
func (c *Consolidator) resolveDistinctSKUs(ctx context.Context, orders []order.Order) map[string]skuResolution {
	results := make(map[string]skuResolution)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	seen := make(map[string]bool)
	for _, o := range orders {
		for _, line := range o.Lines {
			raw := strings.TrimSpace(line.SellerSKU)
			if raw == "" {
				continue
			}
			sku := NormalizeSKU(raw)
			if seen[sku] {
				continue
			}
			seen[sku] = true

			g.Go(func() error {
				res, err := c.resolver.Resolve(gctx, sku)
				mu.Lock()
				results[sku] = skuResolution{res: res, err: err}
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()
	return results
}

// allocateLine turns one order line into its note entries.
func (c *Consolidator) allocateLine(line order.Line, resolutions map[string]skuResolution, pool *Pool, rr RoundRobin) []note.Entry {
	quantity := line.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	raw := strings.TrimSpace(line.SellerSKU)
	if raw == "" {
		return []note.Entry{{Product: line.Title, Assignment: LabelUnassigned, Quantity: quantity}}
	}

	sku := NormalizeSKU(raw)
	r := resolutions[sku]
	if r.err != nil {
		label := fmt.Sprintf("ERROR: fallo consultando SKU %s", raw)
		return []note.Entry{{Product: line.Title, Assignment: label, Quantity: quantity}}
	}

	product := line.Title
	if strings.TrimSpace(product) == "" && r.res != nil {
		product = r.res.Title
	}

	alloc := c.engine.Allocate(sku, quantity, r.res, pool, rr)
	entries := make([]note.Entry, 0, len(alloc.Segments)+1)
	for _, seg := range alloc.Segments {
		entries = append(entries, note.Entry{Product: product, Assignment: seg.Resource, Quantity: seg.Quantity})
	}
	if alloc.Remainder > 0 {
		entries = append(entries, note.Entry{Product: product, Assignment: alloc.RemainderLabel, Quantity: alloc.Remainder})
	}
	return entries
}
