package allocation

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Segment assigns part of a line item's quantity to one resource.
type Segment struct {
	Resource string
	Quantity int64
}

// Allocation is the engine's output for one line item: the ordered
// segments plus any quantity no resource could cover.
type Allocation struct {
	Segments       []Segment
	Remainder      int64
	RemainderLabel string
}

// Satisfied reports whether the full requested quantity was assigned.
func (a Allocation) Satisfied() bool {
	return a.Remainder == 0
}

// RoundRobin holds the per-product rotation counters that spread sibling
// variants of one product across warehouses. Counters are scoped to a
// single consolidation pass and must never be shared across invocations.
type RoundRobin map[string]int

// Pool tracks the remaining quantity per (SKU, resource) across one
// consolidation pass, so two orders in a pack can never be assigned the
// same physical unit.
type Pool struct {
	remaining map[string]decimal.Decimal
}

// NewPool creates an empty stock pool.
func NewPool() *Pool {
	return &Pool{remaining: make(map[string]decimal.Decimal)}
}

// Seed registers the snapshot quantities for one SKU. Seeding the same
// SKU twice is a no-op: the first snapshot read is the budget.
func (p *Pool) Seed(sku string, candidates []ResourceStock) {
	for _, c := range candidates {
		key := poolKey(sku, c.ResourceID)
		if _, ok := p.remaining[key]; !ok {
			p.remaining[key] = c.Quantity
		}
	}
}

// Available returns the remaining quantity for one (SKU, resource).
func (p *Pool) Available(sku, resourceID string) decimal.Decimal {
	return p.remaining[poolKey(sku, resourceID)]
}

// Take consumes n units from one (SKU, resource).
func (p *Pool) Take(sku, resourceID string, n int64) {
	key := poolKey(sku, resourceID)
	p.remaining[key] = p.remaining[key].Sub(decimal.NewFromInt(n))
}

func poolKey(sku, resourceID string) string {
	return strings.ToLower(sku) + "\x00" + strings.ToLower(resourceID)
}

// Engine splits a line item's requested quantity across the resources a
// Resolution found, honoring Deposito priority and the round-robin
// fairness rule.
type Engine struct{}

// NewEngine creates an allocation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Allocate walks the ranked candidates taking min(remaining, floor(available))
// from each until the quantity is covered or the resources run out. The pool
// supplies availability and is decremented as segments are emitted.
//
// Ranking: Deposito first whenever it holds stock, then higher per-SKU
// availability, then discovery order. When no Deposito candidate holds stock
// and two or more others do, the walk starts at a rotating offset keyed by
// the parent product id, so sibling variants spread across warehouses.
func (e *Engine) Allocate(sku string, quantity int64, res *Resolution, pool *Pool, rr RoundRobin) Allocation {
	if quantity <= 0 {
		return Allocation{}
	}

	label := LabelOutOfStock
	if res == nil || res.Outcome == SkuNotFound {
		return Allocation{Remainder: quantity, RemainderLabel: LabelUnassigned}
	}
	if res.Outcome == NoStockForSku {
		return Allocation{Remainder: quantity, RemainderLabel: label}
	}

	ranked := rankCandidates(sku, res.Candidates, pool)
	ranked = rotateForFairness(ranked, res.ProductID, rr)

	alloc := Allocation{}
	remaining := quantity
	for _, c := range ranked {
		if remaining == 0 {
			break
		}
		available := pool.Available(sku, c.ResourceID).IntPart()
		if available <= 0 {
			continue
		}
		take := remaining
		if available < take {
			take = available
		}
		pool.Take(sku, c.ResourceID, take)
		alloc.Segments = append(alloc.Segments, Segment{Resource: c.Name, Quantity: take})
		remaining -= take
	}

	alloc.Remainder = remaining
	if remaining > 0 {
		alloc.RemainderLabel = label
	}
	return alloc
}

// rankCandidates orders candidates by Deposito-first, then by remaining
// pool quantity descending, keeping discovery order for ties.
func rankCandidates(sku string, candidates []ResourceStock, pool *Pool) []ResourceStock {
	ranked := make([]ResourceStock, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		di, dj := IsDeposito(ranked[i].Name), IsDeposito(ranked[j].Name)
		if di != dj {
			return di
		}
		qi := pool.Available(sku, ranked[i].ResourceID)
		qj := pool.Available(sku, ranked[j].ResourceID)
		return qi.GreaterThan(qj)
	})
	return ranked
}

// rotateForFairness rotates the ranked list by the product's round-robin
// counter when the fairness rule applies, and advances the counter.
func rotateForFairness(ranked []ResourceStock, productID string, rr RoundRobin) []ResourceStock {
	if rr == nil || productID == "" || len(ranked) < 2 {
		return ranked
	}
	for _, c := range ranked {
		if IsDeposito(c.Name) {
			return ranked
		}
	}

	start := rr[productID] % len(ranked)
	rr[productID]++
	if start == 0 {
		return ranked
	}
	rotated := make([]ResourceStock, 0, len(ranked))
	rotated = append(rotated, ranked[start:]...)
	rotated = append(rotated, ranked[:start]...)
	return rotated
}
