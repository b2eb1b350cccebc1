package allocation

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Resource is a warehouse or fulfillment location known to the inventory
// service, with its total stock across all SKUs.
type Resource struct {
	ID         string
	Name       string
	TotalStock decimal.Decimal
}

// SkuStock is the quantity a single resource holds for one SKU.
type SkuStock struct {
	ResourceID string
	Quantity   decimal.Decimal
}

// StockSnapshot is the in-memory view of one inventory-query response.
// Quantities are a point-in-time read, never a reservation. Slices keep
// the discovery order of the response, which later tie-breaking depends on.
type StockSnapshot struct {
	Resources []Resource
	SkuStock  []SkuStock
	ProductID string
	Title     string
}

// ResourceByID looks a resource up in the snapshot catalog.
func (s *StockSnapshot) ResourceByID(id string) (Resource, bool) {
	for _, r := range s.Resources {
		if strings.EqualFold(r.ID, id) {
			return r, true
		}
	}
	return Resource{}, false
}

// ResourceStock pairs a resource name with the quantity it holds for the
// SKU under resolution.
type ResourceStock struct {
	ResourceID string
	Name       string
	Quantity   decimal.Decimal
}

// depositoStripper removes combining marks so "Depósito" and "Deposito"
// compare equal.
var depositoStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripDiacritics returns s with all diacritical marks removed. On a
// malformed input the original string is returned as-is.
func StripDiacritics(s string) string {
	out, _, err := transform.String(depositoStripper, s)
	if err != nil {
		return s
	}
	return out
}

// IsDeposito reports whether name identifies the distinguished primary
// warehouse, ignoring case and diacritics.
func IsDeposito(name string) bool {
	normalized := strings.ToLower(strings.TrimSpace(StripDiacritics(name)))
	return normalized == "deposito"
}
