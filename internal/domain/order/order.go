package order

import (
	"errors"
	"sort"
	"strconv"
	"time"
)

// ErrNotFound is returned by MarketplaceClient implementations when the
// marketplace does not know the requested order.
var ErrNotFound = errors.New("order: not found")

// Line is one purchased item of an order. Immutable once fetched.
type Line struct {
	Title     string
	SellerSKU string
	Quantity  int64
}

// Order is the marketplace order as seen by this system: only the fields
// the allocation and note pipeline needs.
type Order struct {
	ID             string
	PackID         string
	CreatedAt      time.Time
	BuyerNickname  string
	BuyerFirstName string
	ShippingID     string
	Lines          []Line
}

// HasPack reports whether the order belongs to a multi-order shipment.
func (o *Order) HasPack() bool {
	return o.PackID != ""
}

// Shipment is the subset of shipment info driving the note gates.
type Shipment struct {
	LogisticType string
	IsFull       bool
	IsFlex       bool
	Zone         string
}

// LastInPack picks the order a consolidated pack note is written to: the
// most recent by creation time, numeric id breaking ties.
func LastInPack(orders []Order) Order {
	sorted := make([]Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return numericID(sorted[i].ID) < numericID(sorted[j].ID)
	})
	return sorted[len(sorted)-1]
}

func numericID(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
