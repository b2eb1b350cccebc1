package order

import (
	"context"
	"time"
)

// MarketplaceClient is the contract with the marketplace API. The core
// never sees tokens or wire formats; implementations own both.
type MarketplaceClient interface {
	// FetchOrder returns one order, or ErrNotFound (possibly wrapped).
	FetchOrder(ctx context.Context, orderID string) (*Order, error)

	// FetchOrdersByPack returns every order sharing a pack id, in the
	// marketplace's discovery order.
	FetchOrdersByPack(ctx context.Context, packID string) ([]Order, error)

	// FetchShipment returns shipment info for an order, or nil when the
	// order has no shipment.
	FetchShipment(ctx context.Context, o *Order) (*Shipment, error)

	// FetchNotes returns the existing note texts of an order.
	FetchNotes(ctx context.Context, orderID string) ([]string, error)

	// UpsertNote writes a note to an order. Returns false when the write
	// was skipped because an auto-tagged note already exists.
	UpsertNote(ctx context.Context, orderID, text string) (bool, error)

	// CountRecentOrdersByBuyer reports whether the buyer placed two or
	// more orders with the seller inside [from, to].
	CountRecentOrdersByBuyer(ctx context.Context, from, to time.Time, buyerNickname, sellerID string) (bool, error)

	// SendBuyerMessage sends the post-sale courtesy message for an order
	// or pack resource.
	SendBuyerMessage(ctx context.Context, resourceID, text string) error
}

// PackLockHandle identifies an acquired pack lock record.
type PackLockHandle struct {
	Key string
}

// PackLockStore is the storage-backed advisory lock giving pack
// processing its at-most-one-concurrent-winner semantics. A record is
// one-shot: MarkDone annotates it but never deletes it, so a pack id
// stays claimed until an external retention policy removes the record.
type PackLockStore interface {
	// TryAcquire atomically creates the lock record for a pack id.
	// acquired is false when the record already exists; that is a normal
	// concurrency outcome, not an error.
	TryAcquire(ctx context.Context, packID string) (handle PackLockHandle, acquired bool, err error)

	// MarkDone writes completion metadata (done flag, timestamp) to an
	// acquired record. It must not delete the record.
	MarkDone(ctx context.Context, handle PackLockHandle) error
}
