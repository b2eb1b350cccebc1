package annotation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/meliznube/backend/internal/domain/note"
	"github.com/meliznube/backend/internal/domain/order"
)

// staleAfter is how old an order may be before a webhook for it is
// ignored. The marketplace re-delivers events for days; annotating an
// order long after fulfillment would only confuse the picker.
const staleAfter = 24 * time.Hour

// Status classifies how a processing attempt ended. Every skip is a
// distinct value so tests and logs can tell a degraded success from a
// true failure.
type Status string

const (
	StatusNoteWritten        Status = "note_written"
	StatusWriteDisabled      Status = "write_disabled"
	StatusOrderNotFound      Status = "order_not_found"
	StatusStaleOrder         Status = "stale_order"
	StatusAlreadyAnnotated   Status = "already_annotated"
	StatusFulfillmentOmitted Status = "fulfillment_omitted"
	StatusEmptyNote          Status = "empty_note"
	StatusLockNotAcquired    Status = "lock_not_acquired"
	StatusEmptyPack          Status = "empty_pack"
)

// Result reports the outcome of one processing attempt.
type Result struct {
	Status  Status
	OrderID string
	Note    string
}

// EntryBuilder produces the flattened allocation entries for a set of
// orders sharing one stock budget.
type EntryBuilder interface {
	BuildEntries(ctx context.Context, orders []order.Order) ([]note.Entry, error)
}

// Config carries the processor's behavior switches.
type Config struct {
	SellerID             string
	UpsertNoteEnabled    bool
	SendBuyerMessage     bool
	BuyerMessageTemplate string
}

// Processor is the orchestrating state machine: it ties the marketplace
// client, the allocation engine and the pack lock together and decides
// whether, where and what note gets written for one webhook delivery.
type Processor struct {
	marketplace order.MarketplaceClient
	builder     EntryBuilder
	locks       order.PackLockStore
	cfg         Config
	logger      *zap.Logger

	now func() time.Time
}

// NewProcessor creates a Processor.
func NewProcessor(marketplace order.MarketplaceClient, builder EntryBuilder, locks order.PackLockStore, cfg Config, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		marketplace: marketplace,
		builder:     builder,
		locks:       locks,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Process handles one order id from a webhook delivery end to end.
func (p *Processor) Process(ctx context.Context, orderID string) (Result, error) {
	o, err := p.marketplace.FetchOrder(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		return Result{Status: StatusOrderNotFound, OrderID: orderID}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("fetch order %s: %w", orderID, err)
	}

	if !o.CreatedAt.IsZero() && o.CreatedAt.Before(p.now().Add(-staleAfter)) {
		return Result{Status: StatusStaleOrder, OrderID: orderID}, nil
	}

	if !o.HasPack() {
		return p.processSingle(ctx, o)
	}
	return p.processPack(ctx, o)
}

// processSingle is the no-pack path: idempotency check, allocation,
// compose, write.
func (p *Processor) processSingle(ctx context.Context, o *order.Order) (Result, error) {
	notes, err := p.marketplace.FetchNotes(ctx, o.ID)
	if err != nil {
		// The client re-checks before writing; a failed read here only
		// loses the early exit.
		p.logger.Warn("note lookup failed, continuing", zap.String("order_id", o.ID), zap.Error(err))
	}
	if note.ContainsAutoNote(notes) {
		return Result{Status: StatusAlreadyAnnotated, OrderID: o.ID}, nil
	}

	shipment := p.fetchShipment(ctx, o)
	if shipment != nil && shipment.IsFull {
		return Result{Status: StatusFulfillmentOmitted, OrderID: o.ID}, nil
	}

	entries, err := p.builder.BuildEntries(ctx, []order.Order{*o})
	if err != nil {
		return Result{}, fmt.Errorf("build allocation for order %s: %w", o.ID, err)
	}

	body := p.composeBody(ctx, entries, shipment, o)
	if body == "" {
		return Result{Status: StatusEmptyNote, OrderID: o.ID}, nil
	}

	return p.writeNote(ctx, o.ID, o.ID, body, []order.Order{*o})
}

// processPack is the pack path: lock, fetch the whole pack, consolidate
// against a shared budget, write the note to the last order.
func (p *Processor) processPack(ctx context.Context, o *order.Order) (result Result, err error) {
	packID := o.PackID
	handle, acquired, err := p.locks.TryAcquire(ctx, packID)
	if err != nil {
		return Result{}, fmt.Errorf("acquire pack lock %s: %w", packID, err)
	}
	if !acquired {
		p.logger.Debug("pack lock held elsewhere", zap.String("pack_id", packID))
		return Result{Status: StatusLockNotAcquired, OrderID: o.ID}, nil
	}

	// The lock must be marked done even when processing fails or the
	// deadline fires mid-run, or the pack becomes permanently
	// unprocessable.
	defer func() {
		doneCtx := context.WithoutCancel(ctx)
		if markErr := p.locks.MarkDone(doneCtx, handle); markErr != nil {
			p.logger.Warn("mark pack lock done failed", zap.String("pack_id", packID), zap.Error(markErr))
		}
	}()

	orders, err := p.marketplace.FetchOrdersByPack(ctx, packID)
	if err != nil {
		p.logger.Warn("pack fetch failed, no note written", zap.String("pack_id", packID), zap.Error(err))
		return Result{Status: StatusEmptyPack, OrderID: o.ID}, nil
	}
	if len(orders) == 0 {
		return Result{Status: StatusEmptyPack, OrderID: o.ID}, nil
	}

	last := order.LastInPack(orders)

	shipment := p.fetchShipment(ctx, &last)
	if shipment != nil && shipment.IsFull {
		return Result{Status: StatusFulfillmentOmitted, OrderID: last.ID}, nil
	}

	entries, err := p.builder.BuildEntries(ctx, orders)
	if err != nil {
		return Result{}, fmt.Errorf("consolidate pack %s: %w", packID, err)
	}

	body := p.composeBody(ctx, entries, shipment, &last)
	if body == "" {
		return Result{Status: StatusEmptyNote, OrderID: last.ID}, nil
	}

	return p.writeNote(ctx, last.ID, packID, body, orders)
}

// fetchShipment reads shipment info once per attempt. Failures degrade to
// "no gate, no zone" and are only logged.
func (p *Processor) fetchShipment(ctx context.Context, o *order.Order) *order.Shipment {
	shipment, err := p.marketplace.FetchShipment(ctx, o)
	if err != nil {
		p.logger.Warn("shipment lookup failed", zap.String("order_id", o.ID), zap.Error(err))
		return nil
	}
	return shipment
}

// composeBody joins the grouped allocation lines with the flex zone line
// and the repeat-buyer tag.
func (p *Processor) composeBody(ctx context.Context, entries []note.Entry, shipment *order.Shipment, ref *order.Order) string {
	lines := note.GroupLines(entries)

	if shipment != nil && shipment.IsFlex && strings.TrimSpace(shipment.Zone) != "" {
		lines = append(lines, "("+shipment.Zone+")")
	}

	if p.isRepeatBuyer(ctx, ref) {
		lines = append(lines, "(TOC)")
	}

	return strings.Join(lines, "\n")
}

// isRepeatBuyer reports whether the buyer placed two or more orders with
// this seller in the 24h before the reference order. Failures count as
// "no repeat" and are only logged.
func (p *Processor) isRepeatBuyer(ctx context.Context, ref *order.Order) bool {
	if p.cfg.SellerID == "" || ref.BuyerNickname == "" || ref.CreatedAt.IsZero() {
		return false
	}
	to := ref.CreatedAt
	from := to.Add(-staleAfter)
	repeat, err := p.marketplace.CountRecentOrdersByBuyer(ctx, from, to, ref.BuyerNickname, p.cfg.SellerID)
	if err != nil {
		p.logger.Warn("repeat-buyer check failed", zap.String("order_id", ref.ID), zap.Error(err))
		return false
	}
	return repeat
}

// writeNote finalizes the note, writes it to targetOrderID and sends the
// best-effort buyer message against messageResourceID.
func (p *Processor) writeNote(ctx context.Context, targetOrderID, messageResourceID, body string, orders []order.Order) (Result, error) {
	final := note.BuildFinalNote(body)

	if !p.cfg.UpsertNoteEnabled {
		return Result{Status: StatusWriteDisabled, OrderID: targetOrderID, Note: final}, nil
	}

	written, err := p.marketplace.UpsertNote(ctx, targetOrderID, final)
	if err != nil {
		return Result{}, fmt.Errorf("upsert note on order %s: %w", targetOrderID, err)
	}
	if !written {
		return Result{Status: StatusAlreadyAnnotated, OrderID: targetOrderID}, nil
	}

	if p.cfg.SendBuyerMessage {
		p.sendBuyerMessage(ctx, messageResourceID, orders)
	}

	return Result{Status: StatusNoteWritten, OrderID: targetOrderID, Note: final}, nil
}

// sendBuyerMessage sends the courtesy message; failures never affect the
// note outcome.
func (p *Processor) sendBuyerMessage(ctx context.Context, resourceID string, orders []order.Order) {
	name := buyerNameUpper(orders)
	text := fmt.Sprintf(p.cfg.BuyerMessageTemplate, name)
	if err := p.marketplace.SendBuyerMessage(ctx, resourceID, text); err != nil {
		p.logger.Warn("buyer message failed", zap.String("resource_id", resourceID), zap.Error(err))
	}
}

// buyerNameUpper picks the first non-blank buyer first name (falling back
// to the nickname) across the orders, upper-cased.
func buyerNameUpper(orders []order.Order) string {
	for _, o := range orders {
		if strings.TrimSpace(o.BuyerFirstName) != "" {
			return strings.ToUpper(strings.TrimSpace(o.BuyerFirstName))
		}
	}
	for _, o := range orders {
		if strings.TrimSpace(o.BuyerNickname) != "" {
			return strings.ToUpper(strings.TrimSpace(o.BuyerNickname))
		}
	}
	return ""
}
