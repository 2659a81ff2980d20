// Package position tracks the single-pair position lifecycle. The tracker is
// the only component allowed to change the position state, and it does so
// strictly on observed FILLED statuses reported by the exchange. Acknowledged
// but unfilled orders wait in a per-side pending slot until reconciliation
// sees them reach a terminal status.
package position

import (
	"context"

	optional "github.com/moznion/go-optional"
	"github.com/quantfork/cryptbot/internal/exchange"
	"github.com/quantfork/cryptbot/internal/logger"
	"github.com/quantfork/cryptbot/internal/types"
	"github.com/quantfork/cryptbot/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Tracker owns the position state and at most one pending order per side.
// It is not safe for concurrent use; the drivers call it from a single
// goroutine per run.
type Tracker struct {
	ex          exchange.Exchange
	log         *logger.Logger
	state       types.PositionState
	pendingBuy  optional.Option[types.PendingOrder]
	pendingSell optional.Option[types.PendingOrder]
}

// NewTracker returns a tracker starting flat with empty pending slots.
func NewTracker(ex exchange.Exchange, log *logger.Logger) *Tracker {
	return &Tracker{
		ex:          ex,
		log:         log,
		state:       types.PositionFlat,
		pendingBuy:  optional.None[types.PendingOrder](),
		pendingSell: optional.None[types.PendingOrder](),
	}
}

// State returns the current position state.
func (t *Tracker) State() types.PositionState {
	return t.state
}

// PendingBuy returns the pending buy order, if any.
func (t *Tracker) PendingBuy() optional.Option[types.PendingOrder] {
	return t.pendingBuy
}

// PendingSell returns the pending sell order, if any.
func (t *Tracker) PendingSell() optional.Option[types.PendingOrder] {
	return t.pendingSell
}

// SubmitBuy submits a market buy spending quoteAmount of the quote asset.
// The position stays flat until reconciliation observes the fill.
func (t *Tracker) SubmitBuy(ctx context.Context, quoteAmount decimal.Decimal) error {
	if t.pendingBuy.IsSome() {
		return errors.New(errors.ErrCodeOrderFailed, "a buy order is already pending")
	}

	order := types.MarketOrder{
		Symbol:      t.ex.Symbol(),
		Side:        types.OrderSideBuy,
		Quantity:    decimal.Zero,
		QuoteAmount: quoteAmount,
	}

	return t.submit(ctx, order)
}

// SubmitSell submits a market sell of quantity units of the base asset.
// The position stays open until reconciliation observes the fill.
func (t *Tracker) SubmitSell(ctx context.Context, quantity decimal.Decimal) error {
	if t.pendingSell.IsSome() {
		return errors.New(errors.ErrCodeOrderFailed, "a sell order is already pending")
	}

	order := types.MarketOrder{
		Symbol:      t.ex.Symbol(),
		Side:        types.OrderSideSell,
		Quantity:    quantity,
		QuoteAmount: decimal.Zero,
	}

	return t.submit(ctx, order)
}

func (t *Tracker) submit(ctx context.Context, order types.MarketOrder) error {
	ack, err := t.ex.SubmitMarketOrder(ctx, order)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to submit %s order", order.Side)
	}

	t.log.Info("Submitted market order",
		zap.Int64("order_id", ack.OrderID),
		zap.String("side", string(order.Side)),
		zap.String("status", string(ack.Status)),
	)

	t.applyStatus(types.PendingOrder{OrderID: ack.OrderID, Side: order.Side}, ack.Status)

	return nil
}

// Reconcile polls the exchange for each pending order and applies any
// terminal status observed. It runs before signal evaluation so the strategy
// always sees the position state implied by the latest fills.
func (t *Tracker) Reconcile(ctx context.Context) error {
	if err := t.reconcileSlot(ctx, t.pendingBuy); err != nil {
		return err
	}

	return t.reconcileSlot(ctx, t.pendingSell)
}

func (t *Tracker) reconcileSlot(ctx context.Context, slot optional.Option[types.PendingOrder]) error {
	pending, err := slot.Take()
	if err != nil {
		return nil
	}

	status, err := t.ex.GetOrderStatus(ctx, pending.OrderID)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to query order %d", pending.OrderID)
	}

	t.applyStatus(pending, status)

	return nil
}

// applyStatus records a pending order or resolves it. Only FILLED moves the
// position; EXPIRED, CANCELED and REJECTED free the slot so the next signal
// can act, but the position stays where the last fill left it.
func (t *Tracker) applyStatus(pending types.PendingOrder, status types.OrderStatus) {
	if !status.IsTerminal() {
		t.setSlot(pending.Side, optional.Some(pending))

		return
	}

	t.setSlot(pending.Side, optional.None[types.PendingOrder]())

	if status != types.OrderStatusFilled {
		t.log.Warn("Order ended without filling",
			zap.Int64("order_id", pending.OrderID),
			zap.String("side", string(pending.Side)),
			zap.String("status", string(status)),
		)

		return
	}

	switch pending.Side {
	case types.OrderSideBuy:
		t.state = types.PositionOpen
	case types.OrderSideSell:
		t.state = types.PositionFlat
	}

	t.log.Info("Order filled",
		zap.Int64("order_id", pending.OrderID),
		zap.String("side", string(pending.Side)),
		zap.String("position", string(t.state)),
	)
}

func (t *Tracker) setSlot(side types.OrderSide, value optional.Option[types.PendingOrder]) {
	if side == types.OrderSideBuy {
		t.pendingBuy = value
	} else {
		t.pendingSell = value
	}
}

// CancelPending cancels every pending order and frees both slots. Used by the
// risk stop before flattening so no stale buy can fill after shutdown.
func (t *Tracker) CancelPending(ctx context.Context) error {
	for _, slot := range []optional.Option[types.PendingOrder]{t.pendingBuy, t.pendingSell} {
		pending, err := slot.Take()
		if err != nil {
			continue
		}

		if err := t.ex.CancelOrder(ctx, pending.OrderID); err != nil {
			return errors.Wrapf(errors.ErrCodeCancelFailed, err, "failed to cancel order %d", pending.OrderID)
		}

		t.log.Info("Cancelled pending order",
			zap.Int64("order_id", pending.OrderID),
			zap.String("side", string(pending.Side)),
		)
	}

	t.pendingBuy = optional.None[types.PendingOrder]()
	t.pendingSell = optional.None[types.PendingOrder]()

	return nil
}
