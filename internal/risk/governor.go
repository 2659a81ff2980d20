// Package risk implements the capital-preservation stop. The governor
// compares total assets against the configured floor on every closed candle
// and, when breached, cancels outstanding orders and liquidates the base
// position before the run terminates.
package risk

import (
	"context"

	"github.com/quantfork/cryptbot/internal/exchange"
	"github.com/quantfork/cryptbot/internal/logger"
	"github.com/quantfork/cryptbot/internal/position"
	"github.com/quantfork/cryptbot/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Floor is the capital floor in quote-asset terms. Computed once at the
// start of a run and never moved afterwards.
type Floor struct {
	limit decimal.Decimal
}

// NewFloor returns a floor at initialCapital * lossFraction.
func NewFloor(initialCapital, lossFraction decimal.Decimal) Floor {
	return Floor{limit: initialCapital.Mul(lossFraction)}
}

// Limit returns the floor value.
func (f Floor) Limit() decimal.Decimal {
	return f.limit
}

// Breached reports whether totalAssets has fallen strictly below the floor.
// Sitting exactly on the floor keeps the run alive.
func (f Floor) Breached(totalAssets decimal.Decimal) bool {
	return totalAssets.LessThan(f.limit)
}

// Governor applies the floor to a live run: it decides when to stop and
// performs the cancel-then-liquidate shutdown against the exchange.
type Governor struct {
	ex    exchange.Exchange
	log   *logger.Logger
	floor Floor
}

// NewGovernor returns a governor with floor = initialCapital * lossFraction.
func NewGovernor(ex exchange.Exchange, initialCapital, lossFraction decimal.Decimal, log *logger.Logger) *Governor {
	return &Governor{
		ex:    ex,
		log:   log,
		floor: NewFloor(initialCapital, lossFraction),
	}
}

// Floor returns the capital floor.
func (g *Governor) Floor() Floor {
	return g.floor
}

// ShouldStop reports whether totalAssets breaches the floor.
func (g *Governor) ShouldStop(totalAssets decimal.Decimal) bool {
	return g.floor.Breached(totalAssets)
}

// Flatten cancels every pending order and market-sells the entire free base
// balance. Called exactly once, after ShouldStop returns true.
func (g *Governor) Flatten(ctx context.Context, tracker *position.Tracker) error {
	if err := tracker.CancelPending(ctx); err != nil {
		return err
	}

	wallet, err := g.ex.GetWallet(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWalletUnavailable, "failed to fetch wallet before liquidation", err)
	}

	base := wallet.Free(g.ex.BaseAsset())
	if !base.IsPositive() {
		g.log.Info("Nothing to liquidate, base balance is zero")

		return nil
	}

	g.log.Warn("Liquidating base position",
		zap.String("asset", g.ex.BaseAsset()),
		zap.String("quantity", base.String()),
	)

	return tracker.SubmitSell(ctx, base)
}
