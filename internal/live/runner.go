// Package live drives a strategy against the real exchange. The runner warms
// the strategy up from recent history, then steps it once per closed candle
// from the WebSocket stream. Exchange-side state is re-queried every step;
// nothing about orders or balances is assumed between candles.
package live

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quantfork/cryptbot/internal/exchange"
	"github.com/quantfork/cryptbot/internal/logger"
	"github.com/quantfork/cryptbot/internal/position"
	"github.com/quantfork/cryptbot/internal/report"
	"github.com/quantfork/cryptbot/internal/risk"
	"github.com/quantfork/cryptbot/internal/strategy"
	"github.com/quantfork/cryptbot/internal/types"
	"github.com/quantfork/cryptbot/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// State is the runner's connection state.
type State string

const (
	// StateConnected means candles are flowing from an active subscription.
	StateConnected State = "CONNECTED"
	// StateReconnecting means the subscription dropped and a new one is being
	// established. Strategy and position state survive reconnects.
	StateReconnecting State = "RECONNECTING"
	// StateStopped is terminal.
	StateStopped State = "STOPPED"
)

const (
	defaultReconnectDelay = 5 * time.Second
	maxReconnectAttempts  = 10
)

// Runner executes one live trading session for a single pair.
type Runner struct {
	ex       exchange.Exchange
	streamer exchange.Streamer
	strat    strategy.Strategy
	cfg      strategy.Config
	tracker  *position.Tracker
	writer   report.ResultWriter
	log      *logger.Logger

	state          State
	reconnectDelay time.Duration

	runID       string
	startedAt   time.Time
	candleCount int
	lastRow     types.ReportRow
}

// NewRunner wires a runner. writer may be nil when no report persistence is
// wanted.
func NewRunner(
	ex exchange.Exchange,
	streamer exchange.Streamer,
	strat strategy.Strategy,
	cfg strategy.Config,
	writer report.ResultWriter,
	log *logger.Logger,
) *Runner {
	return &Runner{
		ex:             ex,
		streamer:       streamer,
		strat:          strat,
		cfg:            cfg,
		tracker:        position.NewTracker(ex, log),
		writer:         writer,
		log:            log,
		state:          StateStopped,
		reconnectDelay: defaultReconnectDelay,
		runID:          uuid.NewString(),
		startedAt:      time.Time{},
		candleCount:    0,
		lastRow:        types.ReportRow{}, //nolint:exhaustruct // filled on first step
	}
}

// State returns the runner's connection state.
func (r *Runner) State() State {
	return r.state
}

// Run blocks until the session ends and returns its summary. The session ends
// when ctx is cancelled, the capital floor is breached, a REST call fails, or
// the stream cannot be re-established.
func (r *Runner) Run(ctx context.Context) (types.RunSummary, error) {
	r.startedAt = time.Now().UTC()

	lastClose, err := r.warmup(ctx)
	if err != nil {
		return types.RunSummary{}, err //nolint:exhaustruct // no summary on failed start
	}

	wallet, err := r.ex.GetWallet(ctx)
	if err != nil {
		return types.RunSummary{}, err //nolint:exhaustruct // no summary on failed start
	}

	initialCapital := wallet.TotalAssets(r.ex.BaseAsset(), r.ex.QuoteAsset(), lastClose)
	governor := risk.NewGovernor(r.ex, initialCapital, decimal.NewFromFloat(r.cfg.LossFraction), r.log)

	r.log.Info("Starting live session",
		zap.String("run_id", r.runID),
		zap.String("strategy", r.strat.Name()),
		zap.String("symbol", r.ex.Symbol()),
		zap.String("initial_capital", initialCapital.String()),
		zap.String("capital_floor", governor.Floor().Limit().String()),
	)

	subID := 1

	sub, err := r.streamer.SubscribeClosedCandles(ctx, r.cfg.Interval, subID)
	if err != nil {
		return types.RunSummary{}, err //nolint:exhaustruct // no summary on failed start
	}

	r.state = StateConnected

	defer func() {
		sub.Unsubscribe()
		r.state = StateStopped
	}()

	for {
		select {
		case <-ctx.Done():
			return r.finish(types.StopReasonCancelled), nil

		case <-sub.Dropped():
			sub.Unsubscribe()

			sub, subID, err = r.reconnect(ctx, subID)
			if err != nil {
				if ctx.Err() != nil {
					return r.finish(types.StopReasonCancelled), nil
				}

				return r.finish(types.StopReasonStreamClosed), err
			}

		case candle := <-sub.Candles():
			reason, err := r.step(ctx, candle, governor)
			if err != nil {
				return r.finish(reason), err
			}

			if reason != "" {
				return r.finish(reason), nil
			}
		}
	}
}

// warmup seeds the strategy with recent closed candles. The most recent
// candle returned by the exchange is still forming and is discarded. Signals
// emitted during warm-up are never acted on. Returns the last seeded close
// price for the initial capital mark.
func (r *Runner) warmup(ctx context.Context) (decimal.Decimal, error) {
	depth := r.strat.WarmupPeriod() + 1

	candles, err := r.ex.GetRecentCandles(ctx, r.cfg.Interval, depth)
	if err != nil {
		return decimal.Zero, err
	}

	if len(candles) > 0 {
		candles = candles[:len(candles)-1]
	}

	if len(candles) < r.strat.WarmupPeriod() {
		return decimal.Zero, errors.NewInsufficientDataErrorf(
			r.strat.WarmupPeriod(), len(candles), r.ex.Symbol(),
			"not enough closed candles to warm up strategy %s", r.strat.Name())
	}

	for _, candle := range candles {
		r.strat.OnCandle(candle, r.tracker.State())
	}

	r.log.Info("Warm-up complete",
		zap.Int("candles", len(candles)),
		zap.String("interval", r.cfg.Interval),
	)

	return candles[len(candles)-1].Close, nil
}

// step processes one closed candle: reconcile fills, feed the strategy, then
// re-check the capital floor before acting on the signal. A failed REST call
// ends the session; the summary carries the last consistent state. A non-empty
// stop reason with a nil error means the session ended deliberately.
func (r *Runner) step(ctx context.Context, candle types.Candle, governor *risk.Governor) (types.StopReason, error) {
	if err := r.tracker.Reconcile(ctx); err != nil {
		r.log.Error("Order reconciliation failed, ending session", zap.Error(err))

		return types.StopReasonExchangeError, err
	}

	signal := r.strat.OnCandle(candle, r.tracker.State())

	wallet, err := r.ex.GetWallet(ctx)
	if err != nil {
		r.log.Error("Wallet fetch failed, ending session", zap.Error(err))

		return types.StopReasonExchangeError, err
	}

	base := wallet.Free(r.ex.BaseAsset())
	quote := wallet.Free(r.ex.QuoteAsset())
	total := wallet.TotalAssets(r.ex.BaseAsset(), r.ex.QuoteAsset(), candle.Close)

	if governor.ShouldStop(total) {
		r.log.Warn("Capital floor breached, stopping session",
			zap.String("capital", total.String()),
			zap.String("floor", governor.Floor().Limit().String()),
		)

		if err := governor.Flatten(ctx, r.tracker); err != nil {
			return types.StopReasonRiskStop, err
		}

		r.record(candle, base, quote, total)

		return types.StopReasonRiskStop, nil
	}

	switch signal.Type {
	case types.SignalTypeBuy:
		spend := quote.Mul(decimal.NewFromFloat(r.cfg.TradingFraction))
		if spend.IsPositive() {
			if err := r.tracker.SubmitBuy(ctx, spend); err != nil {
				r.log.Error("Buy submission failed", zap.Error(err))
			}
		}
	case types.SignalTypeSell:
		if base.IsPositive() {
			if err := r.tracker.SubmitSell(ctx, base); err != nil {
				r.log.Error("Sell submission failed", zap.Error(err))
			}
		}
	case types.SignalTypeNoAction:
	}

	r.record(candle, base, quote, total)

	return "", nil
}

// record appends the step's wallet mark to the report output.
func (r *Runner) record(candle types.Candle, base, quote, total decimal.Decimal) {
	row := types.ReportRow{
		CloseTime:   candle.CloseTime,
		ClosePrice:  candle.Close,
		BaseAmount:  base,
		QuoteAmount: quote,
		Capital:     total,
	}

	r.lastRow = row
	r.candleCount++

	if r.writer == nil {
		return
	}

	if err := r.writer.WriteRows([]types.ReportRow{row}); err != nil {
		r.log.Warn("Failed to persist report row", zap.Error(err))
	}
}

// reconnect establishes a fresh subscription with an incremented identifier.
// Strategy trackers, position state and pending order slots are untouched, so
// the session resumes where the drop left it.
func (r *Runner) reconnect(ctx context.Context, subID int) (*exchange.Subscription, int, error) {
	r.state = StateReconnecting

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		subID++

		r.log.Info("Reconnecting candle stream",
			zap.Int("attempt", attempt),
			zap.Int("subscription_id", subID),
		)

		sub, err := r.streamer.SubscribeClosedCandles(ctx, r.cfg.Interval, subID)
		if err == nil {
			r.state = StateConnected

			return sub, subID, nil
		}

		r.log.Warn("Reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, subID, ctx.Err()
		case <-time.After(r.reconnectDelay):
		}
	}

	return nil, subID, errors.Newf(errors.ErrCodeSubscribeFailed,
		"gave up reconnecting after %d attempts", maxReconnectAttempts)
}

// finish builds the run summary and persists it when a writer is present.
func (r *Runner) finish(reason types.StopReason) types.RunSummary {
	summary := types.RunSummary{
		RunID:         r.runID,
		StrategyName:  r.strat.Name(),
		Symbol:        r.ex.Symbol(),
		Interval:      r.cfg.Interval,
		StartedAt:     r.startedAt,
		FinishedAt:    time.Now().UTC(),
		StopReason:    reason,
		FinalPosition: r.tracker.State(),
		FinalBase:     r.lastRow.BaseAmount,
		FinalQuote:    r.lastRow.QuoteAmount,
		FinalCapital:  r.lastRow.Capital,
		CandleCount:   r.candleCount,
	}

	r.log.Info("Live session finished",
		zap.String("run_id", summary.RunID),
		zap.String("stop_reason", string(summary.StopReason)),
		zap.Int("candles", summary.CandleCount),
		zap.String("final_capital", summary.FinalCapital.String()),
	)

	if r.writer != nil {
		if err := r.writer.WriteSummary(summary); err != nil {
			r.log.Warn("Failed to persist run summary", zap.Error(err))
		}
	}

	return summary
}
