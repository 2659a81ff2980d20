// Package backtest replays historical closed candles through a strategy
// against a simulated wallet. Fills are instantaneous at the candle close,
// the capital floor applies exactly as in live trading, and identical inputs
// always produce identical reports.
package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quantfork/cryptbot/internal/logger"
	"github.com/quantfork/cryptbot/internal/risk"
	"github.com/quantfork/cryptbot/internal/strategy"
	"github.com/quantfork/cryptbot/internal/types"
	"github.com/quantfork/cryptbot/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProgressFunc is invoked after each replayed candle with the number of
// candles processed so far and the total to process.
type ProgressFunc func(done, total int)

// Engine replays a candle series through a strategy. One engine serves one
// run; construct a fresh engine to run again.
type Engine struct {
	strat          strategy.Strategy
	symbol         string
	interval       string
	initialCapital decimal.Decimal
	ledger         *Ledger
	floor          risk.Floor
	onProgress     ProgressFunc
	log            *logger.Logger
}

// NewEngine returns an engine trading initialCapital of the quote asset with
// the given strategy. lossFraction and tradingFraction follow the strategy
// configuration that produced strat.
func NewEngine(
	strat strategy.Strategy,
	symbol, interval string,
	initialCapital, tradingFraction, lossFraction decimal.Decimal,
	log *logger.Logger,
) *Engine {
	return &Engine{
		strat:          strat,
		symbol:         symbol,
		interval:       interval,
		initialCapital: initialCapital,
		ledger:         NewLedger(initialCapital, tradingFraction),
		floor:          risk.NewFloor(initialCapital, lossFraction),
		onProgress:     nil,
		log:            log,
	}
}

// OnProgress registers a progress callback. Must be called before Run.
func (e *Engine) OnProgress(fn ProgressFunc) {
	e.onProgress = fn
}

// Run replays candles in order and returns the finished report. The series
// must hold at least one candle beyond the strategy's warm-up period.
// Cancelling ctx between candles ends the run with a consistent report.
func (e *Engine) Run(ctx context.Context, candles []types.Candle) (*types.BacktestReport, error) {
	required := e.strat.WarmupPeriod() + 1
	if len(candles) < required {
		return nil, errors.NewInsufficientDataErrorf(required, len(candles), e.symbol,
			"not enough candles to replay strategy %s", e.strat.Name())
	}

	report := &types.BacktestReport{
		RunID:        uuid.NewString(),
		StrategyName: e.strat.Name(),
		Symbol:       e.symbol,
		Interval:     e.interval,
		StartedAt:    time.Now().UTC(),
		StopReason:   types.StopReasonDataExhausted,
		Rows:         nil,
	}

	e.log.Info("Starting backtest",
		zap.String("run_id", report.RunID),
		zap.String("strategy", report.StrategyName),
		zap.String("symbol", e.symbol),
		zap.Int("candles", len(candles)),
		zap.String("initial_capital", e.initialCapital.String()),
		zap.String("capital_floor", e.floor.Limit().String()),
	)

	position := types.PositionFlat

	for i, candle := range candles {
		select {
		case <-ctx.Done():
			report.StopReason = types.StopReasonCancelled
			e.finish(report, position)

			return report, nil
		default:
		}

		signal := e.strat.OnCandle(candle, position)

		switch signal.Type {
		case types.SignalTypeBuy:
			e.ledger.Buy(candle.Close)
			position = types.PositionOpen
			e.log.Info("Buy executed",
				zap.Time("close_time", candle.CloseTime),
				zap.String("close", candle.Close.String()),
				zap.String("reason", signal.Reason),
			)
		case types.SignalTypeSell:
			e.ledger.Sell(candle.Close)
			position = types.PositionFlat
			e.log.Info("Sell executed",
				zap.Time("close_time", candle.CloseTime),
				zap.String("close", candle.Close.String()),
				zap.String("reason", signal.Reason),
			)
		case types.SignalTypeNoAction:
		}

		report.Rows = append(report.Rows, types.ReportRow{
			CloseTime:   candle.CloseTime,
			ClosePrice:  candle.Close,
			BaseAmount:  e.ledger.Base(),
			QuoteAmount: e.ledger.Quote(),
			Capital:     e.ledger.Capital(candle.Close),
		})

		if e.onProgress != nil {
			e.onProgress(i+1, len(candles))
		}

		if e.floor.Breached(e.ledger.Capital(candle.Close)) {
			e.liquidate(report, candle, &position)

			return report, nil
		}
	}

	e.finish(report, position)

	return report, nil
}

// liquidate applies the risk stop: sell everything at the breaching candle's
// close and append the post-liquidation row so the report ends in a
// consistent all-quote state.
func (e *Engine) liquidate(report *types.BacktestReport, candle types.Candle, position *types.PositionState) {
	e.log.Warn("Capital floor breached, stopping",
		zap.String("capital", e.ledger.Capital(candle.Close).String()),
		zap.String("floor", e.floor.Limit().String()),
	)

	if e.ledger.Base().IsPositive() {
		e.ledger.Sell(candle.Close)
		*position = types.PositionFlat

		report.Rows = append(report.Rows, types.ReportRow{
			CloseTime:   candle.CloseTime,
			ClosePrice:  candle.Close,
			BaseAmount:  e.ledger.Base(),
			QuoteAmount: e.ledger.Quote(),
			Capital:     e.ledger.Capital(candle.Close),
		})
	}

	report.StopReason = types.StopReasonRiskStop
	e.finish(report, *position)
}

func (e *Engine) finish(report *types.BacktestReport, position types.PositionState) {
	final := report.FinalRow()
	e.log.Info("Backtest finished",
		zap.String("run_id", report.RunID),
		zap.String("stop_reason", string(report.StopReason)),
		zap.String("final_position", string(position)),
		zap.Int("rows", len(report.Rows)),
		zap.String("final_capital", final.Capital.String()),
	)
}
