package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportRow is one replayed candle's ledger snapshot in a backtest report.
type ReportRow struct {
	CloseTime   time.Time       `yaml:"close_time" csv:"close_time"`
	ClosePrice  decimal.Decimal `yaml:"close_price" csv:"close_price"`
	BaseAmount  decimal.Decimal `yaml:"base_amount" csv:"base_amount"`
	QuoteAmount decimal.Decimal `yaml:"quote_amount" csv:"quote_amount"`
	// Capital is the total marked value: quote_amount + base_amount * close_price.
	Capital decimal.Decimal `yaml:"capital" csv:"capital"`
}

// StopReason records why a run ended.
type StopReason string

const (
	StopReasonDataExhausted StopReason = "data_exhausted"
	StopReasonRiskStop      StopReason = "risk_stop"
	StopReasonCancelled     StopReason = "cancelled"
	StopReasonStreamClosed  StopReason = "stream_closed"
	StopReasonExchangeError StopReason = "exchange_error"
)

// BacktestReport is the ordered, append-only outcome of one backtest run.
// Immutable after the run ends.
type BacktestReport struct {
	RunID        string      `yaml:"run_id"`
	StrategyName string      `yaml:"strategy_name"`
	Symbol       string      `yaml:"symbol"`
	Interval     string      `yaml:"interval"`
	StartedAt    time.Time   `yaml:"started_at"`
	StopReason   StopReason  `yaml:"stop_reason"`
	Rows         []ReportRow `yaml:"rows"`
}

// FinalRow returns the last row of the report, or the zero row when empty.
func (r *BacktestReport) FinalRow() ReportRow {
	if len(r.Rows) == 0 {
		return ReportRow{} //nolint:exhaustruct // zero row by contract
	}

	return r.Rows[len(r.Rows)-1]
}

// RunSummary is the YAML-persisted digest of a finished run: the last
// consistent state reported to the user regardless of how the run ended.
type RunSummary struct {
	RunID         string          `yaml:"run_id"`
	StrategyName  string          `yaml:"strategy_name"`
	Symbol        string          `yaml:"symbol"`
	Interval      string          `yaml:"interval"`
	StartedAt     time.Time       `yaml:"started_at"`
	FinishedAt    time.Time       `yaml:"finished_at"`
	StopReason    StopReason      `yaml:"stop_reason"`
	FinalPosition PositionState   `yaml:"final_position"`
	FinalBase     decimal.Decimal `yaml:"final_base"`
	FinalQuote    decimal.Decimal `yaml:"final_quote"`
	FinalCapital  decimal.Decimal `yaml:"final_capital"`
	CandleCount   int             `yaml:"candle_count"`
}
