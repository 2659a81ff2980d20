package backtest

import "github.com/shopspring/decimal"

// Ledger is the simulated two-asset wallet a backtest trades against. All
// arithmetic is exact decimal arithmetic, so replaying the same candle series
// with the same configuration produces byte-identical reports.
type Ledger struct {
	base            decimal.Decimal
	quote           decimal.Decimal
	tradingFraction decimal.Decimal
}

// NewLedger returns a ledger holding initialQuote of the quote asset and
// nothing of the base asset.
func NewLedger(initialQuote, tradingFraction decimal.Decimal) *Ledger {
	return &Ledger{
		base:            decimal.Zero,
		quote:           initialQuote,
		tradingFraction: tradingFraction,
	}
}

// Base returns the base asset amount.
func (l *Ledger) Base() decimal.Decimal {
	return l.base
}

// Quote returns the quote asset amount.
func (l *Ledger) Quote() decimal.Decimal {
	return l.quote
}

// Buy spends the trading fraction of the quote balance on base asset at the
// given close price. Fills are instantaneous and frictionless.
func (l *Ledger) Buy(closePrice decimal.Decimal) {
	spend := l.quote.Mul(l.tradingFraction)
	l.base = l.base.Add(spend.Div(closePrice))
	l.quote = l.quote.Sub(spend)
}

// Sell liquidates the entire base balance at the given close price.
func (l *Ledger) Sell(closePrice decimal.Decimal) {
	l.quote = l.quote.Add(l.base.Mul(closePrice))
	l.base = decimal.Zero
}

// Capital marks the ledger to market at the given close price.
func (l *Ledger) Capital(closePrice decimal.Decimal) decimal.Decimal {
	return l.quote.Add(l.base.Mul(closePrice))
}
