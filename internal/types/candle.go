package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is a closed time interval's OHLCV summary for one trading pair.
// Immutable once constructed. Only CloseTime and Close are consumed by the
// strategy logic; the remaining fields exist for reporting.
type Candle struct {
	OpenTime  time.Time       `yaml:"open_time" csv:"open_time"`
	CloseTime time.Time       `yaml:"close_time" csv:"close_time"`
	Open      decimal.Decimal `yaml:"open" csv:"open"`
	High      decimal.Decimal `yaml:"high" csv:"high"`
	Low       decimal.Decimal `yaml:"low" csv:"low"`
	Close     decimal.Decimal `yaml:"close" csv:"close"`
	Volume    decimal.Decimal `yaml:"volume" csv:"volume"`
	// IsClosed is true once the exchange has finalized the interval.
	// Unclosed candles are discarded before they reach the strategy.
	IsClosed bool `yaml:"is_closed" csv:"is_closed"`
}
