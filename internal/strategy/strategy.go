// Package strategy contains the signal-generating side of the engine: the
// Strategy interface the drivers consume, its configuration, and the SMA
// crossover implementation.
package strategy

import "github.com/quantfork/cryptbot/internal/types"

// Strategy turns closed candles into trading signals. Implementations own
// their indicator state and must be deterministic given the same candle
// sequence and position states. Only one strategy instance drives one pair
// at a time; none of the methods are safe for concurrent use.
type Strategy interface {
	// Name returns a stable name used in logs and report file naming.
	Name() string
	// WarmupPeriod is the number of closed candles required before the
	// strategy can emit its first signal.
	WarmupPeriod() int
	// OnCandle consumes one closed candle and returns this step's decision.
	// The position state gates signal direction: buys fire only while flat,
	// sells only while open. A signal never mutates the position itself.
	OnCandle(candle types.Candle, position types.PositionState) types.Signal
}
