package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/quantfork/cryptbot/internal/indicator"
	"github.com/quantfork/cryptbot/internal/types"
	"github.com/shopspring/decimal"
)

// SMACross is the simple-moving-average crossover strategy: it buys when the
// short mean crosses strictly above the long mean and sells when it crosses
// strictly below, gated by the current position state. Ties never trigger a
// trade, and no signal fires while either mean is still undefined.
type SMACross struct {
	config Config
	short  *indicator.MovingAverage
	long   *indicator.MovingAverage

	prevShort optional.Option[decimal.Decimal]
	prevLong  optional.Option[decimal.Decimal]
}

// NewSMACross creates the strategy from a validated configuration.
func NewSMACross(config Config) (*SMACross, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	short, err := indicator.NewMovingAverage(config.ShortWindow)
	if err != nil {
		return nil, err
	}

	long, err := indicator.NewMovingAverage(config.LongWindow)
	if err != nil {
		return nil, err
	}

	return &SMACross{
		config:    config,
		short:     short,
		long:      long,
		prevShort: optional.None[decimal.Decimal](),
		prevLong:  optional.None[decimal.Decimal](),
	}, nil
}

// Name implements Strategy.
func (s *SMACross) Name() string {
	return fmt.Sprintf("sma_cross_%s_%d_%d", s.config.Interval, s.config.ShortWindow, s.config.LongWindow)
}

// WarmupPeriod implements Strategy. The long window must fill before the
// first mean pair is defined.
func (s *SMACross) WarmupPeriod() int {
	return s.config.LongWindow
}

// Config returns the strategy configuration.
func (s *SMACross) Config() Config {
	return s.config
}

// OnCandle implements Strategy. Both trackers are updated in lockstep from
// the same close price, then the crossover is evaluated strictly on the newly
// updated step versus the immediately preceding one.
func (s *SMACross) OnCandle(candle types.Candle, position types.PositionState) types.Signal {
	shortNow := s.short.Update(candle.Close)
	longNow := s.long.Update(candle.Close)

	shortPrev := s.prevShort
	longPrev := s.prevLong
	s.prevShort = shortNow
	s.prevLong = longNow

	if shortNow.IsNone() || longNow.IsNone() || shortPrev.IsNone() || longPrev.IsNone() {
		return s.noAction("moving averages not yet defined")
	}

	sn := shortNow.Unwrap()
	ln := longNow.Unwrap()
	sp := shortPrev.Unwrap()
	lp := longPrev.Unwrap()

	if sn.GreaterThan(ln) && sp.LessThan(lp) && position == types.PositionFlat {
		return types.Signal{
			Type:   types.SignalTypeBuy,
			Name:   s.Name(),
			Reason: fmt.Sprintf("short SMA %s crossed above long SMA %s", sn.String(), ln.String()),
		}
	}

	if sn.LessThan(ln) && sp.GreaterThan(lp) && position == types.PositionOpen {
		return types.Signal{
			Type:   types.SignalTypeSell,
			Name:   s.Name(),
			Reason: fmt.Sprintf("short SMA %s crossed below long SMA %s", sn.String(), ln.String()),
		}
	}

	return s.noAction("no crossover")
}

func (s *SMACross) noAction(reason string) types.Signal {
	return types.Signal{
		Type:   types.SignalTypeNoAction,
		Name:   s.Name(),
		Reason: reason,
	}
}

// Verify SMACross implements the Strategy interface.
var _ Strategy = (*SMACross)(nil)
