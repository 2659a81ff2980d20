// Package indicator provides the moving-average building blocks consumed by
// the strategy layer.
package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/quantfork/cryptbot/pkg/errors"
	"github.com/shopspring/decimal"
)

// MovingAverage maintains a trailing window of close prices and its current
// arithmetic mean for one configured window length. The mean is undefined
// until the buffer holds exactly window values.
//
// The buffer is a fixed-size ring; Update evicts the oldest element once full
// and keeps a running sum so each step is O(1).
type MovingAverage struct {
	window int
	prices []decimal.Decimal
	head   int
	count  int
	sum    decimal.Decimal
}

// NewMovingAverage creates a tracker for the given window length.
func NewMovingAverage(window int) (*MovingAverage, error) {
	if window < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidWindow, "window length must be positive, got %d", window)
	}

	return &MovingAverage{
		window: window,
		prices: make([]decimal.Decimal, window),
		head:   0,
		count:  0,
		sum:    decimal.Zero,
	}, nil
}

// Window returns the configured window length.
func (m *MovingAverage) Window() int {
	return m.window
}

// Ready reports whether the buffer is fully populated.
func (m *MovingAverage) Ready() bool {
	return m.count == m.window
}

// Update appends a close price to the trailing buffer, evicting the oldest
// value once the buffer is full, and returns the new mean. The returned
// option is None until the buffer holds exactly window values.
func (m *MovingAverage) Update(closePrice decimal.Decimal) optional.Option[decimal.Decimal] {
	if m.count == m.window {
		// head points at the oldest value when the buffer is full
		m.sum = m.sum.Sub(m.prices[m.head])
	}

	m.prices[m.head] = closePrice
	m.sum = m.sum.Add(closePrice)
	m.head = (m.head + 1) % m.window

	if m.count < m.window {
		m.count++
	}

	return m.Mean()
}

// Mean returns the arithmetic mean of the buffer's current contents, or None
// while the buffer is not yet full.
func (m *MovingAverage) Mean() optional.Option[decimal.Decimal] {
	if !m.Ready() {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(m.sum.Div(decimal.NewFromInt(int64(m.window))))
}
