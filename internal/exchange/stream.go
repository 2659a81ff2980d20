package exchange

import (
	"context"
	"sync"

	"github.com/adshao/go-binance/v2"
	"github.com/quantfork/cryptbot/internal/types"
	"github.com/quantfork/cryptbot/pkg/errors"
	"go.uber.org/zap"
)

const streamBuffer = 16

// WsKlineHandler handles a kline event from the WebSocket stream.
type WsKlineHandler func(event *binance.WsKlineEvent)

// WsErrorHandler handles an asynchronous stream error.
type WsErrorHandler func(err error)

// WebSocketService abstracts the Binance kline WebSocket entry point for
// testing. The real implementation delegates to binance.WsKlineServe.
type WebSocketService interface {
	WsKlineServe(symbol, interval string, handler WsKlineHandler, errHandler WsErrorHandler) (doneC, stopC chan struct{}, err error)
}

type realWebSocketService struct{}

func (realWebSocketService) WsKlineServe(symbol, interval string, handler WsKlineHandler, errHandler WsErrorHandler) (chan struct{}, chan struct{}, error) {
	return binance.WsKlineServe(symbol, interval, binance.WsKlineHandler(handler), binance.ErrHandler(errHandler))
}

// Subscription is one live closed-candle stream. Candles arrive on Candles()
// in delivery order; Dropped() is signalled once when the remote side closes
// the connection. A dropped subscription is dead - the caller resubscribes
// with an incremented identifier rather than reusing the handle.
type Subscription struct {
	id       int
	candles  chan types.Candle
	dropped  chan error
	stop     chan struct{}
	wsStop   chan struct{}
	stopOnce sync.Once
}

// NewSubscription returns a subscription fed through Publish and Drop. The
// Binance streamer feeds one from its WebSocket handler; test fakes feed one
// directly.
func NewSubscription(id int) *Subscription {
	return &Subscription{
		id:       id,
		candles:  make(chan types.Candle, streamBuffer),
		dropped:  make(chan error, 1),
		stop:     make(chan struct{}),
		wsStop:   nil,
		stopOnce: sync.Once{},
	}
}

// ID returns the subscription identifier.
func (s *Subscription) ID() int {
	return s.id
}

// Candles returns the closed-candle channel.
func (s *Subscription) Candles() <-chan types.Candle {
	return s.candles
}

// Dropped is signalled once when the remote side closes the connection.
func (s *Subscription) Dropped() <-chan error {
	return s.dropped
}

// Publish delivers a candle to the consumer, blocking while the buffer is
// full. Returns false once the subscription has been unsubscribed.
func (s *Subscription) Publish(candle types.Candle) bool {
	select {
	case <-s.stop:
		return false
	default:
	}

	select {
	case s.candles <- candle:
		return true
	case <-s.stop:
		return false
	}
}

// Drop marks the subscription dead. Only the first call is observed.
func (s *Subscription) Drop(err error) {
	select {
	case s.dropped <- err:
	default:
	}
}

// Unsubscribe stops the stream. Safe to call multiple times.
func (s *Subscription) Unsubscribe() {
	s.stopOnce.Do(func() {
		close(s.stop)

		if s.wsStop != nil {
			close(s.wsStop)
		}
	})
}

// SubscribeClosedCandles implements Streamer. The handler discards unclosed
// candle pushes so only finalized intervals reach the engine.
func (b *BinanceExchange) SubscribeClosedCandles(ctx context.Context, interval string, subscriptionID int) (*Subscription, error) {
	sub := NewSubscription(subscriptionID)

	handler := func(event *binance.WsKlineEvent) {
		if !event.Kline.IsFinal {
			return
		}

		candle, err := klineToCandle(
			event.Kline.StartTime, event.Kline.EndTime,
			event.Kline.Open, event.Kline.High, event.Kline.Low, event.Kline.Close,
			event.Kline.Volume, true,
		)
		if err != nil {
			b.log.Warn("Discarding malformed kline event",
				zap.String("symbol", event.Symbol),
				zap.Error(err),
			)

			return
		}

		sub.Publish(candle)
	}

	errHandler := func(err error) {
		b.log.Warn("Candle stream error",
			zap.Int("subscription_id", subscriptionID),
			zap.Error(err),
		)
	}

	doneC, stopC, err := b.ws.WsKlineServe(b.Symbol(), interval, handler, errHandler)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSubscribeFailed, err,
			"failed to subscribe to %s@kline_%s", b.Symbol(), interval)
	}

	sub.wsStop = stopC

	// Watch for the remote side closing the connection.
	go func() {
		<-doneC
		sub.Drop(errors.New(errors.ErrCodeStreamClosed, "candle stream connection closed by remote"))
	}()

	b.log.Info("Subscribed to closed-candle stream",
		zap.String("symbol", b.Symbol()),
		zap.String("interval", interval),
		zap.Int("subscription_id", subscriptionID),
	)

	return sub, nil
}
