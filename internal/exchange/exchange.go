// Package exchange contains the Binance collaborator behind which all
// transport concerns live: authenticated REST calls, kline history retrieval,
// and the closed-candle WebSocket stream. The engine consumes the narrow
// Exchange and Streamer interfaces and never touches wire formats directly.
package exchange

import (
	"context"
	"time"

	"github.com/quantfork/cryptbot/internal/types"
)

// Exchange is the synchronous collaborator surface consumed by the drivers.
// Every call queries authoritative exchange-side state; nothing is cached
// locally between steps.
type Exchange interface {
	// Symbol returns the trading pair symbol, e.g. "BTCUSDT".
	Symbol() string
	// BaseAsset returns the base asset, e.g. "BTC".
	BaseAsset() string
	// QuoteAsset returns the quote asset, e.g. "USDT".
	QuoteAsset() string

	// GetRecentCandles returns the most recent limit candles for the interval,
	// oldest first. The last candle may still be open.
	GetRecentCandles(ctx context.Context, interval string, limit int) ([]types.Candle, error)
	// GetHistoricalCandles returns all candles between start and end in
	// chronological order, paginating internally.
	GetHistoricalCandles(ctx context.Context, interval string, start, end time.Time) ([]types.Candle, error)
	// GetWallet returns a fresh wallet snapshot.
	GetWallet(ctx context.Context) (types.WalletSnapshot, error)
	// SubmitMarketOrder submits a market order and returns the exchange's
	// acknowledgement. Fire-and-forget: no retry is attempted here.
	SubmitMarketOrder(ctx context.Context, order types.MarketOrder) (types.OrderAck, error)
	// GetOrderStatus returns the current status of the given order.
	GetOrderStatus(ctx context.Context, orderID int64) (types.OrderStatus, error)
	// CancelOrder cancels the given order.
	CancelOrder(ctx context.Context, orderID int64) error
}

// Streamer produces closed-candle subscriptions. A new subscription carries a
// new subscription identifier; reconnecting after a drop means subscribing
// again with an incremented identifier.
type Streamer interface {
	// SubscribeClosedCandles opens a stream of closed candles for the pair.
	// Unclosed candle pushes are discarded before they reach the channel.
	SubscribeClosedCandles(ctx context.Context, interval string, subscriptionID int) (*Subscription, error)
}
