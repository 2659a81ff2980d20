package exchange

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/quantfork/cryptbot/internal/logger"
	"github.com/quantfork/cryptbot/internal/types"
	"github.com/quantfork/cryptbot/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Binance limits klines requests to 1000 candles per page.
const klinesPageLimit = 1000

// Service interfaces for mocking the Binance API

// KlinesService interface for fetching historical klines.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	Limit(limit int) KlinesService
	StartTime(startTime int64) KlinesService
	EndTime(endTime int64) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// CreateOrderService interface for submitting orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	QuoteOrderQty(quoteOrderQty string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetOrderService interface for querying order status.
type GetOrderService interface {
	Symbol(symbol string) GetOrderService
	OrderID(orderID int64) GetOrderService
	Do(ctx context.Context) (*binance.Order, error)
}

// CancelOrderService interface for canceling orders.
type CancelOrderService interface {
	Symbol(symbol string) CancelOrderService
	OrderID(orderID int64) CancelOrderService
	Do(ctx context.Context) (*binance.CancelOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// BinanceClient interface abstracts the Binance REST client for testing.
type BinanceClient interface {
	NewKlinesService() KlinesService
	NewCreateOrderService() CreateOrderService
	NewGetOrderService() GetOrderService
	NewCancelOrderService() CancelOrderService
	NewGetAccountService() GetAccountService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetOrderService() GetOrderService {
	return &realGetOrderService{service: r.client.NewGetOrderService()}
}

func (r *realBinanceClient) NewCancelOrderService() CancelOrderService {
	return &realCancelOrderService{service: r.client.NewCancelOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

// Real service wrappers

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) StartTime(startTime int64) KlinesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *realKlinesService) EndTime(endTime int64) KlinesService {
	s.service = s.service.EndTime(endTime)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) QuoteOrderQty(quoteOrderQty string) CreateOrderService {
	s.service = s.service.QuoteOrderQty(quoteOrderQty)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetOrderService struct {
	service *binance.GetOrderService
}

func (s *realGetOrderService) Symbol(symbol string) GetOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realGetOrderService) OrderID(orderID int64) GetOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realGetOrderService) Do(ctx context.Context) (*binance.Order, error) {
	return s.service.Do(ctx)
}

type realCancelOrderService struct {
	service *binance.CancelOrderService
}

func (s *realCancelOrderService) Symbol(symbol string) CancelOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOrderService) OrderID(orderID int64) CancelOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realCancelOrderService) Do(ctx context.Context) (*binance.CancelOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

// BinanceExchange implements Exchange and Streamer for one trading pair.
// It is stateless apart from the pair binding - all data is fetched directly
// from the Binance API.
type BinanceExchange struct {
	base   string
	quote  string
	client BinanceClient
	ws     WebSocketService
	log    *logger.Logger
}

// NewBinanceExchange creates a Binance collaborator bound to one pair.
// If useTestnet is true, both REST and WebSocket connect to the Binance spot
// testnet (https://testnet.binance.vision/).
func NewBinanceExchange(config Config, log *logger.Logger) (*BinanceExchange, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.UseTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.APIKey, config.SecretKey)

	return &BinanceExchange{
		base:   config.BaseAsset,
		quote:  config.QuoteAsset,
		client: &realBinanceClient{client: client},
		ws:     &realWebSocketService{},
		log:    log,
	}, nil
}

// newBinanceExchangeWithClient creates an exchange with custom client and
// websocket implementations. Used for testing with mocks.
func newBinanceExchangeWithClient(base, quote string, client BinanceClient, ws WebSocketService, log *logger.Logger) *BinanceExchange {
	return &BinanceExchange{
		base:   base,
		quote:  quote,
		client: client,
		ws:     ws,
		log:    log,
	}
}

// Symbol implements Exchange.
func (b *BinanceExchange) Symbol() string {
	return b.base + b.quote
}

// BaseAsset implements Exchange.
func (b *BinanceExchange) BaseAsset() string {
	return b.base
}

// QuoteAsset implements Exchange.
func (b *BinanceExchange) QuoteAsset() string {
	return b.quote
}

// GetRecentCandles implements Exchange.
func (b *BinanceExchange) GetRecentCandles(ctx context.Context, interval string, limit int) ([]types.Candle, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(b.Symbol()).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch recent klines", err)
	}

	return convertKlines(klines)
}

// GetHistoricalCandles implements Exchange. Binance caps each klines request
// at 1000 candles, so the range is walked page by page using the close time
// of the last candle plus one millisecond as the next start.
func (b *BinanceExchange) GetHistoricalCandles(ctx context.Context, interval string, start, end time.Time) ([]types.Candle, error) {
	var candles []types.Candle

	currentStart := start.UnixMilli()
	endMillis := end.UnixMilli()

	for currentStart < endMillis {
		klines, err := b.client.NewKlinesService().
			Symbol(b.Symbol()).
			Interval(interval).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(klinesPageLimit).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch historical klines", err)
		}

		page, err := convertKlines(klines)
		if err != nil {
			return nil, err
		}

		candles = append(candles, page...)

		if len(klines) < klinesPageLimit {
			break
		}

		// Use the close time of the last kline + 1ms to avoid duplicates.
		currentStart = klines[len(klines)-1].CloseTime + 1
	}

	b.log.Debug("Historical candles fetched",
		zap.String("symbol", b.Symbol()),
		zap.String("interval", interval),
		zap.Int("count", len(candles)),
	)

	return candles, nil
}

// GetWallet implements Exchange. A pair asset missing from the account
// balances is reported as a zero balance rather than an absent entry.
func (b *BinanceExchange) GetWallet(ctx context.Context) (types.WalletSnapshot, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeWalletUnavailable, "failed to fetch account balances", err)
	}

	snapshot := make(types.WalletSnapshot, len(account.Balances))

	for _, bal := range account.Balances {
		free, err := decimal.NewFromString(bal.Free)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid free balance for %s", bal.Asset)
		}

		locked, err := decimal.NewFromString(bal.Locked)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid locked balance for %s", bal.Asset)
		}

		snapshot[bal.Asset] = types.Balance{Asset: bal.Asset, Free: free, Locked: locked}
	}

	for _, asset := range []string{b.base, b.quote} {
		if _, ok := snapshot[asset]; !ok {
			snapshot[asset] = types.Balance{Asset: asset, Free: decimal.Zero, Locked: decimal.Zero}
		}
	}

	return snapshot, nil
}

// SubmitMarketOrder implements Exchange.
func (b *BinanceExchange) SubmitMarketOrder(ctx context.Context, order types.MarketOrder) (types.OrderAck, error) {
	var side binance.SideType

	switch order.Side {
	case types.OrderSideBuy:
		side = binance.SideTypeBuy
	case types.OrderSideSell:
		side = binance.SideTypeSell
	default:
		return types.OrderAck{}, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", order.Side)
	}

	service := b.client.NewCreateOrderService().
		Symbol(b.Symbol()).
		Side(side).
		Type(binance.OrderTypeMarket)

	switch {
	case order.QuoteAmount.IsPositive():
		service = service.QuoteOrderQty(order.QuoteAmount.String())
	case order.Quantity.IsPositive():
		service = service.Quantity(order.Quantity.String())
	default:
		return types.OrderAck{}, errors.New(errors.ErrCodeInvalidParameter, "market order requires a positive quantity or quote amount")
	}

	resp, err := service.Do(ctx)
	if err != nil {
		return types.OrderAck{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to submit market order", err)
	}

	b.log.Info("Market order submitted",
		zap.String("symbol", b.Symbol()),
		zap.String("side", string(order.Side)),
		zap.Int64("order_id", resp.OrderID),
		zap.String("status", string(resp.Status)),
	)

	return types.OrderAck{
		OrderID: resp.OrderID,
		Status:  mapOrderStatus(resp.Status),
	}, nil
}

// GetOrderStatus implements Exchange.
func (b *BinanceExchange) GetOrderStatus(ctx context.Context, orderID int64) (types.OrderStatus, error) {
	order, err := b.client.NewGetOrderService().
		Symbol(b.Symbol()).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeOrderNotFound, err, "failed to query status of order %d", orderID)
	}

	return mapOrderStatus(order.Status), nil
}

// CancelOrder implements Exchange.
func (b *BinanceExchange) CancelOrder(ctx context.Context, orderID int64) error {
	_, err := b.client.NewCancelOrderService().
		Symbol(b.Symbol()).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeCancelFailed, err, "failed to cancel order %d", orderID)
	}

	return nil
}

// Helper functions

// mapOrderStatus converts a Binance order status to the internal status enum.
func mapOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew:
		return types.OrderStatusNew
	case binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPartiallyFilled
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled:
		return types.OrderStatusCanceled
	case binance.OrderStatusTypeExpired:
		return types.OrderStatusExpired
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatus(status)
	}
}

// convertKlines converts Binance klines to internal candles, oldest first.
// Historical klines are closed by definition.
func convertKlines(klines []*binance.Kline) ([]types.Candle, error) {
	candles := make([]types.Candle, 0, len(klines))

	for _, k := range klines {
		candle, err := klineToCandle(k.OpenTime, k.CloseTime, k.Open, k.High, k.Low, k.Close, k.Volume, true)
		if err != nil {
			return nil, err
		}

		candles = append(candles, candle)
	}

	return candles, nil
}

func klineToCandle(openTime, closeTime int64, open, high, low, closePrice, volume string, closed bool) (types.Candle, error) {
	o, err := decimal.NewFromString(open)
	if err != nil {
		return types.Candle{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid open price", err)
	}

	h, err := decimal.NewFromString(high)
	if err != nil {
		return types.Candle{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid high price", err)
	}

	l, err := decimal.NewFromString(low)
	if err != nil {
		return types.Candle{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid low price", err)
	}

	c, err := decimal.NewFromString(closePrice)
	if err != nil {
		return types.Candle{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid close price", err)
	}

	v, err := decimal.NewFromString(volume)
	if err != nil {
		return types.Candle{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid volume", err)
	}

	return types.Candle{
		OpenTime:  time.UnixMilli(openTime).UTC(),
		CloseTime: time.UnixMilli(closeTime).UTC(),
		Open:      o,
		High:      h,
		Low:       l,
		Close:     c,
		Volume:    v,
		IsClosed:  closed,
	}, nil
}

// Verify BinanceExchange implements the collaborator interfaces.
var (
	_ Exchange = (*BinanceExchange)(nil)
	_ Streamer = (*BinanceExchange)(nil)
)
