package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/quantfork/cryptbot/internal/logger"
	"github.com/quantfork/cryptbot/internal/types"
	"github.com/quantfork/cryptbot/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Mock fluent services. Each records the parameters it was configured with
// and returns a scripted result from Do.

type mockKlinesService struct {
	symbol    string
	interval  string
	limit     int
	startTime int64
	endTime   int64
	do        func(startTime int64) ([]*binance.Kline, error)
}

func (m *mockKlinesService) Symbol(symbol string) KlinesService {
	m.symbol = symbol

	return m
}

func (m *mockKlinesService) Interval(interval string) KlinesService {
	m.interval = interval

	return m
}

func (m *mockKlinesService) Limit(limit int) KlinesService {
	m.limit = limit

	return m
}

func (m *mockKlinesService) StartTime(startTime int64) KlinesService {
	m.startTime = startTime

	return m
}

func (m *mockKlinesService) EndTime(endTime int64) KlinesService {
	m.endTime = endTime

	return m
}

func (m *mockKlinesService) Do(_ context.Context) ([]*binance.Kline, error) {
	return m.do(m.startTime)
}

type mockCreateOrderService struct {
	symbol        string
	side          binance.SideType
	orderType     binance.OrderType
	quantity      string
	quoteOrderQty string
	resp          *binance.CreateOrderResponse
	err           error
}

func (m *mockCreateOrderService) Symbol(symbol string) CreateOrderService {
	m.symbol = symbol

	return m
}

func (m *mockCreateOrderService) Side(side binance.SideType) CreateOrderService {
	m.side = side

	return m
}

func (m *mockCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	m.orderType = orderType

	return m
}

func (m *mockCreateOrderService) Quantity(quantity string) CreateOrderService {
	m.quantity = quantity

	return m
}

func (m *mockCreateOrderService) QuoteOrderQty(quoteOrderQty string) CreateOrderService {
	m.quoteOrderQty = quoteOrderQty

	return m
}

func (m *mockCreateOrderService) Do(_ context.Context) (*binance.CreateOrderResponse, error) {
	return m.resp, m.err
}

type mockGetOrderService struct {
	orderID int64
	order   *binance.Order
	err     error
}

func (m *mockGetOrderService) Symbol(_ string) GetOrderService { return m }

func (m *mockGetOrderService) OrderID(orderID int64) GetOrderService {
	m.orderID = orderID

	return m
}

func (m *mockGetOrderService) Do(_ context.Context) (*binance.Order, error) {
	return m.order, m.err
}

type mockCancelOrderService struct {
	orderID int64
	err     error
}

func (m *mockCancelOrderService) Symbol(_ string) CancelOrderService { return m }

func (m *mockCancelOrderService) OrderID(orderID int64) CancelOrderService {
	m.orderID = orderID

	return m
}

func (m *mockCancelOrderService) Do(_ context.Context) (*binance.CancelOrderResponse, error) {
	return &binance.CancelOrderResponse{}, m.err //nolint:exhaustruct // response body unused
}

type mockGetAccountService struct {
	account *binance.Account
	err     error
}

func (m *mockGetAccountService) Do(_ context.Context) (*binance.Account, error) {
	return m.account, m.err
}

type mockBinanceClient struct {
	klines  *mockKlinesService
	create  *mockCreateOrderService
	get     *mockGetOrderService
	cancel  *mockCancelOrderService
	account *mockGetAccountService
}

var _ BinanceClient = (*mockBinanceClient)(nil)

func (m *mockBinanceClient) NewKlinesService() KlinesService           { return m.klines }
func (m *mockBinanceClient) NewCreateOrderService() CreateOrderService { return m.create }
func (m *mockBinanceClient) NewGetOrderService() GetOrderService       { return m.get }
func (m *mockBinanceClient) NewCancelOrderService() CancelOrderService { return m.cancel }
func (m *mockBinanceClient) NewGetAccountService() GetAccountService   { return m.account }

func testKline(openTime int64, closePrice string) *binance.Kline {
	return &binance.Kline{
		OpenTime:  openTime,
		CloseTime: openTime + 59_999,
		Open:      closePrice,
		High:      closePrice,
		Low:       closePrice,
		Close:     closePrice,
		Volume:    "1",
	}
}

type BinanceExchangeTestSuite struct {
	suite.Suite
	log *logger.Logger
}

func TestBinanceExchangeSuite(t *testing.T) {
	suite.Run(t, new(BinanceExchangeTestSuite))
}

func (suite *BinanceExchangeTestSuite) SetupSuite() {
	suite.log = logger.NewNopLogger()
}

func (suite *BinanceExchangeTestSuite) newExchange(client *mockBinanceClient) *BinanceExchange {
	return newBinanceExchangeWithClient("BTC", "USDT", client, nil, suite.log)
}

func (suite *BinanceExchangeTestSuite) TestSymbolComposition() {
	ex := suite.newExchange(&mockBinanceClient{})

	suite.Equal("BTCUSDT", ex.Symbol())
	suite.Equal("BTC", ex.BaseAsset())
	suite.Equal("USDT", ex.QuoteAsset())
}

func (suite *BinanceExchangeTestSuite) TestGetRecentCandles() {
	klines := &mockKlinesService{
		do: func(_ int64) ([]*binance.Kline, error) {
			return []*binance.Kline{testKline(0, "100.5"), testKline(60_000, "101")}, nil
		},
	}
	ex := suite.newExchange(&mockBinanceClient{klines: klines})

	candles, err := ex.GetRecentCandles(context.Background(), "1m", 2)
	suite.Require().NoError(err)
	suite.Require().Len(candles, 2)

	suite.Equal("BTCUSDT", klines.symbol)
	suite.Equal("1m", klines.interval)
	suite.Equal(2, klines.limit)

	suite.True(candles[0].Close.Equal(decimal.RequireFromString("100.5")))
	suite.Equal(time.UnixMilli(0).UTC(), candles[0].OpenTime)
	suite.Equal(time.UnixMilli(59_999).UTC(), candles[0].CloseTime)
	suite.True(candles[0].IsClosed)
}

func (suite *BinanceExchangeTestSuite) TestGetRecentCandlesParseFailure() {
	klines := &mockKlinesService{
		do: func(_ int64) ([]*binance.Kline, error) {
			return []*binance.Kline{testKline(0, "not-a-number")}, nil
		},
	}
	ex := suite.newExchange(&mockBinanceClient{klines: klines})

	_, err := ex.GetRecentCandles(context.Background(), "1m", 1)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))
}

func (suite *BinanceExchangeTestSuite) TestGetHistoricalCandlesPaginates() {
	// First page is full, so a second request must start at the close time
	// of the last kline plus one millisecond.
	fullPage := make([]*binance.Kline, klinesPageLimit)
	for i := range fullPage {
		fullPage[i] = testKline(int64(i)*60_000, "10")
	}

	var requestStarts []int64

	klines := &mockKlinesService{
		do: func(startTime int64) ([]*binance.Kline, error) {
			requestStarts = append(requestStarts, startTime)
			if len(requestStarts) == 1 {
				return fullPage, nil
			}

			return []*binance.Kline{testKline(int64(klinesPageLimit)*60_000, "11")}, nil
		},
	}
	ex := suite.newExchange(&mockBinanceClient{klines: klines})

	end := time.UnixMilli(int64(klinesPageLimit+10) * 60_000)

	candles, err := ex.GetHistoricalCandles(context.Background(), "1m", time.UnixMilli(0), end)
	suite.Require().NoError(err)
	suite.Len(candles, klinesPageLimit+1)

	lastOfFirstPage := fullPage[len(fullPage)-1]
	suite.Equal([]int64{0, lastOfFirstPage.CloseTime + 1}, requestStarts)
}

func (suite *BinanceExchangeTestSuite) TestGetWalletDefaultsMissingAssets() {
	account := &mockGetAccountService{
		account: &binance.Account{ //nolint:exhaustruct // only balances matter
			Balances: []binance.Balance{
				{Asset: "ETH", Free: "2.5", Locked: "0.5"},
			},
		},
	}
	ex := suite.newExchange(&mockBinanceClient{account: account})

	wallet, err := ex.GetWallet(context.Background())
	suite.Require().NoError(err)

	suite.True(wallet.Free("ETH").Equal(decimal.RequireFromString("2.5")))
	// Pair assets absent from the account come back as explicit zeros.
	suite.True(wallet.Free("BTC").IsZero())
	suite.True(wallet.Free("USDT").IsZero())
	suite.True(wallet.Free("XRP").IsZero())
}

func (suite *BinanceExchangeTestSuite) TestSubmitMarketOrderQuoteAmount() {
	create := &mockCreateOrderService{
		resp: &binance.CreateOrderResponse{ //nolint:exhaustruct // only id and status matter
			OrderID: 42,
			Status:  binance.OrderStatusTypeFilled,
		},
	}
	ex := suite.newExchange(&mockBinanceClient{create: create})

	ack, err := ex.SubmitMarketOrder(context.Background(), types.MarketOrder{
		Symbol:      "BTCUSDT",
		Side:        types.OrderSideBuy,
		Quantity:    decimal.Zero,
		QuoteAmount: decimal.NewFromInt(50),
	})
	suite.Require().NoError(err)

	suite.Equal(int64(42), ack.OrderID)
	suite.Equal(types.OrderStatusFilled, ack.Status)
	suite.Equal(binance.SideTypeBuy, create.side)
	suite.Equal(binance.OrderTypeMarket, create.orderType)
	suite.Equal("50", create.quoteOrderQty)
	suite.Empty(create.quantity)
}

func (suite *BinanceExchangeTestSuite) TestSubmitMarketOrderQuantity() {
	create := &mockCreateOrderService{
		resp: &binance.CreateOrderResponse{ //nolint:exhaustruct // only id and status matter
			OrderID: 43,
			Status:  binance.OrderStatusTypeNew,
		},
	}
	ex := suite.newExchange(&mockBinanceClient{create: create})

	ack, err := ex.SubmitMarketOrder(context.Background(), types.MarketOrder{
		Symbol:      "BTCUSDT",
		Side:        types.OrderSideSell,
		Quantity:    decimal.RequireFromString("0.25"),
		QuoteAmount: decimal.Zero,
	})
	suite.Require().NoError(err)

	suite.Equal(types.OrderStatusNew, ack.Status)
	suite.Equal(binance.SideTypeSell, create.side)
	suite.Equal("0.25", create.quantity)
	suite.Empty(create.quoteOrderQty)
}

func (suite *BinanceExchangeTestSuite) TestSubmitMarketOrderRejectsEmptyAmounts() {
	ex := suite.newExchange(&mockBinanceClient{create: &mockCreateOrderService{}})

	_, err := ex.SubmitMarketOrder(context.Background(), types.MarketOrder{
		Symbol:      "BTCUSDT",
		Side:        types.OrderSideBuy,
		Quantity:    decimal.Zero,
		QuoteAmount: decimal.Zero,
	})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *BinanceExchangeTestSuite) TestGetOrderStatus() {
	get := &mockGetOrderService{
		order: &binance.Order{Status: binance.OrderStatusTypeExpired}, //nolint:exhaustruct // only status matters
	}
	ex := suite.newExchange(&mockBinanceClient{get: get})

	status, err := ex.GetOrderStatus(context.Background(), 7)
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusExpired, status)
	suite.Equal(int64(7), get.orderID)
}

func (suite *BinanceExchangeTestSuite) TestCancelOrder() {
	cancel := &mockCancelOrderService{}
	ex := suite.newExchange(&mockBinanceClient{cancel: cancel})

	suite.Require().NoError(ex.CancelOrder(context.Background(), 9))
	suite.Equal(int64(9), cancel.orderID)
}

func (suite *BinanceExchangeTestSuite) TestMapOrderStatus() {
	tests := []struct {
		in  binance.OrderStatusType
		out types.OrderStatus
	}{
		{binance.OrderStatusTypeNew, types.OrderStatusNew},
		{binance.OrderStatusTypePartiallyFilled, types.OrderStatusPartiallyFilled},
		{binance.OrderStatusTypeFilled, types.OrderStatusFilled},
		{binance.OrderStatusTypeCanceled, types.OrderStatusCanceled},
		{binance.OrderStatusTypeExpired, types.OrderStatusExpired},
		{binance.OrderStatusTypeRejected, types.OrderStatusRejected},
	}

	for _, tt := range tests {
		suite.Equal(tt.out, mapOrderStatus(tt.in))
	}
}
