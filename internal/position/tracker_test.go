package position

import (
	"context"
	"testing"
	"time"

	"github.com/quantfork/cryptbot/internal/exchange"
	"github.com/quantfork/cryptbot/internal/logger"
	"github.com/quantfork/cryptbot/internal/types"
	"github.com/quantfork/cryptbot/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// mockExchange implements exchange.Exchange with function fields so each test
// scripts exactly the calls it expects.
type mockExchange struct {
	submitFunc func(ctx context.Context, order types.MarketOrder) (types.OrderAck, error)
	statusFunc func(ctx context.Context, orderID int64) (types.OrderStatus, error)
	cancelFunc func(ctx context.Context, orderID int64) error
}

var _ exchange.Exchange = (*mockExchange)(nil)

func (m *mockExchange) Symbol() string     { return "BTCUSDT" }
func (m *mockExchange) BaseAsset() string  { return "BTC" }
func (m *mockExchange) QuoteAsset() string { return "USDT" }

func (m *mockExchange) GetRecentCandles(_ context.Context, _ string, _ int) ([]types.Candle, error) {
	return nil, nil
}

func (m *mockExchange) GetHistoricalCandles(_ context.Context, _ string, _, _ time.Time) ([]types.Candle, error) {
	return nil, nil
}

func (m *mockExchange) GetWallet(_ context.Context) (types.WalletSnapshot, error) {
	return types.WalletSnapshot{}, nil
}

func (m *mockExchange) SubmitMarketOrder(ctx context.Context, order types.MarketOrder) (types.OrderAck, error) {
	return m.submitFunc(ctx, order)
}

func (m *mockExchange) GetOrderStatus(ctx context.Context, orderID int64) (types.OrderStatus, error) {
	return m.statusFunc(ctx, orderID)
}

func (m *mockExchange) CancelOrder(ctx context.Context, orderID int64) error {
	return m.cancelFunc(ctx, orderID)
}

type TrackerTestSuite struct {
	suite.Suite
	ctx context.Context
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerTestSuite))
}

func (suite *TrackerTestSuite) SetupTest() {
	suite.ctx = context.Background()
}

func ackWith(orderID int64, status types.OrderStatus) func(context.Context, types.MarketOrder) (types.OrderAck, error) {
	return func(_ context.Context, _ types.MarketOrder) (types.OrderAck, error) {
		return types.OrderAck{OrderID: orderID, Status: status}, nil
	}
}

func (suite *TrackerTestSuite) TestStartsFlatWithEmptySlots() {
	tracker := NewTracker(&mockExchange{}, logger.NewNopLogger())

	suite.Equal(types.PositionFlat, tracker.State())
	suite.True(tracker.PendingBuy().IsNone())
	suite.True(tracker.PendingSell().IsNone())
}

func (suite *TrackerTestSuite) TestImmediateFillOpensPosition() {
	ex := &mockExchange{submitFunc: ackWith(1, types.OrderStatusFilled)}
	tracker := NewTracker(ex, logger.NewNopLogger())

	err := tracker.SubmitBuy(suite.ctx, decimal.NewFromInt(50))
	suite.Require().NoError(err)

	suite.Equal(types.PositionOpen, tracker.State())
	suite.True(tracker.PendingBuy().IsNone())
}

func (suite *TrackerTestSuite) TestUnfilledAckStaysPendingAndFlat() {
	ex := &mockExchange{submitFunc: ackWith(2, types.OrderStatusNew)}
	tracker := NewTracker(ex, logger.NewNopLogger())

	err := tracker.SubmitBuy(suite.ctx, decimal.NewFromInt(50))
	suite.Require().NoError(err)

	suite.Equal(types.PositionFlat, tracker.State())
	suite.True(tracker.PendingBuy().IsSome())
}

func (suite *TrackerTestSuite) TestReconcileFillFlipsPosition() {
	ex := &mockExchange{
		submitFunc: ackWith(3, types.OrderStatusNew),
		statusFunc: func(_ context.Context, orderID int64) (types.OrderStatus, error) {
			suite.Equal(int64(3), orderID)

			return types.OrderStatusFilled, nil
		},
	}
	tracker := NewTracker(ex, logger.NewNopLogger())

	suite.Require().NoError(tracker.SubmitBuy(suite.ctx, decimal.NewFromInt(50)))
	suite.Equal(types.PositionFlat, tracker.State())

	suite.Require().NoError(tracker.Reconcile(suite.ctx))
	suite.Equal(types.PositionOpen, tracker.State())
	suite.True(tracker.PendingBuy().IsNone())
}

func (suite *TrackerTestSuite) TestExpiredClearsSlotWithoutFlipping() {
	ex := &mockExchange{
		submitFunc: ackWith(4, types.OrderStatusNew),
		statusFunc: func(_ context.Context, _ int64) (types.OrderStatus, error) {
			return types.OrderStatusExpired, nil
		},
	}
	tracker := NewTracker(ex, logger.NewNopLogger())

	suite.Require().NoError(tracker.SubmitBuy(suite.ctx, decimal.NewFromInt(50)))
	suite.Require().NoError(tracker.Reconcile(suite.ctx))

	// The slot is free again but the position never opened.
	suite.Equal(types.PositionFlat, tracker.State())
	suite.True(tracker.PendingBuy().IsNone())
}

func (suite *TrackerTestSuite) TestCanceledSellKeepsPositionOpen() {
	ex := &mockExchange{
		submitFunc: ackWith(5, types.OrderStatusFilled),
	}
	tracker := NewTracker(ex, logger.NewNopLogger())
	suite.Require().NoError(tracker.SubmitBuy(suite.ctx, decimal.NewFromInt(50)))
	suite.Require().Equal(types.PositionOpen, tracker.State())

	ex.submitFunc = ackWith(6, types.OrderStatusNew)
	ex.statusFunc = func(_ context.Context, _ int64) (types.OrderStatus, error) {
		return types.OrderStatusCanceled, nil
	}

	suite.Require().NoError(tracker.SubmitSell(suite.ctx, decimal.NewFromInt(1)))
	suite.Require().NoError(tracker.Reconcile(suite.ctx))

	suite.Equal(types.PositionOpen, tracker.State())
	suite.True(tracker.PendingSell().IsNone())
}

func (suite *TrackerTestSuite) TestOpenOrderStaysPending() {
	ex := &mockExchange{
		submitFunc: ackWith(7, types.OrderStatusNew),
		statusFunc: func(_ context.Context, _ int64) (types.OrderStatus, error) {
			return types.OrderStatusPartiallyFilled, nil
		},
	}
	tracker := NewTracker(ex, logger.NewNopLogger())

	suite.Require().NoError(tracker.SubmitBuy(suite.ctx, decimal.NewFromInt(50)))
	suite.Require().NoError(tracker.Reconcile(suite.ctx))

	suite.Equal(types.PositionFlat, tracker.State())
	suite.True(tracker.PendingBuy().IsSome())
}

func (suite *TrackerTestSuite) TestSecondBuyRejectedWhilePending() {
	ex := &mockExchange{submitFunc: ackWith(8, types.OrderStatusNew)}
	tracker := NewTracker(ex, logger.NewNopLogger())

	suite.Require().NoError(tracker.SubmitBuy(suite.ctx, decimal.NewFromInt(50)))

	err := tracker.SubmitBuy(suite.ctx, decimal.NewFromInt(50))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeOrderFailed))
}

func (suite *TrackerTestSuite) TestCancelPendingFreesSlots() {
	cancelled := []int64{}
	ex := &mockExchange{
		submitFunc: ackWith(9, types.OrderStatusNew),
		cancelFunc: func(_ context.Context, orderID int64) error {
			cancelled = append(cancelled, orderID)

			return nil
		},
	}
	tracker := NewTracker(ex, logger.NewNopLogger())

	suite.Require().NoError(tracker.SubmitBuy(suite.ctx, decimal.NewFromInt(50)))
	suite.Require().NoError(tracker.CancelPending(suite.ctx))

	suite.Equal([]int64{9}, cancelled)
	suite.True(tracker.PendingBuy().IsNone())
	suite.Equal(types.PositionFlat, tracker.State())
}

func (suite *TrackerTestSuite) TestSubmitErrorLeavesSlotEmpty() {
	ex := &mockExchange{
		submitFunc: func(_ context.Context, _ types.MarketOrder) (types.OrderAck, error) {
			return types.OrderAck{}, errors.New(errors.ErrCodeOrderFailed, "exchange rejected the request")
		},
	}
	tracker := NewTracker(ex, logger.NewNopLogger())

	err := tracker.SubmitBuy(suite.ctx, decimal.NewFromInt(50))
	suite.Require().Error(err)
	suite.True(tracker.PendingBuy().IsNone())
	suite.Equal(types.PositionFlat, tracker.State())
}
