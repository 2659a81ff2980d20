package types

import "github.com/shopspring/decimal"

type OrderSide string

type OrderStatus string

type PositionState string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

const (
	// PositionFlat means no capital is deployed into the base asset.
	PositionFlat PositionState = "FLAT"
	// PositionOpen means capital is deployed into the base asset.
	PositionOpen PositionState = "OPEN"
)

// IsTerminal reports whether the status ends an order's lifecycle.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusExpired, OrderStatusRejected:
		return true
	case OrderStatusNew, OrderStatusPartiallyFilled:
		return false
	default:
		return false
	}
}

// MarketOrder describes a market order submission. Exactly one of Quantity
// (base asset amount) or QuoteAmount (quote asset to spend or receive) is set.
type MarketOrder struct {
	Symbol      string          `yaml:"symbol" validate:"required"`
	Side        OrderSide       `yaml:"side" validate:"required,oneof=BUY SELL"`
	Quantity    decimal.Decimal `yaml:"quantity"`
	QuoteAmount decimal.Decimal `yaml:"quote_amount"`
}

// OrderAck is the exchange's acknowledgement of a submitted order.
type OrderAck struct {
	OrderID int64       `yaml:"order_id"`
	Status  OrderStatus `yaml:"status"`
}

// PendingOrder tracks an in-flight order until it is observed in a terminal
// status. At most one pending order per side exists at a time.
type PendingOrder struct {
	OrderID int64     `yaml:"order_id"`
	Side    OrderSide `yaml:"side"`
}
