package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderKind is the instruction type of an order
type OrderKind string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
	OrderKindStop   OrderKind = "stop"
)

// Valid reports whether the kind is a known order kind
func (k OrderKind) Valid() bool {
	switch k {
	case OrderKindMarket, OrderKindLimit, OrderKindStop:
		return true
	}
	return false
}

// OrderSide is the direction of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Valid reports whether the side is buy or sell
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// OrderStatus is the lifecycle state of an order.
// partially_filled exists in the taxonomy but the engine always fills
// in full or not at all; it is reserved for future partial matching.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// Terminal reports whether the status is final; terminal orders are immutable
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Order is a user's instruction to buy or sell an instrument.
// Price holds the requested price for limit/stop orders and the
// reference market price at creation for market orders.
type Order struct {
	ID                 uuid.UUID        `json:"id" db:"id"`
	UserID             uuid.UUID        `json:"user_id" db:"user_id"`
	Symbol             string           `json:"symbol" db:"symbol"`
	Kind               OrderKind        `json:"kind" db:"kind"`
	Side               OrderSide        `json:"side" db:"side"`
	Quantity           decimal.Decimal  `json:"quantity" db:"quantity"`
	Price              decimal.Decimal  `json:"price" db:"price"`
	StopPrice          *decimal.Decimal `json:"stop_price,omitempty" db:"stop_price"`
	Status             OrderStatus      `json:"status" db:"status"`
	FilledQuantity     decimal.Decimal  `json:"filled_quantity" db:"filled_quantity"`
	AverageFilledPrice decimal.Decimal  `json:"average_filled_price" db:"average_filled_price"`
	TotalCost          decimal.Decimal  `json:"total_cost" db:"total_cost"`
	ExpiresAt          *time.Time       `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" db:"updated_at"`
}

// Fill marks the order filled in full at the given execution price
func (o *Order) Fill(executionPrice, totalCost decimal.Decimal) {
	o.Status = OrderStatusFilled
	o.FilledQuantity = o.Quantity
	o.AverageFilledPrice = executionPrice
	o.TotalCost = totalCost
	o.UpdatedAt = time.Now()
}

// Reject marks the order rejected
func (o *Order) Reject() {
	o.Status = OrderStatusRejected
	o.UpdatedAt = time.Now()
}

// Cancel marks the order cancelled
func (o *Order) Cancel() {
	o.Status = OrderStatusCancelled
	o.UpdatedAt = time.Now()
}
