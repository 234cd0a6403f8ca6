package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlaceOrderRequest is the payload for submitting a new order
type PlaceOrderRequest struct {
	Symbol    string           `json:"symbol"`
	Kind      OrderKind        `json:"kind"`
	Side      OrderSide        `json:"side"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	StopPrice *decimal.Decimal `json:"stop_price,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

// RegisterRequest is the payload for account registration
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
}

// LoginRequest is the payload for authentication
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the issued token and the user profile
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// PortfolioStats aggregates trading performance for a portfolio
type PortfolioStats struct {
	TotalValue           decimal.Decimal `json:"total_value"`
	CashBalance          decimal.Decimal `json:"cash_balance"`
	AssetsValue          decimal.Decimal `json:"assets_value"`
	TotalOrders          int             `json:"total_orders"`
	BuyOrders            int             `json:"buy_orders"`
	SellOrders           int             `json:"sell_orders"`
	TotalInvested        decimal.Decimal `json:"total_invested"`
	TotalReturned        decimal.Decimal `json:"total_returned"`
	RealizedProfitLoss   decimal.Decimal `json:"realized_profit_loss"`
	UnrealizedProfitLoss decimal.Decimal `json:"unrealized_profit_loss"`
	TotalProfitLoss      decimal.Decimal `json:"total_profit_loss"`
	ProfitLossPct        decimal.Decimal `json:"profit_loss_pct"`
}

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
