package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio holds a user's cash balance and positions. Exactly one
// portfolio exists per user; it is created lazily with a starting cash
// balance on first access.
type Portfolio struct {
	ID                 uuid.UUID        `json:"id" db:"id"`
	UserID             uuid.UUID        `json:"user_id" db:"user_id"`
	CashBalance        decimal.Decimal  `json:"cash_balance" db:"cash_balance"`
	Items              []*PortfolioItem `json:"items"`
	TotalValue         decimal.Decimal  `json:"total_value" db:"total_value"`
	TotalProfitLoss    decimal.Decimal  `json:"total_profit_loss" db:"total_profit_loss"`
	TotalProfitLossPct decimal.Decimal  `json:"total_profit_loss_pct" db:"total_profit_loss_pct"`
	Version            int64            `json:"-" db:"version"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" db:"updated_at"`
}

// PortfolioItem is a position in a single instrument. Quantity is always
// strictly positive; a position that would reach zero is removed instead
// of being stored at zero.
type PortfolioItem struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	PortfolioID     uuid.UUID       `json:"-" db:"portfolio_id"`
	Symbol          string          `json:"symbol" db:"symbol"`
	Quantity        decimal.Decimal `json:"quantity" db:"quantity"`
	AverageBuyPrice decimal.Decimal `json:"average_buy_price" db:"average_buy_price"`
	CurrentPrice    decimal.Decimal `json:"current_price" db:"current_price"`
	TotalValue      decimal.Decimal `json:"total_value" db:"total_value"`
	ProfitLoss      decimal.Decimal `json:"profit_loss" db:"profit_loss"`
	ProfitLossPct   decimal.Decimal `json:"profit_loss_pct" db:"profit_loss_pct"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// NewPortfolio creates an empty portfolio with the given starting cash
func NewPortfolio(userID uuid.UUID, startingCash decimal.Decimal) *Portfolio {
	now := time.Now()
	return &Portfolio{
		ID:          uuid.New(),
		UserID:      userID,
		CashBalance: startingCash,
		Items:       []*PortfolioItem{},
		TotalValue:  startingCash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Item returns the position for symbol, or nil when none is held
func (p *Portfolio) Item(symbol string) *PortfolioItem {
	for _, item := range p.Items {
		if item.Symbol == symbol {
			return item
		}
	}
	return nil
}

// AddItem appends a new position, preserving insertion order
func (p *Portfolio) AddItem(item *PortfolioItem) {
	item.PortfolioID = p.ID
	p.Items = append(p.Items, item)
}

// RemoveItem drops the position for symbol, if present
func (p *Portfolio) RemoveItem(symbol string) {
	for i, item := range p.Items {
		if item.Symbol == symbol {
			p.Items = append(p.Items[:i], p.Items[i+1:]...)
			return
		}
	}
}

// Recalculate rederives the portfolio aggregates from cash and items.
// Invariant: TotalValue == CashBalance + sum(item.TotalValue).
func (p *Portfolio) Recalculate() {
	total := p.CashBalance
	pnl := decimal.Zero
	cost := decimal.Zero

	for _, item := range p.Items {
		total = total.Add(item.TotalValue)
		pnl = pnl.Add(item.ProfitLoss)
		cost = cost.Add(item.AverageBuyPrice.Mul(item.Quantity))
	}

	p.TotalValue = total
	p.TotalProfitLoss = pnl
	if cost.IsPositive() {
		p.TotalProfitLossPct = pnl.Div(cost).Mul(decimal.NewFromInt(100)).Round(2)
	} else {
		p.TotalProfitLossPct = decimal.Zero
	}
	p.UpdatedAt = time.Now()
}

// MarkToPrice refreshes the item's cached valuation fields at the given price
func (i *PortfolioItem) MarkToPrice(price decimal.Decimal) {
	i.CurrentPrice = price
	i.TotalValue = i.Quantity.Mul(price)
	i.ProfitLoss = price.Sub(i.AverageBuyPrice).Mul(i.Quantity)
	if i.AverageBuyPrice.IsPositive() {
		i.ProfitLossPct = price.Div(i.AverageBuyPrice).
			Sub(decimal.NewFromInt(1)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	} else {
		i.ProfitLossPct = decimal.Zero
	}
	i.UpdatedAt = time.Now()
}

// BlendBuy folds an additional purchase into the position: quantity grows
// by qty and the average buy price becomes the quantity-weighted blend of
// the old cost basis and the new purchase.
func (i *PortfolioItem) BlendBuy(qty, price decimal.Decimal) {
	oldCost := i.AverageBuyPrice.Mul(i.Quantity)
	newCost := price.Mul(qty)
	newQty := i.Quantity.Add(qty)

	i.AverageBuyPrice = oldCost.Add(newCost).Div(newQty)
	i.Quantity = newQty
	i.MarkToPrice(price)
}
