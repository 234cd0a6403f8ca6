package entities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBlendBuy(t *testing.T) {
	item := &PortfolioItem{
		Symbol:          "AAPL",
		Quantity:        decimal.NewFromInt(10),
		AverageBuyPrice: decimal.NewFromInt(100),
	}

	item.BlendBuy(decimal.NewFromInt(10), decimal.NewFromInt(200))

	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(20)))
	assert.True(t, item.AverageBuyPrice.Equal(decimal.NewFromInt(150)))
	assert.True(t, item.CurrentPrice.Equal(decimal.NewFromInt(200)))
	assert.True(t, item.TotalValue.Equal(decimal.NewFromInt(4000)))
}

func TestBlendBuy_FractionalQuantities(t *testing.T) {
	item := &PortfolioItem{
		Symbol:          "BTC",
		Quantity:        decimal.RequireFromString("0.5"),
		AverageBuyPrice: decimal.NewFromInt(60000),
	}

	item.BlendBuy(decimal.RequireFromString("0.25"), decimal.NewFromInt(66000))

	assert.True(t, item.Quantity.Equal(decimal.RequireFromString("0.75")))
	// (0.5*60000 + 0.25*66000) / 0.75 = 62000
	assert.True(t, item.AverageBuyPrice.Equal(decimal.NewFromInt(62000)))
}

func TestMarkToPrice(t *testing.T) {
	item := &PortfolioItem{
		Symbol:          "AAPL",
		Quantity:        decimal.NewFromInt(10),
		AverageBuyPrice: decimal.NewFromInt(100),
	}

	item.MarkToPrice(decimal.NewFromInt(120))

	assert.True(t, item.TotalValue.Equal(decimal.NewFromInt(1200)))
	assert.True(t, item.ProfitLoss.Equal(decimal.NewFromInt(200)))
	assert.True(t, item.ProfitLossPct.Equal(decimal.NewFromInt(20)))

	t.Run("loss side", func(t *testing.T) {
		item.MarkToPrice(decimal.NewFromInt(80))
		assert.True(t, item.ProfitLoss.Equal(decimal.NewFromInt(-200)))
		assert.True(t, item.ProfitLossPct.Equal(decimal.NewFromInt(-20)))
	})
}

func TestRecalculate(t *testing.T) {
	p := NewPortfolio(uuid.New(), decimal.NewFromInt(5000))

	a := &PortfolioItem{Symbol: "AAPL", Quantity: decimal.NewFromInt(10), AverageBuyPrice: decimal.NewFromInt(100)}
	a.MarkToPrice(decimal.NewFromInt(120))
	b := &PortfolioItem{Symbol: "MSFT", Quantity: decimal.NewFromInt(5), AverageBuyPrice: decimal.NewFromInt(400)}
	b.MarkToPrice(decimal.NewFromInt(380))
	p.AddItem(a)
	p.AddItem(b)

	p.Recalculate()

	// 5000 cash + 1200 + 1900
	assert.True(t, p.TotalValue.Equal(decimal.NewFromInt(8100)))
	// +200 - 100
	assert.True(t, p.TotalProfitLoss.Equal(decimal.NewFromInt(100)))
	// 100 / 3000 cost basis
	assert.True(t, p.TotalProfitLossPct.Equal(decimal.RequireFromString("3.33")))
}

func TestRecalculate_EmptyPortfolio(t *testing.T) {
	p := NewPortfolio(uuid.New(), decimal.NewFromInt(10000))

	p.Recalculate()

	assert.True(t, p.TotalValue.Equal(decimal.NewFromInt(10000)))
	assert.True(t, p.TotalProfitLoss.IsZero())
	assert.True(t, p.TotalProfitLossPct.IsZero())
}

func TestRemoveItem(t *testing.T) {
	p := NewPortfolio(uuid.New(), decimal.Zero)
	p.AddItem(&PortfolioItem{Symbol: "AAPL", Quantity: decimal.NewFromInt(1)})
	p.AddItem(&PortfolioItem{Symbol: "MSFT", Quantity: decimal.NewFromInt(2)})

	p.RemoveItem("AAPL")

	assert.Nil(t, p.Item("AAPL"))
	assert.NotNil(t, p.Item("MSFT"))
	assert.Len(t, p.Items, 1)

	// Removing a missing symbol is a no-op.
	p.RemoveItem("AAPL")
	assert.Len(t, p.Items, 1)
}
