package portfolio

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	apperrors "github.com/papertrade-service/papertrade_service/pkg/errors"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.Portfolio, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Portfolio), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, portfolio *entities.Portfolio) error {
	args := m.Called(ctx, portfolio)
	return args.Error(0)
}

func (m *MockRepository) Save(ctx context.Context, portfolio *entities.Portfolio) error {
	args := m.Called(ctx, portfolio)
	return args.Error(0)
}

type MockOrderHistory struct {
	mock.Mock
}

func (m *MockOrderHistory) ListFilledByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Order), args.Error(1)
}

type MockQuoteSource struct {
	mock.Mock
}

func (m *MockQuoteSource) GetBySymbol(ctx context.Context, symbol string) (*entities.Instrument, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Instrument), args.Error(1)
}

type portfolioFixture struct {
	repo    *MockRepository
	orders  *MockOrderHistory
	quotes  *MockQuoteSource
	service *Service
}

func newPortfolioFixture() *portfolioFixture {
	f := &portfolioFixture{
		repo:   new(MockRepository),
		orders: new(MockOrderHistory),
		quotes: new(MockQuoteSource),
	}
	f.service = NewService(f.repo, f.orders, f.quotes,
		decimal.NewFromInt(10000), logger.New("error", "development"))
	return f
}

func quoteAt(symbol string, price int64) *entities.Instrument {
	return &entities.Instrument{
		ID:           uuid.New(),
		Symbol:       symbol,
		Kind:         entities.InstrumentKindStock,
		CurrentPrice: decimal.NewFromInt(price),
	}
}

func TestGetPortfolio_LazyCreation(t *testing.T) {
	f := newPortfolioFixture()
	userID := uuid.New()

	f.repo.On("GetByUserID", mock.Anything, userID).Return(nil, apperrors.PortfolioNotFound())
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	portfolio, err := f.service.GetPortfolio(context.Background(), userID)

	assert.NoError(t, err)
	assert.Equal(t, userID, portfolio.UserID)
	assert.True(t, portfolio.CashBalance.Equal(decimal.NewFromInt(10000)))
	assert.True(t, portfolio.TotalValue.Equal(decimal.NewFromInt(10000)))
	assert.Empty(t, portfolio.Items)
	f.repo.AssertCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetPortfolio_LazyCreationRace(t *testing.T) {
	f := newPortfolioFixture()
	userID := uuid.New()
	existing := entities.NewPortfolio(userID, decimal.NewFromInt(10000))

	f.repo.On("GetByUserID", mock.Anything, userID).Return(nil, apperrors.PortfolioNotFound()).Once()
	f.repo.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.New(apperrors.ErrCodeDuplicateEntry, "portfolio already exists for user"))
	f.repo.On("GetByUserID", mock.Anything, userID).Return(existing, nil).Once()
	f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	portfolio, err := f.service.GetPortfolio(context.Background(), userID)

	assert.NoError(t, err)
	assert.Equal(t, existing.ID, portfolio.ID)
}

func TestGetPortfolio_ValuationAtCurrentPrices(t *testing.T) {
	f := newPortfolioFixture()
	userID := uuid.New()
	portfolio := entities.NewPortfolio(userID, decimal.Zero)
	portfolio.AddItem(&entities.PortfolioItem{
		ID:              uuid.New(),
		Symbol:          "AAPL",
		Quantity:        decimal.NewFromInt(10),
		AverageBuyPrice: decimal.NewFromInt(100),
	})

	f.repo.On("GetByUserID", mock.Anything, userID).Return(portfolio, nil)
	f.repo.On("Save", mock.Anything, portfolio).Return(nil)
	f.quotes.On("GetBySymbol", mock.Anything, "AAPL").Return(quoteAt("AAPL", 120), nil)

	got, err := f.service.GetPortfolio(context.Background(), userID)

	assert.NoError(t, err)
	assert.True(t, got.TotalValue.Equal(decimal.NewFromInt(1200)))
	assert.True(t, got.TotalProfitLoss.Equal(decimal.NewFromInt(200)))
	assert.True(t, got.TotalProfitLossPct.Equal(decimal.NewFromInt(20)))

	item := got.Item("AAPL")
	assert.True(t, item.CurrentPrice.Equal(decimal.NewFromInt(120)))
	assert.True(t, item.ProfitLoss.Equal(decimal.NewFromInt(200)))
}

func TestGetPortfolio_ValuationIsIdempotent(t *testing.T) {
	f := newPortfolioFixture()
	userID := uuid.New()
	portfolio := entities.NewPortfolio(userID, decimal.NewFromInt(500))
	portfolio.AddItem(&entities.PortfolioItem{
		ID:              uuid.New(),
		Symbol:          "AAPL",
		Quantity:        decimal.NewFromInt(10),
		AverageBuyPrice: decimal.NewFromInt(100),
	})

	f.repo.On("GetByUserID", mock.Anything, userID).Return(portfolio, nil)
	f.repo.On("Save", mock.Anything, portfolio).Return(nil)
	f.quotes.On("GetBySymbol", mock.Anything, "AAPL").Return(quoteAt("AAPL", 120), nil)

	first, err := f.service.GetPortfolio(context.Background(), userID)
	assert.NoError(t, err)
	firstValue := first.TotalValue

	second, err := f.service.GetPortfolio(context.Background(), userID)
	assert.NoError(t, err)

	assert.True(t, second.TotalValue.Equal(firstValue),
		"revaluation without price movement must not change the total")
	assert.True(t, second.CashBalance.Equal(decimal.NewFromInt(500)))
}

func TestGetPortfolio_QuoteFailureKeepsCachedValuation(t *testing.T) {
	f := newPortfolioFixture()
	userID := uuid.New()
	portfolio := entities.NewPortfolio(userID, decimal.Zero)
	item := &entities.PortfolioItem{
		ID:              uuid.New(),
		Symbol:          "AAPL",
		Quantity:        decimal.NewFromInt(10),
		AverageBuyPrice: decimal.NewFromInt(100),
	}
	item.MarkToPrice(decimal.NewFromInt(110))
	portfolio.AddItem(item)

	f.repo.On("GetByUserID", mock.Anything, userID).Return(portfolio, nil)
	f.repo.On("Save", mock.Anything, portfolio).Return(nil)
	f.quotes.On("GetBySymbol", mock.Anything, "AAPL").
		Return(nil, apperrors.Persistence("database unavailable"))

	got, err := f.service.GetPortfolio(context.Background(), userID)

	assert.NoError(t, err)
	assert.True(t, got.Item("AAPL").CurrentPrice.Equal(decimal.NewFromInt(110)),
		"cached price survives a failed quote lookup")
	assert.True(t, got.TotalValue.Equal(decimal.NewFromInt(1100)))
}

func TestGetStats(t *testing.T) {
	f := newPortfolioFixture()
	userID := uuid.New()
	portfolio := entities.NewPortfolio(userID, decimal.NewFromInt(9600))
	portfolio.AddItem(&entities.PortfolioItem{
		ID:              uuid.New(),
		Symbol:          "AAPL",
		Quantity:        decimal.NewFromInt(5),
		AverageBuyPrice: decimal.NewFromInt(100),
	})

	fills := []*entities.Order{
		{Side: entities.OrderSideBuy, Status: entities.OrderStatusFilled,
			TotalCost: decimal.NewFromInt(1000)},
		{Side: entities.OrderSideSell, Status: entities.OrderStatusFilled,
			TotalCost: decimal.NewFromInt(600)},
	}

	f.repo.On("GetByUserID", mock.Anything, userID).Return(portfolio, nil)
	f.repo.On("Save", mock.Anything, portfolio).Return(nil)
	f.quotes.On("GetBySymbol", mock.Anything, "AAPL").Return(quoteAt("AAPL", 120), nil)
	f.orders.On("ListFilledByUser", mock.Anything, userID).Return(fills, nil)

	stats, err := f.service.GetStats(context.Background(), userID)

	assert.NoError(t, err)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, 1, stats.BuyOrders)
	assert.Equal(t, 1, stats.SellOrders)
	assert.True(t, stats.TotalInvested.Equal(decimal.NewFromInt(1000)))
	assert.True(t, stats.TotalReturned.Equal(decimal.NewFromInt(600)))
	// Cash flow: 600 returned minus 1000 spent.
	assert.True(t, stats.RealizedProfitLoss.Equal(decimal.NewFromInt(-400)))
	// Remaining 5 shares bought at 100, now 120.
	assert.True(t, stats.UnrealizedProfitLoss.Equal(decimal.NewFromInt(100)))
	assert.True(t, stats.TotalProfitLoss.Equal(decimal.NewFromInt(-300)))
	assert.True(t, stats.ProfitLossPct.Equal(decimal.NewFromInt(-30)))
	assert.True(t, stats.AssetsValue.Equal(decimal.NewFromInt(600)))
}
