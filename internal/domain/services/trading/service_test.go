package trading

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
	"github.com/papertrade-service/papertrade_service/pkg/pagination"
)

// Mock implementations

type MockInstrumentReader struct {
	mock.Mock
}

func (m *MockInstrumentReader) GetBySymbol(ctx context.Context, symbol string) (*entities.Instrument, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Instrument), args.Error(1)
}

type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.Portfolio, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) SaveWithOrder(ctx context.Context, portfolio *entities.Portfolio, order *entities.Order) error {
	args := m.Called(ctx, portfolio, order)
	return args.Error(0)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *entities.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *entities.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByIDAndUser(ctx context.Context, orderID, userID uuid.UUID) (*entities.Order, error) {
	args := m.Called(ctx, orderID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, status entities.OrderStatus, page pagination.Params) ([]*entities.Order, int64, error) {
	args := m.Called(ctx, userID, status, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Order), args.Get(1).(int64), args.Error(2)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) OrderUpdated(userID uuid.UUID, order *entities.Order) {
	m.Called(userID, order)
}

func (m *MockSink) PortfolioUpdated(userID uuid.UUID, portfolio *entities.Portfolio) {
	m.Called(userID, portfolio)
}

type tradingFixture struct {
	instruments *MockInstrumentReader
	portfolios  *MockPortfolioRepository
	orders      *MockOrderRepository
	sink        *MockSink
	service     *Service
}

func newTradingFixture() *tradingFixture {
	f := &tradingFixture{
		instruments: new(MockInstrumentReader),
		portfolios:  new(MockPortfolioRepository),
		orders:      new(MockOrderRepository),
		sink:        new(MockSink),
	}
	f.service = NewService(f.instruments, f.portfolios, f.orders, f.sink, logger.New("error", "development"))
	return f
}

func (f *tradingFixture) expectNotifications() {
	f.sink.On("OrderUpdated", mock.Anything, mock.Anything).Return()
	f.sink.On("PortfolioUpdated", mock.Anything, mock.Anything).Return()
}

func TestPlaceOrder_MarketBuyOpensPosition(t *testing.T) {
	f := newTradingFixture()
	userID := uuid.New()
	instrument := testInstrument("AAPL", 150)
	portfolio := entities.NewPortfolio(userID, decimal.NewFromInt(10000))

	f.instruments.On("GetBySymbol", mock.Anything, "AAPL").Return(instrument, nil)
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(portfolio, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.portfolios.On("SaveWithOrder", mock.Anything, portfolio, mock.Anything).Return(nil)
	f.expectNotifications()

	order, err := f.service.PlaceOrder(context.Background(), userID, marketBuy("AAPL", 10))

	assert.NoError(t, err)
	assert.Equal(t, entities.OrderStatusFilled, order.Status)
	assert.True(t, order.AverageFilledPrice.Equal(decimal.NewFromInt(150)))
	assert.True(t, order.FilledQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, order.TotalCost.Equal(decimal.NewFromInt(1500)))

	assert.True(t, portfolio.CashBalance.Equal(decimal.NewFromInt(8500)))
	item := portfolio.Item("AAPL")
	assert.NotNil(t, item)
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, item.AverageBuyPrice.Equal(decimal.NewFromInt(150)))
	assert.True(t, portfolio.TotalValue.Equal(decimal.NewFromInt(10000)))

	f.portfolios.AssertExpectations(t)
	f.sink.AssertCalled(t, "OrderUpdated", userID, order)
	f.sink.AssertCalled(t, "PortfolioUpdated", userID, portfolio)
}

func TestPlaceOrder_BuyBlendsAverage(t *testing.T) {
	f := newTradingFixture()
	userID := uuid.New()
	portfolio := entities.NewPortfolio(userID, decimal.NewFromInt(10000))
	portfolio.AddItem(&entities.PortfolioItem{
		ID:              uuid.New(),
		Symbol:          "AAPL",
		Quantity:        decimal.NewFromInt(10),
		AverageBuyPrice: decimal.NewFromInt(100),
	})

	f.instruments.On("GetBySymbol", mock.Anything, "AAPL").Return(testInstrument("AAPL", 200), nil)
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(portfolio, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.portfolios.On("SaveWithOrder", mock.Anything, portfolio, mock.Anything).Return(nil)
	f.expectNotifications()

	order, err := f.service.PlaceOrder(context.Background(), userID, marketBuy("AAPL", 10))

	assert.NoError(t, err)
	assert.Equal(t, entities.OrderStatusFilled, order.Status)

	item := portfolio.Item("AAPL")
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(20)))
	assert.True(t, item.AverageBuyPrice.Equal(decimal.NewFromInt(150)),
		"10@100 blended with 10@200 should average to 150, got %s", item.AverageBuyPrice)
}

func TestPlaceOrder_SellPreservesAverage(t *testing.T) {
	f := newTradingFixture()
	userID := uuid.New()
	portfolio := entities.NewPortfolio(userID, decimal.NewFromInt(1000))
	portfolio.AddItem(&entities.PortfolioItem{
		ID:              uuid.New(),
		Symbol:          "AAPL",
		Quantity:        decimal.NewFromInt(10),
		AverageBuyPrice: decimal.NewFromInt(100),
	})

	f.instruments.On("GetBySymbol", mock.Anything, "AAPL").Return(testInstrument("AAPL", 120), nil)
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(portfolio, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.portfolios.On("SaveWithOrder", mock.Anything, portfolio, mock.Anything).Return(nil)
	f.expectNotifications()

	req := marketBuy("AAPL", 4)
	req.Side = entities.OrderSideSell

	order, err := f.service.PlaceOrder(context.Background(), userID, req)

	assert.NoError(t, err)
	assert.Equal(t, entities.OrderStatusFilled, order.Status)
	assert.True(t, portfolio.CashBalance.Equal(decimal.NewFromInt(1480)))

	item := portfolio.Item("AAPL")
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(6)))
	assert.True(t, item.AverageBuyPrice.Equal(decimal.NewFromInt(100)),
		"selling must not change the average buy price")
}

func TestPlaceOrder_SellFullPositionRemovesItem(t *testing.T) {
	f := newTradingFixture()
	userID := uuid.New()
	portfolio := entities.NewPortfolio(userID, decimal.NewFromInt(1000))
	portfolio.AddItem(&entities.PortfolioItem{
		ID:              uuid.New(),
		Symbol:          "AAPL",
		Quantity:        decimal.NewFromInt(10),
		AverageBuyPrice: decimal.NewFromInt(100),
	})

	f.instruments.On("GetBySymbol", mock.Anything, "AAPL").Return(testInstrument("AAPL", 120), nil)
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(portfolio, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.portfolios.On("SaveWithOrder", mock.Anything, portfolio, mock.Anything).Return(nil)
	f.expectNotifications()

	req := marketBuy("AAPL", 10)
	req.Side = entities.OrderSideSell

	order, err := f.service.PlaceOrder(context.Background(), userID, req)

	assert.NoError(t, err)
	assert.Equal(t, entities.OrderStatusFilled, order.Status)
	assert.Nil(t, portfolio.Item("AAPL"), "fully sold position must be removed")
	assert.True(t, portfolio.CashBalance.Equal(decimal.NewFromInt(2200)))
	assert.True(t, portfolio.TotalValue.Equal(decimal.NewFromInt(2200)))
}

func TestPlaceOrder_ValidationFailureCreatesNothing(t *testing.T) {
	f := newTradingFixture()
	userID := uuid.New()
	portfolio := entities.NewPortfolio(userID, decimal.NewFromInt(50))

	f.instruments.On("GetBySymbol", mock.Anything, "AAPL").Return(testInstrument("AAPL", 100), nil)
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(portfolio, nil)

	_, err := f.service.PlaceOrder(context.Background(), userID, marketBuy("AAPL", 1))

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInsufficientFunds))
	assert.True(t, portfolio.CashBalance.Equal(decimal.NewFromInt(50)))
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.sink.AssertNotCalled(t, "OrderUpdated", mock.Anything, mock.Anything)
}

func TestPlaceOrder_UnknownInstrument(t *testing.T) {
	f := newTradingFixture()
	userID := uuid.New()

	f.instruments.On("GetBySymbol", mock.Anything, "NOPE").Return(nil, apperrors.InstrumentNotFound("NOPE"))
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(entities.NewPortfolio(userID, decimal.NewFromInt(10000)), nil)

	_, err := f.service.PlaceOrder(context.Background(), userID, marketBuy("NOPE", 1))

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInstrumentNotFound))
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrder_ExecutionRecheckRejects(t *testing.T) {
	f := newTradingFixture()
	userID := uuid.New()
	// Funds pass validation but are gone by execution time.
	rich := entities.NewPortfolio(userID, decimal.NewFromInt(10000))
	poor := entities.NewPortfolio(userID, decimal.NewFromInt(10))

	f.instruments.On("GetBySymbol", mock.Anything, "AAPL").Return(testInstrument("AAPL", 100), nil)
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(rich, nil).Once()
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(poor, nil).Once()
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.expectNotifications()

	order, err := f.service.PlaceOrder(context.Background(), userID, marketBuy("AAPL", 10))

	assert.NoError(t, err, "a rejected order is a successful processing outcome")
	assert.Equal(t, entities.OrderStatusRejected, order.Status)
	assert.True(t, poor.CashBalance.Equal(decimal.NewFromInt(10)), "rejection must not touch the portfolio")
	f.portfolios.AssertNotCalled(t, "SaveWithOrder", mock.Anything, mock.Anything, mock.Anything)
	f.sink.AssertCalled(t, "OrderUpdated", userID, order)
	f.sink.AssertNotCalled(t, "PortfolioUpdated", mock.Anything, mock.Anything)
}

func TestPlaceOrder_LimitOrderRestsPending(t *testing.T) {
	f := newTradingFixture()
	userID := uuid.New()
	portfolio := entities.NewPortfolio(userID, decimal.NewFromInt(10000))

	f.instruments.On("GetBySymbol", mock.Anything, "AAPL").Return(testInstrument("AAPL", 100), nil)
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(portfolio, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.expectNotifications()

	req := marketBuy("AAPL", 10)
	req.Kind = entities.OrderKindLimit
	req.Price = decPtr(95)

	order, err := f.service.PlaceOrder(context.Background(), userID, req)

	assert.NoError(t, err)
	assert.Equal(t, entities.OrderStatusPending, order.Status)
	assert.True(t, order.Price.Equal(decimal.NewFromInt(95)))
	assert.True(t, portfolio.CashBalance.Equal(decimal.NewFromInt(10000)), "pending orders reserve no funds")
	f.portfolios.AssertNotCalled(t, "SaveWithOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_RetriesOnVersionConflict(t *testing.T) {
	f := newTradingFixture()
	userID := uuid.New()
	first := entities.NewPortfolio(userID, decimal.NewFromInt(10000))
	second := entities.NewPortfolio(userID, decimal.NewFromInt(10000))
	third := entities.NewPortfolio(userID, decimal.NewFromInt(9000))

	f.instruments.On("GetBySymbol", mock.Anything, "AAPL").Return(testInstrument("AAPL", 100), nil)
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(first, nil).Once()
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(second, nil).Once()
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(third, nil).Once()
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.portfolios.On("SaveWithOrder", mock.Anything, second, mock.Anything).
		Return(apperrors.Conflict("portfolio modified concurrently")).Once()
	f.portfolios.On("SaveWithOrder", mock.Anything, third, mock.Anything).Return(nil).Once()
	f.expectNotifications()

	order, err := f.service.PlaceOrder(context.Background(), userID, marketBuy("AAPL", 10))

	assert.NoError(t, err)
	assert.Equal(t, entities.OrderStatusFilled, order.Status)
	assert.True(t, third.CashBalance.Equal(decimal.NewFromInt(8000)),
		"fill must apply to the freshly loaded portfolio")
	f.portfolios.AssertExpectations(t)
}

func TestPlaceOrder_ConflictRetriesExhaustedRejects(t *testing.T) {
	f := newTradingFixture()
	userID := uuid.New()

	f.instruments.On("GetBySymbol", mock.Anything, "AAPL").Return(testInstrument("AAPL", 100), nil)
	f.portfolios.On("GetByUserID", mock.Anything, userID).Return(
		entities.NewPortfolio(userID, decimal.NewFromInt(10000)), nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.portfolios.On("SaveWithOrder", mock.Anything, mock.Anything, mock.Anything).
		Return(apperrors.Conflict("portfolio modified concurrently"))
	f.orders.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.expectNotifications()

	order, err := f.service.PlaceOrder(context.Background(), userID, marketBuy("AAPL", 10))

	assert.NoError(t, err)
	assert.Equal(t, entities.OrderStatusRejected, order.Status)
	f.orders.AssertCalled(t, "Update", mock.Anything, order)
}

func TestCancelOrder(t *testing.T) {
	userID := uuid.New()

	t.Run("pending order cancels", func(t *testing.T) {
		f := newTradingFixture()
		order := &entities.Order{
			ID:     uuid.New(),
			UserID: userID,
			Symbol: "AAPL",
			Status: entities.OrderStatusPending,
		}
		f.orders.On("GetByIDAndUser", mock.Anything, order.ID, userID).Return(order, nil)
		f.orders.On("Update", mock.Anything, order).Return(nil)
		f.expectNotifications()

		cancelled, err := f.service.CancelOrder(context.Background(), userID, order.ID)

		assert.NoError(t, err)
		assert.Equal(t, entities.OrderStatusCancelled, cancelled.Status)
		f.sink.AssertCalled(t, "OrderUpdated", userID, order)
	})

	t.Run("filled order is not cancellable", func(t *testing.T) {
		f := newTradingFixture()
		order := &entities.Order{
			ID:     uuid.New(),
			UserID: userID,
			Status: entities.OrderStatusFilled,
		}
		f.orders.On("GetByIDAndUser", mock.Anything, order.ID, userID).Return(order, nil)

		_, err := f.service.CancelOrder(context.Background(), userID, order.ID)

		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeOrderNotCancellable))
		assert.Equal(t, entities.OrderStatusFilled, order.Status)
		f.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newTradingFixture()
		orderID := uuid.New()
		f.orders.On("GetByIDAndUser", mock.Anything, orderID, userID).Return(nil, apperrors.OrderNotFound())

		_, err := f.service.CancelOrder(context.Background(), userID, orderID)

		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeOrderNotFound))
	})
}
