package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	apperrors "github.com/papertrade-service/papertrade_service/pkg/errors"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
	"github.com/papertrade-service/papertrade_service/pkg/metrics"
	"github.com/papertrade-service/papertrade_service/pkg/pagination"
	"github.com/papertrade-service/papertrade_service/pkg/retry"
)

// InstrumentReader provides read access to instruments and their live prices
type InstrumentReader interface {
	GetBySymbol(ctx context.Context, symbol string) (*entities.Instrument, error)
}

// PortfolioRepository persists portfolios with optimistic version checking
type PortfolioRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.Portfolio, error)
	// SaveWithOrder persists the portfolio and the order atomically in a
	// single transaction. Returns a CONFLICT error when the stored
	// portfolio version no longer matches the loaded one.
	SaveWithOrder(ctx context.Context, portfolio *entities.Portfolio, order *entities.Order) error
}

// OrderRepository persists orders
type OrderRepository interface {
	Create(ctx context.Context, order *entities.Order) error
	Update(ctx context.Context, order *entities.Order) error
	GetByIDAndUser(ctx context.Context, orderID, userID uuid.UUID) (*entities.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status entities.OrderStatus, page pagination.Params) ([]*entities.Order, int64, error)
}

// Sink receives order and portfolio change notifications. Delivery is
// best-effort and must never block order processing.
type Sink interface {
	OrderUpdated(userID uuid.UUID, order *entities.Order)
	PortfolioUpdated(userID uuid.UUID, portfolio *entities.Portfolio)
}

// Service is the order intake and execution engine. Market orders execute
// immediately at the live price; limit and stop orders are accepted into
// the book as pending and leave it only through cancellation.
type Service struct {
	instruments InstrumentReader
	portfolios  PortfolioRepository
	orders      OrderRepository
	validator   *Validator
	sink        Sink
	locks       *userLocks
	retryCfg    retry.Config
	logger      *logger.Logger
}

// NewService creates the trading service
func NewService(
	instruments InstrumentReader,
	portfolios PortfolioRepository,
	orders OrderRepository,
	sink Sink,
	log *logger.Logger,
) *Service {
	return &Service{
		instruments: instruments,
		portfolios:  portfolios,
		orders:      orders,
		validator:   NewValidator(),
		sink:        sink,
		locks:       newUserLocks(),
		retryCfg:    retry.DefaultConfig(),
		logger:      log,
	}
}

// PlaceOrder validates and persists a new order for the user. Market
// orders are executed before returning; the returned order carries the
// final status, including rejected when a recheck fails at execution
// time. Limit and stop orders return in pending status.
func (s *Service) PlaceOrder(ctx context.Context, userID uuid.UUID, req *entities.PlaceOrderRequest) (*entities.Order, error) {
	symbol := entities.CanonicalSymbol(req.Symbol)

	// Serialize all order processing per user so that concurrent
	// submissions validate against settled balances.
	unlock := s.locks.lock(userID)
	defer unlock()

	instrument, err := s.fetchInstrument(ctx, symbol)
	if err != nil {
		return nil, err
	}

	portfolio, err := s.fetchPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(req, instrument, portfolio); err != nil {
		return nil, err
	}

	order := s.buildOrder(userID, symbol, instrument, req)
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	metrics.OrdersPlacedTotal.WithLabelValues(string(order.Kind), string(order.Side)).Inc()

	if order.Kind != entities.OrderKindMarket {
		s.logger.CtxInfo(ctx, "Order accepted",
			"order_id", order.ID, "user_id", userID, "symbol", symbol,
			"kind", order.Kind, "side", order.Side, "status", order.Status)
		s.notifyOrder(userID, order)
		return order, nil
	}

	portfolio, err = s.executeMarketOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	s.notifyOrder(userID, order)
	if order.Status == entities.OrderStatusFilled && portfolio != nil {
		s.notifyPortfolio(userID, portfolio)
	}
	return order, nil
}

// CancelOrder transitions a pending order to cancelled. Terminal orders
// cannot be cancelled.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*entities.Order, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	order, err := s.orders.GetByIDAndUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	if order.Status != entities.OrderStatusPending {
		return nil, apperrors.New(apperrors.ErrCodeOrderNotCancellable,
			fmt.Sprintf("order in status %s cannot be cancelled", order.Status))
	}

	order.Cancel()
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	s.logger.CtxInfo(ctx, "Order cancelled", "order_id", order.ID, "user_id", userID)
	s.notifyOrder(userID, order)
	return order, nil
}

// GetOrder returns one of the user's orders
func (s *Service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*entities.Order, error) {
	return s.orders.GetByIDAndUser(ctx, orderID, userID)
}

// ListOrders returns the user's orders, optionally filtered by status,
// newest first
func (s *Service) ListOrders(ctx context.Context, userID uuid.UUID, status entities.OrderStatus, page pagination.Params) ([]*entities.Order, int64, error) {
	return s.orders.ListByUser(ctx, userID, status, page)
}

// buildOrder constructs the pending order record. For market orders the
// stored price is the reference market price at creation time; the actual
// execution price is read again at fill time.
func (s *Service) buildOrder(userID uuid.UUID, symbol string, instrument *entities.Instrument, req *entities.PlaceOrderRequest) *entities.Order {
	now := time.Now()
	order := &entities.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Symbol:    symbol,
		Kind:      req.Kind,
		Side:      req.Side,
		Quantity:  req.Quantity,
		Status:    entities.OrderStatusPending,
		StopPrice: req.StopPrice,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Kind == entities.OrderKindMarket {
		order.Price = instrument.CurrentPrice
	} else {
		order.Price = *req.Price
	}
	return order
}

// executeMarketOrder fills the order at the live price, rechecking funds
// and holdings against a freshly loaded portfolio. Version conflicts from
// concurrent portfolio writers are retried with fresh state; rechecks that
// fail reject the order rather than returning an error. Returns the
// updated portfolio when the order filled.
func (s *Service) executeMarketOrder(ctx context.Context, order *entities.Order) (*entities.Portfolio, error) {
	start := time.Now()
	var portfolio *entities.Portfolio

	execErr := retry.WithExponentialBackoff(ctx, s.retryCfg, func() error {
		var err error
		portfolio, err = s.executeAttempt(ctx, order)
		return err
	}, func(err error) bool {
		return apperrors.IsCode(err, apperrors.ErrCodeConflict)
	})

	if execErr != nil {
		if apperrors.IsCode(execErr, apperrors.ErrCodeConflict) {
			// Retries exhausted. The order stays in the book as
			// rejected rather than silently pending.
			s.logger.CtxWarn(ctx, "Order rejected after conflict retries",
				"order_id", order.ID, "symbol", order.Symbol)
			order.Reject()
			if err := s.orders.Update(ctx, order); err != nil {
				return nil, fmt.Errorf("failed to reject order: %w", err)
			}
			s.recordExecution(order, start)
			return nil, nil
		}
		return nil, execErr
	}

	s.recordExecution(order, start)
	return portfolio, nil
}

// executeAttempt performs a single execution attempt against fresh state
func (s *Service) executeAttempt(ctx context.Context, order *entities.Order) (*entities.Portfolio, error) {
	instrument, err := s.fetchInstrument(ctx, order.Symbol)
	if err != nil {
		return nil, err
	}
	if instrument == nil {
		return nil, s.rejectOrder(ctx, order, "instrument disappeared before execution")
	}

	portfolio, err := s.fetchPortfolio(ctx, order.UserID)
	if err != nil {
		return nil, err
	}
	if portfolio == nil {
		return nil, s.rejectOrder(ctx, order, "portfolio disappeared before execution")
	}

	price := instrument.CurrentPrice
	totalCost := price.Mul(order.Quantity)

	switch order.Side {
	case entities.OrderSideBuy:
		if portfolio.CashBalance.LessThan(totalCost) {
			return nil, s.rejectOrder(ctx, order, "insufficient funds at execution")
		}
		s.applyBuy(portfolio, order, price, totalCost)
	case entities.OrderSideSell:
		item := portfolio.Item(order.Symbol)
		if item == nil || item.Quantity.LessThan(order.Quantity) {
			return nil, s.rejectOrder(ctx, order, "insufficient holdings at execution")
		}
		s.applySell(portfolio, order, item, price, totalCost)
	}

	portfolio.Recalculate()
	order.Fill(price, totalCost)

	if err := s.portfolios.SaveWithOrder(ctx, portfolio, order); err != nil {
		// Undo the in-memory fill so a retry starts from pending.
		order.Status = entities.OrderStatusPending
		order.FilledQuantity = decimal.Zero
		order.AverageFilledPrice = decimal.Zero
		order.TotalCost = decimal.Zero
		return nil, err
	}

	s.logger.CtxInfo(ctx, "Order filled",
		"order_id", order.ID, "user_id", order.UserID, "symbol", order.Symbol,
		"side", order.Side, "quantity", order.Quantity, "price", price,
		"total_cost", totalCost)
	return portfolio, nil
}

// applyBuy debits cash and folds the purchase into the position. A new
// position starts at the execution price; an existing one blends to the
// quantity-weighted average.
func (s *Service) applyBuy(portfolio *entities.Portfolio, order *entities.Order, price, totalCost decimal.Decimal) {
	portfolio.CashBalance = portfolio.CashBalance.Sub(totalCost)

	if item := portfolio.Item(order.Symbol); item != nil {
		item.BlendBuy(order.Quantity, price)
		return
	}

	now := time.Now()
	item := &entities.PortfolioItem{
		ID:              uuid.New(),
		Symbol:          order.Symbol,
		Quantity:        order.Quantity,
		AverageBuyPrice: price,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	item.MarkToPrice(price)
	portfolio.AddItem(item)
}

// applySell credits the proceeds and shrinks the position. The average
// buy price is untouched; a position sold down to zero is removed.
func (s *Service) applySell(portfolio *entities.Portfolio, order *entities.Order, item *entities.PortfolioItem, price, proceeds decimal.Decimal) {
	portfolio.CashBalance = portfolio.CashBalance.Add(proceeds)

	item.Quantity = item.Quantity.Sub(order.Quantity)
	if item.Quantity.IsZero() {
		portfolio.RemoveItem(order.Symbol)
		return
	}
	item.MarkToPrice(price)
}

// rejectOrder marks the order rejected and persists the transition. The
// rejection itself is a successful outcome of order processing, so the
// returned error is nil unless persistence fails.
func (s *Service) rejectOrder(ctx context.Context, order *entities.Order, reason string) error {
	s.logger.CtxWarn(ctx, "Order rejected",
		"order_id", order.ID, "user_id", order.UserID, "symbol", order.Symbol,
		"reason", reason)
	order.Reject()
	if err := s.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("failed to reject order: %w", err)
	}
	return nil
}

func (s *Service) recordExecution(order *entities.Order, start time.Time) {
	metrics.OrdersExecutedTotal.WithLabelValues(string(order.Side), string(order.Status)).Inc()
	metrics.OrderExecutionDuration.Observe(time.Since(start).Seconds())
	if order.Status == entities.OrderStatusFilled {
		cost, _ := order.TotalCost.Float64()
		metrics.OrderNotionalAmount.WithLabelValues(string(order.Side)).Observe(cost)
	}
}

// fetchInstrument loads an instrument, mapping not-found to a nil result
func (s *Service) fetchInstrument(ctx context.Context, symbol string) (*entities.Instrument, error) {
	instrument, err := s.instruments.GetBySymbol(ctx, symbol)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeInstrumentNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load instrument %s: %w", symbol, err)
	}
	return instrument, nil
}

// fetchPortfolio loads the user's portfolio, mapping not-found to a nil result
func (s *Service) fetchPortfolio(ctx context.Context, userID uuid.UUID) (*entities.Portfolio, error) {
	portfolio, err := s.portfolios.GetByUserID(ctx, userID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodePortfolioNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	return portfolio, nil
}

func (s *Service) notifyOrder(userID uuid.UUID, order *entities.Order) {
	if s.sink != nil {
		s.sink.OrderUpdated(userID, order)
	}
}

func (s *Service) notifyPortfolio(userID uuid.UUID, portfolio *entities.Portfolio) {
	if s.sink != nil {
		s.sink.PortfolioUpdated(userID, portfolio)
	}
}
