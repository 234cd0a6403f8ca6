package portfolio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	apperrors "github.com/papertrade-service/papertrade_service/pkg/errors"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
	"github.com/papertrade-service/papertrade_service/pkg/metrics"
)

// Repository persists portfolios
type Repository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.Portfolio, error)
	Create(ctx context.Context, portfolio *entities.Portfolio) error
	Save(ctx context.Context, portfolio *entities.Portfolio) error
}

// OrderHistory provides the fill history used for stats aggregation
type OrderHistory interface {
	ListFilledByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Order, error)
}

// QuoteSource provides live instrument prices
type QuoteSource interface {
	GetBySymbol(ctx context.Context, symbol string) (*entities.Instrument, error)
}

// Service owns portfolio reads: lazy creation, valuation refresh and
// performance stats. All mutation of positions happens in the trading
// engine; this service only revalues what it finds.
type Service struct {
	portfolios   Repository
	orders       OrderHistory
	quotes       QuoteSource
	startingCash decimal.Decimal
	logger       *logger.Logger
}

// NewService creates the portfolio service
func NewService(portfolios Repository, orders OrderHistory, quotes QuoteSource, startingCash decimal.Decimal, log *logger.Logger) *Service {
	return &Service{
		portfolios:   portfolios,
		orders:       orders,
		quotes:       quotes,
		startingCash: startingCash,
		logger:       log,
	}
}

// GetPortfolio returns the user's portfolio revalued at current prices,
// creating it with the starting cash balance on first access. Revaluation
// is idempotent: repeated calls without price movement return identical
// numbers.
func (s *Service) GetPortfolio(ctx context.Context, userID uuid.UUID) (*entities.Portfolio, error) {
	portfolio, err := s.portfolios.GetByUserID(ctx, userID)
	if err != nil {
		if !apperrors.IsCode(err, apperrors.ErrCodePortfolioNotFound) {
			return nil, err
		}
		portfolio, err = s.createPortfolio(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	s.refreshValuation(ctx, portfolio)
	return portfolio, nil
}

// GetItems returns the revalued positions only
func (s *Service) GetItems(ctx context.Context, userID uuid.UUID) ([]*entities.PortfolioItem, error) {
	portfolio, err := s.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	return portfolio.Items, nil
}

// GetStats aggregates trading performance from the fill history and the
// current valuation. Realized P&L is cash flow based: everything returned
// by sells minus everything spent on buys.
func (s *Service) GetStats(ctx context.Context, userID uuid.UUID) (*entities.PortfolioStats, error) {
	portfolio, err := s.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}

	fills, err := s.orders.ListFilledByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fill history: %w", err)
	}

	stats := &entities.PortfolioStats{
		TotalValue:  portfolio.TotalValue,
		CashBalance: portfolio.CashBalance,
		AssetsValue: portfolio.TotalValue.Sub(portfolio.CashBalance),
		TotalOrders: len(fills),
	}

	for _, fill := range fills {
		switch fill.Side {
		case entities.OrderSideBuy:
			stats.BuyOrders++
			stats.TotalInvested = stats.TotalInvested.Add(fill.TotalCost)
		case entities.OrderSideSell:
			stats.SellOrders++
			stats.TotalReturned = stats.TotalReturned.Add(fill.TotalCost)
		}
	}

	unrealized := decimal.Zero
	for _, item := range portfolio.Items {
		unrealized = unrealized.Add(item.ProfitLoss)
	}

	stats.RealizedProfitLoss = stats.TotalReturned.Sub(stats.TotalInvested)
	stats.UnrealizedProfitLoss = unrealized
	stats.TotalProfitLoss = stats.RealizedProfitLoss.Add(stats.UnrealizedProfitLoss)

	if stats.TotalInvested.IsPositive() {
		stats.ProfitLossPct = stats.TotalProfitLoss.
			Div(stats.TotalInvested).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	return stats, nil
}

func (s *Service) createPortfolio(ctx context.Context, userID uuid.UUID) (*entities.Portfolio, error) {
	portfolio := entities.NewPortfolio(userID, s.startingCash)
	if err := s.portfolios.Create(ctx, portfolio); err != nil {
		// A concurrent request may have created it first.
		if apperrors.IsCode(err, apperrors.ErrCodeDuplicateEntry) {
			return s.portfolios.GetByUserID(ctx, userID)
		}
		return nil, err
	}
	s.logger.CtxInfo(ctx, "Portfolio created",
		"user_id", userID, "starting_cash", s.startingCash)
	return portfolio, nil
}

// refreshValuation marks every position to its live price and rederives
// the aggregates. Persisting the refreshed snapshot is best effort; a
// failed save never fails the read.
func (s *Service) refreshValuation(ctx context.Context, portfolio *entities.Portfolio) {
	for _, item := range portfolio.Items {
		instrument, err := s.quotes.GetBySymbol(ctx, item.Symbol)
		if err != nil {
			// Stale prices are acceptable; keep the cached valuation.
			s.logger.CtxWarn(ctx, "Price lookup failed during valuation",
				"symbol", item.Symbol, "error", err)
			continue
		}
		item.MarkToPrice(instrument.CurrentPrice)
	}
	portfolio.Recalculate()
	metrics.PortfolioValuationsTotal.Inc()

	if err := s.portfolios.Save(ctx, portfolio); err != nil {
		if !apperrors.IsCode(err, apperrors.ErrCodeConflict) {
			s.logger.CtxWarn(ctx, "Failed to persist refreshed valuation",
				"portfolio_id", portfolio.ID, "error", err)
		}
	}
}
