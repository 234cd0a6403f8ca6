package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	apperrors "github.com/papertrade-service/papertrade_service/pkg/errors"
)

// PortfolioRepository persists portfolios and their items. Writes use an
// optimistic version column: every successful save bumps the version and a
// save against a stale version fails with a CONFLICT error.
type PortfolioRepository struct {
	db *sqlx.DB
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sqlx.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// GetByUserID returns the user's portfolio with items in insertion order
func (r *PortfolioRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.Portfolio, error) {
	var portfolio entities.Portfolio
	err := r.db.GetContext(ctx, &portfolio,
		`SELECT id, user_id, cash_balance, total_value, total_profit_loss,
			total_profit_loss_pct, version, created_at, updated_at
		 FROM portfolios WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.PortfolioNotFound()
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	items, err := r.loadItems(ctx, portfolio.ID)
	if err != nil {
		return nil, err
	}
	portfolio.Items = items
	return &portfolio, nil
}

func (r *PortfolioRepository) loadItems(ctx context.Context, portfolioID uuid.UUID) ([]*entities.PortfolioItem, error) {
	items := []*entities.PortfolioItem{}
	err := r.db.SelectContext(ctx, &items,
		`SELECT id, portfolio_id, symbol, quantity, average_buy_price,
			current_price, total_value, profit_loss, profit_loss_pct,
			created_at, updated_at
		 FROM portfolio_items WHERE portfolio_id = $1
		 ORDER BY created_at ASC, symbol ASC`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio items: %w", err)
	}
	return items, nil
}

// Create inserts a new portfolio
func (r *PortfolioRepository) Create(ctx context.Context, portfolio *entities.Portfolio) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO portfolios (id, user_id, cash_balance, total_value,
			total_profit_loss, total_profit_loss_pct, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)`,
		portfolio.ID, portfolio.UserID, portfolio.CashBalance, portfolio.TotalValue,
		portfolio.TotalProfitLoss, portfolio.TotalProfitLossPct,
		portfolio.CreatedAt, portfolio.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.New(apperrors.ErrCodeDuplicateEntry, "portfolio already exists for user")
		}
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	return nil
}

// Save persists the portfolio and its items with a version check
func (r *PortfolioRepository) Save(ctx context.Context, portfolio *entities.Portfolio) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.saveInTx(ctx, tx, portfolio); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit portfolio: %w", err)
	}
	portfolio.Version++
	return nil
}

// SaveWithOrder persists the portfolio and the order's terminal state in
// one transaction so a fill is never half-applied
func (r *PortfolioRepository) SaveWithOrder(ctx context.Context, portfolio *entities.Portfolio, order *entities.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.saveInTx(ctx, tx, portfolio); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, filled_quantity = $3,
			average_filled_price = $4, total_cost = $5, updated_at = $6
		 WHERE id = $1`,
		order.ID, order.Status, order.FilledQuantity,
		order.AverageFilledPrice, order.TotalCost, order.UpdatedAt); err != nil {
		return fmt.Errorf("failed to update order %s: %w", order.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fill: %w", err)
	}
	portfolio.Version++
	return nil
}

// saveInTx writes the portfolio row with a version guard and replaces the
// item rows. Items are few per portfolio, so replace is simpler than diffing.
func (r *PortfolioRepository) saveInTx(ctx context.Context, tx *sqlx.Tx, portfolio *entities.Portfolio) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE portfolios SET cash_balance = $2, total_value = $3,
			total_profit_loss = $4, total_profit_loss_pct = $5,
			version = version + 1, updated_at = $6
		 WHERE id = $1 AND version = $7`,
		portfolio.ID, portfolio.CashBalance, portfolio.TotalValue,
		portfolio.TotalProfitLoss, portfolio.TotalProfitLossPct,
		portfolio.UpdatedAt, portfolio.Version)
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.Conflict("portfolio was modified concurrently")
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM portfolio_items WHERE portfolio_id = $1`, portfolio.ID); err != nil {
		return fmt.Errorf("failed to clear portfolio items: %w", err)
	}

	for _, item := range portfolio.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO portfolio_items (id, portfolio_id, symbol, quantity,
				average_buy_price, current_price, total_value, profit_loss,
				profit_loss_pct, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			item.ID, portfolio.ID, item.Symbol, item.Quantity,
			item.AverageBuyPrice, item.CurrentPrice, item.TotalValue,
			item.ProfitLoss, item.ProfitLossPct, item.CreatedAt, item.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert portfolio item %s: %w", item.Symbol, err)
		}
	}
	return nil
}
