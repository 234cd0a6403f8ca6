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
	"github.com/papertrade-service/papertrade_service/pkg/pagination"
)

// OrderRepository persists orders
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, user_id, symbol, kind, side, quantity, price, stop_price,
	status, filled_quantity, average_filled_price, total_cost, expires_at,
	created_at, updated_at`

// Create inserts a new order
func (r *OrderRepository) Create(ctx context.Context, order *entities.Order) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, symbol, kind, side, quantity, price,
			stop_price, status, filled_quantity, average_filled_price, total_cost,
			expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		order.ID, order.UserID, order.Symbol, order.Kind, order.Side,
		order.Quantity, order.Price, order.StopPrice, order.Status,
		order.FilledQuantity, order.AverageFilledPrice, order.TotalCost,
		order.ExpiresAt, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// Update persists the order's mutable fields
func (r *OrderRepository) Update(ctx context.Context, order *entities.Order) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, filled_quantity = $3,
			average_filled_price = $4, total_cost = $5, updated_at = $6
		 WHERE id = $1`,
		order.ID, order.Status, order.FilledQuantity,
		order.AverageFilledPrice, order.TotalCost, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.OrderNotFound()
	}
	return nil
}

// GetByIDAndUser returns the order only when it belongs to the user
func (r *OrderRepository) GetByIDAndUser(ctx context.Context, orderID, userID uuid.UUID) (*entities.Order, error) {
	var order entities.Order
	err := r.db.GetContext(ctx, &order,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`,
		orderID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.OrderNotFound()
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// ListByUser returns the user's orders newest first, optionally filtered
// by status, along with the total count for pagination
func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, status entities.OrderStatus, page pagination.Params) ([]*entities.Order, int64, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM orders `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset)

	orders := []*entities.Order{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// ListFilledByUser returns every filled order for the user, oldest first.
// Used for stats aggregation where the full fill history is needed.
func (r *OrderRepository) ListFilledByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Order, error) {
	orders := []*entities.Order{}
	err := r.db.SelectContext(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = $1 AND status = $2
		 ORDER BY created_at ASC`,
		userID, entities.OrderStatusFilled)
	if err != nil {
		return nil, fmt.Errorf("failed to list filled orders: %w", err)
	}
	return orders, nil
}
