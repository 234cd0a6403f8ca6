package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	apperrors "github.com/papertrade-service/papertrade_service/pkg/errors"
)

// InstrumentRepository persists instruments and their price history
type InstrumentRepository struct {
	db *sqlx.DB
}

// NewInstrumentRepository creates a new instrument repository
func NewInstrumentRepository(db *sqlx.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

const instrumentColumns = `id, symbol, name, kind, current_price, daily_change,
	daily_change_pct, market_cap, volume_24h, high_24h, low_24h, created_at, updated_at`

// List returns all instruments ordered by symbol, optionally filtered by kind
func (r *InstrumentRepository) List(ctx context.Context, kind entities.InstrumentKind) ([]*entities.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, kind)
	}
	query += ` ORDER BY symbol`

	var instruments []*entities.Instrument
	if err := r.db.SelectContext(ctx, &instruments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	return instruments, nil
}

// GetBySymbol returns the instrument with the given canonical symbol
func (r *InstrumentRepository) GetBySymbol(ctx context.Context, symbol string) (*entities.Instrument, error) {
	var instrument entities.Instrument
	err := r.db.GetContext(ctx, &instrument,
		`SELECT `+instrumentColumns+` FROM instruments WHERE symbol = $1`, symbol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.InstrumentNotFound(symbol)
		}
		return nil, fmt.Errorf("failed to get instrument %s: %w", symbol, err)
	}
	return &instrument, nil
}

// Search returns instruments whose symbol or name matches the query,
// case-insensitively
func (r *InstrumentRepository) Search(ctx context.Context, query string, limit int) ([]*entities.Instrument, error) {
	pattern := "%" + query + "%"
	var instruments []*entities.Instrument
	err := r.db.SelectContext(ctx, &instruments,
		`SELECT `+instrumentColumns+` FROM instruments
		 WHERE symbol ILIKE $1 OR name ILIKE $1
		 ORDER BY symbol LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search instruments: %w", err)
	}
	return instruments, nil
}

// Upsert inserts the instrument or refreshes its quote fields when the
// symbol already exists
func (r *InstrumentRepository) Upsert(ctx context.Context, instrument *entities.Instrument) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO instruments (id, symbol, name, kind, current_price, daily_change,
			daily_change_pct, market_cap, volume_24h, high_24h, low_24h, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			updated_at = EXCLUDED.updated_at`,
		instrument.ID, instrument.Symbol, instrument.Name, instrument.Kind,
		instrument.CurrentPrice, instrument.DailyChange, instrument.DailyChangePct,
		instrument.MarketCap, instrument.Volume24h, instrument.High24h, instrument.Low24h,
		instrument.CreatedAt, instrument.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert instrument %s: %w", instrument.Symbol, err)
	}
	return nil
}

// UpdateQuote persists the instrument's current price and derived quote fields
func (r *InstrumentRepository) UpdateQuote(ctx context.Context, instrument *entities.Instrument) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE instruments SET
			current_price = $2, daily_change = $3, daily_change_pct = $4,
			volume_24h = $5, high_24h = $6, low_24h = $7, updated_at = $8
		 WHERE id = $1`,
		instrument.ID, instrument.CurrentPrice, instrument.DailyChange,
		instrument.DailyChangePct, instrument.Volume24h, instrument.High24h,
		instrument.Low24h, instrument.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update quote for %s: %w", instrument.Symbol, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.InstrumentNotFound(instrument.Symbol)
	}
	return nil
}

// AppendPricePoint records a history sample and prunes the history down to
// the newest keep samples
func (r *InstrumentRepository) AppendPricePoint(ctx context.Context, instrumentID uuid.UUID, price decimal.Decimal, keep int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO price_points (instrument_id, price) VALUES ($1, $2)`,
		instrumentID, price); err != nil {
		return fmt.Errorf("failed to insert price point: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM price_points
		 WHERE instrument_id = $1 AND id NOT IN (
			SELECT id FROM price_points
			WHERE instrument_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2)`,
		instrumentID, keep); err != nil {
		return fmt.Errorf("failed to prune price history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price point: %w", err)
	}
	return nil
}

// History returns up to limit samples for the instrument, oldest first
func (r *InstrumentRepository) History(ctx context.Context, instrumentID uuid.UUID, limit int) ([]*entities.PricePoint, error) {
	var points []*entities.PricePoint
	err := r.db.SelectContext(ctx, &points,
		`SELECT price, created_at FROM (
			SELECT price, created_at FROM price_points
			WHERE instrument_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		 ) newest ORDER BY created_at ASC`,
		instrumentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	return points, nil
}

// Count returns the number of instruments
func (r *InstrumentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM instruments`); err != nil {
		return 0, fmt.Errorf("failed to count instruments: %w", err)
	}
	return count, nil
}
