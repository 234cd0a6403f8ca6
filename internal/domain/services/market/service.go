package market

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	apperrors "github.com/papertrade-service/papertrade_service/pkg/errors"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
	"github.com/papertrade-service/papertrade_service/pkg/metrics"
)

// Repository persists instruments and price history
type Repository interface {
	List(ctx context.Context, kind entities.InstrumentKind) ([]*entities.Instrument, error)
	GetBySymbol(ctx context.Context, symbol string) (*entities.Instrument, error)
	Search(ctx context.Context, query string, limit int) ([]*entities.Instrument, error)
	Upsert(ctx context.Context, instrument *entities.Instrument) error
	UpdateQuote(ctx context.Context, instrument *entities.Instrument) error
	AppendPricePoint(ctx context.Context, instrumentID uuid.UUID, price decimal.Decimal, keep int) error
	History(ctx context.Context, instrumentID uuid.UUID, limit int) ([]*entities.PricePoint, error)
	Count(ctx context.Context) (int64, error)
}

// QuoteCache caches instrument quotes between ticks
type QuoteCache interface {
	GetInstrument(ctx context.Context, symbol string) *entities.Instrument
	SetInstrument(ctx context.Context, instrument *entities.Instrument)
	Invalidate(ctx context.Context, symbol string)
}

// Broadcaster pushes price updates to connected listeners
type Broadcaster interface {
	PriceUpdated(update *entities.PriceUpdate)
}

// Config controls the synthetic price feed
type Config struct {
	HistorySize int
	MaxMovePct  float64
}

// Service is the market price source. Prices follow a bounded random walk
// driven by Tick; all reads are cache-aside against Redis with the
// database as the source of truth.
type Service struct {
	repo        Repository
	cache       QuoteCache
	broadcaster Broadcaster
	cfg         Config
	logger      *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService creates the market service
func NewService(repo Repository, cache QuoteCache, broadcaster Broadcaster, cfg Config, log *logger.Logger) *Service {
	return &Service{
		repo:        repo,
		cache:       cache,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      log,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// List returns all instruments, optionally filtered by kind
func (s *Service) List(ctx context.Context, kind entities.InstrumentKind) ([]*entities.Instrument, error) {
	if kind != "" && !kind.Valid() {
		return nil, apperrors.ValidationError("unknown instrument kind: " + string(kind))
	}
	return s.repo.List(ctx, kind)
}

// GetBySymbol returns the instrument, serving the quote from cache when fresh
func (s *Service) GetBySymbol(ctx context.Context, symbol string) (*entities.Instrument, error) {
	symbol = entities.CanonicalSymbol(symbol)

	if cached := s.cache.GetInstrument(ctx, symbol); cached != nil {
		return cached, nil
	}

	instrument, err := s.repo.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	s.cache.SetInstrument(ctx, instrument)
	return instrument, nil
}

// Search returns instruments matching the query by symbol or name
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*entities.Instrument, error) {
	if len(query) < 2 {
		return nil, apperrors.ValidationError("search query must be at least 2 characters")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.repo.Search(ctx, query, limit)
}

// History returns the instrument's bounded price history, oldest first
func (s *Service) History(ctx context.Context, symbol string) ([]*entities.PricePoint, error) {
	instrument, err := s.repo.GetBySymbol(ctx, entities.CanonicalSymbol(symbol))
	if err != nil {
		return nil, err
	}
	return s.repo.History(ctx, instrument.ID, s.cfg.HistorySize)
}

// Tick advances every instrument one random-walk step, persists the new
// quotes and history samples, refreshes the cache and broadcasts the
// updates. A failure on one instrument does not stop the others.
func (s *Service) Tick(ctx context.Context) error {
	instruments, err := s.repo.List(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list instruments for tick: %w", err)
	}

	var failed int
	for _, instrument := range instruments {
		if err := s.tickInstrument(ctx, instrument); err != nil {
			failed++
			s.logger.CtxWarn(ctx, "Price tick failed for instrument",
				"symbol", instrument.Symbol, "error", err)
		}
	}

	metrics.PriceTicksTotal.Inc()
	if failed > 0 {
		return fmt.Errorf("price tick failed for %d of %d instruments", failed, len(instruments))
	}
	return nil
}

func (s *Service) tickInstrument(ctx context.Context, instrument *entities.Instrument) error {
	prev := instrument.CurrentPrice
	next := s.nextPrice(prev)

	instrument.CurrentPrice = next
	instrument.DailyChange = next.Sub(prev)
	if prev.IsPositive() {
		instrument.DailyChangePct = next.Div(prev).
			Sub(decimal.NewFromInt(1)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	if next.GreaterThan(instrument.High24h) {
		instrument.High24h = next
	}
	if instrument.Low24h.IsZero() || next.LessThan(instrument.Low24h) {
		instrument.Low24h = next
	}
	instrument.UpdatedAt = time.Now()

	if err := s.repo.UpdateQuote(ctx, instrument); err != nil {
		return err
	}
	if err := s.repo.AppendPricePoint(ctx, instrument.ID, next, s.cfg.HistorySize); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, instrument.Symbol)
	s.cache.SetInstrument(ctx, instrument)

	if s.broadcaster != nil {
		s.broadcaster.PriceUpdated(&entities.PriceUpdate{
			Symbol:         instrument.Symbol,
			CurrentPrice:   instrument.CurrentPrice.String(),
			DailyChange:    instrument.DailyChange.String(),
			DailyChangePct: instrument.DailyChangePct.String(),
		})
	}
	return nil
}

// nextPrice applies a uniform random move bounded by MaxMovePct in either
// direction, floored so prices never reach zero
func (s *Service) nextPrice(price decimal.Decimal) decimal.Decimal {
	s.mu.Lock()
	movePct := (s.rng.Float64()*2 - 1) * s.cfg.MaxMovePct
	s.mu.Unlock()

	factor := decimal.NewFromFloat(1 + movePct/100)
	next := price.Mul(factor).Round(4)

	floor := decimal.NewFromFloat(0.01)
	if next.LessThan(floor) {
		return floor
	}
	return next
}
