package market

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

func (m *MockRepository) List(ctx context.Context, kind entities.InstrumentKind) ([]*entities.Instrument, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Instrument), args.Error(1)
}

func (m *MockRepository) GetBySymbol(ctx context.Context, symbol string) (*entities.Instrument, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Instrument), args.Error(1)
}

func (m *MockRepository) Search(ctx context.Context, query string, limit int) ([]*entities.Instrument, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Instrument), args.Error(1)
}

func (m *MockRepository) Upsert(ctx context.Context, instrument *entities.Instrument) error {
	args := m.Called(ctx, instrument)
	return args.Error(0)
}

func (m *MockRepository) UpdateQuote(ctx context.Context, instrument *entities.Instrument) error {
	args := m.Called(ctx, instrument)
	return args.Error(0)
}

func (m *MockRepository) AppendPricePoint(ctx context.Context, instrumentID uuid.UUID, price decimal.Decimal, keep int) error {
	args := m.Called(ctx, instrumentID, price, keep)
	return args.Error(0)
}

func (m *MockRepository) History(ctx context.Context, instrumentID uuid.UUID, limit int) ([]*entities.PricePoint, error) {
	args := m.Called(ctx, instrumentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PricePoint), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockQuoteCache struct {
	mock.Mock
}

func (m *MockQuoteCache) GetInstrument(ctx context.Context, symbol string) *entities.Instrument {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*entities.Instrument)
}

func (m *MockQuoteCache) SetInstrument(ctx context.Context, instrument *entities.Instrument) {
	m.Called(ctx, instrument)
}

func (m *MockQuoteCache) Invalidate(ctx context.Context, symbol string) {
	m.Called(ctx, symbol)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) PriceUpdated(update *entities.PriceUpdate) {
	m.Called(update)
}

type marketFixture struct {
	repo        *MockRepository
	cache       *MockQuoteCache
	broadcaster *MockBroadcaster
	service     *Service
}

func newMarketFixture() *marketFixture {
	f := &marketFixture{
		repo:        new(MockRepository),
		cache:       new(MockQuoteCache),
		broadcaster: new(MockBroadcaster),
	}
	f.service = NewService(f.repo, f.cache, f.broadcaster,
		Config{HistorySize: 30, MaxMovePct: 5.0}, logger.New("error", "development"))
	return f
}

func instrumentAt(symbol string, price float64) *entities.Instrument {
	return &entities.Instrument{
		ID:           uuid.New(),
		Symbol:       symbol,
		Name:         symbol,
		Kind:         entities.InstrumentKindStock,
		CurrentPrice: decimal.NewFromFloat(price),
	}
}

func TestGetBySymbol_CacheHit(t *testing.T) {
	f := newMarketFixture()
	cached := instrumentAt("AAPL", 150)

	f.cache.On("GetInstrument", mock.Anything, "AAPL").Return(cached)

	got, err := f.service.GetBySymbol(context.Background(), "aapl")

	assert.NoError(t, err)
	assert.Equal(t, cached, got)
	f.repo.AssertNotCalled(t, "GetBySymbol", mock.Anything, mock.Anything)
}

func TestGetBySymbol_CacheMissLoadsAndCaches(t *testing.T) {
	f := newMarketFixture()
	instrument := instrumentAt("AAPL", 150)

	f.cache.On("GetInstrument", mock.Anything, "AAPL").Return(nil)
	f.repo.On("GetBySymbol", mock.Anything, "AAPL").Return(instrument, nil)
	f.cache.On("SetInstrument", mock.Anything, instrument).Return()

	got, err := f.service.GetBySymbol(context.Background(), "  AAPL ")

	assert.NoError(t, err)
	assert.Equal(t, instrument, got)
	f.cache.AssertCalled(t, "SetInstrument", mock.Anything, instrument)
}

func TestGetBySymbol_Unknown(t *testing.T) {
	f := newMarketFixture()

	f.cache.On("GetInstrument", mock.Anything, "NOPE").Return(nil)
	f.repo.On("GetBySymbol", mock.Anything, "NOPE").Return(nil, apperrors.InstrumentNotFound("NOPE"))

	_, err := f.service.GetBySymbol(context.Background(), "NOPE")

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInstrumentNotFound))
}

func TestSearch_RejectsShortQuery(t *testing.T) {
	f := newMarketFixture()

	_, err := f.service.Search(context.Background(), "a", 10)

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	f.repo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestList_RejectsUnknownKind(t *testing.T) {
	f := newMarketFixture()

	_, err := f.service.List(context.Background(), "bond")

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestTick_MovesPricesWithinBounds(t *testing.T) {
	f := newMarketFixture()
	instrument := instrumentAt("AAPL", 100)

	f.repo.On("List", mock.Anything, entities.InstrumentKind("")).
		Return([]*entities.Instrument{instrument}, nil)
	f.repo.On("UpdateQuote", mock.Anything, instrument).Return(nil)
	f.repo.On("AppendPricePoint", mock.Anything, instrument.ID, mock.Anything, 30).Return(nil)
	f.cache.On("Invalidate", mock.Anything, "AAPL").Return()
	f.cache.On("SetInstrument", mock.Anything, instrument).Return()
	f.broadcaster.On("PriceUpdated", mock.Anything).Return()

	err := f.service.Tick(context.Background())

	assert.NoError(t, err)
	assert.True(t, instrument.CurrentPrice.GreaterThanOrEqual(decimal.NewFromInt(95)),
		"one tick must not move the price more than 5%% down, got %s", instrument.CurrentPrice)
	assert.True(t, instrument.CurrentPrice.LessThanOrEqual(decimal.NewFromInt(105)),
		"one tick must not move the price more than 5%% up, got %s", instrument.CurrentPrice)
	assert.True(t, instrument.CurrentPrice.IsPositive())

	f.repo.AssertCalled(t, "UpdateQuote", mock.Anything, instrument)
	f.broadcaster.AssertCalled(t, "PriceUpdated", mock.Anything)
}

func TestTick_ContinuesAfterInstrumentFailure(t *testing.T) {
	f := newMarketFixture()
	broken := instrumentAt("AAPL", 100)
	healthy := instrumentAt("MSFT", 400)

	f.repo.On("List", mock.Anything, entities.InstrumentKind("")).
		Return([]*entities.Instrument{broken, healthy}, nil)
	f.repo.On("UpdateQuote", mock.Anything, broken).Return(apperrors.Persistence("write failed"))
	f.repo.On("UpdateQuote", mock.Anything, healthy).Return(nil)
	f.repo.On("AppendPricePoint", mock.Anything, healthy.ID, mock.Anything, 30).Return(nil)
	f.cache.On("Invalidate", mock.Anything, "MSFT").Return()
	f.cache.On("SetInstrument", mock.Anything, healthy).Return()
	f.broadcaster.On("PriceUpdated", mock.Anything).Return()

	err := f.service.Tick(context.Background())

	assert.Error(t, err)
	f.repo.AssertCalled(t, "UpdateQuote", mock.Anything, healthy)
}

func TestSeed(t *testing.T) {
	t.Run("skips when instruments exist", func(t *testing.T) {
		f := newMarketFixture()
		f.repo.On("Count", mock.Anything).Return(int64(3), nil)

		err := f.service.Seed(context.Background())

		assert.NoError(t, err)
		f.repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("seeds the default universe once", func(t *testing.T) {
		f := newMarketFixture()
		f.repo.On("Count", mock.Anything).Return(int64(0), nil)
		f.repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("AppendPricePoint", mock.Anything, mock.Anything, mock.Anything, 30).Return(nil)

		err := f.service.Seed(context.Background())

		assert.NoError(t, err)
		f.repo.AssertNumberOfCalls(t, "Upsert", len(defaultInstruments))
	})
}
