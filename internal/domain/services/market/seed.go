package market

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
)

type seedInstrument struct {
	symbol string
	name   string
	kind   entities.InstrumentKind
	price  float64
}

var defaultInstruments = []seedInstrument{
	{"AAPL", "Apple Inc.", entities.InstrumentKindStock, 178.50},
	{"MSFT", "Microsoft Corporation", entities.InstrumentKindStock, 412.30},
	{"GOOGL", "Alphabet Inc.", entities.InstrumentKindStock, 141.80},
	{"AMZN", "Amazon.com Inc.", entities.InstrumentKindStock, 186.20},
	{"TSLA", "Tesla Inc.", entities.InstrumentKindStock, 248.90},
	{"NVDA", "NVIDIA Corporation", entities.InstrumentKindStock, 875.40},
	{"META", "Meta Platforms Inc.", entities.InstrumentKindStock, 505.60},
	{"BTC", "Bitcoin", entities.InstrumentKindCrypto, 64250.00},
	{"ETH", "Ethereum", entities.InstrumentKindCrypto, 3180.00},
	{"SOL", "Solana", entities.InstrumentKindCrypto, 148.75},
	{"EURUSD", "Euro / US Dollar", entities.InstrumentKindForex, 1.0845},
	{"GBPUSD", "British Pound / US Dollar", entities.InstrumentKindForex, 1.2710},
	{"XAU", "Gold Spot", entities.InstrumentKindCommodity, 2330.50},
	{"WTI", "Crude Oil WTI", entities.InstrumentKindCommodity, 78.25},
}

// Seed inserts the default instrument universe when the table is empty
func (s *Service) Seed(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count instruments: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	for _, seed := range defaultInstruments {
		price := decimal.NewFromFloat(seed.price)
		instrument := &entities.Instrument{
			ID:           uuid.New(),
			Symbol:       seed.symbol,
			Name:         seed.name,
			Kind:         seed.kind,
			CurrentPrice: price,
			High24h:      price,
			Low24h:       price,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repo.Upsert(ctx, instrument); err != nil {
			return fmt.Errorf("failed to seed instrument %s: %w", seed.symbol, err)
		}
		if err := s.repo.AppendPricePoint(ctx, instrument.ID, price, s.cfg.HistorySize); err != nil {
			return fmt.Errorf("failed to seed price history for %s: %w", seed.symbol, err)
		}
	}

	s.logger.CtxInfo(ctx, "Seeded instrument universe", "count", len(defaultInstruments))
	return nil
}
