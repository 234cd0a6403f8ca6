package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstrumentKind classifies tradable instruments
type InstrumentKind string

const (
	InstrumentKindStock     InstrumentKind = "stock"
	InstrumentKindCrypto    InstrumentKind = "crypto"
	InstrumentKindForex     InstrumentKind = "forex"
	InstrumentKindCommodity InstrumentKind = "commodity"
)

// Valid reports whether the kind is one of the known instrument kinds
func (k InstrumentKind) Valid() bool {
	switch k {
	case InstrumentKindStock, InstrumentKindCrypto, InstrumentKindForex, InstrumentKindCommodity:
		return true
	}
	return false
}

// Instrument is a tradable asset with a synthetic market price.
// Prices are mutated only by the market service; the trading engine
// treats instruments as read-only shared state.
type Instrument struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	Symbol         string          `json:"symbol" db:"symbol"`
	Name           string          `json:"name" db:"name"`
	Kind           InstrumentKind  `json:"kind" db:"kind"`
	CurrentPrice   decimal.Decimal `json:"current_price" db:"current_price"`
	DailyChange    decimal.Decimal `json:"daily_change" db:"daily_change"`
	DailyChangePct decimal.Decimal `json:"daily_change_pct" db:"daily_change_pct"`
	MarketCap      decimal.Decimal `json:"market_cap" db:"market_cap"`
	Volume24h      decimal.Decimal `json:"volume_24h" db:"volume_24h"`
	High24h        decimal.Decimal `json:"high_24h" db:"high_24h"`
	Low24h         decimal.Decimal `json:"low_24h" db:"low_24h"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// PricePoint is a single sample in an instrument's bounded price history
type PricePoint struct {
	Price     decimal.Decimal `json:"price" db:"price"`
	Timestamp time.Time       `json:"timestamp" db:"created_at"`
}

// CanonicalSymbol normalizes a symbol to its canonical uppercase form
func CanonicalSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
