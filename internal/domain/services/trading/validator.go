package trading

import (
	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	apperrors "github.com/papertrade-service/papertrade_service/pkg/errors"
)

// Validator checks a proposed order against the submitter's portfolio and
// the referenced instrument before any mutation occurs. Checks run in a
// fixed order and short-circuit on the first failure; a nil return means
// the order is acceptable. The validator has no side effects.
type Validator struct{}

// NewValidator creates a new order validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs all pre-acceptance checks. instrument and portfolio may be
// nil when the referenced entity does not exist; the corresponding check
// rejects with a not-found reason.
func (v *Validator) Validate(req *entities.PlaceOrderRequest, instrument *entities.Instrument, portfolio *entities.Portfolio) error {
	if req.Symbol == "" {
		return apperrors.MissingField("symbol")
	}
	if req.Kind == "" {
		return apperrors.MissingField("kind")
	}
	if !req.Kind.Valid() {
		return apperrors.ValidationError("unknown order kind: " + string(req.Kind))
	}
	if req.Side == "" {
		return apperrors.MissingField("side")
	}
	if !req.Side.Valid() {
		return apperrors.ValidationError("unknown order side: " + string(req.Side))
	}

	if !req.Quantity.IsPositive() {
		return apperrors.ValidationError("quantity must be greater than 0")
	}

	if req.Kind != entities.OrderKindMarket {
		if req.Price == nil || !req.Price.IsPositive() {
			return apperrors.ValidationError("price is required for limit and stop orders")
		}
	}

	if req.Kind == entities.OrderKindStop {
		if req.StopPrice == nil || !req.StopPrice.IsPositive() {
			return apperrors.ValidationError("stop price is required for stop orders")
		}
	}

	if instrument == nil {
		return apperrors.InstrumentNotFound(entities.CanonicalSymbol(req.Symbol))
	}

	if portfolio == nil {
		return apperrors.PortfolioNotFound()
	}

	if req.Side == entities.OrderSideBuy {
		effectivePrice := instrument.CurrentPrice
		if req.Kind != entities.OrderKindMarket {
			effectivePrice = *req.Price
		}
		cost := effectivePrice.Mul(req.Quantity)
		if portfolio.CashBalance.LessThan(cost) {
			return apperrors.InsufficientFunds("insufficient funds").
				AddDetail("required", cost.String()).
				AddDetail("available", portfolio.CashBalance.String())
		}
	}

	if req.Side == entities.OrderSideSell {
		item := portfolio.Item(entities.CanonicalSymbol(req.Symbol))
		if item == nil || item.Quantity.LessThan(req.Quantity) {
			return apperrors.InsufficientHoldings("insufficient holdings").
				AddDetail("requested", req.Quantity.String())
		}
	}

	return nil
}
