package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Authentication errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"

	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// Business logic errors
	ErrCodeInsufficientFunds    ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInsufficientHoldings ErrorCode = "INSUFFICIENT_HOLDINGS"
	ErrCodeInstrumentNotFound   ErrorCode = "INSTRUMENT_NOT_FOUND"
	ErrCodePortfolioNotFound    ErrorCode = "PORTFOLIO_NOT_FOUND"
	ErrCodeOrderNotFound        ErrorCode = "ORDER_NOT_FOUND"
	ErrCodeUserNotFound         ErrorCode = "USER_NOT_FOUND"
	ErrCodeOrderNotCancellable  ErrorCode = "ORDER_NOT_CANCELLABLE"
	ErrCodeDuplicateEntry       ErrorCode = "DUPLICATE_ENTRY"
	ErrCodeConflict             ErrorCode = "CONFLICT"

	// System errors
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
	ErrCodePersistence ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeRateLimit   ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// TradeError represents a standardized error
type TradeError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// New creates a new TradeError
func New(code ErrorCode, message string) *TradeError {
	return &TradeError{
		Code:       code,
		Message:    message,
		StatusCode: getHTTPStatusCode(code),
	}
}

// NewWithDetails creates a new TradeError with details
func NewWithDetails(code ErrorCode, message string, details map[string]interface{}) *TradeError {
	return &TradeError{
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: getHTTPStatusCode(code),
	}
}

// Wrap wraps an existing error with TradeError
func Wrap(err error, code ErrorCode, message string) *TradeError {
	details := map[string]interface{}{
		"original_error": err.Error(),
	}
	return NewWithDetails(code, message, details)
}

// AddDetail adds a detail to the error
func (e *TradeError) AddDetail(key string, value interface{}) *TradeError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// AsTradeError returns the TradeError in err's chain, if any
func AsTradeError(err error) (*TradeError, bool) {
	var te *TradeError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsCode reports whether err carries the given error code
func IsCode(err error, code ErrorCode) bool {
	if te, ok := AsTradeError(err); ok {
		return te.Code == code
	}
	return false
}

// getHTTPStatusCode maps error codes to HTTP status codes
func getHTTPStatusCode(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthorized, ErrCodeInvalidToken:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField, ErrCodeOrderNotCancellable:
		return http.StatusBadRequest
	case ErrCodeInstrumentNotFound, ErrCodePortfolioNotFound, ErrCodeOrderNotFound, ErrCodeUserNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicateEntry, ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case ErrCodeInsufficientFunds, ErrCodeInsufficientHoldings:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors

func Unauthorized(message string) *TradeError {
	return New(ErrCodeUnauthorized, message)
}

func ValidationError(message string) *TradeError {
	return New(ErrCodeValidation, message)
}

func MissingField(field string) *TradeError {
	return New(ErrCodeMissingField, fmt.Sprintf("missing required field: %s", field)).
		AddDetail("field", field)
}

func InstrumentNotFound(symbol string) *TradeError {
	return New(ErrCodeInstrumentNotFound, fmt.Sprintf("instrument %s not found", symbol))
}

func PortfolioNotFound() *TradeError {
	return New(ErrCodePortfolioNotFound, "portfolio not found")
}

func OrderNotFound() *TradeError {
	return New(ErrCodeOrderNotFound, "order not found")
}

func InsufficientFunds(message string) *TradeError {
	return New(ErrCodeInsufficientFunds, message)
}

func InsufficientHoldings(message string) *TradeError {
	return New(ErrCodeInsufficientHoldings, message)
}

func Conflict(message string) *TradeError {
	return New(ErrCodeConflict, message)
}

func Persistence(message string) *TradeError {
	return New(ErrCodePersistence, message)
}

func Internal(message string) *TradeError {
	return New(ErrCodeInternal, message)
}
