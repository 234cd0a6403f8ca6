package entities

import "time"

// EventType identifies a notification event
type EventType string

const (
	EventOrderUpdated     EventType = "orderUpdate"
	EventPortfolioUpdated EventType = "portfolioUpdate"
	EventPriceUpdated     EventType = "priceUpdate"
)

// Event is the wire envelope delivered to notification listeners
type Event struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// PriceUpdate is the payload of a priceUpdate event
type PriceUpdate struct {
	Symbol         string `json:"symbol"`
	CurrentPrice   string `json:"current_price"`
	DailyChange    string `json:"daily_change"`
	DailyChangePct string `json:"daily_change_pct"`
}
