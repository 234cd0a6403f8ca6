package notifications

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
	"github.com/papertrade-service/papertrade_service/pkg/metrics"
)

// Hub fans events out to connected websocket clients. Order and portfolio
// events go only to the owning user's connections; price updates go to
// everyone. Delivery is best effort: a client that cannot keep up is
// disconnected rather than allowed to block the sender.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[uuid.UUID]map[*Client]struct{}
	logger  *logger.Logger
}

// NewHub creates an empty hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byUser:  make(map[uuid.UUID]map[*Client]struct{}),
		logger:  log,
	}
}

// OrderUpdated notifies the user's connections of an order state change
func (h *Hub) OrderUpdated(userID uuid.UUID, order *entities.Order) {
	h.sendToUser(userID, entities.EventOrderUpdated, order)
}

// PortfolioUpdated notifies the user's connections of a portfolio change
func (h *Hub) PortfolioUpdated(userID uuid.UUID, portfolio *entities.Portfolio) {
	h.sendToUser(userID, entities.EventPortfolioUpdated, portfolio)
}

// PriceUpdated broadcasts a price change to every connection
func (h *Hub) PriceUpdated(update *entities.PriceUpdate) {
	data, err := marshalEvent(entities.EventPriceUpdated, update)
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.deliver(client, data)
	}
}

func (h *Hub) sendToUser(userID uuid.UUID, eventType entities.EventType, payload interface{}) {
	data, err := marshalEvent(eventType, payload)
	if err != nil {
		h.logger.Warnw("Failed to marshal notification", "type", eventType, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.byUser[userID]))
	for client := range h.byUser[userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.deliver(client, data)
	}
}

// deliver enqueues the message without blocking; a full send buffer means
// the client is too slow and gets dropped
func (h *Hub) deliver(client *Client, data []byte) {
	if !client.enqueue(data) {
		h.logger.Warnw("Dropping slow websocket client", "user_id", client.userID)
		h.unregister(client)
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	if _, ok := h.byUser[client.userID]; !ok {
		h.byUser[client.userID] = make(map[*Client]struct{})
	}
	h.byUser[client.userID][client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WebsocketClientsGauge.Set(float64(count))
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	if conns, ok := h.byUser[client.userID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.byUser, client.userID)
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	client.closeSend()
	metrics.WebsocketClientsGauge.Set(float64(count))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func marshalEvent(eventType entities.EventType, payload interface{}) ([]byte, error) {
	return json.Marshal(entities.Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}
