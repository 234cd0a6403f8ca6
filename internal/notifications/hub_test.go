package notifications

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
)

func newTestClient(h *Hub, userID uuid.UUID, buffer int) *Client {
	c := &Client{
		hub:    h,
		userID: userID,
		send:   make(chan []byte, buffer),
	}
	h.register(c)
	return c
}

func receive(t *testing.T, c *Client) entities.Event {
	t.Helper()
	select {
	case data := <-c.send:
		var event entities.Event
		assert.NoError(t, json.Unmarshal(data, &event))
		return event
	default:
		t.Fatal("expected a queued event")
		return entities.Event{}
	}
}

func TestHub_OrderUpdateReachesOnlyOwner(t *testing.T) {
	h := NewHub(logger.New("error", "development"))
	owner := uuid.New()
	other := uuid.New()
	ownerClient := newTestClient(h, owner, 8)
	otherClient := newTestClient(h, other, 8)

	order := &entities.Order{
		ID:     uuid.New(),
		UserID: owner,
		Symbol: "AAPL",
		Status: entities.OrderStatusFilled,
	}
	h.OrderUpdated(owner, order)

	event := receive(t, ownerClient)
	assert.Equal(t, entities.EventOrderUpdated, event.Type)
	assert.Empty(t, otherClient.send, "other users must not see the event")
}

func TestHub_PriceUpdateBroadcastsToAll(t *testing.T) {
	h := NewHub(logger.New("error", "development"))
	a := newTestClient(h, uuid.New(), 8)
	b := newTestClient(h, uuid.New(), 8)

	h.PriceUpdated(&entities.PriceUpdate{
		Symbol:       "AAPL",
		CurrentPrice: decimal.NewFromInt(150).String(),
	})

	assert.Equal(t, entities.EventPriceUpdated, receive(t, a).Type)
	assert.Equal(t, entities.EventPriceUpdated, receive(t, b).Type)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h := NewHub(logger.New("error", "development"))
	userID := uuid.New()
	slow := newTestClient(h, userID, 1)

	update := &entities.PriceUpdate{Symbol: "AAPL", CurrentPrice: "150"}
	h.PriceUpdated(update) // fills the buffer
	h.PriceUpdated(update) // overflows and drops the client

	assert.Equal(t, 0, h.ClientCount())
	_, open := <-slow.send
	assert.True(t, open, "the buffered message is still readable")
	_, open = <-slow.send
	assert.False(t, open, "send channel is closed after the drop")
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	h := NewHub(logger.New("error", "development"))
	client := newTestClient(h, uuid.New(), 8)

	h.unregister(client)
	h.unregister(client)

	assert.Equal(t, 0, h.ClientCount())
}

func TestHub_DeliverAfterDisconnectIsNoOp(t *testing.T) {
	h := NewHub(logger.New("error", "development"))
	client := newTestClient(h, uuid.New(), 8)

	// A sender may still hold the client after it has been unregistered and
	// its send channel closed; the message must be dropped, not panic.
	h.unregister(client)
	h.deliver(client, []byte(`{}`))

	assert.Equal(t, 0, h.ClientCount())
	_, open := <-client.send
	assert.False(t, open, "send channel stays closed")
}

func TestHub_BroadcastDuringDisconnect(t *testing.T) {
	h := NewHub(logger.New("error", "development"))
	update := &entities.PriceUpdate{Symbol: "AAPL", CurrentPrice: "150"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		client := newTestClient(h, uuid.New(), 1)
		wg.Add(2)
		go func(c *Client) {
			defer wg.Done()
			h.unregister(c)
		}(client)
		go func() {
			defer wg.Done()
			h.PriceUpdated(update)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, h.ClientCount())
}
