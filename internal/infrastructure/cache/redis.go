package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	"github.com/papertrade-service/papertrade_service/internal/infrastructure/config"
)

// NewClient creates and verifies a Redis client
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// QuoteCache is a read-through cache for instrument quotes. Misses and
// Redis failures fall back to the database; staleness is bounded by the
// TTL and explicit invalidation on each price tick.
type QuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQuoteCache creates a quote cache with the given entry TTL
func NewQuoteCache(client *redis.Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{client: client, ttl: ttl}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

// GetInstrument returns the cached instrument, or nil on miss or error
func (c *QuoteCache) GetInstrument(ctx context.Context, symbol string) *entities.Instrument {
	if c == nil || c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, quoteKey(symbol)).Bytes()
	if err != nil {
		return nil
	}

	var instrument entities.Instrument
	if err := json.Unmarshal(data, &instrument); err != nil {
		return nil
	}
	return &instrument
}

// SetInstrument stores the instrument quote, best effort
func (c *QuoteCache) SetInstrument(ctx context.Context, instrument *entities.Instrument) {
	if c == nil || c.client == nil {
		return
	}

	data, err := json.Marshal(instrument)
	if err != nil {
		return
	}
	c.client.Set(ctx, quoteKey(instrument.Symbol), data, c.ttl)
}

// Invalidate drops the cached quote for symbol
func (c *QuoteCache) Invalidate(ctx context.Context, symbol string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, quoteKey(symbol))
}
