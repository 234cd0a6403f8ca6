package health

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisChecker verifies the redis connection is alive
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new redis health checker
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Name returns the component name
func (c *RedisChecker) Name() string {
	return "redis"
}

// Check pings redis
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Component: "redis",
		Timestamp: start,
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		// Quote cache and rate limiting degrade gracefully without redis
		result.Status = StatusDegraded
		result.Error = err.Error()
	} else {
		result.Status = StatusHealthy
	}

	result.Duration = time.Since(start)
	return result
}
