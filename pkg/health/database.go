package health

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// DatabaseChecker verifies the postgres connection is alive
type DatabaseChecker struct {
	db *sqlx.DB
}

// NewDatabaseChecker creates a new database health checker
func NewDatabaseChecker(db *sqlx.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

// Name returns the component name
func (c *DatabaseChecker) Name() string {
	return "database"
}

// Check pings the database
func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Component: "database",
		Timestamp: start,
	}

	if err := c.db.PingContext(ctx); err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
	} else {
		result.Status = StatusHealthy
		stats := c.db.Stats()
		if stats.OpenConnections >= stats.MaxOpenConnections {
			result.Status = StatusDegraded
			result.Message = "connection pool exhausted"
		}
	}

	result.Duration = time.Since(start)
	return result
}
