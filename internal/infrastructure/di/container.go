package di

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/papertrade-service/papertrade_service/internal/domain/services/auth"
	"github.com/papertrade-service/papertrade_service/internal/domain/services/market"
	"github.com/papertrade-service/papertrade_service/internal/domain/services/portfolio"
	"github.com/papertrade-service/papertrade_service/internal/domain/services/trading"
	"github.com/papertrade-service/papertrade_service/internal/infrastructure/cache"
	"github.com/papertrade-service/papertrade_service/internal/infrastructure/config"
	"github.com/papertrade-service/papertrade_service/internal/infrastructure/database"
	"github.com/papertrade-service/papertrade_service/internal/infrastructure/repositories"
	"github.com/papertrade-service/papertrade_service/internal/notifications"
	"github.com/papertrade-service/papertrade_service/internal/workers/marketdata"
	"github.com/papertrade-service/papertrade_service/pkg/health"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
	"github.com/papertrade-service/papertrade_service/pkg/ratelimit"
)

// Container wires the application's components together
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	DB    *sqlx.DB
	Redis *redis.Client

	InstrumentRepo *repositories.InstrumentRepository
	PortfolioRepo  *repositories.PortfolioRepository
	OrderRepo      *repositories.OrderRepository
	UserRepo       *repositories.UserRepository

	Hub *notifications.Hub

	MarketService    *market.Service
	TradingService   *trading.Service
	PortfolioService *portfolio.Service
	AuthService      *auth.Service

	Scheduler     *marketdata.Scheduler
	HealthChecker *health.HealthChecker
	OrderLimiter  ratelimit.Limiter
}

// NewContainer builds the full dependency graph
func NewContainer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	redisClient, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	startingCash, err := decimal.NewFromString(cfg.Trading.StartingCash)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("invalid starting cash %q: %w", cfg.Trading.StartingCash, err)
	}

	instrumentRepo := repositories.NewInstrumentRepository(db)
	portfolioRepo := repositories.NewPortfolioRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	userRepo := repositories.NewUserRepository(db)

	hub := notifications.NewHub(log)
	quoteCache := cache.NewQuoteCache(redisClient, cfg.Market.QuoteCacheTTL)

	marketService := market.NewService(instrumentRepo, quoteCache, hub, market.Config{
		HistorySize: cfg.Market.HistorySize,
		MaxMovePct:  cfg.Market.MaxMovePct,
	}, log)
	tradingService := trading.NewService(marketService, portfolioRepo, orderRepo, hub, log)
	portfolioService := portfolio.NewService(portfolioRepo, orderRepo, marketService, startingCash, log)
	authService := auth.NewService(userRepo, cfg.JWT, log)

	scheduler := marketdata.NewScheduler(marketService, cfg.Market.TickInterval, log)

	checker := health.NewHealthChecker(0)
	checker.Register(health.NewDatabaseChecker(db))
	checker.Register(health.NewRedisChecker(redisClient))

	orderLimiter := ratelimit.NewDistributedLimiter(redisClient, ratelimit.Config{
		Limit:     int64(cfg.Trading.OrderRateLimitPerMin),
		Window:    time.Minute,
		KeyPrefix: "ratelimit:orders",
	}, log.Zap())

	return &Container{
		Config:           cfg,
		Logger:           log,
		DB:               db,
		Redis:            redisClient,
		InstrumentRepo:   instrumentRepo,
		PortfolioRepo:    portfolioRepo,
		OrderRepo:        orderRepo,
		UserRepo:         userRepo,
		Hub:              hub,
		MarketService:    marketService,
		TradingService:   tradingService,
		PortfolioService: portfolioService,
		AuthService:      authService,
		Scheduler:        scheduler,
		HealthChecker:    checker,
		OrderLimiter:     orderLimiter,
	}, nil
}

// Close releases the container's resources
func (c *Container) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
	if c.Redis != nil {
		c.Redis.Close()
	}
}
