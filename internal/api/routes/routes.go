package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papertrade-service/papertrade_service/internal/api/handlers"
	"github.com/papertrade-service/papertrade_service/internal/api/middleware"
	"github.com/papertrade-service/papertrade_service/internal/infrastructure/di"
	"github.com/papertrade-service/papertrade_service/pkg/ratelimit"
	"github.com/papertrade-service/papertrade_service/pkg/tracing"
)

// Setup builds the gin engine with all routes and middleware
func Setup(c *di.Container) *gin.Engine {
	if c.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(c.Logger),
		tracing.HTTPMiddleware(),
		middleware.Logger(c.Logger),
		middleware.CORS(c.Config.Server.AllowedOrigins),
		middleware.SecurityHeaders(),
		middleware.IPRateLimit(c.Config.Server.RateLimitPerMin),
	)

	authHandlers := handlers.NewAuthHandlers(c.AuthService, c.Logger)
	instrumentHandlers := handlers.NewInstrumentHandlers(c.MarketService, c.Logger)
	orderHandlers := handlers.NewOrderHandlers(c.TradingService, c.Logger)
	portfolioHandlers := handlers.NewPortfolioHandlers(c.PortfolioService, c.Logger)
	healthHandlers := handlers.NewHealthHandlers(c.HealthChecker)
	wsHandlers := handlers.NewWSHandlers(c.Hub, c.Logger)

	router.GET("/health", healthHandlers.Health)
	router.GET("/ready", healthHandlers.Ready)
	router.GET("/version", healthHandlers.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authenticated := middleware.Authentication(c.Config.JWT.Secret)

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandlers.Register)
			authGroup.POST("/login", authHandlers.Login)
			authGroup.GET("/me", authenticated, authHandlers.GetProfile)
			authGroup.PATCH("/me", authenticated, authHandlers.UpdateProfile)
		}

		instruments := v1.Group("/instruments")
		{
			instruments.GET("", instrumentHandlers.List)
			instruments.GET("/search", instrumentHandlers.Search)
			instruments.GET("/:symbol", instrumentHandlers.Get)
			instruments.GET("/:symbol/history", instrumentHandlers.History)
		}

		orders := v1.Group("/orders", authenticated)
		{
			// Order intake carries its own per-user limit on top of the
			// global per-IP one.
			orders.POST("", ratelimit.Middleware(c.OrderLimiter, userKey, c.Logger.Zap()),
				orderHandlers.Place)
			orders.GET("", orderHandlers.List)
			orders.GET("/:id", orderHandlers.Get)
			orders.DELETE("/:id", orderHandlers.Cancel)
		}

		portfolioGroup := v1.Group("/portfolio", authenticated)
		{
			portfolioGroup.GET("", portfolioHandlers.Get)
			portfolioGroup.GET("/items", portfolioHandlers.GetItems)
			portfolioGroup.GET("/stats", portfolioHandlers.GetStats)
		}
	}

	router.GET("/ws", authenticated, wsHandlers.Connect)

	return router
}

// userKey keys per-user rate limits off the authenticated user id
func userKey(c *gin.Context) string {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return ""
	}
	userID, ok := value.(uuid.UUID)
	if !ok {
		return ""
	}
	return userID.String()
}
