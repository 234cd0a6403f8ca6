package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/papertrade-service/papertrade_service/internal/domain/services/portfolio"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
)

// PortfolioHandlers serves the portfolio endpoints
type PortfolioHandlers struct {
	service *portfolio.Service
	logger  *logger.Logger
}

// NewPortfolioHandlers creates the portfolio handlers
func NewPortfolioHandlers(service *portfolio.Service, log *logger.Logger) *PortfolioHandlers {
	return &PortfolioHandlers{service: service, logger: log}
}

// Get handles GET /api/v1/portfolio
func (h *PortfolioHandlers) Get(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	p, err := h.service.GetPortfolio(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetItems handles GET /api/v1/portfolio/items
func (h *PortfolioHandlers) GetItems(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	items, err := h.service.GetItems(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetStats handles GET /api/v1/portfolio/stats
func (h *PortfolioHandlers) GetStats(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
