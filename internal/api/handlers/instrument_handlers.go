package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	"github.com/papertrade-service/papertrade_service/internal/domain/services/market"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
	"github.com/papertrade-service/papertrade_service/pkg/pagination"
)

// InstrumentHandlers serves the market data endpoints
type InstrumentHandlers struct {
	service *market.Service
	logger  *logger.Logger
}

// NewInstrumentHandlers creates the instrument handlers
func NewInstrumentHandlers(service *market.Service, log *logger.Logger) *InstrumentHandlers {
	return &InstrumentHandlers{service: service, logger: log}
}

// List handles GET /api/v1/instruments
func (h *InstrumentHandlers) List(c *gin.Context) {
	kind := entities.InstrumentKind(c.Query("kind"))

	instruments, err := h.service.List(c.Request.Context(), kind)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instruments": instruments})
}

// Get handles GET /api/v1/instruments/:symbol
func (h *InstrumentHandlers) Get(c *gin.Context) {
	instrument, err := h.service.GetBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, instrument)
}

// History handles GET /api/v1/instruments/:symbol/history
func (h *InstrumentHandlers) History(c *gin.Context) {
	points, err := h.service.History(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": points})
}

// Search handles GET /api/v1/instruments/search
func (h *InstrumentHandlers) Search(c *gin.Context) {
	params := pagination.Parse(c.Query("limit"), "")

	instruments, err := h.service.Search(c.Request.Context(), c.Query("q"), params.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instruments": instruments})
}
