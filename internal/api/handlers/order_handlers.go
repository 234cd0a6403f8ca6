package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	"github.com/papertrade-service/papertrade_service/internal/domain/services/trading"
	apperrors "github.com/papertrade-service/papertrade_service/pkg/errors"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
	"github.com/papertrade-service/papertrade_service/pkg/pagination"
)

// OrderHandlers serves the order intake endpoints
type OrderHandlers struct {
	service *trading.Service
	logger  *logger.Logger
}

// NewOrderHandlers creates the order handlers
func NewOrderHandlers(service *trading.Service, log *logger.Logger) *OrderHandlers {
	return &OrderHandlers{service: service, logger: log}
}

// Place handles POST /api/v1/orders
func (h *OrderHandlers) Place(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req entities.PlaceOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.service.PlaceOrder(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// List handles GET /api/v1/orders
func (h *OrderHandlers) List(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	status := entities.OrderStatus(c.Query("status"))
	params := pagination.Parse(c.Query("limit"), c.Query("offset"))

	orders, total, err := h.service.ListOrders(c.Request.Context(), userID, status, params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	page := pagination.NewPage(orders, params, len(orders))
	c.JSON(http.StatusOK, gin.H{
		"orders": page.Items,
		"limit":  page.Limit,
		"offset": page.Offset,
		"total":  total,
	})
}

// Get handles GET /api/v1/orders/:id
func (h *OrderHandlers) Get(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, nil, apperrors.ValidationError("invalid order id"))
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Cancel handles DELETE /api/v1/orders/:id
func (h *OrderHandlers) Cancel(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, nil, apperrors.ValidationError("invalid order id"))
		return
	}

	order, err := h.service.CancelOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
