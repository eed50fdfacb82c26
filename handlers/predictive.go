package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"rental-platform-api/logging"
	"rental-platform-api/middleware"
	"rental-platform-api/predictive"
	"rental-platform-api/services"

	"github.com/gin-gonic/gin"
)

const defaultMaxMonthsAhead = 24

// PredictiveService is implemented by services.PredictiveService.
type PredictiveService interface {
	GetPropertyPredictions(ctx context.Context, propertyID, userID uint, monthsAhead int) (predictive.PropertyPrediction, error)
	GetPortfolioPredictions(ctx context.Context, userID uint, monthsAhead int) (predictive.PortfolioSummary, error)
	GetAlerts(ctx context.Context, userID uint) (predictive.AlertsResponse, error)
	GetPropertyHistory(ctx context.Context, propertyID, userID uint) (predictive.HistorySummary, error)
}

type PredictiveHandler struct {
	service   PredictiveService
	maxMonths int
}

// NewPredictiveHandler rejects monthsAhead above maxMonths; a non-positive
// maxMonths means 24.
func NewPredictiveHandler(service PredictiveService, maxMonths int) *PredictiveHandler {
	if maxMonths <= 0 {
		maxMonths = defaultMaxMonthsAhead
	}
	return &PredictiveHandler{service: service, maxMonths: maxMonths}
}

func (h *PredictiveHandler) PropertyPredictions(c *gin.Context) {
	userID, propertyID, ok := h.propertyRequest(c)
	if !ok {
		return
	}
	months, ok := h.parseMonthsAhead(c)
	if !ok {
		return
	}

	resp, err := h.service.GetPropertyPredictions(c.Request.Context(), propertyID, userID, months)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PredictiveHandler) PropertyHistory(c *gin.Context) {
	userID, propertyID, ok := h.propertyRequest(c)
	if !ok {
		return
	}

	resp, err := h.service.GetPropertyHistory(c.Request.Context(), propertyID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PredictiveHandler) Portfolio(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	months, ok := h.parseMonthsAhead(c)
	if !ok {
		return
	}

	resp, err := h.service.GetPortfolioPredictions(c.Request.Context(), userID, months)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PredictiveHandler) Alerts(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	resp, err := h.service.GetAlerts(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PredictiveHandler) propertyRequest(c *gin.Context) (userID, propertyID uint, ok bool) {
	userID, ok = middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, 0, false
	}
	propertyID, ok = parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return 0, 0, false
	}
	return userID, propertyID, true
}

// parseMonthsAhead returns 0 when the parameter is absent so the service
// falls back to its default.
func (h *PredictiveHandler) parseMonthsAhead(c *gin.Context) (int, bool) {
	raw := c.Query("monthsAhead")
	if raw == "" {
		return 0, true
	}
	months, err := strconv.Atoi(raw)
	if err != nil || months < 1 || months > h.maxMonths {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("monthsAhead must be an integer between 1 and %d", h.maxMonths)})
		return 0, false
	}
	return months, true
}

func respondServiceError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return
	}
	logging.FromContext(c.Request.Context()).Error("predictive request failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute predictions"})
}
