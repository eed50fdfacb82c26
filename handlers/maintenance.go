package handlers

import (
	"context"
	"net/http"
	"time"

	"rental-platform-api/logging"
	"rental-platform-api/middleware"
	"rental-platform-api/models"
	"rental-platform-api/predictive"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PortfolioInvalidator drops cached predictions once history changes.
type PortfolioInvalidator interface {
	InvalidatePortfolio(ctx context.Context, ownerID uint) error
}

type MaintenanceHandler struct {
	db          *gorm.DB
	invalidator PortfolioInvalidator
}

func NewMaintenanceHandler(db *gorm.DB, invalidator PortfolioInvalidator) *MaintenanceHandler {
	return &MaintenanceHandler{db: db, invalidator: invalidator}
}

type CreateMaintenanceRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=4000"`
	Category    string `json:"category" binding:"required"`
}

type CompleteMaintenanceRequest struct {
	ActualCost *decimal.Decimal `json:"actual_cost"`
}

func (h *MaintenanceHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	propertyID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}

	var req CreateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category, err := predictive.ParseCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := ownedProperty(h.db.WithContext(ctx), propertyID, userID); err != nil {
		respondLookupError(c, err, "property not found")
		return
	}

	reporter := userID
	request := models.MaintenanceRequest{
		PropertyID:  propertyID,
		ReportedBy:  &reporter,
		Title:       req.Title,
		Description: req.Description,
		Category:    string(category),
		Status:      models.StatusOpen,
		Source:      models.SourceTenant,
	}
	if err := h.db.WithContext(ctx).Create(&request).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create maintenance request"})
		return
	}

	h.invalidate(ctx, userID)
	c.JSON(http.StatusCreated, request)
}

func (h *MaintenanceHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	propertyID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}

	ctx := c.Request.Context()
	if _, err := ownedProperty(h.db.WithContext(ctx), propertyID, userID); err != nil {
		respondLookupError(c, err, "property not found")
		return
	}

	p := ParsePagination(c)
	query := h.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("created_at DESC").
		Limit(p.Limit + 1)
	if p.Before != nil {
		query = query.Where("created_at < ?", *p.Before)
	}
	if raw := c.Query("category"); raw != "" {
		category, err := predictive.ParseCategory(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		query = query.Where("category = ?", string(category))
	}

	var rows []models.MaintenanceRequest
	if err := query.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	c.JSON(http.StatusOK, pageOf(rows, p.Limit, func(r models.MaintenanceRequest) time.Time { return r.CreatedAt }))
}

// Complete closes a request and records what it cost.
func (h *MaintenanceHandler) Complete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid maintenance request id"})
		return
	}

	var req CompleteMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ActualCost != nil && req.ActualCost.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actual_cost must not be negative"})
		return
	}

	ctx := c.Request.Context()
	var request models.MaintenanceRequest
	err := h.db.WithContext(ctx).
		Joins("JOIN properties ON properties.id = maintenance_requests.property_id").
		Where("maintenance_requests.id = ? AND properties.owner_id = ?", id, userID).
		First(&request).Error
	if err != nil {
		respondLookupError(c, err, "maintenance request not found")
		return
	}
	if request.Status == models.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "maintenance request already completed"})
		return
	}

	now := time.Now()
	request.Status = models.StatusCompleted
	request.CompletedAt = &now
	if req.ActualCost != nil {
		request.ActualCost = decimal.NewNullDecimal(req.ActualCost.Round(2))
	}
	if err := h.db.WithContext(ctx).Save(&request).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update maintenance request"})
		return
	}

	h.invalidate(ctx, userID)
	c.JSON(http.StatusOK, request)
}

func (h *MaintenanceHandler) invalidate(ctx context.Context, ownerID uint) {
	if h.invalidator == nil {
		return
	}
	if err := h.invalidator.InvalidatePortfolio(ctx, ownerID); err != nil {
		logging.FromContext(ctx).Warn("invalidate portfolio cache failed", "user_id", ownerID, "error", err)
	}
}
