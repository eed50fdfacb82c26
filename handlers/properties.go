package handlers

import (
	"errors"
	"net/http"
	"time"

	"rental-platform-api/middleware"
	"rental-platform-api/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PropertyHandler struct {
	db *gorm.DB
}

func NewPropertyHandler(db *gorm.DB) *PropertyHandler {
	return &PropertyHandler{db: db}
}

type CreatePropertyRequest struct {
	Title            string `json:"title" binding:"required,max=200"`
	Address          string `json:"address" binding:"max=500"`
	ConstructionYear *int   `json:"construction_year" binding:"omitempty,min=1600"`
}

func (h *PropertyHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ConstructionYear != nil && *req.ConstructionYear > time.Now().Year() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "construction_year is in the future"})
		return
	}

	property := models.Property{
		OwnerID:          userID,
		Title:            req.Title,
		Address:          req.Address,
		ConstructionYear: req.ConstructionYear,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&property).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create property"})
		return
	}

	c.JSON(http.StatusCreated, property)
}

func (h *PropertyHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	p := ParsePagination(c)

	query := h.db.WithContext(c.Request.Context()).
		Where("owner_id = ?", userID).
		Order("created_at DESC").
		Limit(p.Limit + 1)
	if p.Before != nil {
		query = query.Where("created_at < ?", *p.Before)
	}

	var rows []models.Property
	if err := query.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	c.JSON(http.StatusOK, pageOf(rows, p.Limit, func(prop models.Property) time.Time { return prop.CreatedAt }))
}

func (h *PropertyHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}

	property, err := ownedProperty(h.db.WithContext(c.Request.Context()), id, userID)
	if err != nil {
		respondLookupError(c, err, "property not found")
		return
	}
	c.JSON(http.StatusOK, property)
}

// ownedProperty loads a property only if userID owns it. Foreign properties
// look exactly like missing ones.
func ownedProperty(db *gorm.DB, id, userID uint) (models.Property, error) {
	var property models.Property
	err := db.Where("id = ? AND owner_id = ?", id, userID).First(&property).Error
	return property, err
}

func respondLookupError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
}
