package store

import (
	"context"
	"errors"

	"rental-platform-api/models"
	"rental-platform-api/predictive"

	"gorm.io/gorm"
)

// GormStore serves the prediction lookups from the API's gorm connection.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Property(ctx context.Context, id uint) (predictive.PropertySummary, error) {
	var p models.Property
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return predictive.PropertySummary{}, predictive.ErrPropertyNotFound
		}
		return predictive.PropertySummary{}, err
	}
	return p.Summary(), nil
}

func (s *GormStore) PropertiesByOwner(ctx context.Context, ownerID uint) ([]predictive.PropertySummary, error) {
	var rows []models.Property
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]predictive.PropertySummary, len(rows))
	for i, p := range rows {
		out[i] = p.Summary()
	}
	return out, nil
}

func (s *GormStore) OwnersWithProperties(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.Property{}).
		Distinct("owner_id").
		Order("owner_id ASC").
		Pluck("owner_id", &ids).Error
	return ids, err
}

func (s *GormStore) MaintenanceHistory(ctx context.Context, propertyID uint, category predictive.Category) ([]predictive.MaintenanceRecord, error) {
	q := s.db.WithContext(ctx).Where("property_id = ?", propertyID)
	if category != "" {
		q = q.Where("category = ?", string(category))
	}
	var rows []models.MaintenanceRequest
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]predictive.MaintenanceRecord, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out, nil
}

func (s *GormStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}
