package models

import (
	"time"

	"rental-platform-api/predictive"

	"github.com/shopspring/decimal"
)

const (
	StatusOpen       = "OPEN"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"

	SourceTenant = "tenant"
	SourceSensor = "sensor"
)

type MaintenanceRequest struct {
	ID          uint                `gorm:"column:id;primaryKey" json:"id"`
	PropertyID  uint                `gorm:"column:property_id;index:idx_maintenance_property_created,priority:1;not null" json:"property_id"`
	ReportedBy  *uint               `gorm:"column:reported_by" json:"reported_by,omitempty"`
	Title       string              `gorm:"column:title;not null" json:"title"`
	Description string              `gorm:"column:description" json:"description"`
	Category    string              `gorm:"column:category;index;not null" json:"category"`
	Status      string              `gorm:"column:status;not null;default:OPEN" json:"status"`
	Source      string              `gorm:"column:source;not null;default:tenant" json:"source"`
	SensorID    *string             `gorm:"column:sensor_id" json:"sensor_id,omitempty"`
	ActualCost  decimal.NullDecimal `gorm:"column:actual_cost;type:numeric(12,2)" json:"actual_cost"`
	CompletedAt *time.Time          `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time           `gorm:"column:created_at;index:idx_maintenance_property_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"column:updated_at" json:"updated_at"`
}

func (MaintenanceRequest) TableName() string { return "maintenance_requests" }

func (m MaintenanceRequest) Record() predictive.MaintenanceRecord {
	return predictive.MaintenanceRecord{
		Category:    predictive.Category(m.Category),
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
		ActualCost:  m.ActualCost,
	}
}
