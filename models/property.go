package models

import (
	"time"

	"rental-platform-api/predictive"
)

type Property struct {
	ID               uint      `gorm:"column:id;primaryKey" json:"id"`
	OwnerID          uint      `gorm:"column:owner_id;index;not null" json:"owner_id"`
	Title            string    `gorm:"column:title;not null" json:"title"`
	Address          string    `gorm:"column:address" json:"address"`
	ConstructionYear *int      `gorm:"column:construction_year" json:"construction_year"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Property) TableName() string { return "properties" }

func (p Property) Summary() predictive.PropertySummary {
	return predictive.PropertySummary{
		ID:               p.ID,
		Title:            p.Title,
		Address:          p.Address,
		ConstructionYear: p.ConstructionYear,
		OwnerID:          p.OwnerID,
	}
}
