package models

import "time"

const (
	NotificationPredictiveAlert = "PREDICTIVE_MAINTENANCE_ALERT"
	NotificationSensorFault     = "SENSOR_FAULT"
)

type Notification struct {
	ID          uint       `gorm:"column:id;primaryKey" json:"id"`
	UserID      uint       `gorm:"column:user_id;index;not null" json:"user_id"`
	Type        string     `gorm:"column:type;not null" json:"type"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Message     string     `gorm:"column:message;not null" json:"message"`
	Read        bool       `gorm:"column:read;not null;default:false" json:"read"`
	DeliveredAt *time.Time `gorm:"column:delivered_at;index" json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;index" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
