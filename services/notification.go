package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rental-platform-api/models"
)

type Notification struct {
	Type    string
	Title   string
	Message string
}

// Notifier delivers a message to one user.
type Notifier interface {
	Notify(ctx context.Context, userID uint, n Notification) error
}

// NotificationWriter persists notification rows. GormStore and pgstore.Store
// both satisfy it.
type NotificationWriter interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
}

// NotificationService stores a notification and fans it out over redis to any
// open websocket for the user. A failed publish is logged, not returned: the
// row is already saved and the push worker will still deliver it.
type NotificationService struct {
	writer NotificationWriter
	cache  *CacheService
	now    func() time.Time
}

func NewNotificationService(writer NotificationWriter, cache *CacheService) *NotificationService {
	return &NotificationService{writer: writer, cache: cache, now: time.Now}
}

func (s *NotificationService) Notify(ctx context.Context, userID uint, n Notification) error {
	row := &models.Notification{
		UserID:    userID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: s.now(),
	}
	if err := s.writer.InsertNotification(ctx, row); err != nil {
		return fmt.Errorf("store notification for user %d: %w", userID, err)
	}

	if err := s.cache.Publish(ctx, NotificationChannel(userID), row); err != nil {
		slog.WarnContext(ctx, "publish notification failed", "user_id", userID, "notification_id", row.ID, "error", err)
	}
	return nil
}
