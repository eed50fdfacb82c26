package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"rental-platform-api/models"
	"rental-platform-api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) InsertNotification(context.Context, *models.Notification) error {
	return errBackend
}

func TestNotificationServiceNotify(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewNotificationService(s, nil)
	svc.now = func() time.Time { return frozenNow }

	err := svc.Notify(context.Background(), 7, Notification{
		Type:    models.NotificationPredictiveAlert,
		Title:   "t",
		Message: "m",
	})
	require.NoError(t, err)

	rows := s.Notifications()
	require.Len(t, rows, 1)
	assert.Equal(t, uint(7), rows[0].UserID)
	assert.Equal(t, models.NotificationPredictiveAlert, rows[0].Type)
	assert.Equal(t, "m", rows[0].Message)
	assert.Equal(t, frozenNow, rows[0].CreatedAt)
	assert.False(t, rows[0].Read)
	assert.Nil(t, rows[0].DeliveredAt)
}

func TestNotificationServiceWriteFailure(t *testing.T) {
	svc := NewNotificationService(failingWriter{}, nil)

	err := svc.Notify(context.Background(), 7, Notification{Title: "t"})
	assert.True(t, errors.Is(err, errBackend))
}
