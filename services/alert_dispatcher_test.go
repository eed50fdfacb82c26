package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"rental-platform-api/models"
	"rental-platform-api/predictive"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticOwners []uint

func (o staticOwners) OwnersWithProperties(context.Context) ([]uint, error) {
	return o, nil
}

type stubAlerts struct {
	responses map[uint]predictive.AlertsResponse
	errs      map[uint]error
}

func (s stubAlerts) Alerts(_ context.Context, ownerID uint) (predictive.AlertsResponse, error) {
	if err := s.errs[ownerID]; err != nil {
		return predictive.AlertsResponse{}, err
	}
	return s.responses[ownerID], nil
}

type recordingNotifier struct {
	sent map[uint][]Notification
	fail map[uint]bool
}

func (n *recordingNotifier) Notify(_ context.Context, userID uint, msg Notification) error {
	if n.fail[userID] {
		return errors.New("push rejected")
	}
	if n.sent == nil {
		n.sent = make(map[uint][]Notification)
	}
	n.sent[userID] = append(n.sent[userID], msg)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnce_IsolatesFailures(t *testing.T) {
	alerts := stubAlerts{
		responses: map[uint]predictive.AlertsResponse{
			1: {CriticalCount: 2, UrgentCount: 1},
			3: {TotalAlerts: 4},
			4: {UrgentCount: 1},
			5: {CriticalCount: 1},
		},
		errs: map[uint]error{2: errBackend},
	}
	notifier := &recordingNotifier{fail: map[uint]bool{5: true}}
	d := NewAlertDispatcher(staticOwners{1, 2, 3, 4, 5}, alerts, notifier, quietLogger())

	report, err := d.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DispatchReport{Users: 5, Notified: 2, Failed: 2}, report)
	require.Len(t, notifier.sent[1], 1)
	require.Len(t, notifier.sent[4], 1)
	assert.Empty(t, notifier.sent[3])
	assert.Contains(t, notifier.sent[1][0].Message, "2 critical and 1 urgent")
	assert.Equal(t, models.NotificationPredictiveAlert, notifier.sent[1][0].Type)
}

func TestRunOnce_OwnerListFailure(t *testing.T) {
	d := NewAlertDispatcher(failingLookup{}, stubAlerts{}, &recordingNotifier{}, quietLogger())

	_, err := d.RunOnce(context.Background())
	assert.True(t, errors.Is(err, errBackend))
}

func TestRunOnce_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewAlertDispatcher(staticOwners{1, 2}, stubAlerts{}, &recordingNotifier{}, quietLogger())

	report, err := d.RunOnce(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, report.Users)
}

func TestRunOnce_EndToEnd(t *testing.T) {
	s := testStore()
	svc := newTestPredictiveService(s, s)
	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	d := NewAlertDispatcher(s, svc.Projector(), NewNotificationService(s, nil), logger)
	report, err := d.RunOnce(context.Background())
	require.NoError(t, err)

	// Owner 8's property has no construction year and no history, so it is
	// scored at the default age and still lands in the critical band.
	assert.Equal(t, DispatchReport{Users: 2, Notified: 2}, report)

	var users []uint
	for _, n := range s.Notifications() {
		users = append(users, n.UserID)
		assert.Equal(t, models.NotificationPredictiveAlert, n.Type)
	}
	assert.Equal(t, []uint{7, 8}, users)
	assert.Contains(t, logs.String(), "alert dispatch finished")
}
