package services

import (
	"context"
	"fmt"
	"log/slog"

	"rental-platform-api/models"
	"rental-platform-api/predictive"
)

type OwnerLister interface {
	OwnersWithProperties(ctx context.Context) ([]uint, error)
}

type AlertSource interface {
	Alerts(ctx context.Context, ownerID uint) (predictive.AlertsResponse, error)
}

type DispatchReport struct {
	Users    int
	Notified int
	Failed   int
}

// AlertDispatcher sends each owner one summary notification per run when
// they have critical or urgent alerts.
type AlertDispatcher struct {
	owners   OwnerLister
	alerts   AlertSource
	notifier Notifier
	logger   *slog.Logger
}

func NewAlertDispatcher(owners OwnerLister, alerts AlertSource, notifier Notifier, logger *slog.Logger) *AlertDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertDispatcher{owners: owners, alerts: alerts, notifier: notifier, logger: logger}
}

// RunOnce walks every owner sequentially. A failure for one owner is logged
// and counted; it never stops the run. Only listing owners, or a cancelled
// context, returns an error.
func (d *AlertDispatcher) RunOnce(ctx context.Context) (DispatchReport, error) {
	var report DispatchReport

	owners, err := d.owners.OwnersWithProperties(ctx)
	if err != nil {
		return report, fmt.Errorf("list owners: %w", err)
	}

	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Users++

		notified, err := d.dispatch(ctx, ownerID)
		if err != nil {
			report.Failed++
			d.logger.ErrorContext(ctx, "alert dispatch failed", "user_id", ownerID, "error", err)
			continue
		}
		if notified {
			report.Notified++
		}
	}

	d.logger.InfoContext(ctx, "alert dispatch finished",
		"users", report.Users, "notified", report.Notified, "failed", report.Failed)
	return report, nil
}

func (d *AlertDispatcher) dispatch(ctx context.Context, ownerID uint) (bool, error) {
	resp, err := d.alerts.Alerts(ctx, ownerID)
	if err != nil {
		return false, err
	}
	if resp.CriticalCount+resp.UrgentCount == 0 {
		return false, nil
	}
	if err := d.notifier.Notify(ctx, ownerID, AlertSummary(resp)); err != nil {
		return false, err
	}
	return true, nil
}

// AlertSummary builds the notification text for one owner's alerts.
func AlertSummary(resp predictive.AlertsResponse) Notification {
	return Notification{
		Type:  models.NotificationPredictiveAlert,
		Title: "Predictive maintenance alerts",
		Message: fmt.Sprintf("You have %d critical and %d urgent maintenance alerts across your properties. Review them before they turn into repairs.",
			resp.CriticalCount, resp.UrgentCount),
	}
}
