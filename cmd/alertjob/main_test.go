package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"rental-platform-api/predictive"
	"rental-platform-api/services"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeDispatcher struct {
	report services.DispatchReport
	err    error
	calls  int
}

func (f *fakeDispatcher) RunOnce(context.Context) (services.DispatchReport, error) {
	f.calls++
	return f.report, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCycleRecordsReport(t *testing.T) {
	beforeUsers := testutil.ToFloat64(usersScanned)
	beforeSent := testutil.ToFloat64(notificationsSent)
	beforeFailed := testutil.ToFloat64(dispatchFailures)

	d := &fakeDispatcher{report: services.DispatchReport{Users: 4, Notified: 2, Failed: 1}}
	got := runCycle(context.Background(), d, discard())

	if got != d.report {
		t.Errorf("report = %+v, want %+v", got, d.report)
	}
	if diff := testutil.ToFloat64(usersScanned) - beforeUsers; diff != 4 {
		t.Errorf("users scanned delta = %v, want 4", diff)
	}
	if diff := testutil.ToFloat64(notificationsSent) - beforeSent; diff != 2 {
		t.Errorf("notifications delta = %v, want 2", diff)
	}
	if diff := testutil.ToFloat64(dispatchFailures) - beforeFailed; diff != 1 {
		t.Errorf("failures delta = %v, want 1", diff)
	}
}

func TestRunCycleCountsAbortedCycle(t *testing.T) {
	before := testutil.ToFloat64(dispatchFailures)

	d := &fakeDispatcher{err: errors.New("db down")}
	runCycle(context.Background(), d, discard())

	if diff := testutil.ToFloat64(dispatchFailures) - before; diff != 1 {
		t.Errorf("failures delta = %v, want 1", diff)
	}
	if d.calls != 1 {
		t.Errorf("calls = %d, want 1", d.calls)
	}
}

func TestRunCycleIgnoresCancellation(t *testing.T) {
	before := testutil.ToFloat64(dispatchFailures)

	runCycle(context.Background(), &fakeDispatcher{err: context.Canceled}, discard())

	if diff := testutil.ToFloat64(dispatchFailures) - before; diff != 0 {
		t.Errorf("failures delta = %v, want 0", diff)
	}
}

func TestNewEngine(t *testing.T) {
	engine, err := newEngine("")
	if err != nil {
		t.Fatalf("default engine: %v", err)
	}
	if got := engine.Model().ExpectedIntervalDays(predictive.CategoryHVAC); got != 180 {
		t.Errorf("default HVAC interval = %d, want 180", got)
	}

	path := filepath.Join(t.TempDir(), "risk.yaml")
	if err := os.WriteFile(path, []byte("categories:\n  HVAC:\n    intervalDays: 90\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	engine, err = newEngine(path)
	if err != nil {
		t.Fatalf("engine from file: %v", err)
	}
	if got := engine.Model().ExpectedIntervalDays(predictive.CategoryHVAC); got != 90 {
		t.Errorf("HVAC interval = %d, want 90", got)
	}

	if _, err := newEngine(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing risk model")
	}
}
