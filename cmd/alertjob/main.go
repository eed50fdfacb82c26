package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-platform-api/config"
	"rental-platform-api/logging"
	"rental-platform-api/predictive"
	"rental-platform-api/services"
	"rental-platform-api/store/pgstore"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	usersScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_alertjob_users_scanned_total",
		Help: "Total number of owners evaluated for predictive alerts.",
	})
	notificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_alertjob_notifications_sent_total",
		Help: "Total number of alert summary notifications dispatched.",
	})
	dispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_alertjob_failures_total",
		Help: "Total number of per-owner failures and failed cycles.",
	})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rental_alertjob_cycle_duration_seconds",
		Help:    "Duration of a full alert dispatch cycle.",
		Buckets: []float64{0.5, 1, 5, 15, 60, 300},
	})
)

type dispatcher interface {
	RunOnce(ctx context.Context) (services.DispatchReport, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}
	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		slog.Error("logger init failed", "error", err)
		os.Exit(1)
	}
	logger = logger.With("service", "alertjob")

	engine, err := newEngine(cfg.Prediction.RiskModelPath)
	if err != nil {
		logger.Error("risk model load failed", "path", cfg.Prediction.RiskModelPath, "error", err)
		os.Exit(1)
	}

	pool, err := pgstore.Connect(ctx, cfg.Database.GetDSN())
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("db connected")

	// Notifications are still stored without redis; only live fan-out is lost.
	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, live notifications disabled", "error", err)
	}
	defer cache.Close()

	db := pgstore.New(pool)
	aggregator := predictive.NewAggregator(engine, db, db,
		predictive.WithDefaultPropertyAge(cfg.Prediction.DefaultPropertyAge))
	projector := predictive.NewAlertProjector(aggregator).WithHorizon(cfg.Prediction.AlertHorizonMonths)
	d := services.NewAlertDispatcher(db, projector, services.NewNotificationService(db, cache), logger)

	go serveHTTP(cfg.AlertJob.MetricsAddr, logger)

	logger.Info("alert job running", "interval", cfg.AlertJob.Interval, "horizon_months", cfg.Prediction.AlertHorizonMonths)

	runCycle(ctx, d, logger)

	ticker := time.NewTicker(cfg.AlertJob.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCycle(ctx, d, logger)
		case <-ctx.Done():
			logger.Info("alert job shutting down")
			return
		}
	}
}

func newEngine(riskModelPath string) (*predictive.Engine, error) {
	if riskModelPath == "" {
		return predictive.NewEngine(nil), nil
	}
	model, err := predictive.LoadRiskModel(riskModelPath)
	if err != nil {
		return nil, err
	}
	return predictive.NewEngine(model), nil
}

func runCycle(ctx context.Context, d dispatcher, logger *slog.Logger) services.DispatchReport {
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
	}()

	report, err := d.RunOnce(ctx)
	usersScanned.Add(float64(report.Users))
	notificationsSent.Add(float64(report.Notified))
	dispatchFailures.Add(float64(report.Failed))

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			dispatchFailures.Inc()
		}
		logger.Error("alert cycle aborted", "error", err, "users", report.Users)
		return report
	}

	logger.Info("alert cycle completed",
		"users", report.Users,
		"notified", report.Notified,
		"failed", report.Failed,
		"duration", time.Since(start))
	return report
}

func serveHTTP(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("metrics server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", "error", err)
		os.Exit(1)
	}
}
