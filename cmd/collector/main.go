package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rental-platform-api/config"
	"rental-platform-api/logging"
	"rental-platform-api/models"
	"rental-platform-api/predictive"
	"rental-platform-api/services"
	"rental-platform-api/store/pgstore"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FaultPayload is what a property sensor publishes when it detects a fault.
type FaultPayload struct {
	TS          string `json:"ts"`
	SensorID    string `json:"sensor_id"`
	PropertyID  uint   `json:"property_id"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

var (
	msgsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_collector_messages_received_total",
		Help: "Total number of MQTT messages received by collector.",
	})
	msgsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_collector_requests_opened_total",
		Help: "Total number of maintenance requests opened from sensor faults.",
	})
	msgsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_collector_messages_duplicate_total",
		Help: "Total number of faults skipped because the sensor already has an open request.",
	})
	msgsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_collector_messages_failed_total",
		Help: "Total number of messages rejected or failed to store.",
	})
)

type faultSink interface {
	Property(ctx context.Context, id uint) (predictive.PropertySummary, error)
	OpenSensorRequestExists(ctx context.Context, propertyID uint, sensorID string) (bool, error)
	InsertMaintenanceRequest(ctx context.Context, r *models.MaintenanceRequest) error
}

// portfolioInvalidator retires the owner's cached portfolio predictions.
type portfolioInvalidator interface {
	Invalidate(ctx context.Context, ownerID uint) error
}

type outcome int

const (
	outcomeStored outcome = iota
	outcomeDuplicate
	outcomeRejected
	outcomeFailed
)

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
	logger = logger.With("service", "collector")

	pool, err := pgstore.Connect(ctx, cfg.Database.GetDSN())
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, owners will not get live fault notifications", "error", err)
	}
	defer cache.Close()

	db := pgstore.New(pool)
	notifier := services.NewNotificationService(db, cache)
	portfolios := services.NewPortfolioCache(cache, cfg.Prediction.CacheTTL)

	go serveHTTP(cfg.MQTT.MetricsAddr, logger)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.URL)
	opts.SetClientID("rental-collector-" + time.Now().Format("20060102150405"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetDefaultPublishHandler(func(client mqtt.Client, message mqtt.Message) {
		processMessage(ctx, db, portfolios, notifier, message.Payload(), logger)
	})
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(cfg.MQTT.Topic, 1, nil)
		token.Wait()
		if token.Error() != nil {
			logger.Error("mqtt subscribe failed", "topic", cfg.MQTT.Topic, "error", token.Error())
			return
		}
		logger.Info("collector subscribed", "topic", cfg.MQTT.Topic)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if token.Error() != nil {
		logger.Error("mqtt connection failed", "url", cfg.MQTT.URL, "error", token.Error())
		os.Exit(1)
	}

	logger.Info("collector running", "mqtt", cfg.MQTT.URL)

	<-ctx.Done()
	logger.Info("collector shutting down")
	client.Disconnect(250)
}

func serveHTTP(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
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

// parseFault validates a raw payload. A missing or malformed ts falls back to now.
func parseFault(raw []byte, now time.Time) (FaultPayload, predictive.Category, time.Time, error) {
	var payload FaultPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return FaultPayload{}, "", time.Time{}, fmt.Errorf("invalid payload: %w", err)
	}
	if payload.SensorID == "" || payload.PropertyID == 0 {
		return FaultPayload{}, "", time.Time{}, errors.New("missing sensor_id or property_id")
	}
	category, err := predictive.ParseCategory(payload.Category)
	if err != nil {
		return FaultPayload{}, "", time.Time{}, err
	}

	ts := now.UTC()
	if payload.TS != "" {
		if parsed, err := time.Parse(time.RFC3339, payload.TS); err == nil {
			ts = parsed.UTC()
		}
	}
	return payload, category, ts, nil
}

func processMessage(ctx context.Context, sink faultSink, portfolios portfolioInvalidator, notifier services.Notifier, raw []byte, logger *slog.Logger) outcome {
	msgsReceived.Inc()

	payload, category, ts, err := parseFault(raw, time.Now())
	if err != nil {
		msgsFailed.Inc()
		logger.Warn("rejected sensor payload", "error", err)
		return outcomeRejected
	}
	log := logger.With("sensor_id", payload.SensorID, "property_id", payload.PropertyID)

	property, err := sink.Property(ctx, payload.PropertyID)
	if errors.Is(err, predictive.ErrPropertyNotFound) {
		msgsFailed.Inc()
		log.Warn("sensor reported for unknown property")
		return outcomeRejected
	}
	if err != nil {
		msgsFailed.Inc()
		log.Error("property lookup failed", "error", err)
		return outcomeFailed
	}

	open, err := sink.OpenSensorRequestExists(ctx, payload.PropertyID, payload.SensorID)
	if err != nil {
		msgsFailed.Inc()
		log.Error("open request lookup failed", "error", err)
		return outcomeFailed
	}
	if open {
		msgsDuplicate.Inc()
		log.Debug("sensor already has an open request")
		return outcomeDuplicate
	}

	sensorID := payload.SensorID
	request := &models.MaintenanceRequest{
		PropertyID:  payload.PropertyID,
		Title:       fmt.Sprintf("%s fault reported by sensor %s", category.Label(), sensorID),
		Description: strings.TrimSpace(payload.Description),
		Category:    string(category),
		Status:      models.StatusOpen,
		Source:      models.SourceSensor,
		SensorID:    &sensorID,
		CreatedAt:   ts,
	}
	if err := sink.InsertMaintenanceRequest(ctx, request); err != nil {
		msgsFailed.Inc()
		log.Error("insert maintenance request failed", "error", err)
		return outcomeFailed
	}
	msgsStored.Inc()

	if err := portfolios.Invalidate(ctx, property.OwnerID); err != nil {
		log.Warn("portfolio cache invalidation failed", "owner_id", property.OwnerID, "error", err)
	}

	err = notifier.Notify(ctx, property.OwnerID, services.Notification{
		Type:    models.NotificationSensorFault,
		Title:   fmt.Sprintf("%s fault at %s", category.Label(), property.Title),
		Message: request.Title + ". A maintenance request has been opened.",
	})
	if err != nil {
		log.Warn("owner notification failed", "request_id", request.ID, "error", err)
	}

	log.Info("maintenance request opened", "request_id", request.ID, "category", category)
	return outcomeStored
}
