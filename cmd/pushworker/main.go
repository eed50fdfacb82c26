package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"rental-platform-api/config"
	"rental-platform-api/logging"
	"rental-platform-api/models"
	"rental-platform-api/store/pgstore"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
)

// PushMessage is the record written to the notifications topic, keyed by user.
type PushMessage struct {
	NotificationID uint      `json:"notification_id"`
	UserID         uint      `json:"user_id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

var (
	pushDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_pushworker_notifications_delivered_total",
		Help: "Total number of notifications written to the push topic.",
	})
	pushFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_pushworker_failures_total",
		Help: "Total number of failed delivery batches.",
	})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rental_pushworker_cycle_duration_seconds",
		Help:    "Duration of a full delivery cycle.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	})
)

type outbox interface {
	PendingNotifications(ctx context.Context, limit int) ([]models.Notification, error)
	MarkDelivered(ctx context.Context, ids []uint, at time.Time) error
}

type publisher interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

func newKafkaPublisher(cfg config.KafkaConfig) *kafkaPublisher {
	return &kafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            5,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}}
}

func (p *kafkaPublisher) Publish(ctx context.Context, msgs ...kafka.Message) error {
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// logPublisher stands in for kafka in environments without brokers.
type logPublisher struct {
	logger *slog.Logger
}

func (p logPublisher) Publish(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		p.logger.Info("push notification", "key", string(m.Key), "payload", string(m.Value))
	}
	return nil
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
	logger = logger.With("service", "pushworker")

	pool, err := pgstore.Connect(ctx, cfg.Database.GetDSN())
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var pub publisher = logPublisher{logger: logger}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := newKafkaPublisher(cfg.Kafka)
		defer kp.Close()
		pub = kp
		logger.Info("kafka producer ready", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		logger.Warn("no KAFKA_BROKERS configured, notifications will only be logged")
	}

	go serveHTTP(cfg.PushWorker.MetricsAddr, logger)

	box := pgstore.New(pool)
	logger.Info("push worker running", "interval", cfg.PushWorker.PollInterval, "batch_size", cfg.PushWorker.BatchSize)

	runCycle(ctx, box, pub, cfg.PushWorker.BatchSize, logger)

	ticker := time.NewTicker(cfg.PushWorker.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCycle(ctx, box, pub, cfg.PushWorker.BatchSize, logger)
		case <-ctx.Done():
			logger.Info("push worker shutting down")
			return
		}
	}
}

// runCycle drains the outbox batch by batch. A batch is marked delivered only
// after the publisher accepted all of it, so a failure is retried next cycle.
func runCycle(ctx context.Context, box outbox, pub publisher, batchSize int, logger *slog.Logger) int {
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
	}()

	if batchSize <= 0 {
		batchSize = 100
	}

	delivered := 0
	for ctx.Err() == nil {
		pending, err := box.PendingNotifications(ctx, batchSize)
		if err != nil {
			pushFailed.Inc()
			logger.Error("query pending notifications failed", "error", err)
			break
		}
		if len(pending) == 0 {
			break
		}

		msgs, ids, err := toMessages(pending)
		if err != nil {
			pushFailed.Inc()
			logger.Error("encode notifications failed", "error", err)
			break
		}
		if err := pub.Publish(ctx, msgs...); err != nil {
			pushFailed.Inc()
			logger.Error("publish notifications failed", "count", len(msgs), "error", err)
			break
		}
		if err := box.MarkDelivered(ctx, ids, time.Now().UTC()); err != nil {
			pushFailed.Inc()
			logger.Error("mark delivered failed", "count", len(ids), "error", err)
			break
		}

		delivered += len(ids)
		pushDelivered.Add(float64(len(ids)))
		if len(pending) < batchSize {
			break
		}
	}

	if delivered > 0 {
		logger.Info("delivery cycle completed", "delivered", delivered, "duration", time.Since(start))
	}
	return delivered
}

func toMessages(rows []models.Notification) ([]kafka.Message, []uint, error) {
	msgs := make([]kafka.Message, 0, len(rows))
	ids := make([]uint, 0, len(rows))
	for _, n := range rows {
		data, err := json.Marshal(PushMessage{
			NotificationID: n.ID,
			UserID:         n.UserID,
			Type:           n.Type,
			Title:          n.Title,
			Message:        n.Message,
			CreatedAt:      n.CreatedAt,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("marshal notification %d: %w", n.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatUint(uint64(n.UserID), 10)),
			Value: data,
		})
		ids = append(ids, n.ID)
	}
	return msgs, ids, nil
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
