package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"rental-platform-api/models"

	"github.com/segmentio/kafka-go"
)

type memOutbox struct {
	rows      []models.Notification
	delivered map[uint]bool
	queryErr  error
	markErr   error
}

func newOutbox(n int) *memOutbox {
	box := &memOutbox{delivered: make(map[uint]bool)}
	for i := 1; i <= n; i++ {
		box.rows = append(box.rows, models.Notification{
			ID:        uint(i),
			UserID:    uint(100 + i%3),
			Type:      models.NotificationPredictiveAlert,
			Title:     "alerts",
			Message:   "msg",
			CreatedAt: time.Date(2025, 10, 15, 12, 0, i, 0, time.UTC),
		})
	}
	return box
}

func (b *memOutbox) PendingNotifications(_ context.Context, limit int) ([]models.Notification, error) {
	if b.queryErr != nil {
		return nil, b.queryErr
	}
	var out []models.Notification
	for _, n := range b.rows {
		if !b.delivered[n.ID] && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (b *memOutbox) MarkDelivered(_ context.Context, ids []uint, _ time.Time) error {
	if b.markErr != nil {
		return b.markErr
	}
	for _, id := range ids {
		b.delivered[id] = true
	}
	return nil
}

type memPublisher struct {
	msgs []kafka.Message
	err  error
}

func (p *memPublisher) Publish(_ context.Context, msgs ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCycleDrainsInBatches(t *testing.T) {
	box := newOutbox(7)
	pub := &memPublisher{}

	got := runCycle(context.Background(), box, pub, 3, quiet())

	if got != 7 {
		t.Fatalf("delivered = %d, want 7", got)
	}
	if len(pub.msgs) != 7 {
		t.Fatalf("published = %d, want 7", len(pub.msgs))
	}
	if len(box.delivered) != 7 {
		t.Errorf("marked = %d, want 7", len(box.delivered))
	}
	if again := runCycle(context.Background(), box, pub, 3, quiet()); again != 0 {
		t.Errorf("second cycle delivered %d, want 0", again)
	}
}

func TestRunCycleKeepsBatchOnPublishFailure(t *testing.T) {
	box := newOutbox(2)
	pub := &memPublisher{err: errors.New("broker down")}

	if got := runCycle(context.Background(), box, pub, 10, quiet()); got != 0 {
		t.Errorf("delivered = %d, want 0", got)
	}
	if len(box.delivered) != 0 {
		t.Errorf("nothing should be marked delivered, got %d", len(box.delivered))
	}
}

func TestRunCycleStopsOnOutboxErrors(t *testing.T) {
	box := newOutbox(2)
	box.queryErr = errors.New("db down")
	if got := runCycle(context.Background(), box, &memPublisher{}, 10, quiet()); got != 0 {
		t.Errorf("delivered = %d, want 0", got)
	}

	box = newOutbox(2)
	box.markErr = errors.New("db down")
	if got := runCycle(context.Background(), box, &memPublisher{}, 10, quiet()); got != 0 {
		t.Errorf("delivered = %d, want 0", got)
	}
}

func TestToMessages(t *testing.T) {
	rows := newOutbox(2).rows
	msgs, ids, err := toMessages(rows)
	if err != nil {
		t.Fatalf("toMessages: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("ids = %v, want [1 2]", ids)
	}
	if string(msgs[0].Key) != "101" {
		t.Errorf("key = %q, want %q", msgs[0].Key, "101")
	}
	if msgs[0].Topic != "" {
		t.Errorf("topic must be left to the writer, got %q", msgs[0].Topic)
	}

	var decoded PushMessage
	if err := json.Unmarshal(msgs[1].Value, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.NotificationID != 2 || decoded.UserID != 102 || decoded.Type != models.NotificationPredictiveAlert {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestLogPublisher(t *testing.T) {
	err := logPublisher{logger: quiet()}.Publish(context.Background(), kafka.Message{Key: []byte("1"), Value: []byte("{}")})
	if err != nil {
		t.Errorf("Publish err = %v", err)
	}
}
