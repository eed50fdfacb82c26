package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestDisabledCache(t *testing.T) {
	ctx := context.Background()
	caches := map[string]*CacheService{
		"nil service": nil,
		"no client":   NewCacheServiceWithClient(nil),
	}
	for name, cache := range caches {
		t.Run(name, func(t *testing.T) {
			if cache.Available() {
				t.Fatal("expected cache to be unavailable")
			}

			var dest map[string]int
			if err := cache.Get(ctx, "k", &dest); !errors.Is(err, redis.Nil) {
				t.Errorf("Get err = %v, want redis.Nil", err)
			}
			if err := cache.Set(ctx, "k", 1, time.Minute); err != nil {
				t.Errorf("Set err = %v", err)
			}
			if err := cache.Delete(ctx, "k"); err != nil {
				t.Errorf("Delete err = %v", err)
			}
			if err := cache.Publish(ctx, "c", "m"); err != nil {
				t.Errorf("Publish err = %v", err)
			}
			if sub := cache.Subscribe(ctx, "c"); sub != nil {
				t.Error("Subscribe should return nil without redis")
			}
			if err := cache.Close(); err != nil {
				t.Errorf("Close err = %v", err)
			}
		})
	}
}

func TestNotificationChannel(t *testing.T) {
	if got := NotificationChannel(42); got != "rental:notifications:42" {
		t.Errorf("NotificationChannel(42) = %q", got)
	}
}
