package services

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"rental-platform-api/predictive"
	"rental-platform-api/store"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCache mimics redis string semantics: values are stored as JSON and
// counters as decimal strings.
type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
	sets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (m *memoryCache) Available() bool { return true }

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return redis.Nil
	}
	return json.Unmarshal([]byte(v), dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = string(data)
	m.sets++
	return nil
}

func (m *memoryCache) Int(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func (m *memoryCache) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.values[key], 10, 64)
	n++
	m.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *memoryCache) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// hookedHistory runs afterFirst once, right after serving the first history read.
type hookedHistory struct {
	*store.MemoryStore
	once       sync.Once
	afterFirst func()
}

func (h *hookedHistory) MaintenanceHistory(ctx context.Context, propertyID uint, c predictive.Category) ([]predictive.MaintenanceRecord, error) {
	records, err := h.MemoryStore.MaintenanceHistory(ctx, propertyID, c)
	h.once.Do(func() {
		if h.afterFirst != nil {
			h.afterFirst()
		}
	})
	return records, err
}

func cachedTestService(s *store.MemoryStore, history predictive.HistoryLookup, cache CacheStore) *PredictiveService {
	cfg := testPredictionConfig()
	cfg.CacheTTL = time.Minute
	return NewPredictiveService(predictive.NewEngine(nil), s, history, cache, cfg,
		predictive.WithClock(func() time.Time { return frozenNow }))
}

func oldMillPredictions(t *testing.T, summary predictive.PortfolioSummary) int {
	t.Helper()
	for _, p := range summary.Properties {
		if p.PropertyID == 1 {
			return len(p.Predictions)
		}
	}
	t.Fatalf("property 1 missing from portfolio")
	return 0
}

// A fresh plumbing repair on the 1960 property drops plumbing below the
// reporting threshold, leaving 8 of 9 categories.
func recentPlumbing() predictive.MaintenanceRecord {
	return costRecord(predictive.CategoryPlumbing, frozenNow.AddDate(0, 0, -1), 150)
}

func TestPortfolioCacheServesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	s := testStore()
	cache := newMemoryCache()
	svc := cachedTestService(s, s, cache)

	first, err := svc.GetPortfolioPredictions(ctx, 7, 6)
	require.NoError(t, err)
	assert.Equal(t, 9, oldMillPredictions(t, first))
	assert.Equal(t, 1, cache.setCount())

	s.AddRecord(1, recentPlumbing())

	cached, err := svc.GetPortfolioPredictions(ctx, 7, 6)
	require.NoError(t, err)
	assert.Equal(t, 9, oldMillPredictions(t, cached), "served from cache")
	assert.Equal(t, 1, cache.setCount())

	require.NoError(t, svc.InvalidatePortfolio(ctx, 7))

	fresh, err := svc.GetPortfolioPredictions(ctx, 7, 6)
	require.NoError(t, err)
	assert.Equal(t, 8, oldMillPredictions(t, fresh))
}

func TestPortfolioCacheDropsSummaryInvalidatedWhileComputing(t *testing.T) {
	ctx := context.Background()
	s := testStore()
	cache := newMemoryCache()
	history := &hookedHistory{MemoryStore: s}
	svc := cachedTestService(s, history, cache)

	// A repair lands and invalidates after the first read has already loaded
	// the old history.
	history.afterFirst = func() {
		s.AddRecord(1, recentPlumbing())
		require.NoError(t, svc.InvalidatePortfolio(ctx, 7))
	}

	stale, err := svc.GetPortfolioPredictions(ctx, 7, 6)
	require.NoError(t, err)
	assert.Equal(t, 9, oldMillPredictions(t, stale))

	next, err := svc.GetPortfolioPredictions(ctx, 7, 6)
	require.NoError(t, err)
	assert.Equal(t, 8, oldMillPredictions(t, next))
}

func TestPortfolioCacheGenerations(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()
	pc := NewPortfolioCache(cache, time.Minute)

	gen, err := pc.Generation(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, gen)

	require.NoError(t, pc.Invalidate(ctx, 7))
	require.NoError(t, pc.Store(ctx, 7, 6, gen, predictive.PortfolioSummary{TotalProperties: 2}))

	_, ok := pc.Load(ctx, 7, 6)
	assert.False(t, ok, "summary stored under a retired generation")

	gen, err = pc.Generation(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	require.NoError(t, pc.Store(ctx, 7, 6, gen, predictive.PortfolioSummary{TotalProperties: 2}))

	got, ok := pc.Load(ctx, 7, 6)
	require.True(t, ok)
	assert.Equal(t, 2, got.TotalProperties)

	_, ok = pc.Load(ctx, 8, 6)
	assert.False(t, ok, "generations are per owner")
}

func TestPortfolioCacheDisabled(t *testing.T) {
	ctx := context.Background()

	for name, pc := range map[string]*PortfolioCache{
		"nil store":       NewPortfolioCache(nil, time.Minute),
		"redis down":      NewPortfolioCache(NewCacheServiceWithClient(nil), time.Minute),
		"zero ttl":        NewPortfolioCache(newMemoryCache(), 0),
		"nil cache value": nil,
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, pc.Store(ctx, 7, 6, 0, predictive.PortfolioSummary{TotalProperties: 1}))
			_, ok := pc.Load(ctx, 7, 6)
			assert.False(t, ok)
			assert.NoError(t, pc.Invalidate(ctx, 7))
		})
	}
}
