package services

import (
	"context"
	"errors"
	"time"

	"rental-platform-api/config"
	"rental-platform-api/predictive"
	"rental-platform-api/store"

	"github.com/shopspring/decimal"
)

var frozenNow = time.Date(2025, time.October, 15, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func testPredictionConfig() config.PredictionConfig {
	return config.PredictionConfig{
		DefaultPropertyAge: 20,
		DefaultMonthsAhead: 6,
		MaxMonthsAhead:     24,
		AlertHorizonMonths: 3,
	}
}

// testStore: owner 7 holds an old unmaintained house and a brand new flat,
// owner 8 holds one property.
func testStore() *store.MemoryStore {
	s := store.NewMemoryStore()
	s.AddProperty(predictive.PropertySummary{ID: 1, Title: "Old Mill", Address: "3 Weir Ln", ConstructionYear: intPtr(1960), OwnerID: 7})
	s.AddProperty(predictive.PropertySummary{ID: 2, Title: "New Flat", Address: "12 Dock Rd", ConstructionYear: intPtr(2025), OwnerID: 7})
	s.AddProperty(predictive.PropertySummary{ID: 3, Title: "Not Yours", OwnerID: 8})
	return s
}

func costRecord(c predictive.Category, at time.Time, cost int64) predictive.MaintenanceRecord {
	return predictive.MaintenanceRecord{
		Category:   c,
		CreatedAt:  at,
		ActualCost: decimal.NewNullDecimal(decimal.NewFromInt(cost)),
	}
}

func newTestPredictiveService(props predictive.PropertyLookup, history predictive.HistoryLookup) *PredictiveService {
	return NewPredictiveService(predictive.NewEngine(nil), props, history, nil, testPredictionConfig(),
		predictive.WithClock(func() time.Time { return frozenNow }))
}

var errBackend = errors.New("backend unavailable")

type failingLookup struct{}

func (failingLookup) Property(context.Context, uint) (predictive.PropertySummary, error) {
	return predictive.PropertySummary{}, errBackend
}

func (failingLookup) PropertiesByOwner(context.Context, uint) ([]predictive.PropertySummary, error) {
	return nil, errBackend
}

func (failingLookup) OwnersWithProperties(context.Context) ([]uint, error) {
	return nil, errBackend
}

func (failingLookup) MaintenanceHistory(context.Context, uint, predictive.Category) ([]predictive.MaintenanceRecord, error) {
	return nil, errBackend
}
