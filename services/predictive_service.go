package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rental-platform-api/config"
	"rental-platform-api/predictive"
)

// ErrNotFound covers both a missing property and one owned by someone else.
var ErrNotFound = errors.New("not found")

type PredictiveService struct {
	properties predictive.PropertyLookup
	history    predictive.HistoryLookup
	aggregator *predictive.Aggregator
	projector  *predictive.AlertProjector
	portfolios *PortfolioCache
	cfg        config.PredictionConfig
}

func NewPredictiveService(
	engine *predictive.Engine,
	properties predictive.PropertyLookup,
	history predictive.HistoryLookup,
	cache CacheStore,
	cfg config.PredictionConfig,
	opts ...predictive.AggregatorOption,
) *PredictiveService {
	opts = append([]predictive.AggregatorOption{predictive.WithDefaultPropertyAge(cfg.DefaultPropertyAge)}, opts...)
	aggregator := predictive.NewAggregator(engine, properties, history, opts...)
	return &PredictiveService{
		properties: properties,
		history:    history,
		aggregator: aggregator,
		projector:  predictive.NewAlertProjector(aggregator).WithHorizon(cfg.AlertHorizonMonths),
		portfolios: NewPortfolioCache(cache, cfg.CacheTTL),
		cfg:        cfg,
	}
}

// Projector exposes the alert projector for the dispatch job.
func (s *PredictiveService) Projector() *predictive.AlertProjector {
	return s.projector
}

func (s *PredictiveService) GetPropertyPredictions(ctx context.Context, propertyID, userID uint, monthsAhead int) (predictive.PropertyPrediction, error) {
	property, err := s.ownedProperty(ctx, propertyID, userID)
	if err != nil {
		return predictive.PropertyPrediction{}, err
	}
	return s.aggregator.PredictProperty(ctx, property, s.months(monthsAhead))
}

// GetPortfolioPredictions serves from the cache when it can. A freshly
// computed summary is stored under the generation read before computing it.
func (s *PredictiveService) GetPortfolioPredictions(ctx context.Context, userID uint, monthsAhead int) (predictive.PortfolioSummary, error) {
	months := s.months(monthsAhead)

	if cached, ok := s.portfolios.Load(ctx, userID, months); ok {
		return cached, nil
	}
	gen, genErr := s.portfolios.Generation(ctx, userID)
	if genErr != nil {
		slog.Warn("read portfolio generation failed", "user_id", userID, "error", genErr)
	}

	summary, err := s.aggregator.PredictPortfolio(ctx, userID, months)
	if err != nil {
		return predictive.PortfolioSummary{}, err
	}
	if genErr == nil {
		if err := s.portfolios.Store(ctx, userID, months, gen, summary); err != nil {
			slog.Warn("cache portfolio failed", "user_id", userID, "error", err)
		}
	}
	return summary, nil
}

func (s *PredictiveService) GetAlerts(ctx context.Context, userID uint) (predictive.AlertsResponse, error) {
	return s.projector.Alerts(ctx, userID)
}

func (s *PredictiveService) GetPropertyHistory(ctx context.Context, propertyID, userID uint) (predictive.HistorySummary, error) {
	if _, err := s.ownedProperty(ctx, propertyID, userID); err != nil {
		return predictive.HistorySummary{}, err
	}
	records, err := s.history.MaintenanceHistory(ctx, propertyID, "")
	if err != nil {
		return predictive.HistorySummary{}, fmt.Errorf("load maintenance history for property %d: %w", propertyID, err)
	}
	return predictive.SummarizeHistory(propertyID, records), nil
}

// InvalidatePortfolio retires every cached portfolio of the owner after their
// maintenance history changes.
func (s *PredictiveService) InvalidatePortfolio(ctx context.Context, ownerID uint) error {
	return s.portfolios.Invalidate(ctx, ownerID)
}

func (s *PredictiveService) ownedProperty(ctx context.Context, propertyID, userID uint) (predictive.PropertySummary, error) {
	property, err := s.properties.Property(ctx, propertyID)
	if errors.Is(err, predictive.ErrPropertyNotFound) {
		return predictive.PropertySummary{}, ErrNotFound
	}
	if err != nil {
		return predictive.PropertySummary{}, fmt.Errorf("load property %d: %w", propertyID, err)
	}
	if property.OwnerID != userID {
		return predictive.PropertySummary{}, ErrNotFound
	}
	return property, nil
}

func (s *PredictiveService) months(monthsAhead int) int {
	if monthsAhead <= 0 {
		if s.cfg.DefaultMonthsAhead > 0 {
			return s.cfg.DefaultMonthsAhead
		}
		return 6
	}
	if monthsAhead > s.maxMonths() {
		return s.maxMonths()
	}
	return monthsAhead
}

func (s *PredictiveService) maxMonths() int {
	if s.cfg.MaxMonthsAhead > 0 {
		return s.cfg.MaxMonthsAhead
	}
	return 24
}
