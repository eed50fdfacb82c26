package predictive

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// DefaultPropertyAge is assumed for properties without a construction year.
const DefaultPropertyAge = 20

const hvacRiskScore = 0.5

// Aggregator runs the engine over every category of a property, and over
// every property of an owner.
type Aggregator struct {
	engine     *Engine
	properties PropertyLookup
	history    HistoryLookup
	now        func() time.Time
	defaultAge int
}

type AggregatorOption func(*Aggregator)

// WithClock replaces time.Now. Tests pin it to keep results reproducible.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithDefaultPropertyAge sets the age used when a construction year is unknown.
func WithDefaultPropertyAge(age int) AggregatorOption {
	return func(a *Aggregator) {
		if age >= 0 {
			a.defaultAge = age
		}
	}
}

func NewAggregator(engine *Engine, properties PropertyLookup, history HistoryLookup, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		engine:     engine,
		properties: properties,
		history:    history,
		now:        time.Now,
		defaultAge: DefaultPropertyAge,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) Now() time.Time {
	return a.now()
}

// PredictProperty scores every category for one property. Ownership is not
// checked here.
func (a *Aggregator) PredictProperty(ctx context.Context, property PropertySummary, monthsAhead int) (PropertyPrediction, error) {
	return a.predictProperty(ctx, property, monthsAhead, a.now())
}

func (a *Aggregator) predictProperty(ctx context.Context, property PropertySummary, monthsAhead int, now time.Time) (PropertyPrediction, error) {
	records, err := a.history.MaintenanceHistory(ctx, property.ID, "")
	if err != nil {
		return PropertyPrediction{}, fmt.Errorf("load maintenance history for property %d: %w", property.ID, err)
	}
	byCategory := make(map[Category][]MaintenanceRecord)
	for _, r := range records {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	age := PropertyAge(property.ConstructionYear, now, a.defaultAge)
	kept := []CategoryPrediction{}
	for _, c := range AllCategories {
		p := a.engine.Predict(PredictionInput{
			Category:    c,
			PropertyAge: age,
			History:     byCategory[c],
			MonthsAhead: monthsAhead,
		}, now)
		if p.RiskScore > SuppressionThreshold {
			kept = append(kept, p)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].RiskScore > kept[j].RiskScore
	})

	result := PropertyPrediction{
		PropertyID:         property.ID,
		PropertyTitle:      property.Title,
		PropertyAddress:    property.Address,
		PropertyAge:        age,
		Predictions:        kept,
		TotalEstimatedCost: decimal.Zero,
		GeneratedAt:        now,
	}
	if len(kept) == 0 {
		return result, nil
	}

	scores := make([]float64, len(kept))
	for i, p := range kept {
		scores[i] = p.RiskScore
		if p.RiskLevel.IsHigh() {
			result.HighRiskCount++
		}
		result.TotalEstimatedCost = result.TotalEstimatedCost.Add(p.EstimatedCost)
	}
	result.OverallRiskScore = stat.Mean(scores, nil)
	return result, nil
}

// PredictPortfolio scores every property owned by ownerID. An owner with no
// properties gets a zeroed summary, not an error.
func (a *Aggregator) PredictPortfolio(ctx context.Context, ownerID uint, monthsAhead int) (PortfolioSummary, error) {
	now := a.now()
	summary := PortfolioSummary{
		Properties:          []PropertyPrediction{},
		TotalEstimatedCosts: decimal.Zero,
		GeneratedAt:         now,
	}

	properties, err := a.properties.PropertiesByOwner(ctx, ownerID)
	if err != nil {
		return PortfolioSummary{}, fmt.Errorf("list properties for owner %d: %w", ownerID, err)
	}

	counts := make(map[Category]int)
	var firstSeen []Category
	for _, property := range properties {
		pp, err := a.predictProperty(ctx, property, monthsAhead, now)
		if err != nil {
			return PortfolioSummary{}, err
		}
		summary.Properties = append(summary.Properties, pp)
		if pp.HighRiskCount > 0 {
			summary.HighRiskProperties++
		}
		summary.TotalEstimatedCosts = summary.TotalEstimatedCosts.Add(pp.TotalEstimatedCost)

		hvacAtRisk := false
		for _, p := range pp.Predictions {
			if p.Category == CategoryHVAC && p.RiskScore > hvacRiskScore {
				hvacAtRisk = true
			}
			if _, ok := counts[p.Category]; !ok {
				firstSeen = append(firstSeen, p.Category)
			}
			counts[p.Category]++
		}
		if hvacAtRisk {
			summary.HVACRiskProperties++
		}
	}

	summary.TotalProperties = len(summary.Properties)
	summary.MostCommonIssue = mostCommon(firstSeen, counts)
	return summary, nil
}

// mostCommon picks the highest count; on a tie the category seen first wins.
func mostCommon(order []Category, counts map[Category]int) Category {
	var best Category
	bestCount := 0
	for _, c := range order {
		if counts[c] > bestCount {
			best = c
			bestCount = counts[c]
		}
	}
	return best
}
