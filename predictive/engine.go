package predictive

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// SuppressionThreshold is the score a prediction must exceed to be surfaced.
	SuppressionThreshold = 0.2

	seasonalMultiplier  = 1.3
	maxFrequencyFactor  = 2.0
	frequencyStep       = 0.1
	baseConfidence      = 0.5
	confidenceStep      = 0.1
	maxConfidence       = 0.95
	daysPerMonth        = 30
	daysPerYear         = 365
	oldPropertyAgeYears = 20
	frequentIssueCount  = 3
	timeframeLayout     = "Jan 2, 2006"
)

// PredictionInput is everything the engine needs for one category.
//
// History must be ordered newest first. The engine takes History[0] as the
// most recent maintenance and never re-sorts, so passing records in any other
// order silently changes the result.
type PredictionInput struct {
	Category    Category
	PropertyAge int
	History     []MaintenanceRecord
	// MonthsAhead only caps the window shown in PredictedTimeframe.
	MonthsAhead int
}

// Engine scores a single maintenance category. It does no I/O and keeps no
// state between calls.
type Engine struct {
	model *RiskModel
}

func NewEngine(model *RiskModel) *Engine {
	if model == nil {
		model = DefaultRiskModel()
	}
	return &Engine{model: model}
}

func (e *Engine) Model() *RiskModel {
	return e.model
}

// Predict computes the prediction for in as of now. It always returns a
// value; filtering low scores is up to the caller.
func (e *Engine) Predict(in PredictionInput, now time.Time) CategoryPrediction {
	interval := e.model.ExpectedIntervalDays(in.Category)
	age := in.PropertyAge
	if age < 0 {
		age = 0
	}
	historyCount := len(in.History)

	var daysSince int
	if historyCount > 0 {
		daysSince = daysBetween(in.History[0].CreatedAt, now)
	} else {
		daysSince = min(age*daysPerYear, interval*2)
	}

	ageMultiplier := e.model.AgeMultiplier(age)
	frequencyMultiplier := math.Min(1+frequencyStep*float64(historyCount), maxFrequencyFactor)

	raw := float64(daysSince) / float64(interval) * ageMultiplier * frequencyMultiplier
	season := hvacSeason(in.Category, now)
	if season != seasonNone {
		raw *= seasonalMultiplier
	}
	score := round2(clamp01(raw))
	level := LevelForScore(score)

	remaining := math.Max(0, float64(interval-daysSince))
	daysUntil := max(1, int(math.Round(remaining/ageMultiplier)))

	return CategoryPrediction{
		Category:                in.Category,
		RiskScore:               score,
		RiskLevel:               level,
		EstimatedDaysUntilIssue: daysUntil,
		PredictedTimeframe:      timeframe(now, daysUntil, in.MonthsAhead),
		EstimatedCost:           e.model.AverageRepairCost(in.Category).Mul(decimal.NewFromFloat(ageMultiplier)).Round(0),
		RiskFactors:             riskFactors(in.Category, age, daysSince, interval, historyCount, season),
		Recommendation:          recommendation(level, in.Category),
		Confidence:              round2(math.Min(baseConfidence+confidenceStep*float64(historyCount), maxConfidence)),
	}
}

// PropertyAge converts a construction year to an age in years as of now.
// Unknown years resolve to defaultAge; future years resolve to zero.
func PropertyAge(constructionYear *int, now time.Time, defaultAge int) int {
	if constructionYear == nil {
		return defaultAge
	}
	return max(0, now.Year()-*constructionYear)
}

type season int

const (
	seasonNone season = iota
	seasonSummer
	seasonWinter
)

func hvacSeason(c Category, now time.Time) season {
	if c != CategoryHVAC {
		return seasonNone
	}
	switch now.Month() {
	case time.June, time.July, time.August:
		return seasonSummer
	case time.December, time.January, time.February:
		return seasonWinter
	}
	return seasonNone
}

func riskFactors(c Category, age, daysSince, interval, historyCount int, s season) []string {
	factors := []string{}
	if age > oldPropertyAgeYears {
		factors = append(factors, fmt.Sprintf("Property is %d years old", age))
	}
	if daysSince > interval {
		factors = append(factors, fmt.Sprintf("Maintenance overdue by %d days", daysSince-interval))
	}
	if historyCount >= frequentIssueCount {
		factors = append(factors, fmt.Sprintf("%d previous %s issues on record", historyCount, c.Label()))
	}
	switch s {
	case seasonSummer:
		factors = append(factors, "Peak cooling season increases HVAC load")
	case seasonWinter:
		factors = append(factors, "Peak heating season increases HVAC load")
	}
	return factors
}

func recommendation(level RiskLevel, c Category) string {
	switch level {
	case RiskCritical:
		return fmt.Sprintf("Schedule a %s inspection immediately; failure is likely soon", c.Label())
	case RiskHigh:
		return fmt.Sprintf("Schedule %s maintenance within the next two weeks", c.Label())
	case RiskMedium:
		return fmt.Sprintf("Plan %s maintenance within the next month", c.Label())
	default:
		return fmt.Sprintf("Continue routine %s monitoring", c.Label())
	}
}

func timeframe(now time.Time, daysUntil, monthsAhead int) string {
	window := daysUntil
	if monthsAhead > 0 {
		window = min(daysUntil, monthsAhead*daysPerMonth)
	}
	end := now.AddDate(0, 0, window)
	return now.Format(timeframeLayout) + " - " + end.Format(timeframeLayout)
}

func daysBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
