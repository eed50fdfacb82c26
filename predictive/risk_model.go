package predictive

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// UnboundedAge marks the catch-all age tier.
const UnboundedAge = math.MaxInt

// AgeTier applies Multiplier to properties whose age is at most MaxAge years.
type AgeTier struct {
	MaxAge     int
	Multiplier float64
}

// RiskModel holds the static scoring tables. It has no mutators; build it
// once at startup and share it between goroutines.
type RiskModel struct {
	intervals map[Category]int
	costs     map[Category]decimal.Decimal
	tiers     []AgeTier
}

var (
	defaultIntervals = map[Category]int{
		CategoryPlumbing:    365,
		CategoryElectrical:  730,
		CategoryHVAC:        180,
		CategoryStructural:  730,
		CategoryPestControl: 90,
		CategoryCleaning:    30,
		CategoryLandscaping: 60,
		CategoryAppliance:   365,
		CategoryOther:       365,
	}

	defaultCosts = map[Category]int64{
		CategoryPlumbing:    350,
		CategoryElectrical:  400,
		CategoryHVAC:        500,
		CategoryStructural:  2000,
		CategoryPestControl: 150,
		CategoryCleaning:    100,
		CategoryLandscaping: 120,
		CategoryAppliance:   300,
		CategoryOther:       200,
	}

	defaultTiers = []AgeTier{
		{MaxAge: 5, Multiplier: 1.0},
		{MaxAge: 10, Multiplier: 1.1},
		{MaxAge: 20, Multiplier: 1.3},
		{MaxAge: 30, Multiplier: 1.5},
		{MaxAge: 50, Multiplier: 1.8},
		{MaxAge: UnboundedAge, Multiplier: 2.0},
	}
)

// DefaultRiskModel returns the built-in tables.
func DefaultRiskModel() *RiskModel {
	costs := make(map[Category]decimal.Decimal, len(defaultCosts))
	for c, v := range defaultCosts {
		costs[c] = decimal.NewFromInt(v)
	}
	m, err := NewRiskModel(defaultIntervals, costs, defaultTiers)
	if err != nil {
		panic(fmt.Sprintf("predictive: invalid default risk model: %v", err))
	}
	return m
}

// NewRiskModel validates and copies the given tables. Every category in
// AllCategories needs an interval and a cost; tiers must be ascending.
func NewRiskModel(intervals map[Category]int, costs map[Category]decimal.Decimal, tiers []AgeTier) (*RiskModel, error) {
	m := &RiskModel{
		intervals: make(map[Category]int, len(AllCategories)),
		costs:     make(map[Category]decimal.Decimal, len(AllCategories)),
	}
	for _, c := range AllCategories {
		days, ok := intervals[c]
		if !ok || days <= 0 {
			return nil, fmt.Errorf("category %s: expected interval must be positive", c)
		}
		cost, ok := costs[c]
		if !ok || cost.IsNegative() {
			return nil, fmt.Errorf("category %s: average repair cost missing or negative", c)
		}
		m.intervals[c] = days
		m.costs[c] = cost
	}

	if len(tiers) == 0 {
		return nil, errors.New("at least one age tier is required")
	}
	for i, t := range tiers {
		if t.Multiplier <= 0 {
			return nil, fmt.Errorf("age tier %d: multiplier must be positive", i)
		}
		if i == 0 {
			continue
		}
		if t.MaxAge <= tiers[i-1].MaxAge {
			return nil, fmt.Errorf("age tier %d: max age %d is not above %d", i, t.MaxAge, tiers[i-1].MaxAge)
		}
		// Older properties never score lower.
		if t.Multiplier < tiers[i-1].Multiplier {
			return nil, fmt.Errorf("age tier %d: multiplier %.2f is below the previous %.2f", i, t.Multiplier, tiers[i-1].Multiplier)
		}
	}
	m.tiers = append([]AgeTier(nil), tiers...)
	return m, nil
}

// ExpectedIntervalDays falls back to OTHER for categories the model does not know.
func (m *RiskModel) ExpectedIntervalDays(c Category) int {
	if d, ok := m.intervals[c]; ok {
		return d
	}
	return m.intervals[CategoryOther]
}

func (m *RiskModel) AverageRepairCost(c Category) decimal.Decimal {
	if v, ok := m.costs[c]; ok {
		return v
	}
	return m.costs[CategoryOther]
}

// AgeMultiplier returns the multiplier of the first tier whose MaxAge is at
// least age, or the last tier when none matches.
func (m *RiskModel) AgeMultiplier(age int) float64 {
	for _, t := range m.tiers {
		if age <= t.MaxAge {
			return t.Multiplier
		}
	}
	return m.tiers[len(m.tiers)-1].Multiplier
}

// Tiers returns a copy of the age table.
func (m *RiskModel) Tiers() []AgeTier {
	return append([]AgeTier(nil), m.tiers...)
}

type riskModelFile struct {
	Categories map[string]struct {
		IntervalDays *int     `yaml:"intervalDays"`
		AverageCost  *float64 `yaml:"averageCost"`
	} `yaml:"categories"`
	AgeTiers []struct {
		MaxAge     *int    `yaml:"maxAge"`
		Multiplier float64 `yaml:"multiplier"`
	} `yaml:"ageTiers"`
}

// LoadRiskModel reads a YAML override file and merges it over the defaults.
// Categories left out keep their default values; when ageTiers is present it
// replaces the whole tier table, and a tier without maxAge is unbounded.
func LoadRiskModel(path string) (*RiskModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read risk model %s: %w", path, err)
	}
	return ParseRiskModel(raw)
}

// ParseRiskModel is LoadRiskModel over an in-memory document.
func ParseRiskModel(raw []byte) (*RiskModel, error) {
	var file riskModelFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse risk model: %w", err)
	}

	base := DefaultRiskModel()
	intervals := make(map[Category]int, len(base.intervals))
	costs := make(map[Category]decimal.Decimal, len(base.costs))
	for c, v := range base.intervals {
		intervals[c] = v
	}
	for c, v := range base.costs {
		costs[c] = v
	}

	for name, entry := range file.Categories {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		if entry.IntervalDays != nil {
			intervals[c] = *entry.IntervalDays
		}
		if entry.AverageCost != nil {
			costs[c] = decimal.NewFromFloat(*entry.AverageCost)
		}
	}

	tiers := base.tiers
	if len(file.AgeTiers) > 0 {
		tiers = make([]AgeTier, 0, len(file.AgeTiers))
		for _, t := range file.AgeTiers {
			maxAge := UnboundedAge
			if t.MaxAge != nil {
				maxAge = *t.MaxAge
			}
			tiers = append(tiers, AgeTier{MaxAge: maxAge, Multiplier: t.Multiplier})
		}
	}

	return NewRiskModel(intervals, costs, tiers)
}
