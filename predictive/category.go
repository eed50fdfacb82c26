package predictive

import (
	"fmt"
	"strings"
)

// Category is a maintenance category. It keys every RiskModel table.
type Category string

const (
	CategoryPlumbing    Category = "PLUMBING"
	CategoryElectrical  Category = "ELECTRICAL"
	CategoryHVAC        Category = "HVAC"
	CategoryStructural  Category = "STRUCTURAL"
	CategoryPestControl Category = "PEST_CONTROL"
	CategoryCleaning    Category = "CLEANING"
	CategoryLandscaping Category = "LANDSCAPING"
	CategoryAppliance   Category = "APPLIANCE"
	CategoryOther       Category = "OTHER"
)

// AllCategories is the evaluation order used by the aggregator. Tie-breaks
// downstream depend on it, so do not reorder casually.
var AllCategories = []Category{
	CategoryPlumbing,
	CategoryElectrical,
	CategoryHVAC,
	CategoryStructural,
	CategoryPestControl,
	CategoryCleaning,
	CategoryLandscaping,
	CategoryAppliance,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryPlumbing:    "Plumbing",
	CategoryElectrical:  "Electrical",
	CategoryHVAC:        "HVAC",
	CategoryStructural:  "Structural",
	CategoryPestControl: "Pest Control",
	CategoryCleaning:    "Cleaning",
	CategoryLandscaping: "Landscaping",
	CategoryAppliance:   "Appliance",
	CategoryOther:       "General Maintenance",
}

// Label returns the human readable name used in recommendations and alerts.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Valid reports whether c is one of AllCategories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseCategory accepts the enum value in any case, with dashes or spaces
// in place of underscores ("pest-control", "Pest Control").
func ParseCategory(s string) (Category, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	c := Category(norm)
	if !c.Valid() {
		return "", fmt.Errorf("unknown maintenance category %q", s)
	}
	return c, nil
}

// RiskLevel buckets a risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// LevelForScore maps a score to its level. Boundaries are inclusive on the
// lower end: 0.8 is CRITICAL, 0.79999 is HIGH.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= 0.8:
		return RiskCritical
	case score >= 0.6:
		return RiskHigh
	case score >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// IsHigh reports HIGH and CRITICAL, the levels counted as high risk.
func (l RiskLevel) IsHigh() bool {
	return l == RiskHigh || l == RiskCritical
}

// Severity is the alert severity. Lower rank is more severe.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityUrgent   Severity = "URGENT"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// Rank orders severities for sorting; unknown values rank with INFO.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityUrgent:
		return 1
	case SeverityWarning:
		return 2
	default:
		return 3
	}
}
