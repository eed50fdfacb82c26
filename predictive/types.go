package predictive

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaintenanceRecord is one historical maintenance event. The engine only reads it.
type MaintenanceRecord struct {
	Category    Category            `json:"category"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	ActualCost  decimal.NullDecimal `json:"actual_cost"`
}

type PropertySummary struct {
	ID               uint   `json:"id"`
	Title            string `json:"title"`
	Address          string `json:"address"`
	ConstructionYear *int   `json:"construction_year,omitempty"`
	OwnerID          uint   `json:"owner_id"`
}

type CategoryPrediction struct {
	Category                Category        `json:"category"`
	RiskScore               float64         `json:"risk_score"`
	RiskLevel               RiskLevel       `json:"risk_category"`
	EstimatedDaysUntilIssue int             `json:"estimated_days_until_issue"`
	PredictedTimeframe      string          `json:"predicted_timeframe"`
	EstimatedCost           decimal.Decimal `json:"estimated_cost"`
	RiskFactors             []string        `json:"risk_factors"`
	Recommendation          string          `json:"recommendation"`
	Confidence              float64         `json:"confidence"`
}

type PropertyPrediction struct {
	PropertyID         uint                 `json:"property_id"`
	PropertyTitle      string               `json:"property_title"`
	PropertyAddress    string               `json:"property_address"`
	PropertyAge        int                  `json:"property_age"`
	Predictions        []CategoryPrediction `json:"predictions"`
	OverallRiskScore   float64              `json:"overall_risk_score"`
	HighRiskCount      int                  `json:"high_risk_count"`
	TotalEstimatedCost decimal.Decimal      `json:"total_estimated_cost"`
	GeneratedAt        time.Time            `json:"generated_at"`
}

type PortfolioSummary struct {
	TotalProperties     int                  `json:"total_properties"`
	Properties          []PropertyPrediction `json:"properties"`
	HighRiskProperties  int                  `json:"high_risk_properties"`
	TotalEstimatedCosts decimal.Decimal      `json:"total_estimated_costs"`
	HVACRiskProperties  int                  `json:"hvac_risk_properties"`
	MostCommonIssue     Category             `json:"most_common_issue_type,omitempty"`
	GeneratedAt         time.Time            `json:"generated_at"`
}

type Alert struct {
	ID                     string          `json:"id"`
	PropertyID             uint            `json:"property_id"`
	PropertyTitle          string          `json:"property_title"`
	Category               Category        `json:"category"`
	Severity               Severity        `json:"severity"`
	Title                  string          `json:"title"`
	Message                string          `json:"message"`
	RecommendedAction      string          `json:"recommended_action"`
	EstimatedCostIfIgnored decimal.Decimal `json:"estimated_cost_if_ignored"`
	DaysUntilActionNeeded  int             `json:"days_until_action_needed"`
	CreatedAt              time.Time       `json:"created_at"`
	Dismissed              bool            `json:"dismissed"`
}

type AlertsResponse struct {
	Alerts        []Alert `json:"alerts"`
	TotalAlerts   int     `json:"total_alerts"`
	CriticalCount int     `json:"critical_count"`
	UrgentCount   int     `json:"urgent_count"`
}
