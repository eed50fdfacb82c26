package predictive

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// AlertHorizonMonths is the look-ahead used when projecting alerts.
	AlertHorizonMonths = 3

	warningScore = 0.45
)

var (
	urgentCostFactor  = decimal.NewFromInt(2)
	warningCostFactor = decimal.NewFromFloat(1.5)
)

// AlertProjector turns high-risk portfolio predictions into alerts.
type AlertProjector struct {
	aggregator *Aggregator
	horizon    int
	newID      func() string
}

func NewAlertProjector(aggregator *Aggregator) *AlertProjector {
	return &AlertProjector{
		aggregator: aggregator,
		horizon:    AlertHorizonMonths,
		newID:      uuid.NewString,
	}
}

// WithHorizon returns a copy projecting over months instead of the default.
func (p *AlertProjector) WithHorizon(months int) *AlertProjector {
	cp := *p
	if months > 0 {
		cp.horizon = months
	}
	return &cp
}

// Alerts projects the owner's alerts, most severe first and then soonest
// first. An empty portfolio yields an empty list.
func (p *AlertProjector) Alerts(ctx context.Context, ownerID uint) (AlertsResponse, error) {
	portfolio, err := p.aggregator.PredictPortfolio(ctx, ownerID, p.horizon)
	if err != nil {
		return AlertsResponse{}, err
	}

	type key struct {
		property uint
		category Category
	}
	seen := make(map[key]bool)
	alerts := []Alert{}

	for _, property := range portfolio.Properties {
		for _, pred := range property.Predictions {
			k := key{property.PropertyID, pred.Category}
			if seen[k] {
				continue
			}
			alert, ok := p.toAlert(property, pred)
			if !ok {
				continue
			}
			seen[k] = true
			alert.CreatedAt = portfolio.GeneratedAt
			alerts = append(alerts, alert)
		}
	}

	SortAlerts(alerts)

	resp := AlertsResponse{Alerts: alerts, TotalAlerts: len(alerts)}
	for _, a := range alerts {
		switch a.Severity {
		case SeverityCritical:
			resp.CriticalCount++
		case SeverityUrgent:
			resp.UrgentCount++
		}
	}
	return resp, nil
}

// SortAlerts orders by severity rank, then by days until action.
func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].Severity.Rank(), alerts[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return alerts[i].DaysUntilActionNeeded < alerts[j].DaysUntilActionNeeded
	})
}

func (p *AlertProjector) toAlert(property PropertyPrediction, pred CategoryPrediction) (Alert, bool) {
	var (
		severity      Severity
		costIfIgnored decimal.Decimal
		title         string
	)
	label := pred.Category.Label()

	switch {
	case pred.RiskLevel == RiskCritical:
		severity = SeverityCritical
		costIfIgnored = pred.EstimatedCost.Mul(urgentCostFactor)
		title = fmt.Sprintf("Critical %s risk at %s", label, property.PropertyTitle)
	case pred.RiskLevel == RiskHigh:
		severity = SeverityUrgent
		costIfIgnored = pred.EstimatedCost.Mul(urgentCostFactor)
		title = fmt.Sprintf("Urgent %s maintenance needed at %s", label, property.PropertyTitle)
	case pred.RiskLevel == RiskMedium && pred.RiskScore > warningScore:
		severity = SeverityWarning
		costIfIgnored = pred.EstimatedCost.Mul(warningCostFactor).Round(0)
		title = fmt.Sprintf("%s maintenance coming up at %s", label, property.PropertyTitle)
	default:
		return Alert{}, false
	}

	return Alert{
		ID:            p.newID(),
		PropertyID:    property.PropertyID,
		PropertyTitle: property.PropertyTitle,
		Category:      pred.Category,
		Severity:      severity,
		Title:         title,
		Message: fmt.Sprintf("%s risk score is %.0f%%; an issue is expected within %d days (%s).",
			label, pred.RiskScore*100, pred.EstimatedDaysUntilIssue, pred.PredictedTimeframe),
		RecommendedAction:      pred.Recommendation,
		EstimatedCostIfIgnored: costIfIgnored,
		DaysUntilActionNeeded:  pred.EstimatedDaysUntilIssue,
		Dismissed:              false,
	}, true
}
