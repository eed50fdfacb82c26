package predictive

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// HistorySummary aggregates past maintenance for one property. It is not an
// input to the risk scorer.
type HistorySummary struct {
	PropertyID         uint              `json:"property_id"`
	TotalRequests      int               `json:"total_requests"`
	CompletedRequests  int               `json:"completed_requests"`
	TotalSpent         decimal.Decimal   `json:"total_spent"`
	AverageCost        decimal.Decimal   `json:"average_cost"`
	AverageDaysBetween float64           `json:"average_days_between"`
	FirstRequestAt     *time.Time        `json:"first_request_at,omitempty"`
	LastRequestAt      *time.Time        `json:"last_request_at,omitempty"`
	ByCategory         []CategoryHistory `json:"by_category"`
}

type CategoryHistory struct {
	Category           Category        `json:"category"`
	Count              int             `json:"count"`
	TotalSpent         decimal.Decimal `json:"total_spent"`
	AverageCost        decimal.Decimal `json:"average_cost"`
	AverageDaysBetween float64         `json:"average_days_between"`
}

// SummarizeHistory accepts records in any order. Averages over costs only
// count records that carry an actual cost.
func SummarizeHistory(propertyID uint, records []MaintenanceRecord) HistorySummary {
	sorted := append([]MaintenanceRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	summary := HistorySummary{
		PropertyID:    propertyID,
		TotalRequests: len(sorted),
		ByCategory:    []CategoryHistory{},
	}
	summary.TotalSpent, summary.AverageCost = spend(sorted)
	summary.AverageDaysBetween = averageGapDays(sorted)
	for _, r := range sorted {
		if r.CompletedAt != nil {
			summary.CompletedRequests++
		}
	}
	if len(sorted) > 0 {
		first, last := sorted[0].CreatedAt, sorted[len(sorted)-1].CreatedAt
		summary.FirstRequestAt = &first
		summary.LastRequestAt = &last
	}

	byCategory := make(map[Category][]MaintenanceRecord)
	for _, r := range sorted {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}
	for _, c := range AllCategories {
		group := byCategory[c]
		if len(group) == 0 {
			continue
		}
		total, avg := spend(group)
		summary.ByCategory = append(summary.ByCategory, CategoryHistory{
			Category:           c,
			Count:              len(group),
			TotalSpent:         total,
			AverageCost:        avg,
			AverageDaysBetween: averageGapDays(group),
		})
	}
	return summary
}

func spend(records []MaintenanceRecord) (total, average decimal.Decimal) {
	total = decimal.Zero
	costed := 0
	for _, r := range records {
		if !r.ActualCost.Valid {
			continue
		}
		total = total.Add(r.ActualCost.Decimal)
		costed++
	}
	if costed == 0 {
		return total, decimal.Zero
	}
	return total, total.Div(decimal.NewFromInt(int64(costed))).Round(2)
}

// averageGapDays expects records sorted oldest first.
func averageGapDays(records []MaintenanceRecord) float64 {
	if len(records) < 2 {
		return 0
	}
	gaps := make([]float64, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		gaps = append(gaps, records[i].CreatedAt.Sub(records[i-1].CreatedAt).Hours()/24)
	}
	return round2(stat.Mean(gaps, nil))
}
