package predictive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	october = time.Date(2025, time.October, 15, 12, 0, 0, 0, time.UTC)
	july    = time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC)
	january = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
)

func recordAt(c Category, now time.Time, daysAgo int) MaintenanceRecord {
	return MaintenanceRecord{Category: c, CreatedAt: now.AddDate(0, 0, -daysAgo)}
}

func TestPredict_OldPropertyNoHistoryIsCritical(t *testing.T) {
	engine := NewEngine(nil)
	year := 1970

	age := PropertyAge(&year, october, DefaultPropertyAge)
	require.Equal(t, 55, age)

	p := engine.Predict(PredictionInput{Category: CategoryPlumbing, PropertyAge: age, MonthsAhead: 6}, october)

	assert.Equal(t, 1.0, p.RiskScore)
	assert.Equal(t, RiskCritical, p.RiskLevel)
	assert.Equal(t, 1, p.EstimatedDaysUntilIssue)
	assert.Equal(t, "700", p.EstimatedCost.String())
	assert.Equal(t, 0.5, p.Confidence)
	assert.Equal(t, []string{"Property is 55 years old", "Maintenance overdue by 365 days"}, p.RiskFactors)
	assert.Contains(t, p.Recommendation, "Plumbing")
}

func TestPredict_HVACSeasonalMultiplierAppliedOnce(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name   string
		now    time.Time
		score  float64
		factor string
	}{
		{"summer", july, 0.48, "Peak cooling season increases HVAC load"},
		{"winter", january, 0.48, "Peak heating season increases HVAC load"},
		{"off season", october, 0.37, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := engine.Predict(PredictionInput{
				Category:    CategoryHVAC,
				PropertyAge: 3,
				History:     []MaintenanceRecord{recordAt(CategoryHVAC, tt.now, 60)},
				MonthsAhead: 6,
			}, tt.now)

			assert.Equal(t, tt.score, p.RiskScore)
			if tt.factor == "" {
				assert.Empty(t, p.RiskFactors)
			} else {
				assert.Equal(t, []string{tt.factor}, p.RiskFactors)
			}
		})
	}
}

func TestPredict_SeasonOnlyAffectsHVAC(t *testing.T) {
	engine := NewEngine(nil)
	in := PredictionInput{
		Category:    CategoryPlumbing,
		PropertyAge: 3,
		History:     []MaintenanceRecord{recordAt(CategoryPlumbing, july, 100)},
	}
	summer := engine.Predict(in, july)
	in.History = []MaintenanceRecord{recordAt(CategoryPlumbing, october, 100)}
	autumn := engine.Predict(in, october)

	assert.Equal(t, autumn.RiskScore, summer.RiskScore)
}

func TestLevelForScore_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{1.0, RiskCritical},
		{0.8, RiskCritical},
		{0.79999, RiskHigh},
		{0.6, RiskHigh},
		{0.59999, RiskMedium},
		{0.4, RiskMedium},
		{0.39999, RiskLow},
		{0.0, RiskLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForScore(tt.score), "score %v", tt.score)
	}
}

func TestPredict_ScoreAndConfidenceBounds(t *testing.T) {
	engine := NewEngine(nil)
	for _, c := range AllCategories {
		for age := 0; age <= 100; age += 7 {
			for n := 0; n <= 12; n += 3 {
				for days := 0; days <= 1500; days += 97 {
					history := make([]MaintenanceRecord, n)
					for i := range history {
						history[i] = recordAt(c, july, days+i*30)
					}
					p := engine.Predict(PredictionInput{Category: c, PropertyAge: age, History: history, MonthsAhead: 3}, july)

					require.GreaterOrEqual(t, p.RiskScore, 0.0)
					require.LessOrEqual(t, p.RiskScore, 1.0)
					require.GreaterOrEqual(t, p.Confidence, 0.5)
					require.LessOrEqual(t, p.Confidence, 0.95)
					require.GreaterOrEqual(t, p.EstimatedDaysUntilIssue, 1)
					require.Equal(t, LevelForScore(p.RiskScore), p.RiskLevel)
				}
			}
		}
	}
}

func TestPredict_OlderPropertyNeverScoresLower(t *testing.T) {
	engine := NewEngine(nil)
	old, recent := 1970, 2020

	score := func(year int) float64 {
		return engine.Predict(PredictionInput{
			Category:    CategoryPlumbing,
			PropertyAge: PropertyAge(&year, october, DefaultPropertyAge),
			History:     []MaintenanceRecord{recordAt(CategoryPlumbing, october, 100)},
		}, october).RiskScore
	}
	assert.Equal(t, 0.6, score(old))
	assert.Equal(t, 0.3, score(recent))

	prev := 0.0
	for age := 0; age <= 80; age++ {
		got := engine.Predict(PredictionInput{
			Category:    CategoryHVAC,
			PropertyAge: age,
			History:     []MaintenanceRecord{recordAt(CategoryHVAC, october, 20)},
		}, october).RiskScore
		require.GreaterOrEqual(t, got, prev, "age %d", age)
		prev = got
	}
}

func TestPredict_Confidence(t *testing.T) {
	engine := NewEngine(nil)
	tests := []struct {
		records int
		want    float64
	}{
		{0, 0.5},
		{1, 0.6},
		{2, 0.7},
		{4, 0.9},
		{5, 0.95},
		{9, 0.95},
	}
	for _, tt := range tests {
		history := make([]MaintenanceRecord, tt.records)
		for i := range history {
			history[i] = recordAt(CategoryAppliance, october, 10+i)
		}
		p := engine.Predict(PredictionInput{Category: CategoryAppliance, PropertyAge: 3, History: history}, october)
		assert.Equal(t, tt.want, p.Confidence, "records=%d", tt.records)
	}
}

func TestPredict_DaysUntilIssueIsNotCappedByHorizon(t *testing.T) {
	engine := NewEngine(nil)
	p := engine.Predict(PredictionInput{
		Category:    CategoryPlumbing,
		PropertyAge: 3,
		History:     []MaintenanceRecord{recordAt(CategoryPlumbing, october, 10)},
		MonthsAhead: 1,
	}, october)

	assert.Equal(t, 355, p.EstimatedDaysUntilIssue)
	assert.Equal(t, "Oct 15, 2025 - Nov 14, 2025", p.PredictedTimeframe)
}

func TestPredict_UsesFirstRecordAsMostRecent(t *testing.T) {
	engine := NewEngine(nil)
	newestFirst := []MaintenanceRecord{
		recordAt(CategoryPlumbing, october, 30),
		recordAt(CategoryPlumbing, october, 300),
	}
	oldestFirst := []MaintenanceRecord{newestFirst[1], newestFirst[0]}

	a := engine.Predict(PredictionInput{Category: CategoryPlumbing, PropertyAge: 3, History: newestFirst}, october)
	b := engine.Predict(PredictionInput{Category: CategoryPlumbing, PropertyAge: 3, History: oldestFirst}, october)

	assert.Less(t, a.RiskScore, b.RiskScore)
}

func TestPredict_FrequentIssuesFactor(t *testing.T) {
	engine := NewEngine(nil)
	history := []MaintenanceRecord{
		recordAt(CategoryElectrical, october, 10),
		recordAt(CategoryElectrical, october, 100),
		recordAt(CategoryElectrical, october, 200),
	}
	p := engine.Predict(PredictionInput{Category: CategoryElectrical, PropertyAge: 8, History: history}, october)

	assert.Equal(t, []string{"3 previous Electrical issues on record"}, p.RiskFactors)
	assert.Equal(t, "440", p.EstimatedCost.String())
}

func TestPredict_IsDeterministic(t *testing.T) {
	engine := NewEngine(nil)
	in := PredictionInput{
		Category:    CategoryHVAC,
		PropertyAge: 27,
		History:     []MaintenanceRecord{recordAt(CategoryHVAC, july, 45)},
		MonthsAhead: 6,
	}
	assert.Equal(t, engine.Predict(in, july), engine.Predict(in, july))
}

func TestPropertyAge(t *testing.T) {
	future := 2030
	assert.Equal(t, 20, PropertyAge(nil, october, 20))
	assert.Equal(t, 12, PropertyAge(nil, october, 12))
	assert.Equal(t, 0, PropertyAge(&future, october, 20))
}
