package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/cra-planner/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		metrics domain.MovementMetrics
		want    domain.Classification
	}{
		{"six active months", domain.MovementMetrics{MonthsActiveRecent: 6}, domain.ClassHigh},
		{"ten active months", domain.MovementMetrics{MonthsActiveRecent: 10}, domain.ClassHigh},
		{"three active months", domain.MovementMetrics{MonthsActiveRecent: 3}, domain.ClassMedium},
		{"five active months", domain.MovementMetrics{MonthsActiveRecent: 5, PositiveMonthsPrior: 9}, domain.ClassMedium},
		{"one active month", domain.MovementMetrics{MonthsActiveRecent: 1}, domain.ClassLow},
		{"only prior sales", domain.MovementMetrics{PositiveMonthsPrior: 2}, domain.ClassRisk},
		{"no movement", domain.MovementMetrics{}, domain.ClassObsolete},
		{"hits alone do not count", domain.MovementMetrics{Hits: 40, MonthlyConsumption: 3}, domain.ClassObsolete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.metrics))
		})
	}
}

func TestClassifyMonotonicInActiveMonths(t *testing.T) {
	rank := map[domain.Classification]int{
		domain.ClassObsolete: 0,
		domain.ClassRisk:     1,
		domain.ClassLow:      2,
		domain.ClassMedium:   3,
		domain.ClassHigh:     4,
	}

	for prior := 0; prior <= 2; prior++ {
		last := -1
		for months := 0; months <= 10; months++ {
			got := rank[Classify(domain.MovementMetrics{MonthsActiveRecent: months, PositiveMonthsPrior: prior})]
			assert.GreaterOrEqual(t, got, last, "months=%d prior=%d", months, prior)
			last = got
		}
	}
}

func TestSummarizeIncludesEveryCategory(t *testing.T) {
	summary := Summarize([]domain.Classification{domain.ClassHigh, domain.ClassHigh, domain.ClassObsolete})

	assert.Len(t, summary, len(domain.Classifications))
	assert.Equal(t, domain.ClassificationCount{Classification: domain.ClassHigh, Parts: 2}, summary[0])
	assert.Equal(t, domain.ClassificationCount{Classification: domain.ClassMedium, Parts: 0}, summary[1])
	assert.Equal(t, domain.ClassificationCount{Classification: domain.ClassObsolete, Parts: 1}, summary[len(summary)-1])
}
