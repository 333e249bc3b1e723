package planning

import "github.com/andresuchdata/cra-planner/internal/domain"

type classificationRule struct {
	class domain.Classification
	match func(m domain.MovementMetrics) bool
}

// classificationTable is checked top to bottom; the first match wins.
var classificationTable = []classificationRule{
	{domain.ClassHigh, func(m domain.MovementMetrics) bool { return m.MonthsActiveRecent >= 6 }},
	{domain.ClassMedium, func(m domain.MovementMetrics) bool { return m.MonthsActiveRecent >= 3 }},
	{domain.ClassLow, func(m domain.MovementMetrics) bool { return m.MonthsActiveRecent >= 1 }},
	{domain.ClassRisk, func(m domain.MovementMetrics) bool { return m.PositiveMonthsPrior > 0 }},
}

// Classify maps movement metrics to a movement category.
func Classify(m domain.MovementMetrics) domain.Classification {
	for _, rule := range classificationTable {
		if rule.match(m) {
			return rule.class
		}
	}
	return domain.ClassObsolete
}

// Summarize counts parts per classification. Every category is present, in
// domain.Classifications order, even when its count is zero.
func Summarize(classes []domain.Classification) []domain.ClassificationCount {
	counts := make(map[domain.Classification]int, len(domain.Classifications))
	for _, c := range classes {
		counts[c]++
	}

	summary := make([]domain.ClassificationCount, 0, len(domain.Classifications))
	for _, c := range domain.Classifications {
		summary = append(summary, domain.ClassificationCount{Classification: c, Parts: counts[c]})
	}
	return summary
}
