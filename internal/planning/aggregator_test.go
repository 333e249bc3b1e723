package planning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/cra-planner/internal/domain"
)

var anchor = time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)

func at(months int) *time.Time {
	t := AddMonths(anchor, months)
	return &t
}

func sale(np, warehouse string, date *time.Time, qty float64) domain.SalesEvent {
	return domain.SalesEvent{NP: np, Warehouse: warehouse, Date: date, Quantity: qty}
}

func metricsByNP(metrics []domain.MovementMetrics) map[string]domain.MovementMetrics {
	out := make(map[string]domain.MovementMetrics, len(metrics))
	for _, m := range metrics {
		out[m.NP] = m
	}
	return out
}

func TestAggregateInventoryOnlyPartHasZeroMetrics(t *testing.T) {
	agg := NewAggregator(NewWindows(anchor))

	metrics := agg.Aggregate(nil, "GENERAL CULIACAN", []string{"a-1"})

	require.Len(t, metrics, 1)
	assert.Equal(t, domain.MovementMetrics{NP: "A-1"}, metrics[0])
	assert.Equal(t, domain.ClassObsolete, Classify(metrics[0]), "part without sales must be obsolete")
}

func TestAggregateCountsWindows(t *testing.T) {
	agg := NewAggregator(NewWindows(anchor))
	wh := "GENERAL CULIACAN"

	events := []domain.SalesEvent{
		sale("P1", wh, at(-1), 4),
		sale("P1", wh, at(-1), 2),
		sale("P1", wh, at(-3), 6),
		// prior window
		sale("P1", wh, at(-11), 3),
		// outside the full window and another warehouse
		sale("P1", wh, at(-13), 50),
		sale("P1", "OTRO", at(-2), 99),
	}

	metrics := agg.Aggregate(events, wh, []string{"P1"})
	require.Len(t, metrics, 1)

	m := metrics[0]
	assert.Equal(t, 2, m.MonthsActiveRecent)
	assert.Equal(t, 1, m.PositiveMonthsPrior)
	assert.Equal(t, 4, m.Hits)
	assert.InDelta(t, 15.0/12.0, m.MonthlyConsumption, 1e-9)
}

func TestAggregateHitsNeverNegative(t *testing.T) {
	agg := NewAggregator(NewWindows(anchor))
	wh := "W"

	events := []domain.SalesEvent{
		sale("P1", wh, at(-1), 1),
		sale("P1", wh, at(-2), -1),
		sale("P1", wh, at(-3), -1),
	}

	metrics := agg.Aggregate(events, wh, nil)
	require.Len(t, metrics, 1)
	assert.Equal(t, 0, metrics[0].Hits)
	assert.InDelta(t, -1.0/12.0, metrics[0].MonthlyConsumption, 1e-9)
}

func TestAggregateSkipsUnparseableDates(t *testing.T) {
	agg := NewAggregator(NewWindows(anchor))

	events := []domain.SalesEvent{
		sale("P1", "W", nil, 10),
		sale("P1", "W", at(-1), 1),
	}

	metrics := agg.Aggregate(events, "W", []string{"P1"})
	require.Len(t, metrics, 1)
	assert.Equal(t, 1, metrics[0].Hits, "event without date must not count")
	assert.InDelta(t, 1.0/12.0, metrics[0].MonthlyConsumption, 1e-9)
}

func TestAggregateOrderAndSalesOnlyParts(t *testing.T) {
	agg := NewAggregator(NewWindows(anchor))

	events := []domain.SalesEvent{
		sale("S2", "W", at(-1), 1),
		sale("I1", "W", at(-1), 1),
		sale("S1", "W", at(-2), 1),
	}

	metrics := agg.Aggregate(events, "W", []string{"I2", "I1", "i2"})

	var nps []string
	for _, m := range metrics {
		nps = append(nps, m.NP)
	}
	assert.Equal(t, []string{"I2", "I1", "S2", "S1"}, nps)
}

func TestAggregateAnyWarehouseEvents(t *testing.T) {
	agg := NewAggregator(NewWindows(anchor))

	events := []domain.SalesEvent{sale("P1", AnyWarehouse, at(-1), 3)}

	for _, wh := range []string{"A", "B"} {
		m := metricsByNP(agg.Aggregate(events, wh, nil))
		assert.Equal(t, 1, m["P1"].MonthsActiveRecent, "warehouse %s", wh)
	}
}

func TestMergeNeverDropsParts(t *testing.T) {
	agg := NewAggregator(NewWindows(anchor))
	inventory := []string{"A", "B", "C"}
	events := []domain.SalesEvent{sale("B", "W", at(-1), 2), sale("Z", "W", at(-4), 1)}

	first := agg.Aggregate(events, "W", inventory)
	second := agg.Aggregate(events, "W", inventory)

	got := metricsByNP(first)
	for _, np := range inventory {
		assert.Contains(t, got, np)
	}
	assert.Contains(t, got, "Z")
	assert.Equal(t, first, second, "aggregation must be deterministic")
}
