package planning

import (
	"strings"

	"github.com/andresuchdata/cra-planner/internal/domain"
)

// AnyWarehouse marks sales events read from documents that carry no warehouse
// column. They are attributed to whichever warehouse is being analysed.
const AnyWarehouse = "*"

// partTally accumulates the window counters of one part.
type partTally struct {
	recentMonths  map[string]struct{}
	priorPositive int
	events        int
	negative      int
	quantity      float64
}

// Aggregator turns raw sales events into per-part movement metrics.
type Aggregator struct {
	windows Windows
}

// NewAggregator creates an aggregator whose windows are anchored at w.Now.
func NewAggregator(w Windows) *Aggregator {
	return &Aggregator{windows: w}
}

// Windows returns the windows the aggregator counts against.
func (a *Aggregator) Windows() Windows {
	return a.windows
}

// Aggregate computes the movement metrics of every part relevant to the
// warehouse: the inventory parts plus any part with an event in the full
// window. Parts without sales get zero metrics, so the result is never empty
// while inventoryNPs is not.
//
// The result lists inventory parts first in first-seen order, followed by
// sales-only parts in first-seen order.
func (a *Aggregator) Aggregate(events []domain.SalesEvent, warehouse string, inventoryNPs []string) []domain.MovementMetrics {
	warehouse = strings.TrimSpace(warehouse)

	order := make([]string, 0, len(inventoryNPs))
	seen := make(map[string]struct{}, len(inventoryNPs))
	add := func(np string) {
		if _, ok := seen[np]; ok {
			return
		}
		seen[np] = struct{}{}
		order = append(order, np)
	}
	for _, np := range inventoryNPs {
		np = domain.NormalizeNP(np)
		if np == "" {
			continue
		}
		add(np)
	}

	tallies := make(map[string]*partTally)
	for _, e := range events {
		if !a.matchesWarehouse(e, warehouse) {
			continue
		}
		// Unparseable dates fall outside every window.
		if e.Date == nil {
			continue
		}
		date := *e.Date
		if !a.windows.InFull(date) {
			continue
		}

		np := domain.NormalizeNP(e.NP)
		if np == "" {
			continue
		}
		add(np)

		t, ok := tallies[np]
		if !ok {
			t = &partTally{recentMonths: make(map[string]struct{})}
			tallies[np] = t
		}

		t.events++
		t.quantity += e.Quantity
		if e.Quantity < 0 {
			t.negative++
		}

		if e.Quantity > 0 {
			switch {
			case a.windows.InRecent(date):
				t.recentMonths[date.Format("2006-01")] = struct{}{}
			case a.windows.InPrior(date):
				t.priorPositive++
			}
		}
	}

	result := make([]domain.MovementMetrics, 0, len(order))
	for _, np := range order {
		m := domain.MovementMetrics{NP: np}
		if t, ok := tallies[np]; ok {
			m.MonthsActiveRecent = len(t.recentMonths)
			m.PositiveMonthsPrior = t.priorPositive
			m.Hits = hits(t.events, t.negative)
			m.MonthlyConsumption = t.quantity / fullWindowMonths
		}
		result = append(result, m)
	}

	return result
}

func (a *Aggregator) matchesWarehouse(e domain.SalesEvent, warehouse string) bool {
	declared := strings.TrimSpace(e.Warehouse)
	return declared == AnyWarehouse || declared == warehouse
}

// hits scores movement intensity: every event counts once and every return
// or correction is charged twice more, never going below zero.
func hits(events, negative int) int {
	h := events - 2*negative
	if h < 0 {
		return 0
	}
	return h
}
