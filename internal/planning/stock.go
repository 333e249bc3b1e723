package planning

import (
	"strings"

	"github.com/andresuchdata/cra-planner/internal/domain"
)

// StockTable is the inventory of one warehouse keyed by NP.
type StockTable struct {
	Order []string
	ByNP  map[string]domain.PartStock
}

// Get returns the stock of a part, or a zero value carrying only the NP.
func (t StockTable) Get(np string) (domain.PartStock, bool) {
	s, ok := t.ByNP[np]
	if !ok {
		return domain.PartStock{NP: np}, false
	}
	return s, true
}

// CollapseStock keeps the snapshot rows of one warehouse and folds duplicate
// rows of the same part: on-hand quantities are summed, text fields and the
// last-purchase date keep the first non-empty value seen.
func CollapseStock(records []domain.InventoryRecord, warehouse string) StockTable {
	warehouse = strings.TrimSpace(warehouse)
	table := StockTable{ByNP: make(map[string]domain.PartStock)}

	for _, r := range records {
		if strings.TrimSpace(r.Warehouse) != warehouse {
			continue
		}
		np := domain.NormalizeNP(r.NP)
		if np == "" {
			continue
		}

		s, ok := table.ByNP[np]
		if !ok {
			table.Order = append(table.Order, np)
			s = domain.PartStock{NP: np}
		}
		if s.Description == "" {
			s.Description = r.Description
		}
		if s.Line == "" {
			s.Line = r.Line
		}
		if s.LastPurchase == nil && r.LastPurchase != nil {
			d := *r.LastPurchase
			s.LastPurchase = &d
		}
		s.OnHand += r.OnHand
		table.ByNP[np] = s
	}

	return table
}
