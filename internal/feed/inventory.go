package feed

import (
	"errors"
	"fmt"

	"github.com/andresuchdata/cra-planner/internal/domain"
)

// ErrInventoryUnavailable means the master inventory snapshot could not be
// found or read. Runs cannot proceed without it.
var ErrInventoryUnavailable = errors.New("inventory snapshot unavailable")

// Inventory column names.
const (
	ColNP           = "NP"
	ColDescription  = "DESCRIPCION"
	ColLine         = "LINEA"
	ColWarehouse    = "ALMACEN"
	ColBranch       = "SUCURSAL"
	ColOnHand       = "EXISTENCIA"
	ColLastPurchase = "FEC_ULT_COMPRA"
)

// ParseInventory reads the master inventory snapshot. Every required column
// must be present; row-level malformed values are coerced (quantities to 0,
// dates to nil) and rows without NP are dropped.
func ParseInventory(name string, data []byte) ([]domain.InventoryRecord, error) {
	table, err := ReadTable(name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInventoryUnavailable, err)
	}

	header, rows := table.Header()
	if header == nil {
		return nil, fmt.Errorf("%w: %s is empty", ErrInventoryUnavailable, name)
	}

	idx := make(map[string]int)
	for _, col := range []string{ColNP, ColDescription, ColLine, ColWarehouse, ColBranch, ColOnHand, ColLastPurchase} {
		i := colIndex(header, col)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s is missing column %s", ErrInventoryUnavailable, name, col)
		}
		idx[col] = i
	}

	records := make([]domain.InventoryRecord, 0, len(rows))
	for _, row := range rows {
		np := domain.NormalizeNP(cell(row, idx[ColNP]))
		if np == "" {
			continue
		}
		records = append(records, domain.InventoryRecord{
			NP:           np,
			Description:  cell(row, idx[ColDescription]),
			Line:         cell(row, idx[ColLine]),
			Warehouse:    cell(row, idx[ColWarehouse]),
			Branch:       cell(row, idx[ColBranch]),
			OnHand:       number(cell(row, idx[ColOnHand])),
			LastPurchase: parseDate(cell(row, idx[ColLastPurchase])),
		})
	}

	return records, nil
}
