package feed

import (
	"fmt"

	"github.com/andresuchdata/cra-planner/internal/domain"
	"github.com/andresuchdata/cra-planner/internal/planning"
)

// Sales column names.
const (
	ColDate     = "FECHA"
	ColQuantity = "CANTIDAD"
)

// ParseSales reads one master sales document. NP, FECHA and CANTIDAD are
// required. Documents without an ALMACEN column are attributed to every
// warehouse of the branch (planning.AnyWarehouse).
func ParseSales(name string, data []byte) ([]domain.SalesEvent, error) {
	table, err := ReadTable(name, data)
	if err != nil {
		return nil, err
	}

	header, rows := table.Header()
	if header == nil {
		return nil, nil
	}

	idxNP := colIndex(header, ColNP)
	idxDate := colIndex(header, ColDate)
	idxQty := colIndex(header, ColQuantity)
	idxWarehouse := colIndex(header, ColWarehouse)

	for _, required := range []struct {
		col string
		idx int
	}{{ColNP, idxNP}, {ColDate, idxDate}, {ColQuantity, idxQty}} {
		if required.idx < 0 {
			return nil, fmt.Errorf("sales document %s is missing column %s", name, required.col)
		}
	}

	events := make([]domain.SalesEvent, 0, len(rows))
	for _, row := range rows {
		np := domain.NormalizeNP(cell(row, idxNP))
		if np == "" {
			continue
		}

		warehouse := planning.AnyWarehouse
		if idxWarehouse >= 0 {
			warehouse = cell(row, idxWarehouse)
		}

		events = append(events, domain.SalesEvent{
			NP:        np,
			Warehouse: warehouse,
			Date:      parseDate(cell(row, idxDate)),
			Quantity:  number(cell(row, idxQty)),
		})
	}

	return events, nil
}
