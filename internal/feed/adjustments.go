package feed

import (
	"math"
	"strings"

	"github.com/andresuchdata/cra-planner/internal/domain"
)

var (
	transitNPAliases       = []string{"NP", "NO_PARTE", "NUMERO DE PARTE", "PARTE", "CODIGO", "CLAVE"}
	transitQuantityAliases = []string{"EN TRANSITO", "TRANSITO", "CANTIDAD", "CANT"}
)

// ParseTransit reads the operator's in-transit file into quantities per NP.
// Without a recognised header the first two columns are used. An empty
// document gives an empty table.
func ParseTransit(name string, data []byte) (map[string]float64, error) {
	out := make(map[string]float64)
	if len(data) == 0 {
		return out, nil
	}

	table, err := ReadTable(name, data)
	if err != nil {
		return nil, err
	}

	header, rows := table.Header()
	if header == nil {
		return out, nil
	}

	idxNP := colIndex(header, transitNPAliases...)
	if idxNP < 0 {
		idxNP = 0
	}
	idxQty := colIndex(header, transitQuantityAliases...)
	if idxQty < 0 {
		idxQty = 1
	}

	for _, row := range rows {
		np := domain.NormalizeNP(cell(row, idxNP))
		if np == "" {
			continue
		}
		out[np] += number(cell(row, idxQty))
	}

	return out, nil
}

// Transfer-situation file layout (no header).
const (
	transferTagCol      = 0
	transferNPCol       = 2
	transferQuantityCol = 4
)

// ParseTransfers reads the transfer-situation file and sums, per NP, the
// absolute quantities of rows whose first column equals tag. An empty
// document or tag gives an empty table.
func ParseTransfers(name string, data []byte, tag string) (map[string]float64, error) {
	out := make(map[string]float64)
	tag = strings.TrimSpace(tag)
	if len(data) == 0 || tag == "" {
		return out, nil
	}

	table, err := ReadTable(name, data)
	if err != nil {
		return nil, err
	}

	for _, row := range table.Rows {
		if cell(row, transferTagCol) != tag {
			continue
		}
		np := domain.NormalizeNP(cell(row, transferNPCol))
		if np == "" {
			continue
		}
		out[np] += math.Abs(number(cell(row, transferQuantityCol)))
	}

	return out, nil
}
