package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/cra-planner/internal/domain"
	"github.com/andresuchdata/cra-planner/internal/planning"
)

func sampleTable(t *testing.T) planning.Table {
	t.Helper()

	calc, err := planning.NewCalculator(1.5)
	require.NoError(t, err)

	bought := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	return planning.Assemble(planning.AssemblyInput{
		Local:   domain.WarehouseRef{Branch: "CULIACAN", Warehouse: "GENERAL CULIACAN"},
		Support: domain.WarehouseRef{Branch: "MAZATLAN", Warehouse: "GENERAL MAZATLAN"},
		LocalMetrics: []domain.MovementMetrics{
			{NP: "A1", MonthsActiveRecent: 7, Hits: 9, MonthlyConsumption: 10},
			{NP: "B2"},
		},
		LocalStock: planning.StockTable{
			Order: []string{"A1", "B2"},
			ByNP: map[string]domain.PartStock{
				"A1": {NP: "A1", Description: "BALATA", OnHand: 3, LastPurchase: &bought},
				"B2": {NP: "B2", Description: "FILTRO", OnHand: 1},
			},
		},
		InTransit:  map[string]float64{"A1": 2},
		Calculator: calc,
	})
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "GENERAL CULIACAN", SheetName(" GENERAL CULIACAN "))
	assert.Equal(t, "ALM-1-B-C-", SheetName("ALM/1\\B:C?"))
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123", SheetName("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"))
	assert.Equal(t, "REPORTE", SheetName(""))
	assert.Equal(t, "REPORTE", SheetName("resumen"))
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "SUGERIDO_GENERAL_CULIACAN_20250601.xlsx", FileName("General Culiacan", at))
	assert.Equal(t, "SUGERIDO_CEDIS_NORTE_20250601.xlsx", FileName("cedis / norte", at))
	assert.Equal(t, "SUGERIDO_REPORTE_20250601.xlsx", FileName("  ", at))
}

func TestResolveFormula(t *testing.T) {
	letters := map[string]string{"a": "B", "b_c": "T"}

	got, err := resolveFormula("IF({a}=0,0,{b_c}/{a})", letters, 7)
	require.NoError(t, err)
	assert.Equal(t, "IF(B7=0,0,T7/B7)", got)

	_, err = resolveFormula("{zz}+1", letters, 2)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	table := sampleTable(t)

	data, err := NewXLSXRenderer().Render(table)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"GENERAL CULIACAN", SummarySheet}, f.GetSheetList())
	sheet := "GENERAL CULIACAN"

	header, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, header, 3)
	require.Len(t, header[0], 20)
	assert.Equal(t, "NP", header[0][0])
	assert.Equal(t, "EXISTENCIA GENERAL MAZATLAN (MAZATLAN)", header[0][9])
	assert.Equal(t, "FALTANTE POR PEDIR", header[0][19])

	value := func(cell string) string {
		v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "A1", value("A2"))
	assert.Equal(t, "ALTO MOVIMIENTO", value("D2"))
	assert.Equal(t, "10", value("E2"))
	assert.Equal(t, "OBSOLETO", value("D3"))
	assert.Empty(t, value("G3"), "unknown dates stay blank")
	assert.Empty(t, value("P2"), "new transfer input starts empty")
	assert.Equal(t, "0", value("Q2"))

	formula := func(cell string) string {
		v, err := f.GetCellFormula(sheet, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "F2+N2+O2+Q2", formula("R2"))
	assert.Equal(t, "IF(H2=0,0,R2/H2)", formula("S2"))
	assert.Equal(t, "MAX(E2-Q2,0)", formula("T3"))

	panes, err := f.GetPanes(sheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Contains(t, summary, []string{"ALTO MOVIMIENTO", "1"})
	assert.Contains(t, summary, []string{"OBSOLETO", "1"})
	assert.Contains(t, summary, []string{"TOTAL", "2"})
}

func TestRenderEmptyTable(t *testing.T) {
	table := planning.Table{
		Local:   domain.WarehouseRef{Warehouse: "MOSTRADOR"},
		Columns: planning.Columns(domain.WarehouseRef{Warehouse: "GENERAL"}),
		Summary: planning.Summarize(nil),
	}

	data, err := NewXLSXRenderer().Render(table)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("MOSTRADOR")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}
