package planning

import (
	"time"

	"github.com/andresuchdata/cra-planner/internal/domain"
)

// Column keys of the report, in display order.
const (
	ColNP                 = "np"
	ColDescription        = "description"
	ColLine               = "line"
	ColClassification     = "classification"
	ColSuggested          = "suggested"
	ColOnHand             = "on_hand"
	ColLastPurchase       = "last_purchase"
	ColMonthlyAvg         = "monthly_avg"
	ColHits               = "hits"
	ColSupportOnHand      = "support_on_hand"
	ColSupportMonthlyAvg  = "support_monthly_avg"
	ColSupportHits        = "support_hits"
	ColSupportLastBuy     = "support_last_purchase"
	ColInTransit          = "in_transit"
	ColTransferInProgress = "transfer_in_progress"
	ColNewTransfer        = "new_transfer"
	ColTransferQty        = "transfer_qty"
	ColTotalInventory     = "total_inventory"
	ColCoverageMonths     = "coverage_months"
	ColRemainingToOrder   = "remaining_to_order"
)

// ColumnKind tells the renderer how to write a column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInteger
	KindDecimal
	KindDate
	KindInput
	KindFormula
)

// Column describes one report column. Formula columns carry a template whose
// {key} placeholders refer to other columns of the same row.
type Column struct {
	Key       string
	Label     string
	Kind      ColumnKind
	Formula   string
	Highlight bool
}

// ReportRow is one part in the report.
type ReportRow struct {
	NP                  string
	Description         string
	Line                string
	Classification      domain.Classification
	Suggested           int
	OnHand              float64
	LastPurchase        *time.Time
	MonthlyAvg          float64
	Hits                int
	SupportOnHand       float64
	SupportMonthlyAvg   float64
	SupportHits         int
	SupportLastPurchase *time.Time
	InTransit           float64
	TransferInProgress  float64
	NewTransfer         string
	TransferQty         float64
	TotalInventory      float64
	CoverageMonths      float64
	RemainingToOrder    float64
}

// Value returns the cell value for a column key. Dates come back as
// *time.Time (nil when unknown).
func (r ReportRow) Value(key string) any {
	switch key {
	case ColNP:
		return r.NP
	case ColDescription:
		return r.Description
	case ColLine:
		return r.Line
	case ColClassification:
		return string(r.Classification)
	case ColSuggested:
		return r.Suggested
	case ColOnHand:
		return r.OnHand
	case ColLastPurchase:
		return r.LastPurchase
	case ColMonthlyAvg:
		return r.MonthlyAvg
	case ColHits:
		return r.Hits
	case ColSupportOnHand:
		return r.SupportOnHand
	case ColSupportMonthlyAvg:
		return r.SupportMonthlyAvg
	case ColSupportHits:
		return r.SupportHits
	case ColSupportLastBuy:
		return r.SupportLastPurchase
	case ColInTransit:
		return r.InTransit
	case ColTransferInProgress:
		return r.TransferInProgress
	case ColNewTransfer:
		return r.NewTransfer
	case ColTransferQty:
		return r.TransferQty
	case ColTotalInventory:
		return r.TotalInventory
	case ColCoverageMonths:
		return r.CoverageMonths
	case ColRemainingToOrder:
		return r.RemainingToOrder
	}
	return nil
}

// Table is the assembled report.
type Table struct {
	Local   domain.WarehouseRef
	Support domain.WarehouseRef
	Columns []Column
	Rows    []ReportRow
	Summary []domain.ClassificationCount
}

// Columns returns the fixed report layout with support labels templated for
// the given support warehouse.
func Columns(support domain.WarehouseRef) []Column {
	suffix := " " + support.String()
	return []Column{
		{Key: ColNP, Label: "NP", Kind: KindText},
		{Key: ColDescription, Label: "DESCRIPCION", Kind: KindText},
		{Key: ColLine, Label: "LINEA", Kind: KindText},
		{Key: ColClassification, Label: "CLASIFICACIÓN", Kind: KindText},
		{Key: ColSuggested, Label: "SUGERIDO COMPRA", Kind: KindInteger},
		{Key: ColOnHand, Label: "EXISTENCIA", Kind: KindDecimal},
		{Key: ColLastPurchase, Label: "FEC_ULT_COMPRA", Kind: KindDate},
		{Key: ColMonthlyAvg, Label: "CONSUMO MENSUAL", Kind: KindDecimal},
		{Key: ColHits, Label: "HITS", Kind: KindInteger},
		{Key: ColSupportOnHand, Label: "EXISTENCIA" + suffix, Kind: KindDecimal, Highlight: true},
		{Key: ColSupportMonthlyAvg, Label: "CONSUMO MENSUAL" + suffix, Kind: KindDecimal, Highlight: true},
		{Key: ColSupportHits, Label: "HITS" + suffix, Kind: KindInteger, Highlight: true},
		{Key: ColSupportLastBuy, Label: "FEC_ULT_COMPRA" + suffix, Kind: KindDate, Highlight: true},
		{Key: ColInTransit, Label: "EN TRANSITO", Kind: KindDecimal},
		{Key: ColTransferInProgress, Label: "TRASPASO EN PROCESO", Kind: KindDecimal, Highlight: true},
		{Key: ColNewTransfer, Label: "¿NUEVO TRASPASO?", Kind: KindInput},
		{Key: ColTransferQty, Label: "CANTIDAD A TRASPASAR", Kind: KindInput},
		{
			Key:     ColTotalInventory,
			Label:   "INVENTARIO TOTAL",
			Kind:    KindFormula,
			Formula: "{on_hand}+{in_transit}+{transfer_in_progress}+{transfer_qty}",
		},
		{
			Key:     ColCoverageMonths,
			Label:   "MESES DE COBERTURA",
			Kind:    KindFormula,
			Formula: "IF({monthly_avg}=0,0,{total_inventory}/{monthly_avg})",
		},
		{
			Key:     ColRemainingToOrder,
			Label:   "FALTANTE POR PEDIR",
			Kind:    KindFormula,
			Formula: "MAX({suggested}-{transfer_qty},0)",
		},
	}
}

// AssemblyInput gathers everything the assembler joins on NP.
type AssemblyInput struct {
	Local          domain.WarehouseRef
	Support        domain.WarehouseRef
	LocalMetrics   []domain.MovementMetrics
	LocalStock     StockTable
	SupportMetrics []domain.MovementMetrics
	SupportStock   StockTable
	// InTransit and TransfersInProgress are keyed by normalized NP; nil maps
	// are treated as empty.
	InTransit           map[string]float64
	TransfersInProgress map[string]float64
	Calculator          *Calculator
}

// Assemble builds one row per local part by left-joining support metrics,
// support stock, in-transit and transfer quantities. Missing numbers become 0
// and missing text stays empty.
func Assemble(in AssemblyInput) Table {
	supportMetrics := make(map[string]domain.MovementMetrics, len(in.SupportMetrics))
	for _, m := range in.SupportMetrics {
		if _, ok := supportMetrics[m.NP]; !ok {
			supportMetrics[m.NP] = m
		}
	}

	rows := make([]ReportRow, 0, len(in.LocalMetrics))
	classes := make([]domain.Classification, 0, len(in.LocalMetrics))

	for _, m := range in.LocalMetrics {
		local, _ := in.LocalStock.Get(m.NP)
		support, hasSupportStock := in.SupportStock.Get(m.NP)
		sm := supportMetrics[m.NP]

		description, line := local.Description, local.Line
		if description == "" && hasSupportStock {
			description = support.Description
		}
		if line == "" && hasSupportStock {
			line = support.Line
		}

		class := Classify(m)
		classes = append(classes, class)

		row := ReportRow{
			NP:                  m.NP,
			Description:         description,
			Line:                line,
			Classification:      class,
			OnHand:              local.OnHand,
			LastPurchase:        local.LastPurchase,
			MonthlyAvg:          m.MonthlyConsumption,
			Hits:                m.Hits,
			SupportOnHand:       support.OnHand,
			SupportMonthlyAvg:   sm.MonthlyConsumption,
			SupportHits:         sm.Hits,
			SupportLastPurchase: support.LastPurchase,
			InTransit:           in.InTransit[m.NP],
			TransferInProgress:  in.TransfersInProgress[m.NP],
		}

		s := in.Calculator.Calculate(SuggestionInput{
			MonthlyConsumption: row.MonthlyAvg,
			OnHand:             row.OnHand,
			InTransit:          row.InTransit,
			TransferInProgress: row.TransferInProgress,
			TransferQty:        row.TransferQty,
		})
		row.Suggested = s.Suggested
		row.TotalInventory = s.TotalInventory
		row.CoverageMonths = s.CoverageMonths
		row.RemainingToOrder = s.RemainingToOrder

		rows = append(rows, row)
	}

	return Table{
		Local:   in.Local,
		Support: in.Support,
		Columns: Columns(in.Support),
		Rows:    rows,
		Summary: Summarize(classes),
	}
}
