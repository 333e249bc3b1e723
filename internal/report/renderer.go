package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/cra-planner/internal/planning"
)

const (
	SummarySheet  = "RESUMEN"
	maxSheetRunes = 30
	headerRow     = 1
	firstDataRow  = 2
	dateFormat    = "dd/mm/yyyy"
	decimalFormat = "#,##0.00"
	integerFormat = "0"

	headerFill    = "#1F4E78"
	highlightFill = "#FCE4D6"
	inputFill     = "#FFF2CC"
)

// Renderer turns an assembled table into a spreadsheet document.
type Renderer interface {
	Render(table planning.Table) ([]byte, error)
}

// XLSXRenderer renders reports with excelize.
type XLSXRenderer struct{}

var _ Renderer = XLSXRenderer{}

func NewXLSXRenderer() XLSXRenderer {
	return XLSXRenderer{}
}

var sheetNameSanitizer = strings.NewReplacer(
	"/", "-", `\`, "-", "?", "-", "*", "-", "[", "-", "]", "-", ":", "-",
)

// SheetName makes a warehouse name usable as a worksheet name.
func SheetName(warehouse string) string {
	name := strings.TrimSpace(sheetNameSanitizer.Replace(warehouse))
	name = strings.Trim(name, "'")
	if utf8.RuneCountInString(name) > maxSheetRunes {
		name = string([]rune(name)[:maxSheetRunes])
	}
	if name == "" || strings.EqualFold(name, SummarySheet) {
		return "REPORTE"
	}
	return name
}

var fileNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FileName is the download name of a report.
func FileName(warehouse string, at time.Time) string {
	safe := strings.Trim(fileNameSanitizer.ReplaceAllString(strings.ToUpper(warehouse), "_"), "_")
	if safe == "" {
		safe = "REPORTE"
	}
	return fmt.Sprintf("SUGERIDO_%s_%s.xlsx", safe, at.Format("20060102"))
}

var placeholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// resolveFormula replaces the {key} placeholders of a formula template with
// the cell of that column in the given row.
func resolveFormula(template string, letters map[string]string, row int) (string, error) {
	var missing string
	formula := placeholder.ReplaceAllStringFunc(template, func(m string) string {
		key := m[1 : len(m)-1]
		letter, ok := letters[key]
		if !ok {
			missing = key
			return m
		}
		return fmt.Sprintf("%s%d", letter, row)
	})
	if missing != "" {
		return "", fmt.Errorf("formula %q references unknown column %q", template, missing)
	}
	return formula, nil
}

func (XLSXRenderer) Render(table planning.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(table.Local.Warehouse)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet %s: %w", sheet, err)
	}

	letters := make(map[string]string, len(table.Columns))
	for i, col := range table.Columns {
		letter, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		letters[col.Key] = letter
	}

	if err := writeHeader(f, sheet, table.Columns, letters); err != nil {
		return nil, err
	}

	for i, row := range table.Rows {
		r := firstDataRow + i
		for _, col := range table.Columns {
			cell := fmt.Sprintf("%s%d", letters[col.Key], r)
			if err := writeCell(f, sheet, cell, col, row, letters, r); err != nil {
				return nil, fmt.Errorf("failed to write %s for %s: %w", cell, row.NP, err)
			}
		}
	}

	lastRow := firstDataRow + len(table.Rows) - 1
	if err := styleColumns(f, sheet, table.Columns, letters, lastRow); err != nil {
		return nil, err
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", firstDataRow),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	if len(table.Columns) > 0 && len(table.Rows) > 0 {
		lastCol := letters[table.Columns[len(table.Columns)-1].Key]
		if err := f.AutoFilter(sheet, fmt.Sprintf("A%d:%s%d", headerRow, lastCol, lastRow), nil); err != nil {
			return nil, fmt.Errorf("failed to add filter: %w", err)
		}
	}

	if err := writeSummary(f, table); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, cols []planning.Column, letters map[string]string) error {
	if len(cols) == 0 {
		return nil
	}
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return err
	}

	for _, col := range cols {
		cell := fmt.Sprintf("%s%d", letters[col.Key], headerRow)
		if err := f.SetCellStr(sheet, cell, col.Label); err != nil {
			return err
		}
		width := 14.0
		switch col.Key {
		case planning.ColDescription:
			width = 40
		case planning.ColNP, planning.ColLine, planning.ColClassification:
			width = 20
		}
		if col.Highlight {
			width = 22
		}
		if err := f.SetColWidth(sheet, letters[col.Key], letters[col.Key], width); err != nil {
			return err
		}
	}

	first := letters[cols[0].Key]
	last := letters[cols[len(cols)-1].Key]
	if err := f.SetCellStyle(sheet, fmt.Sprintf("%s%d", first, headerRow), fmt.Sprintf("%s%d", last, headerRow), style); err != nil {
		return err
	}
	return f.SetRowHeight(sheet, headerRow, 45)
}

func writeCell(f *excelize.File, sheet, cell string, col planning.Column, row planning.ReportRow, letters map[string]string, r int) error {
	switch col.Kind {
	case planning.KindFormula:
		formula, err := resolveFormula(col.Formula, letters, r)
		if err != nil {
			return err
		}
		return f.SetCellFormula(sheet, cell, formula)
	case planning.KindDate:
		t, _ := row.Value(col.Key).(*time.Time)
		if t == nil {
			return nil
		}
		return f.SetCellValue(sheet, cell, *t)
	case planning.KindText, planning.KindInput:
		switch v := row.Value(col.Key).(type) {
		case string:
			if v == "" {
				return nil
			}
			return f.SetCellStr(sheet, cell, v)
		default:
			return f.SetCellValue(sheet, cell, v)
		}
	default:
		return f.SetCellValue(sheet, cell, row.Value(col.Key))
	}
}

func columnStyle(col planning.Column) *excelize.Style {
	style := &excelize.Style{}
	switch col.Kind {
	case planning.KindDate:
		format := dateFormat
		style.CustomNumFmt = &format
	case planning.KindInteger:
		format := integerFormat
		style.CustomNumFmt = &format
	case planning.KindDecimal, planning.KindFormula:
		format := decimalFormat
		style.CustomNumFmt = &format
	case planning.KindInput:
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{inputFill}}
	}
	if col.Highlight {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{highlightFill}}
	}
	return style
}

func styleColumns(f *excelize.File, sheet string, cols []planning.Column, letters map[string]string, lastRow int) error {
	if lastRow < firstDataRow {
		return nil
	}
	for _, col := range cols {
		style, err := f.NewStyle(columnStyle(col))
		if err != nil {
			return err
		}
		letter := letters[col.Key]
		if err := f.SetCellStyle(sheet, fmt.Sprintf("%s%d", letter, firstDataRow), fmt.Sprintf("%s%d", letter, lastRow), style); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, table planning.Table) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to add %s sheet: %w", SummarySheet, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	rows := [][]any{
		{"ALMACEN", table.Local.Warehouse},
		{"SUCURSAL", table.Local.Branch},
		{"ALMACEN DE APOYO", table.Support.String()},
		{},
		{"CLASIFICACIÓN", "PIEZAS"},
	}
	total := 0
	for _, c := range table.Summary {
		rows = append(rows, []any{string(c.Classification), c.Parts})
		total += c.Parts
	}
	rows = append(rows, []any{"TOTAL", total})

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return err
		}
	}

	headerAt := 5
	if err := f.SetCellStyle(SummarySheet, fmt.Sprintf("A%d", headerAt), fmt.Sprintf("B%d", headerAt), bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "A3", bold); err != nil {
		return err
	}
	totalAt := len(rows)
	if err := f.SetCellStyle(SummarySheet, fmt.Sprintf("A%d", totalAt), fmt.Sprintf("B%d", totalAt), bold); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "B", 24)
}
