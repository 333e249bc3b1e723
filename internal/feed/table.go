package feed

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrUnsupportedFormat is returned for documents that cannot be read as a
// workbook or as delimited text.
var ErrUnsupportedFormat = errors.New("unsupported document format")

var (
	zipMagic = []byte("PK\x03\x04")
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// Table is the raw cell grid of a document's first sheet. Cells are trimmed
// strings; XLSX numbers and dates come back unformatted (dates as Excel
// serials).
type Table struct {
	Rows [][]string
}

// ReadTable parses an XLSX workbook or a CSV document. The format is sniffed
// from the content, name is only used in error messages.
func ReadTable(name string, data []byte) (*Table, error) {
	switch {
	case len(data) == 0:
		return &Table{}, nil
	case bytes.HasPrefix(data, zipMagic):
		return readXLSX(name, data)
	case bytes.HasPrefix(data, cfbMagic):
		return readXLS(name, data)
	default:
		return readCSV(name, data)
	}
}

func readXLSX(name string, data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx %s: %w", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx %s has no sheets", name)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", name, err)
	}

	return &Table{Rows: trimRows(rows)}, nil
}

// readXLS reads the first sheet of a legacy BIFF workbook. The reader panics
// on some malformed records, so a panic is reported as ErrUnsupportedFormat.
func readXLS(name string, data []byte) (table *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			table, err = nil, fmt.Errorf("%w: unreadable xls %s: %v", ErrUnsupportedFormat, name, r)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open xls %s: %v", ErrUnsupportedFormat, name, err)
	}
	if book == nil || book.NumSheets() == 0 {
		return nil, fmt.Errorf("%w: xls %s has no sheets", ErrUnsupportedFormat, name)
	}

	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%w: xls %s has no sheets", ErrUnsupportedFormat, name)
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			continue
		}
		cells := make([]string, row.LastCol()+1)
		for c := range cells {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}

	return &Table{Rows: trimRows(rows)}, nil
}

// xlsRow returns nil for rows with no cells; WorkSheet.Row dereferences the
// missing entry.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func readCSV(name string, data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		// Exports from the ERP are Windows-1252 when not UTF-8.
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	}

	reader := csv.NewReader(r)
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv %s: %w", name, err)
	}

	return &Table{Rows: trimRows(rows)}, nil
}

// sniffDelimiter picks between comma, semicolon and tab by counting them on
// the first line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func trimRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		empty := true
		for i, c := range row {
			cells[i] = strings.TrimSpace(c)
			if cells[i] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		out = append(out, cells)
	}
	return out
}

// Header returns the first row and the remaining rows.
func (t *Table) Header() ([]string, [][]string) {
	if t == nil || len(t.Rows) == 0 {
		return nil, nil
	}
	return t.Rows[0], t.Rows[1:]
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "", "¿", "", "?", "")

// normalizeColumnName folds case, accents and separators so "Fec. Últ. Compra"
// matches FEC_ULT_COMPRA.
func normalizeColumnName(name string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripAccents, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToUpper(strings.TrimSpace(folded))
	return columnNameSanitizer.Replace(folded)
}

// colIndex returns the index of the first header cell matching any of names,
// or -1.
func colIndex(header []string, names ...string) int {
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, h := range header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
