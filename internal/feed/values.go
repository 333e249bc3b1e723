package feed

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var numberSanitizer = strings.NewReplacer(",", "", "$", "", " ", "")

// parseNumber reads a quantity cell. Blank or malformed cells yield ok=false.
func parseNumber(v string) (float64, bool) {
	v = numberSanitizer.Replace(strings.TrimSpace(v))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// number is parseNumber with malformed cells coerced to 0.
func number(v string) float64 {
	f, _ := parseNumber(v)
	return f
}

// Day-first layouts seen in ERP exports.
var dateLayouts = []string{
	"2/1/2006",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2-1-2006",
	"2-1-2006 15:04:05",
	"2/1/06",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

const maxExcelSerial = 2958465 // 9999-12-31

// parseDate reads a date cell: an Excel serial number from XLSX or a
// day-first string from CSV. Dates without an offset are wall-clock times in
// time.Local, the zone the analysis windows are anchored in. Unparseable
// values return nil.
func parseDate(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}

	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial < 1 || serial > maxExcelSerial {
			return nil
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
		return &t
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return &t
		}
	}
	return nil
}
