// internal/domain/models.go
package domain

import (
	"strings"
	"time"
)

// InventoryRecord is one row of the master inventory snapshot, already
// normalized: NP trimmed and uppercased, warehouse and branch trimmed.
type InventoryRecord struct {
	NP           string     `json:"np"`
	Description  string     `json:"description"`
	Line         string     `json:"line"`
	Warehouse    string     `json:"warehouse"`
	Branch       string     `json:"branch"`
	OnHand       float64    `json:"on_hand"`
	LastPurchase *time.Time `json:"last_purchase,omitempty"`
}

// SalesEvent is a single historical sale or return. Date is nil when the
// source value could not be parsed.
type SalesEvent struct {
	NP        string     `json:"np"`
	Warehouse string     `json:"warehouse"`
	Date      *time.Time `json:"date,omitempty"`
	Quantity  float64    `json:"quantity"`
}

// PartStock is the inventory of one part in one warehouse, with duplicate
// snapshot rows collapsed.
type PartStock struct {
	NP           string
	Description  string
	Line         string
	OnHand       float64
	LastPurchase *time.Time
}

// MovementMetrics are the trailing-window movement figures of one part in one
// warehouse.
type MovementMetrics struct {
	NP                  string  `json:"np"`
	MonthsActiveRecent  int     `json:"months_active_recent"`
	PositiveMonthsPrior int     `json:"positive_months_prior"`
	Hits                int     `json:"hits"`
	MonthlyConsumption  float64 `json:"monthly_consumption"`
}

// WarehouseRef identifies a warehouse within a branch.
type WarehouseRef struct {
	Branch    string `json:"branch"`
	Warehouse string `json:"warehouse"`
}

func (w WarehouseRef) String() string {
	if w.Branch == "" {
		return w.Warehouse
	}
	return w.Warehouse + " (" + w.Branch + ")"
}

// NormalizeNP returns the natural key form of a part number.
func NormalizeNP(np string) string {
	np = strings.ToUpper(strings.TrimSpace(np))
	// Numeric part numbers read from spreadsheets can come back as "1234.0".
	if strings.HasSuffix(np, ".0") && isDigits(np[:len(np)-2]) {
		np = np[:len(np)-2]
	}
	return np
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
