package planning

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	MinCoverage     = 0.5
	CoverageStep    = 0.5
	DefaultCoverage = 1.5
)

// ErrInvalidCoverage is returned for coverage targets below MinCoverage or off
// the CoverageStep grid.
var ErrInvalidCoverage = errors.New("invalid coverage target")

// ValidateCoverage checks an operator-supplied coverage target in months.
func ValidateCoverage(coverage float64) error {
	if math.IsNaN(coverage) || math.IsInf(coverage, 0) || coverage < MinCoverage {
		return fmt.Errorf("%w: %v (minimum %v)", ErrInvalidCoverage, coverage, MinCoverage)
	}
	steps := coverage / CoverageStep
	if math.Abs(steps-math.Round(steps)) > 1e-9 {
		return fmt.Errorf("%w: %v (must be a multiple of %v)", ErrInvalidCoverage, coverage, CoverageStep)
	}
	return nil
}

// SuggestionInput is the per-part input of the calculator.
type SuggestionInput struct {
	MonthlyConsumption float64
	OnHand             float64
	InTransit          float64
	TransferInProgress float64
	TransferQty        float64
}

// Suggestion holds the purchase suggestion and the figures derived from it.
type Suggestion struct {
	Suggested        int
	TotalInventory   float64
	CoverageMonths   float64
	RemainingToOrder float64
}

// Calculator computes purchase suggestions for a coverage target.
type Calculator struct {
	coverage decimal.Decimal
}

// NewCalculator creates a calculator for the given coverage target in months.
func NewCalculator(coverage float64) (*Calculator, error) {
	if err := ValidateCoverage(coverage); err != nil {
		return nil, err
	}
	return &Calculator{coverage: decimal.NewFromFloat(coverage)}, nil
}

// Coverage returns the coverage target in months.
func (c *Calculator) Coverage() float64 {
	return c.coverage.InexactFloat64()
}

// Suggest returns ceil(consumption * coverage - on hand - in transit), or 0
// when that is not positive.
//
// monthlyConsumption is a twelve-month total divided by twelve, so the total is
// recovered at quantityPlaces before scaling by the coverage. Multiplying the
// binary float directly would turn 40/12*1.5 into 5.0000000001.
func (c *Calculator) Suggest(monthlyConsumption, onHand, inTransit float64) int {
	months := decimal.NewFromInt(fullWindowMonths)
	total := decimal.NewFromFloat(monthlyConsumption).Mul(months).Round(quantityPlaces)

	raw := total.Mul(c.coverage).Div(months).
		Sub(quantity(onHand)).
		Sub(quantity(inTransit))

	if !raw.IsPositive() {
		return 0
	}
	return int(raw.Ceil().IntPart())
}

// quantityPlaces is the precision stock and sales quantities are kept at.
const quantityPlaces = 6

func quantity(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(quantityPlaces)
}

// Calculate computes the suggestion and the derived report figures.
func (c *Calculator) Calculate(in SuggestionInput) Suggestion {
	s := Suggestion{
		Suggested: c.Suggest(in.MonthlyConsumption, in.OnHand, in.InTransit),
	}

	s.TotalInventory = in.OnHand + in.InTransit + in.TransferInProgress + in.TransferQty

	if in.MonthlyConsumption != 0 {
		s.CoverageMonths = s.TotalInventory / in.MonthlyConsumption
	}

	s.RemainingToOrder = math.Max(0, float64(s.Suggested)-in.TransferQty)

	return s
}
