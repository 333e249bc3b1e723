package domain

import "strings"

// Classification is the movement category of a part.
type Classification string

const (
	ClassHigh     Classification = "ALTO MOVIMIENTO"
	ClassMedium   Classification = "MEDIO MOVIMIENTO"
	ClassLow      Classification = "BAJO MOVIMIENTO"
	ClassRisk     Classification = "RIESGO"
	ClassObsolete Classification = "OBSOLETO"
)

// Classifications lists every category from fastest to slowest moving.
var Classifications = []Classification{
	ClassHigh,
	ClassMedium,
	ClassLow,
	ClassRisk,
	ClassObsolete,
}

var classificationCodes = map[string]Classification{
	"alto movimiento":  ClassHigh,
	"medio movimiento": ClassMedium,
	"bajo movimiento":  ClassLow,
	"riesgo":           ClassRisk,
	"obsoleto":         ClassObsolete,
}

// ParseClassification returns the classification for a given label (case-insensitive).
func ParseClassification(label string) (Classification, bool) {
	c, ok := classificationCodes[strings.ToLower(strings.TrimSpace(label))]

	return c, ok
}

// ClassificationCount is the number of parts that fell into a category.
type ClassificationCount struct {
	Classification Classification `json:"classification" db:"classification"`
	Parts          int            `json:"parts" db:"parts"`
}
