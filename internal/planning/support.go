package planning

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/cra-planner/internal/domain"
)

const (
	defaultGeneralToken  = "GENERAL"
	defaultGeneralFormat = "GENERAL %s"
)

// SpecialRule sends any warehouse whose name contains Token to Branch's
// general warehouse.
type SpecialRule struct {
	Token  string
	Branch string
}

// SupportRules is the rule table behind ResolveSupport.
type SupportRules struct {
	// PrimaryA and PrimaryB back each other up. Any other branch's general
	// warehouse falls back to PrimaryA.
	PrimaryA string
	PrimaryB string
	// Special rules are checked in order before the general-warehouse rule.
	Special []SpecialRule
	// GeneralToken identifies a branch's main warehouse by name.
	GeneralToken string
	// GeneralFormat renders a branch's main warehouse name; %s is the branch.
	GeneralFormat string
}

// GeneralWarehouse returns the name of a branch's main warehouse.
func (r SupportRules) GeneralWarehouse(branch string) string {
	format := r.GeneralFormat
	if format == "" {
		format = defaultGeneralFormat
	}
	branch = strings.ToUpper(strings.TrimSpace(branch))
	if !strings.Contains(format, "%s") {
		return strings.TrimSpace(format + " " + branch)
	}
	return fmt.Sprintf(format, branch)
}

func (r SupportRules) generalToken() string {
	if r.GeneralToken == "" {
		return defaultGeneralToken
	}
	return strings.ToUpper(r.GeneralToken)
}

func (r SupportRules) general(branch string) domain.WarehouseRef {
	branch = strings.ToUpper(strings.TrimSpace(branch))
	return domain.WarehouseRef{Branch: branch, Warehouse: r.GeneralWarehouse(branch)}
}

type supportRule struct {
	name   string
	match  func(warehouse, branch string) bool
	target func(branch string) domain.WarehouseRef
}

// table expands the configured rules into an ordered decision table.
func (r SupportRules) table() []supportRule {
	rules := make([]supportRule, 0, len(r.Special)+2)

	for _, s := range r.Special {
		token := strings.ToUpper(strings.TrimSpace(s.Token))
		if token == "" {
			continue
		}
		target := r.general(s.Branch)
		rules = append(rules, supportRule{
			name:   "special:" + token,
			match:  func(warehouse, _ string) bool { return strings.Contains(warehouse, token) },
			target: func(string) domain.WarehouseRef { return target },
		})
	}

	primaryA := strings.ToUpper(strings.TrimSpace(r.PrimaryA))
	primaryB := strings.ToUpper(strings.TrimSpace(r.PrimaryB))
	generalToken := r.generalToken()

	rules = append(rules,
		supportRule{
			name:  "general",
			match: func(warehouse, _ string) bool { return strings.Contains(warehouse, generalToken) },
			target: func(branch string) domain.WarehouseRef {
				if branch == primaryA {
					return r.general(primaryB)
				}
				return r.general(primaryA)
			},
		},
		supportRule{
			name:   "satellite",
			match:  func(string, string) bool { return true },
			target: r.general,
		},
	)

	return rules
}

// ResolveSupport returns the warehouse a local warehouse is compared against
// and can receive transfers from. It is a pure function of its inputs.
func ResolveSupport(rules SupportRules, local domain.WarehouseRef) domain.WarehouseRef {
	warehouse := strings.ToUpper(strings.TrimSpace(local.Warehouse))
	branch := strings.ToUpper(strings.TrimSpace(local.Branch))

	for _, rule := range rules.table() {
		if rule.match(warehouse, branch) {
			return rule.target(branch)
		}
	}

	// unreachable: the satellite rule matches everything
	return rules.general(branch)
}

// SupportRuleName reports which rule ResolveSupport applied. Used for logging.
func SupportRuleName(rules SupportRules, local domain.WarehouseRef) string {
	warehouse := strings.ToUpper(strings.TrimSpace(local.Warehouse))
	branch := strings.ToUpper(strings.TrimSpace(local.Branch))
	for _, rule := range rules.table() {
		if rule.match(warehouse, branch) {
			return rule.name
		}
	}
	return ""
}
