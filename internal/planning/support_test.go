package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/cra-planner/internal/domain"
)

var testRules = SupportRules{
	PrimaryA: "CULIACAN",
	PrimaryB: "MAZATLAN",
	Special: []SpecialRule{
		{Token: "CEDIS", Branch: "CULIACAN"},
		{Token: "FORANEO", Branch: "MAZATLAN"},
	},
}

func TestResolveSupport(t *testing.T) {
	tests := []struct {
		name  string
		local domain.WarehouseRef
		want  domain.WarehouseRef
		rule  string
	}{
		{
			name:  "special token ignores branch",
			local: domain.WarehouseRef{Branch: "LOS MOCHIS", Warehouse: "CEDIS NORTE"},
			want:  domain.WarehouseRef{Branch: "CULIACAN", Warehouse: "GENERAL CULIACAN"},
			rule:  "special:CEDIS",
		},
		{
			name:  "second special token",
			local: domain.WarehouseRef{Branch: "CULIACAN", Warehouse: "foraneo 2"},
			want:  domain.WarehouseRef{Branch: "MAZATLAN", Warehouse: "GENERAL MAZATLAN"},
			rule:  "special:FORANEO",
		},
		{
			name:  "primary A general goes to B",
			local: domain.WarehouseRef{Branch: "CULIACAN", Warehouse: "GENERAL CULIACAN"},
			want:  domain.WarehouseRef{Branch: "MAZATLAN", Warehouse: "GENERAL MAZATLAN"},
			rule:  "general",
		},
		{
			name:  "primary B general goes to A",
			local: domain.WarehouseRef{Branch: "mazatlan", Warehouse: "general mazatlan"},
			want:  domain.WarehouseRef{Branch: "CULIACAN", Warehouse: "GENERAL CULIACAN"},
			rule:  "general",
		},
		{
			name:  "other branch general falls back to A",
			local: domain.WarehouseRef{Branch: "GUASAVE", Warehouse: "GENERAL GUASAVE"},
			want:  domain.WarehouseRef{Branch: "CULIACAN", Warehouse: "GENERAL CULIACAN"},
			rule:  "general",
		},
		{
			name:  "satellite goes to own general",
			local: domain.WarehouseRef{Branch: "GUASAVE", Warehouse: "MOSTRADOR"},
			want:  domain.WarehouseRef{Branch: "GUASAVE", Warehouse: "GENERAL GUASAVE"},
			rule:  "satellite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveSupport(testRules, tt.local))
			assert.Equal(t, tt.rule, SupportRuleName(testRules, tt.local))
		})
	}
}

func TestResolveSupportIsTotal(t *testing.T) {
	for _, local := range []domain.WarehouseRef{{}, {Warehouse: "X"}, {Branch: "Y"}} {
		got := ResolveSupport(SupportRules{}, local)
		assert.NotEmpty(t, got.Warehouse, "local %+v", local)
	}
}

func TestGeneralWarehouseFormat(t *testing.T) {
	assert.Equal(t, "GENERAL CULIACAN", SupportRules{}.GeneralWarehouse(" culiacan "))
	assert.Equal(t, "ALM CULIACAN", SupportRules{GeneralFormat: "ALM"}.GeneralWarehouse("CULIACAN"))
	assert.Equal(t, "CULIACAN-MAIN", SupportRules{GeneralFormat: "%s-MAIN"}.GeneralWarehouse("CULIACAN"))
}
