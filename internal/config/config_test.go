package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSpecialRules(t *testing.T) {
	rules := ParseSpecialRules(" cedis=Culiacan, FORANEO = MAZATLAN ,broken,=X,Y=")

	assert.Equal(t, []SpecialRule{
		{Token: "CEDIS", Branch: "CULIACAN"},
		{Token: "FORANEO", Branch: "MAZATLAN"},
	}, rules)
	assert.Empty(t, ParseSpecialRules(""))
}

func TestDatabaseURL(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "cra", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/cra?sslmode=disable", cfg.URL())
}
