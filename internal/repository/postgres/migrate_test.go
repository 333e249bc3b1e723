package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNamesAreOrdered(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)

	assert.Equal(t, []string{"001_report_runs.sql", "002_run_classification_summary.sql"}, names)

	body, err := migrationFiles.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS report_runs")
}
