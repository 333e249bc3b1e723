package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ReportRuns.WithLabelValues("completed").Inc()
	m.SalesDocsSkipped.WithLabelValues("parse").Add(2)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ReportRuns.WithLabelValues("completed")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.SalesDocsSkipped.WithLabelValues("parse")), 1e-9)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.NotPanics(t, func() { New(nil) }, "unregistered metrics are allowed")
}
