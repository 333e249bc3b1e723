package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/cra-planner/internal/domain"
)

func TestMemoryRunRepository(t *testing.T) {
	repo := NewMemoryRunRepository(3)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		warehouse := "GENERAL CULIACAN"
		if i%2 == 1 {
			warehouse = "MOSTRADOR"
		}
		require.NoError(t, repo.Create(ctx, &domain.ReportRun{
			ID:        fmt.Sprintf("run-%d", i),
			Warehouse: warehouse,
			Status:    domain.RunStatusProcessing,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	_, err := repo.Get(ctx, "run-0")
	assert.ErrorIs(t, err, ErrRunNotFound, "oldest run is evicted")

	run, err := repo.Get(ctx, "run-2")
	require.NoError(t, err)
	run.Status = domain.RunStatusCompleted
	require.NoError(t, repo.Update(ctx, run))

	all, err := repo.ListRecent(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "run-3", all[0].ID)
	assert.Equal(t, domain.RunStatusCompleted, all[1].Status)

	mostrador, err := repo.ListRecent(ctx, "MOSTRADOR", 1)
	require.NoError(t, err)
	require.Len(t, mostrador, 1)
	assert.Equal(t, "run-3", mostrador[0].ID)

	assert.ErrorIs(t, repo.Update(ctx, &domain.ReportRun{ID: "nope"}), ErrRunNotFound)
}
