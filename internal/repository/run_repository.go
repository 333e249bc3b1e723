package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/andresuchdata/cra-planner/internal/domain"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("report run not found")

// RunRepository records report runs.
type RunRepository interface {
	Create(ctx context.Context, run *domain.ReportRun) error
	Update(ctx context.Context, run *domain.ReportRun) error
	Get(ctx context.Context, id string) (*domain.ReportRun, error)
	// ListRecent returns the latest runs, newest first. An empty warehouse
	// lists every warehouse.
	ListRecent(ctx context.Context, warehouse string, limit int) ([]domain.ReportRun, error)
}

const defaultMemoryRuns = 200

// MemoryRunRepository keeps the latest runs in process memory. Used when the
// database is disabled.
type MemoryRunRepository struct {
	mu   sync.RWMutex
	max  int
	runs map[string]domain.ReportRun
}

var _ RunRepository = (*MemoryRunRepository)(nil)

func NewMemoryRunRepository(max int) *MemoryRunRepository {
	if max <= 0 {
		max = defaultMemoryRuns
	}
	return &MemoryRunRepository{max: max, runs: make(map[string]domain.ReportRun)}
}

func (r *MemoryRunRepository) Create(ctx context.Context, run *domain.ReportRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[run.ID] = *run
	r.evict()
	return nil
}

func (r *MemoryRunRepository) Update(ctx context.Context, run *domain.ReportRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; !ok {
		return ErrRunNotFound
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *MemoryRunRepository) Get(ctx context.Context, id string) (*domain.ReportRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return &run, nil
}

func (r *MemoryRunRepository) ListRecent(ctx context.Context, warehouse string, limit int) ([]domain.ReportRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]domain.ReportRun, 0, len(r.runs))
	for _, run := range r.runs {
		if warehouse != "" && run.Warehouse != warehouse {
			continue
		}
		runs = append(runs, run)
	}
	sortNewestFirst(runs)

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// evict drops the oldest runs beyond the capacity. Callers hold the lock.
func (r *MemoryRunRepository) evict() {
	if len(r.runs) <= r.max {
		return
	}
	runs := make([]domain.ReportRun, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	sortNewestFirst(runs)
	for _, run := range runs[r.max:] {
		delete(r.runs, run.ID)
	}
}

func sortNewestFirst(runs []domain.ReportRun) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
}
