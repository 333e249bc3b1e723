package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/cra-planner/internal/domain"
	"github.com/andresuchdata/cra-planner/internal/repository"
)

const runColumns = `id, warehouse, branch, support_warehouse, support_branch, coverage,
	status, parts, file_name, error_message, started_at, completed_at`

type runRepository struct {
	db *DB
}

// NewRunRepository stores report runs in the report_runs table.
func NewRunRepository(db *DB) repository.RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Create(ctx context.Context, run *domain.ReportRun) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	query := `
		INSERT INTO report_runs (` + runColumns + `)
		VALUES (:id, :warehouse, :branch, :support_warehouse, :support_branch, :coverage,
		        :status, :parts, :file_name, :error_message, :started_at, :completed_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// Update stores the final state of a run together with its classification
// summary.
func (r *runRepository) Update(ctx context.Context, run *domain.ReportRun) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE report_runs
			SET support_warehouse = :support_warehouse, support_branch = :support_branch,
			    status = :status, parts = :parts, file_name = :file_name,
			    error_message = :error_message, completed_at = :completed_at
			WHERE id = :id
		`
		res, err := tx.NamedExecContext(ctx, query, run)
		if err != nil {
			return fmt.Errorf("failed to update run %s: %w", run.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return repository.ErrRunNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM report_run_summary WHERE run_id = $1`, run.ID); err != nil {
			return fmt.Errorf("failed to clear summary of run %s: %w", run.ID, err)
		}
		for _, c := range run.Summary {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO report_run_summary (run_id, classification, parts) VALUES ($1, $2, $3)`,
				run.ID, c.Classification, c.Parts,
			); err != nil {
				return fmt.Errorf("failed to store summary of run %s: %w", run.ID, err)
			}
		}
		return nil
	})
}

func (r *runRepository) Get(ctx context.Context, id string) (*domain.ReportRun, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var run domain.ReportRun
	err = r.db.GetContext(ctx, &run, `SELECT `+runColumns+` FROM report_runs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	err = r.db.SelectContext(ctx, &run.Summary,
		`SELECT classification, parts FROM report_run_summary WHERE run_id = $1 ORDER BY parts DESC, classification`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load summary of run %s: %w", id, err)
	}

	return &run, nil
}

func (r *runRepository) ListRecent(ctx context.Context, warehouse string, limit int) ([]domain.ReportRun, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + runColumns + `
		FROM report_runs
		WHERE ($1 = '' OR warehouse = $1)
		ORDER BY started_at DESC, id DESC
		LIMIT $2
	`

	runs := make([]domain.ReportRun, 0)
	if err := r.db.SelectContext(ctx, &runs, query, warehouse, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
