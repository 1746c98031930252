package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/good-yellow-bee/corrlog/internal/models"
)

type sqliteRunRepo struct {
	db *sql.DB
}

func (r *sqliteRunRepo) Create(ctx context.Context, run *models.AnalysisRun) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	query := `
		INSERT INTO runs (id, scenario_id, source, status, message, error,
			started_at, duration_ns, records, correlations, incidents, predictive, novel)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		run.ID, run.ScenarioID, run.Source, string(run.Status), run.Message, run.Error,
		run.StartedAt, int64(run.Duration),
		run.Records, run.Correlations, run.Incidents, run.Predictive, run.Novel,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("create run: %w", err)
	}

	for _, path := range run.Artifacts {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO artifacts (run_id, name, path) VALUES (?, ?, ?)",
			run.ID, filepath.Base(path), path,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("create artifact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func (r *sqliteRunRepo) Get(ctx context.Context, id string) (*models.AnalysisRun, error) {
	query := `
		SELECT id, scenario_id, source, status, message, error,
			started_at, duration_ns, records, correlations, incidents, predictive, novel
		FROM runs WHERE id = ?
	`
	run, err := r.scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT path FROM artifacts WHERE run_id = ? ORDER BY name", id)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		run.Artifacts = append(run.Artifacts, path)
	}
	return run, rows.Err()
}

func (r *sqliteRunRepo) List(ctx context.Context, limit, offset int) ([]*models.AnalysisRun, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	query := `
		SELECT id, scenario_id, source, status, message, error,
			started_at, duration_ns, records, correlations, incidents, predictive, novel
		FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs, err := r.scanRuns(rows)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, rows.Err()
}

func (r *sqliteRunRepo) ListByScenario(ctx context.Context, scenarioID string, limit, offset int) ([]*models.AnalysisRun, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE scenario_id = ?", scenarioID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count runs by scenario: %w", err)
	}

	query := `
		SELECT id, scenario_id, source, status, message, error,
			started_at, duration_ns, records, correlations, incidents, predictive, novel
		FROM runs WHERE scenario_id = ? ORDER BY started_at DESC LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, scenarioID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query runs by scenario: %w", err)
	}
	defer rows.Close()

	runs, err := r.scanRuns(rows)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *sqliteRunRepo) scanRun(row rowScanner) (*models.AnalysisRun, error) {
	run := &models.AnalysisRun{}
	var status string
	var durationNS int64
	var message, errMsg sql.NullString
	err := row.Scan(&run.ID, &run.ScenarioID, &run.Source, &status, &message, &errMsg,
		&run.StartedAt, &durationNS,
		&run.Records, &run.Correlations, &run.Incidents, &run.Predictive, &run.Novel)
	if err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)
	run.Message = message.String
	run.Error = errMsg.String
	run.Duration = time.Duration(durationNS)
	return run, nil
}

func (r *sqliteRunRepo) scanRuns(rows *sql.Rows) ([]*models.AnalysisRun, error) {
	var runs []*models.AnalysisRun
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
