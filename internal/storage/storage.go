package storage

import (
	"context"

	"github.com/good-yellow-bee/corrlog/internal/models"
)

// Storage is the persistence interface for run history.
type Storage interface {
	Open() error
	Close() error
	Migrate() error
	Runs() RunRepository
}

// RunRepository manages analysis run records.
type RunRepository interface {
	Create(ctx context.Context, run *models.AnalysisRun) error
	Get(ctx context.Context, id string) (*models.AnalysisRun, error)
	List(ctx context.Context, limit, offset int) ([]*models.AnalysisRun, int64, error)
	ListByScenario(ctx context.Context, scenarioID string, limit, offset int) ([]*models.AnalysisRun, int64, error)
}
