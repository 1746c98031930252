package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/corrlog/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	store := NewSQLiteStorage(dbPath)
	if err := store.Open(); err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate database: %v", err)
	}

	return store
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	// Verify tables exist by querying them
	tables := []string{"runs", "artifacts", "schema_migrations"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s should exist: %v", table, err)
		}
	}
}

func testRun(scenario string) *models.AnalysisRun {
	return &models.AnalysisRun{
		ID:           uuid.New().String(),
		ScenarioID:   scenario,
		Source:       "case_" + scenario + ".zip",
		Status:       models.RunSucceeded,
		StartedAt:    time.Now().UTC().Truncate(time.Second),
		Duration:     1500 * time.Millisecond,
		Records:      42,
		Correlations: 7,
		Incidents:    2,
		Predictive:   1,
		Novel:        3,
		Artifacts: []string{
			"/tmp/out/submit_report.csv",
			"/tmp/out/incident_report.txt",
		},
	}
}

func TestRunRepository_CreateGet(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	run := testRun("1")
	if err := store.Runs().Create(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	got, err := store.Runs().Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}

	if got.ScenarioID != run.ScenarioID {
		t.Errorf("scenario = %q, want %q", got.ScenarioID, run.ScenarioID)
	}
	if got.Status != models.RunSucceeded {
		t.Errorf("status = %q, want %q", got.Status, models.RunSucceeded)
	}
	if got.Duration != run.Duration {
		t.Errorf("duration = %v, want %v", got.Duration, run.Duration)
	}
	if got.Records != 42 || got.Correlations != 7 || got.Incidents != 2 {
		t.Errorf("counts = %d/%d/%d, want 42/7/2", got.Records, got.Correlations, got.Incidents)
	}
	if len(got.Artifacts) != 2 {
		t.Fatalf("artifacts = %d, want 2", len(got.Artifacts))
	}
}

func TestRunRepository_GetMissing(t *testing.T) {
	store := setupTestDB(t)

	if _, err := store.Runs().Get(context.Background(), "no-such-run"); err == nil {
		t.Fatal("expected error for missing run")
	}
}

func TestRunRepository_List(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run := testRun("2")
		run.StartedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		if err := store.Runs().Create(ctx, run); err != nil {
			t.Fatalf("create run %d: %v", i, err)
		}
	}

	runs, total, err := store.Runs().List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(runs) != 2 {
		t.Errorf("page size = %d, want 2", len(runs))
	}
	// Newest first
	if len(runs) == 2 && runs[0].StartedAt.Before(runs[1].StartedAt) {
		t.Error("runs not ordered newest first")
	}
}

func TestRunRepository_ListByScenario(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.Runs().Create(ctx, testRun("1")); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := store.Runs().Create(ctx, testRun("2")); err != nil {
		t.Fatalf("create run: %v", err)
	}

	runs, total, err := store.Runs().ListByScenario(ctx, "2", 10, 0)
	if err != nil {
		t.Fatalf("list by scenario: %v", err)
	}
	if total != 1 || len(runs) != 1 {
		t.Fatalf("got %d runs (total %d), want 1", len(runs), total)
	}
	if runs[0].ScenarioID != "2" {
		t.Errorf("scenario = %q, want 2", runs[0].ScenarioID)
	}
}

func TestRunRepository_FailedRun(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	run := testRun("3")
	run.Status = models.RunFailed
	run.Error = "knowledge base not found"
	run.Artifacts = nil
	if err := store.Runs().Create(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	got, err := store.Runs().Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != models.RunFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.Error != "knowledge base not found" {
		t.Errorf("error = %q", got.Error)
	}
	if len(got.Artifacts) != 0 {
		t.Errorf("artifacts = %d, want 0", len(got.Artifacts))
	}
}
