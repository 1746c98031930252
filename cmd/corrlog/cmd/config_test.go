package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corrlog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
intake:
  dir: /srv/corrlog/drop
  concurrency: 4
analysis:
  novel_anomaly_window_minutes: 15
  threshold: 0.8
reports:
  export_dir: /srv/corrlog/out
  formats: [csv, json]
history:
  path: runs.db
metrics:
  address: ":9090"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Intake.Dir != "/srv/corrlog/drop" {
		t.Errorf("intake.dir = %q", cfg.Intake.Dir)
	}
	if cfg.Intake.Concurrency != 4 {
		t.Errorf("intake.concurrency = %d", cfg.Intake.Concurrency)
	}
	if cfg.Analysis.NovelAnomalyWindowMinutes != 15 {
		t.Errorf("window = %d", cfg.Analysis.NovelAnomalyWindowMinutes)
	}
	if cfg.Analysis.Threshold != 0.8 {
		t.Errorf("threshold = %v", cfg.Analysis.Threshold)
	}
	if cfg.Reports.ExportDir != "/srv/corrlog/out" {
		t.Errorf("export_dir = %q", cfg.Reports.ExportDir)
	}
	if len(cfg.Reports.Formats) != 2 {
		t.Errorf("formats = %v", cfg.Reports.Formats)
	}
	if cfg.History.Path != "runs.db" {
		t.Errorf("history.path = %q", cfg.History.Path)
	}
	if cfg.Metrics.Address != ":9090" {
		t.Errorf("metrics.address = %q", cfg.Metrics.Address)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "intake:\n  dir: /drop\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Intake.Concurrency != 2 {
		t.Errorf("default concurrency = %d, want 2", cfg.Intake.Concurrency)
	}
	if cfg.Analysis.NovelAnomalyWindowMinutes != 30 {
		t.Errorf("default window = %d, want 30", cfg.Analysis.NovelAnomalyWindowMinutes)
	}
	if cfg.Reports.ExportDir != "results" {
		t.Errorf("default export_dir = %q", cfg.Reports.ExportDir)
	}
	if len(cfg.Reports.Formats) != 2 {
		t.Errorf("default formats = %v", cfg.Reports.Formats)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad threshold", "analysis:\n  threshold: 1.5\n"},
		{"bad format", "reports:\n  formats: [pdf]\n"},
		{"negative window", "analysis:\n  novel_anomaly_window_minutes: -5\n"},
		{"malformed yaml", "intake: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/no/such/corrlog.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
