package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/good-yellow-bee/corrlog/internal/kb"
	"github.com/good-yellow-bee/corrlog/internal/models"
)

const testKB = `anomaly_id;Anomaly_Text;problem_id;Problem_Text
101;Retry storm from 10.0.0.1;10;Database connection lost
102;Queue depth exceeded 500;10;Database connection lost
`

const testLog = `2024-01-01T10:00:00 ERROR db: Database connection lost
2024-01-01T10:00:30 WARNING net: Retry storm from 192.168.0.5
2024-01-01T10:01:00 WARNING cache: Completely unseen warble 77
2024-01-01T10:02:00 INFO app: heartbeat ok
`

// writeCase lays out a case directory with a knowledge base and one
// log file: one classified ERROR, one known WARNING, one unknown
// WARNING and one INFO line.
func writeCase(t *testing.T, dir string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "anomalies_problems.csv"), []byte(testKB), 0o644); err != nil {
		t.Fatalf("write kb: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.log"), []byte(testLog), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

// writeArchive zips the contents of dir into a new archive at path.
func writeArchive(t *testing.T, dir, path string) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read case dir: %v", err)
	}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		f, err := w.Create("case/" + e.Name())
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
}

func TestAnalyzeCaseDir(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir)

	res, err := New(Options{}).AnalyzeCaseDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if res.Status != models.RunSucceeded {
		t.Fatalf("status = %q, want succeeded", res.Status)
	}
	if res.Records != 3 {
		t.Errorf("records = %d, want 3", res.Records)
	}
	if res.Correlations != 1 {
		t.Errorf("correlations = %d, want 1", res.Correlations)
	}
	if res.Incidents != 1 {
		t.Errorf("incidents = %d, want 1", res.Incidents)
	}
	if res.Predictive != 1 {
		t.Errorf("predictive alerts = %d, want 1", res.Predictive)
	}
	if res.Novel != 1 {
		t.Errorf("novel anomalies = %d, want 1", res.Novel)
	}

	for _, name := range []string{
		"submit_report.csv", "submit_report.xlsx", "incident_report.txt",
		"predictive_alerts.csv", "novel_anomalies.csv",
	} {
		if _, ok := res.Artifacts[name]; !ok {
			t.Errorf("artifact %s missing", name)
		}
	}

	narrative := string(res.Artifacts["incident_report.txt"])
	if !strings.Contains(narrative, "Database connection lost") {
		t.Errorf("incident report missing problem description:\n%s", narrative)
	}

	submit := string(res.Artifacts["submit_report.csv"])
	if !strings.Contains(submit, "101") || !strings.Contains(submit, "10") {
		t.Errorf("submit report missing correlation ids:\n%s", submit)
	}
}

func TestAnalyzeArchive(t *testing.T) {
	caseDir := t.TempDir()
	writeCase(t, caseDir)
	archive := filepath.Join(t.TempDir(), "case_7.zip")
	writeArchive(t, caseDir, archive)

	var events []models.ProgressEvent
	sink := models.ProgressFunc(func(ev models.ProgressEvent) {
		events = append(events, ev)
	})

	res, err := New(Options{Sink: sink}).AnalyzeArchive(context.Background(), archive)
	if err != nil {
		t.Fatalf("analyze archive: %v", err)
	}

	if res.ScenarioID != "7" {
		t.Errorf("scenario = %q, want 7", res.ScenarioID)
	}
	if res.Source != "case_7.zip" {
		t.Errorf("source = %q", res.Source)
	}
	if res.RunID == "" {
		t.Error("run id not set")
	}

	if len(events) < 2 {
		t.Fatalf("expected progress events, got %d", len(events))
	}
	if events[0].Stage != models.StageExtract || events[0].Percent != 0 {
		t.Errorf("first event = %+v, want extract at 0", events[0])
	}
	last := events[len(events)-1]
	if last.Stage != models.StageDone || last.Percent != 100 {
		t.Errorf("last event = %+v, want done at 100", last)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Percent < events[i-1].Percent {
			t.Errorf("percent went backwards: %+v after %+v", events[i], events[i-1])
		}
	}
}

func TestAnalyzeArchive_MissingInput(t *testing.T) {
	_, err := New(Options{}).AnalyzeArchive(context.Background(), "/no/such/archive.zip")
	if !errors.Is(err, ErrInputNotFound) {
		t.Fatalf("err = %v, want ErrInputNotFound", err)
	}
}

func TestAnalyzeCaseDir_NoKB(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.log"), []byte(testLog), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	_, err := New(Options{}).AnalyzeCaseDir(context.Background(), dir)
	if !errors.Is(err, kb.ErrNotFound) {
		t.Fatalf("err = %v, want kb.ErrNotFound", err)
	}
}

func TestAnalyzeCaseDir_Empty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "anomalies_problems.csv"), []byte(testKB), 0o644); err != nil {
		t.Fatalf("write kb: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "quiet.log"), []byte("2024-01-01T10:00:00 INFO app: all good\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	res, err := New(Options{}).AnalyzeCaseDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("empty case should not error: %v", err)
	}
	if res.Status != models.RunEmpty {
		t.Errorf("status = %q, want empty", res.Status)
	}
	if res.Message == "" {
		t.Error("empty result should carry a message")
	}
	if len(res.Artifacts) != 0 {
		t.Errorf("empty run produced %d artifacts", len(res.Artifacts))
	}
}

func TestBundle(t *testing.T) {
	res := &Result{Artifacts: map[string][]byte{
		"submit_report.csv":   []byte("a;b\n"),
		"incident_report.txt": []byte("report"),
	}}

	data, err := Bundle(res)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	if len(r.File) != 2 {
		t.Fatalf("bundle entries = %d, want 2", len(r.File))
	}
	// Deterministic entry order
	if r.File[0].Name != "incident_report.txt" || r.File[1].Name != "submit_report.csv" {
		t.Errorf("entry order = %s, %s", r.File[0].Name, r.File[1].Name)
	}
}
