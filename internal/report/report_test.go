package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/good-yellow-bee/corrlog/internal/models"
)

func sampleRows() []models.CorrelationRow {
	return []models.CorrelationRow{
		{
			ScenarioID:        "13",
			AnomalyID:         1,
			ProblemID:         10,
			ProblemFileName:   "db.txt",
			ProblemLineNumber: 4,
			ProblemRaw:        "2024-01-15T10:00:00 ERROR Database: pool exhausted",
			AnomalyRaw:        "2024-01-15T10:01:00 WARNING Cache: eviction rate high",
			AnomalyTime:       time.Date(2024, 1, 15, 10, 1, 0, 0, time.UTC),
		},
	}
}

func TestExporter_CorrelationsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter(FormatCSV, &buf).Correlations(sampleRows()); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d csv records, want 2", len(records))
	}
	if records[0][0] != "scenario_id" || records[0][6] != "anomaly_log" {
		t.Errorf("header = %v", records[0])
	}
	want := []string{
		"13", "1", "10", "db.txt", "4",
		"2024-01-15T10:00:00 ERROR Database: pool exhausted",
		"2024-01-15T10:01:00 WARNING Cache: eviction rate high",
	}
	for i, v := range want {
		if records[1][i] != v {
			t.Errorf("column %d = %q, want %q", i, records[1][i], v)
		}
	}
}

func TestExporter_CorrelationsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter(FormatJSON, &buf).Correlations(sampleRows()); err != nil {
		t.Fatal(err)
	}

	var decoded []models.CorrelationRow
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].ProblemID != 10 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestExporter_NovelAnomaliesCSV(t *testing.T) {
	alerts := []models.NovelAnomalyAlert{
		{ScenarioID: "13", AnomalyID: 0, ProblemID: 20, FileName: "app.txt", LineNumber: 7, Raw: "raw line"},
	}

	var buf bytes.Buffer
	if err := NewExporter(FormatCSV, &buf).NovelAnomalies(alerts); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if records[1][1] != "0" {
		t.Errorf("anomaly_id column = %q, want sentinel 0", records[1][1])
	}
}

func TestExporter_PredictiveAlertsCSV(t *testing.T) {
	alerts := []models.PredictiveAlert{
		{
			ScenarioID:         "13",
			ProblemID:          10,
			ProblemText:        "Database connection pool exhausted",
			TriggerTime:        time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			TriggerRaw:         "raw error",
			PredictedAnomalyID: 2,
			PredictedText:      "Slow query on orders table",
			Rationale:          "usually accompanies problem 10",
		},
	}

	var buf bytes.Buffer
	if err := NewExporter(FormatCSV, &buf).PredictiveAlerts(alerts); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"predicted_anomaly_id", "Slow query on orders table", "2024-01-15T10:00:00Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteNarrative(t *testing.T) {
	incidents := []models.Incident{
		{Rank: 1, ProblemID: 10, Description: "Database connection pool exhausted", AnomalyCount: 2, UniqueSystemsAffected: 2, ImpactScore: 4},
		{Rank: 2, ProblemID: 20, Description: "Memory leak", AnomalyCount: 1, UniqueSystemsAffected: 1, ImpactScore: 1},
	}

	var buf bytes.Buffer
	if err := WriteNarrative(&buf, "Case13", incidents); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"INCIDENT REPORT FOR SCENARIO: Case13",
		"RANK: 1 | INCIDENT: Database connection pool exhausted (ID: 10)",
		"IMPACT SCORE: 4 (anomalies: 2, systems affected: 2)",
		"RANK: 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("narrative missing %q:\n%s", want, out)
		}
	}

	// Rank 1 appears before rank 2.
	if strings.Index(out, "RANK: 1") > strings.Index(out, "RANK: 2") {
		t.Error("narrative ranks out of order")
	}
}

func TestCorrelationsXLSX(t *testing.T) {
	data, err := CorrelationsXLSX(sampleRows())
	if err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d sheet rows, want 2", len(rows))
	}
	if rows[1][0] != "13" || rows[1][2] != "10" {
		t.Errorf("data row = %v", rows[1])
	}
}
