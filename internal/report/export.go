// Package report renders analysis results into the artifacts consumed
// by the surrounding system: the primary correlation table, the
// impact-ranked incident narrative, the predictive-alert table and the
// novel-anomaly table.
package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/good-yellow-bee/corrlog/internal/models"
)

// Format defines the output format for table exports.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat parses a string to Format.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "csv":
		return FormatCSV, true
	case "json":
		return FormatJSON, true
	case "xlsx":
		return FormatXLSX, true
	default:
		return "", false
	}
}

// Column headers for the primary correlation table.
var correlationHeader = []string{
	"scenario_id", "anomaly_id", "problem_id",
	"problem_file", "problem_line", "problem_log", "anomaly_log",
}

// Column headers for the novel-anomaly table. It mirrors the primary
// table's shape with anomaly_id fixed at 0 and the WARNING's own
// file/line/log.
var novelHeader = []string{
	"scenario_id", "anomaly_id", "problem_id", "file_name", "line_number", "log",
}

var predictiveHeader = []string{
	"scenario_id", "problem_id", "problem_text", "trigger_time", "trigger_log",
	"predicted_anomaly_id", "predicted_text", "rationale",
}

// Exporter writes report tables to an io.Writer in CSV or JSON.
type Exporter struct {
	format Format
	writer io.Writer
}

// NewExporter creates an exporter for the given format.
func NewExporter(format Format, w io.Writer) *Exporter {
	return &Exporter{format: format, writer: w}
}

// Correlations writes the primary correlation table.
func (e *Exporter) Correlations(rows []models.CorrelationRow) error {
	if e.format == FormatJSON {
		return e.encodeJSON(rows)
	}

	w := csv.NewWriter(e.writer)
	defer w.Flush()

	w.Write(correlationHeader)
	for _, r := range rows {
		w.Write([]string{
			r.ScenarioID,
			strconv.Itoa(r.AnomalyID),
			strconv.Itoa(r.ProblemID),
			r.ProblemFileName,
			strconv.Itoa(r.ProblemLineNumber),
			r.ProblemRaw,
			r.AnomalyRaw,
		})
	}

	return w.Error()
}

// PredictiveAlerts writes the predictive-alert table.
func (e *Exporter) PredictiveAlerts(alerts []models.PredictiveAlert) error {
	if e.format == FormatJSON {
		return e.encodeJSON(alerts)
	}

	w := csv.NewWriter(e.writer)
	defer w.Flush()

	w.Write(predictiveHeader)
	for _, a := range alerts {
		w.Write([]string{
			a.ScenarioID,
			strconv.Itoa(a.ProblemID),
			a.ProblemText,
			a.TriggerTime.Format(time.RFC3339),
			a.TriggerRaw,
			strconv.Itoa(a.PredictedAnomalyID),
			a.PredictedText,
			a.Rationale,
		})
	}

	return w.Error()
}

// NovelAnomalies writes the novel-anomaly table.
func (e *Exporter) NovelAnomalies(alerts []models.NovelAnomalyAlert) error {
	if e.format == FormatJSON {
		return e.encodeJSON(alerts)
	}

	w := csv.NewWriter(e.writer)
	defer w.Flush()

	w.Write(novelHeader)
	for _, a := range alerts {
		w.Write([]string{
			a.ScenarioID,
			strconv.Itoa(a.AnomalyID),
			strconv.Itoa(a.ProblemID),
			a.FileName,
			strconv.Itoa(a.LineNumber),
			a.Raw,
		})
	}

	return w.Error()
}

// Incidents writes the impact-ranked incident list.
func (e *Exporter) Incidents(incidents []models.Incident) error {
	if e.format == FormatJSON {
		return e.encodeJSON(incidents)
	}

	w := csv.NewWriter(e.writer)
	defer w.Flush()

	w.Write([]string{"rank", "problem_id", "description", "impact_score", "anomaly_count", "systems_affected"})
	for _, inc := range incidents {
		w.Write([]string{
			strconv.Itoa(inc.Rank),
			strconv.Itoa(inc.ProblemID),
			inc.Description,
			strconv.Itoa(inc.ImpactScore),
			strconv.Itoa(inc.AnomalyCount),
			strconv.Itoa(inc.UniqueSystemsAffected),
		})
	}

	return w.Error()
}

func (e *Exporter) encodeJSON(v interface{}) error {
	encoder := json.NewEncoder(e.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
