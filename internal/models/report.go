package models

import "time"

// CorrelationRow is one row of the primary correlation report: a
// deduplicated WARNING joined to the earliest ERROR sharing its problem id.
type CorrelationRow struct {
	ScenarioID string `json:"scenario_id"`
	AnomalyID  int    `json:"anomaly_id"`
	ProblemID  int    `json:"problem_id"`

	// Root-cause ERROR details.
	ProblemFileName   string `json:"problem_file"`
	ProblemLineNumber int    `json:"problem_line"`
	ProblemRaw        string `json:"problem_log"`

	// The WARNING's own raw line and timestamp. The timestamp is the
	// canonical ordering key for report rows.
	AnomalyRaw  string    `json:"anomaly_log"`
	AnomalyTime time.Time `json:"anomaly_time"`
}

// Incident aggregates the deduplicated WARNINGs of one root problem.
// ImpactScore is always AnomalyCount * UniqueSystemsAffected.
type Incident struct {
	Rank                  int    `json:"rank"`
	ProblemID             int    `json:"problem_id"`
	Description           string `json:"description"`
	AnomalyCount          int    `json:"anomaly_count"`
	UniqueSystemsAffected int    `json:"unique_systems_affected"`
	ImpactScore           int    `json:"impact_score"`
}

// PredictiveAlert forecasts a known-associated symptom that has not yet
// appeared for an already-detected problem. Alerts are recomputed per run.
type PredictiveAlert struct {
	ScenarioID         string    `json:"scenario_id"`
	ProblemID          int       `json:"problem_id"`
	ProblemText        string    `json:"problem_text"`
	TriggerTime        time.Time `json:"trigger_time"`
	TriggerRaw         string    `json:"trigger_log"`
	PredictedAnomalyID int       `json:"predicted_anomaly_id"`
	PredictedText      string    `json:"predicted_text"`
	Rationale          string    `json:"rationale"`
}

// NovelAnomalyAlert flags an unrecognized WARNING that is time-correlated
// with a recognized prior ERROR. AnomalyID is always 0: the WARNING itself
// has no knowledge-base identity; ProblemID belongs to the correlated ERROR.
type NovelAnomalyAlert struct {
	ScenarioID string `json:"scenario_id"`
	AnomalyID  int    `json:"anomaly_id"`
	ProblemID  int    `json:"problem_id"`
	FileName   string `json:"file_name"`
	LineNumber int    `json:"line_number"`
	Raw        string `json:"log"`
}
