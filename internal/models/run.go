package models

import "time"

// RunStatus is the terminal state of an analysis run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunEmpty     RunStatus = "empty"
	RunFailed    RunStatus = "failed"
)

// AnalysisRun is the persisted record of one analysis invocation.
type AnalysisRun struct {
	ID         string        `json:"id"`
	ScenarioID string        `json:"scenario_id"`
	Source     string        `json:"source"`
	Status     RunStatus     `json:"status"`
	Message    string        `json:"message,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ms"`

	Records      int `json:"records"`
	Correlations int `json:"correlations"`
	Incidents    int `json:"incidents"`
	Predictive   int `json:"predictive_alerts"`
	Novel        int `json:"novel_anomalies"`

	Artifacts []string `json:"artifacts,omitempty"`
}
