package models

// AnomalyEntry is one anomaly row from the knowledge-base catalog.
// The same anomaly id may appear in several rows, each tying the
// symptom to a different root problem; all rows are retained.
type AnomalyEntry struct {
	AnomalyID   int    `json:"anomaly_id"`
	ProblemID   int    `json:"problem_id"`
	Generalized string `json:"generalized_text"`
	Text        string `json:"raw_text"`
}

// ProblemEntry is one distinct problem description from the catalog.
type ProblemEntry struct {
	ProblemID   int    `json:"problem_id"`
	Generalized string `json:"generalized_text"`
	Text        string `json:"raw_text"`
}

// AnomalyTable holds every anomaly row in catalog order.
type AnomalyTable struct {
	Entries []AnomalyEntry
}

// ByProblem returns all anomaly rows associated with the given problem id,
// in catalog order.
func (t *AnomalyTable) ByProblem(problemID int) []AnomalyEntry {
	var out []AnomalyEntry
	for _, e := range t.Entries {
		if e.ProblemID == problemID {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of anomaly rows.
func (t *AnomalyTable) Len() int { return len(t.Entries) }

// ProblemTable holds distinct problem entries in catalog order.
type ProblemTable struct {
	Entries []ProblemEntry
}

// Text returns the raw description for a problem id.
func (t *ProblemTable) Text(problemID int) (string, bool) {
	for _, e := range t.Entries {
		if e.ProblemID == problemID {
			return e.Text, true
		}
	}
	return "", false
}

// Len returns the number of problem entries.
func (t *ProblemTable) Len() int { return len(t.Entries) }
