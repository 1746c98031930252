// Package classify stamps parsed log records with knowledge-base ids.
//
// Similarity lookup itself is an external capability consumed through the
// Matcher interface; this package only defines the policy for how match
// results are applied: ERRORs are matched against the problem table,
// WARNINGs against the anomaly table, and each matched WARNING derives
// its problem id from the matched anomaly row.
package classify

import "github.com/good-yellow-bee/corrlog/internal/models"

// Matcher selects the best knowledge-base entry for a generalized text,
// or reports no match when nothing clears its similarity threshold. The
// threshold is a matcher parameter, not owned by this package.
type Matcher interface {
	// MatchProblem returns the problem id best matching the text.
	MatchProblem(generalized string) (problemID int, ok bool)

	// MatchAnomaly returns the anomaly row best matching the text.
	MatchAnomaly(generalized string) (entry models.AnomalyEntry, ok bool)
}

// Stamp assigns final ids to every record. Unmatched records keep id 0,
// which all downstream logic treats as "not linked". The input order is
// preserved.
func Stamp(records []models.LogRecord, m Matcher) []models.ClassifiedRecord {
	classified := make([]models.ClassifiedRecord, 0, len(records))

	for _, rec := range records {
		c := models.ClassifiedRecord{LogRecord: rec}

		switch rec.Level {
		case models.LevelError:
			if id, ok := m.MatchProblem(rec.GeneralizedMessage); ok {
				c.FinalProblemID = id
			}
		case models.LevelWarning:
			if entry, ok := m.MatchAnomaly(rec.GeneralizedMessage); ok {
				c.FinalAnomalyID = entry.AnomalyID
				c.FinalProblemID = entry.ProblemID
			}
		}

		classified = append(classified, c)
	}

	return classified
}
