// Package correlate links classified WARNING records to the ERROR
// records sharing their root-problem identity, deduplicates repeated
// symptom/cause pairs and computes impact ranking.
package correlate

import (
	"sort"

	"github.com/good-yellow-bee/corrlog/internal/models"
)

// reportableWarnings selects WARNINGs linked to a problem and collapses
// repeated (anomaly, problem) pairs to the earliest occurrence. Repeated
// identical symptom/cause pairs collapse to one reported incident,
// preventing alert flooding from noisy repeated logging.
func reportableWarnings(classified []models.ClassifiedRecord) []models.ClassifiedRecord {
	type pair struct{ anomaly, problem int }

	index := make(map[pair]int)
	var out []models.ClassifiedRecord

	for _, rec := range classified {
		if rec.Level != models.LevelWarning || !rec.Linked() {
			continue
		}

		key := pair{rec.FinalAnomalyID, rec.FinalProblemID}
		if i, seen := index[key]; seen {
			if rec.Timestamp.Before(out[i].Timestamp) {
				out[i] = rec
			}
			continue
		}
		index[key] = len(out)
		out = append(out, rec)
	}

	return out
}

// rootCauses returns the earliest classified ERROR for each distinct
// problem id.
func rootCauses(classified []models.ClassifiedRecord) map[int]models.ClassifiedRecord {
	roots := make(map[int]models.ClassifiedRecord)

	for _, rec := range classified {
		if rec.Level != models.LevelError || !rec.Linked() {
			continue
		}
		if cur, ok := roots[rec.FinalProblemID]; !ok || rec.Timestamp.Before(cur.Timestamp) {
			roots[rec.FinalProblemID] = rec
		}
	}

	return roots
}

// Correlate joins each deduplicated reportable WARNING to the root-cause
// ERROR sharing its problem id. WARNINGs whose problem id has no
// root-cause record are discarded; a self-consistent matcher never
// produces them, but they must not crash the run. Rows are ordered
// ascending by the WARNING's timestamp.
func Correlate(classified []models.ClassifiedRecord, scenarioID string) []models.CorrelationRow {
	roots := rootCauses(classified)

	var rows []models.CorrelationRow
	for _, w := range reportableWarnings(classified) {
		root, ok := roots[w.FinalProblemID]
		if !ok {
			continue
		}

		rows = append(rows, models.CorrelationRow{
			ScenarioID:        scenarioID,
			AnomalyID:         w.FinalAnomalyID,
			ProblemID:         w.FinalProblemID,
			ProblemFileName:   root.FileName,
			ProblemLineNumber: root.LineNumber,
			ProblemRaw:        root.Raw,
			AnomalyRaw:        w.Raw,
			AnomalyTime:       w.Timestamp,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].AnomalyTime.Before(rows[j].AnomalyTime)
	})

	return rows
}

// Incidents groups the deduplicated reportable WARNINGs by problem id
// and ranks the problems descending by impact score. The score is
// anomaly count times distinct affected systems (file names). Ties keep
// first-seen order. Problems without a root-cause ERROR are skipped.
func Incidents(classified []models.ClassifiedRecord, problems *models.ProblemTable) []models.Incident {
	roots := rootCauses(classified)

	type group struct {
		count int
		files map[string]bool
	}

	groups := make(map[int]*group)
	var order []int // problem ids in first-seen order

	for _, w := range reportableWarnings(classified) {
		g, ok := groups[w.FinalProblemID]
		if !ok {
			g = &group{files: make(map[string]bool)}
			groups[w.FinalProblemID] = g
			order = append(order, w.FinalProblemID)
		}
		g.count++
		g.files[w.FileName] = true
	}

	var incidents []models.Incident
	for _, pid := range order {
		if _, ok := roots[pid]; !ok {
			continue
		}

		description, ok := problems.Text(pid)
		if !ok {
			description = "description not found"
		}

		g := groups[pid]
		incidents = append(incidents, models.Incident{
			ProblemID:             pid,
			Description:           description,
			AnomalyCount:          g.count,
			UniqueSystemsAffected: len(g.files),
			ImpactScore:           g.count * len(g.files),
		})
	}

	sort.SliceStable(incidents, func(i, j int) bool {
		return incidents[i].ImpactScore > incidents[j].ImpactScore
	})
	for i := range incidents {
		incidents[i].Rank = i + 1
	}

	return incidents
}
