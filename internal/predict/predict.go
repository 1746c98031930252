// Package predict derives alerts about symptoms that should occur but
// have not, and flags symptoms unknown to the knowledge base that
// correlate in time with a known error.
package predict

import (
	"fmt"
	"sort"
	"time"

	"github.com/good-yellow-bee/corrlog/internal/models"
)

// DefaultNovelWindow is the default look-back window for novel-anomaly
// correlation.
const DefaultNovelWindow = 30 * time.Minute

// Alerts returns a predictive alert for every knowledge-base anomaly
// tied to a detected problem that has not yet appeared among that
// problem's deduplicated WARNINGs. Returns nil when there are no
// classified ERRORs.
func Alerts(classified []models.ClassifiedRecord, anomalies *models.AnomalyTable, problems *models.ProblemTable, scenarioID string) []models.PredictiveAlert {
	triggers := make(map[int]models.ClassifiedRecord) // problem id -> earliest ERROR
	var order []int                                   // problem ids in first-seen order

	for _, rec := range classified {
		if rec.Level != models.LevelError || !rec.Linked() {
			continue
		}
		cur, ok := triggers[rec.FinalProblemID]
		if !ok {
			order = append(order, rec.FinalProblemID)
		}
		if !ok || rec.Timestamp.Before(cur.Timestamp) {
			triggers[rec.FinalProblemID] = rec
		}
	}
	if len(triggers) == 0 {
		return nil
	}

	// Anomaly ids that already occurred, per problem.
	occurred := make(map[int]map[int]bool)
	for _, rec := range classified {
		if rec.Level != models.LevelWarning || !rec.Linked() {
			continue
		}
		if occurred[rec.FinalProblemID] == nil {
			occurred[rec.FinalProblemID] = make(map[int]bool)
		}
		occurred[rec.FinalProblemID][rec.FinalAnomalyID] = true
	}

	var alerts []models.PredictiveAlert
	for _, pid := range order {
		trigger := triggers[pid]

		problemText, ok := problems.Text(pid)
		if !ok {
			problemText = fmt.Sprintf("description not found for problem %d", pid)
		}

		predicted := make(map[int]bool)
		for _, entry := range anomalies.ByProblem(pid) {
			if occurred[pid][entry.AnomalyID] || predicted[entry.AnomalyID] {
				continue
			}
			predicted[entry.AnomalyID] = true

			alerts = append(alerts, models.PredictiveAlert{
				ScenarioID:         scenarioID,
				ProblemID:          pid,
				ProblemText:        problemText,
				TriggerTime:        trigger.Timestamp,
				TriggerRaw:         trigger.Raw,
				PredictedAnomalyID: entry.AnomalyID,
				PredictedText:      entry.Text,
				Rationale: fmt.Sprintf(
					"this warning usually accompanies problem %d but has not been observed since the trigger error",
					pid),
			})
		}
	}

	return alerts
}

// NovelAnomalies flags WARNINGs the matcher could not link to any
// knowledge-base entry when a classified ERROR precedes them within the
// look-back window. Unmatched WARNINGs are deduplicated by (generalized
// message, file name), keeping the first occurrence. A WARNING with no
// qualifying ERROR is silently omitted: absence of correlation is a
// valid, non-exceptional outcome.
func NovelAnomalies(classified []models.ClassifiedRecord, window time.Duration, scenarioID string) []models.NovelAnomalyAlert {
	if window <= 0 {
		window = DefaultNovelWindow
	}

	type key struct{ generalized, file string }
	seen := make(map[key]bool)
	var novel []models.ClassifiedRecord

	for _, rec := range classified {
		if rec.Level != models.LevelWarning || rec.Linked() {
			continue
		}
		k := key{rec.GeneralizedMessage, rec.FileName}
		if seen[k] {
			continue
		}
		seen[k] = true
		novel = append(novel, rec)
	}
	if len(novel) == 0 {
		return nil
	}

	var knownErrors []models.ClassifiedRecord
	for _, rec := range classified {
		if rec.Level == models.LevelError && rec.Linked() {
			knownErrors = append(knownErrors, rec)
		}
	}
	if len(knownErrors) == 0 {
		return nil
	}
	sort.SliceStable(knownErrors, func(i, j int) bool {
		return knownErrors[i].Timestamp.Before(knownErrors[j].Timestamp)
	})

	var alerts []models.NovelAnomalyAlert
	for _, w := range novel {
		cause, ok := closestPreceding(knownErrors, w.Timestamp, window)
		if !ok {
			continue
		}

		alerts = append(alerts, models.NovelAnomalyAlert{
			ScenarioID: scenarioID,
			AnomalyID:  0, // sentinel: not in the knowledge base
			ProblemID:  cause.FinalProblemID,
			FileName:   w.FileName,
			LineNumber: w.LineNumber,
			Raw:        w.Raw,
		})
	}

	return alerts
}

// closestPreceding returns the classified ERROR with the largest
// timestamp in [t-window, t]. errs must be sorted ascending by timestamp.
func closestPreceding(errs []models.ClassifiedRecord, t time.Time, window time.Duration) (models.ClassifiedRecord, bool) {
	// First error strictly after t.
	i := sort.Search(len(errs), func(i int) bool {
		return errs[i].Timestamp.After(t)
	})
	if i == 0 {
		return models.ClassifiedRecord{}, false
	}

	candidate := errs[i-1]
	if candidate.Timestamp.Before(t.Add(-window)) {
		return models.ClassifiedRecord{}, false
	}
	return candidate, true
}
