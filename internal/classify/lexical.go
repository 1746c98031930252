package classify

import (
	"strings"

	"github.com/good-yellow-bee/corrlog/internal/models"
)

// DefaultThreshold is the minimum token-overlap score the lexical
// matcher accepts.
const DefaultThreshold = 0.75

// LexicalMatcher is a deterministic Matcher over generalized text. An
// exact match on the generalized string wins outright; otherwise the
// entry with the highest token-set overlap (Jaccard) above the threshold
// is chosen. Earlier catalog rows win ties, so results are stable across
// runs.
//
// It stands in for an embedding-backed matcher wherever one is not
// wired in, and doubles as the deterministic matcher used in tests.
type LexicalMatcher struct {
	anomalies []lexEntry
	problems  []lexEntry

	anomalyExact map[string]int // generalized text -> first row index
	problemExact map[string]int

	threshold float64
	rows      []models.AnomalyEntry
	probIDs   []int
}

type lexEntry struct {
	tokens map[string]bool
}

// NewLexicalMatcher builds a matcher over the two catalog tables.
// threshold <= 0 selects DefaultThreshold.
func NewLexicalMatcher(anomalies *models.AnomalyTable, problems *models.ProblemTable, threshold float64) *LexicalMatcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	m := &LexicalMatcher{
		threshold:    threshold,
		anomalyExact: make(map[string]int, anomalies.Len()),
		problemExact: make(map[string]int, problems.Len()),
	}

	for i, e := range anomalies.Entries {
		m.rows = append(m.rows, e)
		m.anomalies = append(m.anomalies, lexEntry{tokens: tokenize(e.Generalized)})
		if _, exists := m.anomalyExact[e.Generalized]; !exists {
			m.anomalyExact[e.Generalized] = i
		}
	}
	for i, e := range problems.Entries {
		m.probIDs = append(m.probIDs, e.ProblemID)
		m.problems = append(m.problems, lexEntry{tokens: tokenize(e.Generalized)})
		if _, exists := m.problemExact[e.Generalized]; !exists {
			m.problemExact[e.Generalized] = i
		}
	}

	return m
}

// MatchProblem implements Matcher.
func (m *LexicalMatcher) MatchProblem(generalized string) (int, bool) {
	if i, ok := m.problemExact[generalized]; ok {
		return m.probIDs[i], true
	}
	i, ok := bestOverlap(tokenize(generalized), m.problems, m.threshold)
	if !ok {
		return 0, false
	}
	return m.probIDs[i], true
}

// MatchAnomaly implements Matcher.
func (m *LexicalMatcher) MatchAnomaly(generalized string) (models.AnomalyEntry, bool) {
	if i, ok := m.anomalyExact[generalized]; ok {
		return m.rows[i], true
	}
	i, ok := bestOverlap(tokenize(generalized), m.anomalies, m.threshold)
	if !ok {
		return models.AnomalyEntry{}, false
	}
	return m.rows[i], true
}

// bestOverlap returns the index of the entry with the highest Jaccard
// score at or above threshold. Strict improvement is required, so the
// earliest best-scoring entry wins.
func bestOverlap(tokens map[string]bool, entries []lexEntry, threshold float64) (int, bool) {
	best := -1
	bestScore := 0.0

	for i, e := range entries {
		score := jaccard(tokens, e.tokens)
		if score >= threshold && score > bestScore {
			best = i
			bestScore = score
		}
	}

	return best, best >= 0
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		tokens[tok] = true
	}
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
