package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/good-yellow-bee/corrlog/internal/models"
)

const ruleWidth = 70

// WriteNarrative renders the impact-ranked incident report as text:
//
//	======= INCIDENT REPORT FOR SCENARIO: Case13 =======
//
//	======================================================================
//	RANK: 1 | INCIDENT: Database connection pool exhausted (ID: 10)
//	IMPACT SCORE: 4 (anomalies: 2, systems affected: 2)
//	======================================================================
func WriteNarrative(w io.Writer, caseName string, incidents []models.Incident) error {
	if _, err := fmt.Fprintf(w, "======= INCIDENT REPORT FOR SCENARIO: %s =======\n", caseName); err != nil {
		return err
	}

	rule := strings.Repeat("=", ruleWidth)
	for _, inc := range incidents {
		_, err := fmt.Fprintf(w, "\n%s\nRANK: %d | INCIDENT: %s (ID: %d)\nIMPACT SCORE: %d (anomalies: %d, systems affected: %d)\n%s\n",
			rule,
			inc.Rank, inc.Description, inc.ProblemID,
			inc.ImpactScore, inc.AnomalyCount, inc.UniqueSystemsAffected,
			rule)
		if err != nil {
			return err
		}
	}

	return nil
}
