package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/corrlog/internal/kb"
	"github.com/good-yellow-bee/corrlog/internal/models"
)

var kbCmd = &cobra.Command{
	Use:   "kb [file]",
	Short: "Inspect a knowledge base file",
	Long: `Load a knowledge base file (CSV or XLSX) and print its anomaly and
problem catalog, including the generalized text used for matching.

Examples:
  # Inspect a CSV knowledge base
  corrlog kb anomalies_problems.csv

  # JSON output
  corrlog kb anomalies_problems.xlsx -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runKB,
}

func init() {
	rootCmd.AddCommand(kbCmd)
}

type kbCatalog struct {
	Path      string                `json:"path"`
	Anomalies []models.AnomalyEntry `json:"anomalies"`
	Problems  []models.ProblemEntry `json:"problems"`
}

func runKB(cmd *cobra.Command, args []string) error {
	anomalies, problems, err := kb.Load(args[0])
	if err != nil {
		return err
	}

	catalog := kbCatalog{
		Path:      args[0],
		Anomalies: anomalies.Entries,
		Problems:  problems.Entries,
	}

	if GetOutput() == "json" {
		data, err := json.MarshalIndent(catalog, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal catalog: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("\nKnowledge Base: %s\n", catalog.Path)
	fmt.Printf("Anomalies: %d | Problems: %d\n\n", anomalies.Len(), problems.Len())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ANOMALY\tPROBLEM\tGENERALIZED TEXT")
	for _, a := range catalog.Anomalies {
		fmt.Fprintf(w, "%d\t%d\t%s\n", a.AnomalyID, a.ProblemID, a.Generalized)
	}
	w.Flush()

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROBLEM\tDESCRIPTION")
	for _, p := range catalog.Problems {
		fmt.Fprintf(w, "%d\t%s\n", p.ProblemID, p.Text)
	}
	w.Flush()
	fmt.Println()

	return nil
}
