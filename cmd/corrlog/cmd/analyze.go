package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/corrlog/internal/models"
	"github.com/good-yellow-bee/corrlog/internal/pipeline"
	"github.com/good-yellow-bee/corrlog/internal/report"
	"github.com/good-yellow-bee/corrlog/internal/storage"
)

var (
	analyzeWindow    int
	analyzeThreshold float64
	analyzeWorkers   int
	analyzeFormats   []string
	analyzeExportTo  string
	analyzeHistory   string
	analyzeBundle    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [archive|dir...]",
	Short: "Analyze scenario archives or case directories",
	Long: `Analyze one or more scenario inputs: ZIP archives containing a
knowledge base and log files, or already-extracted case directories.

Each input is processed independently; reports are written into a
per-scenario directory under the export directory.

Examples:
  # Analyze a single archive
  corrlog analyze case_7.zip

  # Analyze several inputs in parallel
  corrlog analyze drop/*.zip --workers 4

  # Tune matching and the novel-anomaly lookback
  corrlog analyze case_7.zip --threshold 0.8 --window 15

  # Emit JSON tables and a result bundle
  corrlog analyze case_7.zip --formats csv,json --bundle

  # Record runs in a history database
  corrlog analyze case_7.zip --history runs.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVar(&analyzeWindow, "window", 30, "novel-anomaly lookback window in minutes")
	analyzeCmd.Flags().Float64Var(&analyzeThreshold, "threshold", 0, "lexical match threshold (0 = default)")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 2, "number of inputs analyzed in parallel")
	analyzeCmd.Flags().StringSliceVar(&analyzeFormats, "formats", []string{"csv", "xlsx"}, "report table formats (csv, json, xlsx)")
	analyzeCmd.Flags().StringVar(&analyzeExportTo, "export-dir", "results", "directory for report artifacts")
	analyzeCmd.Flags().StringVar(&analyzeHistory, "history", "", "sqlite database recording run history")
	analyzeCmd.Flags().BoolVar(&analyzeBundle, "bundle", false, "also write all artifacts as one result ZIP")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	formats, err := parseFormats(analyzeFormats)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	var store *storage.SQLiteStorage
	if analyzeHistory != "" {
		store = storage.NewSQLiteStorage(analyzeHistory)
		if err := store.Open(); err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrate history database: %w", err)
		}
	}

	var sink models.ProgressSink = models.NopSink{}
	if IsVerbose() {
		var mu sync.Mutex
		sink = models.ProgressFunc(func(ev models.ProgressEvent) {
			mu.Lock()
			fmt.Printf("[%3d%%] %-10s %s\n", ev.Percent, ev.Stage, ev.Message)
			mu.Unlock()
		})
	}

	p := pipeline.New(pipeline.Options{
		NovelWindow: time.Duration(analyzeWindow) * time.Minute,
		Threshold:   analyzeThreshold,
		Sink:        sink,
		Formats:     formats,
		Logger:      logger,
	})

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		PrintVerbose("Received interrupt, stopping...")
		cancel()
	}()

	results := make([]*pipeline.Result, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(analyzeWorkers)

	for i, input := range args {
		g.Go(func() error {
			res, err := analyzeInput(gctx, p, input)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		paths, err := writeArtifacts(res, analyzeExportTo, analyzeBundle)
		if err != nil {
			return err
		}

		if store != nil {
			run := res.Run()
			run.Artifacts = paths
			if err := store.Runs().Create(ctx, run); err != nil {
				return fmt.Errorf("record run: %w", err)
			}
		}
	}

	outputResults(results)
	return nil
}

func parseFormats(names []string) ([]report.Format, error) {
	formats := make([]report.Format, 0, len(names))
	for _, name := range names {
		f, ok := report.ParseFormat(name)
		if !ok {
			return nil, fmt.Errorf("invalid format: %s (use csv, json or xlsx)", name)
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// analyzeInput routes an input path to the archive or directory entry
// point.
func analyzeInput(ctx context.Context, p *pipeline.Pipeline, input string) (*pipeline.Result, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrInputNotFound, input)
	}
	if info.IsDir() {
		return p.AnalyzeCaseDir(ctx, input)
	}
	return p.AnalyzeArchive(ctx, input)
}

// writeArtifacts stores the run's reports under
// <exportDir>/scenario_<id>/ and returns the written paths.
func writeArtifacts(res *pipeline.Result, exportDir string, bundle bool) ([]string, error) {
	if len(res.Artifacts) == 0 {
		return nil, nil
	}

	dir := filepath.Join(exportDir, "scenario_"+res.ScenarioID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	names := make([]string, 0, len(res.Artifacts))
	for name := range res.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, res.Artifacts[name], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
		PrintVerbose("Wrote %s", path)
	}

	if bundle {
		data, err := pipeline.Bundle(res)
		if err != nil {
			return nil, fmt.Errorf("bundle results: %w", err)
		}
		path := filepath.Join(dir, "results.zip")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
		PrintVerbose("Wrote %s", path)
	}

	return paths, nil
}

func outputResults(results []*pipeline.Result) {
	switch GetOutput() {
	case "json":
		outputResultsJSON(results)
	case "plain":
		outputResultsPlain(results)
	default:
		outputResultsTable(results)
	}
}

func outputResultsJSON(results []*pipeline.Result) {
	runs := make([]*models.AnalysisRun, 0, len(results))
	for _, res := range results {
		runs = append(runs, res.Run())
	}
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		PrintError(fmt.Sprintf("failed to marshal JSON: %v", err), false)
		return
	}
	fmt.Println(string(data))
}

func outputResultsPlain(results []*pipeline.Result) {
	for _, res := range results {
		fmt.Printf("%s: scenario %s | %s | records %d | correlations %d | incidents %d | predictive %d | novel %d | %v\n",
			res.Source, res.ScenarioID, res.Status,
			res.Records, res.Correlations, res.Incidents,
			res.Predictive, res.Novel, res.Duration.Round(time.Millisecond))
	}
}

func outputResultsTable(results []*pipeline.Result) {
	fmt.Println()
	fmt.Println("Analysis Results")
	fmt.Println("================")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tSOURCE\tSTATUS\tRECORDS\tCORRELATIONS\tINCIDENTS\tPREDICTIVE\tNOVEL\tDURATION")
	for _, res := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%v\n",
			res.ScenarioID, res.Source, res.Status,
			res.Records, res.Correlations, res.Incidents,
			res.Predictive, res.Novel, res.Duration.Round(time.Millisecond))
	}
	w.Flush()

	for _, res := range results {
		if res.Message != "" {
			fmt.Printf("\n%s: %s\n", res.Source, res.Message)
		}
	}
	fmt.Println()
}
