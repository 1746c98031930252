// Package pipeline orchestrates a full analysis run: archive intake,
// knowledge base loading, log parsing, classification, correlation and
// report generation.
package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/corrlog/internal/classify"
	"github.com/good-yellow-bee/corrlog/internal/correlate"
	"github.com/good-yellow-bee/corrlog/internal/kb"
	"github.com/good-yellow-bee/corrlog/internal/metrics"
	"github.com/good-yellow-bee/corrlog/internal/models"
	"github.com/good-yellow-bee/corrlog/internal/parser"
	"github.com/good-yellow-bee/corrlog/internal/predict"
	"github.com/good-yellow-bee/corrlog/internal/report"
)

// ErrInputNotFound is returned when the archive or case directory does
// not exist.
var ErrInputNotFound = errors.New("input not found")

// Options configures a Pipeline. The zero value is usable: a lexical
// matcher is built from the knowledge base, progress goes nowhere and
// logging is disabled.
type Options struct {
	// NovelWindow bounds the lookback when correlating unknown
	// WARNINGs to known ERRORs. Zero means predict.DefaultNovelWindow.
	NovelWindow time.Duration

	// Threshold is the lexical match threshold. Zero means
	// classify.DefaultThreshold.
	Threshold float64

	// Matcher overrides the lexical matcher built from the knowledge
	// base. Used by tests and by callers with their own matching.
	Matcher classify.Matcher

	// Sink receives stage progress events.
	Sink models.ProgressSink

	// Formats selects the tabular artifact encodings. Empty means CSV
	// and XLSX.
	Formats []report.Format

	Logger *zap.Logger
}

// Result is the outcome of one analysis run. Artifacts maps artifact
// file name to the encoded report bytes.
type Result struct {
	RunID      string
	ScenarioID string
	Source     string
	Status     models.RunStatus
	Message    string
	StartedAt  time.Time
	Duration   time.Duration

	Records      int
	Correlations int
	Incidents    int
	Predictive   int
	Novel        int

	Artifacts map[string][]byte
}

// Run converts the result into its persistable run record. Artifact
// names are recorded; callers that write artifacts to disk may replace
// them with full paths.
func (r *Result) Run() *models.AnalysisRun {
	run := &models.AnalysisRun{
		ID:           r.RunID,
		ScenarioID:   r.ScenarioID,
		Source:       r.Source,
		Status:       r.Status,
		Message:      r.Message,
		StartedAt:    r.StartedAt,
		Duration:     r.Duration,
		Records:      r.Records,
		Correlations: r.Correlations,
		Incidents:    r.Incidents,
		Predictive:   r.Predictive,
		Novel:        r.Novel,
	}
	for name := range r.Artifacts {
		run.Artifacts = append(run.Artifacts, name)
	}
	sort.Strings(run.Artifacts)
	return run
}

// Pipeline runs analyses. Safe for concurrent use: runs share no
// mutable state.
type Pipeline struct {
	opts Options
}

// New creates a Pipeline, filling in defaults for unset options.
func New(opts Options) *Pipeline {
	if opts.NovelWindow <= 0 {
		opts.NovelWindow = predict.DefaultNovelWindow
	}
	if opts.Threshold <= 0 {
		opts.Threshold = classify.DefaultThreshold
	}
	if opts.Sink == nil {
		opts.Sink = models.NopSink{}
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []report.Format{report.FormatCSV, report.FormatXLSX}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Pipeline{opts: opts}
}

// AnalyzeArchive extracts a scenario ZIP archive and analyzes the case
// directory inside it. The scenario id is derived from the archive
// name.
func (p *Pipeline) AnalyzeArchive(ctx context.Context, archivePath string) (*Result, error) {
	if _, err := os.Stat(archivePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, archivePath)
	}

	started := time.Now()
	scenarioID := ScenarioID(archivePath)
	source := filepath.Base(archivePath)

	tmpDir, err := os.MkdirTemp("", "corrlog-extract-*")
	if err != nil {
		return nil, fmt.Errorf("create extraction directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	p.progress(models.StageExtract, 0, "extracting "+source)
	stageStart := time.Now()
	if err := Extract(archivePath, tmpDir); err != nil {
		return p.fail(scenarioID, source, started, err)
	}
	metrics.StageDuration.WithLabelValues(string(models.StageExtract)).Observe(time.Since(stageStart).Seconds())

	p.progress(models.StageLocateKB, 10, "locating knowledge base")
	kbPath, err := LocateKB(tmpDir)
	if err != nil {
		return p.fail(scenarioID, source, started, err)
	}
	p.progress(models.StageLocateKB, 15, "knowledge base: "+filepath.Base(kbPath))

	return p.analyzeCase(ctx, filepath.Dir(kbPath), kbPath, scenarioID, source, started)
}

// AnalyzeCaseDir analyzes an already-extracted case directory. The
// knowledge base is located inside it and the scenario id is derived
// from the directory name.
func (p *Pipeline) AnalyzeCaseDir(ctx context.Context, dir string) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, dir)
	}

	started := time.Now()
	scenarioID := ScenarioID(dir)
	source := filepath.Base(dir)

	p.progress(models.StageLocateKB, 10, "locating knowledge base")
	kbPath, err := LocateKB(dir)
	if err != nil {
		return p.fail(scenarioID, source, started, err)
	}
	p.progress(models.StageLocateKB, 15, "knowledge base: "+filepath.Base(kbPath))

	return p.analyzeCase(ctx, filepath.Dir(kbPath), kbPath, scenarioID, source, started)
}

func (p *Pipeline) analyzeCase(ctx context.Context, caseDir, kbPath, scenarioID, source string, started time.Time) (*Result, error) {
	log := p.opts.Logger.With(
		zap.String("scenario_id", scenarioID),
		zap.String("source", source),
	)

	if err := ctx.Err(); err != nil {
		return p.fail(scenarioID, source, started, err)
	}

	p.progress(models.StageLoadKB, 30, "loading knowledge base")
	stageStart := time.Now()
	anomalies, problems, err := kb.Load(kbPath)
	if err != nil {
		log.Error("knowledge base load failed", zap.String("path", kbPath), zap.Error(err))
		return p.fail(scenarioID, source, started, err)
	}
	metrics.StageDuration.WithLabelValues(string(models.StageLoadKB)).Observe(time.Since(stageStart).Seconds())
	p.progress(models.StageLoadKB, 40, fmt.Sprintf("%d anomalies, %d problems", anomalies.Len(), problems.Len()))

	if err := ctx.Err(); err != nil {
		return p.fail(scenarioID, source, started, err)
	}

	p.progress(models.StageParse, 50, "parsing log files")
	stageStart = time.Now()
	records, warnings, err := parser.ParseDirectory(caseDir)
	if err != nil {
		log.Error("log parse failed", zap.String("dir", caseDir), zap.Error(err))
		return p.fail(scenarioID, source, started, err)
	}
	for _, w := range warnings {
		log.Warn("log file skipped", zap.String("reason", w))
	}
	metrics.StageDuration.WithLabelValues(string(models.StageParse)).Observe(time.Since(stageStart).Seconds())
	metrics.RecordsParsed.Add(float64(len(records)))
	p.progress(models.StageParse, 60, fmt.Sprintf("%d records", len(records)))

	if len(records) == 0 {
		log.Info("no relevant records in case directory")
		res := &Result{
			RunID:      uuid.New().String(),
			ScenarioID: scenarioID,
			Source:     source,
			Status:     models.RunEmpty,
			Message:    "no WARNING or ERROR records found",
			StartedAt:  started,
			Duration:   time.Since(started),
			Artifacts:  map[string][]byte{},
		}
		metrics.RunsTotal.WithLabelValues(string(models.RunEmpty)).Inc()
		p.progress(models.StageDone, 100, res.Message)
		return res, nil
	}

	matcher := p.opts.Matcher
	if matcher == nil {
		matcher = classify.NewLexicalMatcher(anomalies, problems, p.opts.Threshold)
	}

	p.progress(models.StageClassify, 60, "classifying records")
	stageStart = time.Now()
	classified := classify.Stamp(records, matcher)
	metrics.StageDuration.WithLabelValues(string(models.StageClassify)).Observe(time.Since(stageStart).Seconds())
	p.progress(models.StageClassify, 75, "classification complete")

	if err := ctx.Err(); err != nil {
		return p.fail(scenarioID, source, started, err)
	}

	stageStart = time.Now()
	rows := correlate.Correlate(classified, scenarioID)
	incidents := correlate.Incidents(classified, problems)
	alerts := predict.Alerts(classified, anomalies, problems, scenarioID)
	novel := predict.NovelAnomalies(classified, p.opts.NovelWindow, scenarioID)
	metrics.StageDuration.WithLabelValues(string(models.StageCorrelate)).Observe(time.Since(stageStart).Seconds())
	metrics.AnomaliesDetected.Add(float64(len(rows)))
	metrics.ProblemsClassified.Add(float64(len(incidents)))
	metrics.PredictiveAlerts.Add(float64(len(alerts)))
	metrics.NovelAnomalies.Add(float64(len(novel)))

	p.progress(models.StageReport, 75, "generating reports")
	stageStart = time.Now()
	artifacts, err := p.renderArtifacts(scenarioID, rows, incidents, alerts, novel)
	if err != nil {
		log.Error("report generation failed", zap.Error(err))
		return p.fail(scenarioID, source, started, err)
	}
	metrics.StageDuration.WithLabelValues(string(models.StageReport)).Observe(time.Since(stageStart).Seconds())

	res := &Result{
		RunID:        uuid.New().String(),
		ScenarioID:   scenarioID,
		Source:       source,
		Status:       models.RunSucceeded,
		StartedAt:    started,
		Duration:     time.Since(started),
		Records:      len(records),
		Correlations: len(rows),
		Incidents:    len(incidents),
		Predictive:   len(alerts),
		Novel:        len(novel),
		Artifacts:    artifacts,
	}
	metrics.RunsTotal.WithLabelValues(string(models.RunSucceeded)).Inc()
	metrics.RunDuration.Observe(res.Duration.Seconds())

	log.Info("analysis complete",
		zap.Int("records", res.Records),
		zap.Int("correlations", res.Correlations),
		zap.Int("incidents", res.Incidents),
		zap.Int("predictive_alerts", res.Predictive),
		zap.Int("novel_anomalies", res.Novel),
		zap.Duration("duration", res.Duration),
	)
	p.progress(models.StageDone, 100, "analysis complete")
	return res, nil
}

// renderArtifacts encodes every report table in the configured formats
// plus the narrative incident report.
func (p *Pipeline) renderArtifacts(scenarioID string, rows []models.CorrelationRow, incidents []models.Incident, alerts []models.PredictiveAlert, novel []models.NovelAnomalyAlert) (map[string][]byte, error) {
	artifacts := make(map[string][]byte)

	for _, format := range p.opts.Formats {
		if format == report.FormatXLSX {
			sub, err := report.CorrelationsXLSX(rows)
			if err != nil {
				return nil, fmt.Errorf("encode submit_report.xlsx: %w", err)
			}
			artifacts["submit_report.xlsx"] = sub

			if len(alerts) > 0 {
				b, err := report.PredictiveAlertsXLSX(alerts)
				if err != nil {
					return nil, fmt.Errorf("encode predictive_alerts.xlsx: %w", err)
				}
				artifacts["predictive_alerts.xlsx"] = b
			}
			if len(novel) > 0 {
				b, err := report.NovelAnomaliesXLSX(novel)
				if err != nil {
					return nil, fmt.Errorf("encode novel_anomalies.xlsx: %w", err)
				}
				artifacts["novel_anomalies.xlsx"] = b
			}
			continue
		}

		ext := "." + string(format)

		var buf bytes.Buffer
		if err := report.NewExporter(format, &buf).Correlations(rows); err != nil {
			return nil, fmt.Errorf("encode submit_report%s: %w", ext, err)
		}
		artifacts["submit_report"+ext] = append([]byte(nil), buf.Bytes()...)

		if len(alerts) > 0 {
			buf.Reset()
			if err := report.NewExporter(format, &buf).PredictiveAlerts(alerts); err != nil {
				return nil, fmt.Errorf("encode predictive_alerts%s: %w", ext, err)
			}
			artifacts["predictive_alerts"+ext] = append([]byte(nil), buf.Bytes()...)
		}
		if len(novel) > 0 {
			buf.Reset()
			if err := report.NewExporter(format, &buf).NovelAnomalies(novel); err != nil {
				return nil, fmt.Errorf("encode novel_anomalies%s: %w", ext, err)
			}
			artifacts["novel_anomalies"+ext] = append([]byte(nil), buf.Bytes()...)
		}
	}

	var narrative bytes.Buffer
	if err := report.WriteNarrative(&narrative, scenarioID, incidents); err != nil {
		return nil, fmt.Errorf("write incident report: %w", err)
	}
	artifacts["incident_report.txt"] = narrative.Bytes()

	return artifacts, nil
}

// fail records the failure in metrics and returns a wrapped error.
func (p *Pipeline) fail(scenarioID, source string, started time.Time, err error) (*Result, error) {
	metrics.RunsTotal.WithLabelValues(string(models.RunFailed)).Inc()
	p.opts.Logger.Error("analysis failed",
		zap.String("scenario_id", scenarioID),
		zap.String("source", source),
		zap.Duration("elapsed", time.Since(started)),
		zap.Error(err),
	)
	return nil, fmt.Errorf("analyze %s: %w", source, err)
}

func (p *Pipeline) progress(stage models.Stage, percent int, message string) {
	p.opts.Sink.Progress(models.ProgressEvent{Stage: stage, Percent: percent, Message: message})
}

// Bundle packages the result's artifacts into a single ZIP archive.
func Bundle(res *Result) ([]byte, error) {
	names := make([]string, 0, len(res.Artifacts))
	for name := range res.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		data := res.Artifacts[name]
		f, err := w.Create(name)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("bundle %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			w.Close()
			return nil, fmt.Errorf("bundle %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize bundle: %w", err)
	}
	return buf.Bytes(), nil
}
