package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/corrlog/internal/intake"
	"github.com/good-yellow-bee/corrlog/internal/metrics"
	"github.com/good-yellow-bee/corrlog/internal/pipeline"
	"github.com/good-yellow-bee/corrlog/internal/storage"
)

var (
	watchConfig      string
	watchWorkers     int
	watchWindow      int
	watchThreshold   float64
	watchFormats     []string
	watchExportTo    string
	watchHistory     string
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a drop directory for scenario archives",
	Long: `Continuously watch a directory and analyze every *.zip archive
dropped into it. Reports are written under the export directory,
optionally recording each run in a history database and exposing
Prometheus metrics.

Settings may come from flags or a YAML config file; flags win.

Examples:
  # Watch with defaults
  corrlog watch /srv/corrlog/drop

  # Watch with metrics and run history
  corrlog watch /srv/corrlog/drop --metrics-addr :9090 --history runs.db

  # Watch using a config file
  corrlog watch --config corrlog.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchConfig, "config", "c", "", "YAML config file")
	watchCmd.Flags().IntVar(&watchWorkers, "workers", 0, "number of archives analyzed in parallel")
	watchCmd.Flags().IntVar(&watchWindow, "window", 0, "novel-anomaly lookback window in minutes")
	watchCmd.Flags().Float64Var(&watchThreshold, "threshold", 0, "lexical match threshold (0 = default)")
	watchCmd.Flags().StringSliceVar(&watchFormats, "formats", nil, "report table formats (csv, json, xlsx)")
	watchCmd.Flags().StringVar(&watchExportTo, "export-dir", "", "directory for report artifacts")
	watchCmd.Flags().StringVar(&watchHistory, "history", "", "sqlite database recording run history")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "address for the Prometheus metrics endpoint")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := watchConfiguration(args)
	if err != nil {
		return err
	}

	formats, err := parseFormats(cfg.Reports.Formats)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	var store *storage.SQLiteStorage
	if cfg.History.Path != "" {
		store = storage.NewSQLiteStorage(cfg.History.Path)
		if err := store.Open(); err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrate history database: %w", err)
		}
	}

	p := pipeline.New(pipeline.Options{
		NovelWindow: time.Duration(cfg.Analysis.NovelAnomalyWindowMinutes) * time.Minute,
		Threshold:   cfg.Analysis.Threshold,
		Formats:     formats,
		Logger:      logger,
	})

	handler := func(ctx context.Context, archivePath string) error {
		res, err := p.AnalyzeArchive(ctx, archivePath)
		if err != nil {
			return err
		}

		paths, err := writeArtifacts(res, cfg.Reports.ExportDir, false)
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
		return nil
	}

	w, err := intake.NewWatcher(intake.Options{
		Dir:         cfg.Intake.Dir,
		Concurrency: cfg.Intake.Concurrency,
		Logger:      logger,
	}, handler)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	var metricsSrv *metrics.Server
	if cfg.Metrics.Address != "" {
		metricsSrv = metrics.NewServer(cfg.Metrics.Address)
		go func() {
			logger.Info("metrics server listening", zap.String("addr", metricsSrv.Addr()))
			if err := metricsSrv.Start(); err != nil {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
	}

	logger.Info("watching for archives", zap.String("dir", cfg.Intake.Dir))
	err = w.Run(ctx)

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsSrv.Shutdown(shutdownCtx)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchConfiguration merges the config file (if any), flags and the
// positional directory argument. Flags win over the file.
func watchConfiguration(args []string) (*Config, error) {
	cfg := DefaultConfig()
	if watchConfig != "" {
		loaded, err := LoadConfig(watchConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if len(args) > 0 {
		cfg.Intake.Dir = args[0]
	}
	if watchWorkers > 0 {
		cfg.Intake.Concurrency = watchWorkers
	}
	if watchWindow > 0 {
		cfg.Analysis.NovelAnomalyWindowMinutes = watchWindow
	}
	if watchThreshold > 0 {
		cfg.Analysis.Threshold = watchThreshold
	}
	if len(watchFormats) > 0 {
		cfg.Reports.Formats = watchFormats
	}
	if watchExportTo != "" {
		cfg.Reports.ExportDir = watchExportTo
	}
	if watchHistory != "" {
		cfg.History.Path = watchHistory
	}
	if watchMetricsAddr != "" {
		cfg.Metrics.Address = watchMetricsAddr
	}

	if cfg.Intake.Dir == "" {
		return nil, fmt.Errorf("intake directory is required (argument or intake.dir in config)")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
