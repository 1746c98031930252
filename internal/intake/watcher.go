// Package intake watches a drop directory for scenario archives and
// feeds them into the analysis pipeline.
package intake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/corrlog/internal/metrics"
)

// Handler processes one archive picked up from the drop directory.
type Handler func(ctx context.Context, archivePath string) error

// Options configures a Watcher.
type Options struct {
	// Dir is the drop directory to watch for *.zip archives.
	Dir string

	// Concurrency bounds parallel analyses. Default 2.
	Concurrency int

	// PollInterval is the fallback directory scan interval for
	// archives fsnotify missed. Default 10s.
	PollInterval time.Duration

	// SettleDelay is how long an archive's size must hold steady
	// before it is considered fully written. Default 500ms.
	SettleDelay time.Duration

	Logger *zap.Logger
}

// Watcher dispatches newly dropped archives to a Handler. Each archive
// path is processed at most once per Watcher lifetime; duplicate
// filesystem events and poll hits are deduplicated.
type Watcher struct {
	opts    Options
	handler Handler
	limiter *rate.Limiter

	mu   sync.Mutex
	seen map[string]bool
}

// NewWatcher creates a Watcher, filling in defaults for unset options.
func NewWatcher(opts Options, handler Handler) (*Watcher, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("intake directory is required")
	}
	info, err := os.Stat(opts.Dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("intake directory %s is not accessible", opts.Dir)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Watcher{
		opts:    opts,
		handler: handler,
		// One dispatch per 100ms smooths bursts of duplicate events.
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		seen:    make(map[string]bool),
	}, nil
}

// Run watches until ctx is cancelled. Archives present in the
// directory at startup are processed first.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.opts.Dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Concurrency)

	w.scan(gctx, g)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gctx.Done():
			if err := g.Wait(); err != nil {
				return err
			}
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return g.Wait()
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.dispatch(gctx, g, ev.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return g.Wait()
			}
			w.opts.Logger.Warn("watch error", zap.Error(err))

		case <-ticker.C:
			w.scan(gctx, g)
		}
	}
}

// scan picks up archives already sitting in the directory.
func (w *Watcher) scan(ctx context.Context, g *errgroup.Group) {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		w.opts.Logger.Warn("scan intake directory", zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		w.dispatch(ctx, g, filepath.Join(w.opts.Dir, e.Name()))
	}
}

// dispatch queues one archive for analysis if it has not been seen.
func (w *Watcher) dispatch(ctx context.Context, g *errgroup.Group, path string) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return
	}

	w.mu.Lock()
	if w.seen[path] {
		w.mu.Unlock()
		return
	}
	w.seen[path] = true
	w.mu.Unlock()

	g.Go(func() error {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil
		}
		if err := w.waitSettled(ctx, path); err != nil {
			w.opts.Logger.Warn("archive never settled",
				zap.String("archive", path), zap.Error(err))
			return nil
		}

		metrics.IntakeArchives.Inc()
		metrics.IntakeInFlight.Inc()
		defer metrics.IntakeInFlight.Dec()

		w.opts.Logger.Info("processing archive", zap.String("archive", path))
		if err := w.handler(ctx, path); err != nil {
			// One bad archive must not stop the watcher.
			w.opts.Logger.Error("archive analysis failed",
				zap.String("archive", path), zap.Error(err))
		}
		return nil
	})
}

// waitSettled blocks until the archive's size is stable across one
// settle delay, so half-copied archives are not opened.
func (w *Watcher) waitSettled(ctx context.Context, path string) error {
	var lastSize int64 = -1
	for {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.opts.SettleDelay):
		}
	}
}
