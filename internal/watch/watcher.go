package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunFunc is called with the path of a source file each time the watcher
// decides it should be rendered.
type RunFunc func(ctx context.Context, sourcePath string) (*RunResult, error)

// RunResult holds the outcome of rendering a single source so the watcher
// can print a status line.
type RunResult struct {
	// Renditions is the number of renditions produced.
	Renditions int

	// Failures is the number of renditions that failed.
	Failures int
}

// Options configures the watch behaviour.
type Options struct {
	// InboxDir is the directory watched recursively for new sources.
	InboxDir string

	// OutputDir, when set, is excluded from watching so rendition writes
	// do not re-trigger renders.
	OutputDir string

	// Debounce is the quiet period per source before triggering a render.
	Debounce time.Duration

	// InitialSweep renders sources already present in the inbox on startup.
	InitialSweep bool

	// MetricsAddr, when non-empty, serves Prometheus metrics on this
	// address under /metrics.
	MetricsAddr string

	// MetricsGatherer overrides the gatherer backing the metrics endpoint.
	// If nil, the default Prometheus gatherer is used.
	MetricsGatherer prometheus.Gatherer

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce:     500 * time.Millisecond,
		InitialSweep: true,
		Logger:       slog.Default(),
		Out:          os.Stderr,
	}
}

// Run starts the inbox watcher and blocks until the context is cancelled
// or a SIGINT/SIGTERM signal is received.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, opts.InboxDir, opts.OutputDir); err != nil {
		return fmt.Errorf("watching inbox directory: %w", err)
	}

	// Trap SIGINT / SIGTERM for graceful shutdown.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.MetricsAddr != "" {
		srv := newMetricsServer(opts.MetricsAddr, opts.MetricsGatherer)

		go func() {
			if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				opts.Logger.Error("metrics endpoint failed", slog.String("error", serveErr.Error()))
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(opts.Out, "metrics on http://%s/metrics\n", opts.MetricsAddr)
	}

	fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n", opts.InboxDir, opts.Debounce)

	if opts.InitialSweep {
		sweepInbox(sigCtx, opts, runFn)
	}

	debouncer := NewDebouncer(opts.Debounce, func(path string) {
		doRun(sigCtx, opts, runFn, path)
	})
	defer debouncer.Stop()

	for {
		select {
		case <-sigCtx.Done():
			fmt.Fprintln(opts.Out, "\nshutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRelevant(event, opts.OutputDir) {
				continue
			}

			// If a new directory was created, watch it too.
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = addRecursive(watcher, event.Name, opts.OutputDir)
					continue
				}
			}

			debouncer.Trigger(event.Name)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// doRun renders a single source and prints the status line.
func doRun(ctx context.Context, opts Options, runFn RunFunc, sourcePath string) {
	info, err := os.Stat(sourcePath)
	if err != nil || info.IsDir() {
		return
	}

	now := time.Now().Format("15:04:05")
	name := filepath.Base(sourcePath)

	result, err := runFn(ctx, sourcePath)
	if err != nil {
		fmt.Fprintf(opts.Out, "[%s] %s → ERROR: %v\n", now, name, err)
		return
	}

	if result == nil {
		result = &RunResult{}
	}

	if result.Failures > 0 {
		fmt.Fprintf(opts.Out, "[%s] %s → %d renditions, %d FAILED\n",
			now, name, result.Renditions, result.Failures)
		return
	}

	fmt.Fprintf(opts.Out, "[%s] %s → OK (%d renditions)\n", now, name, result.Renditions)
}

// sweepInbox renders sources already present in the inbox.
func sweepInbox(ctx context.Context, opts Options, runFn RunFunc) {
	_ = filepath.WalkDir(opts.InboxDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if skipDir(path, opts.InboxDir, opts.OutputDir) {
				return filepath.SkipDir
			}

			return nil
		}

		if ignoredFile(d.Name()) {
			return nil
		}

		doRun(ctx, opts, runFn, path)

		return nil
	})
}

// newMetricsServer builds the HTTP server exposing Prometheus metrics.
func newMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// addRecursive walks root and adds all directories to the watcher, skipping
// hidden directories and the output directory.
func addRecursive(watcher *fsnotify.Watcher, root, outputDir string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if skipDir(path, root, outputDir) {
			return filepath.SkipDir
		}

		return watcher.Add(path)
	})
}

// skipDir reports whether a directory below root should not be watched.
func skipDir(path, root, outputDir string) bool {
	if path == root {
		return false
	}

	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}

	return outputDir != "" && within(path, outputDir)
}

// within reports whether path is dir itself or nested below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}

	return rel == "." ||
		(rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// isRelevant filters events down to file arrivals and content writes on
// sources the pipeline should render.
func isRelevant(event fsnotify.Event, outputDir string) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}

	if outputDir != "" && within(event.Name, outputDir) {
		return false
	}

	return !ignoredFile(filepath.Base(event.Name))
}

// ignoredFile reports whether a file name looks like editor or transfer
// noise rather than a source asset.
func ignoredFile(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "#") ||
		strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") ||
		strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".tmp")
}
