package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/config"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/logging"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/metrics"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/watch"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

type watchOptions struct {
	instructionsFile string
	preset           string
	outputDir        string
	debounce         time.Duration
	metricsAddr      string
	eventLog         string
	noSweep          bool
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <inbox-dir>",
		Short: "Render assets dropped into an inbox directory",
		Long: `Watch monitors an inbox directory and renders every asset that arrives
in it, applying the same rendition instructions to each source. Writes are
debounced per file so partially copied assets are not picked up early.

Renditions land in the output directory, which is excluded from watching.
With --metrics-addr, engine metrics are exposed in Prometheus format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.instructionsFile, "instructions", "f", "", "instructions YAML file with the renditions to apply")
	f.StringVar(&opts.preset, "preset", "", "named rendition preset from the config file")
	f.StringVar(&opts.outputDir, "out", "", "rendition output directory (default: <inbox-dir>/renditions)")
	f.DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is rendered")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9090)")
	f.StringVar(&opts.eventLog, "events", "", "append rendition events to a JSONL file")
	f.BoolVar(&opts.noSweep, "no-initial-sweep", false, "skip rendering assets already present in the inbox")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, inbox string, opts *watchOptions) error {
	logger := logging.FromContext(ctx)
	cfg := config.FromContext(ctx)

	info, err := os.Stat(inbox)
	if err != nil || !info.IsDir() {
		return &ExitError{Code: 2, Err: fmt.Errorf("inbox %s is not a directory", inbox)}
	}

	var req *RenderRequest
	if opts.instructionsFile != "" {
		req, err = loadRenderRequest(opts.instructionsFile)
		if err != nil {
			return &ExitError{Code: 2, Err: err}
		}
	}

	presets, err := loadPresets(cfg)
	if err != nil {
		return &ExitError{Code: 2, Err: fmt.Errorf("loading presets: %w", err)}
	}

	renditions, err := resolveRenditions(req, presets, opts.preset)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	_, transformers, err := loadCatalogs(cfg)
	if err != nil {
		return err
	}

	outputDir := opts.outputDir
	if outputDir == "" {
		outputDir = filepath.Join(inbox, "renditions")
	}

	events, closeEvents, err := buildEventSink(logger, opts.eventLog)
	if err != nil {
		return err
	}
	defer closeEvents()

	job := &renderJob{
		cfg:          cfg,
		logger:       logger,
		transformers: transformers,
		events:       events,
		prober:       newProber(logger),
		outputDir:    outputDir,
		allowList:    presets.UserDataAllowList,
	}

	wopts := watch.DefaultOptions()
	wopts.InboxDir = inbox
	wopts.OutputDir = outputDir
	wopts.Debounce = opts.debounce
	wopts.InitialSweep = !opts.noSweep
	wopts.Logger = logger
	wopts.Out = cmd.ErrOrStderr()

	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		job.metrics = metrics.NewPrometheusSink(reg, logger)
		wopts.MetricsAddr = opts.metricsAddr
		wopts.MetricsGatherer = reg
	}

	runFn := func(ctx context.Context, sourcePath string) (*watch.RunResult, error) {
		source := map[string]interface{}{pipeline.KeyPath: sourcePath}

		summary, err := renderAll(ctx, job, source, renditions)
		if err != nil {
			return nil, err
		}

		return &watch.RunResult{Renditions: summary.Total, Failures: summary.Failed}, nil
	}

	if err := watch.Run(ctx, wopts, runFn); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	return nil
}
