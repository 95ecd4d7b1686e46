package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/config"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/event"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/logging"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/engine"
)

type renderOptions struct {
	// Instructions.
	instructionsFile string
	preset           string

	// Delivery.
	outputDir string

	// Engine behavior.
	requestID string
	eventLog  string
}

func newRenderCommand() *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render [source]",
		Short: "Render renditions of a source asset",
		Long: `Render one or more renditions of a source asset.

The source is a local file or URL, given as the positional argument or as
the source field of the instructions file. Renditions come from the
instructions file (--instructions) or from a named preset in the config
file (--preset). Each rendition is planned and executed as its own
transformer chain; artifacts without an explicit upload target are written
to the output directory.

Exit codes:
  0  All renditions rendered
  1  One or more renditions failed
  2  Invalid arguments or configuration`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
			}

			return runRender(cmd.Context(), cmd, source, opts)
		},
	}

	f := cmd.Flags()

	// Instruction flags.
	f.StringVarP(&opts.instructionsFile, "instructions", "f", "", "instructions YAML file with source and renditions")
	f.StringVar(&opts.preset, "preset", "", "named rendition preset from the config file")

	// Delivery flags.
	f.StringVarP(&opts.outputDir, "output-dir", "o", "renditions", "directory for renditions without an explicit target")

	// Engine flags.
	f.StringVar(&opts.requestID, "request-id", "", "request id echoed in events and results (default: generated)")
	f.StringVar(&opts.eventLog, "events", "", "append rendition events to a JSONL file")

	return cmd
}

func runRender(ctx context.Context, cmd *cobra.Command, source string, opts *renderOptions) error {
	logger := logging.FromContext(ctx)
	cfg := config.FromContext(ctx)

	req, err := resolveRequest(source, opts.instructionsFile)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
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
		outputDir:    opts.outputDir,
		requestID:    opts.requestID,
		allowList:    presets.UserDataAllowList,
	}

	summary, err := renderAll(ctx, job, req.Source, renditions)
	if err != nil {
		return err
	}

	printRenderSummary(cmd.ErrOrStderr(), summary, opts.outputDir)

	if summary.Failed > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("%d of %d renditions failed", summary.Failed, summary.Total)}
	}

	logger.Info("render complete",
		slog.Int("renditions", summary.Total),
		slog.String("dir", opts.outputDir),
	)

	return nil
}

// buildEventSink assembles the event sink for a run: structured logging,
// fanned out to a JSONL file when requested.
func buildEventSink(logger *slog.Logger, eventLog string) (engine.EventSink, func(), error) {
	sink := event.Sink(event.NewLogSink(logger))

	if eventLog == "" {
		return sink, func() {}, nil
	}

	fileSink, err := event.NewFileSink(eventLog)
	if err != nil {
		return nil, nil, &ExitError{Code: 6, Err: fmt.Errorf("opening event log: %w", err)}
	}

	closer := func() {
		if err := fileSink.Close(); err != nil {
			logger.Warn("closing event log failed", slog.String("error", err.Error()))
		}
	}

	return event.Multi(sink, fileSink), closer, nil
}
