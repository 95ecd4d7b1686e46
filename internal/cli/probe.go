package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/logging"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/output"
)

type probeOptions struct {
	format    string
	outputArg string
}

func newProbeCommand() *cobra.Command {
	opts := &probeOptions{}

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Probe a local asset's metadata",
		Long: `Probe extracts the metadata the planner consumes from a local asset:
type, dimensions, orientation, and duration. Images go through exiftool
with an ImageMagick identify fallback, video and audio through mediainfo.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context(), cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "yaml", "output format: yaml, json")
	f.StringVarP(&opts.outputArg, "output", "o", "", "output file path (default: stdout)")

	return cmd
}

func runProbe(ctx context.Context, cmd *cobra.Command, path string, opts *probeOptions) error {
	logger := logging.FromContext(ctx)

	reg := output.DefaultRegistry()

	if opts.format != "yaml" && opts.format != "json" {
		return &ExitError{Code: 2, Err: fmt.Errorf("unsupported format: %s (supported: yaml, json; registered: %s)", opts.format, reg.AvailableFormats())}
	}

	metadata, err := newProber(logger).Probe(ctx, path)
	if err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("probing %s: %w", path, err)}
	}

	data, err := serializeAs(metadata, opts.format)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	return writeWithRegistry(cmd, reg, opts.format, data, opts.outputArg)
}
