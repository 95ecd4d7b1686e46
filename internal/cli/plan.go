package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/config"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/event"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/logging"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/output"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/engine"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/plan"
)

type planOptions struct {
	instructionsFile string
	preset           string
	format           string
	outputArg        string
	diffFile         string
	skipProbe        bool
}

func newPlanCommand() *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan [source]",
		Short: "Show the transformer chains for a render without executing them",
		Long: `Plan resolves the transformer chain for every requested rendition and
prints the refined plans without running any transformer.

With --diff, the plans for a second instructions file are refined against
the same source and compared pairwise, rendition by rendition.

Exit codes:
  0  Plans resolved (no differences with --diff)
  1  Error
  2  Invalid arguments
  3  Plans differ (--diff only)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
			}

			return runPlan(cmd.Context(), cmd, source, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.instructionsFile, "instructions", "f", "", "instructions YAML file with source and renditions")
	f.StringVar(&opts.preset, "preset", "", "named rendition preset from the config file")
	f.StringVar(&opts.format, "format", "yaml", "output format: yaml, json")
	f.StringVarP(&opts.outputArg, "output", "o", "", "output file path (default: stdout)")
	f.StringVar(&opts.diffFile, "diff", "", "second instructions file to compare plans against")
	f.BoolVar(&opts.skipProbe, "skip-probe", false, "plan from declared source attributes without probing the file")

	return cmd
}

func runPlan(ctx context.Context, cmd *cobra.Command, source string, opts *planOptions) error {
	logger := logging.FromContext(ctx)
	cfg := config.FromContext(ctx)

	// Resolve the output format up front so bad flags fail fast.
	reg := output.DefaultRegistry()

	if opts.format != "yaml" && opts.format != "json" {
		return &ExitError{Code: 2, Err: fmt.Errorf("unsupported format: %s (supported: yaml, json; registered: %s)", opts.format, reg.AvailableFormats())}
	}

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

	planCfg := *cfg
	if opts.skipProbe {
		planCfg.ProbeSource = false
	}

	job := &renderJob{
		cfg:          &planCfg,
		logger:       logger,
		transformers: transformers,
		prober:       newProber(logger),
		allowList:    presets.UserDataAllowList,
	}

	plans, err := refinePlans(ctx, job, req.Source, renditions)
	if err != nil {
		return err
	}

	if opts.diffFile != "" {
		return diffPlans(ctx, cmd, job, plans, renditions, opts)
	}

	doc := map[string]interface{}{"plans": planDocuments(plans, renditions)}

	data, err := serializeAs(doc, opts.format)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	return writeWithRegistry(cmd, reg, opts.format, data, opts.outputArg)
}

// refinedPlan is one rendition's resolved plan plus any failure messages
// captured during refinement.
type refinedPlan struct {
	plan   *plan.Plan
	errors []string
}

// refinePlans resolves one plan per rendition through a refine-only engine.
// Refinement failures surface inside the plan documents, not as errors.
func refinePlans(ctx context.Context, job *renderJob, source map[string]interface{}, renditions []map[string]interface{}) ([]refinedPlan, error) {
	plans := make([]refinedPlan, 0, len(renditions))

	for _, instructions := range renditions {
		sink := event.NewMemorySink()
		job.events = sink

		eng, err := newEngine(job)
		if err != nil {
			return nil, err
		}

		for _, t := range job.transformers {
			if err := eng.RegisterTransformer(t); err != nil {
				return nil, &ExitError{Code: 1, Err: err}
			}
		}

		rp := refinedPlan{plan: eng.RefinePlan(ctx, plan.New(), source, instructions)}

		for _, e := range sink.Named(engine.EventRenditionFailed) {
			if msg, ok := maputil.GetString(e.Payload, "errorMessage"); ok && msg != "" {
				rp.errors = append(rp.errors, msg)
			}
		}

		plans = append(plans, rp)

		if !job.cfg.KeepWorkDirs {
			_ = os.RemoveAll(eng.BaseDirectory())
		}
	}

	return plans, nil
}

// planDocuments shapes refined plans for serialization.
func planDocuments(plans []refinedPlan, renditions []map[string]interface{}) []interface{} {
	docs := make([]interface{}, 0, len(plans))

	for i, rp := range plans {
		doc := map[string]interface{}{
			"rendition": renditions[i],
			"state":     rp.plan.State().String(),
			"nodes":     rp.plan.ToObject(),
		}

		if len(rp.errors) > 0 {
			doc["errors"] = rp.errors
		}

		docs = append(docs, doc)
	}

	return docs
}

// diffPlans refines the --diff instructions against the same source and
// compares the plans pairwise.
func diffPlans(ctx context.Context, cmd *cobra.Command, job *renderJob, plans []refinedPlan, renditions []map[string]interface{}, opts *planOptions) error {
	otherReq, err := loadRenderRequest(opts.diffFile)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	if len(otherReq.Renditions) != len(renditions) {
		return &ExitError{Code: 2, Err: fmt.Errorf("cannot diff: %d renditions here, %d in %s", len(renditions), len(otherReq.Renditions), opts.diffFile)}
	}

	otherPlans, err := refinePlans(ctx, job, sourceForDiff(otherReq, plans), otherReq.Renditions)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	differ := false

	for i, rp := range plans {
		diffOpts := plan.DefaultDiffOptions()
		diffOpts.OldLabel = "current"
		diffOpts.NewLabel = opts.diffFile

		result, err := plan.Diff(rp.plan, otherPlans[i].plan, diffOpts)
		if err != nil {
			return &ExitError{Code: 1, Err: fmt.Errorf("comparing plans: %w", err)}
		}

		if len(plans) > 1 {
			typ, _ := maputil.GetString(renditions[i], manifest.AttrType)
			_, _ = fmt.Fprintf(w, "# rendition[%d] %s\n", i, typ)
		}

		plan.WriteDiff(w, result)

		if result.HasDifferences {
			differ = true
		}
	}

	if differ {
		return &ExitError{Code: 3, Err: fmt.Errorf("plans differ")}
	}

	return nil
}

// sourceForDiff reuses the first request's source when the diff file does
// not declare its own.
func sourceForDiff(req *RenderRequest, plans []refinedPlan) map[string]interface{} {
	if req.Source != nil {
		return req.Source
	}

	if len(plans) > 0 {
		return plans[0].plan.OriginalInput()
	}

	return nil
}

// serializeAs renders a document in the requested registry format.
func serializeAs(v interface{}, format string) ([]byte, error) {
	if format == "json" {
		return output.SerializeJSON(v, "  ")
	}

	return output.Serialize(v, output.DefaultSerializeOptions())
}

// writeWithRegistry creates an output.Writer via the registry's format
// factory and writes data through it. For stdout (empty outputPath) the
// cmd's output stream is used to preserve testability.
func writeWithRegistry(cmd *cobra.Command, reg *output.Registry, format string, data []byte, outputPath string) error {
	factory, err := reg.Writer(format)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	var w output.Writer
	if outputPath == "" {
		w = output.NewStdoutWriter(cmd.OutOrStdout())
	} else {
		w = factory(outputPath)
	}

	if err := w.Write(data); err != nil {
		return &ExitError{Code: 6, Err: fmt.Errorf("writing output: %w", err)}
	}

	if outputPath != "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Written to %s\n", outputPath)
	}

	return nil
}
