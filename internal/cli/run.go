package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/catalog"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/config"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/probe"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/storage"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/transfer"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/version"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/engine"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/plan"
)

// renderJob bundles the collaborators one render run needs. Transformers
// and sinks are built once per command invocation and shared across
// renditions; engines are not, they are single-activation by contract.
type renderJob struct {
	cfg          *config.Config
	logger       *slog.Logger
	transformers []pipeline.Transformer
	events       engine.EventSink
	metrics      engine.MetricsSink
	prober       engine.Prober
	outputDir    string
	requestID    string
	allowList    []string
}

// renderSummary aggregates the per-rendition outcomes of one run.
type renderSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []*pipeline.Error
	Elapsed   time.Duration
}

// renderAll plans and executes one transformer chain per rendition.
// Rendition failures are collected in the summary; the error return is
// reserved for setup mistakes.
func renderAll(ctx context.Context, job *renderJob, source map[string]interface{}, renditions []map[string]interface{}) (*renderSummary, error) {
	summary := &renderSummary{Total: len(renditions)}
	start := time.Now()

	for i, instructions := range renditions {
		res, err := renderOne(ctx, job, i, source, instructions)
		if err != nil {
			return nil, err
		}

		if len(res.RenditionErrors) > 0 {
			summary.Failed++
			summary.Errors = append(summary.Errors, res.RenditionErrors...)

			continue
		}

		summary.Succeeded++
	}

	summary.Elapsed = time.Since(start)

	return summary, nil
}

// renderOne runs a single rendition through a fresh engine. Renditions
// without an explicit target are delivered to the job's output directory.
func renderOne(ctx context.Context, job *renderJob, index int, source, instructions map[string]interface{}) (*engine.Result, error) {
	instructions = maputil.DeepCopyMap(instructions)

	if _, ok := instructions[pipeline.KeyTarget]; !ok {
		instructions[pipeline.KeyTarget] = filepath.Join(job.outputDir, renditionFilename(instructions, index))
	}

	eng, err := newEngine(job)
	if err != nil {
		return nil, err
	}

	for _, t := range job.transformers {
		if err := eng.RegisterTransformer(t); err != nil {
			return nil, &ExitError{Code: 1, Err: err}
		}
	}

	p := eng.RefinePlan(ctx, plan.New(), source, instructions)

	res, err := eng.Run(ctx, p)
	if err != nil {
		return nil, &ExitError{Code: 1, Err: err}
	}

	return res, nil
}

// newEngine wires an engine from the resolved configuration: an HTTP
// transfer client with local target delivery, a metadata prober, and a
// local temp store under the worker base directory.
func newEngine(job *renderJob) (*engine.Engine, error) {
	cfg := job.cfg
	logger := job.logger

	client := transfer.New(transfer.Config{
		MemoryLimit: cfg.MemoryLimit,
		Logger:      logger,
	})

	store, err := storage.NewLocalStore(filepath.Join(workBase(cfg), "tmp"), "")
	if err != nil {
		return nil, &ExitError{Code: 1, Err: fmt.Errorf("creating temp store: %w", err)}
	}

	eng, err := engine.New(engine.Config{
		BaseDirectory:         cfg.BaseDirectory,
		RequestID:             job.requestID,
		Version:               engineVersion(),
		ProbeSource:           cfg.ProbeSource,
		UserDataAllowList:     job.allowList,
		EmbedLimit:            cfg.EmbedLimit,
		DisableRemoveWorkDirs: cfg.KeepWorkDirs,
		KillOnCleanupFailure:  cfg.KillOnCleanupFailure,
		CleanupExitCode:       cfg.CleanupExitCode,
		Events:                job.events,
		Metrics:               job.metrics,
		Transfer:              &transfer.LocalDelivery{Client: client},
		Storage:               store,
		Prober:                job.prober,
		Logger:                logger,
	})
	if err != nil {
		return nil, &ExitError{Code: 1, Err: fmt.Errorf("creating engine: %w", err)}
	}

	return eng, nil
}

// newProber builds the metadata prober shared by a command invocation.
func newProber(logger *slog.Logger) *probe.Prober {
	return probe.New(probe.Config{Logger: logger})
}

// workBase is the effective worker base directory.
func workBase(cfg *config.Config) string {
	if cfg.BaseDirectory != "" {
		return cfg.BaseDirectory
	}

	return engine.DefaultBaseDirectory
}

// loadCatalogs loads the configured transformer catalogs and builds their
// command transformers.
func loadCatalogs(cfg *config.Config) ([]*catalog.Spec, []pipeline.Transformer, error) {
	specs, err := catalogSpecs(cfg, nil)
	if err != nil {
		return nil, nil, err
	}

	transformers, err := catalog.Transformers(specs)
	if err != nil {
		return nil, nil, &ExitError{Code: 1, Err: err}
	}

	return specs, transformers, nil
}

// catalogSpecs resolves catalog paths (explicit arguments win over the
// configuration) and loads their specs.
func catalogSpecs(cfg *config.Config, args []string) ([]*catalog.Spec, error) {
	paths := args
	if len(paths) == 0 {
		paths = cfg.CatalogPaths
	}

	if len(paths) == 0 {
		return nil, &ExitError{Code: 2, Err: fmt.Errorf("no transformer catalog configured (use --catalog or the config file)")}
	}

	specs, err := catalog.LoadPaths(paths...)
	if err != nil {
		return nil, &ExitError{Code: 1, Err: fmt.Errorf("loading catalogs: %w", err)}
	}

	if len(specs) == 0 {
		return nil, &ExitError{Code: 1, Err: fmt.Errorf("catalogs at %s declare no transformers", strings.Join(paths, ", "))}
	}

	return specs, nil
}

// renditionFilename derives the artifact name for a rendition without an
// explicit target: its name attribute when declared, else an indexed name
// with the extension its type implies.
func renditionFilename(instructions map[string]interface{}, index int) string {
	if name, ok := maputil.GetString(instructions, "name"); ok && name != "" {
		return name
	}

	typ, _ := maputil.GetString(instructions, manifest.AttrType)

	return fmt.Sprintf("rendition%d%s", index, pipeline.ExtensionForType(typ))
}

// engineVersion returns the build version when it parses as semver, so
// catalog engineVersion constraints are enforced on released binaries and
// skipped on dev builds.
func engineVersion() string {
	v := version.GetInfo().Version
	if _, err := semver.NewVersion(strings.TrimPrefix(v, "v")); err != nil {
		return ""
	}

	return v
}

// printRenderSummary prints a human-readable summary of a render run.
func printRenderSummary(w io.Writer, summary *renderSummary, outputDir string) {
	_, _ = fmt.Fprintf(w, "\n--- Render Summary ---\n")
	_, _ = fmt.Fprintf(w, "Renditions: %d\n", summary.Total)
	_, _ = fmt.Fprintf(w, "Succeeded:  %d\n", summary.Succeeded)
	_, _ = fmt.Fprintf(w, "Failed:     %d\n", summary.Failed)
	_, _ = fmt.Fprintf(w, "Output dir: %s\n", outputDir)
	_, _ = fmt.Fprintf(w, "Duration:   %s\n", summary.Elapsed.Round(time.Millisecond))

	for _, perr := range summary.Errors {
		_, _ = fmt.Fprintf(w, "  %s\n", perr.Error())
	}

	_, _ = fmt.Fprintf(w, "----------------------\n")
}
