// Package engine orchestrates asset-rendition plans: it owns the transformer
// registry, refines plans through the graph-based finder, executes steps in
// per-step working directories, threads intermediate artifacts forward,
// uploads final renditions, and guarantees cleanup with terminal events and
// metrics on every exit path.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/metrics"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/planner"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/plan"
)

// DefaultBaseDirectory is used when no worker base directory is configured.
const DefaultBaseDirectory = "work"

// DefaultCleanupExitCode terminates the process when working directories
// leak and the kill policy is enabled.
const DefaultCleanupExitCode = 101

// DefaultUserDataAllowList names the userData fields handed through to
// transformers. Everything else is stripped during prepare.
var DefaultUserDataAllowList = []string{"jobId", "requestId", "trace", "pipeline", "orgId"}

// Config wires an Engine. Zero values select the documented defaults; nil
// collaborators degrade to inert implementations so that purely local plans
// need no external services.
type Config struct {
	// BaseDirectory is the worker base directory; the engine works under
	// BaseDirectory/ActivationID.
	BaseDirectory string
	// ActivationID isolates this engine run; defaults to a random UUID.
	ActivationID string
	// RequestID is echoed in the run result; defaults to the activation ID.
	RequestID string
	// Version gates transformer registration against manifest engineVersion
	// constraints. Empty disables the gate.
	Version string

	// ProbeSource probes and merges source metadata during RefinePlan.
	ProbeSource bool
	// UserDataAllowList overrides DefaultUserDataAllowList.
	UserDataAllowList []string
	// Auth carries request-scoped credentials handed to every transformer.
	Auth map[string]interface{}
	// EmbedLimit embeds renditions of at most this many bytes into success
	// events as data URIs. Zero disables embedding.
	EmbedLimit int64

	// DisableRemoveWorkDirs keeps per-step directories for debugging.
	DisableRemoveWorkDirs bool
	// KillOnCleanupFailure terminates the process via Exit when working
	// directories cannot be removed, preventing stale state from leaking
	// into later activations.
	KillOnCleanupFailure bool
	// CleanupExitCode is the exit code for the kill policy.
	CleanupExitCode int
	// Exit replaces os.Exit; tests inject a recorder here.
	Exit func(code int)

	Events   EventSink
	Metrics  MetricsSink
	Transfer Transfer
	Storage  TempStorage
	Prober   Prober
	Logger   *slog.Logger
}

// Result is what a run hands back to the caller. Rendition failures are
// reported here rather than as an error return.
type Result struct {
	RequestID       string            `json:"requestId"`
	RenditionErrors []*pipeline.Error `json:"renditionErrors,omitempty"`
}

// Engine executes one plan. Engine state is per-plan: callers construct a
// fresh engine per activation and must not share one across plans.
type Engine struct {
	cfg      Config
	registry *pipeline.Registry
	finder   *planner.Finder
	logger   *slog.Logger

	events   EventSink
	metrics  MetricsSink
	transfer Transfer
	storage  TempStorage
	prober   Prober
	exit     func(code int)

	ectx *engineContext
}

// New constructs an engine and creates its activation base directory.
func New(cfg Config) (*Engine, error) {
	if cfg.BaseDirectory == "" {
		cfg.BaseDirectory = DefaultBaseDirectory
	}

	if cfg.ActivationID == "" {
		cfg.ActivationID = uuid.NewString()
	}

	if cfg.RequestID == "" {
		cfg.RequestID = cfg.ActivationID
	}

	if cfg.CleanupExitCode == 0 {
		cfg.CleanupExitCode = DefaultCleanupExitCode
	}

	if cfg.UserDataAllowList == nil {
		cfg.UserDataAllowList = DefaultUserDataAllowList
	}

	e := &Engine{
		cfg:      cfg,
		registry: pipeline.NewRegistry(),
		logger:   cfg.Logger,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		transfer: cfg.Transfer,
		storage:  cfg.Storage,
		prober:   cfg.Prober,
		exit:     cfg.Exit,
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	e.logger = e.logger.With(slog.String("activation", cfg.ActivationID))

	if e.events == nil {
		e.events = nullEvents{}
	}

	if e.metrics == nil {
		e.metrics = nullMetrics{}
	}

	if e.transfer == nil {
		e.transfer = nullTransfer{}
	}

	if e.storage == nil {
		e.storage = nullStorage{}
	}

	if e.exit == nil {
		e.exit = os.Exit
	}

	baseDir := filepath.Join(cfg.BaseDirectory, cfg.ActivationID)
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating activation directory %s: %w", baseDir, err)
	}

	e.ectx = newEngineContext(baseDir)

	return e, nil
}

// BaseDirectory returns the activation's working root.
func (e *Engine) BaseDirectory() string { return e.ectx.baseDir }

// Registry exposes the engine's transformer registry.
func (e *Engine) Registry() *pipeline.Registry { return e.registry }

// RegisterTransformer validates the transformer's manifest, checks its
// engine-version constraint when the engine carries a version, and registers
// it. Re-registering a name replaces the prior entry.
func (e *Engine) RegisterTransformer(t pipeline.Transformer) error {
	m := t.Manifest()
	if m == nil {
		return fmt.Errorf("transformer %q has no manifest", t.Name())
	}

	if err := m.Validate(); err != nil {
		return fmt.Errorf("transformer %q: %w", t.Name(), err)
	}

	if e.cfg.Version != "" && m.EngineVersion != "" {
		ok, err := m.Compatible(e.cfg.Version)
		if err != nil {
			return fmt.Errorf("transformer %q: %w", t.Name(), err)
		}

		if !ok {
			return fmt.Errorf("transformer %q requires engine %s, running %s", t.Name(), m.EngineVersion, e.cfg.Version)
		}
	}

	e.registry.Register(t)

	return nil
}

// RefinePlan discovers the transformer chain from source to the requested
// instructions and appends the realized steps to the plan. Failures do not
// return an error: the plan is marked failed, the rendition error recorded,
// and a failure event emitted, so callers always receive the plan back.
func (e *Engine) RefinePlan(ctx context.Context, p *plan.Plan, source, instructions map[string]interface{}) *plan.Plan {
	src := maputil.DeepCopyMap(source)
	if src == nil {
		src = map[string]interface{}{}
	}

	if e.cfg.ProbeSource && e.prober != nil {
		if err := e.probeSource(ctx, src); err != nil {
			e.failPlan(ctx, p, instructions, pipeline.WrapUnknown(err, "refinePlan"))

			return p
		}
	}

	if e.finder == nil {
		e.finder = planner.New(e.registry)
	}

	steps, err := e.finder.Find(src, instructions)
	if err != nil {
		e.failPlan(ctx, p, instructions, pipeline.WrapUnknown(err, "refinePlan"))

		return p
	}

	p.UpdateOriginalInput(src)

	for _, s := range steps {
		if _, err := p.Add(s.Name, map[string]interface{}{
			plan.KeyInput:  s.Input,
			plan.KeyOutput: s.Output,
		}); err != nil {
			e.failPlan(ctx, p, instructions, pipeline.WrapUnknown(err, "refinePlan"))

			return p
		}
	}

	e.logger.Info("plan refined", slog.Int("steps", len(steps)), slog.String("plan", p.String()))

	return p
}

// probeSource materializes the source locally when needed, probes its
// metadata, and merges the probed fields into the source bag.
func (e *Engine) probeSource(ctx context.Context, src map[string]interface{}) error {
	source := pipeline.NewSource(src)

	if source.Path() == "" {
		if source.URL() == "" {
			return pipeline.NewGenericError("probeSource", "source has neither url nor path")
		}

		if err := validateReference(source.URL()); err != nil {
			return err
		}

		dest := filepath.Join(e.ectx.baseDir, source.Filename())
		if err := e.transfer.Download(ctx, source, dest); err != nil {
			return err
		}

		source.SetPath(dest)
	}

	probed, err := e.prober.Probe(ctx, source.Path())
	if err != nil {
		return err
	}

	e.ectx.sourceMetadata = probed
	maputil.Merge(src, probed)

	e.logger.Debug("source probed", slog.Any("metadata", probed))

	return nil
}

// failPlan is the non-throwing refinement failure path.
func (e *Engine) failPlan(ctx context.Context, p *plan.Plan, instructions map[string]interface{}, perr *pipeline.Error) {
	e.ectx.processingTimer.Stop()
	p.Fail()
	e.renditionFailure(ctx, instructions, perr)
}

// Run executes the plan until it leaves the in-progress state, finishes the
// final rendition (upload plus success event), and cleans up on every path.
// The returned error reports developer mistakes and cleanup leaks only;
// rendition failures travel in Result.RenditionErrors.
func (e *Engine) Run(ctx context.Context, p *plan.Plan) (res *Result, err error) {
	var finalOutput *pipeline.Rendition

	defer func() {
		cleanupErr := e.cleanup(ctx, finalOutput)
		if err == nil {
			err = cleanupErr
		}

		res = &Result{RequestID: e.cfg.RequestID, RenditionErrors: e.ectx.renditionErrors}
	}()

	if cur := p.Current(); cur != nil && cur.IsStart() {
		p.Advance()
	}

	for p.State() == plan.StateInProgress {
		output, devErr := e.executeStep(ctx, p)
		if devErr != nil {
			return nil, devErr
		}

		if output == nil {
			break
		}

		finalOutput = output

		if devErr := e.updateNextStep(p, output); devErr != nil {
			return nil, devErr
		}
	}

	if p.State() == plan.StateSucceeded && finalOutput != nil {
		e.finish(ctx, finalOutput)
	}

	return nil, nil
}

// finish uploads the final rendition when a target is declared and emits
// the terminal success event. Upload failures become rendition failures.
func (e *Engine) finish(ctx context.Context, output *pipeline.Rendition) {
	if len(output.TargetURLs()) > 0 {
		timer := metrics.StartTimer()

		if err := e.transfer.Upload(ctx, output); err != nil {
			e.renditionFailure(ctx, output.Attributes, pipeline.WrapUnknown(err, "upload"))

			return
		}

		e.ectx.aggregator.AddField("uploadDuration", metrics.Milliseconds(timer.Stop()))
	}

	e.renditionSuccess(ctx, output)
}
