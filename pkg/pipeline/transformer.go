// Package pipeline defines the transformer contract and the asset types
// that flow through a plan: sources, renditions, the per-step transformer
// context, and the classified error taxonomy shared by the engine and its
// collaborators.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
)

// CallbackPrefix marks transformers eligible for automatic pre-chain
// insertion (orientation normalization) by name convention.
const CallbackPrefix = "callback-"

// Transformer is one content-conversion unit. Implementations must write
// their output artifact to the context's output path (or set its URL for
// URL-type outputs) and return classified errors where the failure kind is
// known; everything else is wrapped by the engine.
type Transformer interface {
	// Name uniquely identifies the transformer within a registry.
	Name() string
	// Manifest declares the accepted input and produced output surfaces.
	Manifest() *manifest.Manifest
	// Compute performs the conversion described by the context.
	Compute(ctx context.Context, tc *TransformerContext) error
}

// Directory is the per-step scratch area under the activation base
// directory.
type Directory struct {
	// Base is "{stepIndex}-{transformerName}".
	Base string
	// In holds materialized input files.
	In string
	// Out receives the output artifact.
	Out string
}

// TransformerContext carries everything a transformer may consult during
// one step: the step's input and output, the original (pre-chain) input,
// the scratch directory, request-scoped auth, and a logger.
type TransformerContext struct {
	// StepIndex is the zero-based position of the step in its plan.
	StepIndex int
	// TransformerName is the executing transformer's registered name.
	TransformerName string
	// OriginalInput is the source the plan was refined from.
	OriginalInput *Source
	// Input is the step's materialized input.
	Input *Source
	// Output is the step's rendition target.
	Output *Rendition
	// Directory is the step's scratch area.
	Directory Directory
	// Auth carries request-scoped credentials, already filtered.
	Auth map[string]interface{}
	// Logger is never nil.
	Logger *slog.Logger
}

// ComputeFunc adapts a function to the compute contract.
type ComputeFunc func(ctx context.Context, tc *TransformerContext) error

// Callback is a transformer backed by an in-process function. Used for
// engine-internal normalization steps and in tests.
type Callback struct {
	name     string
	manifest *manifest.Manifest
	fn       ComputeFunc
}

var _ Transformer = (*Callback)(nil)

// NewCallback builds a function-backed transformer.
func NewCallback(name string, m *manifest.Manifest, fn ComputeFunc) *Callback {
	return &Callback{name: name, manifest: m, fn: fn}
}

// Name returns the registered name.
func (c *Callback) Name() string { return c.name }

// Manifest returns the declared capability surfaces.
func (c *Callback) Manifest() *manifest.Manifest { return c.manifest }

// Compute invokes the wrapped function.
func (c *Callback) Compute(ctx context.Context, tc *TransformerContext) error {
	return c.fn(ctx, tc)
}
