package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/metrics"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/plan"
)

// executeStep runs the plan's current step end to end: lookup, prepare,
// compute, and output verification. A rendition failure marks the plan
// failed, emits the terminal event, and returns a nil output; the returned
// error is reserved for developer mistakes that Run surfaces to the caller.
func (e *Engine) executeStep(ctx context.Context, p *plan.Plan) (*pipeline.Rendition, error) {
	step := p.Current()
	if step == nil || step.IsStart() {
		return nil, pipeline.NewGenericError("executeTransformer", "plan cursor is not on a step")
	}

	name := step.Name()
	location := name + "_executeTransformer"

	t, ok := e.registry.Get(name)
	if !ok {
		perr := pipeline.NewGenericError(location, fmt.Sprintf("no transformer registered under %q", name))
		p.Fail()
		e.renditionFailure(ctx, step.Output(), perr)

		return nil, perr
	}

	tc, err := e.prepare(ctx, p, step, t)
	if err != nil {
		p.Fail()
		e.renditionFailure(ctx, step.Output(), pipeline.WrapUnknown(err, location))

		return nil, nil
	}

	e.logger.Info("executing transformer",
		slog.String("transformer", name),
		slog.Int("step", tc.StepIndex),
	)

	timer := metrics.StartTimer()
	err = t.Compute(ctx, tc)
	e.ectx.aggregator.AddField(fmt.Sprintf("duration_%d_%s", tc.StepIndex, name), metrics.Milliseconds(timer.Stop()))

	if err == nil && !tc.Output.Exists() {
		err = fmt.Errorf("transformer %q produced no rendition at %s", name, tc.Output.Path)
	}

	if err != nil {
		p.Fail()
		e.renditionFailure(ctx, tc.Output.Attributes, pipeline.WrapUnknown(err, location))

		return nil, nil
	}

	e.ectx.stepIndex++

	return tc.Output, nil
}

// updateNextStep advances the plan and threads the previous step's artifact
// into the next step's input: local path, url, and size when known.
func (e *Engine) updateNextStep(p *plan.Plan, previous *pipeline.Rendition) error {
	next := p.Advance()
	if next == nil || p.State() != plan.StateInProgress {
		return nil
	}

	if previous == nil {
		return pipeline.NewGenericError("updateNextStep", "previous step produced no output to forward")
	}

	input := next.Input()

	if previous.Path != "" {
		input[pipeline.KeyPath] = previous.Path
	}

	if previous.URL != "" {
		input[pipeline.KeyURL] = previous.URL
	}

	if size, err := previous.Size(); err == nil {
		input[pipeline.KeySize] = float64(size)
	}

	return nil
}
