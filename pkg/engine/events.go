package engine

import (
	"context"
	"log/slog"
	"os"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/datauri"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// renditionSuccess emits the terminal success event, embedding the artifact
// as a data URI when it fits under the configured limit.
func (e *Engine) renditionSuccess(ctx context.Context, output *pipeline.Rendition) {
	payload := map[string]interface{}{
		"rendition": redactInstructions(output.Attributes),
	}

	if e.ectx.sourceMetadata != nil {
		payload["metadata"] = maputil.DeepCopyMap(e.ectx.sourceMetadata)
	}

	if embedded, ok := e.embed(output); ok {
		payload["data"] = embedded
	}

	e.emitTerminal(ctx, EventRenditionCreated, payload)
}

// renditionFailure records the classified error, reports it to the metrics
// sink, and emits the terminal failure event.
func (e *Engine) renditionFailure(ctx context.Context, instructions map[string]interface{}, perr *pipeline.Error) {
	e.ectx.recordError(perr)
	e.metrics.HandleError(perr, perr.Location)

	e.logger.Error("rendition failed",
		slog.String("reason", string(perr.Reason)),
		slog.String("error", perr.Error()),
	)

	payload := map[string]interface{}{
		"rendition":    redactInstructions(instructions),
		"errorReason":  string(perr.Reason),
		"errorMessage": perr.Error(),
	}

	if e.ectx.sourceMetadata != nil {
		payload["metadata"] = maputil.DeepCopyMap(e.ectx.sourceMetadata)
	}

	e.emitTerminal(ctx, EventRenditionFailed, payload)
}

// emitTerminal sends at most one terminal event per rendition.
func (e *Engine) emitTerminal(ctx context.Context, name string, payload map[string]interface{}) {
	if e.ectx.terminalEmitted {
		return
	}

	e.ectx.terminalEmitted = true
	payload["requestId"] = e.cfg.RequestID

	if err := e.events.Emit(ctx, name, payload); err != nil {
		e.logger.Error("emitting event failed", slog.String("event", name), slog.String("error", err.Error()))
	}
}

// embed loads the artifact as a data URI when it exists locally and is at
// most EmbedLimit bytes.
func (e *Engine) embed(output *pipeline.Rendition) (string, bool) {
	if e.cfg.EmbedLimit <= 0 || output.Path == "" {
		return "", false
	}

	size, err := output.Size()
	if err != nil || size > e.cfg.EmbedLimit {
		return "", false
	}

	data, err := os.ReadFile(output.Path)
	if err != nil {
		return "", false
	}

	return datauri.Format(output.Type(), data), true
}

// redactInstructions strips credentials and masks upload targets so event
// payloads never leak presigned URLs or tokens.
func redactInstructions(instructions map[string]interface{}) map[string]interface{} {
	if instructions == nil {
		return map[string]interface{}{}
	}

	out := maputil.CopyExcluding(instructions, pipeline.KeyAuth, pipeline.KeyHeaders)

	if _, ok := out[pipeline.KeyTarget]; ok {
		out[pipeline.KeyTarget] = "[redacted]"
	}

	if raw, ok := out[pipeline.KeyURL].(string); ok && datauri.Is(raw) {
		out[pipeline.KeyURL] = "[datauri]"
	}

	return out
}
