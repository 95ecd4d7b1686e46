package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/metrics"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// cleanup releases everything the engine context owns: per-step working
// directories, temporary cloud storage files, and timers. It emits a
// synthetic failure when a produced rendition was never reported, flushes
// the aggregated metrics, and enforces the kill-on-leak policy. The
// activation base directory itself is left in place for reuse.
func (e *Engine) cleanup(ctx context.Context, finalOutput *pipeline.Rendition) error {
	var leak error

	if !e.cfg.DisableRemoveWorkDirs {
		for _, dir := range e.ectx.workDirs {
			if err := os.RemoveAll(dir); err != nil {
				leak = errors.Join(leak, fmt.Errorf("removing %s: %w", dir, err))
			}
		}

		e.ectx.workDirs = nil
	}

	for _, id := range e.ectx.tempFiles {
		if err := e.storage.Remove(ctx, id); err != nil {
			e.logger.Warn("removing temporary cloud file failed",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	e.ectx.tempFiles = nil

	if finalOutput != nil && !e.ectx.terminalEmitted {
		e.renditionFailure(ctx, finalOutput.Attributes,
			pipeline.NewGenericError("cleanup", "rendition was produced but never reported"))
	}

	e.ectx.aggregator.AddField("processingDuration", metrics.Milliseconds(e.ectx.processingTimer.Stop()))
	e.ectx.aggregator.AddField("renditionErrors", len(e.ectx.renditionErrors))

	fields := e.ectx.aggregator.Fields()
	e.metrics.Add(fields)

	if err := e.metrics.Send(ctx, metrics.KindActivation, fields); err != nil {
		e.logger.Warn("sending activation metrics failed", slog.String("error", err.Error()))
	}

	if leak != nil {
		e.logger.Error("cleanup left working directories behind", slog.String("error", leak.Error()))

		if e.cfg.KillOnCleanupFailure {
			e.exit(e.cfg.CleanupExitCode)
		}

		return fmt.Errorf("cleanup failed to remove working directories: %w", leak)
	}

	return nil
}
