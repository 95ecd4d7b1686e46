package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/metrics"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// engineContext is the per-activation state the engine exclusively owns:
// the base directory, the working directories and temporary cloud files to
// release, the metrics aggregator and timers, and the accumulated rendition
// errors. Everything registered here is released by cleanup.
type engineContext struct {
	baseDir string

	stepIndex int
	workDirs  []string
	tempFiles []string

	aggregator      *metrics.Aggregator
	processingTimer *metrics.Timer

	sourceMetadata  map[string]interface{}
	renditionErrors []*pipeline.Error
	terminalEmitted bool
}

func newEngineContext(baseDir string) *engineContext {
	return &engineContext{
		baseDir:         baseDir,
		aggregator:      metrics.NewAggregator(),
		processingTimer: metrics.StartTimer(),
	}
}

// createWorkDir creates the step's scratch area "{index}-{name}" with in/
// and out/ subdirectories and registers it for cleanup.
func (c *engineContext) createWorkDir(index int, name string) (pipeline.Directory, error) {
	base := filepath.Join(c.baseDir, fmt.Sprintf("%d-%s", index, name))
	dir := pipeline.Directory{
		Base: base,
		In:   filepath.Join(base, "in"),
		Out:  filepath.Join(base, "out"),
	}

	for _, d := range []string{dir.In, dir.Out} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return pipeline.Directory{}, fmt.Errorf("creating working directory %s: %w", d, err)
		}
	}

	c.workDirs = append(c.workDirs, base)

	return dir, nil
}

// registerTempFile records a temporary cloud storage id for release.
func (c *engineContext) registerTempFile(id string) {
	if id != "" {
		c.tempFiles = append(c.tempFiles, id)
	}
}

// recordError appends a classified rendition error.
func (c *engineContext) recordError(perr *pipeline.Error) {
	c.renditionErrors = append(c.renditionErrors, perr)
}
