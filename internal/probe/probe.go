// Package probe extracts source metadata (type, dimensions, orientation,
// duration) from local files. Images go through exiftool with an
// ImageMagick identify fallback, video and audio through mediainfo, and 3D
// assets are skipped. Results are normalized into the attribute bag the
// planner consumes.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// mediainfoTimeout caps how long a media probe may run.
const mediainfoTimeout = 30 * time.Second

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// execRunner resolves the binary and runs it through os/exec.
func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	bin, err := exec.LookPath(name)
	if err != nil {
		return nil, err
	}

	return exec.CommandContext(ctx, bin, args...).Output()
}

// Config wires a Prober.
type Config struct {
	// Runner overrides command execution; tests inject a stub here.
	Runner Runner
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Prober shells out to metadata tools and normalizes their output.
type Prober struct {
	runner Runner
	logger *slog.Logger
}

// New constructs a prober.
func New(cfg Config) *Prober {
	p := &Prober{runner: cfg.Runner, logger: cfg.Logger}

	if p.runner == nil {
		p.runner = execRunner
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

type kind int

const (
	kindImage kind = iota
	kindMedia
	kindThreeD
)

var mediaExtensions = map[string]struct{}{
	".mp4": {}, ".m4v": {}, ".mov": {}, ".avi": {}, ".mkv": {}, ".webm": {},
	".mpg": {}, ".mpeg": {},
	".mp3": {}, ".wav": {}, ".m4a": {}, ".aac": {}, ".flac": {}, ".ogg": {},
}

var threeDExtensions = map[string]struct{}{
	".glb": {}, ".gltf": {}, ".obj": {}, ".stl": {}, ".usdz": {}, ".fbx": {},
}

func classify(path string) kind {
	ext := strings.ToLower(filepath.Ext(path))

	if _, ok := mediaExtensions[ext]; ok {
		return kindMedia
	}

	if _, ok := threeDExtensions[ext]; ok {
		return kindThreeD
	}

	return kindImage
}

// Probe returns the file's metadata as planner attributes: type, width,
// height, orientation, and duration for media.
func (p *Prober) Probe(ctx context.Context, path string) (map[string]interface{}, error) {
	switch classify(path) {
	case kindThreeD:
		p.logger.Debug("skipping metadata probe for 3d asset", slog.String("path", path))

		return map[string]interface{}{}, nil
	case kindMedia:
		return p.probeMedia(ctx, path)
	default:
		return p.probeImage(ctx, path)
	}
}

// probeImage runs exiftool and falls back to ImageMagick identify; when
// both fail the source is reported corrupt.
func (p *Prober) probeImage(ctx context.Context, path string) (map[string]interface{}, error) {
	out, exifErr := p.runner(ctx, "exiftool",
		"-json", "-ImageSize", "-ImageWidth", "-ImageHeight", "-Orientation#", "-FileType", "-MIMEType",
		path,
	)
	if exifErr == nil {
		meta, err := parseExiftool(out, path)
		if err == nil {
			return meta, nil
		}

		exifErr = err
	}

	p.logger.Debug("exiftool probe failed, trying identify",
		slog.String("path", path),
		slog.String("error", exifErr.Error()),
	)

	out, identifyErr := p.runner(ctx, "identify", "-format", "%w %h %m", path)
	if identifyErr == nil {
		meta, err := parseIdentify(out)
		if err == nil {
			return meta, nil
		}

		identifyErr = err
	}

	return nil, pipeline.NewSourceCorrupt(fmt.Sprintf(
		"cannot identify %s: %v; %v", filepath.Base(path), exifErr, identifyErr,
	))
}

// probeMedia runs mediainfo under its own deadline.
func (p *Prober) probeMedia(ctx context.Context, path string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, mediainfoTimeout)
	defer cancel()

	out, err := p.runner(ctx, "mediainfo", "--Output=JSON", path)
	if err != nil {
		return nil, pipeline.NewSourceCorrupt(fmt.Sprintf(
			"cannot identify %s: %v", filepath.Base(path), err,
		))
	}

	meta, err := parseMediaInfo(out)
	if err != nil {
		return nil, pipeline.NewSourceCorrupt(fmt.Sprintf(
			"cannot identify %s: %v", filepath.Base(path), err,
		))
	}

	return meta, nil
}
