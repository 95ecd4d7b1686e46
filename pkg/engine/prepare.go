package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/datauri"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/plan"
)

// prepare builds the transformer context for one step: it creates the
// working directory, roots the output rendition under it, materializes the
// input according to the sourceType table, and attaches request-scoped auth
// plus the allow-list-filtered userData bag.
func (e *Engine) prepare(ctx context.Context, p *plan.Plan, step *plan.Step, t pipeline.Transformer) (*pipeline.TransformerContext, error) {
	index := e.ectx.stepIndex

	dir, err := e.ectx.createWorkDir(index, t.Name())
	if err != nil {
		return nil, err
	}

	output := pipeline.NewRendition(maputil.DeepCopyMap(step.Output()), index)
	e.filterUserData(output.Attributes)
	output.Path = filepath.Join(dir.Out, output.Name())

	input := pipeline.NewSource(maputil.DeepCopyMap(step.Input()))
	if err := e.materializeInput(ctx, input, dir); err != nil {
		return nil, err
	}

	return &pipeline.TransformerContext{
		StepIndex:       index,
		TransformerName: t.Name(),
		OriginalInput:   pipeline.NewSource(maputil.DeepCopyMap(p.OriginalInput())),
		Input:           input,
		Output:          output,
		Directory:       dir,
		Auth:            e.authFor(input.Attributes),
		Logger:          e.logger.With(slog.String("transformer", t.Name()), slog.Int("step", index)),
	}, nil
}

// materializeInput resolves the step input to something the transformer can
// consume, based on the declared sourceType and the presence of a url or
// path:
//
//	URL   + https url          → pass through
//	URL   + data uri           → materialize locally, hand off to temporary
//	                             cloud storage, replace url with presigned
//	URL   + no url, local path → presign the local path
//	LOCAL + any url            → download into the step's in/ directory
//	LOCAL + path               → use the path directly
//	LOCAL + neither            → no source file accessible
func (e *Engine) materializeInput(ctx context.Context, src *pipeline.Source, dir pipeline.Directory) error {
	rawURL := src.URL()
	if rawURL != "" {
		if err := validateReference(rawURL); err != nil {
			return err
		}
	}

	if src.SourceType() == manifest.SourceTypeURL {
		switch {
		case rawURL == "":
			if src.Path() == "" {
				return pipeline.NewGenericError("prepare", "no source file accessible")
			}

			return e.presign(ctx, src, src.Path())
		case datauri.Is(rawURL):
			local := filepath.Join(dir.In, src.Filename())
			if err := e.transfer.Download(ctx, src, local); err != nil {
				return err
			}

			src.SetPath(local)

			return e.presign(ctx, src, local)
		default:
			return nil
		}
	}

	switch {
	case rawURL != "":
		dest := filepath.Join(dir.In, src.Filename())
		if err := e.transfer.Download(ctx, src, dest); err != nil {
			return err
		}

		src.SetPath(dest)

		return nil
	case src.Path() != "":
		return nil
	default:
		return pipeline.NewGenericError("prepare", "no source file accessible")
	}
}

// presign hands a local file to temporary cloud storage and swaps the
// source's url for the issued one. The stored file is registered for
// cleanup.
func (e *Engine) presign(ctx context.Context, src *pipeline.Source, localPath string) error {
	presigned, id, err := e.storage.Store(ctx, localPath)
	if err != nil {
		return err
	}

	e.ectx.registerTempFile(id)
	src.SetURL(presigned)

	return nil
}

// validateReference accepts a valid https URL or a parseable data URI;
// everything else is a SourceUnsupported failure.
func validateReference(raw string) error {
	if datauri.Is(raw) {
		if _, _, err := datauri.Parse(raw); err != nil {
			return pipeline.NewSourceUnsupported(fmt.Sprintf("%q must be a valid https url or datauri", truncateRef(raw)))
		}

		return nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return pipeline.NewSourceUnsupported(fmt.Sprintf("%q must be a valid https url or datauri", truncateRef(raw)))
	}

	return nil
}

// authFor merges the engine's request-scoped credentials with any bundle
// carried on the input bag.
func (e *Engine) authFor(input map[string]interface{}) map[string]interface{} {
	auth := maputil.DeepCopyMap(e.cfg.Auth)

	if bundle, ok := maputil.GetMap(input, pipeline.KeyAuth); ok {
		auth = maputil.Merge(auth, bundle)
	}

	return auth
}

// filterUserData strips userData fields outside the configured allow-list.
func (e *Engine) filterUserData(bag map[string]interface{}) {
	userData, ok := maputil.GetMap(bag, manifest.KeyUserData)
	if !ok {
		return
	}

	allowed := make(map[string]struct{}, len(e.cfg.UserDataAllowList))
	for _, name := range e.cfg.UserDataAllowList {
		allowed[name] = struct{}{}
	}

	filtered := make(map[string]interface{}, len(userData))

	for k, v := range userData {
		if _, ok := allowed[k]; ok {
			filtered[k] = v
		}
	}

	bag[manifest.KeyUserData] = filtered
}

// truncateRef keeps oversized references (data URIs) out of error messages.
func truncateRef(s string) string {
	const max = 128
	if len(s) <= max {
		return s
	}

	return s[:max] + "..."
}
