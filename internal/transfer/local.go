package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// LocalDelivery wraps a Client so renditions can target plain filesystem
// paths. Renditions whose targets all resolve locally are copied in place;
// anything with a remote target is delegated to the wrapped client
// unchanged.
type LocalDelivery struct {
	*Client
}

// Upload copies the rendition artifact to each local target, or hands the
// rendition to the wrapped client when a remote target is declared.
func (d *LocalDelivery) Upload(ctx context.Context, rendition *pipeline.Rendition) error {
	urls := rendition.TargetURLs()
	if len(urls) == 0 {
		return pipeline.NewGenericError("upload", "rendition has no target")
	}

	if hasRemoteTarget(urls) {
		return d.Client.Upload(ctx, rendition)
	}

	if rendition.Path == "" {
		return pipeline.NewGenericError("upload", "rendition has no local artifact to copy")
	}

	for _, target := range urls {
		if err := copyArtifact(rendition.Path, localTargetPath(target)); err != nil {
			return pipeline.NewGenericError("upload", fmt.Sprintf("copying rendition to %s: %v", target, err))
		}
	}

	return nil
}

// hasRemoteTarget reports whether any target needs an HTTP upload.
func hasRemoteTarget(urls []string) bool {
	for _, u := range urls {
		if strings.Contains(u, "://") && !strings.HasPrefix(u, "file://") {
			return true
		}
	}

	return false
}

// localTargetPath strips the optional file scheme from a local target.
func localTargetPath(target string) string {
	return strings.TrimPrefix(target, "file://")
}

// copyArtifact copies src to dest, creating parent directories as needed.
func copyArtifact(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()

		return err
	}

	return out.Close()
}
