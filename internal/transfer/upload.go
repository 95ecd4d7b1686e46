package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// Upload delivers the rendition artifact to its declared target: one PUT
// for a single URL, consecutive byte slices uploaded in parallel for a
// multipart {urls} target. A 413 from the target surfaces as
// RenditionTooLarge.
func (c *Client) Upload(ctx context.Context, rendition *pipeline.Rendition) error {
	urls := rendition.TargetURLs()
	if len(urls) == 0 {
		return pipeline.NewGenericError("upload", "rendition has no target")
	}

	if rendition.Path == "" {
		return pipeline.NewGenericError("upload", "rendition has no local artifact to upload")
	}

	size, err := rendition.Size()
	if err != nil {
		return fmt.Errorf("stat rendition artifact: %w", err)
	}

	if len(urls) == 1 {
		return c.uploadSlice(ctx, urls[0], rendition.Path, rendition.Type(), 0, size)
	}

	partSize := (size + int64(len(urls)) - 1) / int64(len(urls))
	if partSize < 1 {
		partSize = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, target := range urls {
		start := int64(i) * partSize
		if start >= size {
			break
		}

		length := partSize
		if start+length > size {
			length = size - start
		}

		target := target

		g.Go(func() error {
			return c.uploadSlice(gctx, target, rendition.Path, rendition.Type(), start, length)
		})
	}

	return g.Wait()
}

// uploadSlice PUTs length bytes of the file starting at offset. The file is
// reopened per attempt so retries restart the body from scratch.
func (c *Client) uploadSlice(ctx context.Context, target, path, contentType string, offset, length int64) error {
	return c.withRetry(ctx, "upload", func() (bool, error) {
		f, err := os.Open(path)
		if err != nil {
			return false, err
		}
		defer f.Close()

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, io.NewSectionReader(f, offset, length))
		if err != nil {
			return false, err
		}

		req.ContentLength = length

		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return retryableStatus(resp.StatusCode), uploadStatusError(resp.StatusCode)
		}

		return false, nil
	})
}

// uploadStatusError classifies an upload rejection; 413 means the target
// refused the rendition for its size.
func uploadStatusError(status int) error {
	msg := fmt.Sprintf("upload failed with status %d", status)

	if status == http.StatusRequestEntityTooLarge {
		return pipeline.NewRenditionTooLarge(msg)
	}

	return pipeline.NewGenericError("upload", msg)
}
