package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/datauri"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// Download materializes the source at dest. Data URIs are decoded inline;
// https URLs are fetched with the source's headers. Servers that advertise
// byte ranges deliver bodies larger than one chunk in parallel. The
// source's size attribute is updated on success.
func (c *Client) Download(ctx context.Context, source *pipeline.Source, dest string) error {
	ref := source.URL()
	if ref == "" {
		return pipeline.NewGenericError("download", "source has no url")
	}

	if datauri.Is(ref) {
		_, data, err := datauri.Parse(ref)
		if err != nil {
			return pipeline.NewSourceUnsupported(err.Error())
		}

		if err := os.WriteFile(dest, data, 0o640); err != nil {
			return fmt.Errorf("writing decoded data uri: %w", err)
		}

		source.SetSize(int64(len(data)))

		return nil
	}

	if size, ranged := c.probeRange(ctx, ref, source.Headers()); ranged && size > c.chunkSize {
		if err := c.downloadChunked(ctx, ref, source.Headers(), dest, size); err != nil {
			return err
		}

		source.SetSize(size)

		return nil
	}

	n, err := c.downloadWhole(ctx, ref, source.Headers(), dest)
	if err != nil {
		return err
	}

	source.SetSize(n)

	return nil
}

// probeRange asks the server for the body size and range support.
func (c *Client) probeRange(ctx context.Context, ref string, headers map[string]interface{}) (int64, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, ref, nil)
	if err != nil {
		return 0, false
	}

	applyHeaders(req, headers)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false
	}

	if !strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes") {
		return 0, false
	}

	return resp.ContentLength, resp.ContentLength > 0
}

// downloadWhole streams the full body to dest and returns the byte count.
func (c *Client) downloadWhole(ctx context.Context, ref string, headers map[string]interface{}, dest string) (int64, error) {
	var n int64

	err := c.withRetry(ctx, "download", func() (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return false, pipeline.NewSourceUnsupported(fmt.Sprintf("invalid source url: %v", err))
		}

		applyHeaders(req, headers)

		resp, err := c.http.Do(req)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return retryableStatus(resp.StatusCode), downloadStatusError(resp.StatusCode)
		}

		f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
		if err != nil {
			return false, err
		}
		defer f.Close()

		n, err = io.Copy(f, resp.Body)

		return true, err
	})

	return n, err
}

// downloadChunked fetches the body as parallel byte-range requests written
// in place into a pre-sized file.
func (c *Client) downloadChunked(ctx context.Context, ref string, headers map[string]interface{}, dest string, size int64) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o640)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("pre-sizing %s: %w", dest, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for offset := int64(0); offset < size; offset += c.chunkSize {
		start := offset

		end := start + c.chunkSize - 1
		if end >= size {
			end = size - 1
		}

		g.Go(func() error {
			return c.downloadRange(gctx, ref, headers, f, start, end)
		})
	}

	return g.Wait()
}

// downloadRange fetches bytes [start,end] and writes them at their offset.
func (c *Client) downloadRange(ctx context.Context, ref string, headers map[string]interface{}, f *os.File, start, end int64) error {
	return c.withRetry(ctx, "download chunk", func() (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return false, err
		}

		applyHeaders(req, headers)
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

		resp, err := c.http.Do(req)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusPartialContent {
			return retryableStatus(resp.StatusCode), downloadStatusError(resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return true, err
		}

		_, err = f.WriteAt(data, start)

		return false, err
	})
}

// downloadStatusError classifies a download rejection: client errors mean
// the source reference is not servable, everything else is generic.
func downloadStatusError(status int) error {
	msg := fmt.Sprintf("download failed with status %d", status)

	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return pipeline.NewSourceUnsupported(msg)
	}

	return pipeline.NewGenericError("download", msg)
}
