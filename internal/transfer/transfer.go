// Package transfer moves asset bytes across the HTTPS boundary: it
// downloads sources (https URLs or data URIs) to local files and uploads
// renditions to their presigned targets. Requests are retried with
// exponential backoff, and large bodies move in parallel chunks sized
// against the process memory limit.
package transfer

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultRetries    = 3
	defaultRetryDelay = 500 * time.Millisecond
	defaultChunkSize  = 10 << 20
)

// Config wires a Client. Zero values select the documented defaults.
type Config struct {
	// HTTPClient overrides the default http.Client. Request lifetimes are
	// governed by the caller's context.
	HTTPClient *http.Client
	// Retries is the number of attempts per request.
	Retries int
	// RetryDelay is the initial backoff between attempts, doubled each
	// retry.
	RetryDelay time.Duration
	// Concurrency caps parallel chunk transfers; zero sizes it from the
	// process memory limit.
	Concurrency int
	// ChunkSize is the per-chunk byte count for ranged transfers.
	ChunkSize int64
	// MemoryLimit overrides memory-limit detection (quantity syntax,
	// e.g. "512Mi").
	MemoryLimit string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is an HTTPS/data-URI transfer client.
type Client struct {
	http        *http.Client
	retries     int
	retryDelay  time.Duration
	concurrency int
	chunkSize   int64
	logger      *slog.Logger
}

// New constructs a transfer client.
func New(cfg Config) *Client {
	c := &Client{
		http:        cfg.HTTPClient,
		retries:     cfg.Retries,
		retryDelay:  cfg.RetryDelay,
		concurrency: cfg.Concurrency,
		chunkSize:   cfg.ChunkSize,
		logger:      cfg.Logger,
	}

	if c.http == nil {
		c.http = &http.Client{}
	}

	if c.retries <= 0 {
		c.retries = defaultRetries
	}

	if c.retryDelay <= 0 {
		c.retryDelay = defaultRetryDelay
	}

	if c.chunkSize <= 0 {
		c.chunkSize = defaultChunkSize
	}

	if c.concurrency <= 0 {
		c.concurrency = chunkConcurrency(memoryLimitBytes(cfg.MemoryLimit), c.chunkSize)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// withRetry runs fn up to the configured attempt count. fn reports whether
// its failure is worth retrying; backoff doubles between attempts and the
// context aborts the wait.
func (c *Client) withRetry(ctx context.Context, op string, fn func() (retryable bool, err error)) error {
	delay := c.retryDelay

	var lastErr error

	for attempt := 1; attempt <= c.retries; attempt++ {
		retryable, err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !retryable || attempt == c.retries {
			break
		}

		c.logger.Warn("transfer attempt failed, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
	}

	return lastErr
}

// retryableStatus reports whether an HTTP status is transient.
func retryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// applyHeaders copies string-valued source headers onto the request.
func applyHeaders(req *http.Request, headers map[string]interface{}) {
	for k, v := range headers {
		if s, ok := v.(string); ok {
			req.Header.Set(k, s)
		}
	}
}
