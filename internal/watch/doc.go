// Package watch renders source assets dropped into an inbox directory as
// they arrive, with per-source debouncing, an optional Prometheus metrics
// endpoint, and signal-aware shutdown.
package watch
