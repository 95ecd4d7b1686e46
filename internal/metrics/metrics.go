// Package metrics provides the activation-scoped metrics aggregator and
// duration timers used by the engine, plus sink implementations that forward
// aggregated fields to external systems.
package metrics

import (
	"sync"
	"time"
)

// Metric kinds sent through a sink.
const (
	KindActivation = "activation"
	KindRendition  = "rendition"
	KindError      = "error"
)

// Aggregator accumulates metric fields over one engine activation. It is
// owned by the engine context and flushed once during cleanup.
type Aggregator struct {
	mu     sync.Mutex
	fields map[string]interface{}
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{fields: map[string]interface{}{}}
}

// Add merges fields into the aggregate, overwriting existing keys.
func (a *Aggregator) Add(fields map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for k, v := range fields {
		a.fields[k] = v
	}
}

// AddField records a single field.
func (a *Aggregator) AddField(key string, value interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.fields[key] = value
}

// Fields returns a snapshot of the aggregated fields.
func (a *Aggregator) Fields() map[string]interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]interface{}, len(a.fields))
	for k, v := range a.fields {
		out[k] = v
	}

	return out
}

// Timer measures one duration. Stop is idempotent so that timers can be
// stopped eagerly on failure paths and again during cleanup.
type Timer struct {
	mu      sync.Mutex
	started time.Time
	elapsed time.Duration
	stopped bool
}

// StartTimer begins measuring.
func StartTimer() *Timer {
	return &Timer{started: time.Now()}
}

// Stop freezes the timer and returns the elapsed duration. Subsequent calls
// return the frozen value.
func (t *Timer) Stop() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.stopped {
		t.elapsed = time.Since(t.started)
		t.stopped = true
	}

	return t.elapsed
}

// Elapsed returns the duration measured so far without stopping.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return t.elapsed
	}

	return time.Since(t.started)
}

// Milliseconds converts a duration to fractional milliseconds, the unit
// used for duration fields in events and metrics.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
