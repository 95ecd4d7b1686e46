// Package event provides rendition event sinks: a structured-log sink, an
// append-only JSONL file sink, an in-memory sink for tests, and a fan-out
// combinator. Sinks receive the terminal rendition_created and
// rendition_failed events the engine emits.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
)

// Sink receives rendition lifecycle events.
type Sink interface {
	Emit(ctx context.Context, name string, payload map[string]interface{}) error
}

// LogSink writes events to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink wraps a logger; nil selects slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogSink{logger: logger}
}

// Emit logs the event at info level.
func (s *LogSink) Emit(ctx context.Context, name string, payload map[string]interface{}) error {
	s.logger.InfoContext(ctx, "rendition event",
		slog.String("event", name),
		slog.Any("payload", payload),
	)

	return nil
}

// envelope is one JSONL record written by a FileSink.
type envelope struct {
	Event   string                 `json:"event"`
	Time    time.Time              `json:"time"`
	Payload map[string]interface{} `json:"payload"`
}

// FileSink appends events to a JSONL file, one envelope per line. Safe for
// concurrent use.
type FileSink struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewFileSink opens (or creates) the file for appending.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("opening event file %s: %w", path, err)
	}

	return &FileSink{f: f, enc: json.NewEncoder(f)}, nil
}

// Emit appends one envelope line.
func (s *FileSink) Emit(_ context.Context, name string, payload map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enc.Encode(envelope{Event: name, Time: time.Now().UTC(), Payload: payload})
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	return s.f.Close()
}

// Recorded is one event captured by a MemorySink.
type Recorded struct {
	Name    string
	Payload map[string]interface{}
}

// MemorySink records events in memory. Payloads are deep-copied at emit
// time. Safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	events []Recorded
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit records a copy of the event.
func (s *MemorySink) Emit(_ context.Context, name string, payload map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, Recorded{Name: name, Payload: maputil.DeepCopyMap(payload)})

	return nil
}

// Events returns a snapshot of everything recorded so far.
func (s *MemorySink) Events() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Recorded(nil), s.events...)
}

// Named returns the recorded events with the given name.
func (s *MemorySink) Named(name string) []Recorded {
	var out []Recorded

	for _, e := range s.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}

	return out
}

// Reset discards everything recorded so far.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = nil
}

// multiSink fans events out to several sinks.
type multiSink struct {
	sinks []Sink
}

// Multi returns a sink that emits to every given sink, joining their
// errors.
func Multi(sinks ...Sink) Sink {
	return &multiSink{sinks: sinks}
}

// Emit delivers the event to all sinks; every sink is attempted even when
// an earlier one fails.
func (s *multiSink) Emit(ctx context.Context, name string, payload map[string]interface{}) error {
	var errs error

	for _, sink := range s.sinks {
		if err := sink.Emit(ctx, name, payload); err != nil {
			errs = errors.Join(errs, err)
		}
	}

	return errs
}
