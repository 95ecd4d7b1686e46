package watch

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid events on the same path into a single callback
// invocation. Each path gets its own quiet period, so a burst of writes to
// one source does not swallow another source arriving at the same time.
type Debouncer struct {
	interval time.Duration
	callback func(path string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewDebouncer creates a debouncer that waits for interval of quiet on a
// path before firing callback with that path.
func NewDebouncer(interval time.Duration, callback func(path string)) *Debouncer {
	return &Debouncer{
		interval: interval,
		callback: callback,
		timers:   make(map[string]*time.Timer),
	}
}

// Trigger records an event for the given path. If no further events arrive
// for that path within the debounce interval, the callback fires with it.
func (d *Debouncer) Trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[path]; ok {
		timer.Stop()
	}

	d.timers[path] = time.AfterFunc(d.interval, func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("debouncer callback panicked", slog.Any("error", r))
			}
		}()

		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()

		d.callback(path)
	})
}

// Stop cancels all pending debounced callbacks.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
}
