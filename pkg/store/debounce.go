package store

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is how long edits must settle before a snapshot write.
const DefaultQuietPeriod = time.Second

// DebouncedSaver coalesces rapid edits into a single snapshot write after a
// quiet period. At most one write is pending at a time; a new edit resets
// the timer.
type DebouncedSaver struct {
	adapter *Adapter
	quiet   time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending Source
	stopped bool
}

// NewDebouncedSaver wraps an adapter with debounced writes. A non-positive
// quiet period falls back to DefaultQuietPeriod.
func NewDebouncedSaver(adapter *Adapter, quiet time.Duration) *DebouncedSaver {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &DebouncedSaver{adapter: adapter, quiet: quiet}
}

// Notify schedules a snapshot of src once edits settle. Suitable as a
// session change listener.
func (d *DebouncedSaver) Notify(src Source) {
	if d == nil || src == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = src
	if d.timer != nil {
		d.timer.Reset(d.quiet)
		return
	}
	d.timer = time.AfterFunc(d.quiet, d.fire)
}

func (d *DebouncedSaver) fire() {
	d.mu.Lock()
	src := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if src != nil {
		d.adapter.Save(src)
	}
}

// Flush writes any pending snapshot immediately and cancels the timer.
func (d *DebouncedSaver) Flush() {
	d.mu.Lock()
	src := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	if src != nil {
		d.adapter.Save(src)
	}
}

// Stop cancels any pending write and refuses further notifications.
func (d *DebouncedSaver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
