package watch

import (
	"sort"
	"sync"
	"time"
)

// DefaultDebounce is used when no duration is configured.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer coalesces bursts of file events. Paths added while the timer
// is pending are delivered together, sorted and de-duplicated, once no new
// path has arrived for the wait duration.
type Debouncer struct {
	mu      sync.Mutex
	timer   *time.Timer
	wait    time.Duration
	pending map[string]struct{}
	fire    func(paths []string)
}

// NewDebouncer creates a debouncer that calls fire with each batch.
func NewDebouncer(wait time.Duration, fire func(paths []string)) *Debouncer {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	return &Debouncer{
		wait:    wait,
		pending: make(map[string]struct{}),
		fire:    fire,
	}
}

// Add records path and restarts the quiet period.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, d.Flush)
}

// Pending returns the number of paths waiting for delivery.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Cancel stops the timer and drops pending paths.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[string]struct{})
}

// Flush delivers pending paths now. It does nothing when none are pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	sort.Strings(paths)
	d.fire(paths)
}
