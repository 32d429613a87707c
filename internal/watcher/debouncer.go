package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces file events into per-docset rebuild batches.
// Edits typically arrive in bursts (editor saves, doc generators,
// rsync); a burst touching one docset should cost one rebuild, not
// one per file. The window restarts on every event, so a batch is
// emitted only after the docset has been quiet for the full window.
type Debouncer struct {
	window time.Duration
	output chan []string

	mu      sync.Mutex
	dirty   map[string]struct{}
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		output: make(chan []string, 4),
		dirty:  make(map[string]struct{}),
	}
}

// Mark records that a docset has changed and restarts the window.
func (d *Debouncer) Mark(docsetID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.dirty[docsetID] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.dirty) == 0 {
		return
	}

	batch := make([]string, 0, len(d.dirty))
	for id := range d.dirty {
		batch = append(batch, id)
	}
	d.dirty = make(map[string]struct{})

	select {
	case d.output <- batch:
	default:
		// A rebuild is already queued; re-mark so the change is not lost.
		for _, id := range batch {
			d.dirty[id] = struct{}{}
		}
		d.timer = time.AfterFunc(d.window, d.flush)
		slog.Debug("debounce_requeued", slog.Int("docsets", len(batch)))
	}
}

// Output returns the channel of dirty docset id batches.
func (d *Debouncer) Output() <-chan []string {
	return d.output
}

// Stop stops the debouncer and closes the output channel.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
