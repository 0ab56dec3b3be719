// Package watch re-renders view files when task sources or views change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"taskdeck/internal/logging"
	"taskdeck/internal/view"
)

// Refresher is the refresh operation the watcher drives.
type Refresher interface {
	Refresh(ctx context.Context) (*view.RefreshResult, error)
}

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Refreshes     int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastEventType string
	LastBatch     []string
	LastRunID     string
}

// Watcher watches a workspace for changes to files matching the configured
// source and view patterns. Bursts of events are coalesced by a Debouncer
// into a single refresh. A refresh that writes views causes one more event,
// after which rendering is a no-op and the loop settles.
type Watcher struct {
	mu        sync.RWMutex
	watcher   *fsnotify.Watcher
	workspace string
	patterns  []string
	refresher Refresher
	debouncer *Debouncer
	trigger   chan []string
	stopCh    chan struct{}
	doneCh    chan struct{}
	running   bool
	stats     Stats

	// OnRefresh, when set, is called after every refresh from the watch goroutine.
	OnRefresh func(*view.RefreshResult, error)
}

// New creates a watcher for workspace. patterns are workspace-relative
// doublestar globs; debounce <= 0 uses DefaultDebounce.
func New(workspace string, patterns []string, debounce time.Duration, r Refresher) (*Watcher, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return nil, errors.New("invalid watch pattern: " + p)
		}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:   fw,
		workspace: workspace,
		patterns:  patterns,
		refresher: r,
		trigger:   make(chan []string, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	w.debouncer = NewDebouncer(debounce, w.queue)
	return w, nil
}

// queue hands a batch to the event loop. A batch arriving while another
// is still queued is merged into it.
func (w *Watcher) queue(paths []string) {
	for {
		select {
		case w.trigger <- paths:
			return
		default:
		}
		select {
		case queued := <-w.trigger:
			paths = mergeBatches(queued, paths)
		default:
		}
	}
}

func mergeBatches(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, p := range append(append([]string{}, a...), b...) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Start adds every non-hidden directory of the workspace to the watch list
// and begins processing events. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.workspace); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("Watching %s (%d patterns)", w.workspace, len(w.patterns))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.debouncer.Cancel()
	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
	logging.Watch("Watcher stopped")
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// IsRunning reports whether Start has been called without a matching Stop.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			logging.Get(logging.CategoryWatch).Error("fsnotify error: %v", err)
		case paths := <-w.trigger:
			w.refresh(ctx, paths)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.workspace, event.Name)
	if err != nil || hidden(rel) {
		return
	}
	rel = filepath.ToSlash(rel)

	// New directories join the watch list so nested sources are seen.
	if event.Has(fsnotify.Create) {
		if err := w.addTree(event.Name); err != nil {
			logging.WatchDebug("add %s: %v", rel, err)
		}
	}

	if event.Op == fsnotify.Chmod || !w.matches(rel) {
		return
	}

	eventType := "modify"
	switch {
	case event.Has(fsnotify.Create):
		eventType = "create"
	case event.Has(fsnotify.Remove):
		eventType = "delete"
	case event.Has(fsnotify.Rename):
		eventType = "rename"
	}

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = rel
	w.stats.LastEventType = eventType
	w.mu.Unlock()

	logging.WatchDebug("%s %s", eventType, rel)
	w.debouncer.Add(rel)
}

func (w *Watcher) refresh(ctx context.Context, paths []string) {
	logging.WatchDebug("refreshing after changes to %v", paths)
	res, err := w.refresher.Refresh(ctx)

	w.mu.Lock()
	w.stats.Refreshes++
	w.stats.LastBatch = paths
	if err != nil {
		w.stats.Errors++
	}
	if res != nil {
		w.stats.LastRunID = res.RunID
	}
	w.mu.Unlock()

	if err != nil {
		logging.Get(logging.CategoryWatch).Warn("refresh failed: %v", err)
	} else if res != nil {
		logging.Watch("run %s: %d tasks, %d views written", res.RunID, res.Tasks, res.Written())
	}
	if w.OnRefresh != nil {
		w.OnRefresh(res, err)
	}
}

func (w *Watcher) matches(rel string) bool {
	for _, p := range w.patterns {
		if ok, _ := doublestar.Match(filepath.ToSlash(p), rel); ok {
			return true
		}
	}
	return false
}

// addTree watches root and every non-hidden directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.workspace && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			logging.WatchDebug("watch %s: %v", path, err)
		}
		return nil
	})
}

func hidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}
