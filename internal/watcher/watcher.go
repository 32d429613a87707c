// Package watcher rebuilds docset indexes when their files change on
// disk. Every enabled docset root is watched recursively; events are
// debounced per docset and handed to a rebuild callback as whole-docset
// rebuild requests. Individual file diffing is deliberately avoided:
// section anchors and chunk windows shift with content, so a full
// docset rebuild is the only way to keep references consistent.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/docdex/docdex/internal/docset"
)

// DefaultDebounce is the quiet window before a rebuild fires.
const DefaultDebounce = 2 * time.Second

// RebuildFunc is called with the dirty docset ids after the debounce
// window closes.
type RebuildFunc func(ctx context.Context, docsetIDs []string) error

// Watcher watches docset roots and triggers rebuilds.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce *Debouncer
	rebuild  RebuildFunc

	// roots maps each watched docset root to its docset id, longest
	// path first so nested roots resolve to the most specific docset.
	roots []watchedRoot

	stopOnce sync.Once
	done     chan struct{}
}

type watchedRoot struct {
	path string
	id   string
}

// New creates a watcher over the enabled docsets. debounce <= 0 uses
// the default window.
func New(docsets []docset.Docset, debounce time.Duration, rebuild RebuildFunc) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: NewDebouncer(debounce),
		rebuild:  rebuild,
		done:     make(chan struct{}),
	}

	for _, ds := range docset.Enabled(docsets) {
		if err := w.watchTree(ds.RootPath); err != nil {
			fsw.Close()
			return nil, err
		}
		w.roots = append(w.roots, watchedRoot{path: filepath.Clean(ds.RootPath), id: ds.ID})
	}
	// Longest root first, so a docset nested under another wins.
	for i := 1; i < len(w.roots); i++ {
		for j := i; j > 0 && len(w.roots[j].path) > len(w.roots[j-1].path); j-- {
			w.roots[j], w.roots[j-1] = w.roots[j-1], w.roots[j]
		}
	}

	return w, nil
}

// watchTree registers the directory and all subdirectories.
func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsw.Add(path)
	})
}

// Start runs the event loop until the context is cancelled or Stop is
// called. Rebuild failures are logged; the watcher keeps running.
func (w *Watcher) Start(ctx context.Context) {
	go w.eventLoop(ctx)
	go w.rebuildLoop(ctx)

	ids := make([]string, len(w.roots))
	for i, r := range w.roots {
		ids[i] = r.id
	}
	slog.Info("watcher_started", slog.String("docsets", strings.Join(ids, ",")))
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New directories must be added to the watch before their contents
	// start producing events. Walking a plain file is a no-op, and a
	// path that vanished before the walk is not worth surfacing.
	if event.Op.Has(fsnotify.Create) {
		_ = w.watchTree(event.Name)
	}

	isDocFile := docset.IsSupportedFile(event.Name)
	if !isDocFile && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) {
		return
	}

	id, ok := w.docsetFor(event.Name)
	if !ok {
		return
	}
	if isDocFile || event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		slog.Debug("docset_file_changed",
			slog.String("docset", id),
			slog.String("path", event.Name),
			slog.String("op", event.Op.String()))
		w.debounce.Mark(id)
	}
}

func (w *Watcher) docsetFor(path string) (string, bool) {
	clean := filepath.Clean(path)
	for _, r := range w.roots {
		if clean == r.path || strings.HasPrefix(clean, r.path+string(filepath.Separator)) {
			return r.id, true
		}
	}
	return "", false
}

func (w *Watcher) rebuildLoop(ctx context.Context) {
	for batch := range w.debounce.Output() {
		slog.Info("watcher_rebuild", slog.String("docsets", strings.Join(batch, ",")))
		if err := w.rebuild(ctx, batch); err != nil {
			slog.Error("watcher_rebuild_failed",
				slog.String("docsets", strings.Join(batch, ",")),
				slog.String("error", err.Error()))
		}
	}
}

// Stop shuts the watcher down. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
		w.debounce.Stop()
	})
}
