// Package watch reloads the extras file when it changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/vmscope/internal/debounce"
	"github.com/oakwood-commons/vmscope/pkg/loader"
	"github.com/oakwood-commons/vmscope/pkg/logger"
)

// DefaultDelay coalesces the burst of events editors emit on save.
const DefaultDelay = 150 * time.Millisecond

// Extras watches one extras file and hands every successfully parsed
// version to a callback. Parse failures are logged and the previous value
// stays in place.
type Extras struct {
	path     string
	watcher  *fsnotify.Watcher
	deb      *debounce.Debouncer
	log      logr.Logger
	onReload func(map[string]any)
}

// NewExtras creates a watcher for path. The parent directory is watched
// rather than the file so that atomic renames by editors are seen.
func NewExtras(path string, delay time.Duration, log logr.Logger, onReload func(map[string]any)) (*Extras, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Extras{
		path:     abs,
		watcher:  w,
		deb:      debounce.New(delay),
		log:      log.WithValues(logger.ComponentKey, "watch", "path", abs),
		onReload: onReload,
	}, nil
}

// Path returns the absolute path being watched.
func (e *Extras) Path() string { return e.path }

// Run blocks until ctx is cancelled or the watcher is closed.
func (e *Extras) Run(ctx context.Context) {
	defer e.deb.Cancel()
	for {
		select {
		case ev, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			e.handle(ev)
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.log.Error(err, "watcher error")
		case <-ctx.Done():
			return
		}
	}
}

func (e *Extras) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != e.path {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	e.log.V(1).Info("extras changed", "op", ev.Op.String())
	e.deb.Trigger(e.Reload)
}

// Reload reads the file now and passes the result to the callback.
func (e *Extras) Reload() {
	extras, err := loader.LoadExtras(e.path)
	if err != nil {
		e.log.Error(err, "reload extras")
		return
	}
	if e.onReload != nil {
		e.onReload(extras)
	}
}

// Close stops watching. Run returns once the event channels close.
func (e *Extras) Close() error {
	e.deb.Cancel()
	return e.watcher.Close()
}
