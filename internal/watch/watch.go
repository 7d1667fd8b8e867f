// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package watch reports changes to flakytest source files.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// DefaultInterval is how often modification times are reconciled when no
// interval is given.
const DefaultInterval = time.Second

// Event reports that a watched file changed.
type Event struct {
	Path string
}

// Watcher watches the directories of a set of source files and emits an
// Event whenever one of the files is created, written or replaced. Events
// missed by fsnotify are caught by comparing modification times on every
// reconcile interval.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]time.Time
	logger   hclog.Logger
	interval time.Duration
	events   chan Event

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a watcher for files. The files must exist.
func New(files []string, interval time.Duration, logger hclog.Logger) (*Watcher, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	ws, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  ws,
		files:    make(map[string]time.Time),
		logger:   logger.Named("watch"),
		interval: interval,
		events:   make(chan Event),
		done:     make(chan struct{}),
	}
	for _, f := range files {
		if err := w.add(f); err != nil {
			ws.Close()
			return nil, fmt.Errorf("error adding file %q: %w", f, err)
		}
	}
	return w, nil
}

// Events returns the channel events are delivered on. It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start watches in the background until ctx is done or Stop is called.
// Calling Start more than once is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
}

// Stop ends the watcher and closes the events channel. It must be called
// after Start and is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.cancel()
		<-w.done
		close(w.events)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) add(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if isSymLink(path) {
		return fmt.Errorf("symbolic links are not supported %s", path)
	}
	modTime, err := modTime(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	w.logger.Trace("adding file", "file", path, "dir", dir)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.files[path] = modTime
	return nil
}

func isSymLink(path string) bool {
	fi, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeSymlink != 0
}

func (w *Watcher) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.logger.Error("watcher event channel is closed")
				return
			}
			if err := w.handleEvent(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("error handling watcher event", "error", err, "event", event)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.logger.Error("watcher error channel is closed")
				return
			}
			w.logger.Warn("watcher error", "error", err)
		case <-ticker.C:
			w.reconcile(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) error {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return nil
	}
	path := filepath.Clean(event.Name)
	if _, ok := w.files[path]; !ok {
		return nil
	}
	w.logger.Trace("received watcher event", "file", path, "op", event.Op)

	// A rename moves the file away; the new version, if any, shows up in
	// the next reconcile.
	if event.Has(fsnotify.Rename) {
		w.files[path] = time.Time{}
		return nil
	}
	if t, err := modTime(path); err == nil {
		w.files[path] = t
	}
	return w.emit(ctx, path)
}

func (w *Watcher) reconcile(ctx context.Context) {
	for path, prev := range w.files {
		t, err := modTime(path)
		if err != nil {
			w.logger.Trace("failed to get file modTime", "file", path, "error", err)
			continue
		}
		if t.Equal(prev) {
			continue
		}
		w.logger.Trace("modTime changed", "file", path, "old", prev, "new", t)
		w.files[path] = t
		if err := w.emit(ctx, path); err != nil {
			return
		}
	}
}

func (w *Watcher) emit(ctx context.Context, path string) error {
	select {
	case w.events <- Event{Path: path}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func modTime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}
