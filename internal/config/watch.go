package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives the reloaded configuration, or the error that
// prevented it from loading.
type ReloadFunc func(cfg *Config, err error)

// Watcher reloads a configuration file when it changes.
//
// The parent directory is watched rather than the file so that editors
// replacing the file through a rename are seen.
type Watcher struct {
	path      string
	overrides Overrides
	debounce  time.Duration
	fsw       *fsnotify.Watcher
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long to wait for writes to settle before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// NewWatcher starts watching the directory that holds path.
func NewWatcher(path string, ov Overrides, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:      abs,
		overrides: ov,
		debounce:  100 * time.Millisecond,
		fsw:       fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run calls fn after each change to the file until ctx is done. It closes
// the underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context, fn ReloadFunc) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			fn(Load(w.path, w.overrides))

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			fn(nil, fmt.Errorf("watch %s: %w", w.path, err))
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename)
}
