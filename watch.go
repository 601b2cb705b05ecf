package acf

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/uplang/acf/internal/logging"
)

// DefaultDebounce is how long Watch waits for further events before reloading.
const DefaultDebounce = 200 * time.Millisecond

// ReloadFunc receives the outcome of every reload triggered by Watch. err is
// nil when the file parsed; the document keeps its previous content otherwise.
type ReloadFunc func(doc *Document, err error)

type watchConfig struct {
	debounce time.Duration
	onReload ReloadFunc
	lock     sync.Locker
}

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

// WithDebounce sets the quiet period that must pass after the last event
// before the document is reloaded.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.debounce = d
	}
}

// WithOnReload sets the callback run after each reload.
func WithOnReload(fn ReloadFunc) WatchOption {
	return func(c *watchConfig) {
		c.onReload = fn
	}
}

// WithLocker makes Watch hold l while reloading, for callers that share the
// document with other goroutines.
func WithLocker(l sync.Locker) WatchOption {
	return func(c *watchConfig) {
		c.lock = l
	}
}

// Watch reloads doc whenever its backing file changes, until ctx is done. The
// parent directory is watched so editors that replace the file on save are
// followed. Watch blocks; run it in its own goroutine.
func Watch(ctx context.Context, doc *Document, opts ...WatchOption) error {
	if doc.Path() == "" {
		return ErrNoBackingFile
	}
	cfg := watchConfig{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target, err := filepath.Abs(doc.Path())
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	logging.Info("Watcher", "Watching %s for changes", target)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logging.Debug("Watcher", "Stopped watching %s", target)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, target) {
				continue
			}
			logging.Debug("Watcher", "Event %s on %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(cfg.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(cfg.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			reload(doc, &cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logging.Warn("Watcher", "Event queue overflowed, reloading %s", target)
				reload(doc, &cfg)
				continue
			}
			logging.Error("Watcher", err, "Filesystem watcher error")
		}
	}
}

// relevant reports whether event touches the watched file.
func relevant(event fsnotify.Event, target string) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != target {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

func reload(doc *Document, cfg *watchConfig) {
	if cfg.lock != nil {
		cfg.lock.Lock()
	}
	err := doc.Reload()
	if cfg.lock != nil {
		cfg.lock.Unlock()
	}
	if err != nil {
		logging.Warn("Watcher", "Keeping previous content of %s: %v", doc.Path(), err)
	} else {
		logging.Info("Watcher", "Reloaded %s", doc.Path())
	}
	if cfg.onReload != nil {
		cfg.onReload(doc, err)
	}
}
