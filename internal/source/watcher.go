package source

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/chunkrecall/pkg/utils"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher re-feeds a collector whenever one of a fixed set of files changes.
// Bursts of events are debounced into a single rebuild, and rebuilds never overlap.
type Watcher struct {
	feeder   *Feeder
	paths    []string
	debounce time.Duration
	onError  func(error)
	logger   *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output (file events, rebuilds).
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = utils.OrNop(l) }
}

// WithDebounce sets the quiet period before a rebuild.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithErrorHandler receives rebuild failures. By default they are logged.
func WithErrorHandler(fn func(error)) WatcherOption {
	return func(w *Watcher) { w.onError = fn }
}

// NewWatcher creates a watcher for paths. Call Run to start it.
func NewWatcher(f *Feeder, paths []string, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		feeder:   f,
		paths:    append([]string(nil), paths...),
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run feeds the files once, then watches their directories until ctx is cancelled.
// Editors often replace files instead of writing them, so the parent directories are watched
// and events are filtered by name.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.feeder.Feed(ctx, w.paths); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	watched := make(map[string]bool, len(w.paths))
	dirs := make(map[string]bool)
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := fw.Add(dir); err != nil {
				return err
			}
			dirs[dir] = true
		}
	}
	w.logger.Debug("watcher starting", zap.Strings("paths", w.paths))

	// Rebuilds run one at a time on a single worker; a pending signal coalesces further events.
	ctx, cancel := context.WithCancel(ctx)
	due := make(chan struct{}, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-due:
				w.rebuild(ctx)
			}
		}
	}()
	defer wg.Wait()
	defer cancel()
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
			w.schedule(due)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Debug("watcher error", zap.Error(err))
		}
	}
}

// schedule (re)arms the debounce timer. When it fires, the worker is signalled; if a rebuild
// is already running, it picks the signal up as soon as the current one finishes.
func (w *Watcher) schedule(due chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case due <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) rebuild(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.feeder.Feed(ctx, w.paths); err != nil {
		if w.onError != nil {
			w.onError(err)
			return
		}
		w.logger.Warn("corpus rebuild failed", zap.Error(err))
		return
	}
	w.logger.Debug("corpus rebuilt", zap.Strings("paths", w.paths))
}
