package formdef

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultDebounce coalesces bursts of file writes into one reload.
const DefaultDebounce = 100 * time.Millisecond

// Reload signals.
var (
	// DefinitionLoaded is emitted after a definition was parsed and applied.
	DefinitionLoaded = capitan.NewSignal(
		"formdef.definition.loaded",
		"Form definition applied",
	)

	// DefinitionRejected is emitted when a changed file fails to parse or
	// the apply callback refuses it. The previous definition stays current.
	DefinitionRejected = capitan.NewSignal(
		"formdef.definition.rejected",
		"Form definition change rejected",
	)
)

// Field keys for reload events.
var (
	KeySource = capitan.NewStringKey("source")
	KeyForm   = capitan.NewStringKey("form")
	KeyError  = capitan.NewStringKey("error")
)

// ApplyFunc receives every successfully parsed definition. Returning an error
// rejects it.
type ApplyFunc func(ctx context.Context, def *Definition) error

// WatchOption configures a Watcher.
type WatchOption func(*watchConfig)

type watchConfig struct {
	debounce time.Duration
	clock    clockz.Clock
	changes  <-chan []byte
	onError  func(ctx context.Context, err error)
}

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.debounce = d
	}
}

// WithClock replaces the clock used for debouncing.
func WithClock(clock clockz.Clock) WatchOption {
	return func(c *watchConfig) {
		c.clock = clock
	}
}

// WithChanges feeds file contents from ch instead of watching the path on
// disk. The first value is the initial definition.
func WithChanges(ch <-chan []byte) WatchOption {
	return func(c *watchConfig) {
		c.changes = ch
	}
}

// WithWatchErrorHandler receives parse and apply errors for changes made after
// Start.
func WithWatchErrorHandler(fn func(ctx context.Context, err error)) WatchOption {
	return func(c *watchConfig) {
		c.onError = fn
	}
}

// Watcher keeps a definition file loaded, reapplying it after every change.
type Watcher struct {
	path  string
	apply ApplyFunc
	cfg   watchConfig

	mu      sync.RWMutex
	current *Definition
	started bool
	done    chan struct{}
}

// NewWatcher builds a watcher for the definition stored at path.
func NewWatcher(path string, apply ApplyFunc, opts ...WatchOption) *Watcher {
	cfg := watchConfig{debounce: DefaultDebounce, clock: clockz.RealClock}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Watcher{path: path, apply: apply, cfg: cfg, done: make(chan struct{})}
}

// Start loads and applies the initial definition, then keeps watching until
// ctx is cancelled. An invalid initial definition is returned as an error,
// nothing is watched and Done is closed.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("formdef: watcher already started")
	}
	w.started = true
	w.mu.Unlock()

	watchCtx, cancel := context.WithCancel(ctx)
	fail := func(err error) error {
		cancel()
		close(w.done)
		return err
	}

	changes := w.cfg.changes
	if changes == nil {
		var err error
		if changes, err = watchFile(watchCtx, w.path); err != nil {
			return fail(err)
		}
	}

	select {
	case <-ctx.Done():
		return fail(ctx.Err())
	case raw, ok := <-changes:
		if !ok {
			return fail(fmt.Errorf("formdef: %s: watch closed before the first read", w.path))
		}
		if err := w.process(ctx, raw); err != nil {
			return fail(err)
		}
	}

	go func() {
		defer cancel()
		w.watch(watchCtx, changes)
	}()
	return nil
}

// Current returns the last applied definition.
func (w *Watcher) Current() *Definition {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Done is closed once the watcher stops.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) watch(ctx context.Context, changes <-chan []byte) {
	defer close(w.done)

	var (
		timer      clockz.Timer
		pending    []byte
		hasPending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case raw, ok := <-changes:
			if !ok {
				if hasPending {
					w.report(ctx, w.process(ctx, pending))
				}
				return
			}
			pending = raw
			hasPending = true

			if timer == nil {
				timer = w.cfg.clock.NewTimer(w.cfg.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(w.cfg.debounce)
			}

		case <-timerC:
			if hasPending {
				w.report(ctx, w.process(ctx, pending))
				hasPending = false
			}
		}
	}
}

func (w *Watcher) process(ctx context.Context, raw []byte) error {
	def, err := Parse(raw, filepath.Base(w.path))
	if err == nil && w.apply != nil {
		if applyErr := w.apply(ctx, def); applyErr != nil {
			err = fmt.Errorf("formdef: apply %s: %w", w.path, applyErr)
		}
	}
	if err != nil {
		capitan.Emit(ctx, DefinitionRejected, KeySource.Field(w.path), KeyError.Field(err.Error()))
		return err
	}

	w.mu.Lock()
	w.current = def
	w.mu.Unlock()
	capitan.Emit(ctx, DefinitionLoaded, KeySource.Field(w.path), KeyForm.Field(def.ID))
	return nil
}

func (w *Watcher) report(ctx context.Context, err error) {
	if err != nil && w.cfg.onError != nil {
		w.cfg.onError(ctx, err)
	}
}

// watchFile emits the file contents now and after every write. The parent
// directory is watched so a file replaced by rename keeps being followed.
func watchFile(ctx context.Context, path string) (<-chan []byte, error) {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("formdef: create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("formdef: watch %s: %w", path, err)
	}

	initial, err := os.ReadFile(path)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("formdef: read %s: %w", path, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer watcher.Close()

		select {
		case out <- initial:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				// Remove and Rename leave nothing to read; the Create of the
				// replacement follows.
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					continue
				}
				select {
				case out <- data:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}
