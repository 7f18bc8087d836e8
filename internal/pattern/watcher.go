package pattern

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/keshon/autoreply/internal/logging"
)

// DefaultDebounce collapses bursts of file events into one reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the patterns directory into a Holder when its documents
// change.
type Watcher struct {
	dir      string
	holder   *Holder
	opts     LoadOptions
	log      logging.Logger
	debounce time.Duration

	// OnReload, if set, is called after every reload attempt.
	OnReload func(store *Store, report LoadReport, err error)
}

// NewWatcher returns a watcher for dir publishing into holder.
func NewWatcher(dir string, holder *Holder, opts LoadOptions) *Watcher {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Watcher{
		dir:      dir,
		holder:   holder,
		opts:     opts,
		log:      log,
		debounce: DefaultDebounce,
	}
}

// SetDebounce overrides DefaultDebounce.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Reload loads the directory now. On failure the current snapshot stays.
func (w *Watcher) Reload() (*Store, LoadReport, error) {
	store, report, err := LoadDir(w.dir, w.opts)
	if err != nil {
		w.log.Error("Pattern reload failed, keeping current patterns", "dir", w.dir, "err", err)
	} else {
		prev := w.holder.Swap(store)
		w.log.Info("Patterns reloaded", "previous", prev.Size(), "current", store.Size())
	}
	if w.OnReload != nil {
		w.OnReload(store, report, err)
	}
	return store, report, err
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("Watching pattern directory", "dir", w.dir)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			w.log.Debug("Pattern file changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Pattern watcher error", "err", err)
		case <-timer.C:
			_, _, _ = w.Reload()
		}
	}
}

// relevant filters editor noise: only document files count, including ones
// renamed to or from a disabled "!" name.
func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(ev.Name)
	return IsDocument(strings.TrimPrefix(name, disabledPrefix))
}
