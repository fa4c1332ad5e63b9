package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/llehouerou/cadence/internal/player"
)

// DefaultWatchDebounce is the quiet period after the last change before a
// refresh runs.
const DefaultWatchDebounce = 2 * time.Second

// Watcher refreshes the library when music files appear, change or vanish
// under a granted folder.
type Watcher struct {
	lib      *Library
	log      *zap.Logger
	fsw      *fsnotify.Watcher
	debounce time.Duration

	// OnRefresh, when set, receives the stats of each refresh.
	OnRefresh func(*ScanStats)

	wg sync.WaitGroup
}

// NewWatcher creates a watcher over every folder granted to lib.
func NewWatcher(lib *Library, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{lib: lib, log: log.Named("watcher"), fsw: fsw, debounce: debounce}

	roots, err := lib.Sources()
	if err != nil {
		fsw.Close()
		return nil, err
	}
	for _, root := range roots {
		w.Add(root)
	}
	return w, nil
}

// Add watches root and every directory below it.
func (w *Watcher) Add(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn("watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

// Start runs the event loop until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Go(func() { w.run(ctx) })
}

func (w *Watcher) run(ctx context.Context) {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("change detected", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-timer.C:
			stats, err := w.lib.Refresh(ctx, nil)
			if err != nil {
				w.log.Warn("refresh failed", zap.Error(err))
				continue
			}
			if w.OnRefresh != nil {
				w.OnRefresh(stats)
			}
		}
	}
}

// relevant reports whether ev can change the library. New directories are
// added to the watch set.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.Add(ev.Name)
			return true
		}
	}
	if !player.IsMusicFile(ev.Name) {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
