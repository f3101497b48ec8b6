package bookmarks

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
)

const reloadDebounce = 200 * time.Millisecond

// Library holds the current items of a Bookmarks file and can reload them
// when the file changes on disk.
type Library struct {
	path string

	mu    sync.RWMutex
	items []model.Item

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open loads the Bookmarks file at path.
func Open(path string) (*Library, error) {
	l := &Library{path: path}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the file the library was loaded from.
func (l *Library) Path() string { return l.path }

// Items returns the current items. Callers must not modify the slice.
func (l *Library) Items() []model.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.items
}

// Reload re-reads the file. On error the previous items are kept.
func (l *Library) Reload() error {
	items, err := Load(l.path)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	return nil
}

// Watch reloads the library whenever the file is written or replaced. It
// watches the parent directory because browsers save by renaming a temp
// file over the original. Watching stops when ctx is done or Close is called.
func (l *Library) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "bookmarks: create watcher")
	}
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		w.Close() //nolint:errcheck
		return eris.Wrapf(err, "bookmarks: watch %s", l.path)
	}

	l.watcher = w
	l.done = make(chan struct{})
	go l.run(ctx)
	return nil
}

// Close stops watching.
func (l *Library) Close() error {
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Close()
	<-l.done
	l.watcher = nil
	return err
}

func (l *Library) run(ctx context.Context) {
	defer close(l.done)

	var pending <-chan time.Time
	target := filepath.Clean(l.path)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			zap.L().Warn("bookmarks: watcher error", zap.Error(err))

		case <-pending:
			pending = nil
			if err := l.Reload(); err != nil {
				zap.L().Warn("bookmarks: reload failed", zap.String("path", l.path), zap.Error(err))
				continue
			}
			zap.L().Info("bookmarks: reloaded",
				zap.String("path", l.path),
				zap.Int("items", len(l.Items())),
			)
		}
	}
}
