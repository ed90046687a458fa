// pkg/backend/watch.go
package backend

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// FileChangedFunc is called when the watched file changes
type FileChangedFunc func(b *Backend)

// WatchFile calls fn whenever path changes. Only one watch may be registered
// for the lifetime of the Backend.
func (b *Backend) WatchFile(path string, fn FileChangedFunc) error {
	if path == "" || fn == nil {
		return fmt.Errorf("watch file: path and callback are required")
	}

	b.watchMu.Lock()
	defer b.watchMu.Unlock()

	if b.fileChanged != nil {
		b.logger.Warn().Str("path", path).Msg("file watch already set")
		return ErrAlreadyWatching
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		b.logger.Warn().Err(err).Str("path", path).Msg("failed to set watch")
		return fmt.Errorf("watching %s: %w", path, err)
	}

	b.watcher = watcher
	b.fileChanged = fn
	b.watchDone = make(chan struct{})
	go b.watchLoop(watcher, fn, b.watchDone)

	return nil
}

func (b *Backend) watchLoop(watcher *fsnotify.Watcher, fn FileChangedFunc, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			b.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("config file changed")
			fn(b)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			b.logger.Warn().Err(err).Msg("file watch error")
		}
	}
}

// stopWatch closes the watcher; the registration itself stays spent
func (b *Backend) stopWatch() error {
	b.watchMu.Lock()
	watcher, done := b.watcher, b.watchDone
	b.watcher = nil
	b.watchMu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}
