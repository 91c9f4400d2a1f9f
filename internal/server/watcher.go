package server

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the config file and calls onReload when it is written.
// The parent directory is watched so editors that replace the file on save
// are picked up too.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onReload func(path string) error
	done     chan struct{}
	debug    bool
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(path string, onReload func(string) error, debug bool) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	if debug {
		log.Printf("[Watch] Added directory: %s", filepath.Dir(abs))
	}

	return &Watcher{
		watcher:  fsWatcher,
		path:     abs,
		onReload: onReload,
		done:     make(chan struct{}),
		debug:    debug,
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}

				if w.debug {
					log.Printf("[Watch] File changed: %s (%s)", event.Name, event.Op)
				}
				if err := w.onReload(w.path); err != nil {
					log.Printf("[Watch] Reload failed for %s: %v", w.path, err)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[Watch] Error: %v", err)

			case <-w.done:
				return
			}
		}
	}()
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
