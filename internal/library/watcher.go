package library

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps a Loader in sync with edits to the macro directory, so the
// next reconciliation sees saved changes without a restart.
type Watcher struct {
	loader *Loader
	fw     *fsnotify.Watcher
	done   chan struct{}
}

// NewWatcher creates a watcher over the loader's directory.
func NewWatcher(loader *Loader) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(loader.Dir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", loader.Dir(), err)
	}
	return &Watcher{
		loader: loader,
		fw:     fw,
		done:   make(chan struct{}),
	}, nil
}

// Start runs the watch loop in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			name := filepath.Base(ev.Name)
			if !IsPathFile(name) {
				continue
			}
			switch {
			case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
				fmt.Printf("[Library] %s removed, dropping from library\n", name)
				w.loader.Forget(name)
			case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
				if err := w.loader.Reload(name); err != nil {
					fmt.Printf("[Library] reload of %s failed: %v\n", name, err)
				}
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			fmt.Printf("[Library] watch error: %v\n", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watch loop.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
