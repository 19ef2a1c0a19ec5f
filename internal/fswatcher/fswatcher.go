// Package fswatcher watches a fixed set of files for modification.
// It watches parent directories rather than the files themselves so
// replace-by-rename (the usual way config.php gets rewritten) is
// still observed.
package fswatcher

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

type Watcher struct {
	w      *fsnotify.Watcher
	files  map[string]bool
	events chan string
	done   chan struct{}
}

// Watch starts watching the given files. Paths are cleaned to
// absolute form; the files need not exist yet.
func Watch(paths ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		w:      fsw,
		files:  make(map[string]bool),
		events: make(chan string, 16),
		done:   make(chan struct{}),
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	go w.run()
	return w, nil
}

// Events delivers the path of a watched file each time it is
// created, written or renamed into place.
func (w *Watcher) Events() <-chan string {
	return w.events
}

func (w *Watcher) Close() error {
	err := w.w.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if !w.files[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.events <- filepath.Clean(ev.Name):
			default:
				// Drop when the consumer is behind; the next change
				// will trigger another event.
			}
		case _, ok := <-w.w.Errors:
			if !ok {
				return
			}
		}
	}
}
