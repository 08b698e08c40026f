// Package assets watches files the renderer loads at startup so they can be
// reloaded while running.
package assets

import (
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
)

// Watcher reports writes to a fixed set of files. Parent directories are
// watched rather than the files themselves, so a file replaced by rename
// is still seen.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	log      *log.Logger
	files    map[string]struct{}

	changed chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewWatcher(logger *log.Logger, files ...string) (*Watcher, error) {
	if len(files) == 0 {
		return nil, errors.New("nothing to watch")
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}

	w := &Watcher{
		fsnotify: fsWatch,
		log:      logger,
		files:    make(map[string]struct{}),
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsWatch.Close()
			return nil, errors.Wrapf(err, "resolve %s", f)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsWatch.Add(dir); err != nil {
			fsWatch.Close()
			return nil, errors.Wrapf(err, "watch %s", dir)
		}
	}

	w.wg.Add(1)
	go w.start()
	return w, nil
}

func (w *Watcher) start() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(e.Name)
			if err != nil {
				continue
			}
			if _, ok := w.files[abs]; !ok {
				continue
			}
			w.log.Debug("watched file changed", "file", abs, "op", e.Op)
			select {
			case w.changed <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			w.log.Error("file watcher", "err", err)

		case <-w.done:
			return
		}
	}
}

// Changed reports, without blocking, whether any watched file changed since
// the last call. Bursts of events collapse into one report.
func (w *Watcher) Changed() bool {
	select {
	case <-w.changed:
		return true
	default:
		return false
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsnotify.Close()
	w.wg.Wait()
	return err
}
