package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/cedar/internal/logging"
)

// debounceDelay coalesces the burst of events an editor emits when it
// rewrites a file.
const debounceDelay = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	onReload func(*Config)
	log      *logging.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// Watch starts watching the config file, invoking onReload with the
// freshly loaded config after each change. Reloads that fail to parse
// are logged and skipped. The watch covers the file's directory;
// editors that replace files on save would otherwise drop the watch.
func Watch(path string, onReload func(*Config), log *logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	if log == nil {
		log = logging.Null
	}

	w := &Watcher{
		fsw:      fsw,
		path:     abs,
		onReload: onReload,
		log:      log,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	var timer *time.Timer

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(debounceDelay, w.reload)
			} else {
				timer.Reset(debounceDelay)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher: %v", err)
		}
	}
}

// reload runs on the debounce timer's goroutine; the callback has to
// be safe to call from there.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload skipped: %v", err)
		return
	}
	w.log.Info("config reloaded from %s", w.path)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}
