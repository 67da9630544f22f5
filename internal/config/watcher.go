package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the config file for changes and reloads it.
type Watcher struct {
	watcher *fsnotify.Watcher
	onLoad  func(*Config)
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// NewWatcher starts watching the config directory. onLoad is invoked with the
// freshly loaded config after every write to config.yaml.
func NewWatcher(onLoad func(*Config)) (*Watcher, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		onLoad:  onLoad,
		done:    make(chan struct{}),
	}

	go w.watchLoop()

	return w, nil
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) && filepath.Base(event.Name) == "config.yaml" {
				w.mu.Lock()
				cfg, err := Load()
				if err == nil && w.onLoad != nil {
					w.onLoad(cfg)
				}
				w.mu.Unlock()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.done) })
	return w.watcher.Close()
}
