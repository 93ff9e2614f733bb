package config

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher holds the live Config and reloads it on file changes, with a
// polling fallback when fsnotify can't watch the file (same dual-path
// shape as internal/license/watcher.go).
type Watcher struct {
	path string

	mu  sync.RWMutex
	cur Config
}

// NewWatcher loads path once and returns a Watcher seeded with the
// result.
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, cur: cfg}, nil
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cur
}

// Start launches the fsnotify watch loop, or, when fsnotify cannot watch
// the file, a 60s polling loop instead, until ctx is cancelled. While
// fsnotify works, the polling loop does not reload. A failed reload leaves the
// previous Config in place and logs a warning rather than tearing down
// the process: a malformed edit mid-save should not take the fleet
// down.
func (w *Watcher) Start(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	usePolling := false

	if err != nil {
		log.Printf("[config] fsnotify unavailable (%v), falling back to polling", err)
		usePolling = true
	} else if err := watcher.Add(w.path); err != nil {
		log.Printf("[config] watch %s failed (%v), falling back to polling", w.path, err)
		usePolling = true
		watcher.Close()
	}

	if !usePolling {
		go func() {
			defer watcher.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-watcher.Events:
					if !ok {
						return
					}
					if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						time.Sleep(100 * time.Millisecond) // debounce partial writes
						w.reload()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					log.Printf("[config] watcher error: %v", err)
				}
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if usePolling {
					w.reload()
				}
			}
		}
	}()
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.Printf("[config] reload %s failed, keeping previous config: %v", w.path, err)
		return
	}
	w.mu.Lock()
	w.cur = cfg
	w.mu.Unlock()
	log.Printf("[config] reloaded %s", w.path)
}
