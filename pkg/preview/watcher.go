package preview

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// defaultIgnore names entries the watcher never descends into or
// reports.
var defaultIgnore = []string{".git", "node_modules", "dist", ".wharf"}

// Watcher polls source paths for modification-time changes. Polling
// keeps the behavior identical across platforms at the cost of a short
// detection delay, which is fine for a local preview loop.
type Watcher struct {
	paths    []string
	interval time.Duration

	mu     sync.Mutex
	mtimes map[string]time.Time
}

// NewWatcher creates a watcher over the given paths.
func NewWatcher(paths []string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Watcher{
		paths:    paths,
		interval: interval,
		mtimes:   make(map[string]time.Time),
	}
}

// Start polls until the context is cancelled, invoking onChange with the
// batch of changed paths after each poll that found any.
func (w *Watcher) Start(ctx context.Context, onChange func(changed []string)) error {
	w.scan(nil)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			var changed []string
			w.scan(func(path string) {
				changed = append(changed, path)
			})
			if len(changed) > 0 && onChange != nil {
				onChange(changed)
			}
		}
	}
}

// scan walks the watched paths, updating the timestamp map and reporting
// new or modified files.
func (w *Watcher) scan(report func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool, len(w.mtimes))

	for _, root := range w.paths {
		filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if ignored(info.Name()) {
					return filepath.SkipDir
				}
				return nil
			}

			seen[path] = true
			last, known := w.mtimes[path]
			mod := info.ModTime()
			if !known || mod.After(last) {
				w.mtimes[path] = mod
				if report != nil {
					report(path)
				}
			}
			return nil
		})
	}

	// Deleted files count as changes too.
	for path := range w.mtimes {
		if !seen[path] {
			delete(w.mtimes, path)
			if report != nil {
				report(path)
			}
		}
	}
}

func ignored(name string) bool {
	for _, n := range defaultIgnore {
		if name == n {
			return true
		}
	}
	return false
}
