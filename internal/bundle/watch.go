package bundle

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch calls notify after any module in the current graph is written or
// replaced. The watched set follows the graph of each successful Build.
// notify runs on the Watch goroutine and should only enqueue work.
// Watch returns nil when ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, notify func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("bundle: create watcher: %w", err)
	}
	defer w.Close()

	files := map[string]bool{}
	dirs := map[string]bool{}
	resync := func() {
		inputs := e.Inputs()
		files = make(map[string]bool, len(inputs))
		wanted := make(map[string]bool)
		for _, p := range inputs {
			files[p] = true
			wanted[filepath.Dir(p)] = true
		}
		for d := range dirs {
			if !wanted[d] {
				_ = w.Remove(d)
				delete(dirs, d)
			}
		}
		for d := range wanted {
			if dirs[d] {
				continue
			}
			if err := w.Add(d); err != nil {
				e.logger.Debug("cannot watch module directory", "dir", d, "error", err)
				continue
			}
			dirs[d] = true
		}
	}
	resync()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.changed:
			resync()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !files[filepath.Clean(ev.Name)] {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(e.debounce)
			} else {
				timer.Reset(e.debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("bundle watcher error", "error", err)
		case <-fire:
			fire = nil
			notify()
		}
	}
}
