// Package watch turns filesystem notifications for a fixed set of input paths
// into discrete "added" and "changed" events.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change observed for a path.
type Op int

const (
	// Added means the file appeared (or existed when watching started).
	Added Op = iota + 1
	// Changed means the file's contents were written.
	Changed
)

func (o Op) String() string {
	switch o {
	case Added:
		return "add"
	case Changed:
		return "change"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Event is a single debounced change for a file path. Path keeps the form the
// input was registered with (relative inputs yield relative paths).
type Event struct {
	Op   Op
	Path string
}

// DefaultDebounce is the quiet period applied to bursts of writes to one file.
const DefaultDebounce = 50 * time.Millisecond

// Source watches files and directory trees and emits events for regular files
// inside them.
type Source struct {
	paths    []string
	logger   *slog.Logger
	debounce time.Duration
	initial  bool
}

// Option configures a Source.
type Option func(*Source)

// WithDebounce sets the per-path debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(s *Source) {
		s.debounce = d
	}
}

// WithInitialScan controls whether existing files are reported as Added when
// Run starts. Enabled by default.
func WithInitialScan(enabled bool) Option {
	return func(s *Source) {
		s.initial = enabled
	}
}

// NewSource creates a watcher for paths. Directories are watched recursively.
func NewSource(paths []string, logger *slog.Logger, opts ...Option) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		cleaned = append(cleaned, filepath.Clean(p))
	}
	s := &Source{
		paths:    cleaned,
		logger:   logger,
		debounce: DefaultDebounce,
		initial:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run watches the configured paths and calls emit for each debounced event.
// emit is always called from the Run goroutine. Run blocks until ctx is
// cancelled, then returns nil.
func (s *Source) Run(ctx context.Context, emit func(Event)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	// Single files are watched through their parent directory to catch
	// atomic save patterns (write temp + rename over target).
	files := make(map[string]struct{})
	var roots []string
	var initial []string

	for _, p := range s.paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		if info.IsDir() {
			found, err := addRecursive(fsw, p)
			if err != nil {
				return fmt.Errorf("watching %s: %w", p, err)
			}
			roots = append(roots, p)
			initial = append(initial, found...)
			continue
		}
		if err := fsw.Add(filepath.Dir(p)); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		files[p] = struct{}{}
		initial = append(initial, p)
	}

	inScope := func(name string) bool {
		if _, ok := files[name]; ok {
			return true
		}
		for _, root := range roots {
			if within(root, name) {
				return true
			}
		}
		return false
	}

	if s.initial {
		for _, p := range initial {
			emit(Event{Op: Added, Path: p})
		}
	}

	fire := make(chan Event, 16)
	deb := newDebouncer(s.debounce, fire, ctx.Done())
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			if !inScope(name) {
				continue
			}

			switch {
			case event.Has(fsnotify.Create):
				info, statErr := os.Stat(name)
				if statErr != nil {
					continue
				}
				if info.IsDir() {
					found, addErr := addRecursive(fsw, name)
					if addErr != nil {
						s.logger.Warn("failed to watch new directory", "path", name, "error", addErr)
					}
					for _, f := range found {
						deb.trigger(Event{Op: Added, Path: f})
					}
					continue
				}
				deb.trigger(Event{Op: Added, Path: name})
			case event.Has(fsnotify.Write):
				deb.trigger(Event{Op: Changed, Path: name})
			}

		case ev := <-fire:
			if !isRegular(ev.Path) {
				continue
			}
			emit(ev)

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("fsnotify error", "error", watchErr)
		}
	}
}

// addRecursive watches dir and every directory below it, returning the
// regular files found along the way.
func addRecursive(fsw *fsnotify.Watcher, dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(p)
		}
		if d.Type().IsRegular() {
			found = append(found, p)
		}
		return nil
	})
	return found, err
}

func within(root, name string) bool {
	if root == "." {
		return !filepath.IsAbs(name) && name != ".." && !strings.HasPrefix(name, ".."+string(filepath.Separator))
	}
	return name == root || strings.HasPrefix(name, root+string(filepath.Separator))
}

func isRegular(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
