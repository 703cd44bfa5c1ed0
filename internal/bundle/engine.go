// Package bundle adapts the esbuild Go API into the bundling engine the build
// loop drives: build the entry module's graph to one output file on request,
// and report when any module in the last build's graph changes.
package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/rathix/devserve/internal/fsutil"
)

// ErrClosed is returned by Build after Close.
var ErrClosed = errors.New("bundle engine closed")

// BuildError carries the formatted diagnostics of a failed build.
type BuildError struct {
	Messages []string
}

func (e *BuildError) Error() string {
	return strings.TrimSpace(strings.Join(e.Messages, "\n"))
}

// Options configures an Engine.
type Options struct {
	// Entry is the JavaScript entry module.
	Entry string
	// Outfile is where the bundle is written.
	Outfile string
	// Define holds compile-time replacements, see EnvDefines.
	Define map[string]string
	// WorkDir resolves relative Entry and Outfile paths. Defaults to the
	// current directory.
	WorkDir string
	// Debounce is the quiet period Watch waits for before reporting an
	// update. Defaults to DefaultDebounce.
	Debounce time.Duration
	Logger   *slog.Logger
}

// DefaultDebounce coalesces the several write events editors emit per save.
const DefaultDebounce = 50 * time.Millisecond

// Engine builds one entry point incrementally.
type Engine struct {
	build    api.BuildContext
	entry    string
	workDir  string
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	closed  bool
	inputs  []string
	changed chan struct{}
}

// New prepares an incremental build context for opts.Entry. Nothing is
// built until Build is called.
func New(opts Options) (*Engine, error) {
	if opts.Entry == "" || opts.Outfile == "" {
		return nil, errors.New("bundle: entry and outfile are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("bundle: working directory: %w", err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("bundle: working directory: %w", err)
	}

	ctx, ctxErr := api.Context(api.BuildOptions{
		EntryPoints:   []string{opts.Entry},
		Outfile:       opts.Outfile,
		AbsWorkingDir: workDir,
		Bundle:        true,
		Write:         false,
		Metafile:      true,
		Platform:      api.PlatformBrowser,
		Format:        api.FormatIIFE,
		Define:        opts.Define,
		LogLevel:      api.LogLevelSilent,
	})
	if ctxErr != nil {
		return nil, &BuildError{Messages: formatMessages(ctxErr.Errors)}
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	entry := opts.Entry
	if !filepath.IsAbs(entry) {
		entry = filepath.Join(workDir, entry)
	}

	return &Engine{
		build:    ctx,
		entry:    entry,
		workDir:  workDir,
		debounce: debounce,
		logger:   logger,
		inputs:   []string{entry},
		changed:  make(chan struct{}, 1),
	}, nil
}

// Build rebuilds the bundle and writes every output file atomically. It
// returns the paths written. On failure the previous output is left in
// place and the error is a *BuildError.
func (e *Engine) Build(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	stop := context.AfterFunc(ctx, e.build.Cancel)
	result := e.build.Rebuild()
	stop()

	if len(result.Errors) > 0 {
		return nil, &BuildError{Messages: formatMessages(result.Errors)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	written := make([]string, 0, len(result.OutputFiles))
	for _, out := range result.OutputFiles {
		if err := fsutil.WriteFileAtomic(out.Path, out.Contents, 0o644); err != nil {
			return written, err
		}
		written = append(written, out.Path)
	}

	if inputs, err := e.parseInputs(result.Metafile); err != nil {
		e.logger.Warn("failed to read bundle metafile", "error", err)
	} else {
		e.setInputs(inputs)
	}
	return written, nil
}

// Inputs returns the absolute paths of the modules in the last successful
// build's graph. Before the first build it holds only the entry.
func (e *Engine) Inputs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.inputs...)
}

func (e *Engine) setInputs(inputs []string) {
	e.mu.Lock()
	e.inputs = inputs
	e.mu.Unlock()
	select {
	case e.changed <- struct{}{}:
	default:
	}
}

// Close releases the build context.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.build.Dispose()
}

type metafile struct {
	Inputs map[string]json.RawMessage `json:"inputs"`
}

func (e *Engine) parseInputs(raw string) ([]string, error) {
	var meta metafile
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, err
	}
	seen := map[string]bool{e.entry: true}
	inputs := []string{e.entry}
	for p := range meta.Inputs {
		// Virtual modules carry a namespace prefix such as "(disabled):".
		if strings.Contains(p, ":") && !filepath.IsAbs(p) {
			continue
		}
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(e.workDir, filepath.FromSlash(p))
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		inputs = append(inputs, abs)
	}
	sort.Strings(inputs[1:])
	return inputs, nil
}

func formatMessages(msgs []api.Message) []string {
	return api.FormatMessages(msgs, api.FormatMessagesOptions{
		Kind:  api.ErrorMessage,
		Color: false,
	})
}
