// Package build sequences the work triggered by source changes: rebuilding
// the bundle, compiling stylesheets, mirroring assets into the output
// directory, running the post-build command and telling browsers to reload.
package build

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/rathix/devserve/internal/config"
	"github.com/rathix/devserve/internal/fsutil"
	"github.com/rathix/devserve/internal/livereload"
	"github.com/rathix/devserve/internal/metrics"
	"github.com/rathix/devserve/internal/watch"
)

// Bundler rebuilds the JavaScript bundle and returns the files it wrote.
type Bundler interface {
	Build(ctx context.Context) ([]string, error)
}

// StyleCompiler compiles a stylesheet source to CSS.
type StyleCompiler interface {
	Compile(ctx context.Context, src string) ([]byte, error)
}

// Notifier delivers reload signals to browsers.
type Notifier interface {
	Broadcast(msg livereload.Message)
}

// CommandRunner runs the post-build command.
type CommandRunner interface {
	Run(ctx context.Context, command string) error
}

// Orchestrator processes build triggers one at a time, in arrival order.
// Triggers may be submitted from any goroutine and never block.
type Orchestrator struct {
	layout   config.Layout
	bundler  Bundler
	notifier Notifier

	inputs    []string
	style     StyleCompiler
	lessEntry string
	command   string
	runner    CommandRunner
	grace     time.Duration
	workDir   string
	metrics   *metrics.Metrics
	logger    *slog.Logger

	queue     *taskQueue
	lifecycle lifecycle
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithInputs sets the non-entry inputs copied on a force reload.
func WithInputs(inputs []string) Option {
	return func(o *Orchestrator) {
		o.inputs = append([]string(nil), inputs...)
	}
}

// WithStyle enables stylesheet compilation of entry with c.
func WithStyle(c StyleCompiler, entry string) Option {
	return func(o *Orchestrator) {
		o.style = c
		o.lessEntry = entry
	}
}

// WithCommand sets the post-build shell command.
func WithCommand(command string) Option {
	return func(o *Orchestrator) {
		o.command = command
	}
}

// WithCommandRunner replaces the default ShellRunner.
func WithCommandRunner(r CommandRunner) Option {
	return func(o *Orchestrator) {
		o.runner = r
	}
}

// WithStartupGrace overrides DefaultStartupGrace. Zero or negative starts
// directly in PhaseRunning.
func WithStartupGrace(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.grace = d
	}
}

// WithWorkDir sets the directory absolute input paths are made relative to.
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) {
		o.workDir = dir
	}
}

// WithMetrics records build outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// NewOrchestrator creates an orchestrator writing into layout.
func NewOrchestrator(layout config.Layout, bundler Bundler, notifier Notifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		layout:   layout,
		bundler:  bundler,
		notifier: notifier,
		runner:   ShellRunner{},
		grace:    DefaultStartupGrace,
		logger:   slog.Default(),
		queue:    newTaskQueue(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workDir == "" {
		if wd, err := os.Getwd(); err == nil {
			o.workDir = wd
		}
	}
	return o
}

// Phase reports the current lifecycle phase.
func (o *Orchestrator) Phase() Phase {
	return o.lifecycle.current()
}

// BundleUpdated queues a bundle rebuild.
func (o *Orchestrator) BundleUpdated() {
	o.queue.push(task{kind: taskBundle})
}

// HandleEvent queues the reaction to a change of a watched input.
func (o *Orchestrator) HandleEvent(ev watch.Event) {
	o.queue.push(task{kind: taskAsset, event: ev})
}

// ForceReload queues a full rebuild of every output.
func (o *Orchestrator) ForceReload() {
	o.queue.push(task{kind: taskForce})
}

// Run starts the startup grace window and processes queued triggers until
// ctx is cancelled. A task that has started runs to completion unless it
// observes ctx itself.
func (o *Orchestrator) Run(ctx context.Context) {
	o.lifecycle.begin(o.grace)
	defer o.lifecycle.stop()

	for {
		for {
			if ctx.Err() != nil {
				return
			}
			t, ok := o.queue.pop()
			if !ok {
				break
			}
			o.process(ctx, t)
		}

		select {
		case <-ctx.Done():
			o.logger.Debug("build orchestrator stopped", "pending", o.queue.len())
			return
		case <-o.queue.signal:
		}
	}
}

func (o *Orchestrator) process(ctx context.Context, t task) {
	if t.done != nil {
		defer close(t.done)
	}
	switch t.kind {
	case taskBundle:
		o.onBundleUpdate(ctx)
	case taskAsset:
		o.onAssetChange(ctx, t.event)
	case taskForce:
		o.onForceReload(ctx)
	}
}

func (o *Orchestrator) starting() bool {
	return o.lifecycle.current() == PhaseStarting
}

func (o *Orchestrator) onBundleUpdate(ctx context.Context) {
	if !o.rebuildBundle(ctx) || o.starting() {
		return
	}
	o.notifier.Broadcast(livereload.Reload(true, false))
	o.runCommand(ctx)
}

func (o *Orchestrator) onAssetChange(ctx context.Context, ev watch.Event) {
	p := ev.Path
	switch {
	case isSwapFile(p):
		o.logger.Debug("ignoring editor swap file", "path", p)
		return
	case isLess(p):
		if o.starting() || o.style == nil || o.lessEntry == "" {
			o.logger.Debug("ignoring stylesheet source", "path", p, "phase", o.Phase())
			return
		}
		if o.compileStyles(ctx) {
			o.notifier.Broadcast(livereload.Reload(false, true))
		}
		o.runCommand(ctx)
		return
	}

	dest := o.destination(p)
	started := time.Now()
	err := fsutil.CopyFile(p, dest)
	o.metrics.ObserveBuild("copy", started, err)
	if err != nil {
		o.logger.Error("copy failed", "path", p, "error", err)
		return
	}
	if o.starting() {
		o.logger.Debug("wrote", "path", dest, "event", ev.Op)
		return
	}
	o.logger.Info("wrote", "path", dest)
	o.notifier.Broadcast(livereload.Reload(isJS(dest) || isHTML(dest), isCSS(dest)))
	o.runCommand(ctx)
}

func (o *Orchestrator) onForceReload(ctx context.Context) {
	for _, in := range o.inputs {
		dest := o.destination(in)
		started := time.Now()
		n, err := fsutil.CopyTree(in, dest)
		o.metrics.ObserveBuild("copy", started, err)
		if err != nil {
			o.logger.Error("copy failed", "path", in, "error", err)
			continue
		}
		o.logger.Info("wrote", "path", dest, "files", n)

		removed, err := fsutil.RemoveByExt(dest, ".less")
		if err != nil {
			o.logger.Warn("failed to remove stylesheet sources from output", "path", dest, "error", err)
		}
		for _, r := range removed {
			o.logger.Debug("removed stylesheet source from output", "path", r)
		}
	}

	if o.rebuildBundle(ctx) {
		o.notifier.Broadcast(livereload.Reload(true, false))
	}
	if o.style != nil && o.lessEntry != "" && o.compileStyles(ctx) {
		o.notifier.Broadcast(livereload.Reload(false, true))
	}
	o.runCommand(ctx)
}

func (o *Orchestrator) rebuildBundle(ctx context.Context) bool {
	started := time.Now()
	written, err := o.bundler.Build(ctx)
	o.metrics.ObserveBuild("bundle", started, err)
	if err != nil {
		o.logger.Error("bundle failed", "error", err)
		return false
	}
	for _, p := range written {
		o.logger.Info("wrote", "path", p, "took", time.Since(started).Round(time.Millisecond))
	}
	return true
}

func (o *Orchestrator) compileStyles(ctx context.Context) bool {
	started := time.Now()
	css, err := o.style.Compile(ctx, o.lessEntry)
	if err == nil {
		err = fsutil.WriteFileAtomic(o.styleOutput(), css, 0o644)
	}
	o.metrics.ObserveBuild("style", started, err)
	if err != nil {
		o.logger.Error("stylesheet failed", "source", o.lessEntry, "error", err)
		return false
	}
	o.logger.Info("wrote", "path", o.styleOutput())
	return true
}

// runCommand runs the post-build command, if any, and then asks browsers to
// reload whether or not it succeeded.
func (o *Orchestrator) runCommand(ctx context.Context) {
	if o.command == "" {
		return
	}
	o.logger.Info("running command", "command", o.command)
	started := time.Now()
	err := o.runner.Run(ctx, o.command)
	o.metrics.ObserveBuild("command", started, err)
	if err != nil {
		o.logger.Error("command failed", "command", o.command, "error", err)
	} else {
		o.logger.Info("command ok", "command", o.command, "took", time.Since(started).Round(time.Millisecond))
	}
	o.notifier.Broadcast(livereload.Reload(true, false))
}
