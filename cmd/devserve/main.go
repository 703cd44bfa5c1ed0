package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rathix/devserve/internal/build"
	"github.com/rathix/devserve/internal/bundle"
	appconfig "github.com/rathix/devserve/internal/config"
	"github.com/rathix/devserve/internal/livereload"
	"github.com/rathix/devserve/internal/metrics"
	"github.com/rathix/devserve/internal/server"
	"github.com/rathix/devserve/internal/style"
	"github.com/rathix/devserve/internal/watch"
)

const defaultPort = 8080

// Version is injected at build time using ldflags.
var Version = "(unknown)"

// config holds the resolved runtime configuration.
type config struct {
	ShowVersion bool
	ConfigFile  string
	LogFormat   string

	Entry   string
	Inputs  []string
	Layout  appconfig.Layout
	Port    int
	Less    string
	Lessc   string
	Command string
	Rules   []appconfig.ForwardRule
	Env     map[string]string

	StartupGrace time.Duration
	Keepalive    time.Duration
	Debounce     time.Duration

	// Warnings are config file validation errors for entries that were
	// dropped; they are logged once the logger exists.
	Warnings []error
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			fmt.Printf("devserve version %s\n", Version)
			return
		}
	}

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig parses flags, environment variables and the optional YAML file
// with precedence: Flag > Env > File > Default. Flags may be interleaved with
// the positional inputs; the first positional is the JS entry.
func loadConfig(args []string) (config, error) {
	fs := flag.NewFlagSet("devserve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: devserve [flags] <entry.js> [inputs...]\n")
		fs.PrintDefaults()
	}

	var (
		cfg                                     config
		output, port, rel, less, command, cfgFn string
		httpRules, httpsRules                   stringList
	)
	fs.BoolVar(&cfg.ShowVersion, "version", false, "print version and exit")
	fs.StringVar(&output, "o", "", "bundle output path (dir/bundle.js)")
	fs.StringVar(&port, "p", "", "listen port (default 8080)")
	fs.StringVar(&rel, "rel", "", "output directory for assets; its parent becomes the served root")
	fs.StringVar(&less, "less", "", "Less stylesheet entry to compile")
	fs.StringVar(&command, "c", "", "shell command to run after each build")
	fs.Var(&httpRules, "http", "forward host[:port]/prefix over HTTP (repeatable)")
	fs.Var(&httpsRules, "https", "forward host[:port]/prefix over HTTPS (repeatable)")
	fs.StringVar(&cfgFn, "config", getEnv("DEVSERVE_CONFIG", ""), "path to YAML project file")
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "log format (json or text)")

	positionals, err := parseInterleaved(fs, args)
	if err != nil {
		return config{}, err
	}
	cfg.ConfigFile = cfgFn

	file := &appconfig.Config{}
	if cfgFn != "" {
		loaded, errs := appconfig.Load(cfgFn)
		if loaded == nil {
			return config{}, errors.Join(errs...)
		}
		file = loaded
		cfg.Warnings = errs
	}

	if len(positionals) > 0 {
		cfg.Entry = positionals[0]
		cfg.Inputs = positionals[1:]
	} else {
		cfg.Entry = file.Entry
		cfg.Inputs = file.Inputs
	}
	if err := appconfig.ValidateEntry(cfg.Entry); err != nil {
		return config{}, err
	}

	cfg.Layout, err = appconfig.ResolveLayout(firstNonEmpty(output, file.Output), firstNonEmpty(rel, file.Rel))
	if err != nil {
		return config{}, err
	}

	filePort := ""
	if file.Port > 0 {
		filePort = strconv.Itoa(file.Port)
	}
	portStr := firstNonEmpty(port, getEnv("DEVSERVE_PORT", ""), filePort, strconv.Itoa(defaultPort))
	cfg.Port, err = strconv.Atoi(portStr)
	if err != nil || cfg.Port < 0 || cfg.Port > 65535 {
		return config{}, fmt.Errorf("invalid port %q", portStr)
	}

	cfg.Less = firstNonEmpty(less, file.Less)
	cfg.Lessc = firstNonEmpty(getEnv("LESSC", ""), file.Lessc, style.DefaultCompiler)
	cfg.Command = firstNonEmpty(command, getEnv("DEVSERVE_COMMAND", ""), file.Command)
	cfg.Env = file.Env

	if len(httpRules) == 0 && len(httpsRules) == 0 {
		httpRules, httpsRules = file.HTTP, file.HTTPS
	}
	cfg.Rules, err = appconfig.ParseForwardRules(httpRules, httpsRules)
	if err != nil {
		return config{}, err
	}

	cfg.StartupGrace = durationOr(file.Timing.StartupGrace, build.DefaultStartupGrace)
	cfg.Keepalive = durationOr(file.Timing.Keepalive, livereload.DefaultKeepaliveInterval)
	cfg.Debounce = durationOr(file.Timing.Debounce, watch.DefaultDebounce)

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return config{}, fmt.Errorf("unsupported log format %q: must be \"json\" or \"text\"", cfg.LogFormat)
	}

	return cfg, nil
}

// parseInterleaved parses args allowing flags after positional arguments.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positionals []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positionals, nil
		}
		// A literal "--" ends flag parsing; everything after it is positional.
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(positionals, rest...), nil
		}
		positionals = append(positionals, rest[0])
		args = rest[1:]
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// durationOr parses s, already validated by the config loader, or returns
// fallback when it is empty.
func durationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func setupLogger(format string) *slog.Logger {
	return setupLoggerWithWriter(format, os.Stdout)
}

func setupLoggerWithWriter(format string, writer io.Writer) *slog.Logger {
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(writer, nil)
	} else {
		handler = slog.NewJSONHandler(writer, nil)
	}
	return slog.New(handler)
}

// watchStdin calls trigger for every line read from r until r is exhausted.
func watchStdin(r io.Reader, trigger func()) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		trigger()
	}
}

// run wires the build loop, the live-reload notifier and the HTTP server,
// and blocks until ctx is cancelled or a fatal error occurs.
func run(ctx context.Context, cfg config, stdin io.Reader) error {
	logger := setupLogger(cfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting devserve", "version", Version)
	for _, e := range cfg.Warnings {
		slog.Warn("Config validation error", "error", e)
	}

	if err := os.MkdirAll(cfg.Layout.OutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	notifier := livereload.NewNotifier(logger,
		livereload.WithKeepaliveInterval(cfg.Keepalive),
		livereload.WithMetrics(m),
	)

	engine, err := bundle.New(bundle.Options{
		Entry:    cfg.Entry,
		Outfile:  cfg.Layout.Output,
		Define:   bundle.EnvDefines(os.Environ(), cfg.Env),
		Debounce: cfg.Debounce,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to set up bundler: %w", err)
	}
	defer engine.Close()

	buildOpts := []build.Option{
		build.WithInputs(cfg.Inputs),
		build.WithCommand(cfg.Command),
		build.WithStartupGrace(cfg.StartupGrace),
		build.WithMetrics(m),
		build.WithLogger(logger),
	}
	if cfg.Less != "" {
		buildOpts = append(buildOpts, build.WithStyle(style.NewLessCompiler(cfg.Lessc, logger), cfg.Less))
	}
	orch := build.NewOrchestrator(cfg.Layout, engine, notifier, buildOpts...)

	forwarder := server.NewForwarder(cfg.Rules,
		server.WithForwardMetrics(m),
		server.WithForwardLogger(logger),
	)
	for _, rule := range forwarder.Rules() {
		slog.Info("Forwarding", "prefix", rule.PathPrefix, "upstream", rule.Origin())
	}
	door := server.NewFrontDoor(forwarder, server.NewResolver(cfg.Layout.Base, logger),
		server.WithLiveReload(notifier),
		server.WithMetricsHandler(metrics.Handler(reg)),
		server.WithFrontDoorLogger(logger),
	)

	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	fatal := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		orch.Run(bgCtx)
	}()
	orch.ForceReload()

	if len(cfg.Inputs) > 0 {
		source := watch.NewSource(cfg.Inputs, logger, watch.WithDebounce(cfg.Debounce))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := source.Run(bgCtx, orch.HandleEvent); err != nil {
				fatal <- fmt.Errorf("watcher: %w", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Watch(bgCtx, orch.BundleUpdated); err != nil {
			fatal <- fmt.Errorf("bundle watcher: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		notifier.Run(bgCtx)
	}()

	// Reads block until EOF, so this goroutine is not waited for.
	go watchStdin(stdin, orch.ForceReload)
	slog.Info("Hit ENTER to force reload")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           door,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverError := make(chan error, 1)
	go func() {
		slog.Info("Listening (HTTP)", "addr", srv.Addr, "root", cfg.Layout.Base)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down gracefully...")
	case err := <-serverError:
		runErr = fmt.Errorf("server error: %w", err)
	case err := <-fatal:
		runErr = err
	case err := <-notifier.Errors():
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server forced to shutdown: %w", err)
	}
	bgCancel()
	wg.Wait()
	slog.Info("Server stopped")

	return runErr
}
