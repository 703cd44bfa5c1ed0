package livereload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rathix/devserve/internal/metrics"
	appws "github.com/rathix/devserve/internal/websocket"
)

// Path is the URL path browsers open the live-reload socket on.
const Path = "/ws"

// DefaultKeepaliveInterval is how often keepalive frames are broadcast.
const DefaultKeepaliveInterval = 10 * time.Second

const shutdownTimeout = 5 * time.Second

// Notifier owns the set of live-reload sockets. It is the only writer to
// them: reload signals come in through Broadcast and keepalives are sent by
// Run on a fixed interval.
type Notifier struct {
	registry          *appws.ConnectionRegistry
	logger            *slog.Logger
	metrics           *metrics.Metrics
	keepaliveInterval time.Duration
	fatal             chan error
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithKeepaliveInterval overrides DefaultKeepaliveInterval.
func WithKeepaliveInterval(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.keepaliveInterval = d
		}
	}
}

// WithMetrics records broadcasts and socket counts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Notifier) {
		n.metrics = m
	}
}

// NewNotifier creates a Notifier with no connected sockets.
func NewNotifier(logger *slog.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		registry:          appws.NewRegistry(logger),
		logger:            logger,
		keepaliveInterval: DefaultKeepaliveInterval,
		fatal:             make(chan error, 1),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Errors delivers socket failures that should terminate the process.
// Ordinary disconnects are not reported.
func (n *Notifier) Errors() <-chan error {
	return n.fatal
}

// Count returns the number of connected sockets.
func (n *Notifier) Count() int {
	return n.registry.Count()
}

// ServeHTTP upgrades the request and holds the socket until it closes.
func (n *Notifier) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := appws.Accept(w, r, nil)
	if err != nil {
		n.logger.Warn("live-reload upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := appws.WrapConn(r.Context(), c, appws.WithLogger(n.logger))
	n.registry.Register(conn)
	n.metrics.SetLiveSockets(n.registry.Count())
	n.logger.Debug("live-reload client connected", "conn", conn.ID(), "clients", n.registry.Count())

	<-conn.Done()

	n.registry.Unregister(conn)
	n.metrics.SetLiveSockets(n.registry.Count())
	n.logger.Debug("live-reload client disconnected", "conn", conn.ID(), "clients", n.registry.Count())

	if err := conn.Err(); err != nil {
		n.logger.Error("live-reload socket error", "conn", conn.ID(), "error", err)
		n.reportFatal(fmt.Errorf("live-reload socket %s: %w", conn.ID(), err))
	}
}

func (n *Notifier) reportFatal(err error) {
	select {
	case n.fatal <- err:
	default:
	}
}

// Broadcast sends msg to every open socket. Sockets that are closing are
// skipped; a broadcast never fails as a whole.
func (n *Notifier) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("failed to encode live-reload message", "error", err)
		return
	}
	sent := n.registry.Broadcast(context.Background(), data)
	n.metrics.ObserveBroadcast(msg.frameType())
	if !msg.Keepalive {
		n.logger.Debug("live-reload broadcast", "js", msg.JS, "css", msg.CSS, "clients", sent)
	}
}

// Run broadcasts keepalive frames until ctx is cancelled, then closes every
// socket with a going-away status.
func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			n.registry.CloseAll(closeCtx)
			cancel()
			return
		case <-ticker.C:
			n.Broadcast(KeepaliveMessage)
		}
	}
}
