// Package server implements devserve's HTTP surface: the front door routing
// each request to the live-reload socket, the metrics endpoint, an upstream
// forward rule or the static resolver.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rathix/devserve/internal/livereload"
	"github.com/rathix/devserve/internal/metrics"
	appws "github.com/rathix/devserve/internal/websocket"
)

// FrontDoor dispatches requests. Reserved paths win, then forward rules,
// then static files.
type FrontDoor struct {
	live      http.Handler
	metrics   http.Handler
	forwarder *Forwarder
	resolver  *Resolver
	logger    *slog.Logger
}

// FrontDoorOption configures a FrontDoor.
type FrontDoorOption func(*FrontDoor)

// WithLiveReload mounts h at livereload.Path for WebSocket upgrades.
func WithLiveReload(h http.Handler) FrontDoorOption {
	return func(d *FrontDoor) {
		d.live = h
	}
}

// WithMetricsHandler mounts h at metrics.Path.
func WithMetricsHandler(h http.Handler) FrontDoorOption {
	return func(d *FrontDoor) {
		d.metrics = h
	}
}

// WithFrontDoorLogger sets the request logger.
func WithFrontDoorLogger(l *slog.Logger) FrontDoorOption {
	return func(d *FrontDoor) {
		d.logger = l
	}
}

// NewFrontDoor routes to forwarder and resolver. A nil forwarder forwards
// nothing.
func NewFrontDoor(forwarder *Forwarder, resolver *Resolver, opts ...FrontDoorOption) *FrontDoor {
	if forwarder == nil {
		forwarder = NewForwarder(nil)
	}
	d := &FrontDoor{
		forwarder: forwarder,
		resolver:  resolver,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *FrontDoor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == livereload.Path && d.live != nil && appws.IsUpgrade(r):
		d.live.ServeHTTP(w, r)
		return
	case r.URL.Path == metrics.Path && d.metrics != nil:
		d.metrics.ServeHTTP(w, r)
		return
	}

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	if h := d.forwarder.Handler(r.URL.Path); h != nil {
		h.ServeHTTP(rec, r)
		d.logger.Debug("forwarded", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
		return
	}
	d.resolver.ServeHTTP(rec, r)
	d.logger.Debug("served", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush lets streamed upstream responses through.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
