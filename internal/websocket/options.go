package websocket

import (
	"log/slog"
	"time"
)

// DefaultWriteTimeout bounds a single frame write to one peer.
const DefaultWriteTimeout = 5 * time.Second

// Options configures a wrapped WebSocket connection.
type Options struct {
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Option is a functional option for configuring a WebSocket connection.
type Option func(*Options)

// WithWriteTimeout sets the deadline applied to each frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *Options) { o.WriteTimeout = d }
}

// WithLogger sets the logger for the connection.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func defaultOptions() Options {
	return Options{
		WriteTimeout: DefaultWriteTimeout,
		Logger:       slog.Default(),
	}
}

func applyOptions(opts []Option) Options {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
