package websocket

import (
	"context"
	"log/slog"
	"sync"

	ws "nhooyr.io/websocket"
)

// ConnectionRegistry tracks live WebSocket connections, fans frames out to
// them and closes them on shutdown.
type ConnectionRegistry struct {
	mu    sync.Mutex
	conns map[*Conn]struct{}
	log   *slog.Logger
}

// NewRegistry creates a new ConnectionRegistry.
func NewRegistry(logger *slog.Logger) *ConnectionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionRegistry{
		conns: make(map[*Conn]struct{}),
		log:   logger,
	}
}

// Register adds a connection to the registry.
func (r *ConnectionRegistry) Register(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c] = struct{}{}
}

// Unregister removes a connection from the registry.
func (r *ConnectionRegistry) Unregister(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c)
}

// Count returns the number of registered connections.
func (r *ConnectionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *ConnectionRegistry) snapshot() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		snapshot = append(snapshot, c)
	}
	return snapshot
}

// Broadcast writes data as one text frame to every open connection and
// returns how many writes succeeded. Connections that are not open are
// skipped; a failed write is logged and does not stop the fan-out.
func (r *ConnectionRegistry) Broadcast(ctx context.Context, data []byte) int {
	sent := 0
	for _, c := range r.snapshot() {
		if !c.IsOpen() {
			continue
		}
		if err := c.Send(ctx, data); err != nil {
			r.log.Debug("websocket write failed", slog.String("conn", c.ID()), slog.String("error", err.Error()))
			continue
		}
		sent++
	}
	return sent
}

// CloseAll sends a close frame to every registered connection.
// It waits for each close to complete or for the context to expire.
func (r *ConnectionRegistry) CloseAll(ctx context.Context) {
	snapshot := r.snapshot()
	if len(snapshot) == 0 {
		return
	}

	r.log.Info("closing all WebSocket connections", slog.Int("count", len(snapshot)))

	var wg sync.WaitGroup
	for _, c := range snapshot {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			_ = c.CloseWithContext(ctx, ws.StatusGoingAway, "server shutting down")
		}(c)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.log.Info("all WebSocket connections closed")
	case <-ctx.Done():
		r.log.Warn("shutdown timeout reached, some WebSocket connections may not have closed cleanly")
	}
}
