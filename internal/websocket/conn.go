package websocket

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"syscall"

	"github.com/google/uuid"
	ws "nhooyr.io/websocket"
)

// ErrClosed is returned by Send once the connection has left the open state.
var ErrClosed = errors.New("websocket: connection closed")

// Conn wraps a nhooyr.io/websocket.Conn with an open/closed state, a
// background reader and per-write deadlines. Peers never send anything the
// server cares about; the reader only exists to process control frames and
// to notice when the peer goes away.
type Conn struct {
	id    string
	inner *ws.Conn
	opts  Options
	done  chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
}

// WrapConn wraps an accepted WebSocket connection and starts its read loop.
// The connection is open until the peer closes it, the read loop fails, or
// one of the Close methods is called.
func WrapConn(ctx context.Context, c *ws.Conn, options ...Option) *Conn {
	conn := &Conn{
		id:    uuid.NewString(),
		inner: c,
		opts:  applyOptions(options),
		done:  make(chan struct{}),
	}
	go conn.readLoop(ctx)
	return conn
}

// ID returns a unique identifier for log correlation.
func (c *Conn) ID() string {
	return c.id
}

// IsOpen reports whether the connection can still be written to.
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Done is closed when the read loop has exited.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the read loop, or nil when the connection
// ended by an ordinary closure. Only meaningful after Done is closed.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Send writes data as a single text frame, bounded by the write timeout.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	if !c.IsOpen() {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()
	return c.inner.Write(ctx, ws.MessageText, data)
}

// Close sends a close frame and shuts down the connection.
func (c *Conn) Close(code ws.StatusCode, reason string) error {
	if !c.markClosed() {
		return nil
	}
	return c.inner.Close(code, reason)
}

// CloseWithContext sends a close frame and waits for the read loop to exit
// within the given context deadline.
func (c *Conn) CloseWithContext(ctx context.Context, code ws.StatusCode, reason string) error {
	if !c.markClosed() {
		return nil
	}

	errCh := make(chan error, 1)
	go func() { errCh <- c.inner.Close(code, reason) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		c.inner.CloseNow()
		return ctx.Err()
	}
}

// ForceClose immediately closes the underlying connection without sending a close frame.
// Used when the connection is already broken.
func (c *Conn) ForceClose() {
	if !c.markClosed() {
		return
	}
	c.inner.CloseNow()
}

// markClosed flips the connection to closed and reports whether this call
// did so.
func (c *Conn) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	return true
}

func (c *Conn) readLoop(ctx context.Context) {
	defer close(c.done)

	for {
		if _, _, err := c.inner.Read(ctx); err != nil {
			c.mu.Lock()
			// Errors after a local close are the close itself.
			if !c.closed && !IsNormalClosure(err) {
				c.err = err
			}
			c.closed = true
			c.mu.Unlock()
			return
		}
	}
}

// IsNormalClosure reports whether err describes a peer going away rather than
// a transport or protocol failure: a received close frame, EOF, a reset, or
// local cancellation.
func IsNormalClosure(err error) bool {
	if err == nil {
		return true
	}
	if ws.CloseStatus(err) != -1 {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
