package websocket

import (
	"net/http"
	"strings"

	ws "nhooyr.io/websocket"
)

// IsUpgrade reports whether r is a WebSocket handshake request.
func IsUpgrade(r *http.Request) bool {
	return headerContainsToken(r.Header, "Connection", "upgrade") &&
		headerContainsToken(r.Header, "Upgrade", "websocket")
}

// Accept upgrades an HTTP request to a WebSocket connection. Origin checks
// are skipped: pages are often loaded through a forwarded host name that
// differs from the socket's Host header.
func Accept(w http.ResponseWriter, r *http.Request, acceptOpts *ws.AcceptOptions) (*ws.Conn, error) {
	if acceptOpts == nil {
		acceptOpts = &ws.AcceptOptions{
			InsecureSkipVerify: true,
		}
	}
	return ws.Accept(w, r, acceptOpts)
}

func headerContainsToken(h http.Header, name, token string) bool {
	for _, v := range h.Values(name) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
