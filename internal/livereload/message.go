// Package livereload implements the server side of the live-reload protocol:
// the socket endpoint browsers connect to, the reload/keepalive frames sent
// over it, and the client bootstrap injected into served HTML.
package livereload

import "encoding/json"

// Message is one live-reload frame. It encodes either as a reload signal
// {"js":bool,"css":bool} or, when Keepalive is set, as {"keepalive":true}.
type Message struct {
	JS        bool
	CSS       bool
	Keepalive bool
}

// Reload returns a reload signal. The client reloads the page when js is
// true, otherwise it swaps the first local stylesheet when css is true.
func Reload(js, css bool) Message {
	return Message{JS: js, CSS: css}
}

// KeepaliveMessage is sent periodically to keep idle sockets open.
var KeepaliveMessage = Message{Keepalive: true}

type reloadFrame struct {
	JS  bool `json:"js"`
	CSS bool `json:"css"`
}

type keepaliveFrame struct {
	Keepalive bool `json:"keepalive"`
}

// MarshalJSON implements json.Marshaler.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.Keepalive {
		return json.Marshal(keepaliveFrame{Keepalive: true})
	}
	return json.Marshal(reloadFrame{JS: m.JS, CSS: m.CSS})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		JS        bool `json:"js"`
		CSS       bool `json:"css"`
		Keepalive bool `json:"keepalive"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Message{JS: raw.JS, CSS: raw.CSS, Keepalive: raw.Keepalive}
	return nil
}

func (m Message) frameType() string {
	if m.Keepalive {
		return "keepalive"
	}
	return "reload"
}
