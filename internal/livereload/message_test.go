package livereload

import (
	"encoding/json"
	"testing"
)

func TestMessageEncoding(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"js reload", Reload(true, false), `{"js":true,"css":false}`},
		{"css reload", Reload(false, true), `{"js":false,"css":true}`},
		{"both", Reload(true, true), `{"js":true,"css":true}`},
		{"keepalive", KeepaliveMessage, `{"keepalive":true}`},
		{"keepalive wins", Message{JS: true, Keepalive: true}, `{"keepalive":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}
}

func TestMessageDecodeKeepalive(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"keepalive":true}`), &m); err != nil {
		t.Fatal(err)
	}
	if !m.Keepalive || m.JS || m.CSS {
		t.Errorf("decoded %+v", m)
	}
}
